// Copyright 2022 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package codegen

import (
	"fmt"
	"math"

	"github.com/gorse-io/spasm/internal/config"
	"github.com/gorse-io/spasm/internal/isa"
	"github.com/samber/lo"
)

// operand resolves a configured register name against the register file of
// an instruction slot, keeping the first error.
type operand struct {
	err error
}

func (o *operand) reg(slot string, ns isa.Namespace, name string) isa.Register {
	if o.err != nil {
		return nil
	}
	r, err := isa.ParseRegister(ns, name)
	if err != nil {
		o.err = fmt.Errorf("%s: %w", slot, err)
	}
	return r
}

func (o *operand) imm(field string, v int) int32 {
	if o.err == nil && (v < math.MinInt32 || v > math.MaxInt32) {
		o.err = fmt.Errorf("%w: %s %d exceeds 32 bits", ErrOutOfRange, field, v)
	}
	return int32(v)
}

// instruction lowers one scheduled instruction. Instructions whose mnemonic
// is unknown become a comment and a warning.
func (g *generator) instruction(in config.Instruction) error {
	if in.Format == config.FormatHWL {
		return g.hardwareLoop(in)
	}
	op, ok := isa.Lookup(in.Operation)
	if !ok {
		g.b.Comment(fmt.Sprintf("Unknown instruction: %s (format: %s)", in.Operation, in.RawFormat))
		g.warn(g.pe, fmt.Errorf("%w: %s (format: %s)", ErrUnknownInstruction, in.Operation, in.RawFormat))
		return nil
	}
	info := op.Info()
	o := &operand{}
	out := isa.Inst{Op: op}
	comment := ""
	switch {
	case op == isa.OpJAL:
		var err error
		if out, comment, err = g.call(in); err != nil {
			return err
		}
	case info.Syntax == isa.SyntaxLoad || info.Syntax == isa.SyntaxStore:
		data := o.reg("ra1", isa.NamespaceGeneral, in.Ra1)
		out.Rs1 = o.reg("base_address", info.Rs1, in.BaseAddress)
		if in.Format == config.FormatPSRFMem {
			out.Imm = o.imm("var", lo.FromPtr(in.Var))
		} else {
			out.Imm = o.imm("offset", in.Offset)
		}
		if info.Syntax == isa.SyntaxLoad {
			out.Rd = data
		} else {
			out.Rs2 = data
		}
	case info.Syntax == isa.SyntaxRRI:
		out.Rd = o.reg("rd", info.Rd, in.Rd)
		out.Rs1 = o.reg("ra1", info.Rs1, in.Ra1)
		out.Imm = o.imm("imm", in.Imm)
		if o.err == nil && op == isa.OpADDI && (in.Imm < isa.Imm12Min || in.Imm > isa.Imm12Max) {
			g.largeAddi(out)
			return nil
		}
	case info.Syntax == isa.SyntaxRRR:
		out.Rd = o.reg("rd", info.Rd, in.Rd)
		out.Rs1 = o.reg("ra1", info.Rs1, in.Ra1)
		out.Rs2 = o.reg("ra2", info.Rs2, in.Ra2)
	case info.Syntax == isa.SyntaxBranch:
		out.Rs1 = o.reg("rd", info.Rs1, in.Rd)
		out.Rs2 = o.reg("ra1", info.Rs2, in.Ra1)
		out.Imm = o.imm("imm", in.Imm)
	case info.Syntax == isa.SyntaxRI:
		if in.Rd != "" {
			out.Rd = o.reg("rd", info.Rd, in.Rd)
		} else {
			out.Rd = o.reg("ra1", info.Rd, in.Ra1)
		}
		out.Imm = o.imm("imm", in.Imm)
	}
	if o.err != nil {
		return o.err
	}
	g.b.Inst(out, comment)
	return nil
}

// largeAddi materializes an immediate outside the 12-bit range as exactly one
// lui+addi pair into rd. A source register other than x0 is dropped with a
// warning.
func (g *generator) largeAddi(in isa.Inst) {
	if in.Rs1 != isa.X0 {
		g.warn(g.pe, fmt.Errorf("%w: addi %s, %s, %d loads the immediate only, %s is not added",
			ErrSourceDropped, in.Rd, in.Rs1, in.Imm, in.Rs1))
	}
	upper, lower := isa.SplitImmediate(in.Imm)
	g.b.Comment(fmt.Sprintf("Loading immediate %d using LUI+ADDI: %d << 12 + %d = %d",
		in.Imm, upper, lower, isa.JoinImmediate(upper, lower)))
	g.b.Inst(isa.Inst{Op: isa.OpLUI, Rd: in.Rd, Imm: int32(upper)}, "")
	g.b.Inst(isa.Inst{Op: isa.OpADDI, Rd: in.Rd, Rs1: in.Rd, Imm: int32(lower)}, "")
}

// call lowers a jal. A symbolic target without an explicit address jumps to
// the declared address of that function. The link register defaults to x26,
// the register function bodies return through.
func (g *generator) call(in config.Instruction) (isa.Inst, string, error) {
	o := &operand{}
	out := isa.Inst{Op: isa.OpJAL, Rd: isa.X26}
	if in.Rd != "" {
		out.Rd = o.reg("rd", isa.NamespaceGeneral, in.Rd)
	}
	if in.Target == "" {
		out.Imm = o.imm("imm", in.Imm)
		return out, "Call somewhere", o.err
	}
	address := in.Address
	if address == nil {
		declared, ok := g.cfg.FunctionAddress(in.Target)
		if !ok {
			return isa.Inst{}, "", fmt.Errorf("%w: %s", ErrUnknownFunction, in.Target)
		}
		address = &declared
	}
	out.Imm = o.imm("address", *address)
	return out, "Call " + in.Target, o.err
}

// hardwareLoop loads the packed control word of a hardware loop into its
// loop register. Start and span are shifted by the PE delay.
func (g *generator) hardwareLoop(in config.Instruction) error {
	if in.Loop == nil {
		return fmt.Errorf("%w: hwl-type instruction without loop fields", ErrOutOfRange)
	}
	g.loops++
	loop := *in.Loop
	delay := g.cfg.Delay(g.pe)
	for _, overflow := range loop.Overflows(delay) {
		g.warn(g.pe, overflow)
	}
	start, span, index, iterations := loop.Fields(delay)
	word := isa.PackHardwareLoop(loop, delay)
	upper, lower := isa.SplitImmediate(int32(word))
	reg, err := isa.ParseLoopReg(fmt.Sprintf("L%d", loop.LoopID))
	if err != nil {
		return err
	}
	g.b.Comment(fmt.Sprintf("hwl_imm_%d = (%d << 23) + (%d << 17) + (%d << 12) + %d",
		g.loops, start, span, index, iterations))
	g.b.Comment(fmt.Sprintf("Original pc_start=%d, pc_stop=%d, delay=%d", loop.PCStart, loop.PCStop, delay))
	g.b.Inst(isa.Inst{Op: isa.OpHWLRFLUI, Rd: reg, Imm: int32(upper)}, "")
	g.b.Inst(isa.Inst{Op: isa.OpHWLRFADDI, Rd: reg, Rs1: reg, Imm: int32(lower)}, "")
	return nil
}
