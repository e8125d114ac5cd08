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
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"

	"github.com/gorse-io/spasm/internal/asm"
	"github.com/gorse-io/spasm/internal/config"
	"github.com/gorse-io/spasm/internal/isa"
	"github.com/samber/lo"
)

// MaxInstructions bounds the schedule of an active PE.
const MaxInstructions = 10000

var (
	ErrUnknownInstruction = errors.New("unknown instruction")
	ErrUnknownFunction    = errors.New("unknown function")
	ErrSourceDropped      = errors.New("source register dropped")
	ErrOutOfRange         = errors.New("value out of range")
)

var labelName = regexp.MustCompile(`^[A-Za-z_.][\w.]*$`)

// Emitter generates PE programs from a configuration.
type Emitter struct {
	cfg *config.Config
	// Warn receives non-fatal diagnostics such as unknown instructions and
	// masked hardware-loop fields. It may be nil.
	Warn func(pe int, err error)
}

func NewEmitter(cfg *config.Config) *Emitter {
	return &Emitter{cfg: cfg}
}

func (e *Emitter) warn(pe int, err error) {
	if e.Warn != nil {
		e.Warn(pe, err)
	}
}

// schedule returns the instruction list a PE runs. PEs at the same position
// in every cluster share one schedule.
func (e *Emitter) schedule(pe int) []config.Instruction {
	return e.cfg.Programs[pe%e.cfg.PEsPerCluster].Instructions
}

// ActivePEs lists, in ascending order, the PEs that receive a program.
func (e *Emitter) ActivePEs() []int {
	return lo.Filter(lo.Range(e.cfg.TotalPEs), func(pe int, _ int) bool {
		n := len(e.schedule(pe))
		return pe%e.cfg.PEsPerCluster <= e.cfg.MinimumPEsRequired && n > 0 && n < MaxInstructions
	})
}

// EmitAll generates the programs of every active PE.
func (e *Emitter) EmitAll() ([]*asm.Program, error) {
	var programs []*asm.Program
	for _, pe := range e.ActivePEs() {
		prog, err := e.Emit(pe)
		if err != nil {
			return nil, err
		}
		programs = append(programs, prog)
	}
	return programs, nil
}

// BaseAddresses returns, sorted by symbol, the non-zero base registers a PE
// loads and their cluster-relative addresses.
func (e *Emitter) BaseAddresses(pe int) []lo.Tuple2[string, int] {
	symbols := lo.Keys(e.cfg.BaseAddresses)
	sort.Strings(symbols)
	var plan []lo.Tuple2[string, int]
	for _, symbol := range symbols {
		base := e.cfg.BaseAddresses[symbol]
		if base == 0 {
			continue
		}
		stride, _ := e.cfg.Stride(symbol)
		address := ClusterAddress(base, stride, e.cfg.Cluster(pe), e.cfg.DataDup, pe)
		plan = append(plan, lo.T2(symbol, address))
	}
	return plan
}

// Emit generates the program of one PE: base-address loads and the preload
// block in the preload section, then the delay, the scheduled instructions
// and the function bodies in the execution section.
func (e *Emitter) Emit(pe int) (*asm.Program, error) {
	if pe < 0 || pe >= e.cfg.TotalPEs {
		return nil, fmt.Errorf("%w: PE %d outside [0, %d)", ErrOutOfRange, pe, e.cfg.TotalPEs)
	}
	cluster := e.cfg.Cluster(pe)
	g := &generator{Emitter: e, pe: pe, b: asm.NewBuilder(pe, cluster)}

	g.b.Header(fmt.Sprintf("Assembly for PE%d (Cluster %d)", pe, cluster))
	g.b.Header("Generated with PSRF, HWL and function support")
	g.b.Directive(".text")
	g.b.Directive(".global _start")
	g.b.Blank()
	g.b.Label("_start")

	schedule := e.schedule(pe)
	if err := g.baseAddresses(); err != nil {
		return nil, fmt.Errorf("PE %d: %w", pe, err)
	}
	if err := g.preload(schedule); err != nil {
		return nil, fmt.Errorf("PE %d: %w", pe, err)
	}
	g.b.BeginExecution()
	g.delay()
	for i, in := range schedule {
		if err := g.instruction(in); err != nil {
			return nil, fmt.Errorf("PE %d: instruction %d (%s): %w", pe, i, in.Operation, err)
		}
	}
	if err := g.functions(); err != nil {
		return nil, fmt.Errorf("PE %d: %w", pe, err)
	}
	g.b.Comment("End of program")
	g.b.Inst(isa.Inst{Op: isa.OpRET}, "")
	return g.b.Program(), nil
}

// generator holds the state of one Emit call.
type generator struct {
	*Emitter
	pe    int
	b     *asm.Builder
	loops int
}

func (g *generator) baseAddresses() error {
	g.b.Comment(fmt.Sprintf("Base address loading section for cluster %d", g.cfg.Cluster(g.pe)))
	for _, entry := range g.BaseAddresses(g.pe) {
		symbol, address := entry.Unpack()
		reg, err := isa.ParseGPR(symbol)
		if err != nil {
			return fmt.Errorf("mem_config: %w", err)
		}
		if address < math.MinInt32 || address > math.MaxInt32 {
			return fmt.Errorf("%w: address %d of %s exceeds 32 bits", ErrOutOfRange, address, symbol)
		}
		upper, lower := isa.SplitImmediate(int32(address))
		g.b.Comment(fmt.Sprintf("Loading %s with address 0x%X (%d)", symbol, address, address))
		if upper != 0 {
			g.b.Comment(fmt.Sprintf("Using lui %d and addi %d to create %d", upper, lower, isa.JoinImmediate(upper, lower)))
			g.b.Inst(isa.Inst{Op: isa.OpLUI, Rd: reg, Imm: int32(upper)}, "")
		}
		if upper != 0 || lower != 0 {
			g.b.Inst(isa.Inst{Op: isa.OpADDI, Rd: reg, Rs1: reg, Imm: int32(lower)}, "")
		}
		g.b.Blank()
	}
	return nil
}

func (g *generator) preload(schedule []config.Instruction) error {
	psrf := lo.Filter(schedule, func(in config.Instruction, _ int) bool {
		return in.Format == config.FormatPSRFMem
	})
	if len(psrf) == 0 {
		return nil
	}
	g.b.Comment("Preload section for PSRF variables and coefficients")
	for _, in := range psrf {
		v := lo.FromPtr(in.Var)
		base := v * config.GroupWidth
		g.b.Comment(fmt.Sprintf("Using var=%d (registers %d-%d)", v, base, base+config.GroupWidth-1))
		if base > 31 {
			return fmt.Errorf("%w: var %d selects registers beyond 31", ErrOutOfRange, v)
		}
		if err := groupLoads(in.ScratchVars, "v", base, func(n, value int) {
			g.b.Inst(isa.Inst{Op: isa.OpPPSRFADDI, Rd: isa.ScratchReg(n), Rs1: isa.ScratchReg(base), Imm: int32(value)}, "")
		}); err != nil {
			return err
		}
		if err := groupLoads(in.Coefficients, "c", base, func(n, value int) {
			// corf.addi zero-extends its immediate
			if value > 4095 || value < 0 {
				g.b.Inst(isa.Inst{Op: isa.OpCORFLUI, Rd: isa.CoefReg(n), Imm: int32(value >> 12)}, "")
				value &= 0xFFF
			}
			g.b.Inst(isa.Inst{Op: isa.OpCORFADDI, Rd: isa.CoefReg(n), Rs1: isa.CoefReg(base), Imm: int32(value)}, "")
		}); err != nil {
			return err
		}
	}
	g.b.Blank()
	return nil
}

// groupLoads calls load for every non-zero entry of values in key order,
// with the register number the key selects inside the window at base.
func groupLoads(values map[string]int, prefix string, base int, load func(n, value int)) error {
	keys := lo.Keys(values)
	sort.Strings(keys)
	for _, key := range keys {
		value := values[key]
		if value == 0 {
			continue
		}
		index, err := config.GroupIndex(key, prefix)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrOutOfRange, key, err)
		}
		if base+index > 31 {
			return fmt.Errorf("%w: %s selects register %s%d", ErrOutOfRange, key, prefix, base+index)
		}
		if value < math.MinInt32 || value > math.MaxInt32 {
			return fmt.Errorf("%w: %s value %d exceeds 32 bits", ErrOutOfRange, key, value)
		}
		load(base+index, value)
	}
	return nil
}

func (g *generator) delay() {
	delay := g.cfg.Delay(g.pe)
	if delay <= 0 {
		return
	}
	g.b.Comment(fmt.Sprintf("Adding %d NOPs for delay", delay))
	for _, nop := range lo.Times(delay, func(int) isa.Inst { return isa.Inst{Op: isa.OpNOP} }) {
		g.b.Inst(nop, "")
	}
	g.b.Blank()
}

func (g *generator) functions() error {
	if len(g.cfg.Functions) == 0 {
		return nil
	}
	g.b.Blank()
	g.b.Comment("========== Function Sections ==========")
	for _, fn := range g.cfg.Functions {
		body, ok := fn.Bodies[g.pe]
		if !ok {
			continue
		}
		if !labelName.MatchString(fn.Name) {
			return fmt.Errorf("function %q is not a valid label", fn.Name)
		}
		g.b.Blank()
		g.b.Label(fn.Name)
		g.b.Comment(fmt.Sprintf("Function %s (address: 0x%x)", fn.Name, fn.Address))
		for i, in := range body {
			if err := g.instruction(in); err != nil {
				return fmt.Errorf("function %s: instruction %d (%s): %w", fn.Name, i, in.Operation, err)
			}
		}
		if len(body) == 0 || body[len(body)-1].Operation != "jalr" {
			g.b.Inst(isa.Inst{Op: isa.OpJALR, Rd: isa.X0, Rs1: isa.X26}, "Return from function")
		}
	}
	return nil
}
