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
package isa

// Op enumerates every mnemonic the accelerator understands.
type Op uint8

const (
	OpInvalid Op = iota

	OpLB
	OpLH
	OpLW
	OpLBU
	OpLHU

	OpADDI
	OpSLTI
	OpSLTIU
	OpXORI
	OpORI
	OpANDI
	OpSLLI
	OpSRLI
	OpSRAI

	OpAUIPC
	OpLUI

	OpSB
	OpSH
	OpSW

	OpADD
	OpSUB
	OpSLL
	OpSLT
	OpSLTU
	OpXOR
	OpSRL
	OpSRA
	OpOR
	OpAND
	OpMUL

	OpBEQ
	OpBNE
	OpBLT
	OpBGE
	OpBLTU
	OpBGEU

	OpJALR
	OpJAL

	OpPSRFLW
	OpPSRFLB
	OpPSRFZDLW
	OpPSRFSW
	OpPSRFSB
	OpPPSRFADDI
	OpCORFADDI
	OpCORFLUI
	OpHWLRFLUI
	OpHWLRFADDI

	OpRET
	OpNOP

	opCount
)

// Layout is the bit-field arrangement of an encoded word.
type Layout uint8

const (
	LayoutR Layout = iota + 1
	// LayoutShift is LayoutR with a 5-bit shift amount in the rs2 field.
	LayoutShift
	LayoutI
	LayoutS
	LayoutB
	LayoutU
	LayoutJ
	// LayoutZero encodes the zero-effect addi x0, x0, 0.
	LayoutZero
)

// Syntax is the textual operand shape of an instruction.
type Syntax uint8

const (
	// SyntaxNone: mnemonic
	SyntaxNone Syntax = iota + 1
	// SyntaxRRR: mnemonic rd, rs1, rs2
	SyntaxRRR
	// SyntaxRRI: mnemonic rd, rs1, imm
	SyntaxRRI
	// SyntaxRI: mnemonic rd, imm
	SyntaxRI
	// SyntaxLoad: mnemonic rd, imm(rs1)
	SyntaxLoad
	// SyntaxStore: mnemonic rs2, imm(rs1)
	SyntaxStore
	// SyntaxBranch: mnemonic rs1, rs2, imm
	SyntaxBranch
)

// Info is the static description of one Op.
type Info struct {
	Mnemonic string
	Layout   Layout
	Syntax   Syntax
	Opcode   uint32
	Funct3   uint32
	Funct7   uint32
	// register file expected in the rd, rs1 and rs2 slots
	Rd, Rs1, Rs2 Namespace
}

const (
	opcodeLoad    = 0b0000011
	opcodeOpImm   = 0b0010011
	opcodeAUIPC   = 0b0010111
	opcodeStore   = 0b0100011
	opcodeOp      = 0b0110011
	opcodeLUI     = 0b0110111
	opcodeBranch  = 0b1100011
	opcodeJALR    = 0b1100111
	opcodeJAL     = 0b1101111
	opcodePSRFLd  = 0b0000100
	opcodePSRFSt  = 0b0100100
	opcodeCustImm = 0b0010100
	opcodeCORFLUI = 0b0111011
	opcodeHWLLUI  = 0b0111100
)

const (
	gen  = NamespaceGeneral
	coef = NamespaceCoefficient
	scr  = NamespaceScratch
	hwl  = NamespaceLoop
)

// ops is indexed by Op. Its length is checked against opCount below, so
// appending an Op without describing it fails to compile.
var ops = [...]Info{
	OpInvalid: {},

	OpLB:  {"lb", LayoutI, SyntaxLoad, opcodeLoad, 0b000, 0, gen, gen, 0},
	OpLH:  {"lh", LayoutI, SyntaxLoad, opcodeLoad, 0b001, 0, gen, gen, 0},
	OpLW:  {"lw", LayoutI, SyntaxLoad, opcodeLoad, 0b010, 0, gen, gen, 0},
	OpLBU: {"lbu", LayoutI, SyntaxLoad, opcodeLoad, 0b100, 0, gen, gen, 0},
	OpLHU: {"lhu", LayoutI, SyntaxLoad, opcodeLoad, 0b101, 0, gen, gen, 0},

	OpADDI:  {"addi", LayoutI, SyntaxRRI, opcodeOpImm, 0b000, 0, gen, gen, 0},
	OpSLTI:  {"slti", LayoutI, SyntaxRRI, opcodeOpImm, 0b010, 0, gen, gen, 0},
	OpSLTIU: {"sltiu", LayoutI, SyntaxRRI, opcodeOpImm, 0b011, 0, gen, gen, 0},
	OpXORI:  {"xori", LayoutI, SyntaxRRI, opcodeOpImm, 0b100, 0, gen, gen, 0},
	OpORI:   {"ori", LayoutI, SyntaxRRI, opcodeOpImm, 0b110, 0, gen, gen, 0},
	OpANDI:  {"andi", LayoutI, SyntaxRRI, opcodeOpImm, 0b111, 0, gen, gen, 0},
	OpSLLI:  {"slli", LayoutShift, SyntaxRRI, opcodeOpImm, 0b001, 0b0000000, gen, gen, 0},
	OpSRLI:  {"srli", LayoutShift, SyntaxRRI, opcodeOpImm, 0b101, 0b0000000, gen, gen, 0},
	OpSRAI:  {"srai", LayoutShift, SyntaxRRI, opcodeOpImm, 0b101, 0b0100000, gen, gen, 0},

	OpAUIPC: {"auipc", LayoutU, SyntaxRI, opcodeAUIPC, 0, 0, gen, 0, 0},
	OpLUI:   {"lui", LayoutU, SyntaxRI, opcodeLUI, 0, 0, gen, 0, 0},

	OpSB: {"sb", LayoutS, SyntaxStore, opcodeStore, 0b000, 0, 0, gen, gen},
	OpSH: {"sh", LayoutS, SyntaxStore, opcodeStore, 0b001, 0, 0, gen, gen},
	OpSW: {"sw", LayoutS, SyntaxStore, opcodeStore, 0b010, 0, 0, gen, gen},

	OpADD:  {"add", LayoutR, SyntaxRRR, opcodeOp, 0b000, 0b0000000, gen, gen, gen},
	OpSUB:  {"sub", LayoutR, SyntaxRRR, opcodeOp, 0b000, 0b0100000, gen, gen, gen},
	OpSLL:  {"sll", LayoutR, SyntaxRRR, opcodeOp, 0b001, 0b0000000, gen, gen, gen},
	OpSLT:  {"slt", LayoutR, SyntaxRRR, opcodeOp, 0b010, 0b0000000, gen, gen, gen},
	OpSLTU: {"sltu", LayoutR, SyntaxRRR, opcodeOp, 0b011, 0b0000000, gen, gen, gen},
	OpXOR:  {"xor", LayoutR, SyntaxRRR, opcodeOp, 0b100, 0b0000000, gen, gen, gen},
	OpSRL:  {"srl", LayoutR, SyntaxRRR, opcodeOp, 0b101, 0b0000000, gen, gen, gen},
	OpSRA:  {"sra", LayoutR, SyntaxRRR, opcodeOp, 0b101, 0b0100000, gen, gen, gen},
	OpOR:   {"or", LayoutR, SyntaxRRR, opcodeOp, 0b110, 0b0000000, gen, gen, gen},
	OpAND:  {"and", LayoutR, SyntaxRRR, opcodeOp, 0b111, 0b0000000, gen, gen, gen},
	OpMUL:  {"mul", LayoutR, SyntaxRRR, opcodeOp, 0b000, 0b0000001, gen, gen, gen},

	OpBEQ:  {"beq", LayoutB, SyntaxBranch, opcodeBranch, 0b000, 0, 0, gen, gen},
	OpBNE:  {"bne", LayoutB, SyntaxBranch, opcodeBranch, 0b001, 0, 0, gen, gen},
	OpBLT:  {"blt", LayoutB, SyntaxBranch, opcodeBranch, 0b100, 0, 0, gen, gen},
	OpBGE:  {"bge", LayoutB, SyntaxBranch, opcodeBranch, 0b101, 0, 0, gen, gen},
	OpBLTU: {"bltu", LayoutB, SyntaxBranch, opcodeBranch, 0b110, 0, 0, gen, gen},
	OpBGEU: {"bgeu", LayoutB, SyntaxBranch, opcodeBranch, 0b111, 0, 0, gen, gen},

	OpJALR: {"jalr", LayoutI, SyntaxRRI, opcodeJALR, 0b000, 0, gen, gen, 0},
	OpJAL:  {"jal", LayoutJ, SyntaxRI, opcodeJAL, 0, 0, gen, 0, 0},

	// psrf stores keep the data register in the rd slot of an I layout
	OpPSRFLW:    {"psrf.lw", LayoutI, SyntaxLoad, opcodePSRFLd, 0b111, 0, gen, gen, 0},
	OpPSRFLB:    {"psrf.lb", LayoutI, SyntaxLoad, opcodePSRFLd, 0b000, 0, gen, gen, 0},
	OpPSRFZDLW:  {"psrf.zd.lw", LayoutI, SyntaxLoad, opcodePSRFLd, 0b110, 0, gen, gen, 0},
	OpPSRFSW:    {"psrf.sw", LayoutI, SyntaxLoad, opcodePSRFSt, 0b100, 0, gen, gen, 0},
	OpPSRFSB:    {"psrf.sb", LayoutI, SyntaxLoad, opcodePSRFSt, 0b000, 0, gen, gen, 0},
	OpPPSRFADDI: {"ppsrf.addi", LayoutI, SyntaxRRI, opcodeCustImm, 0b001, 0, scr, scr, 0},
	OpCORFADDI:  {"corf.addi", LayoutI, SyntaxRRI, opcodeCustImm, 0b000, 0, coef, coef, 0},
	OpCORFLUI:   {"corf.lui", LayoutU, SyntaxRI, opcodeCORFLUI, 0, 0, coef, 0, 0},
	OpHWLRFLUI:  {"hwlrf.lui", LayoutU, SyntaxRI, opcodeHWLLUI, 0, 0, hwl, 0, 0},
	OpHWLRFADDI: {"hwlrf.addi", LayoutI, SyntaxRRI, opcodeCustImm, 0b010, 0, hwl, hwl, 0},

	OpRET: {"ret", LayoutZero, SyntaxNone, opcodeOpImm, 0, 0, 0, 0, 0},
	OpNOP: {"nop", LayoutZero, SyntaxNone, opcodeOpImm, 0, 0, 0, 0, 0},
}

// compile-time check that every Op up to opCount has a table entry
var _ [len(ops) - int(opCount)]struct{}
var _ [int(opCount) - len(ops)]struct{}

var mnemonics = map[string]Op{}

func init() {
	for op := OpInvalid + 1; op < opCount; op++ {
		mnemonics[ops[op].Mnemonic] = op
	}
}

// Lookup returns the Op for a lowercase mnemonic.
func Lookup(mnemonic string) (Op, bool) {
	op, ok := mnemonics[mnemonic]
	return op, ok
}

// Info returns the static description of op.
func (op Op) Info() Info {
	if op >= opCount {
		return ops[OpInvalid]
	}
	return ops[op]
}

func (op Op) String() string {
	if info := op.Info(); info.Mnemonic != "" {
		return info.Mnemonic
	}
	return "invalid"
}

// Valid reports whether op names a real instruction.
func (op Op) Valid() bool {
	return op > OpInvalid && op < opCount
}

// Ops lists every valid Op in declaration order.
func Ops() []Op {
	list := make([]Op, 0, int(opCount)-1)
	for op := OpInvalid + 1; op < opCount; op++ {
		list = append(list, op)
	}
	return list
}
