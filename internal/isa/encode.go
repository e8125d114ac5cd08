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

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrInvalidOp       = errors.New("invalid instruction")
	ErrOperandMismatch = errors.New("operand register file mismatch")
	ErrUndecodable     = errors.New("word does not decode to a known instruction")
)

// Inst is one machine instruction with resolved operands. Register slots
// that the Op does not use are nil.
type Inst struct {
	Op  Op
	Rd  Register
	Rs1 Register
	Rs2 Register
	Imm int32
}

// String renders the instruction in assembler syntax.
func (in Inst) String() string {
	info := in.Op.Info()
	var b strings.Builder
	b.WriteString(info.Mnemonic)
	imm := strconv.Itoa(int(in.Imm))
	switch info.Syntax {
	case SyntaxRRR:
		fmt.Fprintf(&b, " %s, %s, %s", regName(in.Rd), regName(in.Rs1), regName(in.Rs2))
	case SyntaxRRI:
		fmt.Fprintf(&b, " %s, %s, %s", regName(in.Rd), regName(in.Rs1), imm)
	case SyntaxRI:
		fmt.Fprintf(&b, " %s, %s", regName(in.Rd), imm)
	case SyntaxLoad:
		fmt.Fprintf(&b, " %s, %s(%s)", regName(in.Rd), imm, regName(in.Rs1))
	case SyntaxStore:
		fmt.Fprintf(&b, " %s, %s(%s)", regName(in.Rs2), imm, regName(in.Rs1))
	case SyntaxBranch:
		fmt.Fprintf(&b, " %s, %s, %s", regName(in.Rs1), regName(in.Rs2), imm)
	}
	return b.String()
}

func regName(r Register) string {
	if r == nil {
		return "?"
	}
	return r.String()
}

func index(r Register) uint32 {
	if r == nil {
		return 0
	}
	return r.Index()
}

// checkSlot verifies that r belongs to the register file the slot expects.
func checkSlot(slot string, want Namespace, r Register) error {
	if want == NamespaceNone {
		return nil
	}
	if r == nil {
		return fmt.Errorf("%w: %s requires a %s register", ErrOperandMismatch, slot, want)
	}
	if r.Namespace() != want {
		return fmt.Errorf("%w: %s is %s, want a %s register", ErrOperandMismatch, slot, r, want)
	}
	return nil
}

func immField(name string, imm int32, width uint, overflows *[]FieldOverflow) uint32 {
	if !FitsField(int64(imm), width) {
		*overflows = append(*overflows, FieldOverflow{Field: name, Value: int64(imm), Width: width})
	}
	return MaskField(int64(imm), width)
}

// offsetField is immField for branch and jump offsets, whose bit 0 is not
// encoded.
func offsetField(name string, imm int32, width uint, overflows *[]FieldOverflow) uint32 {
	field := immField(name, imm, width, overflows)
	if imm&1 != 0 {
		*overflows = append(*overflows, FieldOverflow{Field: name, Value: int64(imm), Width: width, Align: 2})
	}
	return field
}

// Encode produces the 32-bit word for in. Immediates wider than their field
// are masked and reported in overflows; a register from the wrong file is
// an error.
func Encode(in Inst) (word uint32, overflows []FieldOverflow, err error) {
	if !in.Op.Valid() {
		return 0, nil, fmt.Errorf("%w: op %d", ErrInvalidOp, in.Op)
	}
	info := in.Op.Info()
	if err = checkSlot("rd", info.Rd, in.Rd); err != nil {
		return 0, nil, fmt.Errorf("%s: %w", info.Mnemonic, err)
	}
	if err = checkSlot("rs1", info.Rs1, in.Rs1); err != nil {
		return 0, nil, fmt.Errorf("%s: %w", info.Mnemonic, err)
	}
	if err = checkSlot("rs2", info.Rs2, in.Rs2); err != nil {
		return 0, nil, fmt.Errorf("%s: %w", info.Mnemonic, err)
	}
	rd, rs1, rs2 := index(in.Rd), index(in.Rs1), index(in.Rs2)

	switch info.Layout {
	case LayoutR:
		word = info.Funct7<<25 | rs2<<20 | rs1<<15 | info.Funct3<<12 | rd<<7 | info.Opcode
	case LayoutShift:
		shamt := immField(info.Mnemonic+".shamt", in.Imm, 5, &overflows)
		word = info.Funct7<<25 | shamt<<20 | rs1<<15 | info.Funct3<<12 | rd<<7 | info.Opcode
	case LayoutI:
		imm := immField(info.Mnemonic+".imm", in.Imm, 12, &overflows)
		word = imm<<20 | rs1<<15 | info.Funct3<<12 | rd<<7 | info.Opcode
	case LayoutS:
		imm := immField(info.Mnemonic+".imm", in.Imm, 12, &overflows)
		word = (imm>>5)<<25 | rs2<<20 | rs1<<15 | info.Funct3<<12 | (imm&0x1F)<<7 | info.Opcode
	case LayoutB:
		imm := offsetField(info.Mnemonic+".offset", in.Imm, 13, &overflows)
		word = (imm>>12&1)<<31 | (imm>>5&0x3F)<<25 | rs2<<20 | rs1<<15 | info.Funct3<<12 |
			(imm>>1&0xF)<<8 | (imm>>11&1)<<7 | info.Opcode
	case LayoutU:
		imm := immField(info.Mnemonic+".imm", in.Imm, 20, &overflows)
		word = imm<<12 | rd<<7 | info.Opcode
	case LayoutJ:
		imm := offsetField(info.Mnemonic+".offset", in.Imm, 21, &overflows)
		word = (imm>>20&1)<<31 | (imm>>1&0x3FF)<<21 | (imm>>11&1)<<20 | (imm>>12&0xFF)<<12 | rd<<7 | info.Opcode
	case LayoutZero:
		word = opcodeOpImm
	}
	return word, overflows, nil
}

// Decode is the inverse of Encode for the fields a word carries. ret and nop
// decode as addi x0, x0, 0 and immediates come back sign-extended.
func Decode(word uint32) (Inst, error) {
	opcode := word & 0x7F
	funct3 := word >> 12 & 0x7
	funct7 := word >> 25
	rd, rs1, rs2 := word>>7&0x1F, word>>15&0x1F, word>>20&0x1F
	for _, op := range Ops() {
		info := op.Info()
		if info.Opcode != opcode || info.Layout == LayoutZero {
			continue
		}
		switch info.Layout {
		case LayoutR, LayoutShift:
			if info.Funct3 != funct3 || info.Funct7 != funct7 {
				continue
			}
		case LayoutI, LayoutS, LayoutB:
			if info.Funct3 != funct3 {
				continue
			}
		}
		in := Inst{Op: op}
		in.Rd = makeRegister(info.Rd, rd)
		in.Rs1 = makeRegister(info.Rs1, rs1)
		in.Rs2 = makeRegister(info.Rs2, rs2)
		switch info.Layout {
		case LayoutShift:
			in.Imm = int32(rs2)
		case LayoutI:
			in.Imm = SignExtend(word>>20, 12)
		case LayoutS:
			in.Imm = SignExtend((word>>25)<<5|rd, 12)
		case LayoutB:
			in.Imm = SignExtend((word>>31)<<12|(word>>7&1)<<11|(word>>25&0x3F)<<5|(word>>8&0xF)<<1, 13)
		case LayoutU:
			in.Imm = int32(word >> 12)
		case LayoutJ:
			in.Imm = SignExtend((word>>31)<<20|(word>>12&0xFF)<<12|(word>>20&1)<<11|(word>>21&0x3FF)<<1, 21)
		}
		return in, nil
	}
	return Inst{}, fmt.Errorf("%w: %#08x", ErrUndecodable, word)
}

func makeRegister(ns Namespace, idx uint32) Register {
	switch ns {
	case NamespaceGeneral:
		return GPR(idx)
	case NamespaceCoefficient:
		return CoefReg(idx)
	case NamespaceScratch:
		return ScratchReg(idx)
	case NamespaceLoop:
		return LoopReg(idx)
	default:
		return nil
	}
}
