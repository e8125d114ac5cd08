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

// ErrUnknownRegister is returned when an operand does not name a register of
// the namespace an instruction expects.
var ErrUnknownRegister = errors.New("unknown register")

// Namespace identifies one of the four disjoint register files.
type Namespace uint8

const (
	NamespaceNone Namespace = iota
	NamespaceGeneral
	NamespaceCoefficient
	NamespaceScratch
	NamespaceLoop
)

func (n Namespace) String() string {
	switch n {
	case NamespaceGeneral:
		return "general"
	case NamespaceCoefficient:
		return "coefficient"
	case NamespaceScratch:
		return "scratch"
	case NamespaceLoop:
		return "hardware-loop"
	default:
		return "none"
	}
}

// Register is an index into one register file. Each namespace has its own
// concrete type so that a scratch register can never be passed where a
// general register is expected.
type Register interface {
	Namespace() Namespace
	Index() uint32
	String() string
}

// GPR is a general purpose register x0-x31.
type GPR uint8

// CoefReg is a coefficient register c0-c31 (CORF).
type CoefReg uint8

// ScratchReg is a scratch-variable register v0-v31 (PSRF).
type ScratchReg uint8

// LoopReg is a hardware-loop register L1-L7 (HWLRF).
type LoopReg uint8

const (
	X0  GPR = 0
	X26 GPR = 26

	MaxLoopReg LoopReg = 7
)

func (r GPR) Namespace() Namespace        { return NamespaceGeneral }
func (r GPR) Index() uint32               { return uint32(r) }
func (r GPR) String() string              { return "x" + strconv.Itoa(int(r)) }
func (r CoefReg) Namespace() Namespace    { return NamespaceCoefficient }
func (r CoefReg) Index() uint32           { return uint32(r) }
func (r CoefReg) String() string          { return "c" + strconv.Itoa(int(r)) }
func (r ScratchReg) Namespace() Namespace { return NamespaceScratch }
func (r ScratchReg) Index() uint32        { return uint32(r) }
func (r ScratchReg) String() string       { return "v" + strconv.Itoa(int(r)) }
func (r LoopReg) Namespace() Namespace    { return NamespaceLoop }
func (r LoopReg) Index() uint32           { return uint32(r) }
func (r LoopReg) String() string          { return "L" + strconv.Itoa(int(r)) }

// abiNames maps the standard calling-convention aliases onto x0-x31.
var abiNames = map[string]GPR{}

func init() {
	for i, name := range []string{
		"zero", "ra", "sp", "gp", "tp",
		"t0", "t1", "t2",
		"s0", "s1",
		"a0", "a1", "a2", "a3", "a4", "a5", "a6", "a7",
		"s2", "s3", "s4", "s5", "s6", "s7", "s8", "s9", "s10", "s11",
		"t3", "t4", "t5", "t6",
	} {
		abiNames[name] = GPR(i)
	}
	abiNames["fp"] = 8
}

// parseIndexed parses names of the form <prefix><n> with lo <= n <= hi.
func parseIndexed(name, prefix string, lo, hi int) (int, bool) {
	digits, ok := strings.CutPrefix(name, prefix)
	if !ok || digits == "" {
		return 0, false
	}
	// reject "x01" style spellings so that every register has one name
	if len(digits) > 1 && digits[0] == '0' {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n < lo || n > hi {
		return 0, false
	}
	return n, true
}

// ParseGPR resolves x0-x31 or an ABI alias.
func ParseGPR(name string) (GPR, error) {
	name = strings.TrimSpace(name)
	if n, ok := parseIndexed(name, "x", 0, 31); ok {
		return GPR(n), nil
	}
	if r, ok := abiNames[name]; ok {
		return r, nil
	}
	return 0, fmt.Errorf("%w: %q is not a general register", ErrUnknownRegister, name)
}

// ParseCoefReg resolves c0-c31.
func ParseCoefReg(name string) (CoefReg, error) {
	if n, ok := parseIndexed(strings.TrimSpace(name), "c", 0, 31); ok {
		return CoefReg(n), nil
	}
	return 0, fmt.Errorf("%w: %q is not a coefficient register", ErrUnknownRegister, name)
}

// ParseScratchReg resolves v0-v31.
func ParseScratchReg(name string) (ScratchReg, error) {
	if n, ok := parseIndexed(strings.TrimSpace(name), "v", 0, 31); ok {
		return ScratchReg(n), nil
	}
	return 0, fmt.Errorf("%w: %q is not a scratch register", ErrUnknownRegister, name)
}

// ParseLoopReg resolves L1-L7.
func ParseLoopReg(name string) (LoopReg, error) {
	if n, ok := parseIndexed(strings.TrimSpace(name), "L", 1, int(MaxLoopReg)); ok {
		return LoopReg(n), nil
	}
	return 0, fmt.Errorf("%w: %q is not a hardware-loop register", ErrUnknownRegister, name)
}

// ParseRegister resolves name against the table of the given namespace only.
func ParseRegister(ns Namespace, name string) (Register, error) {
	var (
		reg Register
		err error
	)
	switch ns {
	case NamespaceGeneral:
		reg, err = ParseGPR(name)
	case NamespaceCoefficient:
		reg, err = ParseCoefReg(name)
	case NamespaceScratch:
		reg, err = ParseScratchReg(name)
	case NamespaceLoop:
		reg, err = ParseLoopReg(name)
	default:
		return nil, fmt.Errorf("%w: operand %q is not expected", ErrUnknownRegister, name)
	}
	if err != nil {
		return nil, err
	}
	return reg, nil
}
