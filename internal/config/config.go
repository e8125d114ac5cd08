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
package config

import (
	"github.com/gorse-io/spasm/internal/isa"
)

// DefaultDelaySlots is the number of zero delays assumed when the
// configuration carries no delay_start list.
const DefaultDelaySlots = 64

// Format is the instruction class an Instruction was scheduled as.
type Format uint8

const (
	FormatUnknown Format = iota
	FormatR
	FormatI
	FormatMem
	FormatPSRFMem
	FormatB
	FormatU
	FormatJ
	FormatHWL
	FormatSpecial
)

var formatNames = map[string]Format{
	"r-type":        FormatR,
	"i-type":        FormatI,
	"mem-type":      FormatMem,
	"psrf-mem-type": FormatPSRFMem,
	"b-type":        FormatB,
	"u-type":        FormatU,
	"j-type":        FormatJ,
	"hwl-type":      FormatHWL,
	"special":       FormatSpecial,
}

// ParseFormat maps a format name to a Format, FormatUnknown if unrecognized.
func ParseFormat(name string) Format {
	return formatNames[name]
}

func (f Format) String() string {
	for name, format := range formatNames {
		if format == f {
			return name
		}
	}
	return "unknown"
}

// Instruction is one scheduled instruction. Which fields are meaningful
// depends on Format.
type Instruction struct {
	// Operation is the lowercase mnemonic as scheduled.
	Operation string
	Format    Format
	// RawFormat keeps the format name for diagnostics when Format is unknown.
	RawFormat string

	Rd  string
	Ra1 string
	Ra2 string

	Imm         int
	Offset      int
	BaseAddress string

	// psrf-mem-type
	Var          *int
	Coefficients map[string]int
	ScratchVars  map[string]int

	// hwl-type
	Loop *isa.HardwareLoop

	// j-type
	Target  string
	Address *int
}

// Program is the primary instruction list of one PE.
type Program struct {
	PE           int
	Instructions []Instruction
}

// Function is a named subroutine with per-PE bodies.
type Function struct {
	Name    string
	Address int
	// Bodies is keyed by absolute PE id.
	Bodies map[int][]Instruction
}

// Config is the validated input of the generator. It is built once by Load
// or Parse and is treated as read-only afterwards.
type Config struct {
	TotalPEs           int
	ClusterCount       int
	PEsPerCluster      int
	MinimumPEsRequired int
	DataDup            int

	// BaseAddresses maps a base-register symbol to its address; symbols
	// configured as null are absent.
	BaseAddresses map[string]int
	// Strides maps "<symbol>_offset" to the per-cluster stride.
	Strides    map[string]int
	DelayStart []int

	// Programs is keyed by pe_id.
	Programs map[int]Program
	// Functions is sorted by name.
	Functions []Function
}

// Cluster returns the cluster a PE belongs to.
func (c *Config) Cluster(pe int) int {
	return pe / c.PEsPerCluster
}

// Delay returns the number of no-op cycles inserted before the execution
// block of pe.
func (c *Config) Delay(pe int) int {
	if pe < 0 || pe >= len(c.DelayStart) {
		return 0
	}
	return c.DelayStart[pe]
}

// Stride returns the per-cluster stride configured for a base symbol.
func (c *Config) Stride(symbol string) (int, bool) {
	stride, ok := c.Strides[symbol+"_offset"]
	return stride, ok
}

// FunctionAddress returns the declared entry address of a function.
func (c *Config) FunctionAddress(name string) (int, bool) {
	for _, fn := range c.Functions {
		if fn.Name == name {
			return fn.Address, true
		}
	}
	return 0, false
}
