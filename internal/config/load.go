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
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/gorse-io/spasm/internal/isa"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

var (
	ErrMissingField = errors.New("missing required field")
	ErrInvalidValue = errors.New("invalid value")
)

// GroupWidth is the size of the register window selected by one var value.
const GroupWidth = 6

type document struct {
	MemConfig  map[string]*int `yaml:"mem_config"`
	DelayStart []int           `yaml:"delay_start"`
	Hardware   *struct {
		TotalPEs *int `yaml:"total_pes"`
		Clusters *struct {
			Count         *int `yaml:"count"`
			PEsPerCluster *int `yaml:"pes_per_cluster"`
		} `yaml:"clusters"`
		DataDup       *int            `yaml:"data_dup"`
		PSRFMemOffset map[string]*int `yaml:"psrf_mem_offset"`
	} `yaml:"hardware_config"`
	Scheduling *struct {
		MinimumPEsRequired *int            `yaml:"minimum_pes_required"`
		PEAssignments      []assignmentDoc `yaml:"pe_assignments"`
	} `yaml:"scheduling"`
	Functions map[string]struct {
		Address       *int            `yaml:"address"`
		PEAssignments []assignmentDoc `yaml:"pe_assignments"`
	} `yaml:"functions"`
}

type assignmentDoc struct {
	PEID         *int             `yaml:"pe_id"`
	Instructions []instructionDoc `yaml:"instructions"`
}

type instructionDoc struct {
	Operation    *string        `yaml:"operation"`
	Format       *string        `yaml:"format"`
	Rd           *string        `yaml:"rd"`
	Ra1          *string        `yaml:"ra1"`
	Ra2          *string        `yaml:"ra2"`
	Imm          *int           `yaml:"imm"`
	Offset       *int           `yaml:"offset"`
	BaseAddress  *string        `yaml:"base_address"`
	Var          *int           `yaml:"var"`
	PSRFVar      map[string]int `yaml:"psrf_var"`
	Coefficients map[string]int `yaml:"coefficients"`
	LoopID       *int           `yaml:"loop_id"`
	PCStart      *int           `yaml:"pc_start"`
	PCStop       *int           `yaml:"pc_stop"`
	HWLIndex     *int           `yaml:"hwl_index"`
	Iterations   *int           `yaml:"iterations"`
	Target       *string        `yaml:"target"`
	Address      *int           `yaml:"address"`
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes and validates a YAML configuration document.
func Parse(data []byte) (*Config, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return doc.validate()
}

func required(value *int, field string) (int, error) {
	if value == nil {
		return 0, fmt.Errorf("%w: %s", ErrMissingField, field)
	}
	return *value, nil
}

func (doc *document) validate() (*Config, error) {
	cfg := &Config{
		BaseAddresses: dropNull(doc.MemConfig),
		DelayStart:    doc.DelayStart,
		Programs:      make(map[int]Program),
	}
	if cfg.DelayStart == nil {
		cfg.DelayStart = make([]int, DefaultDelaySlots)
	}
	for pe, delay := range cfg.DelayStart {
		if delay < 0 {
			return nil, fmt.Errorf("%w: delay_start[%d] is negative", ErrInvalidValue, pe)
		}
	}

	if doc.Hardware == nil {
		return nil, fmt.Errorf("%w: hardware_config", ErrMissingField)
	}
	var err error
	if cfg.TotalPEs, err = required(doc.Hardware.TotalPEs, "hardware_config.total_pes"); err != nil {
		return nil, err
	}
	if doc.Hardware.Clusters == nil {
		return nil, fmt.Errorf("%w: hardware_config.clusters", ErrMissingField)
	}
	if cfg.ClusterCount, err = required(doc.Hardware.Clusters.Count, "hardware_config.clusters.count"); err != nil {
		return nil, err
	}
	if cfg.PEsPerCluster, err = required(doc.Hardware.Clusters.PEsPerCluster, "hardware_config.clusters.pes_per_cluster"); err != nil {
		return nil, err
	}
	if cfg.DataDup, err = required(doc.Hardware.DataDup, "hardware_config.data_dup"); err != nil {
		return nil, err
	}
	cfg.Strides = dropNull(doc.Hardware.PSRFMemOffset)

	if doc.Scheduling == nil {
		return nil, fmt.Errorf("%w: scheduling", ErrMissingField)
	}
	if cfg.MinimumPEsRequired, err = required(doc.Scheduling.MinimumPEsRequired, "scheduling.minimum_pes_required"); err != nil {
		return nil, err
	}

	switch {
	case cfg.TotalPEs <= 0:
		return nil, fmt.Errorf("%w: total_pes must be positive, got %d", ErrInvalidValue, cfg.TotalPEs)
	case cfg.PEsPerCluster <= 0:
		return nil, fmt.Errorf("%w: pes_per_cluster must be positive, got %d", ErrInvalidValue, cfg.PEsPerCluster)
	case !lo.Contains([]int{1, 2, 4}, cfg.DataDup):
		return nil, fmt.Errorf("%w: data_dup must be 1, 2 or 4, got %d", ErrInvalidValue, cfg.DataDup)
	}

	for i, assignment := range doc.Scheduling.PEAssignments {
		where := fmt.Sprintf("scheduling.pe_assignments[%d]", i)
		pe, err := cfg.checkPE(assignment.PEID, where)
		if err != nil {
			return nil, err
		}
		if _, exists := cfg.Programs[pe]; exists {
			return nil, fmt.Errorf("%w: %s: duplicate pe_id %d", ErrInvalidValue, where, pe)
		}
		instructions, err := convertInstructions(assignment.Instructions, where)
		if err != nil {
			return nil, err
		}
		cfg.Programs[pe] = Program{PE: pe, Instructions: instructions}
	}

	names := lo.Keys(doc.Functions)
	sort.Strings(names)
	for _, name := range names {
		spec := doc.Functions[name]
		where := "functions." + name
		address, err := required(spec.Address, where+".address")
		if err != nil {
			return nil, err
		}
		fn := Function{Name: name, Address: address, Bodies: make(map[int][]Instruction)}
		for i, assignment := range spec.PEAssignments {
			at := fmt.Sprintf("%s.pe_assignments[%d]", where, i)
			pe, err := cfg.checkPE(assignment.PEID, at)
			if err != nil {
				return nil, err
			}
			if fn.Bodies[pe], err = convertInstructions(assignment.Instructions, at); err != nil {
				return nil, err
			}
		}
		cfg.Functions = append(cfg.Functions, fn)
	}
	return cfg, nil
}

func (c *Config) checkPE(id *int, where string) (int, error) {
	pe, err := required(id, where+".pe_id")
	if err != nil {
		return 0, err
	}
	if pe < 0 || pe >= c.TotalPEs {
		return 0, fmt.Errorf("%w: %s: pe_id %d outside [0, %d)", ErrInvalidValue, where, pe, c.TotalPEs)
	}
	return pe, nil
}

func dropNull(m map[string]*int) map[string]int {
	out := make(map[string]int, len(m))
	for key, value := range m {
		if value != nil {
			out[key] = *value
		}
	}
	return out
}

func convertInstructions(docs []instructionDoc, where string) ([]Instruction, error) {
	instructions := make([]Instruction, 0, len(docs))
	for i, doc := range docs {
		inst, err := doc.convert()
		if err != nil {
			return nil, fmt.Errorf("%s.instructions[%d]: %w", where, i, err)
		}
		instructions = append(instructions, inst)
	}
	return instructions, nil
}

func (doc instructionDoc) convert() (Instruction, error) {
	if doc.Operation == nil {
		return Instruction{}, fmt.Errorf("%w: operation", ErrMissingField)
	}
	if doc.Format == nil {
		return Instruction{}, fmt.Errorf("%w: format", ErrMissingField)
	}
	inst := Instruction{
		Operation:   strings.ToLower(*doc.Operation),
		Format:      ParseFormat(*doc.Format),
		RawFormat:   *doc.Format,
		Rd:          lo.FromPtr(doc.Rd),
		Ra1:         lo.FromPtr(doc.Ra1),
		Ra2:         lo.FromPtr(doc.Ra2),
		Imm:         lo.FromPtr(doc.Imm),
		Offset:      lo.FromPtr(doc.Offset),
		BaseAddress: lo.FromPtr(doc.BaseAddress),
		Target:      lo.FromPtr(doc.Target),
		Address:     doc.Address,
	}

	switch inst.Format {
	case FormatPSRFMem:
		if doc.Var != nil && *doc.Var < 0 {
			return Instruction{}, fmt.Errorf("%w: var %d is negative", ErrInvalidValue, *doc.Var)
		}
		inst.Var = doc.Var
		var err error
		if inst.ScratchVars, err = checkGroupKeys(doc.PSRFVar, "v", "psrf_var"); err != nil {
			return Instruction{}, err
		}
		if inst.Coefficients, err = checkGroupKeys(doc.Coefficients, "c", "coefficients"); err != nil {
			return Instruction{}, err
		}
	case FormatHWL:
		loop := &isa.HardwareLoop{}
		for _, field := range []struct {
			name  string
			value *int
			dst   *int
		}{
			{"loop_id", doc.LoopID, &loop.LoopID},
			{"pc_start", doc.PCStart, &loop.PCStart},
			{"pc_stop", doc.PCStop, &loop.PCStop},
			{"hwl_index", doc.HWLIndex, &loop.Index},
			{"iterations", doc.Iterations, &loop.Iterations},
		} {
			value, err := required(field.value, field.name)
			if err != nil {
				return Instruction{}, err
			}
			*field.dst = value
		}
		if loop.LoopID < 1 || loop.LoopID > int(isa.MaxLoopReg) {
			return Instruction{}, fmt.Errorf("%w: loop_id %d outside [1, %d]", ErrInvalidValue, loop.LoopID, isa.MaxLoopReg)
		}
		inst.Loop = loop
	}
	return inst, nil
}

// checkGroupKeys verifies that every key of m is prefix followed by an index
// inside the six-register window.
func checkGroupKeys(m map[string]int, prefix, field string) (map[string]int, error) {
	for key := range m {
		if _, err := GroupIndex(key, prefix); err != nil {
			return nil, fmt.Errorf("%w: %s key %q: %v", ErrInvalidValue, field, key, err)
		}
	}
	return m, nil
}

// GroupIndex returns the window index encoded in a key such as "v3" or "c0".
func GroupIndex(key, prefix string) (int, error) {
	digits, ok := strings.CutPrefix(key, prefix)
	if !ok {
		return 0, fmt.Errorf("want prefix %q", prefix)
	}
	index, err := strconv.Atoi(digits)
	if err != nil {
		return 0, err
	}
	if index < 0 || index >= GroupWidth {
		return 0, fmt.Errorf("index %d outside [0, %d)", index, GroupWidth)
	}
	return index, nil
}
