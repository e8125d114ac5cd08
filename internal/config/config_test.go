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
	"testing"

	"github.com/gorse-io/spasm/internal/isa"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	cfg, err := Load("../../testdata/kernel.yaml")
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.TotalPEs)
	assert.Equal(t, 2, cfg.ClusterCount)
	assert.Equal(t, 2, cfg.PEsPerCluster)
	assert.Equal(t, 1, cfg.MinimumPEsRequired)
	assert.Equal(t, 1, cfg.DataDup)
	assert.Equal(t, map[string]int{"x10": 4096, "x11": 8192}, cfg.BaseAddresses)
	assert.Equal(t, map[string]int{"x10_offset": 256}, cfg.Strides)
	assert.Equal(t, []int{0, 2, 1, 0}, cfg.DelayStart)

	require.Len(t, cfg.Programs, 2)
	pe0 := cfg.Programs[0]
	require.Len(t, pe0.Instructions, 6)

	psrf := pe0.Instructions[0]
	assert.Equal(t, FormatPSRFMem, psrf.Format)
	require.NotNil(t, psrf.Var)
	assert.Equal(t, 1, *psrf.Var)
	assert.Equal(t, map[string]int{"v0": 4, "v1": 0, "v2": 8}, psrf.ScratchVars)
	assert.Equal(t, map[string]int{"c0": 3, "c1": 5000}, psrf.Coefficients)

	hwl := pe0.Instructions[1]
	assert.Equal(t, FormatHWL, hwl.Format)
	assert.Equal(t, &isa.HardwareLoop{LoopID: 1, PCStart: 10, PCStop: 50, Index: 2, Iterations: 8}, hwl.Loop)

	assert.Equal(t, "add", pe0.Instructions[2].Operation)
	assert.Equal(t, 3000, pe0.Instructions[3].Imm)
	assert.Equal(t, "scale", pe0.Instructions[5].Target)
	assert.Nil(t, pe0.Instructions[5].Address)

	require.Len(t, cfg.Functions, 1)
	assert.Equal(t, "scale", cfg.Functions[0].Name)
	assert.Equal(t, 64, cfg.Functions[0].Address)
	assert.Len(t, cfg.Functions[0].Bodies[0], 1)
	address, ok := cfg.FunctionAddress("scale")
	assert.True(t, ok)
	assert.Equal(t, 64, address)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("testdata/does-not-exist.yaml")
	assert.Error(t, err)
}

const minimal = `
hardware_config:
  total_pes: 16
  clusters: {count: 1, pes_per_cluster: 16}
  data_dup: 1
scheduling:
  minimum_pes_required: 0
`

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(minimal))
	require.NoError(t, err)
	assert.Len(t, cfg.DelayStart, DefaultDelaySlots)
	assert.Equal(t, 0, cfg.Delay(63))
	assert.Equal(t, 0, cfg.Delay(64))
	assert.Empty(t, cfg.BaseAddresses)
	assert.Empty(t, cfg.Programs)
	assert.Empty(t, cfg.Functions)
	_, ok := cfg.Stride("x10")
	assert.False(t, ok)
	assert.Equal(t, 0, cfg.Cluster(15))
}

func TestParse_MissingField(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"hardware_config", "scheduling: {minimum_pes_required: 0}"},
		{"total_pes", `
hardware_config: {clusters: {count: 1, pes_per_cluster: 1}, data_dup: 1}
scheduling: {minimum_pes_required: 0}`},
		{"pes_per_cluster", `
hardware_config: {total_pes: 1, clusters: {count: 1}, data_dup: 1}
scheduling: {minimum_pes_required: 0}`},
		{"data_dup", `
hardware_config: {total_pes: 1, clusters: {count: 1, pes_per_cluster: 1}}
scheduling: {minimum_pes_required: 0}`},
		{"minimum_pes_required", `
hardware_config: {total_pes: 1, clusters: {count: 1, pes_per_cluster: 1}, data_dup: 1}
scheduling: {}`},
		{"operation", minimal + `
  pe_assignments:
    - pe_id: 0
      instructions:
        - format: r-type`},
		{"iterations", minimal + `
  pe_assignments:
    - pe_id: 0
      instructions:
        - {operation: hwl, format: hwl-type, loop_id: 1, pc_start: 0, pc_stop: 4, hwl_index: 0}`},
		{"address", minimal + `
functions:
  f:
    pe_assignments: []`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.ErrorIs(t, err, ErrMissingField)
			assert.ErrorContains(t, err, tt.name)
		})
	}
}

func TestParse_InvalidValue(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"data_dup", `
hardware_config: {total_pes: 1, clusters: {count: 1, pes_per_cluster: 1}, data_dup: 3}
scheduling: {minimum_pes_required: 0}`},
		{"pes_per_cluster", `
hardware_config: {total_pes: 1, clusters: {count: 1, pes_per_cluster: 0}, data_dup: 1}
scheduling: {minimum_pes_required: 0}`},
		{"pe_id 16", minimal + `
  pe_assignments:
    - {pe_id: 16, instructions: []}`},
		{"duplicate pe_id", minimal + `
  pe_assignments:
    - {pe_id: 3, instructions: []}
    - {pe_id: 3, instructions: []}`},
		{"psrf_var", minimal + `
  pe_assignments:
    - pe_id: 0
      instructions:
        - {operation: psrf.lw, format: psrf-mem-type, psrf_var: {v6: 1}}`},
		{"coefficients", minimal + `
  pe_assignments:
    - pe_id: 0
      instructions:
        - {operation: psrf.lw, format: psrf-mem-type, coefficients: {x0: 1}}`},
		{"loop_id", minimal + `
  pe_assignments:
    - pe_id: 0
      instructions:
        - {operation: hwl, format: hwl-type, loop_id: 8, pc_start: 0, pc_stop: 4, hwl_index: 0, iterations: 1}`},
		{"delay_start", "delay_start: [1, -1]\n" + minimal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.ErrorIs(t, err, ErrInvalidValue)
			assert.ErrorContains(t, err, tt.name)
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse([]byte("hardware_config: [1, 2"))
	assert.Error(t, err)
}

func TestParseFormat(t *testing.T) {
	for _, name := range []string{"r-type", "i-type", "mem-type", "psrf-mem-type", "b-type", "u-type", "j-type", "hwl-type", "special"} {
		format := ParseFormat(name)
		assert.NotEqual(t, FormatUnknown, format, name)
		assert.Equal(t, name, format.String())
	}
	assert.Equal(t, FormatUnknown, ParseFormat("x-type"))
	assert.Equal(t, "unknown", FormatUnknown.String())
}

func TestGroupIndex(t *testing.T) {
	index, err := GroupIndex("v5", "v")
	assert.NoError(t, err)
	assert.Equal(t, 5, index)
	for _, key := range []string{"c1", "v", "v6", "v-1", "vx"} {
		_, err := GroupIndex(key, "v")
		assert.Error(t, err, key)
	}
}
