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
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitImmediate(t *testing.T) {
	tests := []struct {
		value int32
		upper int
		lower int
	}{
		{100, 0, 100},
		{0, 0, 0},
		{-1, 0, -1},
		{Imm12Min, 0, Imm12Min},
		{Imm12Max, 0, Imm12Max},
		{2048, 1, -2048},
		{3000, 1, -1096},
		{5000, 1, 904},
		{104352, 25, 1952},
		{-2049, 0xFFFFF, 2047},
		{math.MaxInt32, 0x80000, -1},
		{math.MinInt32, 0x80000, 0},
	}
	for _, tt := range tests {
		upper, lower := SplitImmediate(tt.value)
		assert.Equal(t, tt.upper, upper, "upper of %d", tt.value)
		assert.Equal(t, tt.lower, lower, "lower of %d", tt.value)
		assert.Equal(t, tt.value, JoinImmediate(upper, lower), "join of %d", tt.value)
	}
}

func FuzzSplitImmediate(f *testing.F) {
	for _, v := range []int32{
		0, 1, -1,
		Imm12Min, Imm12Max, Imm12Min - 1, Imm12Max + 1,
		0x7FF, 0x800, 0xFFF, 0x1000,
		math.MaxInt16, math.MinInt16,
		math.MaxInt32, math.MinInt32,
		math.MaxInt32 - 0x7FF, math.MinInt32 + 0x800,
	} {
		f.Add(v)
	}
	f.Fuzz(func(t *testing.T, v int32) {
		upper, lower := SplitImmediate(v)
		if upper < 0 || upper > 0xFFFFF {
			t.Fatalf("upper %d of %d is not a 20-bit field", upper, v)
		}
		if lower < Imm12Min || lower > Imm12Max {
			t.Fatalf("lower %d of %d is not a signed 12-bit field", lower, v)
		}
		if got := JoinImmediate(upper, lower); got != v {
			t.Fatalf("JoinImmediate(%d, %d) = %d, want %d", upper, lower, got, v)
		}
	})
}

func TestFieldChecks(t *testing.T) {
	tests := []struct {
		value    int64
		width    uint
		field    bool
		signed   bool
		unsigned bool
	}{
		{0, 12, true, true, true},
		{2047, 12, true, true, true},
		{2048, 12, true, false, true},
		{4095, 12, true, false, true},
		{4096, 12, false, false, false},
		{-2048, 12, true, true, false},
		{-2049, 12, false, false, false},
		{31, 5, true, false, true},
		{-1, 5, true, true, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.field, FitsField(tt.value, tt.width), "FitsField(%d, %d)", tt.value, tt.width)
		assert.Equal(t, tt.signed, FitsSigned(tt.value, tt.width), "FitsSigned(%d, %d)", tt.value, tt.width)
		assert.Equal(t, tt.unsigned, FitsUnsigned(tt.value, tt.width), "FitsUnsigned(%d, %d)", tt.value, tt.width)
	}
}

func TestMaskField(t *testing.T) {
	assert.Equal(t, uint32(0xFFF), MaskField(-1, 12))
	assert.Equal(t, uint32(0x000), MaskField(4096, 12))
	assert.Equal(t, uint32(0x1F), MaskField(63, 5))
	assert.Equal(t, uint32(0xFFFFFFFF), MaskField(-1, 32))
	assert.Equal(t, int32(-1096), SignExtend(0xBB8, 12))
	assert.Equal(t, int32(904), SignExtend(904, 12))
}

func TestFieldOverflowError(t *testing.T) {
	err := FieldOverflow{Field: "hwl.iterations", Value: 5000, Width: 12}
	assert.Equal(t, "field hwl.iterations: value 5000 does not fit in 12 bits (masked to 0x388)", err.Error())

	err = FieldOverflow{Field: "jal.offset", Value: 7, Width: 21, Align: 2}
	assert.Equal(t, "field jal.offset: value 7 is not a multiple of 2 (low bits dropped)", err.Error())
}
