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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPackHardwareLoop(t *testing.T) {
	loop := HardwareLoop{LoopID: 1, PCStart: 10, PCStop: 50, Index: 2, Iterations: 8}
	word := PackHardwareLoop(loop, 0)
	assert.Equal(t, uint32(10<<23|40<<17|2<<12|8), word)
	assert.Equal(t, LoopWord{Start: 10, Span: 40, Index: 2, Iterations: 8}, UnpackHardwareLoop(word))
	assert.Empty(t, loop.Overflows(0))
}

func TestPackHardwareLoopDelay(t *testing.T) {
	// the delay shifts the start and shortens the span by the same amount
	loop := HardwareLoop{LoopID: 2, PCStart: 10, PCStop: 50, Index: 3, Iterations: 100}
	fields := UnpackHardwareLoop(PackHardwareLoop(loop, 4))
	assert.Equal(t, LoopWord{Start: 14, Span: 36, Index: 3, Iterations: 100}, fields)
}

func TestPackHardwareLoopMasking(t *testing.T) {
	loop := HardwareLoop{PCStart: 600, PCStop: 700, Index: 40, Iterations: 5000}
	fields := UnpackHardwareLoop(PackHardwareLoop(loop, 0))
	assert.Equal(t, LoopWord{Start: 600 & 0x1FF, Span: 100 & 0x3F, Index: 40 & 0x1F, Iterations: 5000 & 0xFFF}, fields)

	overflows := loop.Overflows(0)
	var names []string
	for _, o := range overflows {
		names = append(names, o.Field)
	}
	assert.Equal(t, []string{"hwl.start", "hwl.span", "hwl.index", "hwl.iterations"}, names)
}

func TestPackHardwareLoopNegativeSpan(t *testing.T) {
	loop := HardwareLoop{PCStart: 20, PCStop: 10, Index: 1, Iterations: 1}
	overflows := loop.Overflows(0)
	if assert.Len(t, overflows, 1) {
		assert.Equal(t, "hwl.span", overflows[0].Field)
		assert.Equal(t, int64(-10), overflows[0].Value)
	}
	assert.Equal(t, uint32(-10&0x3F), UnpackHardwareLoop(PackHardwareLoop(loop, 0)).Span)
}

func FuzzPackHardwareLoop(f *testing.F) {
	f.Add(10, 50, 2, 8, 0)
	f.Add(0, 0, 0, 0, 0)
	f.Add(511, 574, 31, 4095, 0)
	f.Add(100, 120, 7, 16, 12)
	f.Fuzz(func(t *testing.T, start, stop, index, iterations, delay int) {
		loop := HardwareLoop{PCStart: start, PCStop: stop, Index: index, Iterations: iterations}
		got := UnpackHardwareLoop(PackHardwareLoop(loop, delay))
		s, span, idx, it := loop.Fields(delay)
		want := LoopWord{
			Start:      MaskField(s, LoopStartBits),
			Span:       MaskField(span, LoopSpanBits),
			Index:      MaskField(idx, LoopIndexBits),
			Iterations: MaskField(it, LoopIterationsBits),
		}
		if got != want {
			t.Fatalf("unpack(pack(%+v, %d)) = %+v, want %+v", loop, delay, got, want)
		}
		if len(loop.Overflows(delay)) == 0 {
			if int64(got.Start) != s || int64(got.Span) != span || int64(got.Index) != idx || int64(got.Iterations) != it {
				t.Fatalf("in-range fields of %+v were altered: %+v", loop, got)
			}
		}
	})
}
