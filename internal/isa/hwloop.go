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

// Bit widths of the hardware-loop control word, most significant first.
const (
	LoopStartBits      = 9
	LoopSpanBits       = 6
	LoopIndexBits      = 5
	LoopIterationsBits = 12
)

// HardwareLoop describes one hardware loop as scheduled, before the per-PE
// delay is applied.
type HardwareLoop struct {
	LoopID     int
	PCStart    int
	PCStop     int
	Index      int
	Iterations int
}

// LoopWord holds the four unpacked fields of a hardware-loop control word.
type LoopWord struct {
	Start      uint32
	Span       uint32
	Index      uint32
	Iterations uint32
}

// Fields returns the unmasked field values after applying delay cycles.
func (h HardwareLoop) Fields(delay int) (start, span, index, iterations int64) {
	start = int64(h.PCStart) + int64(delay)
	span = int64(h.PCStop) - start
	return start, span, int64(h.Index), int64(h.Iterations)
}

// Overflows lists the fields that PackHardwareLoop truncates.
func (h HardwareLoop) Overflows(delay int) []FieldOverflow {
	start, span, index, iterations := h.Fields(delay)
	var overflows []FieldOverflow
	for _, f := range []struct {
		name  string
		value int64
		width uint
	}{
		{"hwl.start", start, LoopStartBits},
		{"hwl.span", span, LoopSpanBits},
		{"hwl.index", index, LoopIndexBits},
		{"hwl.iterations", iterations, LoopIterationsBits},
	} {
		if !FitsUnsigned(f.value, f.width) {
			overflows = append(overflows, FieldOverflow{Field: f.name, Value: f.value, Width: f.width})
		}
	}
	return overflows
}

// PackHardwareLoop builds the 32-bit control word. Each field is masked to
// its hardware width; use Overflows to observe truncation.
func PackHardwareLoop(h HardwareLoop, delay int) uint32 {
	start, span, index, iterations := h.Fields(delay)
	return MaskField(start, LoopStartBits)<<(LoopSpanBits+LoopIndexBits+LoopIterationsBits) |
		MaskField(span, LoopSpanBits)<<(LoopIndexBits+LoopIterationsBits) |
		MaskField(index, LoopIndexBits)<<LoopIterationsBits |
		MaskField(iterations, LoopIterationsBits)
}

// UnpackHardwareLoop splits a control word back into its fields.
func UnpackHardwareLoop(w uint32) LoopWord {
	return LoopWord{
		Start:      w >> (LoopSpanBits + LoopIndexBits + LoopIterationsBits),
		Span:       w >> (LoopIndexBits + LoopIterationsBits) & (1<<LoopSpanBits - 1),
		Index:      w >> LoopIterationsBits & (1<<LoopIndexBits - 1),
		Iterations: w & (1<<LoopIterationsBits - 1),
	}
}
