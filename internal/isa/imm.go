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

import "fmt"

// Signed range of a 12-bit immediate field.
const (
	Imm12Min = -2048
	Imm12Max = 2047
)

// FieldOverflow reports that a value did not fit the hardware field it was
// packed into and was truncated to the field width.
type FieldOverflow struct {
	Field string
	Value int64
	Width uint
	// Align is non-zero when the field only stores multiples of Align and
	// Value lost its low bits.
	Align uint
}

func (o FieldOverflow) Error() string {
	if o.Align > 1 {
		return fmt.Sprintf("field %s: value %d is not a multiple of %d (low bits dropped)",
			o.Field, o.Value, o.Align)
	}
	return fmt.Sprintf("field %s: value %d does not fit in %d bits (masked to %#x)",
		o.Field, o.Value, o.Width, MaskField(o.Value, o.Width))
}

// MaskField truncates v to its low width bits. This is the only place field
// truncation happens; callers pair it with FitsField to detect lost bits.
func MaskField(v int64, width uint) uint32 {
	return uint32(v) & (1<<width - 1)
}

// FitsField reports whether v is representable in width bits under either a
// two's complement or an unsigned reading of the field.
func FitsField(v int64, width uint) bool {
	return v >= -(1<<(width-1)) && v < 1<<width
}

// FitsSigned reports whether v is representable as a signed width-bit value.
func FitsSigned(v int64, width uint) bool {
	return v >= -(1<<(width-1)) && v < 1<<(width-1)
}

// FitsUnsigned reports whether v is representable as an unsigned width-bit value.
func FitsUnsigned(v int64, width uint) bool {
	return v >= 0 && v < 1<<width
}

// SignExtend interprets the low width bits of v as a two's complement value.
func SignExtend(v uint32, width uint) int32 {
	shift := 32 - width
	return int32(v<<shift) >> shift
}

// SplitImmediate splits v into the operands of a lui/addi pair. lower is the
// signed 12-bit addi operand and upper the 20-bit lui operand, adjusted by
// one when lower is negative so that (upper << 12) + lower == v.
func SplitImmediate(v int32) (upper int, lower int) {
	if v >= Imm12Min && v <= Imm12Max {
		return 0, int(v)
	}
	low := uint32(v) & 0xFFF
	upper = int((v >> 12) & 0xFFFFF)
	if low&0x800 != 0 {
		upper++
	}
	return upper, int(SignExtend(low, 12))
}

// JoinImmediate is the value a lui/addi pair materializes, with 32-bit
// wrap-around as on the hardware.
func JoinImmediate(upper, lower int) int32 {
	return int32(uint32(upper)<<12 + uint32(int32(lower)))
}
