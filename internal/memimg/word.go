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
package memimg

import (
	"errors"
	"fmt"
)

// UnknownPE is the PE id of words whose source could not be attributed to a
// processing element.
const UnknownPE = 0xFFFF

// SectionWords is the number of words one section of a PE window can hold.
const SectionWords = 1 << 9

var ErrSectionFull = errors.New("section is full")

// Section discriminates setup words from the main instruction stream. Its
// value is the section bit of an address.
type Section uint8

const (
	SectionExecution Section = 0
	SectionPreload   Section = 1
)

func (s Section) String() string {
	if s == SectionPreload {
		return "preload"
	}
	return "execution"
}

// Word is one encoded instruction and the section it belongs to.
type Word struct {
	Value   uint32
	Section Section
	// Text is the source instruction, kept for listings.
	Text string
}

// Hex renders the word as eight lowercase hex digits.
func (w Word) Hex() string {
	return fmt.Sprintf("%08x", w.Value)
}

// Address computes the memory address of word index in the given section of
// pe. index must be below SectionWords. Each PE owns a 1024-word window and
// bit 9 selects its preload half:
//
//	address = (pe & 0xFF) << 10 | section << 9 | index
func Address(pe int, section Section, index int) uint32 {
	return uint32(pe&0xFF)<<10 | uint32(section&1)<<9 | uint32(index)&(SectionWords-1)
}

// Record is a word placed at its memory address.
type Record struct {
	Address uint32
	Word    Word
}

// String renders the record as an @ADDRESS WORD line.
func (r Record) String() string {
	return fmt.Sprintf("@%08x %s", r.Address, r.Word.Hex())
}
