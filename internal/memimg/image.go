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
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var ErrDuplicatePE = errors.New("duplicate PE image")

var peFilePattern = regexp.MustCompile(`pe(\d+)_`)

// Image is the memory layout of one PE program.
type Image struct {
	PE int
	// Name is the base name of the artifacts written for this image.
	Name string
	// Records are kept in emission order.
	Records []Record
}

// Build places words in emission order. Preload and execution words are
// indexed by two independent counters starting at zero.
func Build(pe int, name string, words []Word) (*Image, error) {
	img := &Image{PE: pe, Name: name, Records: make([]Record, 0, len(words))}
	var next [2]int
	for _, w := range words {
		section := w.Section & 1
		index := next[section]
		if index >= SectionWords {
			return nil, fmt.Errorf("%w: PE %d %s section holds more than %d words",
				ErrSectionFull, pe, section, SectionWords)
		}
		img.Records = append(img.Records, Record{Address: Address(pe, section, index), Word: w})
		next[section]++
	}
	return img, nil
}

// Count returns the number of words placed in a section.
func (img *Image) Count(section Section) int {
	n := 0
	for _, r := range img.Records {
		if r.Word.Section == section {
			n++
		}
	}
	return n
}

// Name returns the artifact base name for a known PE.
func Name(pe int) string {
	return fmt.Sprintf("pe%d_binary", pe)
}

// Attribute recovers the PE id from an assembly file path such as
// build/pe3_assembly.s. Paths without a peN_ component map to UnknownPE and
// are named after the file.
func Attribute(path string) (pe int, name string) {
	if m := peFilePattern.FindStringSubmatch(path); m != nil {
		if id, err := strconv.Atoi(m[1]); err == nil {
			return id, "pe" + m[1] + "_binary"
		}
	}
	base := filepath.Base(path)
	return UnknownPE, strings.TrimSuffix(base, filepath.Ext(base)) + "_binary"
}
