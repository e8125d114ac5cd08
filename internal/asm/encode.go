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
package asm

import (
	"github.com/gorse-io/spasm/internal/isa"
	"github.com/gorse-io/spasm/internal/memimg"
)

// Encode assembles the instructions of the program in order, each tagged
// with the section of its statement. Immediates masked to fit their field
// are reported as warnings.
func (p *Program) Encode() ([]memimg.Word, []*LineError, error) {
	var (
		words    []memimg.Word
		warnings []*LineError
	)
	for i, s := range p.Stmts {
		if s.Kind != KindInstruction {
			continue
		}
		line := s.Line
		if line == 0 {
			// generated statements render one per line
			line = i + 1
		}
		word, overflows, err := isa.Encode(s.Inst)
		if err != nil {
			return nil, warnings, &LineError{Line: line, Text: s.String(), Err: err}
		}
		for _, overflow := range overflows {
			warnings = append(warnings, &LineError{Line: line, Text: s.String(), Err: overflow})
		}
		words = append(words, memimg.Word{Value: word, Section: s.Section, Text: s.Inst.String()})
	}
	return words, warnings, nil
}
