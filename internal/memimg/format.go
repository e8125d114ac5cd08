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
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/klauspost/asmfmt"
	"github.com/samber/lo"
)

// Format writes one per-PE artifact.
type Format interface {
	// Name returns the name the format is selected by (e.g., "hex", "mem")
	Name() string

	// Ext returns the file extension of the artifact, including the dot
	Ext() string

	// Write serializes img
	Write(w io.Writer, img *Image) error
}

// formats holds the registered artifact formats
var formats = map[string]Format{}

// RegisterFormat registers an artifact format
func RegisterFormat(f Format) {
	formats[f.Name()] = f
}

// GetFormat returns the format registered under name
func GetFormat(name string) (Format, error) {
	if f, ok := formats[name]; ok {
		return f, nil
	}
	return nil, fmt.Errorf("unsupported format: %s (available: %s)", name, strings.Join(ListFormats(), ", "))
}

// ListFormats returns the registered format names in sorted order
func ListFormats() []string {
	names := lo.Keys(formats)
	sort.Strings(names)
	return names
}

// HexFormat writes one word per line in emission order.
type HexFormat struct{}

func (HexFormat) Name() string { return "hex" }
func (HexFormat) Ext() string  { return ".bin" }

func (HexFormat) Write(w io.Writer, img *Image) error {
	bw := bufio.NewWriter(w)
	for _, r := range img.Records {
		if _, err := fmt.Fprintln(bw, r.Word.Hex()); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// MemFormat writes one @ADDRESS WORD record per line in emission order.
type MemFormat struct{}

func (MemFormat) Name() string { return "mem" }
func (MemFormat) Ext() string  { return ".mem" }

func (MemFormat) Write(w io.Writer, img *Image) error {
	bw := bufio.NewWriter(w)
	for _, r := range img.Records {
		if _, err := fmt.Fprintln(bw, r.String()); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ListingFormat writes an annotated listing in Go assembler syntax, one WORD
// directive per encoded instruction, grouped by section.
type ListingFormat struct{}

func (ListingFormat) Name() string { return "lst" }
func (ListingFormat) Ext() string  { return ".lst" }

func (ListingFormat) Write(w io.Writer, img *Image) error {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("// %s: %d preload words, %d execution words\n",
		img.Name, img.Count(SectionPreload), img.Count(SectionExecution)))
	for _, section := range []Section{SectionPreload, SectionExecution} {
		records := lo.Filter(img.Records, func(r Record, _ int) bool {
			return r.Word.Section == section
		})
		if len(records) == 0 {
			continue
		}
		builder.WriteString(fmt.Sprintf("\nTEXT ·%s_%s(SB), $0\n", symbol(img), section))
		for _, r := range records {
			builder.WriteString(fmt.Sprintf("\tWORD $0x%s", r.Word.Hex()))
			builder.WriteString(fmt.Sprintf("\t// @%08x", r.Address))
			if r.Word.Text != "" {
				builder.WriteString(" ")
				builder.WriteString(r.Word.Text)
			}
			builder.WriteString("\n")
		}
	}
	bytes, err := asmfmt.Format(strings.NewReader(builder.String()))
	if err != nil {
		return err
	}
	_, err = w.Write(bytes)
	return err
}

func symbol(img *Image) string {
	return strings.Map(func(r rune) rune {
		if r == '_' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' {
			return r
		}
		return '_'
	}, img.Name)
}

func init() {
	RegisterFormat(HexFormat{})
	RegisterFormat(MemFormat{})
	RegisterFormat(ListingFormat{})
}
