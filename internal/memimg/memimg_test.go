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
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddress(t *testing.T) {
	tests := []struct {
		pe      int
		section Section
		index   int
		want    uint32
	}{
		{3, SectionExecution, 5, 0xC05},
		{3, SectionPreload, 2, 0xE02},
		{0, SectionExecution, 0, 0x000},
		{0, SectionPreload, 0, 0x200},
		{255, SectionPreload, 511, 0x3FFFF},
		{256, SectionExecution, 1, 0x001},
		{UnknownPE, SectionExecution, 0, 0x3FC00},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Address(tt.pe, tt.section, tt.index), "pe=%d %s index=%d", tt.pe, tt.section, tt.index)
	}
}

func TestAddress_Disjoint(t *testing.T) {
	seen := make(map[uint32]string)
	for pe := 0; pe < 64; pe++ {
		for _, section := range []Section{SectionExecution, SectionPreload} {
			for index := 0; index < SectionWords; index++ {
				addr := Address(pe, section, index)
				assert.Equal(t, pe, int(addr>>10), "window of PE %d", pe)
				_, dup := seen[addr]
				require.False(t, dup, "address %#x assigned twice", addr)
				seen[addr] = ""
			}
		}
	}
}

func words(sections ...Section) []Word {
	w := make([]Word, len(sections))
	for i, s := range sections {
		w[i] = Word{Value: uint32(i), Section: s}
	}
	return w
}

func TestBuild(t *testing.T) {
	img, err := Build(3, "pe3_binary", words(SectionPreload, SectionPreload, SectionExecution, SectionPreload, SectionExecution))
	require.NoError(t, err)
	var addrs []uint32
	for _, r := range img.Records {
		addrs = append(addrs, r.Address)
	}
	assert.Equal(t, []uint32{0xE00, 0xE01, 0xC00, 0xE02, 0xC01}, addrs)
	assert.Equal(t, 3, img.Count(SectionPreload))
	assert.Equal(t, 2, img.Count(SectionExecution))
}

func TestBuild_SectionFull(t *testing.T) {
	sections := make([]Section, SectionWords)
	for i := range sections {
		sections[i] = SectionExecution
	}
	_, err := Build(0, "pe0_binary", words(sections...))
	require.NoError(t, err)

	_, err = Build(0, "pe0_binary", words(append(sections, SectionPreload, SectionExecution)...))
	assert.ErrorIs(t, err, ErrSectionFull)
}

func TestAttribute(t *testing.T) {
	tests := []struct {
		path string
		pe   int
		name string
	}{
		{"build/pe3_assembly.s", 3, "pe3_binary"},
		{"pe12_assembly.s", 12, "pe12_binary"},
		{"out/kernel_pe0_v2.s", 0, "pe0_binary"},
		{"out/kernel.s", UnknownPE, "kernel_binary"},
		{"prelude", UnknownPE, "prelude_binary"},
		{"pe_assembly.s", UnknownPE, "pe_assembly_binary"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			pe, name := Attribute(tt.path)
			assert.Equal(t, tt.pe, pe)
			assert.Equal(t, tt.name, name)
		})
	}
}

func testImage(t *testing.T, pe int, name string) *Image {
	t.Helper()
	img, err := Build(pe, name, []Word{
		{Value: 0x000012B7, Section: SectionPreload, Text: "lui x5, 1"},
		{Value: 0x00000013, Section: SectionExecution, Text: "nop"},
	})
	require.NoError(t, err)
	return img
}

func TestFormats(t *testing.T) {
	assert.Equal(t, []string{"hex", "lst", "mem"}, ListFormats())
	_, err := GetFormat("elf")
	assert.ErrorContains(t, err, "available: hex, lst, mem")

	img := testImage(t, 1, "pe1_binary")
	tests := []struct {
		format string
		ext    string
		want   string
	}{
		{"hex", ".bin", "000012b7\n00000013\n"},
		{"mem", ".mem", "@00000600 000012b7\n@00000400 00000013\n"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			f, err := GetFormat(tt.format)
			require.NoError(t, err)
			assert.Equal(t, tt.ext, f.Ext())
			var buf bytes.Buffer
			require.NoError(t, f.Write(&buf, img))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestListingFormat(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ListingFormat{}.Write(&buf, testImage(t, 1, "pe1_binary")))
	out := buf.String()
	assert.Contains(t, out, "pe1_binary: 1 preload words, 1 execution words")
	assert.Contains(t, out, "·pe1_binary_preload(SB)")
	assert.Contains(t, out, "·pe1_binary_execution(SB)")
	assert.Contains(t, strings.ToLower(out), "$0x000012b7")
	assert.Contains(t, out, "lui x5, 1")
	assert.Less(t, strings.Index(out, "preload(SB)"), strings.Index(out, "execution(SB)"))
}

func TestCombined(t *testing.T) {
	combined, err := NewCombined(
		testImage(t, 5, "pe5_binary"),
		testImage(t, UnknownPE, "prelude_binary"),
		testImage(t, 0, "pe0_binary"),
		testImage(t, 2, "pe2_binary"),
	)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 5}, combined.PEs())
	assert.Equal(t, 6, combined.TotalPEs())

	var buf bytes.Buffer
	n, err := combined.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)
	assert.Equal(t, `// Combined memory initialization file for all PEs
// Format: @ADDRESS HEX_INSTRUCTION
// Total PEs: 6

// PE0 memory entries
@00000200 000012b7
@00000000 00000013

// PE2 memory entries
@00000a00 000012b7
@00000800 00000013

// PE5 memory entries
@00001600 000012b7
@00001400 00000013

// Unknown PE memory entries
@0003fe00 000012b7
@0003fc00 00000013
`, buf.String())
}

func TestCombined_Duplicate(t *testing.T) {
	_, err := NewCombined(testImage(t, 1, "pe1_binary"), testImage(t, 1, "pe01_binary"))
	assert.ErrorIs(t, err, ErrDuplicatePE)
}

func TestCombined_Empty(t *testing.T) {
	combined, err := NewCombined()
	require.NoError(t, err)
	var buf bytes.Buffer
	_, err = combined.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, "// Combined memory initialization file for all PEs\n// Format: @ADDRESS HEX_INSTRUCTION\n// Total PEs: 0\n", buf.String())
}
