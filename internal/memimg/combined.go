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

	"github.com/samber/lo"
)

// Combined is the memory image of every PE processed in one run.
type Combined struct {
	known   map[int]*Image
	unknown []*Image
}

// NewCombined collects images for the combined memory file. Images may be
// added in any order; a known PE may only appear once.
func NewCombined(images ...*Image) (*Combined, error) {
	c := &Combined{known: make(map[int]*Image)}
	for _, img := range images {
		if err := c.Add(img); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Add includes img in the combined image.
func (c *Combined) Add(img *Image) error {
	if img.PE == UnknownPE {
		c.unknown = append(c.unknown, img)
		return nil
	}
	if prev, ok := c.known[img.PE]; ok {
		return fmt.Errorf("%w: PE %d from %s and %s", ErrDuplicatePE, img.PE, prev.Name, img.Name)
	}
	c.known[img.PE] = img
	return nil
}

// PEs returns the known PE ids in ascending order.
func (c *Combined) PEs() []int {
	pes := lo.Keys(c.known)
	sort.Ints(pes)
	return pes
}

// TotalPEs is one past the highest known PE id.
func (c *Combined) TotalPEs() int {
	if len(c.known) == 0 {
		return 0
	}
	return lo.Max(lo.Keys(c.known)) + 1
}

// WriteTo writes the combined memory file: header comments, one block per
// known PE in ascending id order, then the entries of unknown PEs.
func (c *Combined) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: bufio.NewWriter(w)}
	fmt.Fprintln(cw, "// Combined memory initialization file for all PEs")
	fmt.Fprintln(cw, "// Format: @ADDRESS HEX_INSTRUCTION")
	fmt.Fprintf(cw, "// Total PEs: %d\n", c.TotalPEs())
	for _, pe := range c.PEs() {
		fmt.Fprintf(cw, "\n// PE%d memory entries\n", pe)
		writeRecords(cw, c.known[pe])
	}
	if len(c.unknown) > 0 {
		fmt.Fprintln(cw, "\n// Unknown PE memory entries")
		for _, img := range c.unknown {
			writeRecords(cw, img)
		}
	}
	if cw.err != nil {
		return cw.n, cw.err
	}
	return cw.n, cw.w.(*bufio.Writer).Flush()
}

func writeRecords(w io.Writer, img *Image) {
	for _, r := range img.Records {
		fmt.Fprintln(w, r.String())
	}
}

// countingWriter stops writing after the first error and keeps it.
type countingWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	if cw.err != nil {
		return 0, cw.err
	}
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	cw.err = err
	return n, err
}
