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
	"bufio"
	"io"
	"strings"

	"github.com/gorse-io/spasm/internal/isa"
	"github.com/gorse-io/spasm/internal/memimg"
)

// ExecutionMarker is the comment separating preload statements from the
// execution stream in program text.
const ExecutionMarker = "========== Execution Section Begin =========="

const indent = "    "

// Kind classifies a statement.
type Kind uint8

const (
	KindBlank Kind = iota
	KindComment
	KindDirective
	KindLabel
	KindInstruction
)

// Stmt is one line of a program.
type Stmt struct {
	Kind Kind
	// Text is the comment body without '#', the directive including its
	// leading dot, or the label name.
	Text string
	// Indent renders a comment inside the code block.
	Indent bool

	Inst isa.Inst
	// Comment is the trailing comment of an instruction.
	Comment string
	Section memimg.Section

	// Line is the 1-based source line of a parsed statement, 0 if generated.
	Line int
}

// String renders the statement as one line of program text.
func (s Stmt) String() string {
	switch s.Kind {
	case KindComment:
		if s.Indent {
			return indent + "# " + s.Text
		}
		return "# " + s.Text
	case KindDirective:
		return s.Text
	case KindLabel:
		return s.Text + ":"
	case KindInstruction:
		if s.Comment != "" {
			return indent + s.Inst.String() + "  # " + s.Comment
		}
		return indent + s.Inst.String()
	default:
		return ""
	}
}

// Program is the statement stream of one PE. Every instruction statement is
// tagged with the memory section it is placed in.
type Program struct {
	PE      int
	Cluster int
	Stmts   []Stmt
}

// Instructions returns the instruction statements in order.
func (p *Program) Instructions() []Stmt {
	var insts []Stmt
	for _, s := range p.Stmts {
		if s.Kind == KindInstruction {
			insts = append(insts, s)
		}
	}
	return insts
}

// WriteTo renders the program as text, one statement per line.
func (p *Program) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var n int64
	for _, s := range p.Stmts {
		m, err := bw.WriteString(s.String() + "\n")
		n += int64(m)
		if err != nil {
			return n, err
		}
	}
	return n, bw.Flush()
}

func (p *Program) String() string {
	var builder strings.Builder
	_, _ = p.WriteTo(&builder)
	return builder.String()
}

// Builder appends statements to a program, tagging instructions with the
// current section.
type Builder struct {
	prog    *Program
	section memimg.Section
}

// NewBuilder starts an empty program in the preload section.
func NewBuilder(pe, cluster int) *Builder {
	return &Builder{prog: &Program{PE: pe, Cluster: cluster}, section: memimg.SectionPreload}
}

// Program returns the statements built so far.
func (b *Builder) Program() *Program {
	return b.prog
}

func (b *Builder) add(s Stmt) {
	s.Section = b.section
	b.prog.Stmts = append(b.prog.Stmts, s)
}

// Header adds an unindented comment.
func (b *Builder) Header(text string) {
	b.add(Stmt{Kind: KindComment, Text: text})
}

// Comment adds an indented comment.
func (b *Builder) Comment(text string) {
	b.add(Stmt{Kind: KindComment, Text: text, Indent: true})
}

func (b *Builder) Directive(text string) {
	b.add(Stmt{Kind: KindDirective, Text: text})
}

func (b *Builder) Label(name string) {
	b.add(Stmt{Kind: KindLabel, Text: name})
}

func (b *Builder) Blank() {
	b.add(Stmt{Kind: KindBlank})
}

// Inst adds an instruction with an optional trailing comment.
func (b *Builder) Inst(in isa.Inst, comment string) {
	b.add(Stmt{Kind: KindInstruction, Inst: in, Comment: comment})
}

// BeginExecution writes the execution marker; everything after it is placed
// in the execution section.
func (b *Builder) BeginExecution() {
	b.section = memimg.SectionExecution
	b.Comment(ExecutionMarker)
}
