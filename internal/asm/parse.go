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
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/gorse-io/spasm/internal/isa"
	"github.com/gorse-io/spasm/internal/memimg"
)

var (
	ErrSyntax          = errors.New("syntax error")
	ErrUnknownMnemonic = errors.New("unknown mnemonic")
	ErrOperandCount    = errors.New("wrong number of operands")
	ErrImmediate       = errors.New("invalid immediate")
)

// line patterns
var (
	blankLine     = regexp.MustCompile(`^\s*$`)
	commentLine   = regexp.MustCompile(`^(\s*)# ?(.*)$`)
	labelLine     = regexp.MustCompile(`^\s*([A-Za-z_.][\w.]*):\s*(?:#.*)?$`)
	directiveLine = regexp.MustCompile(`^\s*(\..*?)\s*$`)
	codeLine      = regexp.MustCompile(`^\s*([A-Za-z][\w.]*)(?:\s+([^#]*?))?\s*(?:#\s*(.*?))?\s*$`)
	memOperand    = regexp.MustCompile(`^([^()]*)\(([^()]+)\)$`)
)

// LineError is a diagnostic tied to one line of program text.
type LineError struct {
	Line int
	Text string
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v: %q", e.Line, e.Err, strings.TrimSpace(e.Text))
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// Options configures Parse.
type Options struct {
	// Lenient skips lines that cannot be parsed and reports them as warnings
	// instead of failing.
	Lenient bool
}

// ParseFile parses the program text at path. The PE is recovered from the
// file name, UnknownPE if it carries none.
func ParseFile(path string, opts Options) (*Program, []*LineError, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = file.Close() }()
	prog, warnings, err := Parse(file, opts)
	if err != nil {
		return nil, warnings, fmt.Errorf("%s: %w", path, err)
	}
	prog.PE, _ = memimg.Attribute(path)
	return prog, warnings, nil
}

// Parse reads program text. Statements before the execution marker comment
// are placed in the preload section, the rest in the execution section.
func Parse(r io.Reader, opts Options) (*Program, []*LineError, error) {
	var (
		prog     = &Program{PE: memimg.UnknownPE}
		warnings []*LineError
		section  = memimg.SectionPreload
		lineNo   int
	)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		stmt, err := parseLine(line)
		if err != nil {
			lineErr := &LineError{Line: lineNo, Text: line, Err: err}
			if !opts.Lenient {
				return nil, warnings, lineErr
			}
			warnings = append(warnings, lineErr)
			continue
		}
		if stmt.Kind == KindComment && strings.Contains(stmt.Text, "Execution Section Begin") {
			section = memimg.SectionExecution
		}
		stmt.Line = lineNo
		stmt.Section = section
		prog.Stmts = append(prog.Stmts, stmt)
	}
	if err := scanner.Err(); err != nil {
		return nil, warnings, err
	}
	return prog, warnings, nil
}

func parseLine(line string) (Stmt, error) {
	if blankLine.MatchString(line) {
		return Stmt{Kind: KindBlank}, nil
	}
	if m := commentLine.FindStringSubmatch(line); m != nil {
		return Stmt{Kind: KindComment, Text: m[2], Indent: m[1] != ""}, nil
	}
	if m := labelLine.FindStringSubmatch(line); m != nil {
		return Stmt{Kind: KindLabel, Text: m[1]}, nil
	}
	if m := directiveLine.FindStringSubmatch(line); m != nil {
		return Stmt{Kind: KindDirective, Text: m[1]}, nil
	}
	m := codeLine.FindStringSubmatch(line)
	if m == nil {
		return Stmt{}, ErrSyntax
	}
	in, err := ParseInstruction(m[1], m[2])
	if err != nil {
		return Stmt{}, err
	}
	return Stmt{Kind: KindInstruction, Inst: in, Comment: m[3]}, nil
}

// ParseInstruction resolves a mnemonic and its comma-separated operands.
// Each register operand is looked up in the register file its slot expects.
func ParseInstruction(mnemonic, operands string) (isa.Inst, error) {
	op, ok := isa.Lookup(strings.ToLower(mnemonic))
	if !ok {
		return isa.Inst{}, fmt.Errorf("%w: %s", ErrUnknownMnemonic, mnemonic)
	}
	info := op.Info()
	o := &operandList{args: splitOperands(operands)}
	in := isa.Inst{Op: op}
	switch info.Syntax {
	case isa.SyntaxNone:
		o.expect(0)
	case isa.SyntaxRRR:
		o.expect(3)
		in.Rd = o.reg(info.Rd, 0)
		in.Rs1 = o.reg(info.Rs1, 1)
		in.Rs2 = o.reg(info.Rs2, 2)
	case isa.SyntaxRRI:
		o.expect(3)
		in.Rd = o.reg(info.Rd, 0)
		in.Rs1 = o.reg(info.Rs1, 1)
		in.Imm = o.imm(2)
	case isa.SyntaxRI:
		o.expect(2)
		in.Rd = o.reg(info.Rd, 0)
		in.Imm = o.imm(1)
	case isa.SyntaxLoad:
		o.expect(2)
		in.Rd = o.reg(info.Rd, 0)
		in.Rs1, in.Imm = o.mem(info.Rs1, 1)
	case isa.SyntaxStore:
		o.expect(2)
		in.Rs2 = o.reg(info.Rs2, 0)
		in.Rs1, in.Imm = o.mem(info.Rs1, 1)
	case isa.SyntaxBranch:
		o.expect(3)
		in.Rs1 = o.reg(info.Rs1, 0)
		in.Rs2 = o.reg(info.Rs2, 1)
		in.Imm = o.imm(2)
	}
	if o.err != nil {
		return isa.Inst{}, fmt.Errorf("%s: %w", info.Mnemonic, o.err)
	}
	return in, nil
}

// splitOperands splits on commas outside parentheses.
func splitOperands(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	var (
		args  []string
		depth int
		start int
	)
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				args = append(args, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	return append(args, strings.TrimSpace(s[start:]))
}

// operandList resolves operands and keeps the first error.
type operandList struct {
	args []string
	err  error
}

func (o *operandList) expect(n int) {
	if len(o.args) != n {
		o.err = fmt.Errorf("%w: got %d, want %d", ErrOperandCount, len(o.args), n)
	}
}

func (o *operandList) reg(ns isa.Namespace, i int) isa.Register {
	if o.err != nil {
		return nil
	}
	r, err := isa.ParseRegister(ns, o.args[i])
	if err != nil {
		o.err = err
		return nil
	}
	return r
}

func (o *operandList) imm(i int) int32 {
	if o.err != nil {
		return 0
	}
	v, err := ParseImmediate(o.args[i])
	if err != nil {
		o.err = err
	}
	return v
}

// mem resolves an offset(base) operand. An empty offset is zero.
func (o *operandList) mem(ns isa.Namespace, i int) (isa.Register, int32) {
	if o.err != nil {
		return nil, 0
	}
	m := memOperand.FindStringSubmatch(strings.ReplaceAll(o.args[i], " ", ""))
	if m == nil {
		o.err = fmt.Errorf("%w: memory operand %q, want offset(base)", ErrSyntax, o.args[i])
		return nil, 0
	}
	var offset int32
	if m[1] != "" {
		var err error
		if offset, err = ParseImmediate(m[1]); err != nil {
			o.err = err
			return nil, 0
		}
	}
	base, err := isa.ParseRegister(ns, m[2])
	if err != nil {
		o.err = err
		return nil, 0
	}
	return base, offset
}

// ParseImmediate parses a signed decimal or 0x-prefixed hexadecimal value.
// Hexadecimal values up to 0xFFFFFFFF wrap to their two's complement reading.
func ParseImmediate(s string) (int32, error) {
	s = strings.TrimSpace(s)
	body, negative := strings.CutPrefix(s, "-")
	if !negative {
		body = strings.TrimPrefix(body, "+")
	}
	var (
		v   uint64
		err error
	)
	if strings.HasPrefix(body, "0x") || strings.HasPrefix(body, "0X") {
		v, err = strconv.ParseUint(body[2:], 16, 64)
	} else {
		v, err = strconv.ParseUint(body, 10, 64)
	}
	switch {
	case err != nil:
		return 0, fmt.Errorf("%w: %q", ErrImmediate, s)
	case negative && v > 1<<31:
		return 0, fmt.Errorf("%w: %q below -2^31", ErrImmediate, s)
	case negative:
		return int32(-int64(v)), nil
	case v > math.MaxUint32:
		return 0, fmt.Errorf("%w: %q exceeds 32 bits", ErrImmediate, s)
	default:
		return int32(uint32(v)), nil
	}
}
