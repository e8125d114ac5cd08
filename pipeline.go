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
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gorse-io/spasm/internal/asm"
	"github.com/gorse-io/spasm/internal/codegen"
	"github.com/gorse-io/spasm/internal/config"
	"github.com/gorse-io/spasm/internal/memimg"
	"github.com/samber/lo"
)

// CombinedFile is the name of the memory file aggregating every PE.
const CombinedFile = "combined_memory.mem"

// Pipeline writes the artifacts of both stages into one output directory.
type Pipeline struct {
	OutputDir string
	Formats   []memimg.Format
	Lenient   bool
}

func NewPipeline(outputDir string, formats []string, lenient bool) (*Pipeline, error) {
	p := &Pipeline{OutputDir: outputDir, Lenient: lenient}
	for _, name := range lo.Uniq(formats) {
		format, err := memimg.GetFormat(strings.TrimSpace(name))
		if err != nil {
			return nil, err
		}
		p.Formats = append(p.Formats, format)
	}
	return p, nil
}

// prepare creates the output directory. A failure is only reported: the
// writes that follow fail with a precise error if the directory is missing.
func (p *Pipeline) prepare() {
	if err := os.MkdirAll(p.OutputDir, 0o755); err != nil {
		warnf("failed to create output directory %s: %v", p.OutputDir, err)
	}
}

// Generate emits one program per active PE and writes it as
// pe<N>_assembly.s. It returns the paths written in PE order.
func (p *Pipeline) Generate(configPath string) ([]string, error) {
	programs, err := p.emit(configPath)
	if err != nil {
		return nil, err
	}
	p.prepare()
	var paths []string
	for _, prog := range programs {
		path, err := p.writeProgram(prog)
		if err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// Assemble encodes every program listed in the manifest and writes the
// per-program artifacts and the combined memory file.
func (p *Pipeline) Assemble(manifestPath string) error {
	paths, err := readManifest(manifestPath)
	if err != nil {
		return err
	}
	p.prepare()
	combined, _ := memimg.NewCombined()
	for _, path := range paths {
		prog, warnings, err := asm.ParseFile(path, asm.Options{Lenient: p.Lenient})
		for _, warning := range warnings {
			warnf("%s: %v", path, warning)
		}
		if err != nil {
			return err
		}
		_, name := memimg.Attribute(path)
		img, err := p.encode(prog, name, path)
		if err != nil {
			return err
		}
		if err = combined.Add(img); err != nil {
			return err
		}
	}
	return p.writeCombined(combined)
}

// Build runs both stages without reparsing the program text. The program
// files are still written.
func (p *Pipeline) Build(configPath string) error {
	programs, err := p.emit(configPath)
	if err != nil {
		return err
	}
	p.prepare()
	combined, _ := memimg.NewCombined()
	for _, prog := range programs {
		path, err := p.writeProgram(prog)
		if err != nil {
			return err
		}
		img, err := p.encode(prog, memimg.Name(prog.PE), path)
		if err != nil {
			return err
		}
		if err = combined.Add(img); err != nil {
			return err
		}
	}
	return p.writeCombined(combined)
}

func (p *Pipeline) emit(configPath string) ([]*asm.Program, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	emitter := codegen.NewEmitter(cfg)
	emitter.Warn = func(pe int, err error) {
		warnf("PE %d: %v", pe, err)
	}
	programs, err := emitter.EmitAll()
	if err != nil {
		return nil, err
	}
	if len(programs) == 0 {
		warnf("%s schedules no active PE", configPath)
	}
	return programs, nil
}

func (p *Pipeline) writeProgram(prog *asm.Program) (string, error) {
	path := filepath.Join(p.OutputDir, fmt.Sprintf("pe%d_assembly.s", prog.PE))
	if err := writeFile(path, func(w io.Writer) error {
		_, err := prog.WriteTo(w)
		return err
	}); err != nil {
		return "", err
	}
	logf("Generated %s for PE %d", path, prog.PE)
	return path, nil
}

func (p *Pipeline) encode(prog *asm.Program, name, source string) (*memimg.Image, error) {
	words, warnings, err := prog.Encode()
	for _, warning := range warnings {
		warnf("%s: %v", source, warning)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	img, err := memimg.Build(prog.PE, name, words)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	for _, format := range p.Formats {
		path := filepath.Join(p.OutputDir, img.Name+format.Ext())
		if err = writeFile(path, func(w io.Writer) error {
			return format.Write(w, img)
		}); err != nil {
			return nil, err
		}
	}
	logf("Encoded %s: %d preload words, %d execution words",
		source, img.Count(memimg.SectionPreload), img.Count(memimg.SectionExecution))
	return img, nil
}

func (p *Pipeline) writeCombined(combined *memimg.Combined) error {
	path := filepath.Join(p.OutputDir, CombinedFile)
	if err := writeFile(path, func(w io.Writer) error {
		_, err := combined.WriteTo(w)
		return err
	}); err != nil {
		return err
	}
	logf("Generated %s for %d PEs", path, combined.TotalPEs())
	return nil
}

// readManifest returns the program paths listed one per line, skipping
// blank lines and # comments.
func readManifest(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	defer func() { _ = f.Close() }()
	var paths []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		paths = append(paths, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return paths, nil
}

func writeFile(path string, write func(w io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err = write(w); err == nil {
		err = w.Flush()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
