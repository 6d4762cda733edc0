// Package scm provides types and code generation for the SCM bytecode
// format used by the GTA III-era game engines (III, Vice City, San Andreas).
package scm

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/logrusorgru/aurora"
)

// Version selects the target game engine.
type Version byte

const (
	Liberty Version = iota
	Miami
	SanAndreas
)

func (v Version) String() string {
	switch v {
	case Liberty:
		return "liberty"
	case Miami:
		return "miami"
	case SanAndreas:
		return "sanandreas"
	default:
		return "???"
	}
}

// Options are the encoding options, fixed for the duration of a compilation.
type Options struct {
	// OptimizeZeroFloats re-encodes 0.0 floats as Int8(0), saving 3 bytes each.
	OptimizeZeroFloats bool

	// UseHalfFloat encodes floats as i16(value*16) when OptimizeZeroFloats
	// does not fire, saving 2 bytes each.
	UseHalfFloat bool

	// UseLocalOffsets makes every label reference encode as the negated
	// absolute offset, regardless of the owning script's type.
	UseLocalOffsets bool

	// HasTextLabelPrefix prepends the 0x09 type byte to 8-char text labels.
	HasTextLabelPrefix bool
}

// Program carries the compilation options and the diagnostics sink shared
// by every code generator of a compilation.
//
// The sink may be written concurrently during parallel emit, so reporting
// is mutex-guarded.
type Program struct {
	Opt Options

	// Verbose enables progress logging and IR dumps in the driver.
	Verbose bool

	mu     sync.Mutex
	out    io.Writer
	errors int
}

// NewProgram creates a program context reporting diagnostics to stderr.
func NewProgram(opt Options) *Program {
	return &Program{Opt: opt, out: os.Stderr}
}

// SetOutput redirects diagnostics (and verbose dumps) to w.
func (p *Program) SetOutput(w io.Writer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.out = w
}

// Error reports a user-visible diagnostic. Code generation continues after
// an Error; only invariant violations abort.
func (p *Program) Error(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errors++
	fmt.Fprintf(p.out, "%s %s\n", aurora.Red("error:"), fmt.Sprintf(format, args...))
}

// ErrorCount returns the number of diagnostics reported so far.
func (p *Program) ErrorCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.errors
}

func (p *Program) output() io.Writer {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.out
}
