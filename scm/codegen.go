package scm

import (
	"fmt"
	"math"
)

// emitter is the byte-emplacing base shared by the script and header
// generators. All multi-byte values are written little-endian, byte by byte.
//
// The buffer is allocated up front at the exact size computed by the sizing
// pass; writing past it is a programming error and panics.
type emitter struct {
	buf []byte
	off int
}

// setup allocates the output buffer. Must be called before any emplacer.
func (e *emitter) setup(size int) {
	e.buf = make([]byte, size)
	e.off = 0
}

// Buffer returns the generated bytecode. Valid only after generation.
func (e *emitter) Buffer() []byte {
	return e.buf
}

// CurrentOffset returns the write cursor.
func (e *emitter) CurrentOffset() int {
	return e.off
}

func (e *emitter) u8(v byte) {
	if e.off+1 > len(e.buf) {
		panic(fmt.Sprintf("scm: buffer overrun at offset %d", e.off))
	}
	e.buf[e.off] = v
	e.off++
}

func (e *emitter) u16(v uint16) {
	e.u8(byte(v))
	e.u8(byte(v >> 8))
}

func (e *emitter) u32(v uint32) {
	e.u8(byte(v))
	e.u8(byte(v >> 8))
	e.u8(byte(v >> 16))
	e.u8(byte(v >> 24))
}

func (e *emitter) i8(v int8)   { e.u8(byte(v)) }
func (e *emitter) i16(v int16) { e.u16(uint16(v)) }
func (e *emitter) i32(v int32) { e.u32(uint32(v)) }

func (e *emitter) f32(v float32) { e.u32(math.Float32bits(v)) }

// chars writes exactly count bytes: the string's bytes, NUL-padded to the
// field width. Oversized strings are a programming error.
func (e *emitter) chars(count int, s string) {
	if len(s) > count {
		panic(fmt.Sprintf("scm: string %q exceeds %d-char field", s, count))
	}
	if e.off+count > len(e.buf) {
		panic(fmt.Sprintf("scm: buffer overrun at offset %d", e.off))
	}
	copy(e.buf[e.off:], s)
	for i := len(s); i < count; i++ {
		e.buf[e.off+i] = 0
	}
	e.off += count
}

func (e *emitter) bytes(b []byte) {
	if e.off+len(b) > len(e.buf) {
		panic(fmt.Sprintf("scm: buffer overrun at offset %d", e.off))
	}
	copy(e.buf[e.off:], b)
	e.off += len(b)
}

func (e *emitter) fill(count int, v byte) {
	if e.off+count > len(e.buf) {
		panic(fmt.Sprintf("scm: buffer overrun at offset %d", e.off))
	}
	for i := 0; i < count; i++ {
		e.buf[e.off+i] = v
	}
	e.off += count
}

// check16 narrows an offset or slot index to the 16-bit field the bytecode
// format allots it. Overflow is an invariant violation.
func check16(v uint32, what string) uint16 {
	if v > 0xFFFF {
		panic(fmt.Sprintf("scm: %s %d exceeds 16-bit field", what, v))
	}
	return uint16(v)
}

// ScriptCompilation bundles a script with its elaborated IR, as handed over
// by the upstream compiler.
type ScriptCompilation struct {
	Script *Script
	IR     []Node
}

// CodeGen converts one script's intermediate representation into SCM
// bytecode. It runs in two passes: ResolveSizes, then Emit.
type CodeGen struct {
	emitter
	prog   *Program
	script *Script
	ir     []Node
}

// NewCodeGen creates a generator for one compilation unit.
func NewCodeGen(prog *Program, unit ScriptCompilation) *CodeGen {
	return &CodeGen{prog: prog, script: unit.Script, ir: unit.IR}
}

// Script returns the script this generator compiles.
func (g *CodeGen) Script() *Script {
	return g.script
}

// ResolveSizes walks the IR accumulating each node's compiled size, writing
// the rolling offset into every label defined by this script, and caches
// the total as the script's size.
//
// Not safe to run concurrently with other generators that share label
// handles with this one: it is the only mutation of shared data in the
// whole pipeline.
func (g *CodeGen) ResolveSizes() uint32 {
	var offset uint32
	for _, n := range g.ir {
		if def, ok := n.(LabelDef); ok {
			def.Label.setLocalOffset(offset)
			continue
		}
		offset += uint32(n.size(g.prog.Opt))
	}
	g.script.Size = offset
	return offset
}

// Emit encodes the IR into a freshly allocated buffer of exactly the size
// cached by ResolveSizes, and returns it. The caller must have run
// ResolveSizes first; a size mismatch between the passes is a programming
// error and panics.
func (g *CodeGen) Emit() []byte {
	g.setup(int(g.script.Size))
	for _, n := range g.ir {
		n.emit(g)
	}
	if g.off != len(g.buf) {
		panic(fmt.Sprintf("scm: script %q emitted %d of %d bytes", g.script.Path, g.off, len(g.buf)))
	}
	return g.buf
}

func (n LabelDef) size(Options) int { return 0 }
func (n LabelDef) emit(*CodeGen)    {}

func (n Command) size(opts Options) int {
	size := 2
	for _, a := range n.Args {
		size += a.size(opts)
	}
	return size
}

func (n Command) emit(g *CodeGen) {
	g.u16(n.ID)
	for _, a := range n.Args {
		a.emit(g)
	}
}

func (n Hex) size(Options) int { return len(n) }
func (n Hex) emit(g *CodeGen)  { g.bytes(n) }
