package scm

import "fmt"

// ScriptType classifies a compilation unit.
//
// Mission and StreamedScript bodies are addressed by local offsets; label
// references inside them encode as negated local offsets. Every other type
// uses absolute offsets into the composed image.
type ScriptType byte

const (
	Main ScriptType = iota
	MainExtension
	Mission
	StreamedScript
)

func (t ScriptType) String() string {
	switch t {
	case Main:
		return "main"
	case MainExtension:
		return "extension"
	case Mission:
		return "mission"
	case StreamedScript:
		return "streamed"
	default:
		return "???"
	}
}

// Script is a single compilation unit.
type Script struct {
	Type ScriptType
	Path string // source path; the streamed-scripts table derives its name from the stem

	// Offset is the absolute byte offset of this script in the composed
	// image, assigned during layout.
	Offset uint32

	// Size is the total compiled size in bytes, cached by pass 1
	// (CodeGen.ResolveSizes). Pass 2 allocates exactly this many bytes.
	Size uint32
}

// Label is a named byte location within a script. Labels are shared handles:
// multiple IR nodes may reference the same label, and pass 1 of the owning
// script's generator writes the resolved local offset into it.
type Label struct {
	Name   string
	Script *Script

	local    uint32
	resolved bool
}

// NewLabel creates an unresolved label owned by script.
func NewLabel(name string, script *Script) *Label {
	return &Label{Name: name, Script: script}
}

// setLocalOffset records the label's byte offset from the start of its
// owning script. Called during pass 1 only; not safe to call concurrently
// from generators sharing this label.
func (l *Label) setLocalOffset(off uint32) {
	l.local = off
	l.resolved = true
}

// LocalOffset returns the byte offset from the start of the owning script.
// Reading it before pass 1 has resolved the label is a programming error.
func (l *Label) LocalOffset() uint32 {
	if !l.resolved {
		panic(fmt.Sprintf("scm: label %q read before size resolution", l.Name))
	}
	return l.local
}

// Offset returns the absolute byte offset in the composed image.
func (l *Label) Offset() uint32 {
	return l.Script.Offset + l.LocalOffset()
}

// VarType is the element type of a variable.
//
// The numeric values are part of the bytecode format: the var-indexed array
// record stores the element type in the low 7 bits of its trailing byte.
type VarType byte

const (
	VarInt VarType = iota
	VarFloat
	VarTextLabel   // 8-char text label
	VarTextLabel16 // 16-char text label
)

// Var is a named storage cell, global or local to a script.
type Var struct {
	Name   string
	Global bool
	Type   VarType

	// Count is the element count: 1 for scalars, the array length otherwise.
	Count uint32

	// Index is the slot number of a local variable.
	Index uint32

	// Offset is the byte offset of a global variable in the global region.
	Offset uint32
}
