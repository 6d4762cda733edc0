package scm

// Node is one element of a script's intermediate representation: a command,
// a label definition, a hex blob, or raw string data.
type Node interface {
	// size returns the number of bytes the node occupies under opts.
	size(opts Options) int
	// emit encodes the node into the generator's buffer.
	emit(g *CodeGen)
}

// Arg is a single argument of a compiled command.
type Arg interface {
	size(opts Options) int
	emit(g *CodeGen)
}

// LabelDef anchors a label at the current offset. It has no physical
// representation in the bytecode.
type LabelDef struct {
	Label *Label
}

// Command is an opcode id plus its ordered argument list. Variadic commands
// carry an explicit trailing EOAL argument; no terminator is implied.
type Command struct {
	ID   uint16
	Args []Arg
}

// Hex is a blob of raw bytes copied verbatim into the output.
type Hex []byte

// EOAL is the end-of-arg-list sentinel for variadic commands.
type EOAL struct{}

// Int8, Int16 and Int32 are immediate integer arguments. The width is
// chosen by the upstream compiler; no narrowing happens here.
type (
	Int8  int8
	Int16 int16
	Int32 int32
)

// Float is an immediate float argument. Its encoding depends on the
// OptimizeZeroFloats and UseHalfFloat options.
type Float float32

// LabelRef is a reference to a label, encoded as an i32 offset whose sign
// convention depends on the options and the owning script's type.
type LabelRef struct {
	Label *Label
}

// VarRef references a variable, optionally subscripted by a constant or by
// another variable.
//
// A constant subscript folds into the scalar encoding by advancing the base
// (byte-addressed with stride 4 for globals, slot-addressed for locals).
// A variable subscript selects the 7-byte array record instead.
type VarRef struct {
	Var *Var

	// Idx is the subscript variable; nil unless this is a var-indexed access.
	Idx *Var

	// Const is the constant subscript, valid when HasConst is set.
	Const    int32
	HasConst bool
}

// StringKind is the flavor of a String argument.
type StringKind byte

const (
	// TextLabel8 is a raw 8-char NUL-padded label, with an optional 0x09
	// type byte under the HasTextLabelPrefix option.
	TextLabel8 StringKind = iota
	// TextLabel16 is a tagged 16-char NUL-padded label.
	TextLabel16
	// StringVar is a tagged length-prefixed string of up to 127 chars.
	StringVar
	// String128 is a raw 128-char NUL-padded block. It also appears as a
	// standalone IR node carrying non-argument string data.
	String128
)

// String is a string argument, already length-validated against its kind's
// maximum by the upstream compiler. It doubles as an IR node for the
// String128 data form.
type String struct {
	Kind StringKind
	Text string
}
