package scm

import (
	"bytes"
	"io"
	"testing"
)

func testProgram(opt Options) *Program {
	p := NewProgram(opt)
	p.SetOutput(io.Discard)
	return p
}

// emitCommand runs both passes over a script holding a single command and
// returns the generated bytes.
func emitCommand(t *testing.T, prog *Program, sc *Script, cmd Command) []byte {
	t.Helper()
	g := NewCodeGen(prog, ScriptCompilation{Script: sc, IR: []Node{cmd}})
	g.ResolveSizes()
	return g.Emit()
}

func TestArgSizes(t *testing.T) {
	gvar := &Var{Global: true, Type: VarInt, Count: 1, Offset: 8}
	lvar := &Var{Global: false, Type: VarTextLabel, Count: 5, Index: 10}

	tests := []struct {
		name string
		arg  Arg
		opts Options
		want int
	}{
		{"eoal", EOAL{}, Options{}, 1},
		{"int8", Int8(7), Options{}, 2},
		{"int16", Int16(1000), Options{}, 3},
		{"int32", Int32(100000), Options{}, 5},
		{"float", Float(1.5), Options{}, 5},
		{"float half", Float(1.5), Options{UseHalfFloat: true}, 3},
		{"float zero opt", Float(0), Options{OptimizeZeroFloats: true}, 2},
		{"float nonzero under zero opt", Float(1.5), Options{OptimizeZeroFloats: true}, 5},
		{"label ref", LabelRef{NewLabel("l", &Script{})}, Options{}, 5},
		{"global scalar", VarRef{Var: gvar}, Options{}, 3},
		{"const indexed", VarRef{Var: gvar, Const: 2, HasConst: true}, Options{}, 3},
		{"var indexed", VarRef{Var: lvar, Idx: gvar}, Options{}, 7},
		{"text label 8", String{Kind: TextLabel8, Text: "CAR"}, Options{}, 8},
		{"text label 8 prefixed", String{Kind: TextLabel8, Text: "CAR"}, Options{HasTextLabelPrefix: true}, 9},
		{"text label 16", String{Kind: TextLabel16, Text: "LONGLABEL"}, Options{}, 17},
		{"string var", String{Kind: StringVar, Text: "hello"}, Options{}, 7},
		{"string 128", String{Kind: String128, Text: "data"}, Options{}, 128},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.arg.size(tt.opts); got != tt.want {
				t.Errorf("size: got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestArgEncoding(t *testing.T) {
	gint := &Var{Global: true, Type: VarInt, Count: 1, Offset: 8}
	gidx := &Var{Global: true, Type: VarInt, Count: 1, Offset: 16}
	ltext := &Var{Global: false, Type: VarTextLabel, Count: 5, Index: 10}
	lint := &Var{Global: false, Type: VarInt, Count: 1, Index: 3}
	gtext16 := &Var{Global: true, Type: VarTextLabel16, Count: 4, Offset: 32}

	tests := []struct {
		name string
		id   uint16
		arg  Arg
		want []byte
	}{
		{"int8", 0x0001, Int8(7), []byte{0x01, 0x00, 0x04, 0x07}},
		{"int8 negative", 0x0001, Int8(-1), []byte{0x01, 0x00, 0x04, 0xFF}},
		{"int16", 0x0001, Int16(0x1234), []byte{0x01, 0x00, 0x05, 0x34, 0x12}},
		{"int32", 0x0001, Int32(0x12345678), []byte{0x01, 0x00, 0x01, 0x78, 0x56, 0x34, 0x12}},
		{"float", 0x0002, Float(1.0), []byte{0x02, 0x00, 0x06, 0x00, 0x00, 0x80, 0x3F}},
		{"global scalar int", 0x0004, VarRef{Var: gint}, []byte{0x04, 0x00, 0x02, 0x08, 0x00}},
		{"local scalar int", 0x0004, VarRef{Var: lint}, []byte{0x04, 0x00, 0x03, 0x03, 0x00}},
		{"global text label 16", 0x0004, VarRef{Var: gtext16}, []byte{0x04, 0x00, 0x10, 0x20, 0x00}},
		{
			"global const indexed",
			0x0004,
			VarRef{Var: gint, Const: 2, HasConst: true},
			[]byte{0x04, 0x00, 0x02, 0x10, 0x00}, // 8 + 2*4
		},
		{
			"local const indexed",
			0x0004,
			VarRef{Var: lint, Const: 2, HasConst: true},
			[]byte{0x04, 0x00, 0x03, 0x05, 0x00}, // 3 + 2
		},
		{
			"var indexed local text array, global index",
			0x0005,
			VarRef{Var: ltext, Idx: gidx},
			[]byte{0x05, 0x00, 0x0D, 0x0A, 0x00, 0x10, 0x00, 0x05, 0x82},
		},
		{
			"var indexed global int array, local index",
			0x0005,
			VarRef{Var: gint, Idx: lint},
			[]byte{0x05, 0x00, 0x07, 0x08, 0x00, 0x03, 0x00, 0x01, 0x00},
		},
		{"eoal", 0x0006, EOAL{}, []byte{0x06, 0x00, 0x00}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog := testProgram(Options{})
			got := emitCommand(t, prog, &Script{Type: Main}, Command{ID: tt.id, Args: []Arg{tt.arg}})
			if !bytes.Equal(got, tt.want) {
				t.Errorf("encoded bytes:\n got % X\nwant % X", got, tt.want)
			}
		})
	}
}

func TestFloatEncodings(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		val  Float
		want []byte
	}{
		{"zero opt fires", Options{OptimizeZeroFloats: true}, 0.0, []byte{0x02, 0x00, 0x04, 0x00}},
		{"zero without opt", Options{}, 0.0, []byte{0x02, 0x00, 0x06, 0x00, 0x00, 0x00, 0x00}},
		{"half float", Options{UseHalfFloat: true}, 1.5, []byte{0x02, 0x00, 0x06, 0x18, 0x00}}, // 1.5*16 = 24
		{"half float negative", Options{UseHalfFloat: true}, -2.0, []byte{0x02, 0x00, 0x06, 0xE0, 0xFF}},
		{"zero opt wins over half", Options{OptimizeZeroFloats: true, UseHalfFloat: true}, 0.0, []byte{0x02, 0x00, 0x04, 0x00}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog := testProgram(tt.opts)
			got := emitCommand(t, prog, &Script{Type: Main}, Command{ID: 0x0002, Args: []Arg{tt.val}})
			if !bytes.Equal(got, tt.want) {
				t.Errorf("encoded bytes:\n got % X\nwant % X", got, tt.want)
			}
		})
	}
}

func TestStringEncodings(t *testing.T) {
	long127 := make([]byte, 127)
	for i := range long127 {
		long127[i] = 'a'
	}

	tests := []struct {
		name string
		opts Options
		str  String
		want []byte
	}{
		{
			"text label 8 unprefixed",
			Options{},
			String{Kind: TextLabel8, Text: "CAR"},
			[]byte{'C', 'A', 'R', 0, 0, 0, 0, 0},
		},
		{
			"text label 8 prefixed",
			Options{HasTextLabelPrefix: true},
			String{Kind: TextLabel8, Text: "CAR"},
			[]byte{0x09, 'C', 'A', 'R', 0, 0, 0, 0, 0},
		},
		{
			"text label 8 max length",
			Options{},
			String{Kind: TextLabel8, Text: "ABCDEFGH"},
			[]byte{'A', 'B', 'C', 'D', 'E', 'F', 'G', 'H'},
		},
		{
			"text label 16",
			Options{},
			String{Kind: TextLabel16, Text: "HI"},
			[]byte{0x0F, 'H', 'I', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0},
		},
		{
			"string var",
			Options{},
			String{Kind: StringVar, Text: "hey"},
			[]byte{0x0E, 0x03, 'h', 'e', 'y'},
		},
		{
			"string var empty",
			Options{},
			String{Kind: StringVar, Text: ""},
			[]byte{0x0E, 0x00},
		},
		{
			"string var max length",
			Options{},
			String{Kind: StringVar, Text: string(long127)},
			append([]byte{0x0E, 127}, long127...),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog := testProgram(tt.opts)
			sc := &Script{Type: Main}
			g := NewCodeGen(prog, ScriptCompilation{Script: sc, IR: []Node{Command{ID: 0, Args: []Arg{tt.str}}}})
			g.ResolveSizes()
			got := g.Emit()[2:] // skip opcode
			if !bytes.Equal(got, tt.want) {
				t.Errorf("encoded bytes:\n got % X\nwant % X", got, tt.want)
			}
		})
	}
}

func TestString128Emit(t *testing.T) {
	prog := testProgram(Options{})
	sc := &Script{Type: Main}
	g := NewCodeGen(prog, ScriptCompilation{Script: sc, IR: []Node{String{Kind: String128, Text: "SCRIPT01"}}})
	if size := g.ResolveSizes(); size != 128 {
		t.Fatalf("size: got %d, want 128", size)
	}
	got := g.Emit()
	if len(got) != 128 {
		t.Fatalf("emitted %d bytes, want 128", len(got))
	}
	if string(got[:8]) != "SCRIPT01" {
		t.Errorf("content: got %q", got[:8])
	}
	for i := 8; i < 128; i++ {
		if got[i] != 0 {
			t.Fatalf("byte %d not NUL-padded: 0x%02X", i, got[i])
		}
	}
}

func TestLabelRefEncoding(t *testing.T) {
	t.Run("mission local offset", func(t *testing.T) {
		// A mission label at local offset 12 encodes as i32(-12).
		prog := testProgram(Options{})
		mission := &Script{Type: Mission}
		l := NewLabel("target", mission)
		l.setLocalOffset(12)
		got := emitCommand(t, prog, mission, Command{ID: 0x0003, Args: []Arg{LabelRef{l}}})
		want := []byte{0x03, 0x00, 0x01, 0xF4, 0xFF, 0xFF, 0xFF}
		if !bytes.Equal(got, want) {
			t.Errorf("encoded bytes:\n got % X\nwant % X", got, want)
		}
	})

	t.Run("absolute offset", func(t *testing.T) {
		prog := testProgram(Options{})
		main := &Script{Type: Main, Offset: 0x100}
		l := NewLabel("target", main)
		l.setLocalOffset(0x20)
		got := emitCommand(t, prog, main, Command{ID: 0x0003, Args: []Arg{LabelRef{l}}})
		want := []byte{0x03, 0x00, 0x01, 0x20, 0x01, 0x00, 0x00}
		if !bytes.Equal(got, want) {
			t.Errorf("encoded bytes:\n got % X\nwant % X", got, want)
		}
	})

	t.Run("use local offsets negates absolute", func(t *testing.T) {
		prog := testProgram(Options{UseLocalOffsets: true})
		sc := &Script{Type: Main, Offset: 8}
		l := NewLabel("target", sc)
		l.setLocalOffset(4)
		got := emitCommand(t, prog, sc, Command{ID: 0x0003, Args: []Arg{LabelRef{l}}})
		want := []byte{0x03, 0x00, 0x01, 0xF4, 0xFF, 0xFF, 0xFF} // -(8+4)
		if !bytes.Equal(got, want) {
			t.Errorf("encoded bytes:\n got % X\nwant % X", got, want)
		}
	})

	t.Run("zero offset reports diagnostic", func(t *testing.T) {
		var diag bytes.Buffer
		prog := NewProgram(Options{UseLocalOffsets: true})
		prog.SetOutput(&diag)

		sc := &Script{Type: Main, Offset: 0}
		l := NewLabel("start", sc)
		l.setLocalOffset(0)
		got := emitCommand(t, prog, sc, Command{ID: 0x0003, Args: []Arg{LabelRef{l}}})

		if prog.ErrorCount() != 1 {
			t.Errorf("error count: got %d, want 1", prog.ErrorCount())
		}
		// Emit proceeds with the placeholder to preserve stream alignment.
		want := []byte{0x03, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00}
		if !bytes.Equal(got, want) {
			t.Errorf("encoded bytes:\n got % X\nwant % X", got, want)
		}
	})

	t.Run("cross-script mission reference panics", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic")
			}
		}()
		prog := testProgram(Options{})
		mission := &Script{Type: Mission}
		other := &Script{Type: Main}
		l := NewLabel("target", mission)
		l.setLocalOffset(4)
		emitCommand(t, prog, other, Command{ID: 0x0003, Args: []Arg{LabelRef{l}}})
	})
}

func TestVarIndexBoundaries(t *testing.T) {
	t.Run("index 65535 fits", func(t *testing.T) {
		prog := testProgram(Options{})
		v := &Var{Global: false, Type: VarInt, Count: 1, Index: 65535}
		got := emitCommand(t, prog, &Script{Type: Main}, Command{ID: 0x0004, Args: []Arg{VarRef{Var: v}}})
		want := []byte{0x04, 0x00, 0x03, 0xFF, 0xFF}
		if !bytes.Equal(got, want) {
			t.Errorf("encoded bytes:\n got % X\nwant % X", got, want)
		}
	})

	t.Run("index 65536 overflows", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic")
			}
		}()
		prog := testProgram(Options{})
		v := &Var{Global: false, Type: VarInt, Count: 1, Index: 65536}
		emitCommand(t, prog, &Script{Type: Main}, Command{ID: 0x0004, Args: []Arg{VarRef{Var: v}}})
	})

	t.Run("const fold overflow", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic")
			}
		}()
		prog := testProgram(Options{})
		v := &Var{Global: true, Type: VarInt, Count: 1, Offset: 0xFFFC}
		emitCommand(t, prog, &Script{Type: Main}, Command{ID: 0x0004, Args: []Arg{VarRef{Var: v, Const: 1, HasConst: true}}})
	})
}
