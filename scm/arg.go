package scm

import "fmt"

// Argument type bytes. Every argument is prefixed with one of these except
// the untagged string forms (TextLabel8 without prefix, String128).
const (
	tagEOAL            = 0x00
	tagInt32           = 0x01 // also label references
	tagGlobal          = 0x02
	tagLocal           = 0x03
	tagInt8            = 0x04
	tagInt16           = 0x05
	tagFloat           = 0x06
	tagGlobalArray     = 0x07
	tagLocalArray      = 0x08
	tagTextLabel8      = 0x09
	tagGlobalTL        = 0x0A
	tagLocalTL         = 0x0B
	tagGlobalTLArray   = 0x0C
	tagLocalTLArray    = 0x0D
	tagStringVar       = 0x0E
	tagTextLabel16     = 0x0F
	tagGlobalTL16      = 0x10
	tagLocalTL16       = 0x11
	tagGlobalTL16Array = 0x12
	tagLocalTL16Array  = 0x13
)

func (EOAL) size(Options) int { return 1 }
func (EOAL) emit(g *CodeGen)  { g.u8(tagEOAL) }

func (Int8) size(Options) int { return 1 + 1 }
func (v Int8) emit(g *CodeGen) {
	g.u8(tagInt8)
	g.i8(int8(v))
}

func (Int16) size(Options) int { return 1 + 2 }
func (v Int16) emit(g *CodeGen) {
	g.u8(tagInt16)
	g.i16(int16(v))
}

func (Int32) size(Options) int { return 1 + 4 }
func (v Int32) emit(g *CodeGen) {
	g.u8(tagInt32)
	g.i32(int32(v))
}

func (v Float) size(opts Options) int {
	if opts.OptimizeZeroFloats && v == 0.0 {
		return 1 + 1
	}
	if opts.UseHalfFloat {
		return 1 + 2
	}
	return 1 + 4
}

func (v Float) emit(g *CodeGen) {
	switch {
	case g.prog.Opt.OptimizeZeroFloats && v == 0.0:
		Int8(0).emit(g)
	case g.prog.Opt.UseHalfFloat:
		// Fixed-point: callers must have pre-ranged the value to fit.
		g.u8(tagFloat)
		g.i16(int16(v * 16.0))
	default:
		g.u8(tagFloat)
		g.f32(float32(v))
	}
}

func (LabelRef) size(Options) int { return 1 + 4 }

func (a LabelRef) emit(g *CodeGen) {
	g.u8(tagInt32)

	emitLocal := func(offset int32) {
		// A zero offset is ambiguous with absence; the engine rejects it.
		if offset == 0 {
			g.prog.Error("reference to label %q resolves to zero offset", a.Label.Name)
		}
		g.i32(-offset)
	}

	if g.prog.Opt.UseLocalOffsets {
		emitLocal(int32(a.Label.Offset()))
	} else if a.Label.Script.Type == Mission || a.Label.Script.Type == StreamedScript {
		// Cross-script references into missions are rejected upstream.
		if a.Label.Script != g.script {
			panic(fmt.Sprintf("scm: label %q referenced outside its owning script", a.Label.Name))
		}
		emitLocal(int32(a.Label.LocalOffset()))
	} else {
		g.i32(int32(a.Label.Offset()))
	}
}

func (a VarRef) size(Options) int {
	if a.Idx != nil {
		return 1 + 2 + 2 + 1 + 1
	}
	return 1 + 2
}

// scalarTag returns the type byte of the scalar (or constant-indexed)
// variable encoding.
func scalarTag(t VarType, global bool) byte {
	switch t {
	case VarInt, VarFloat:
		if global {
			return tagGlobal
		}
		return tagLocal
	case VarTextLabel:
		if global {
			return tagGlobalTL
		}
		return tagLocalTL
	case VarTextLabel16:
		if global {
			return tagGlobalTL16
		}
		return tagLocalTL16
	default:
		panic(fmt.Sprintf("scm: unknown var type %d", t))
	}
}

// arrayTag returns the type byte of the var-indexed array encoding.
func arrayTag(t VarType, global bool) byte {
	switch t {
	case VarInt, VarFloat:
		if global {
			return tagGlobalArray
		}
		return tagLocalArray
	case VarTextLabel:
		if global {
			return tagGlobalTLArray
		}
		return tagLocalTLArray
	case VarTextLabel16:
		if global {
			return tagGlobalTL16Array
		}
		return tagLocalTL16Array
	default:
		panic(fmt.Sprintf("scm: unknown var type %d", t))
	}
}

func (a VarRef) emit(g *CodeGen) {
	v := a.Var

	switch {
	case a.Idx == nil && !a.HasConst:
		g.u8(scalarTag(v.Type, v.Global))
		if v.Global {
			g.u16(check16(v.Offset, "global var offset"))
		} else {
			g.u16(check16(v.Index, "local var index"))
		}

	case a.Idx == nil:
		// Constant subscript folds into the base: globals are
		// byte-addressed (stride 4), locals are slot-addressed.
		g.u8(scalarTag(v.Type, v.Global))
		if v.Global {
			g.u16(check16(uint32(int64(v.Offset)+int64(a.Const)*4), "global var offset"))
		} else {
			g.u16(check16(uint32(int64(v.Index)+int64(a.Const)), "local var index"))
		}

	default:
		g.u8(arrayTag(v.Type, v.Global))
		if v.Global {
			g.u16(check16(v.Offset, "global var offset"))
		} else {
			g.u16(check16(v.Index, "local var index"))
		}
		if a.Idx.Global {
			g.u16(check16(a.Idx.Offset, "global index var offset"))
		} else {
			g.u16(check16(a.Idx.Index, "local index var index"))
		}
		g.u8(byte(v.Count))
		typeByte := byte(v.Type) & 0x7F
		if a.Idx.Global {
			typeByte |= 0x80
		}
		g.u8(typeByte)
	}
}

func (s String) size(opts Options) int {
	switch s.Kind {
	case TextLabel8:
		if opts.HasTextLabelPrefix {
			return 1 + 8
		}
		return 8
	case TextLabel16:
		return 1 + 16
	case StringVar:
		return 1 + 1 + len(s.Text)
	case String128:
		return 128
	default:
		panic(fmt.Sprintf("scm: unknown string kind %d", s.Kind))
	}
}

func (s String) emit(g *CodeGen) {
	switch s.Kind {
	case TextLabel8:
		if g.prog.Opt.HasTextLabelPrefix {
			g.u8(tagTextLabel8)
		}
		g.chars(8, s.Text)
	case TextLabel16:
		g.u8(tagTextLabel16)
		g.chars(16, s.Text)
	case StringVar:
		if len(s.Text) > 127 {
			panic(fmt.Sprintf("scm: string %q exceeds 127 chars", s.Text))
		}
		g.u8(tagStringVar)
		g.u8(byte(len(s.Text)))
		g.chars(len(s.Text), s.Text)
	case String128:
		g.chars(128, s.Text)
	default:
		panic(fmt.Sprintf("scm: unknown string kind %d", s.Kind))
	}
}
