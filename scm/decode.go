package scm

import (
	"fmt"
	"math"
)

// reader wraps a byte slice with a position cursor. It decodes just enough
// of the instruction stream for the round-trip tests to verify emitted
// buffers against their source IR; the full decompiler lives elsewhere in
// the toolchain.
type reader struct {
	data []byte
	pos  int
}

func (r *reader) remaining() int {
	return len(r.data) - r.pos
}

func (r *reader) readByte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, fmt.Errorf("unexpected EOF at offset %d", r.pos)
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *reader) readBytes(n int) ([]byte, error) {
	if r.pos+n > len(r.data) {
		return nil, fmt.Errorf("unexpected EOF: need %d bytes at offset %d", n, r.pos)
	}
	b := make([]byte, n)
	copy(b, r.data[r.pos:r.pos+n])
	r.pos += n
	return b, nil
}

func (r *reader) readU16() (uint16, error) {
	b, err := r.readBytes(2)
	if err != nil {
		return 0, err
	}
	return uint16(b[0]) | uint16(b[1])<<8, nil
}

func (r *reader) readU32() (uint32, error) {
	b, err := r.readBytes(4)
	if err != nil {
		return 0, err
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24, nil
}

// readArg decodes one tagged scalar argument. Label references decode as
// Int32 carrying the encoded offset; variable references and untagged
// string forms are compared byte-wise by the tests instead.
func (r *reader) readArg() (Arg, error) {
	tag, err := r.readByte()
	if err != nil {
		return nil, err
	}
	switch tag {
	case tagEOAL:
		return EOAL{}, nil
	case tagInt8:
		b, err := r.readByte()
		if err != nil {
			return nil, err
		}
		return Int8(b), nil
	case tagInt16:
		v, err := r.readU16()
		if err != nil {
			return nil, err
		}
		return Int16(v), nil
	case tagInt32:
		v, err := r.readU32()
		if err != nil {
			return nil, err
		}
		return Int32(v), nil
	case tagFloat:
		v, err := r.readU32()
		if err != nil {
			return nil, err
		}
		return Float(math.Float32frombits(v)), nil
	case tagStringVar:
		n, err := r.readByte()
		if err != nil {
			return nil, err
		}
		b, err := r.readBytes(int(n))
		if err != nil {
			return nil, err
		}
		return String{Kind: StringVar, Text: string(b)}, nil
	default:
		return nil, fmt.Errorf("unhandled argument tag 0x%02X at offset %d", tag, r.pos-1)
	}
}
