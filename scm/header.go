package scm

import (
	"path/filepath"
	"strings"
)

// refAllocatedExternals is the allocated-externals count the original
// main.scm carries. Whether the engine requires it to match actual usage
// is unknown.
const refAllocatedExternals = 62

// CompiledScmHeader describes the main SCM header prelude: the global
// variable region, the model table, the mission layout and, on San Andreas,
// the streamed-scripts table.
//
// Each segment begins with a 7-byte "goto over data" record and a 1-byte
// segment id, so the engine can load the header without parsing its layout.
type CompiledScmHeader struct {
	Version        Version
	SizeGlobalVars uint32

	// Models holds the model names, 24 chars each, indexed from 1 in the
	// compiled table; slot 0 is reserved and left blank.
	Models []string

	// Scripts is the full script list of the image, in declaration order.
	Scripts []*Script

	// AllocatedExternals is written into the second unknown San Andreas
	// segment. Defaults to the value observed in the original main.scm.
	AllocatedExternals uint8
}

// NewCompiledScmHeader creates a header for the given target version.
func NewCompiledScmHeader(v Version, sizeGlobalVars uint32, scripts []*Script) *CompiledScmHeader {
	return &CompiledScmHeader{
		Version:            v,
		SizeGlobalVars:     sizeGlobalVars,
		Scripts:            scripts,
		AllocatedExternals: refAllocatedExternals,
	}
}

func (h *CompiledScmHeader) numMissions() int {
	n := 0
	for _, s := range h.Scripts {
		if s.Type == Mission {
			n++
		}
	}
	return n
}

func (h *CompiledScmHeader) numStreamed() int {
	n := 0
	for _, s := range h.Scripts {
		if s.Type == StreamedScript {
			n++
		}
	}
	return n
}

// CompiledSize returns the header's size in closed form. Emit writes
// exactly this many bytes.
func (h *CompiledScmHeader) CompiledSize() uint32 {
	sizeGlobals := h.SizeGlobalVars
	size := 8 + (sizeGlobals - 8) +
		8 + 4 + 24*uint32(1+len(h.Models)) +
		8 + 4 + 4 + 2 + 2 + 4*uint32(h.numMissions())
	if h.Version == SanAndreas {
		size += 4 +
			8 + 4 + 4 + 28*uint32(1+h.numStreamed()) +
			8 + 4 +
			8 + 4 + 1 + 1 + 2
	}
	return size
}

// headerGen emits the header prelude. Unlike script generation there is no
// separate sizing pass; CompiledSize is closed-form.
type headerGen struct {
	emitter
	prog  *Program
	segid uint8
}

// nextSegID returns the 1-byte segment id following each goto record.
// Monotonic from 0 on San Andreas; always 0 on Liberty and Miami.
func (g *headerGen) nextSegID(v Version) uint8 {
	if v == SanAndreas {
		id := g.segid
		g.segid++
		return id
	}
	return 0
}

// gotoRel writes the goto record that makes the engine skip the next
// skipBytes of segment data. The 8 covers the record itself plus the
// segment id byte that follows it.
func (g *headerGen) gotoRel(skipBytes int) {
	target := 8 + skipBytes + g.CurrentOffset()
	g.u16(0x0002)
	g.u8(1)
	g.i32(int32(target))
}

// Emit generates the header prelude. Every script in the header must have
// been sized by pass 1 and placed by layout.
func (h *CompiledScmHeader) Emit(prog *Program) []byte {
	g := &headerGen{prog: prog}
	g.setup(int(h.CompiledSize()))

	var (
		headSize            = h.CompiledSize()
		mainSize            = headSize
		multifileSize       = headSize
		largestMissionSize  uint32
		largestStreamedSize uint32
		missions            []*Script
		streameds           []*Script
	)

	var targetID byte
	switch h.Version {
	case Liberty:
		targetID = 0 // the original III main.scm doesn't use 'l' yet
	case Miami:
		targetID = 'm'
	case SanAndreas:
		targetID = 's'
	default:
		panic("scm: unknown header version")
	}

	for _, sc := range h.Scripts {
		switch sc.Type {
		case Mission:
			missions = append(missions, sc)
			multifileSize += sc.Size
			if largestMissionSize < sc.Size {
				largestMissionSize = sc.Size
			}
		case StreamedScript:
			streameds = append(streameds, sc)
			if largestStreamedSize < sc.Size {
				largestStreamedSize = sc.Size
			}
		default:
			mainSize += sc.Size
			multifileSize += sc.Size
		}
	}

	// Variables segment
	sizeGlobals := h.SizeGlobalVars
	g.gotoRel(int(sizeGlobals - 8))
	g.u8(targetID)
	g.fill(int(sizeGlobals-8), 0)

	// Models segment
	g.gotoRel(4 + 24*(1+len(h.Models)))
	g.u8(g.nextSegID(h.Version))
	g.u32(uint32(1 + len(h.Models)))
	g.chars(24, "")
	for _, model := range h.Models {
		g.chars(24, model)
	}

	// SCM info segment
	relOffset := 4 + 4 + 2 + 2 + 4*len(missions)
	if h.Version == SanAndreas {
		relOffset += 4
	}
	g.gotoRel(relOffset)
	g.u8(g.nextSegID(h.Version))
	g.u32(mainSize)
	g.u32(largestMissionSize)
	g.u16(uint16(len(missions)))
	g.u16(0) // number of exclusive missions, unused
	if h.Version == SanAndreas {
		g.u32(0) // highest number of locals used in missions, unused
	}
	for _, sc := range missions {
		g.i32(int32(sc.Offset))
	}

	// Streamed scripts segment
	if h.Version == SanAndreas {
		virtualOffset := multifileSize

		g.gotoRel(4 + 4 + 28*(1+len(streameds)))
		g.u8(g.nextSegID(h.Version))
		g.u32(largestStreamedSize)
		g.u32(uint32(1 + len(streameds)))

		for _, sc := range streameds {
			g.chars(20, upperStem(sc.Path))
			g.u32(virtualOffset)
			g.u32(sc.Size)
			virtualOffset += sc.Size
		}

		// Terminal AAA entry
		g.chars(20, "AAA")
		g.u32(0)
		g.u32(8)
	}

	// Unknown segment
	if h.Version == SanAndreas {
		g.gotoRel(4)
		g.u8(g.nextSegID(h.Version))
		g.u32(0)
	}

	// Unknown segment 2
	if h.Version == SanAndreas {
		g.gotoRel(4 + 1 + 1 + 2)
		g.u8(g.nextSegID(h.Version))
		g.u32(sizeGlobals - 8)
		g.u8(h.AllocatedExternals)
		g.u8(2)
		g.u16(0)
	}

	if g.off != len(g.buf) {
		panic("scm: header emitted size differs from CompiledSize")
	}
	return g.Buffer()
}

// upperStem returns the path's file name without extension, uppercased
// byte-wise. The transform is not UTF-8 aware; the table format predates
// any such concern and existing tooling expects the byte-wise behavior.
func upperStem(path string) string {
	name := filepath.Base(path)
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		name = name[:i]
	}
	b := []byte(name)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 'a' + 'A'
		}
	}
	return string(b)
}
