package scm

import (
	"context"
	"log"

	"github.com/davecgh/go-spew/spew"
	"golang.org/x/sync/errgroup"
)

// Unit is one script's generated bytecode.
type Unit struct {
	Script *Script
	Bytes  []byte
}

// Image is the result of a whole compilation: the header prelude, every
// script's bytecode in declaration order, and the finalized offset map for
// downstream consumers (file writer, CD-image packer).
type Image struct {
	Header  []byte
	Units   []Unit
	Offsets map[*Script]uint32
}

// Compile drives code generation across all scripts: pass 1 in declaration
// order, absolute-offset layout, pass 2 in parallel, then the header.
//
// Pass 1 runs sequentially because it writes label records that may be
// shared by reference across units; pass 2 reads only immutable data and
// runs one goroutine per script. Cancelling ctx abandons the remaining
// generators between scripts.
func Compile(ctx context.Context, prog *Program, units []ScriptCompilation, header *CompiledScmHeader) (*Image, error) {
	gens := make([]*CodeGen, len(units))
	for i, unit := range units {
		gens[i] = NewCodeGen(prog, unit)
		size := gens[i].ResolveSizes()
		if prog.Verbose {
			log.Printf("sized %s script %s: %d bytes", unit.Script.Type, unit.Script.Path, size)
			spew.Fdump(prog.output(), unit.IR)
		}
	}

	layout(header.CompiledSize(), units)

	image := &Image{
		Units:   make([]Unit, len(units)),
		Offsets: make(map[*Script]uint32, len(units)),
	}
	for _, unit := range units {
		image.Offsets[unit.Script] = unit.Script.Offset
	}

	g, ctx := errgroup.WithContext(ctx)
	for i := range gens {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			image.Units[i] = Unit{Script: gens[i].Script(), Bytes: gens[i].Emit()}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	image.Header = header.Emit(prog)
	if prog.Verbose {
		log.Printf("generated %s header: %d bytes, %d scripts", header.Version, len(image.Header), len(units))
	}
	return image, nil
}

// layout assigns absolute offsets: the main image is the header followed by
// the main and extension scripts, missions are packed after it into the
// multi-file image, and streamed scripts are packaged individually.
func layout(headerSize uint32, units []ScriptCompilation) {
	offset := headerSize
	for _, unit := range units {
		sc := unit.Script
		if sc.Type == Mission || sc.Type == StreamedScript {
			continue
		}
		sc.Offset = offset
		offset += sc.Size
	}
	for _, unit := range units {
		sc := unit.Script
		switch sc.Type {
		case Mission:
			sc.Offset = offset
			offset += sc.Size
		case StreamedScript:
			sc.Offset = 0
		}
	}
}
