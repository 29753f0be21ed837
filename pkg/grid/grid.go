// Package grid cuts a composed canvas into the aligned and offset tile sets.
package grid

import (
	"fmt"
	"image"
	"iter"

	"github.com/PhantomInTheWire/scansplit/pkg/layout"
	"github.com/PhantomInTheWire/scansplit/pkg/pixbuf"
)

// Variant tells the two interleaved grids apart.
type Variant int

const (
	// Aligned tiles start at multiples of the subject size.
	Aligned Variant = iota
	// Offset tiles are shifted by half a subject on both axes.
	Offset
)

func (v Variant) String() string {
	switch v {
	case Aligned:
		return "A"
	case Offset:
		return "B"
	}
	return fmt.Sprintf("Variant(%d)", int(v))
}

// Tile is one subject-sized cut of a canvas. Pixels is a view into the
// canvas and is only valid while the canvas is.
type Tile struct {
	ImageID string
	Variant Variant
	Row     int
	Column  int
	Rect    image.Rectangle
	Pixels  *pixbuf.Buffer
}

// Name is the output file name of the tile.
func (t Tile) Name() string {
	return fmt.Sprintf("%s_%s_%02d_%02d.png", t.ImageID, t.Variant, t.Column, t.Row)
}

type span struct{ lo, hi int }

// bands cuts [0, size) at the given boundaries.
func bands(bounds []int, size int) []span {
	out := make([]span, 0, len(bounds)+1)
	lo := 0
	for _, b := range bounds {
		out = append(out, span{lo, b})
		lo = b
	}
	return append(out, span{lo, size})
}

func alignedKeep(count int) func(int) bool {
	return func(i int) bool { return i != 0 && i != count-1 }
}

func offsetKeep(count int) func(int) bool {
	return func(i int) bool { return i > 0 && i <= count }
}

// Split yields the interior tiles of the aligned grid, then those of the
// offset grid, each in row-major order. The border ring of each grid is
// skipped. l must be the layout canvas was composed with.
func Split(canvas *pixbuf.Buffer, l layout.Layout, imageID string) iter.Seq[Tile] {
	return func(yield func(Tile) bool) {
		if !walk(canvas, imageID, Aligned,
			bands(l.Rows.Aligned, canvas.Height), alignedKeep(l.Rows.AlignedCount),
			bands(l.Columns.Aligned, canvas.Width), alignedKeep(l.Columns.AlignedCount),
			yield) {
			return
		}
		walk(canvas, imageID, Offset,
			bands(l.Rows.Offset, canvas.Height), offsetKeep(l.Rows.OffsetCount),
			bands(l.Columns.Offset, canvas.Width), offsetKeep(l.Columns.OffsetCount),
			yield)
	}
}

func walk(canvas *pixbuf.Buffer, imageID string, v Variant,
	rows []span, keepRow func(int) bool,
	cols []span, keepCol func(int) bool,
	yield func(Tile) bool) bool {
	for j, r := range rows {
		if !keepRow(j) {
			continue
		}
		for i, c := range cols {
			if !keepCol(i) {
				continue
			}
			rect := image.Rect(c.lo, r.lo, c.hi, r.hi)
			t := Tile{
				ImageID: imageID,
				Variant: v,
				Row:     j,
				Column:  i,
				Rect:    rect,
				Pixels:  canvas.Sub(rect),
			}
			if !yield(t) {
				return false
			}
		}
	}
	return true
}

// Count is the number of tiles Split yields for l.
func Count(l layout.Layout) int {
	aligned := (l.Rows.AlignedCount - 2) * (l.Columns.AlignedCount - 2)
	return aligned + l.Rows.OffsetCount*l.Columns.OffsetCount
}
