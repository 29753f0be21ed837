package grid

import (
	"image"
	"slices"
	"testing"

	"github.com/PhantomInTheWire/scansplit/pkg/canvas"
	"github.com/PhantomInTheWire/scansplit/pkg/layout"
	"github.com/PhantomInTheWire/scansplit/pkg/pixbuf"
)

func compose(t *testing.T, w, h int, spec layout.GridSpec) (*pixbuf.Buffer, layout.Layout) {
	t.Helper()
	l, err := layout.Compute(w, h, spec)
	if err != nil {
		t.Fatalf("Compute(%d, %d): %v", w, h, err)
	}
	orig := pixbuf.New(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			orig.SetPixel(x, y, [pixbuf.Channels]uint8{uint8(x), uint8(y), uint8(x ^ y)})
		}
	}
	c, err := canvas.Compose(orig, l)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	return c, l
}

type cell struct{ col, row int }

func cells(tiles []Tile, v Variant) []cell {
	var out []cell
	for _, t := range tiles {
		if t.Variant == v {
			out = append(out, cell{t.Column, t.Row})
		}
	}
	return out
}

func TestSplitExactMultiple(t *testing.T) {
	c, l := compose(t, 256, 256, layout.GridSpec{SubjectWidth: 128, SubjectHeight: 128, ExactFit: true})
	tiles := slices.Collect(Split(c, l, "scan"))

	wantAligned := []cell{{1, 1}, {2, 1}, {1, 2}, {2, 2}}
	if got := cells(tiles, Aligned); !slices.Equal(got, wantAligned) {
		t.Errorf("aligned tiles = %v, want %v", got, wantAligned)
	}

	var wantOffset []cell
	for row := 1; row <= 3; row++ {
		for col := 1; col <= 3; col++ {
			wantOffset = append(wantOffset, cell{col, row})
		}
	}
	if got := cells(tiles, Offset); !slices.Equal(got, wantOffset) {
		t.Errorf("offset tiles = %v, want %v", got, wantOffset)
	}

	// The middle offset tile is centred on the image.
	for _, tile := range tiles {
		if tile.Variant == Offset && tile.Row == 2 && tile.Column == 2 {
			if want := image.Rect(192, 192, 320, 320); tile.Rect != want {
				t.Errorf("centre offset tile at %v, want %v", tile.Rect, want)
			}
		}
	}
	if len(tiles) != Count(l) {
		t.Errorf("Split yielded %d tiles, Count = %d", len(tiles), Count(l))
	}
}

func TestSplitDefaultGutters(t *testing.T) {
	c, l := compose(t, 256, 256, layout.GridSpec{SubjectWidth: 128, SubjectHeight: 128})
	tiles := slices.Collect(Split(c, l, "scan"))
	if n := len(cells(tiles, Aligned)); n != 9 {
		t.Errorf("aligned tiles = %d, want 9", n)
	}
	if n := len(cells(tiles, Offset)); n != 16 {
		t.Errorf("offset tiles = %d, want 16", n)
	}
}

func TestSplitTilesAreViews(t *testing.T) {
	specs := []layout.GridSpec{
		{SubjectWidth: 16, SubjectHeight: 16},
		{SubjectWidth: 7, SubjectHeight: 5},
		{SubjectWidth: 9, SubjectHeight: 12, ExactFit: true},
	}
	for _, spec := range specs {
		c, l := compose(t, 45, 37, spec)
		n := 0
		for tile := range Split(c, l, "x") {
			n++
			if tile.Pixels.Width != spec.SubjectWidth || tile.Pixels.Height != spec.SubjectHeight {
				t.Fatalf("%+v: tile %s is %dx%d", spec, tile.Name(), tile.Pixels.Width, tile.Pixels.Height)
			}
			if tile.Rect.Dx() != spec.SubjectWidth || tile.Rect.Dy() != spec.SubjectHeight {
				t.Fatalf("%+v: tile %s rect %v", spec, tile.Name(), tile.Rect)
			}
			if !tile.Pixels.Equal(c.Sub(tile.Rect)) {
				t.Fatalf("%+v: tile %s pixels differ from canvas", spec, tile.Name())
			}
		}
		if n != Count(l) {
			t.Errorf("%+v: Split yielded %d tiles, Count = %d", spec, n, Count(l))
		}
	}
}

func TestSplitCoversOriginal(t *testing.T) {
	specs := []layout.GridSpec{
		{SubjectWidth: 8, SubjectHeight: 8},
		{SubjectWidth: 8, SubjectHeight: 8, ExactFit: true},
		{SubjectWidth: 5, SubjectHeight: 11},
	}
	for _, spec := range specs {
		c, l := compose(t, 33, 24, spec)
		var aligned, offset []image.Rectangle
		for tile := range Split(c, l, "x") {
			if tile.Variant == Aligned {
				aligned = append(aligned, tile.Rect)
			} else {
				offset = append(offset, tile.Rect)
			}
		}
		orig := l.OriginalRect()
		for y := orig.Min.Y; y < orig.Max.Y; y++ {
			for x := orig.Min.X; x < orig.Max.X; x++ {
				p := image.Pt(x, y)
				if !covered(p, aligned) {
					t.Fatalf("%+v: %v not in any aligned tile", spec, p)
				}
				if !covered(p, offset) {
					t.Fatalf("%+v: %v not in any offset tile", spec, p)
				}
			}
		}
	}
}

func covered(p image.Point, rects []image.Rectangle) bool {
	for _, r := range rects {
		if p.In(r) {
			return true
		}
	}
	return false
}

func TestSplitStopsEarly(t *testing.T) {
	c, l := compose(t, 64, 64, layout.GridSpec{SubjectWidth: 16, SubjectHeight: 16})
	n := 0
	for range Split(c, l, "x") {
		n++
		if n == 3 {
			break
		}
	}
	if n != 3 {
		t.Errorf("consumed %d tiles, want 3", n)
	}
}

func TestTileName(t *testing.T) {
	tests := []struct {
		tile Tile
		want string
	}{
		{Tile{ImageID: "MoEDAL_001", Variant: Aligned, Row: 2, Column: 11}, "MoEDAL_001_A_11_02.png"},
		{Tile{ImageID: "scan", Variant: Offset, Row: 1, Column: 3}, "scan_B_03_01.png"},
	}
	for _, tt := range tests {
		if got := tt.tile.Name(); got != tt.want {
			t.Errorf("Name() = %q, want %q", got, tt.want)
		}
	}
	if got := Variant(5).String(); got != "Variant(5)" {
		t.Errorf("unknown variant String() = %q", got)
	}
}
