// Package layout derives the gutter, padding and grid boundary arithmetic
// used to cut a scan into subject tiles.
//
// Along each axis the original image is widened by a grey gutter until it is
// an exact multiple of the subject size, then surrounded by one subject size
// of padding on both sides. Two grids are cut from the result: one aligned to
// the canvas origin and one shifted by half a subject.
package layout

import (
	"errors"
	"fmt"
	"image"
)

var (
	// ErrConfig reports an unusable grid specification.
	ErrConfig = errors.New("invalid grid configuration")
	// ErrLayout reports an image whose layout cannot be derived consistently.
	ErrLayout = errors.New("inconsistent layout")
)

// GridSpec is the subject tile size shared by every image of a run.
type GridSpec struct {
	SubjectWidth  int
	SubjectHeight int

	// ExactFit drops the extra tile of gutter that is otherwise added when
	// an image side is already a multiple of the subject size.
	ExactFit bool
}

// Validate checks that both subject dimensions are positive.
func (g GridSpec) Validate() error {
	if g.SubjectWidth <= 0 || g.SubjectHeight <= 0 {
		return fmt.Errorf("%w: subject size %dx%d must be positive", ErrConfig, g.SubjectWidth, g.SubjectHeight)
	}
	return nil
}

// Axis holds the derived sizes and boundaries along one direction.
// For the horizontal axis Leading and Trailing are the left and right
// gutters; for the vertical axis they are the top and bottom gutters.
type Axis struct {
	Original int
	Subject  int
	Leading  int
	Trailing int
	Canvas   int

	// Aligned boundaries are S, 2S, ... below Canvas. They cut the canvas
	// into AlignedCount bands, the first and last of which are padding.
	Aligned      []int
	AlignedCount int

	// Offset boundaries are S/2, S/2+S, ... below Canvas. Between the
	// leading half band and the trailing partial band lie OffsetCount full
	// bands.
	Offset      []int
	OffsetCount int
}

// Content is the size of the original plus both gutters.
func (a Axis) Content() int { return a.Original + a.Leading + a.Trailing }

// Tiles is the number of subject tiles spanning the content.
func (a Axis) Tiles() int { return a.Content() / a.Subject }

// Start is the canvas coordinate of the first original pixel.
func (a Axis) Start() int { return a.Subject + a.Leading }

func computeAxis(name string, original, subject int, exact bool) (Axis, error) {
	if original <= 0 {
		return Axis{}, fmt.Errorf("%w: image %s size %d", ErrLayout, name, original)
	}
	if subject > original {
		return Axis{}, fmt.Errorf("%w: subject %s %d exceeds image %s %d", ErrLayout, name, subject, name, original)
	}

	rem := subject - original%subject
	if exact && rem == subject {
		rem = 0
	}
	a := Axis{
		Original: original,
		Subject:  subject,
		Leading:  rem / 2,
		Trailing: rem - rem/2, // odd remainders put the extra pixel last
	}
	a.Canvas = a.Content() + 2*subject
	a.Aligned = progression(subject, subject, a.Canvas)
	a.Offset = progression(subject/2, subject, a.Canvas)
	a.AlignedCount = a.Tiles() + 2
	a.OffsetCount = a.Tiles() + 1

	return a, a.validate(name)
}

func progression(start, step, limit int) []int {
	var out []int
	for v := start; v < limit; v += step {
		out = append(out, v)
	}
	return out
}

func (a Axis) validate(name string) error {
	switch {
	case a.Subject <= 0:
		return fmt.Errorf("%w: %s subject size %d", ErrLayout, name, a.Subject)
	case a.Content()%a.Subject != 0:
		return fmt.Errorf("%w: %s content %d is not a multiple of %d", ErrLayout, name, a.Content(), a.Subject)
	case a.Canvas != a.Content()+2*a.Subject:
		return fmt.Errorf("%w: %s canvas %d, want %d", ErrLayout, name, a.Canvas, a.Content()+2*a.Subject)
	case a.AlignedCount != len(a.Aligned)+1:
		return fmt.Errorf("%w: %d %ss, %d aligned boundaries", ErrLayout, a.AlignedCount, name, len(a.Aligned))
	case a.OffsetCount != len(a.Offset)-1:
		return fmt.Errorf("%w: %d offset %ss, %d offset boundaries", ErrLayout, a.OffsetCount, name, len(a.Offset))
	}
	return nil
}

// Layout is the per-image geometry shared by the compositor and the splitter.
type Layout struct {
	Columns Axis
	Rows    Axis
}

// Compute derives the layout of an originalWidth x originalHeight image.
func Compute(originalWidth, originalHeight int, spec GridSpec) (Layout, error) {
	if err := spec.Validate(); err != nil {
		return Layout{}, err
	}
	cols, err := computeAxis("column", originalWidth, spec.SubjectWidth, spec.ExactFit)
	if err != nil {
		return Layout{}, err
	}
	rows, err := computeAxis("row", originalHeight, spec.SubjectHeight, spec.ExactFit)
	if err != nil {
		return Layout{}, err
	}
	return Layout{Columns: cols, Rows: rows}, nil
}

// Validate rechecks the invariants of both axes.
func (l Layout) Validate() error {
	if err := l.Columns.validate("column"); err != nil {
		return err
	}
	return l.Rows.validate("row")
}

func (l Layout) OriginalWidth() int  { return l.Columns.Original }
func (l Layout) OriginalHeight() int { return l.Rows.Original }
func (l Layout) LeftGutter() int     { return l.Columns.Leading }
func (l Layout) RightGutter() int    { return l.Columns.Trailing }
func (l Layout) TopGutter() int      { return l.Rows.Leading }
func (l Layout) BottomGutter() int   { return l.Rows.Trailing }
func (l Layout) CanvasWidth() int    { return l.Columns.Canvas }
func (l Layout) CanvasHeight() int   { return l.Rows.Canvas }

// OriginalRect is where the original image sits on the canvas.
func (l Layout) OriginalRect() image.Rectangle {
	x, y := l.Columns.Start(), l.Rows.Start()
	return image.Rect(x, y, x+l.Columns.Original, y+l.Rows.Original)
}

// ContentRect is the original plus its gutters, on the canvas.
func (l Layout) ContentRect() image.Rectangle {
	x, y := l.Columns.Subject, l.Rows.Subject
	return image.Rect(x, y, x+l.Columns.Content(), y+l.Rows.Content())
}
