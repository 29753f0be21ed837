// Package canvas builds the padded image that the grid splitter cuts.
package canvas

import (
	"fmt"
	"image"

	"github.com/PhantomInTheWire/scansplit/pkg/layout"
	"github.com/PhantomInTheWire/scansplit/pkg/pixbuf"
)

const (
	// GutterGrey fills the gutters next to the real image.
	GutterGrey uint8 = 256 - 64
	// PaddingGrey fills the ring of padding tiles around the gutters.
	PaddingGrey uint8 = 255
)

func grey(v uint8) [pixbuf.Channels]uint8 {
	return [pixbuf.Channels]uint8{v, v, v}
}

// Compose returns a new canvas of l.CanvasWidth() x l.CanvasHeight() holding
// original surrounded by its gutters and one subject size of padding.
// original is left untouched.
func Compose(original *pixbuf.Buffer, l layout.Layout) (*pixbuf.Buffer, error) {
	if original.Width != l.OriginalWidth() || original.Height != l.OriginalHeight() {
		return nil, fmt.Errorf("%w: image is %dx%d, layout expects %dx%d",
			layout.ErrLayout, original.Width, original.Height, l.OriginalWidth(), l.OriginalHeight())
	}

	c := pixbuf.New(l.CanvasWidth(), l.CanvasHeight())
	c.Fill(c.Bounds(), grey(PaddingGrey))

	content := l.ContentRect()
	orig := l.OriginalRect()
	g := grey(GutterGrey)
	// left, right, top, bottom
	c.Fill(image.Rect(content.Min.X, orig.Min.Y, orig.Min.X, orig.Max.Y), g)
	c.Fill(image.Rect(orig.Max.X, orig.Min.Y, content.Max.X, orig.Max.Y), g)
	c.Fill(image.Rect(content.Min.X, content.Min.Y, content.Max.X, orig.Min.Y), g)
	c.Fill(image.Rect(content.Min.X, orig.Max.Y, content.Max.X, content.Max.Y), g)

	c.Paste(original, orig.Min)
	return c, nil
}
