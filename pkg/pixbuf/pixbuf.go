// Package pixbuf holds 8-bit RGB images in a flat strided buffer whose
// sub-rectangles are views rather than copies.
package pixbuf

import (
	"image"

	"github.com/disintegration/imaging"
)

// Channels is the number of 8-bit samples stored per pixel (R, G, B).
const Channels = 3

// Buffer is an RGB pixel buffer indexed [row][column][channel]. Rows are
// Stride bytes apart, which lets Sub return views that share Pix with the
// buffer they were cut from.
type Buffer struct {
	Width  int
	Height int
	Stride int
	Pix    []uint8
}

// New allocates a zeroed buffer of the given size.
func New(width, height int) *Buffer {
	return &Buffer{
		Width:  width,
		Height: height,
		Stride: width * Channels,
		Pix:    make([]uint8, width*height*Channels),
	}
}

// Bounds returns the buffer rectangle, always anchored at the origin.
func (b *Buffer) Bounds() image.Rectangle {
	return image.Rect(0, 0, b.Width, b.Height)
}

func (b *Buffer) offset(x, y int) int {
	return y*b.Stride + x*Channels
}

// Pixel returns the samples at column x, row y.
func (b *Buffer) Pixel(x, y int) [Channels]uint8 {
	i := b.offset(x, y)
	return [Channels]uint8{b.Pix[i], b.Pix[i+1], b.Pix[i+2]}
}

// SetPixel writes the samples at column x, row y. Out of range writes are ignored.
func (b *Buffer) SetPixel(x, y int, v [Channels]uint8) {
	if x < 0 || x >= b.Width || y < 0 || y >= b.Height {
		return
	}
	i := b.offset(x, y)
	copy(b.Pix[i:i+Channels], v[:])
}

// Fill sets every pixel of r (clipped to the buffer) to v.
func (b *Buffer) Fill(r image.Rectangle, v [Channels]uint8) {
	r = r.Intersect(b.Bounds())
	if r.Empty() {
		return
	}
	// Fill the first row, then replicate it.
	first := b.Pix[b.offset(r.Min.X, r.Min.Y):b.offset(r.Max.X, r.Min.Y)]
	for i := 0; i < len(first); i += Channels {
		copy(first[i:i+Channels], v[:])
	}
	for y := r.Min.Y + 1; y < r.Max.Y; y++ {
		copy(b.Pix[b.offset(r.Min.X, y):b.offset(r.Max.X, y)], first)
	}
}

// Paste copies src into b with its top-left corner at p, clipped to b.
func (b *Buffer) Paste(src *Buffer, p image.Point) {
	dst := src.Bounds().Add(p).Intersect(b.Bounds())
	if dst.Empty() {
		return
	}
	sx, sy := dst.Min.X-p.X, dst.Min.Y-p.Y
	n := dst.Dx() * Channels
	for y := 0; y < dst.Dy(); y++ {
		si := src.offset(sx, sy+y)
		copy(b.Pix[b.offset(dst.Min.X, dst.Min.Y+y):], src.Pix[si:si+n])
	}
}

// Sub returns a view of r (clipped to the buffer). The view shares pixel
// memory with b; writes through either are visible in both.
func (b *Buffer) Sub(r image.Rectangle) *Buffer {
	r = r.Intersect(b.Bounds())
	if r.Empty() {
		return &Buffer{Stride: b.Stride}
	}
	start := b.offset(r.Min.X, r.Min.Y)
	end := b.offset(r.Max.X-1, r.Max.Y-1) + Channels
	return &Buffer{
		Width:  r.Dx(),
		Height: r.Dy(),
		Stride: b.Stride,
		Pix:    b.Pix[start:end:end],
	}
}

// Clone returns a compact copy of b that shares no memory with it.
func (b *Buffer) Clone() *Buffer {
	c := New(b.Width, b.Height)
	c.Paste(b, image.Point{})
	return c
}

// Equal reports whether a and b hold the same pixels.
func (b *Buffer) Equal(o *Buffer) bool {
	if b.Width != o.Width || b.Height != o.Height {
		return false
	}
	n := b.Width * Channels
	for y := 0; y < b.Height; y++ {
		bi, oi := b.offset(0, y), o.offset(0, y)
		if string(b.Pix[bi:bi+n]) != string(o.Pix[oi:oi+n]) {
			return false
		}
	}
	return true
}

// FromImage converts any decoded image to an RGB buffer. Alpha is dropped.
func FromImage(img image.Image) *Buffer {
	src := imaging.Clone(img)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	b := New(w, h)
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+w*4]
		dst := b.Pix[b.offset(0, y):]
		for x := 0; x < w; x++ {
			copy(dst[x*Channels:x*Channels+Channels], row[x*4:x*4+3])
		}
	}
	return b
}

// NRGBA converts the buffer to an opaque image suitable for encoding.
func (b *Buffer) NRGBA() *image.NRGBA {
	img := image.NewNRGBA(b.Bounds())
	for y := 0; y < b.Height; y++ {
		src := b.Pix[b.offset(0, y):]
		dst := img.Pix[y*img.Stride:]
		for x := 0; x < b.Width; x++ {
			copy(dst[x*4:x*4+3], src[x*Channels:x*Channels+Channels])
			dst[x*4+3] = 0xff
		}
	}
	return img
}
