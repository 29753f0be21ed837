// Package source finds scan images on disk and decodes them.
package source

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/PhantomInTheWire/scansplit/pkg/pixbuf"
)

// DefaultPattern matches the scan files written by the scanning station.
const DefaultPattern = "MoEDAL*.png"

// ErrInput reports a missing input directory or an unusable image file.
var ErrInput = errors.New("input error")

// Image is a scan waiting to be split.
type Image struct {
	ID   string
	Path string
}

// ImageID is the file name without its extension.
func ImageID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Discover lists the files in dir matching pattern, sorted by path.
func Discover(dir, pattern string) ([]Image, error) {
	fi, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: unable to find data at %q: %v", ErrInput, dir, err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("%w: %q is not a directory", ErrInput, dir)
	}

	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("%w: pattern %q: %v", ErrInput, pattern, err)
	}
	sort.Strings(matches)

	images := make([]Image, 0, len(matches))
	for _, m := range matches {
		if fi, err := os.Stat(m); err == nil && fi.IsDir() {
			continue
		}
		images = append(images, Image{ID: ImageID(m), Path: m})
	}
	return images, nil
}

// Load decodes the image at path into an RGB buffer.
func Load(path string) (*pixbuf.Buffer, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInput, err)
	}
	return pixbuf.FromImage(img), nil
}
