// Package storage writes tiles to their destination: a local directory, an
// S3-compatible bucket, or both.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/PhantomInTheWire/scansplit/pkg/grid"
)

// ErrOutput reports a destination that cannot be written. It aborts a run.
var ErrOutput = errors.New("output error")

// Sink receives tiles as the splitter produces them. The tile's pixels are
// only valid for the duration of the call.
type Sink interface {
	Save(ctx context.Context, t grid.Tile) error
}

// Locator is implemented by sinks that can name where their tiles end up.
type Locator interface {
	Location() string
}

// Location names the destination of s, falling back to its type.
func Location(s Sink) string {
	if l, ok := s.(Locator); ok {
		return l.Location()
	}
	return fmt.Sprintf("%T", s)
}

// DirSink writes each tile as a PNG file in a flat directory.
type DirSink struct {
	dir string
}

// NewDirSink checks that dir exists and is writable.
func NewDirSink(dir string) (*DirSink, error) {
	fi, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %q output directory does not exist: %v", ErrOutput, dir, err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("%w: %q is not a directory", ErrOutput, dir)
	}
	probe, err := os.CreateTemp(dir, ".scansplit-*")
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not writable: %v", ErrOutput, dir, err)
	}
	closeErr := probe.Close()
	if err := os.Remove(probe.Name()); err != nil {
		return nil, fmt.Errorf("%w: remove write check %s: %v", ErrOutput, probe.Name(), err)
	}
	if closeErr != nil {
		return nil, fmt.Errorf("%w: %q is not writable: %v", ErrOutput, dir, closeErr)
	}
	return &DirSink{dir: dir}, nil
}

// Dir returns the output directory.
func (s *DirSink) Dir() string { return s.dir }

// Location is the absolute output directory.
func (s *DirSink) Location() string {
	if abs, err := filepath.Abs(s.dir); err == nil {
		return abs
	}
	return s.dir
}

func (s *DirSink) Save(ctx context.Context, t grid.Tile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := filepath.Join(s.dir, t.Name())
	if err := imaging.Save(t.Pixels.NRGBA(), path); err != nil {
		return fmt.Errorf("%w: save %s: %v", ErrOutput, path, err)
	}
	return nil
}

// Multi hands every tile to each sink in turn, stopping at the first error.
type Multi []Sink

func (m Multi) Location() string {
	locs := make([]string, len(m))
	for i, s := range m {
		locs[i] = Location(s)
	}
	return strings.Join(locs, ",")
}

func (m Multi) Save(ctx context.Context, t grid.Tile) error {
	for _, s := range m {
		if err := s.Save(ctx, t); err != nil {
			return err
		}
	}
	return nil
}
