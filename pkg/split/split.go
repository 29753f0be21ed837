// Package split runs the load, layout, compose, cut and save pipeline over
// a batch of scans.
package split

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/PhantomInTheWire/scansplit/pkg/canvas"
	"github.com/PhantomInTheWire/scansplit/pkg/grid"
	"github.com/PhantomInTheWire/scansplit/pkg/layout"
	"github.com/PhantomInTheWire/scansplit/pkg/ledger"
	"github.com/PhantomInTheWire/scansplit/pkg/source"
	"github.com/PhantomInTheWire/scansplit/pkg/storage"
)

// Image splits the scan at path and hands every tile to sink. It returns the
// layout used and the number of tiles saved. Nothing is saved unless the
// image decodes and its layout and canvas are consistent.
func Image(ctx context.Context, img source.Image, spec layout.GridSpec, sink storage.Sink) (layout.Layout, int, error) {
	buf, err := source.Load(img.Path)
	if err != nil {
		return layout.Layout{}, 0, err
	}
	l, err := layout.Compute(buf.Width, buf.Height, spec)
	if err != nil {
		return layout.Layout{}, 0, err
	}
	c, err := canvas.Compose(buf, l)
	if err != nil {
		return l, 0, err
	}

	n := 0
	for t := range grid.Split(c, l, img.ID) {
		if err := ctx.Err(); err != nil {
			return l, n, err
		}
		if err := sink.Save(ctx, t); err != nil {
			return l, n, fmt.Errorf("tile %s: %w", t.Name(), err)
		}
		n++
	}
	return l, n, nil
}

// Runner splits a batch of scans with a bounded pool of workers. Each worker
// owns one image at a time; a failed image is logged and skipped, while an
// output error stops the whole run.
type Runner struct {
	spec    layout.GridSpec
	sink    storage.Sink
	dest    string
	workers int
	log     *slog.Logger
	ledger  ledger.Ledger
}

// Option configures a Runner.
type Option func(*Runner)

// WithWorkers bounds the number of images processed at once.
func WithWorkers(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithLogger sets the logger; by default the runner is silent.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.log = l
		}
	}
}

// WithLedger skips images the ledger reports as done and records those
// that complete. Entries are kept per grid spec and destination.
func WithLedger(l ledger.Ledger) Option {
	return func(r *Runner) { r.ledger = l }
}

// NewRunner validates spec and returns a runner writing to sink.
func NewRunner(spec layout.GridSpec, sink storage.Sink, opts ...Option) (*Runner, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	r := &Runner{
		spec:    spec,
		sink:    sink,
		dest:    storage.Location(sink),
		workers: runtime.NumCPU(),
		log:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run processes images and reports what happened to each of them. The
// returned error is non-nil only when the run was aborted.
func (r *Runner) Run(ctx context.Context, images []source.Image) (*Report, error) {
	outcomes := make([]Outcome, len(images))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for i, img := range images {
		g.Go(func() error {
			outcomes[i] = r.process(gctx, img)
			if errors.Is(outcomes[i].Err, storage.ErrOutput) {
				return outcomes[i].Err
			}
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	return newReport(outcomes), err
}

func (r *Runner) process(ctx context.Context, img source.Image) Outcome {
	o := Outcome{ImageID: img.ID, Path: img.Path}
	if err := ctx.Err(); err != nil {
		o.Err = err
		return o
	}
	log := r.log.With("image", img.ID)

	key := ledger.Key(img.ID, r.spec, r.dest)
	if r.ledger != nil {
		done, err := r.ledger.Completed(ctx, key)
		if err != nil {
			log.Warn("ledger lookup failed", "err", err)
		} else if done {
			log.Info("already split, skipping")
			o.Skipped = true
			return o
		}
	}

	l, n, err := Image(ctx, img, r.spec, r.sink)
	o.Tiles = n
	if err != nil {
		o.Err = err
		log.Error("split failed", "err", err, "tiles", n)
		return o
	}
	logLayout(log, l)
	log.Info("split", "tiles", n)

	if r.ledger != nil {
		if err := r.ledger.MarkCompleted(ctx, key, n); err != nil {
			log.Warn("ledger update failed", "err", err)
		}
	}
	return o
}

func logLayout(log *slog.Logger, l layout.Layout) {
	if !log.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	log.Debug("original", "width", l.OriginalWidth(), "height", l.OriginalHeight())
	log.Debug("gutters",
		"left", l.LeftGutter(), "right", l.RightGutter(),
		"top", l.TopGutter(), "bottom", l.BottomGutter())
	log.Debug("canvas", "width", l.CanvasWidth(), "height", l.CanvasHeight())
	log.Debug("aligned grid",
		"rows", l.Rows.AlignedCount, "row_limits", l.Rows.Aligned,
		"columns", l.Columns.AlignedCount, "column_limits", l.Columns.Aligned)
	log.Debug("offset grid",
		"rows", l.Rows.OffsetCount, "row_limits", l.Rows.Offset,
		"columns", l.Columns.OffsetCount, "column_limits", l.Columns.Offset)
}
