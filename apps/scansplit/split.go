package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/PhantomInTheWire/scansplit/pkg/config"
	"github.com/PhantomInTheWire/scansplit/pkg/ledger"
	"github.com/PhantomInTheWire/scansplit/pkg/source"
	"github.com/PhantomInTheWire/scansplit/pkg/split"
	"github.com/PhantomInTheWire/scansplit/pkg/storage"
)

func runSplit(cmd *cobra.Command, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	log, closeLog, err := newLogger(cfg.LogFile, cfg.Verbose, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeLog()

	sink, err := buildSink(ctx, cfg, log)
	if err != nil {
		return err
	}

	banner(out, "Splitting scan images")
	fmt.Fprintf(out, "* Data path         : '%s'\n", cfg.DataPath)
	fmt.Fprintf(out, "* Writing to        : '%s'\n", cfg.OutputPath)
	fmt.Fprintln(out, "*")
	log.Info("run started",
		"data", cfg.DataPath, "output", cfg.OutputPath, "pattern", cfg.Pattern,
		"subject_width", cfg.Grid.SubjectWidth, "subject_height", cfg.Grid.SubjectHeight,
		"exact_fit", cfg.Grid.ExactFit, "workers", cfg.Workers)

	images, err := source.Discover(cfg.DataPath, cfg.Pattern)
	if err != nil {
		return err
	}
	if len(images) == 0 {
		fmt.Fprintf(out, "* No images matching '%s' in '%s'\n", cfg.Pattern, cfg.DataPath)
		return nil
	}

	opts := []split.Option{split.WithWorkers(cfg.Workers), split.WithLogger(log)}
	if cfg.RedisAddr != "" {
		led, err := ledger.NewRedis(ctx, cfg.RedisAddr, ledger.DefaultPrefix)
		if err != nil {
			return err
		}
		defer led.Close()
		opts = append(opts, split.WithLedger(led))
	}

	runner, err := split.NewRunner(cfg.Grid, sink, opts...)
	if err != nil {
		return err
	}
	report, err := runner.Run(ctx, images)
	printReport(out, report)
	if err != nil {
		return fmt.Errorf("run aborted: %w", err)
	}
	return nil
}

func buildSink(ctx context.Context, cfg *config.Config, log *slog.Logger) (storage.Sink, error) {
	dir, err := storage.NewDirSink(cfg.OutputPath)
	if err != nil {
		return nil, err
	}
	if !cfg.S3.Enabled() {
		return dir, nil
	}
	bucket, err := storage.NewS3Sink(ctx, cfg.S3, log)
	if err != nil {
		return nil, err
	}
	return storage.Multi{dir, bucket}, nil
}

func banner(w io.Writer, title string) {
	head := "* scansplit: " + title + " *"
	line := "*" + strings.Repeat("=", len(head)-2) + "*"
	fmt.Fprintln(w, "*")
	fmt.Fprintln(w, line)
	fmt.Fprintln(w, head)
	fmt.Fprintln(w, line)
	fmt.Fprintln(w, "*")
}

func printReport(w io.Writer, r *split.Report) {
	fmt.Fprintf(w, "* Images split      : %d\n", r.Split)
	fmt.Fprintf(w, "* Images skipped    : %d\n", r.Skipped)
	fmt.Fprintf(w, "* Images failed     : %d\n", r.Failed)
	fmt.Fprintf(w, "* Tiles written     : %d\n", r.Tiles)
	for _, o := range r.Failures() {
		fmt.Fprintf(w, "*   %s: %v\n", o.ImageID, o.Err)
	}
}
