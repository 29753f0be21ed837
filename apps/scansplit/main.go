package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/PhantomInTheWire/scansplit/pkg/config"
)

func newRootCmd() *cobra.Command {
	cfg := config.Default()

	rootCmd := &cobra.Command{
		Use:          "scansplit <dataPath>",
		Short:        "Split scan images into aligned and offset subject tiles",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.DataPath = args[0]
			return runSplit(cmd, &cfg)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.IntVar(&cfg.Grid.SubjectWidth, "subject-width", cfg.Grid.SubjectWidth, "The desired subject image width [pixels]")
	pf.IntVar(&cfg.Grid.SubjectHeight, "subject-height", cfg.Grid.SubjectHeight, "The desired subject image height [pixels]")
	pf.BoolVar(&cfg.Grid.ExactFit, "exact-fit", cfg.Grid.ExactFit, "Add no gutter when a side is already a multiple of the subject size")
	pf.StringVar(&cfg.Pattern, "pattern", cfg.Pattern, "Glob matching the scan files inside dataPath")
	pf.BoolVarP(&cfg.Verbose, "verbose", "v", false, "Increase output verbosity")
	pf.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "Log file, truncated on each run (- for stderr)")

	f := rootCmd.Flags()
	f.StringVarP(&cfg.OutputPath, "output", "o", cfg.OutputPath, "Directory the tiles are written to")
	f.IntVar(&cfg.Workers, "workers", cfg.Workers, "Number of images split concurrently")
	f.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "Redis server recording completed images (optional)")
	f.StringVar(&cfg.S3.Endpoint, "s3-endpoint", cfg.S3.Endpoint, "S3-compatible endpoint, e.g. a MinIO URL")
	f.StringVar(&cfg.S3.Region, "s3-region", cfg.S3.Region, "S3 region")
	f.StringVar(&cfg.S3.Bucket, "s3-bucket", cfg.S3.Bucket, "Also upload tiles to this bucket")
	f.StringVar(&cfg.S3.Prefix, "s3-prefix", cfg.S3.Prefix, "Key prefix for uploaded tiles")

	rootCmd.AddCommand(newDispatchCmd(&cfg))
	return rootCmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
