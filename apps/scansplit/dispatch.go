package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/PhantomInTheWire/scansplit/pkg/config"
	"github.com/PhantomInTheWire/scansplit/pkg/kube"
	"github.com/PhantomInTheWire/scansplit/pkg/source"
)

var newClientset = kube.NewClientset

func newDispatchCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dispatch <dataPath>",
		Short: "Create one Kubernetes Job per scan image",
		Long: "Lists the scans in dataPath and creates a Job for each of them. Every Job runs\n" +
			"scansplit on its single image, reading from --job-data-path inside the pod.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.DataPath = args[0]
			return runDispatch(cmd, cfg)
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.Kubeconfig, "kubeconfig", cfg.Kubeconfig, "Path to the kubeconfig file")
	f.StringVar(&cfg.Job.Namespace, "namespace", cfg.Job.Namespace, "Namespace the Jobs are created in")
	f.StringVar(&cfg.Job.Image, "job-image", cfg.Job.Image, "Container image holding scansplit")
	f.StringVar(&cfg.Job.ClaimName, "claim", cfg.Job.ClaimName, "PersistentVolumeClaim holding the scans")
	f.StringVar(&cfg.Job.MountPath, "mount-path", cfg.Job.MountPath, "Where the claim is mounted in the pod")
	f.StringVar(&cfg.Job.DataPath, "job-data-path", "", "Scan directory inside the pod (defaults to dataPath)")
	f.StringVar(&cfg.Job.OutputPath, "job-output", "", "Tile directory inside the pod")
	f.StringVar(&cfg.Job.SecretName, "secret", cfg.Job.SecretName, "Secret exposed to the Jobs as environment variables")
	f.Int32Var(&cfg.Job.BackoffLimit, "backoff-limit", cfg.Job.BackoffLimit, "Retries per Job")
	return cmd
}

func runDispatch(cmd *cobra.Command, cfg *config.Config) error {
	if err := cfg.Grid.Validate(); err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	log, closeLog, err := newLogger(cfg.LogFile, cfg.Verbose, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeLog()

	images, err := source.Discover(cfg.DataPath, cfg.Pattern)
	if err != nil {
		return err
	}

	client, err := newClientset(cfg.Kubeconfig)
	if err != nil {
		return err
	}
	jobCfg := cfg.Job
	jobCfg.Grid = cfg.Grid
	if jobCfg.DataPath == "" {
		jobCfg.DataPath = cfg.DataPath
	}
	d := kube.NewDispatcher(client, jobCfg, log)

	banner(out, "Dispatching split jobs")
	failed := 0
	for _, img := range images {
		name, err := d.Dispatch(cmd.Context(), img)
		if err != nil {
			log.Error("dispatch failed", "image", img.ID, "err", err)
			fmt.Fprintf(out, "* %s: %v\n", img.ID, err)
			failed++
			continue
		}
		fmt.Fprintf(out, "* %s -> job %s\n", img.ID, name)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d jobs could not be created", failed, len(images))
	}
	return nil
}
