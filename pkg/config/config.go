// Package config gathers the settings of a scansplit run. Defaults come from
// the environment and are overridden by command-line flags.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"

	"github.com/PhantomInTheWire/scansplit/pkg/kube"
	"github.com/PhantomInTheWire/scansplit/pkg/layout"
	"github.com/PhantomInTheWire/scansplit/pkg/source"
	"github.com/PhantomInTheWire/scansplit/pkg/storage"
)

// Config is the full run configuration.
type Config struct {
	DataPath   string
	OutputPath string
	Pattern    string
	Grid       layout.GridSpec
	Workers    int
	Verbose    bool
	LogFile    string

	S3        storage.S3Config
	RedisAddr string

	Kubeconfig string
	Job        kube.JobConfig
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// Default returns the configuration implied by the environment.
func Default() Config {
	return Config{
		OutputPath: getEnv("SCANSPLIT_OUTPUT", "."),
		Pattern:    getEnv("SCANSPLIT_PATTERN", source.DefaultPattern),
		Grid: layout.GridSpec{
			SubjectWidth:  getEnvInt("SCANSPLIT_SUBJECT_WIDTH", 128),
			SubjectHeight: getEnvInt("SCANSPLIT_SUBJECT_HEIGHT", 128),
			ExactFit:      getEnvBool("SCANSPLIT_EXACT_FIT", false),
		},
		Workers: getEnvInt("SCANSPLIT_WORKERS", runtime.NumCPU()),
		LogFile: getEnv("SCANSPLIT_LOG_FILE", "split_raw.log"),
		S3: storage.S3Config{
			Endpoint:  getEnv("S3_ENDPOINT", ""),
			Region:    getEnv("S3_REGION", "us-east-1"),
			AccessKey: getEnv("S3_ACCESS_KEY", ""),
			SecretKey: getEnv("S3_SECRET_KEY", ""),
			Bucket:    getEnv("S3_BUCKET", ""),
			Prefix:    getEnv("S3_PREFIX", ""),
		},
		RedisAddr:  getEnv("REDIS_ADDR", ""),
		Kubeconfig: getEnv("KUBECONFIG", ""),
		Job: kube.JobConfig{
			Namespace:    getEnv("SCANSPLIT_NAMESPACE", "default"),
			Image:        getEnv("SCANSPLIT_JOB_IMAGE", "ghcr.io/phantominthewire/scansplit:latest"),
			ClaimName:    getEnv("SCANSPLIT_CLAIM", ""),
			MountPath:    getEnv("SCANSPLIT_MOUNT_PATH", "/data"),
			SecretName:   getEnv("SCANSPLIT_SECRET", ""),
			BackoffLimit: int32(getEnvInt("SCANSPLIT_BACKOFF_LIMIT", 1)),
		},
	}
}

// Validate checks the settings that must hold before any image is touched.
func (c Config) Validate() error {
	if err := c.Grid.Validate(); err != nil {
		return err
	}
	if c.Workers <= 0 {
		return fmt.Errorf("%w: workers must be positive, got %d", layout.ErrConfig, c.Workers)
	}
	if c.Pattern == "" {
		return fmt.Errorf("%w: empty input pattern", layout.ErrConfig)
	}
	if c.DataPath == "" {
		return fmt.Errorf("%w: no data path given", source.ErrInput)
	}
	fi, err := os.Stat(c.DataPath)
	if err != nil || !fi.IsDir() {
		return fmt.Errorf("%w: unable to find data at %q", source.ErrInput, c.DataPath)
	}
	return nil
}
