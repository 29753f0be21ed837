package kube

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	meta "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/retry"

	"github.com/PhantomInTheWire/scansplit/pkg/layout"
	"github.com/PhantomInTheWire/scansplit/pkg/source"
)

func int32Ptr(i int32) *int32 { return &i }

// JobConfig describes the Job created for each scan.
type JobConfig struct {
	Namespace string
	Image     string // container image with the scansplit binary

	// ClaimName is mounted at MountPath; DataPath and OutputPath are
	// paths inside the container.
	ClaimName  string
	MountPath  string
	DataPath   string
	OutputPath string

	// SecretName, if set, is exposed to the container as environment
	// variables (S3 and Redis settings).
	SecretName string

	Grid         layout.GridSpec
	BackoffLimit int32
}

// Dispatcher creates one split Job per scan image.
type Dispatcher struct {
	client kubernetes.Interface
	cfg    JobConfig
	log    *slog.Logger
	now    func() time.Time
}

// NewClientset loads kubeconfig (the default home file when empty).
func NewClientset(kubeconfig string) (kubernetes.Interface, error) {
	if kubeconfig == "" {
		kubeconfig = clientcmd.RecommendedHomeFile
	}
	cfg, err := clientcmd.BuildConfigFromFlags("", kubeconfig)
	if err != nil {
		return nil, fmt.Errorf("loading kubeconfig: %w", err)
	}
	clientset, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("building clientset: %w", err)
	}
	return clientset, nil
}

func NewDispatcher(client kubernetes.Interface, cfg JobConfig, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "default"
	}
	return &Dispatcher{client: client, cfg: cfg, log: log, now: time.Now}
}

var invalidName = regexp.MustCompile(`[^a-z0-9-]`)

// JobName derives a DNS-1123 label from the image id plus a timestamp. The
// id is shortened so that the timestamp always survives.
func JobName(imageID string, now time.Time) string {
	sanitized := invalidName.ReplaceAllString(strings.ToLower(imageID), "-")
	sanitized = strings.Trim(sanitized, "-")

	const prefix = "scansplit-"
	suffix := "-" + strconv.FormatInt(now.UnixNano(), 10)
	if room := 63 - len(prefix) - len(suffix); len(sanitized) > room {
		sanitized = strings.TrimRight(sanitized[:room], "-")
	}
	return prefix + sanitized + suffix
}

// escapeGlob quotes the characters filepath.Match treats specially so a
// file name matches only itself.
func escapeGlob(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Args is the command line the Job runs for img.
func (d *Dispatcher) Args(img source.Image) []string {
	args := []string{
		d.cfg.DataPath,
		"--pattern", escapeGlob(filepath.Base(img.Path)),
		"--subject-width", strconv.Itoa(d.cfg.Grid.SubjectWidth),
		"--subject-height", strconv.Itoa(d.cfg.Grid.SubjectHeight),
		"--workers", "1",
	}
	if d.cfg.OutputPath != "" {
		args = append(args, "--output", d.cfg.OutputPath)
	}
	if d.cfg.Grid.ExactFit {
		args = append(args, "--exact-fit")
	}
	return args
}

// BuildJob returns the Job that splits img inside the cluster.
func (d *Dispatcher) BuildJob(img source.Image) *batchv1.Job {
	jobName := JobName(img.ID, d.now())
	labels := map[string]string{"app": "scansplit"}

	container := corev1.Container{
		Name:  "split",
		Image: d.cfg.Image,
		Args:  d.Args(img),
		Env: []corev1.EnvVar{
			{Name: "SCANSPLIT_IMAGE_ID", Value: img.ID},
		},
	}
	if d.cfg.SecretName != "" {
		container.EnvFrom = []corev1.EnvFromSource{{
			SecretRef: &corev1.SecretEnvSource{
				LocalObjectReference: corev1.LocalObjectReference{Name: d.cfg.SecretName},
			},
		}}
	}

	var volumes []corev1.Volume
	if d.cfg.ClaimName != "" {
		container.VolumeMounts = []corev1.VolumeMount{{
			Name:      "scans",
			MountPath: d.cfg.MountPath,
		}}
		volumes = []corev1.Volume{{
			Name: "scans",
			VolumeSource: corev1.VolumeSource{
				PersistentVolumeClaim: &corev1.PersistentVolumeClaimVolumeSource{
					ClaimName: d.cfg.ClaimName,
				},
			},
		}}
	}

	return &batchv1.Job{
		ObjectMeta: meta.ObjectMeta{
			Name:      jobName,
			Namespace: d.cfg.Namespace,
			Labels:    labels,
			Annotations: map[string]string{
				"scansplit/image-id": img.ID,
			},
		},
		Spec: batchv1.JobSpec{
			BackoffLimit: int32Ptr(d.cfg.BackoffLimit),
			Template: corev1.PodTemplateSpec{
				ObjectMeta: meta.ObjectMeta{
					Labels: map[string]string{"app": "scansplit", "job-name": jobName},
				},
				Spec: corev1.PodSpec{
					RestartPolicy: corev1.RestartPolicyNever,
					Containers:    []corev1.Container{container},
					Volumes:       volumes,
				},
			},
		},
	}
}

// Dispatch creates the Job for img and returns its name.
func (d *Dispatcher) Dispatch(ctx context.Context, img source.Image) (string, error) {
	job := d.BuildJob(img)
	err := retry.RetryOnConflict(retry.DefaultRetry, func() error {
		_, err := d.client.BatchV1().Jobs(d.cfg.Namespace).Create(ctx, job, meta.CreateOptions{})
		return err
	})
	if err != nil {
		return "", fmt.Errorf("create job for %s: %w", img.ID, err)
	}
	d.log.Info("job created", "job", job.Name, "image", img.ID)
	return job.Name, nil
}
