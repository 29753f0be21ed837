package kube

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	meta "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/PhantomInTheWire/scansplit/pkg/layout"
	"github.com/PhantomInTheWire/scansplit/pkg/source"
)

func TestJobName(t *testing.T) {
	now := time.Unix(0, 42)
	tests := []struct {
		id   string
		want string
	}{
		{"MoEDAL_0001", "scansplit-moedal-0001-42"},
		{"__Scan.v2__", "scansplit-scan-v2-42"},
	}
	for _, tt := range tests {
		if got := JobName(tt.id, now); got != tt.want {
			t.Errorf("JobName(%q) = %q, want %q", tt.id, got, tt.want)
		}
	}

	long := JobName(strings.Repeat("a", 80), time.Unix(1700000000, 0))
	if len(long) > 63 {
		t.Errorf("JobName length = %d, want <= 63", len(long))
	}
	if !strings.HasSuffix(long, "-1700000000000000000") {
		t.Errorf("JobName %q lost its timestamp", long)
	}

	shared := strings.Repeat("MoEDAL_run_", 6)
	a := JobName(shared+"0001", time.Unix(0, 10))
	b := JobName(shared+"0002", time.Unix(0, 11))
	if a == b {
		t.Errorf("JobName collides for ids with a shared prefix: %q", a)
	}
	for _, name := range []string{a, b} {
		if len(name) > 63 || strings.Contains(name, "--") {
			t.Errorf("JobName = %q (len %d)", name, len(name))
		}
	}
}

func TestArgsPatternMatchesOnlyItsFile(t *testing.T) {
	dir := t.TempDir()
	names := []string{"MoEDAL[run2]_001.png", "MoEDAL*?.png", `MoEDAL\x.png`, "MoEDAL_001.png", "MoEDALr_001.png"}
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("png"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	d := NewDispatcher(fake.NewSimpleClientset(), JobConfig{DataPath: dir,
		Grid: layout.GridSpec{SubjectWidth: 8, SubjectHeight: 8}}, nil)
	for _, name := range names[:3] {
		img := source.Image{ID: source.ImageID(name), Path: filepath.Join(dir, name)}
		args := d.Args(img)
		i := slices.Index(args, "--pattern")
		if i < 0 {
			t.Fatalf("args %q lack --pattern", args)
		}
		found, err := source.Discover(dir, args[i+1])
		if err != nil {
			t.Fatal(err)
		}
		if len(found) != 1 || found[0].Path != img.Path {
			t.Errorf("pattern %q for %s discovers %v", args[i+1], name, found)
		}
	}
}

func TestDispatch(t *testing.T) {
	client := fake.NewSimpleClientset()
	d := NewDispatcher(client, JobConfig{
		Namespace:  "scans",
		Image:      "ghcr.io/phantominthewire/scansplit:latest",
		ClaimName:  "scan-data",
		MountPath:  "/data",
		DataPath:   "/data/raw",
		OutputPath: "/data/tiles",
		SecretName: "scansplit-env",
		Grid:       layout.GridSpec{SubjectWidth: 128, SubjectHeight: 64, ExactFit: true},
	}, nil)
	d.now = func() time.Time { return time.Unix(0, 7) }

	img := source.Image{ID: "MoEDAL_0001", Path: "/local/raw/MoEDAL_0001.png"}
	name, err := d.Dispatch(context.Background(), img)
	if err != nil {
		t.Fatal(err)
	}
	if name != "scansplit-moedal-0001-7" {
		t.Errorf("job name = %q", name)
	}

	job, err := client.BatchV1().Jobs("scans").Get(context.Background(), name, meta.GetOptions{})
	if err != nil {
		t.Fatalf("job not created: %v", err)
	}
	if got := job.Annotations["scansplit/image-id"]; got != img.ID {
		t.Errorf("image-id annotation = %q", got)
	}

	pod := job.Spec.Template.Spec
	if len(pod.Containers) != 1 {
		t.Fatalf("containers = %d, want 1", len(pod.Containers))
	}
	c := pod.Containers[0]
	wantArgs := []string{
		"/data/raw",
		"--pattern", "MoEDAL_0001.png",
		"--subject-width", "128",
		"--subject-height", "64",
		"--workers", "1",
		"--output", "/data/tiles",
		"--exact-fit",
	}
	if !slices.Equal(c.Args, wantArgs) {
		t.Errorf("args = %q, want %q", c.Args, wantArgs)
	}
	if len(c.EnvFrom) != 1 || c.EnvFrom[0].SecretRef.Name != "scansplit-env" {
		t.Errorf("envFrom = %+v", c.EnvFrom)
	}
	if len(pod.Volumes) != 1 || pod.Volumes[0].PersistentVolumeClaim.ClaimName != "scan-data" {
		t.Errorf("volumes = %+v", pod.Volumes)
	}
	if len(c.VolumeMounts) != 1 || c.VolumeMounts[0].MountPath != "/data" {
		t.Errorf("volume mounts = %+v", c.VolumeMounts)
	}
}

func TestDispatchDuplicateName(t *testing.T) {
	client := fake.NewSimpleClientset()
	d := NewDispatcher(client, JobConfig{Image: "scansplit", DataPath: "/data",
		Grid: layout.GridSpec{SubjectWidth: 8, SubjectHeight: 8}}, nil)
	d.now = func() time.Time { return time.Unix(0, 1) }

	img := source.Image{ID: "a", Path: "/data/a.png"}
	if _, err := d.Dispatch(context.Background(), img); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Dispatch(context.Background(), img); err == nil {
		t.Error("second Dispatch with the same name succeeded")
	}

	jobs, err := client.BatchV1().Jobs("default").List(context.Background(), meta.ListOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs.Items) != 1 {
		t.Errorf("jobs = %d, want 1", len(jobs.Items))
	}
	if jobs.Items[0].Spec.Template.Spec.Volumes != nil {
		t.Error("volumes set without a claim")
	}
}
