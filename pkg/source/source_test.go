package source

import (
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := imaging.New(w, h, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	if err := imaging.Save(img, path); err != nil {
		t.Fatalf("save %s: %v", path, err)
	}
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "MoEDAL_b.png"), 2, 2)
	writePNG(t, filepath.Join(dir, "MoEDAL_a.png"), 2, 2)
	writePNG(t, filepath.Join(dir, "other.png"), 2, 2)
	if err := os.Mkdir(filepath.Join(dir, "MoEDAL_dir.png"), 0o755); err != nil {
		t.Fatal(err)
	}

	images, err := Discover(dir, DefaultPattern)
	if err != nil {
		t.Fatal(err)
	}
	want := []Image{
		{ID: "MoEDAL_a", Path: filepath.Join(dir, "MoEDAL_a.png")},
		{ID: "MoEDAL_b", Path: filepath.Join(dir, "MoEDAL_b.png")},
	}
	if len(images) != len(want) {
		t.Fatalf("Discover = %v, want %v", images, want)
	}
	for i := range want {
		if images[i] != want[i] {
			t.Errorf("images[%d] = %+v, want %+v", i, images[i], want[i])
		}
	}
}

func TestDiscoverErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Discover(filepath.Join(dir, "missing"), DefaultPattern); !errors.Is(err, ErrInput) {
		t.Errorf("missing dir: err = %v, want ErrInput", err)
	}

	file := filepath.Join(dir, "f.png")
	writePNG(t, file, 1, 1)
	if _, err := Discover(file, DefaultPattern); !errors.Is(err, ErrInput) {
		t.Errorf("file as dir: err = %v, want ErrInput", err)
	}
	if _, err := Discover(dir, "["); !errors.Is(err, ErrInput) {
		t.Errorf("bad pattern: err = %v, want ErrInput", err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scan.png")
	writePNG(t, path, 5, 3)

	b, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if b.Width != 5 || b.Height != 3 {
		t.Errorf("Load size = %dx%d, want 5x3", b.Width, b.Height)
	}
	if got := b.Pixel(4, 2); got != [3]uint8{10, 20, 30} {
		t.Errorf("Pixel(4, 2) = %v", got)
	}

	bad := filepath.Join(dir, "bad.png")
	if err := os.WriteFile(bad, []byte("not a png"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); !errors.Is(err, ErrInput) {
		t.Errorf("undecodable file: err = %v, want ErrInput", err)
	}
	if _, err := Load(filepath.Join(dir, "missing.png")); !errors.Is(err, ErrInput) {
		t.Errorf("missing file: err = %v, want ErrInput", err)
	}
}

func TestImageID(t *testing.T) {
	for in, want := range map[string]string{
		"/data/MoEDAL_0001.png": "MoEDAL_0001",
		"scan.v2.png":           "scan.v2",
		"noext":                 "noext",
	} {
		if got := ImageID(in); got != want {
			t.Errorf("ImageID(%q) = %q, want %q", in, got, want)
		}
	}
}
