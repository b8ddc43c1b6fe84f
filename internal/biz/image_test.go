package biz

import (
	"context"
	"errors"
	"image"
	imgcolor "image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"autoposter/internal/conf"
)

func newTestIndex(repo ImageRepo, filter DedupFilter) *IndexUsecase {
	return NewIndexUsecase(repo, filter, &conf.Posting{ColorQuality: 1}, testLogger())
}

func writePNG(t *testing.T, dir, name string, c imgcolor.RGBA) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, c)
		}
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
	return path
}

func TestAddToIndex(t *testing.T) {
	dir := t.TempDir()
	path := writePNG(t, dir, "red.png", imgcolor.RGBA{R: 200, G: 10, B: 10, A: 255})

	repo := &fakeImageRepo{}
	filter := newFakeDedupFilter()
	uc := newTestIndex(repo, filter)

	img, err := uc.AddToIndex(context.Background(), path)
	if err != nil {
		t.Fatalf("AddToIndex failed: %v", err)
	}
	if img.ID == 0 {
		t.Error("indexed image has no id")
	}
	if img.Filename != path {
		t.Errorf("Filename = %q; want %q", img.Filename, path)
	}
	if img.ContentHash == "" {
		t.Error("indexed image has no content hash")
	}
	if img.Color.L == 0 && img.Color.A == 0 && img.Color.B == 0 {
		t.Error("dominant color was not extracted")
	}
	if img.Posted() {
		t.Error("freshly indexed image must be unposted")
	}

	// The filter learns the hash so the next encounter short-circuits.
	seen, err := filter.Exists(context.Background(), []byte(img.ContentHash))
	if err != nil || !seen {
		t.Errorf("filter.Exists = (%v, %v); want (true, nil)", seen, err)
	}
}

func TestAddToIndex_DuplicateContent(t *testing.T) {
	dir := t.TempDir()
	first := writePNG(t, dir, "one.png", imgcolor.RGBA{R: 50, G: 60, B: 70, A: 255})
	// Same pixels, different name: identical content hash.
	second := writePNG(t, dir, "two.png", imgcolor.RGBA{R: 50, G: 60, B: 70, A: 255})

	repo := &fakeImageRepo{}
	uc := newTestIndex(repo, newFakeDedupFilter())

	if _, err := uc.AddToIndex(context.Background(), first); err != nil {
		t.Fatalf("first AddToIndex failed: %v", err)
	}
	_, err := uc.AddToIndex(context.Background(), second)
	if !errors.Is(err, ErrDuplicateImage) {
		t.Fatalf("second AddToIndex = %v; want ErrDuplicateImage", err)
	}

	count, _ := repo.CountAll(context.Background())
	if count != 1 {
		t.Errorf("index size after duplicate = %d; want 1", count)
	}
}

func TestAddToIndex_UndecodableFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "not-an-image.png")
	if err := os.WriteFile(path, []byte("plain text"), 0o644); err != nil {
		t.Fatal(err)
	}

	repo := &fakeImageRepo{}
	uc := newTestIndex(repo, newFakeDedupFilter())

	if _, err := uc.AddToIndex(context.Background(), path); err == nil {
		t.Fatal("AddToIndex accepted an undecodable file")
	}
	count, _ := repo.CountAll(context.Background())
	if count != 0 {
		t.Errorf("index size after failed add = %d; want 0", count)
	}
}

func TestIndexDirectory(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, dir, "a.png", imgcolor.RGBA{R: 10, G: 20, B: 30, A: 255})
	writePNG(t, dir, "b.png", imgcolor.RGBA{R: 200, G: 100, B: 50, A: 255})
	writePNG(t, dir, "dup.png", imgcolor.RGBA{R: 10, G: 20, B: 30, A: 255})
	if err := os.WriteFile(filepath.Join(dir, "broken.png"), []byte("nope"), 0o644); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(dir, "nested")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	writePNG(t, sub, "c.png", imgcolor.RGBA{R: 1, G: 2, B: 3, A: 255})

	repo := &fakeImageRepo{}
	uc := newTestIndex(repo, newFakeDedupFilter())

	report, err := uc.IndexDirectory(context.Background(), dir)
	if err != nil {
		t.Fatalf("IndexDirectory failed: %v", err)
	}

	if report.Indexed != 3 {
		t.Errorf("Indexed = %d; want 3", report.Indexed)
	}
	if report.Duplicates != 1 {
		t.Errorf("Duplicates = %d; want 1", report.Duplicates)
	}
	if report.Failed != 1 {
		t.Errorf("Failed = %d; want 1", report.Failed)
	}
}

func TestIndexDirectory_Empty(t *testing.T) {
	repo := &fakeImageRepo{}
	uc := newTestIndex(repo, newFakeDedupFilter())

	report, err := uc.IndexDirectory(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("IndexDirectory failed: %v", err)
	}
	if report.Indexed != 0 || report.Duplicates != 0 || report.Failed != 0 {
		t.Errorf("unexpected report for empty dir: %+v", report)
	}
}

func TestStats(t *testing.T) {
	repo := &fakeImageRepo{}
	uc := newTestIndex(repo, newFakeDedupFilter())
	now := time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)
	uc.now = func() time.Time { return now }

	fresh := now.Add(-2 * time.Hour)
	stale := now.Add(-48 * time.Hour)
	freshID, staleID := int64(1), int64(2)

	repo.add(&Image{Filename: "fresh.png", ContentHash: "f", PostedAt: &fresh, PostID: &freshID})
	repo.add(&Image{Filename: "stale.png", ContentHash: "s", PostedAt: &stale, PostID: &staleID})
	repo.add(&Image{Filename: "queued.png", ContentHash: "q"})

	stats, err := uc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Total != 3 {
		t.Errorf("Total = %d; want 3", stats.Total)
	}
	if stats.PostedToday != 1 {
		t.Errorf("PostedToday = %d; want 1", stats.PostedToday)
	}
	if stats.LastPostedAt == nil || !stats.LastPostedAt.Equal(fresh) {
		t.Errorf("LastPostedAt = %v; want %v", stats.LastPostedAt, fresh)
	}
}
