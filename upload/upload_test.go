package upload

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSave(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(filepath.Join(dir, "uploads"))
	if err != nil {
		t.Fatalf("NewStore() failed: %v", err)
	}

	content := "fake video content"
	video, err := store.Save(strings.NewReader(content), "../../etc/sample.mp4", "mp4")
	if err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	if video.Size != int64(len(content)) {
		t.Errorf("expected size %d, got %d", len(content), video.Size)
	}
	if video.OriginalName != "sample.mp4" {
		t.Errorf("expected base name only, got %q", video.OriginalName)
	}
	if filepath.Dir(video.Path) != store.Dir() {
		t.Errorf("expected file inside store dir, got %s", video.Path)
	}
	if !strings.HasSuffix(video.Path, ".mp4") {
		t.Errorf("expected .mp4 suffix, got %s", video.Path)
	}

	sum := sha256.Sum256([]byte(content))
	if video.Digest != hex.EncodeToString(sum[:]) {
		t.Errorf("unexpected digest %s", video.Digest)
	}

	got, err := os.ReadFile(video.Path)
	if err != nil || string(got) != content {
		t.Errorf("unexpected stored content %q (%v)", got, err)
	}
}

func TestSaveUniqueNames(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		video, err := store.Save(strings.NewReader("x"), "same.mp4", "mp4")
		if err != nil {
			t.Fatalf("Save() failed: %v", err)
		}
		if seen[video.Path] {
			t.Fatalf("duplicate path %s", video.Path)
		}
		seen[video.Path] = true
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("connection reset")
}

func TestSaveRemovesPartialFile(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := store.Save(failingReader{}, "a.mp4", "mp4"); err == nil {
		t.Fatal("expected error")
	}

	entries, _ := os.ReadDir(store.Dir())
	if len(entries) != 0 {
		t.Errorf("expected no leftover files, got %d", len(entries))
	}
}

func TestRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.wav")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	removed, err := Remove(path)
	if err != nil || !removed {
		t.Fatalf("expected removal, got removed=%v err=%v", removed, err)
	}

	removed, err = Remove(path)
	if err != nil || removed {
		t.Errorf("second removal must be a no-op, got removed=%v err=%v", removed, err)
	}

	removed, err = Remove("")
	if err != nil || removed {
		t.Errorf("empty path must be a no-op, got removed=%v err=%v", removed, err)
	}
}
