package transcription

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type memoryCache struct {
	entries map[string]string
	getErr  error
	puts    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string]string)}
}

func (m *memoryCache) Get(ctx context.Context, key string) (string, bool, error) {
	if m.getErr != nil {
		return "", false, m.getErr
	}
	text, ok := m.entries[key]
	return text, ok, nil
}

func (m *memoryCache) Put(ctx context.Context, key, text, model string) error {
	m.puts++
	m.entries[key] = text
	return nil
}

func writeAudio(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mp4.wav")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCachedTranscriberHitSkipsEngines(t *testing.T) {
	engine := &stubEngine{name: "primary", text: "hello world"}
	cache := newMemoryCache()
	cached := NewCachedTranscriber(NewRunner(0, engine), cache, Options{})
	audio := writeAudio(t, "pcm bytes")

	first, err := cached.Transcribe(context.Background(), audio)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	second, err := cached.Transcribe(context.Background(), audio)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if engine.calls != 1 {
		t.Errorf("expected engine to run once, ran %d times", engine.calls)
	}
	if first.Text != second.Text {
		t.Errorf("expected cached text %q, got %q", first.Text, second.Text)
	}
	if second.Name != "cache" {
		t.Errorf("expected cache result, got %s", second.Name)
	}
	if first.Cached || !second.Cached {
		t.Errorf("expected only the second result to be cached, got first=%v second=%v", first.Cached, second.Cached)
	}
}

func TestCachedTranscriberKeyIncludesModel(t *testing.T) {
	engine := &stubEngine{name: "primary", text: "text"}
	cache := newMemoryCache()
	audio := writeAudio(t, "pcm bytes")

	if _, err := NewCachedTranscriber(NewRunner(0, engine), cache, Options{Model: "base"}).Transcribe(context.Background(), audio); err != nil {
		t.Fatal(err)
	}
	if _, err := NewCachedTranscriber(NewRunner(0, engine), cache, Options{Model: "small"}).Transcribe(context.Background(), audio); err != nil {
		t.Fatal(err)
	}

	if engine.calls != 2 {
		t.Errorf("expected a miss for a different model, engine ran %d times", engine.calls)
	}
	if len(cache.entries) != 2 {
		t.Errorf("expected 2 cache entries, got %d", len(cache.entries))
	}
}

func TestCachedTranscriberCacheErrorFallsThrough(t *testing.T) {
	engine := &stubEngine{name: "primary", text: "text"}
	cache := newMemoryCache()
	cache.getErr = errors.New("database is locked")

	res, err := NewCachedTranscriber(NewRunner(0, engine), cache, Options{}).Transcribe(context.Background(), writeAudio(t, "x"))
	if err != nil {
		t.Fatalf("cache errors must not fail the request, got %v", err)
	}
	if res.Text != "text" {
		t.Errorf("expected engine text, got %q", res.Text)
	}
}

func TestCachedTranscriberDoesNotStoreFailures(t *testing.T) {
	engine := &stubEngine{name: "primary", err: errors.New("boom")}
	cache := newMemoryCache()

	_, err := NewCachedTranscriber(NewRunner(0, engine), cache, Options{}).Transcribe(context.Background(), writeAudio(t, "x"))
	var terr *TranscriptionError
	if !errors.As(err, &terr) {
		t.Fatalf("expected *TranscriptionError, got %v", err)
	}
	if cache.puts != 0 {
		t.Errorf("expected no cache writes, got %d", cache.puts)
	}
}
