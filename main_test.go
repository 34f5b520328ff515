package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nijaru/vid-text/config"
	"github.com/nijaru/vid-text/process"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("TEMP_DIR", t.TempDir())
	t.Setenv("UPLOAD_DIR", t.TempDir())
	t.Setenv("STATIC_DIR", t.TempDir())
	t.Setenv("CACHE_DB_PATH", "")
	t.Setenv("SPACES_BUCKET", "")
	return config.LoadFromEnv()
}

func TestBuildHandlerRoutes(t *testing.T) {
	cfg := testConfig(t)
	cfg.CacheDBPath = filepath.Join(t.TempDir(), "cache.db")
	if err := os.WriteFile(filepath.Join(cfg.StaticDir, "index.html"), []byte("<html>upload</html>"), 0o644); err != nil {
		t.Fatal(err)
	}

	inv := &process.FakeInvoker{}
	handler, closers, err := buildHandler(context.Background(), cfg, inv)
	if err != nil {
		t.Fatalf("buildHandler() failed: %v", err)
	}
	defer closeAll(closers)

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		wantBody   string
	}{
		{"health", http.MethodGet, "/api/health", http.StatusOK, `{"status":"ok","mode":"local-whisper"}`},
		{"youtube stub", http.MethodPost, "/api/transcribe-youtube", http.StatusNotImplemented, `"error"`},
		{"static index", http.MethodGet, "/", http.StatusOK, "upload"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, httptest.NewRequest(tt.method, tt.path, nil))

			if rr.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, rr.Code)
			}
			if !strings.Contains(rr.Body.String(), tt.wantBody) {
				t.Errorf("expected body to contain %s, got %s", tt.wantBody, rr.Body.String())
			}
			if rr.Header().Get("X-Request-ID") == "" {
				t.Error("expected request id header")
			}
		})
	}

	if calls := inv.Calls(); len(calls) != 0 {
		t.Errorf("no external command may run for these routes, got %v", calls)
	}
}
