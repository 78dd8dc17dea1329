// internal/downloader/collector_test.go
package downloader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestCollector() *Collector {
	return NewCollector(NewDownloader(5*time.Second, "", WithRetryConfig(fastRetry(3))))
}

func TestCollector_Collect_WritesFilesInOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("bytes-for-" + r.URL.Path))
	}))
	defer server.Close()

	dir := t.TempDir()
	refs := []string{server.URL + "/first.png", server.URL + "/second"}

	outcomes := newTestCollector().Collect(context.Background(), "abc123", refs, dir)

	if len(outcomes) != 2 {
		t.Fatalf("Expected 2 outcomes, got %d", len(outcomes))
	}
	if outcomes[0].File != "abc123_0.png" {
		t.Errorf("Expected extension from URL path, got %q", outcomes[0].File)
	}
	if outcomes[1].File != "abc123_1.jpg" {
		t.Errorf("Expected default .jpg extension, got %q", outcomes[1].File)
	}
	for i, out := range outcomes {
		if out.Skipped {
			t.Errorf("Outcome %d unexpectedly skipped: %s", i, out.Error)
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, out.File))
		if err != nil {
			t.Errorf("Saved file missing: %v", err)
			continue
		}
		if !strings.HasPrefix(string(data), "bytes-for-") {
			t.Errorf("Unexpected file content: %q", data)
		}
	}
}

func TestCollector_Collect_SkipsFailedReferences(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "broken") {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("fine"))
	}))
	defer server.Close()

	dir := t.TempDir()
	refs := []string{
		server.URL + "/ok-one.jpg",
		server.URL + "/broken.jpg",
		server.URL + "/ok-two.jpg",
	}

	outcomes := newTestCollector().Collect(context.Background(), "k1", refs, dir)

	if len(outcomes) != 3 {
		t.Fatalf("Expected one outcome per reference, got %d", len(outcomes))
	}
	if outcomes[0].Skipped || outcomes[2].Skipped {
		t.Error("Healthy references must not be skipped by a neighbor's failure")
	}
	if !outcomes[1].Skipped {
		t.Fatal("Failing reference must be skipped, not fatal")
	}
	if outcomes[1].Attempts != 3 {
		t.Errorf("Expected bounded retries recorded, got %d attempts", outcomes[1].Attempts)
	}
	if outcomes[1].Error == "" {
		t.Error("Skipped outcome must carry the failure reason")
	}
	// Order maps straight back to the input references.
	for i, ref := range refs {
		if outcomes[i].URL != ref {
			t.Errorf("Outcome %d references %q, want %q", i, outcomes[i].URL, ref)
		}
	}
}

func TestCollector_Collect_NoReferences(t *testing.T) {
	outcomes := newTestCollector().Collect(context.Background(), "k2", nil, t.TempDir())
	if len(outcomes) != 0 {
		t.Errorf("Expected no outcomes for empty references, got %d", len(outcomes))
	}
}

func TestExtensionFor(t *testing.T) {
	cases := map[string]string{
		"https://x.test/a/b.webp":         ".webp",
		"https://x.test/a/b.JPEG":         ".jpeg",
		"https://x.test/a/photo":          ".jpg",
		"https://x.test/a/file.exe":       ".jpg",
		"https://x.test/a/pic.png?w=1080": ".png",
	}
	for in, want := range cases {
		if got := extensionFor(in); got != want {
			t.Errorf("extensionFor(%q) = %q, want %q", in, got, want)
		}
	}
}
