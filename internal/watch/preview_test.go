package watch

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew_Validates(t *testing.T) {
	_, err := New(Options{SrcDir: t.TempDir()})
	require.Error(t, err)

	_, err = New(Options{SrcDir: filepath.Join(t.TempDir(), "missing"), Rebuild: func(context.Context) error { return nil }})
	require.Error(t, err)
}

func TestShouldIgnoreEvent(t *testing.T) {
	p, err := New(Options{SrcDir: t.TempDir(), Rebuild: func(context.Context) error { return nil }, Ignore: []string{"pep-0000.md"}})
	require.NoError(t, err)

	for path, want := range map[string]bool{
		"/src/pep-0008.md":      false,
		"/src/pep-0000.md":      true,
		"/src/.pep-0008.md.swp": true,
		"/src/pep-0008.md~":     true,
		"/src/#pep-0008.md#":    true,
		"/src/docutils.yaml":    false,
	} {
		require.Equal(t, want, p.shouldIgnoreEvent(path), path)
	}
}

func TestDebouncer_Coalesces(t *testing.T) {
	req, trigger := newDebouncer(20 * time.Millisecond)
	for range 5 {
		trigger()
	}
	select {
	case <-req:
	case <-time.After(time.Second):
		t.Fatal("no rebuild request")
	}
	select {
	case <-req:
		t.Fatal("unexpected second request")
	case <-time.After(60 * time.Millisecond):
	}
}

func TestHandler_Health(t *testing.T) {
	out := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(out, "index.html"), []byte("home"), 0o600))
	p, err := New(Options{
		SrcDir:         t.TempDir(),
		OutDir:         out,
		Rebuild:        func(context.Context) error { return nil },
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = io.WriteString(w, "metrics") }),
	})
	require.NoError(t, err)
	h := p.Handler()

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	require.Equal(t, http.StatusServiceUnavailable, get("/healthz").Code)
	p.status.record(nil)
	require.Equal(t, http.StatusOK, get("/healthz").Code)
	p.status.record(stderrors.New("boom"))
	rec := get("/healthz")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), "boom")

	require.Equal(t, "metrics", get("/metrics").Body.String())
	require.Contains(t, get("/").Body.String(), "home")
}

func TestRun_RebuildsOnChange(t *testing.T) {
	src, out := t.TempDir(), t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(out, "index.html"), []byte("home"), 0o600))

	var builds atomic.Int32
	p, err := New(Options{
		SrcDir:   src,
		OutDir:   out,
		Address:  "127.0.0.1:0",
		Debounce: 50 * time.Millisecond,
		Ignore:   []string{"pep-0000.md"},
		Rebuild: func(context.Context) error {
			builds.Add(1)
			return nil
		},
		Logger: quietLogger(),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	select {
	case <-p.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("preview did not start")
	}
	require.Equal(t, int32(1), builds.Load())

	resp, err := http.Get("http://" + p.Addr().String() + "/index.html")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.Equal(t, "home", string(body))

	require.NoError(t, os.WriteFile(filepath.Join(src, "pep-0000.md"), []byte("generated"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(src, "pep-0008.md"), []byte("changed"), 0o600))
	require.Eventually(t, func() bool { return builds.Load() >= 2 }, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("preview did not stop")
	}
	require.GreaterOrEqual(t, p.Builds(), 2)
}
