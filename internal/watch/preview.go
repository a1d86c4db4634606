// Package watch rebuilds the site when sources change and serves the output
// directory for local preview.
package watch

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/pepbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/pepbuilder/internal/logfields"
)

// RebuildFunc runs one build.
type RebuildFunc func(ctx context.Context) error

// Options configures a Preview.
type Options struct {
	SrcDir   string
	OutDir   string
	Address  string
	Debounce time.Duration
	Rebuild  RebuildFunc

	// Ignore lists base names that never trigger a rebuild, such as
	// sources the build itself regenerates.
	Ignore []string

	// MetricsHandler is mounted at MetricsPath when not nil.
	MetricsHandler http.Handler
	MetricsPath    string

	Logger *slog.Logger
}

// buildStatus tracks the current build state for error display.
type buildStatus struct {
	mu           sync.RWMutex
	lastError    error
	hasGoodBuild bool
	builds       int
}

func (bs *buildStatus) record(err error) {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	bs.builds++
	bs.lastError = err
	if err == nil {
		bs.hasGoodBuild = true
	}
}

func (bs *buildStatus) get() (builds int, lastErr error, hasGoodBuild bool) {
	bs.mu.RLock()
	defer bs.mu.RUnlock()
	return bs.builds, bs.lastError, bs.hasGoodBuild
}

// Preview watches SrcDir and serves OutDir.
type Preview struct {
	opts   Options
	logger *slog.Logger
	status buildStatus

	ready chan struct{}
	addr  net.Addr
}

// New validates opts and returns a Preview.
func New(opts Options) (*Preview, error) {
	if opts.Rebuild == nil {
		return nil, errors.InternalError("watch requires a rebuild function").Build()
	}
	if st, err := os.Stat(opts.SrcDir); err != nil || !st.IsDir() {
		return nil, errors.ValidationError(fmt.Sprintf("source dir not found or not a directory: %s", opts.SrcDir)).
			WithContext("path", opts.SrcDir).
			Build()
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 300 * time.Millisecond
	}
	if opts.MetricsPath == "" {
		opts.MetricsPath = "/metrics"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Preview{opts: opts, logger: opts.Logger, ready: make(chan struct{})}, nil
}

// Ready is closed once the HTTP listener is bound.
func (p *Preview) Ready() <-chan struct{} { return p.ready }

// Addr returns the bound listener address. Valid after Ready is closed.
func (p *Preview) Addr() net.Addr { return p.addr }

// Builds returns how many builds have completed, whatever their outcome.
func (p *Preview) Builds() int {
	n, _, _ := p.status.get()
	return n
}

// Run performs an initial build, then serves and rebuilds until ctx is done.
func (p *Preview) Run(ctx context.Context) error {
	p.build(ctx)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "fsnotify").Build()
	}
	defer func() { _ = watcher.Close() }()
	if err := watcher.Add(p.opts.SrcDir); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to watch source dir").
			WithContext("path", p.opts.SrcDir).
			Build()
	}

	ln, err := net.Listen("tcp", p.opts.Address)
	if err != nil {
		return errors.WrapError(err, errors.CategoryConfig, "failed to listen").
			WithContext("address", p.opts.Address).
			Build()
	}
	p.addr = ln.Addr()
	srv := &http.Server{Handler: p.Handler(), ReadHeaderTimeout: 10 * time.Second}
	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()
	p.logger.Info("Preview server listening", "address", p.addr.String(), logfields.Path(p.opts.OutDir))
	close(p.ready)

	rebuildReq, trigger := newDebouncer(p.opts.Debounce)
	workerDone := p.startRebuildWorker(ctx, rebuildReq)

	err = p.loop(ctx, watcher, trigger, serveErr)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		p.logger.Warn("HTTP server shutdown error", logfields.Error(serr))
	}
	<-workerDone
	return err
}

// Handler serves the output directory plus /healthz and metrics.
func (p *Preview) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		builds, lastErr, good := p.status.get()
		if lastErr != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = fmt.Fprintf(w, "build failed: %v\n", lastErr)
			return
		}
		if !good {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = fmt.Fprintln(w, "no successful build yet")
			return
		}
		_, _ = fmt.Fprintf(w, "ok builds=%d\n", builds)
	})
	if p.opts.MetricsHandler != nil {
		mux.Handle(p.opts.MetricsPath, p.opts.MetricsHandler)
	}
	mux.Handle("/", http.FileServer(http.Dir(p.opts.OutDir)))
	return mux
}

func (p *Preview) build(ctx context.Context) {
	start := time.Now()
	err := p.opts.Rebuild(ctx)
	p.status.record(err)
	if err != nil {
		p.logger.Warn("Rebuild failed", logfields.Error(err))
		return
	}
	p.logger.Info("Rebuild finished", logfields.DurationMS(float64(time.Since(start).Milliseconds())))
}

// newDebouncer returns a rebuild channel and a trigger that coalesces calls
// within d into one request.
func newDebouncer(d time.Duration) (chan struct{}, func()) {
	var mu sync.Mutex
	var timer *time.Timer
	rebuildReq := make(chan struct{}, 1)

	trigger := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(d, func() {
			select {
			case rebuildReq <- struct{}{}:
			default:
			}
		})
	}
	return rebuildReq, trigger
}

// startRebuildWorker runs rebuilds one at a time. Requests arriving during a
// build collapse into the single buffered slot of rebuildReq.
func (p *Preview) startRebuildWorker(ctx context.Context, rebuildReq <-chan struct{}) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case <-rebuildReq:
				p.logger.Info("Change detected; rebuilding site")
				p.build(ctx)
			}
		}
	}()
	return done
}

func (p *Preview) loop(ctx context.Context, watcher *fsnotify.Watcher, trigger func(), serveErr <-chan error) error {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Shutting down preview server")
			return nil
		case err := <-serveErr:
			return errors.WrapError(err, errors.CategoryInternal, "preview server failed").Build()
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if p.shouldIgnoreEvent(ev.Name) {
				continue
			}
			p.logger.Debug("File change detected", logfields.Path(ev.Name), "op", ev.Op.String())
			trigger()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			p.logger.Warn("Watcher error", logfields.Error(err))
		}
	}
}

// shouldIgnoreEvent returns true for filesystem events that should not trigger rebuilds.
func (p *Preview) shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)
	for _, name := range p.opts.Ignore {
		if base == name {
			return true
		}
	}
	return shouldIgnoreName(base)
}

func shouldIgnoreName(base string) bool {
	if strings.HasPrefix(base, ".") || strings.HasPrefix(base, "#") {
		return true
	}
	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") {
		return true
	}
	return base == "Thumbs.db"
}
