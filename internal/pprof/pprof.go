// Package pprof wires runtime profiling into the client: an optional debug
// HTTP endpoint and profile files written around a session.
package pprof

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	netpprof "net/http/pprof"
	"os"
	"path/filepath"
	"runtime/pprof"
	"sync"

	"github.com/julienschmidt/httprouter"

	"github.com/codefionn/chatterm/internal/consts"
	"github.com/codefionn/chatterm/internal/logger"
)

// Config selects which profiles are collected. The zero value disables
// everything.
type Config struct {
	// HTTPAddr serves /debug/pprof/ when set (e.g. "localhost:6060")
	HTTPAddr string

	CPUProfile       string // written from Start until Stop
	HeapProfile      string // written on Stop
	GoroutineProfile string // written on Stop
}

// Enabled reports whether any profile is configured.
func (c Config) Enabled() bool {
	return c.HTTPAddr != "" || c.CPUProfile != "" || c.HeapProfile != "" || c.GoroutineProfile != ""
}

// Handler manages profiling for one process run
type Handler struct {
	config   Config
	server   *http.Server
	listener net.Listener
	cpuFile  *os.File

	mu      sync.Mutex
	stopped bool
}

// NewHandler creates a new pprof handler with the given configuration
func NewHandler(config Config) *Handler {
	return &Handler{config: config}
}

// Addr returns the bound debug server address, or "" when none is running.
func (h *Handler) Addr() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.listener == nil {
		return ""
	}
	return h.listener.Addr().String()
}

// Start begins CPU profiling and the debug server as configured
func (h *Handler) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.config.CPUProfile != "" {
		f, err := createProfileFile(h.config.CPUProfile)
		if err != nil {
			return fmt.Errorf("cpu profile: %w", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			f.Close()
			return fmt.Errorf("failed to start CPU profiling: %w", err)
		}
		h.cpuFile = f
	}

	if h.config.HTTPAddr != "" {
		ln, err := net.Listen("tcp", h.config.HTTPAddr)
		if err != nil {
			h.stopCPU()
			return fmt.Errorf("failed to bind pprof HTTP server: %w", err)
		}
		h.listener = ln
		h.server = &http.Server{
			Handler:           debugRouter(),
			ReadHeaderTimeout: consts.Timeout10Seconds,
		}

		go func(srv *http.Server, ln net.Listener) {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("pprof server error: %v", err)
			}
		}(h.server, ln)
		logger.Info("pprof listening on %s", ln.Addr())
	}

	return nil
}

// Stop ends profiling and writes the snapshot profiles. Calling it again is
// a no-op.
func (h *Handler) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stopped {
		return nil
	}
	h.stopped = true

	var errs []error
	if err := h.stopCPU(); err != nil {
		errs = append(errs, err)
	}
	if h.config.HeapProfile != "" {
		if err := writeProfile("heap", h.config.HeapProfile); err != nil {
			errs = append(errs, err)
		}
	}
	if h.config.GoroutineProfile != "" {
		if err := writeProfile("goroutine", h.config.GoroutineProfile); err != nil {
			errs = append(errs, err)
		}
	}

	if h.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), consts.Timeout5Seconds)
		defer cancel()
		if err := h.server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown pprof server: %w", err))
		}
		h.server = nil
		h.listener = nil
	}

	return errors.Join(errs...)
}

func (h *Handler) stopCPU() error {
	if h.cpuFile == nil {
		return nil
	}
	pprof.StopCPUProfile()
	err := h.cpuFile.Close()
	h.cpuFile = nil
	if err != nil {
		return fmt.Errorf("failed to close CPU profile: %w", err)
	}
	return nil
}

func debugRouter() *httprouter.Router {
	router := httprouter.New()
	router.HandlerFunc(http.MethodGet, "/debug/pprof/", netpprof.Index)
	router.HandlerFunc(http.MethodGet, "/debug/pprof/cmdline", netpprof.Cmdline)
	router.HandlerFunc(http.MethodGet, "/debug/pprof/profile", netpprof.Profile)
	router.HandlerFunc(http.MethodGet, "/debug/pprof/symbol", netpprof.Symbol)
	router.HandlerFunc(http.MethodGet, "/debug/pprof/trace", netpprof.Trace)
	for _, name := range []string{"goroutine", "heap", "allocs", "block", "mutex", "threadcreate"} {
		router.Handler(http.MethodGet, "/debug/pprof/"+name, netpprof.Handler(name))
	}
	return router
}

func createProfileFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	return f, nil
}

// writeProfile writes a named runtime profile to path
func writeProfile(name, path string) error {
	p := pprof.Lookup(name)
	if p == nil {
		return fmt.Errorf("profile %q not found", name)
	}
	f, err := createProfileFile(path)
	if err != nil {
		return fmt.Errorf("%s profile: %w", name, err)
	}
	defer f.Close()
	if err := p.WriteTo(f, 0); err != nil {
		return fmt.Errorf("failed to write %s profile: %w", name, err)
	}
	return nil
}
