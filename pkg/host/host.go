// Package host wires a bus System into an application from a config.Config:
// logging, search paths, startup loads, directory scans and watching, the
// load journal and the introspection server.
package host

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/systemshift/bus/pkg/bus"
	"github.com/systemshift/bus/pkg/bus/interp"
	"github.com/systemshift/bus/pkg/config"
	"github.com/systemshift/bus/pkg/diag"
	"github.com/systemshift/bus/pkg/discovery"
	"github.com/systemshift/bus/pkg/inspect"
	"github.com/systemshift/bus/pkg/journal"
)

const shutdownTimeout = 5 * time.Second

// Host owns a System and everything configured around it. The System is
// not synchronized; code other than the host's own goroutines must hold
// the host's lock (Lock/Unlock) while using it.
type Host struct {
	mu sync.Mutex

	logger   *zap.Logger
	reporter *diag.Reporter
	sys      *bus.System
	journal  *journal.Journal
	watcher  *discovery.Watcher
	srv      *http.Server
	addr     net.Addr

	ctx    context.Context
	cancel context.CancelFunc
	group  errgroup.Group

	startErrs []error
	closeOnce sync.Once
	closeErr  error
}

type options struct {
	builtins []bus.Generator
	openers  map[string]bus.Opener
	logger   *zap.Logger
	console  io.Writer
}

// Option configures New
type Option func(*options)

// WithBuiltin registers a module living in the host binary at startup
func WithBuiltin(gen bus.Generator) Option {
	return func(o *options) {
		o.builtins = append(o.builtins, gen)
	}
}

// WithOpener adds or replaces the opener for a file extension
func WithOpener(ext string, op bus.Opener) Option {
	return func(o *options) {
		o.openers[ext] = op
	}
}

// WithLogger uses logger instead of the one described by the config
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithConsole sets where the console printer writes. Defaults to stderr.
func WithConsole(w io.Writer) Option {
	return func(o *options) {
		o.console = w
	}
}

// New builds the host and performs the configured startup work. Module
// load failures are reported and journaled but do not fail New; see
// StartupErrors.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Host, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	o := &options{
		openers: map[string]bus.Opener{
			".so": bus.PluginOpener{},
			".go": interp.Opener{},
		},
		console: os.Stderr,
	}
	for _, opt := range opts {
		opt(o)
	}

	logger := o.logger
	if logger == nil {
		var err error
		if logger, err = config.NewLogger(cfg); err != nil {
			return nil, err
		}
	}

	h := &Host{logger: logger, reporter: diag.NewReporter()}
	h.ctx, h.cancel = context.WithCancel(ctx)

	diag.AttachAll(h.reporter, diag.LevelDebug, diag.ZapAction(logger))
	if cfg.Console {
		diag.AttachAll(h.reporter, diag.LevelInfo, diag.ConsoleAction(o.console))
	}

	if err := h.start(cfg, o); err != nil {
		h.Close()
		return nil, err
	}
	return h, nil
}

func (h *Host) start(cfg *config.Config, o *options) error {
	sp := bus.NewSearchPath()
	for _, dir := range cfg.SearchPaths {
		if err := sp.Add(dir); err != nil {
			return err
		}
	}

	sysOpts := []bus.Option{
		bus.WithSearchPath(sp),
		bus.WithFailureHandler(func(path string, err error) {
			h.logger.Warn("module initialization failed",
				zap.String("path", path),
				zap.Error(err))
		}),
	}
	for ext, op := range o.openers {
		sysOpts = append(sysOpts, bus.WithOpener(ext, op))
	}
	h.sys = bus.NewSystem(h.reporter, sysOpts...)

	if cfg.Journal != "" {
		j, err := journal.Open(h.ctx, cfg.Journal)
		if err != nil {
			return fmt.Errorf("opening load journal: %w", err)
		}
		h.journal = j
	}

	h.mu.Lock()
	for _, gen := range o.builtins {
		if err := h.sys.WrapBuiltin(gen); err != nil {
			diag.Unwind(h.reporter, err)
			h.startErrs = append(h.startErrs, err)
		}
	}
	for _, name := range cfg.Modules {
		path := h.locate(name)
		err := h.sys.LoadModuleFile(path)
		if err != nil {
			diag.Unwind(h.reporter, err)
			h.startErrs = append(h.startErrs, err)
		}
		h.observe(path, err)
	}
	h.mu.Unlock()

	for _, dir := range cfg.ModuleDirs {
		if err := discovery.ScanLocked(h.sys, &h.mu, dir, h.observe); err != nil {
			h.startErrs = append(h.startErrs, err)
		}
	}

	if cfg.Watch {
		w, err := discovery.NewWatcher(h.sys, &h.mu, cfg.ModuleDirs, discovery.WithObserver(h.observe))
		if err != nil {
			return err
		}
		h.watcher = w
		h.group.Go(func() error {
			if err := w.Run(h.ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	if cfg.InspectAddr != "" {
		if err := h.serve(cfg.InspectAddr); err != nil {
			return err
		}
	}
	return nil
}

// locate resolves a configured module name. Names that are not files
// relative to the working directory are looked up on the search path.
func (h *Host) locate(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	if _, err := os.Stat(name); err == nil {
		return name
	}
	if p, ok := h.sys.SearchPath().Find(name, ""); ok {
		return p
	}
	return name
}

// observe journals a load attempt. Called with h.mu held.
func (h *Host) observe(path string, err error) {
	if h.journal == nil {
		return
	}
	if jerr := h.journal.Observe(h.ctx, h.sys, path, err); jerr != nil {
		h.logger.Warn("failed to record load", zap.String("path", path), zap.Error(jerr))
	}
}

func (h *Host) serve(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	h.addr = ln.Addr()
	h.srv = &http.Server{
		Handler:      inspect.NewHandler(h.sys, &h.mu, h.journal),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	h.logger.Info("inspection server listening", zap.String("addr", h.addr.String()))
	h.group.Go(func() error {
		if err := h.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	return nil
}

// System returns the hosted System. Hold the host's lock while using it.
func (h *Host) System() *bus.System {
	return h.sys
}

// Reporter returns the reporter shared by the System and the host
func (h *Host) Reporter() *diag.Reporter {
	return h.reporter
}

// Journal returns the load journal, or nil if none is configured
func (h *Host) Journal() *journal.Journal {
	return h.journal
}

// Lock takes the host's lock
func (h *Host) Lock() {
	h.mu.Lock()
}

// Unlock releases the host's lock
func (h *Host) Unlock() {
	h.mu.Unlock()
}

// Addr returns the address the inspection server listens on, or nil
func (h *Host) Addr() net.Addr {
	return h.addr
}

// StartupErrors returns the module load failures met during New, joined
func (h *Host) StartupErrors() error {
	return errors.Join(h.startErrs...)
}

// Close stops background work, unloads every module and closes the
// journal. Calling it again returns the first result.
func (h *Host) Close() error {
	h.closeOnce.Do(func() {
		var errs []error
		h.cancel()

		if h.srv != nil {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			if err := h.srv.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("shutting down inspection server: %w", err))
			}
			cancel()
		}
		if h.watcher != nil {
			if err := h.watcher.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		if err := h.group.Wait(); err != nil {
			errs = append(errs, err)
		}

		if h.sys != nil {
			h.mu.Lock()
			if err := h.sys.Close(); err != nil {
				diag.Unwind(h.reporter, err)
				errs = append(errs, err)
			}
			h.mu.Unlock()
		}
		if h.journal != nil {
			if err := h.journal.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		// stderr/stdout sync errors are not interesting
		_ = h.logger.Sync()

		h.closeErr = errors.Join(errs...)
	})
	return h.closeErr
}
