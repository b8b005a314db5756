package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"log/slog"

	"github.com/gofrs/flock"

	"whorl/internal/api"
	"whorl/internal/config"
	"whorl/internal/logging"
	"whorl/internal/matching"
	"whorl/internal/visitors"
)

// drainTimeout bounds how long Stop waits for asynchronous match side
// effects before releasing the lock anyway.
const drainTimeout = 5 * time.Second

// Daemon coordinates the identification service and enforces single-instance execution.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      *visitors.Store
	engine     *matching.Engine
	visitorSvc *api.VisitorService

	lockPath string
	lock     *flock.Flock

	api *apiServer

	startedAt time.Time
	running   atomic.Bool
	ctx       context.Context
	cancel    context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	Bind         string
	DatabasePath string
	SocketPath   string
	LockFilePath string
	StartedAt    time.Time
	Totals       visitors.Totals
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *visitors.Store, engine *matching.Engine, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || engine == nil {
		return nil, errors.New("daemon requires config, store, and engine")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:        cfg,
		logger:     logger,
		store:      store,
		engine:     engine,
		visitorSvc: api.NewVisitorService(store),
		lockPath:   lockPath,
		lock:       flock.New(lockPath),
	}

	apiSrv, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = apiSrv
	return d, nil
}

// Start acquires the single-instance lock and begins serving the HTTP API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another whorl daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.api.start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return fmt.Errorf("start api server: %w", err)
	}

	d.startedAt = time.Now().UTC()
	d.running.Store(true)
	d.logger.Info("whorl daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop shuts the HTTP API down, drains pending side effects, and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()

	drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if err := d.engine.Drain(drainCtx); err != nil {
		d.logger.Warn("side effects still pending at shutdown", logging.Error(err))
	}

	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("whorl daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Bind:         d.cfg.Server.Bind,
		DatabasePath: d.store.Path(),
		SocketPath:   d.cfg.SocketPath(),
		LockFilePath: d.lockPath,
		StartedAt:    d.startedAt,
	}
	if addr := d.api.address(); addr != "" {
		status.Bind = addr
	}
	totals, err := d.store.Totals(ctx)
	if err != nil {
		d.logger.Warn("totals read failed", logging.Error(err))
	} else if totals != nil {
		status.Totals = *totals
	}
	return status
}

// Stats returns the daily rollups for the requested window. The day count is
// clamped to the API bounds before querying.
func (d *Daemon) Stats(ctx context.Context, days int) (*api.StatsResponse, error) {
	if d.visitorSvc == nil {
		return nil, errors.New("visitor store unavailable")
	}
	return d.visitorSvc.Stats(ctx, days)
}

// DescribeVisitor returns the detail view for one visitor, or nil when the
// id is unknown.
func (d *Daemon) DescribeVisitor(ctx context.Context, id string) (*api.VisitorDetail, error) {
	if d.visitorSvc == nil {
		return nil, errors.New("visitor store unavailable")
	}
	return d.visitorSvc.Describe(ctx, id)
}

// DatabaseHealth returns detailed database diagnostics.
func (d *Daemon) DatabaseHealth(ctx context.Context) api.HealthResponse {
	if d.visitorSvc == nil {
		return api.HealthResponse{Status: api.HealthDegraded}
	}
	return d.visitorSvc.Health(ctx)
}

// Flush removes every visitor, fingerprint, session, and stats row.
func (d *Daemon) Flush(ctx context.Context) (int64, error) {
	if d.store == nil {
		return 0, errors.New("visitor store unavailable")
	}
	removed, err := d.store.Flush(ctx)
	if err != nil {
		return 0, err
	}
	d.logger.Info("visitor data flushed", logging.Int64("removed_visitors", removed))
	return removed, nil
}
