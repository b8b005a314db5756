package daemonrun

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"whorl/internal/config"
	"whorl/internal/daemon"
	"whorl/internal/identity"
	"whorl/internal/ipc"
	"whorl/internal/logging"
	"whorl/internal/matching"
	"whorl/internal/visitors"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel string
}

// Run starts the whorl daemon runtime loop and blocks until the process is
// signalled or the parent context is canceled.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.RequireSecret(); err != nil {
		return err
	}
	if strings.TrimSpace(opts.LogLevel) != "" {
		overridden := *cfg
		overridden.Logging.Level = opts.LogLevel
		cfg = &overridden
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}
	pidPath := filepath.Join(cfg.Paths.StateDir, "whorl.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := visitors.Open(cfg)
	if err != nil {
		logger.Error("open visitor store", logging.Error(err))
		return err
	}

	signer := identity.NewSigner(cfg.Identity.Secret, cfg.TokenMaxAge())
	engine := matching.New(cfg, store, signer, logger)

	d, err := daemon.New(cfg, store, engine, logger)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	ipcServer, err := ipc.NewServer(signalCtx, cfg.SocketPath(), d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(signalCtx); err != nil {
		return err
	}

	<-signalCtx.Done()
	logger.Info("whorl daemon shutting down")
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
