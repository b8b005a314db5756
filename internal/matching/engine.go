package matching

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"whorl/internal/config"
	"whorl/internal/identity"
	"whorl/internal/logging"
	"whorl/internal/visitors"
)

// recentVisitLimit caps the session read-back included in each result.
const recentVisitLimit = 10

// effectsTimeout bounds each asynchronous side-effect batch.
const effectsTimeout = 10 * time.Second

// Engine is the identification pipeline. It is safe for concurrent use; the
// store is the only shared state.
type Engine struct {
	store  *visitors.Store
	signer *identity.Signer
	logger *slog.Logger

	fuzzyScanLimit       int
	stableScanLimit      int
	fuzzyThreshold       int
	stableFuzzyThreshold int
	gpuScoreMin          float64
	trustWindow          time.Duration

	wg sync.WaitGroup
}

// New builds an engine from the matching and trust configuration sections.
func New(cfg *config.Config, store *visitors.Store, signer *identity.Signer, logger *slog.Logger) *Engine {
	return &Engine{
		store:                store,
		signer:               signer,
		logger:               logging.NewComponentLogger(logger, "matching"),
		fuzzyScanLimit:       cfg.Matching.FuzzyScanLimit,
		stableScanLimit:      cfg.Matching.StableScanLimit,
		fuzzyThreshold:       cfg.Matching.FuzzyThreshold,
		stableFuzzyThreshold: cfg.Matching.StableFuzzyThreshold,
		gpuScoreMin:          cfg.Matching.GPUScoreMin,
		trustWindow:          cfg.TrustWindow(),
	}
}

// Drain waits for in-flight side effects to finish or the context to expire.
func (e *Engine) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
