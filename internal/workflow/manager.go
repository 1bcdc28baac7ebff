package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"anchorcast/internal/config"
	"anchorcast/internal/encoder"
	"anchorcast/internal/feed"
	"anchorcast/internal/ipfs"
	"anchorcast/internal/logging"
	"anchorcast/internal/mipmap"
	"anchorcast/internal/notifications"
	"anchorcast/internal/services"
)

// Resolver finds the next unpublished feed item from the cursor position.
type Resolver interface {
	FirstID(ctx context.Context) (string, error)
	NextID(ctx context.Context, lastID string) (string, error)
}

// CursorStore is the durable cursor surface the pipeline depends on.
type CursorStore interface {
	Get(ctx context.Context) (string, error)
	Put(ctx context.Context, id string) error
}

// MipmapBuilder turns a thumbnail into an uploaded image pyramid.
type MipmapBuilder interface {
	Build(ctx context.Context, thumbnailPath string) ([]mipmap.Level, error)
}

// Anchorer records a composite record's digest on the ledger.
type Anchorer interface {
	Anchor(ctx context.Context, ref ipfs.Ref) error
}

// Deps bundles the pipeline's collaborators. All fields are required except
// Notifier, which defaults to the noop service.
type Deps struct {
	Feed     feed.Client
	Resolver Resolver
	Cursor   CursorStore
	Encoder  encoder.Client
	Store    ipfs.Client
	Mipmaps  MipmapBuilder
	Ledger   Anchorer
	Notifier notifications.Service
}

// Manager coordinates the polling loop and per-cycle pipeline.
type Manager struct {
	cfg          *config.Config
	deps         Deps
	logger       *slog.Logger
	pollInterval time.Duration

	// cycleMu serializes cycles. A tick arriving mid-cycle is dropped.
	cycleMu sync.Mutex

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewManager constructs a pipeline manager.
func NewManager(cfg *config.Config, deps Deps, logger *slog.Logger) (*Manager, error) {
	if deps.Feed == nil || deps.Resolver == nil || deps.Cursor == nil ||
		deps.Encoder == nil || deps.Store == nil || deps.Mipmaps == nil || deps.Ledger == nil {
		return nil, services.Wrap(services.ErrConfiguration, "workflow", "new manager", "missing pipeline dependency", nil)
	}
	if deps.Notifier == nil {
		deps.Notifier = notifications.NewService(cfg)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		cfg:          cfg,
		deps:         deps,
		logger:       logging.NewComponentLogger(logger, "workflow"),
		pollInterval: time.Duration(cfg.Workflow.PollIntervalSeconds) * time.Second,
	}, nil
}

// Start begins background polling.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(1)
	m.mu.Unlock()

	go m.runLoop(runCtx)
	return nil
}

// Stop terminates background polling and waits for the current cycle.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

func (m *Manager) runLoop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	m.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

func (m *Manager) tick(ctx context.Context) {
	if !m.cycleMu.TryLock() {
		m.logger.Debug("previous cycle still running, skipping tick",
			logging.String(logging.FieldEventType, "cycle_skipped"),
		)
		return
	}
	defer m.cycleMu.Unlock()

	if err := m.runCycle(ctx); err != nil && !errors.Is(err, context.Canceled) {
		m.logger.Error("cycle failed",
			logging.Error(err),
			logging.String(logging.FieldErrorKind, services.Classify(err)),
		)
	}
}

// RunOnce executes a single publish cycle. It shares the cycle lock with the
// background loop, so it cannot interleave with a running tick.
func (m *Manager) RunOnce(ctx context.Context) error {
	m.cycleMu.Lock()
	defer m.cycleMu.Unlock()
	return m.runCycle(ctx)
}
