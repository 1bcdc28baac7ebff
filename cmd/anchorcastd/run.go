package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"anchorcast/internal/config"
	"anchorcast/internal/cursor"
	"anchorcast/internal/deps"
	"anchorcast/internal/encoder"
	"anchorcast/internal/feed"
	"anchorcast/internal/ipfs"
	"anchorcast/internal/ledger"
	"anchorcast/internal/logging"
	"anchorcast/internal/mipmap"
	"anchorcast/internal/resolver"
	"anchorcast/internal/workflow"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the publishing daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd.Context(), ctx, false)
		},
	}
}

func newOnceCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Run a single publish cycle and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd.Context(), ctx, true)
		},
	}
}

func runPipeline(cmdCtx context.Context, ctx *commandContext, once bool) error {
	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(logging.Options{
		Level:    cfg.Logging.Level,
		Format:   cfg.Logging.Format,
		FilePath: filepath.Join(cfg.Paths.LogDir, "anchorcastd.log"),
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	statuses := deps.CheckBinaries(deps.Required(cfg))
	if missing := deps.MissingRequired(statuses); len(missing) > 0 {
		for _, status := range missing {
			logger.Error("required tool unavailable",
				logging.String("tool", status.Name),
				logging.String("detail", status.Detail),
			)
		}
		return fmt.Errorf("%d required external tools are missing", len(missing))
	}

	lock := flock.New(filepath.Join(cfg.Paths.StagingDir, "anchorcastd.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !locked {
		return errors.New("another anchorcast instance is already running")
	}
	defer func() { _ = lock.Unlock() }()

	cursorStore, err := cursor.Open(cfg.Paths.StagingDir)
	if err != nil {
		return fmt.Errorf("open cursor store: %w", err)
	}
	defer cursorStore.Close()

	manager, err := buildManager(signalCtx, cfg, cursorStore, logger)
	if err != nil {
		return err
	}

	if once {
		return manager.RunOnce(signalCtx)
	}

	if err := manager.Start(signalCtx); err != nil {
		return fmt.Errorf("start workflow: %w", err)
	}
	logger.Info("anchorcast daemon started")

	<-signalCtx.Done()
	logger.Info("anchorcast daemon shutting down")
	manager.Stop()
	return nil
}

func buildManager(ctx context.Context, cfg *config.Config, cursorStore *cursor.Store, logger *slog.Logger) (*workflow.Manager, error) {
	feedClient := feed.NewCLI(cfg.Feed.SourceURI, cfg.Feed.ItemURLTemplate, feed.WithBinary(cfg.Feed.Tool))
	store := ipfs.New(cfg.Store.APIPort, ipfs.WithBinary(cfg.StoreBinary()))

	identity, err := ledger.DeriveIdentity(cfg.Ledger.RecoveryPhrase)
	if err != nil {
		return nil, fmt.Errorf("derive ledger identity: %w", err)
	}
	backend, err := ledger.Dial(cfg.Ledger.IPCPath)
	if err != nil {
		return nil, fmt.Errorf("dial ledger node: %w", err)
	}
	publisher, err := ledger.NewPublisher(backend, identity, cfg.Ledger, logger)
	if err != nil {
		return nil, err
	}
	if err := publisher.Init(ctx); err != nil {
		return nil, err
	}

	return workflow.NewManager(cfg, workflow.Deps{
		Feed:     feedClient,
		Resolver: resolver.New(feedClient, cfg.Feed.MaxScanDepth),
		Cursor:   cursorStore,
		Encoder:  encoder.NewCLI(cfg.Encoder.CRF, cfg.Encoder.Preset, encoder.WithLogger(logger)),
		Store:    store,
		Mipmaps:  mipmap.NewBuilder(store, cfg.Encoder.JPEGQuality),
		Ledger:   publisher,
	}, logger)
}
