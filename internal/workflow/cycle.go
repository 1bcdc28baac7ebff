package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"anchorcast/internal/cursor"
	"anchorcast/internal/logging"
	"anchorcast/internal/media/ladder"
	"anchorcast/internal/media/probe"
	"anchorcast/internal/mipmap"
	"anchorcast/internal/record"
	"anchorcast/internal/resolver"
	"anchorcast/internal/services"
)

// inspectSource is swapped in tests.
var inspectSource = probe.Inspect

func (m *Manager) runCycle(ctx context.Context) error {
	cycleID := uuid.NewString()
	ctx = services.WithCycleID(ctx, cycleID)
	logger := m.logger.With(logging.String(logging.FieldCycleID, cycleID))

	itemID, lastID, err := m.resolveNext(ctx, logger)
	if err != nil {
		if errors.Is(err, resolver.ErrCursorLost) {
			if notifyErr := m.deps.Notifier.NotifyCursorLost(ctx, lastID); notifyErr != nil {
				logger.Warn("cursor lost notification failed", logging.Error(notifyErr))
			}
		}
		return err
	}
	if itemID == "" {
		logger.Debug("feed up to date")
		return nil
	}

	ctx = services.WithItemID(ctx, itemID)
	logger = logger.With(logging.String(logging.FieldItemID, itemID))
	logger.Info("publishing item")

	title, err := m.publish(ctx, logger, itemID)
	if err != nil {
		if notifyErr := m.deps.Notifier.NotifyCycleFailed(ctx, err, itemID); notifyErr != nil {
			logger.Warn("failure notification failed", logging.Error(notifyErr))
		}
		return err
	}

	if err := m.deps.Cursor.Put(ctx, itemID); err != nil {
		return err
	}
	logger.Info("item published, cursor advanced")

	if err := m.deps.Notifier.NotifyPublished(ctx, itemID, title); err != nil {
		logger.Warn("publish notification failed", logging.Error(err))
	}
	return nil
}

// resolveNext returns the id of the item to publish this cycle, or empty
// when the feed has nothing new. The second return is the stored cursor
// value, for error reporting.
func (m *Manager) resolveNext(ctx context.Context, logger *slog.Logger) (string, string, error) {
	lastID, err := m.deps.Cursor.Get(ctx)
	if err != nil {
		if errors.Is(err, cursor.ErrNotFound) {
			logger.Info("no cursor, bootstrapping from feed head")
			id, firstErr := m.deps.Resolver.FirstID(ctx)
			return id, "", firstErr
		}
		return "", "", err
	}

	id, err := m.deps.Resolver.NextID(ctx, lastID)
	if err != nil {
		return "", lastID, err
	}
	return id, lastID, nil
}

// publish runs the full per-item pipeline in a throwaway work directory and
// returns the item title for notification purposes.
func (m *Manager) publish(ctx context.Context, logger *slog.Logger, itemID string) (string, error) {
	cycleID, ok := services.CycleIDFromContext(ctx)
	if !ok {
		cycleID = uuid.NewString()
	}
	workDir := filepath.Join(m.cfg.Paths.StagingDir, "work", cycleID)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrSource, "workflow", "publish", "create work directory", err)
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			logger.Warn("work directory cleanup failed", logging.Error(err))
		}
	}()

	item, err := m.deps.Feed.Fetch(ctx, itemID, workDir)
	if err != nil {
		return "", err
	}
	logger.Info("item fetched", logging.String("title", item.Title))

	info, err := inspectSource(ctx, m.cfg.FFmpegBinary(), item.VideoPath)
	if err != nil {
		return item.Title, err
	}

	encodings, err := m.transcodeLadder(ctx, logger, item.VideoPath, info, workDir)
	if err != nil {
		return item.Title, err
	}

	levels, err := m.deps.Mipmaps.Build(ctx, item.ThumbnailPath)
	if err != nil {
		return item.Title, err
	}
	imageLevels, err := recordLevels(levels)
	if err != nil {
		return item.Title, err
	}

	facets := []record.Facet{
		{Tag: record.TagTitle, Payload: record.EncodeText(item.Title)},
		{Tag: record.TagBodyText, Payload: record.EncodeText(item.Description)},
		{Tag: record.TagImage, Payload: record.EncodeImage(imageLevels)},
		{Tag: record.TagVideo, Payload: record.EncodeVideo(encodings)},
		{Tag: record.TagSourceURI, Payload: record.EncodeText(fmt.Sprintf(m.cfg.Feed.ItemURLTemplate, itemID))},
	}
	composite, err := record.Compose(facets)
	if err != nil {
		return item.Title, err
	}

	ref, err := m.deps.Store.Add(ctx, composite)
	if err != nil {
		return item.Title, err
	}
	logger.Info("record stored",
		logging.String("digest", ref.Hash),
		logging.Int64("size_bytes", ref.Size),
	)

	if err := m.deps.Ledger.Anchor(ctx, ref); err != nil {
		return item.Title, err
	}
	return item.Title, nil
}

// transcodeLadder encodes and uploads every planned rendition in order,
// lowest first.
func (m *Manager) transcodeLadder(ctx context.Context, logger *slog.Logger, sourcePath string, info probe.Info, workDir string) ([]record.VideoEncoding, error) {
	jobs := ladder.Plan(sourcePath, info)
	if len(jobs) == 0 {
		return nil, services.Wrap(services.ErrProbeParse, "workflow", "transcode", fmt.Sprintf("source %dx%d below the smallest rendition", info.Width, info.Height), nil)
	}

	encodings := make([]record.VideoEncoding, 0, len(jobs))
	for _, job := range jobs {
		outputPath, err := m.deps.Encoder.Transcode(ctx, job, workDir)
		if err != nil {
			return nil, err
		}
		ref, err := m.deps.Store.AddFile(ctx, outputPath)
		if err != nil {
			return nil, err
		}
		digest, err := ref.DigestBytes()
		if err != nil {
			return nil, services.Wrap(services.ErrUpload, "workflow", "transcode", "rendition digest", err)
		}
		logger.Info("rendition uploaded",
			logging.Int("width", job.Width),
			logging.Int("height", job.Height),
			logging.String("digest", ref.Hash),
		)
		encodings = append(encodings, record.VideoEncoding{
			Digest: digest,
			Width:  uint32(job.Width),
			Height: uint32(job.Height),
		})
	}
	return encodings, nil
}

func recordLevels(levels []mipmap.Level) ([]record.MipmapLevel, error) {
	out := make([]record.MipmapLevel, 0, len(levels))
	for _, level := range levels {
		digest, err := level.Ref.DigestBytes()
		if err != nil {
			return nil, services.Wrap(services.ErrUpload, "workflow", "mipmap", "level digest", err)
		}
		out = append(out, record.MipmapLevel{
			SizeBytes: uint64(level.Ref.Size),
			Digest:    digest,
		})
	}
	return out, nil
}
