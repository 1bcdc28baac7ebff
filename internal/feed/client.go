package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"anchorcast/internal/services"
)

var commandContext = exec.CommandContext

// Entry is a single feed listing, newest-first.
type Entry struct {
	ID string `json:"id"`
}

// Item is the metadata and downloaded media for one feed item.
type Item struct {
	ID              string
	Title           string
	Description     string
	VideoPath       string
	ThumbnailPath   string
	Width           int
	Height          int
	FrameRate       float64
	VideoCodec      string
	AudioCodec      string
	DurationSeconds float64
}

// Client defines the feed source surface the pipeline depends on.
type Client interface {
	Query(ctx context.Context, offset, count int) ([]Entry, error)
	Fetch(ctx context.Context, id, workDir string) (Item, error)
}

// Option configures the CLI client.
type Option func(*CLI)

// WithBinary overrides the default tool binary name.
func WithBinary(binary string) Option {
	return func(c *CLI) {
		if binary != "" {
			c.binary = binary
		}
	}
}

// CLI wraps the feed retrieval command-line tool.
type CLI struct {
	binary      string
	sourceURI   string
	urlTemplate string
}

// NewCLI constructs a CLI client for the given playlist URI. The template
// builds a single item's retrieval URL from its id.
func NewCLI(sourceURI, urlTemplate string, opts ...Option) *CLI {
	cli := &CLI{binary: "youtube-dl", sourceURI: sourceURI, urlTemplate: urlTemplate}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// Query returns the feed window [offset, offset+count), newest-first.
func (c *CLI) Query(ctx context.Context, offset, count int) ([]Entry, error) {
	if count <= 0 {
		return nil, services.Wrap(services.ErrSource, "feed", "query", fmt.Sprintf("invalid window size %d", count), nil)
	}
	args := []string{
		"--dump-single-json",
		"--flat-playlist",
		"--playlist-start", fmt.Sprintf("%d", offset+1),
		"--playlist-end", fmt.Sprintf("%d", offset+count),
		c.sourceURI,
	}
	cmd := commandContext(ctx, c.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, services.Wrap(services.ErrSource, "feed", "query", strings.TrimSpace(stderr.String()), err)
	}

	var payload struct {
		Entries []Entry `json:"entries"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &payload); err != nil {
		return nil, services.Wrap(services.ErrSource, "feed", "query", "decode playlist dump", err)
	}
	return payload.Entries, nil
}

// Fetch downloads the item's video and thumbnail into workDir and returns
// the tool's printed metadata.
func (c *CLI) Fetch(ctx context.Context, id, workDir string) (Item, error) {
	if strings.TrimSpace(id) == "" {
		return Item{}, services.Wrap(services.ErrSource, "feed", "fetch", "empty item id", nil)
	}
	args := []string{
		"--write-thumbnail",
		"--print-json",
		"--id",
		"--merge-output-format", "mkv",
		fmt.Sprintf(c.urlTemplate, id),
	}
	cmd := commandContext(ctx, c.binary, args...)
	cmd.Dir = workDir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return Item{}, services.Wrap(services.ErrSource, "feed", "fetch", strings.TrimSpace(stderr.String()), err)
	}

	var meta struct {
		ID          string  `json:"id"`
		Title       string  `json:"title"`
		Description string  `json:"description"`
		Width       int     `json:"width"`
		Height      int     `json:"height"`
		FPS         float64 `json:"fps"`
		VCodec      string  `json:"vcodec"`
		ACodec      string  `json:"acodec"`
		Duration    float64 `json:"duration"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &meta); err != nil {
		return Item{}, services.Wrap(services.ErrSource, "feed", "fetch", "decode item metadata", err)
	}
	if meta.ID == "" {
		meta.ID = id
	}

	return Item{
		ID:              meta.ID,
		Title:           meta.Title,
		Description:     meta.Description,
		VideoPath:       filepath.Join(workDir, meta.ID+".mkv"),
		ThumbnailPath:   filepath.Join(workDir, meta.ID+".jpg"),
		Width:           meta.Width,
		Height:          meta.Height,
		FrameRate:       meta.FPS,
		VideoCodec:      meta.VCodec,
		AudioCodec:      meta.ACodec,
		DurationSeconds: meta.Duration,
	}, nil
}

var _ Client = (*CLI)(nil)
