package encoder

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"anchorcast/internal/logging"
	"anchorcast/internal/media/ladder"
	"anchorcast/internal/services"
)

var commandContext = exec.CommandContext

// Client defines transcoding behaviour.
type Client interface {
	Transcode(ctx context.Context, job ladder.Job, outputDir string) (string, error)
}

// Option configures the CLI client.
type Option func(*CLI)

// WithBinary overrides the default binary name.
func WithBinary(binary string) Option {
	return func(c *CLI) {
		if binary != "" {
			c.binary = binary
		}
	}
}

// WithLogger attaches a logger for streamed tool output.
func WithLogger(logger *slog.Logger) Option {
	return func(c *CLI) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// CLI wraps the ffmpeg command-line transcoder.
type CLI struct {
	binary string
	crf    int
	preset string
	logger *slog.Logger
}

// NewCLI constructs a CLI client with the configured quality parameters.
func NewCLI(crf int, preset string, opts ...Option) *CLI {
	cli := &CLI{binary: "ffmpeg", crf: crf, preset: preset, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// Args builds the H.264 argument list for one rendition job. The output file
// is named after the target height.
func (c *CLI) Args(job ladder.Job, outputDir string) []string {
	audio := "aac"
	if job.AudioPassthrough {
		audio = "copy"
	}
	return []string{
		"-i", job.SourcePath,
		"-c:v", "libx264",
		"-crf", strconv.Itoa(c.crf),
		"-preset", c.preset,
		"-vf", fmt.Sprintf("scale=%d:%d", job.Width, job.Height),
		"-g", "240",
		"-c:a", audio,
		"-movflags", "+faststart",
		"-y",
		filepath.Join(outputDir, fmt.Sprintf("%d.mp4", job.Height)),
	}
}

// Transcode runs ffmpeg for one rendition and returns the output path. Tool
// output is streamed to the logger at debug level.
func (c *CLI) Transcode(ctx context.Context, job ladder.Job, outputDir string) (string, error) {
	if strings.TrimSpace(job.SourcePath) == "" {
		return "", services.Wrap(services.ErrExternalTool, "encoder", "transcode", "source path required", nil)
	}
	if strings.TrimSpace(outputDir) == "" {
		return "", services.Wrap(services.ErrExternalTool, "encoder", "transcode", "output directory required", nil)
	}

	args := c.Args(job, outputDir)
	outputPath := args[len(args)-1]

	cmd := commandContext(ctx, c.binary, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, "encoder", "transcode", "stdout pipe", err)
	}
	cmd.Stderr = cmd.Stdout
	if err := cmd.Start(); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "encoder", "transcode", "start ffmpeg", err)
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			c.logger.Debug("ffmpeg", logging.String("line", line))
		}
	}
	if err := scanner.Err(); err != nil {
		_ = cmd.Wait()
		return "", services.Wrap(services.ErrExternalTool, "encoder", "transcode", "read ffmpeg output", err)
	}

	if err := cmd.Wait(); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "encoder", "transcode",
			fmt.Sprintf("%dp encode failed", job.Height), err)
	}
	return outputPath, nil
}

var _ Client = (*CLI)(nil)
