package probe

import (
	"context"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"anchorcast/internal/services"
)

var commandContext = exec.CommandContext

// Extraction contract over ffmpeg's human-readable banner:
//   - Duration line: "Duration: HH:MM:SS." (fractional part discarded)
//   - Video stream: "Video: <codec>, ..., <W>x<H> ..., <rate> fps,"
//   - Audio stream: "Audio: <codec>"
//
// The patterns are fixed; any miss is a probe parse failure rather than a
// guess, since a miss means the tool's output format drifted.
var (
	durationPattern = regexp.MustCompile(`Duration: (\d*):(\d*):(\d*)\.`)
	videoPattern    = regexp.MustCompile(`Video: .*, (\d*)x(\d*).*, ([0-9.]*) fps, `)
	vcodecPattern   = regexp.MustCompile(`Video: (\w*)`)
	acodecPattern   = regexp.MustCompile(`Audio: (\w*)`)
)

// Info is the parsed source description the rendition planner consumes.
type Info struct {
	DurationSeconds int
	Width           int
	Height          int
	FrameRate       float64
	VideoCodec      string
	AudioCodec      string
}

// Inspect runs `ffmpeg -i path` and parses the diagnostic banner. ffmpeg
// exits nonzero when invoked without outputs; the banner on stderr is the
// product, so the exit status is ignored when parsing succeeds.
func Inspect(ctx context.Context, binary, path string) (Info, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	if strings.TrimSpace(path) == "" {
		return Info{}, services.Wrap(services.ErrProbeParse, "probe", "inspect", "empty path", nil)
	}

	cmd := commandContext(ctx, binary, "-i", path)
	output, _ := cmd.CombinedOutput()
	return Parse(string(output))
}

// Parse extracts media facts from a captured diagnostic banner.
func Parse(diagnostic string) (Info, error) {
	var info Info

	matches := durationPattern.FindStringSubmatch(diagnostic)
	if matches == nil {
		return Info{}, parseFailure("duration")
	}
	hours, _ := strconv.Atoi(matches[1])
	minutes, _ := strconv.Atoi(matches[2])
	seconds, _ := strconv.Atoi(matches[3])
	info.DurationSeconds = (hours*60+minutes)*60 + seconds

	matches = videoPattern.FindStringSubmatch(diagnostic)
	if matches == nil {
		return Info{}, parseFailure("video dimensions")
	}
	width, err := strconv.Atoi(matches[1])
	if err != nil {
		return Info{}, parseFailure("video width")
	}
	height, err := strconv.Atoi(matches[2])
	if err != nil {
		return Info{}, parseFailure("video height")
	}
	rate, err := strconv.ParseFloat(matches[3], 64)
	if err != nil {
		return Info{}, parseFailure("frame rate")
	}
	info.Width = width
	info.Height = height
	info.FrameRate = rate

	matches = vcodecPattern.FindStringSubmatch(diagnostic)
	if matches == nil {
		return Info{}, parseFailure("video codec")
	}
	info.VideoCodec = matches[1]

	matches = acodecPattern.FindStringSubmatch(diagnostic)
	if matches == nil {
		return Info{}, parseFailure("audio codec")
	}
	info.AudioCodec = matches[1]

	return info, nil
}

func parseFailure(field string) error {
	return services.Wrap(services.ErrProbeParse, "probe", "parse", field+" not found in diagnostic output", nil)
}
