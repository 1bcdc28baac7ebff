// Package ladder plans the set of target video encodings derived from a
// source's native dimensions.
package ladder

import (
	"math"

	"anchorcast/internal/media/probe"
)

// Base height units, each producing a 16:9-reference target height of b*9.
// The list is a protocol constant shared with existing published content.
var baseUnits = []int{20, 40, 80, 120, 160, 240, 320, 480}

// Job is one planned rendition encode. Immutable once planned.
type Job struct {
	SourcePath       string
	Width            int
	Height           int
	AudioPassthrough bool
}

// Plan derives the rendition ladder for a probed source. Candidate base unit
// b qualifies while b*9 fits within the source height; evaluation stops at
// the first failing candidate rather than skipping it, so the ladder is a
// prefix of the candidate list. Heights strictly increase and never exceed
// the source; widths preserve the source aspect ratio. Audio is passed
// through untouched when the source is already AAC.
func Plan(sourcePath string, info probe.Info) []Job {
	passthrough := info.AudioCodec == "aac"

	var jobs []Job
	for _, base := range baseUnits {
		height := base * 9
		if height > info.Height {
			break
		}
		jobs = append(jobs, Job{
			SourcePath:       sourcePath,
			Width:            scaledWidth(height, info.Width, info.Height),
			Height:           height,
			AudioPassthrough: passthrough,
		})
	}
	return jobs
}

func scaledWidth(targetHeight, sourceWidth, sourceHeight int) int {
	if sourceHeight == 0 {
		return 0
	}
	return int(math.Round(float64(targetHeight) * float64(sourceWidth) / float64(sourceHeight)))
}
