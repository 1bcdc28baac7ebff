package probe

import (
	"errors"
	"testing"

	"anchorcast/internal/services"
)

// Captured from a real `ffmpeg -i` invocation against a 720p download.
const sampleBanner = `ffmpeg version 4.2.2 Copyright (c) 2000-2019 the FFmpeg developers
  built with gcc 9.2.0
Input #0, matroska,webm, from 'abc123.mkv':
  Metadata:
    ENCODER         : Lavf58.29.100
  Duration: 00:03:21.42, start: 0.000000, bitrate: 2732 kb/s
    Stream #0:0: Video: h264 (High), yuv420p(tv, bt709, progressive), 1280x720 [SAR 1:1 DAR 16:9], 29.97 fps, 29.97 tbr, 1k tbn, 59.94 tbc (default)
    Stream #0:1(eng): Audio: aac (LC), 44100 Hz, stereo, fltp (default)
At least one output file must be specified
`

func TestParseSampleBanner(t *testing.T) {
	info, err := Parse(sampleBanner)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if info.DurationSeconds != 3*60+21 {
		t.Fatalf("unexpected duration %d", info.DurationSeconds)
	}
	if info.Width != 1280 || info.Height != 720 {
		t.Fatalf("unexpected dimensions %dx%d", info.Width, info.Height)
	}
	if info.FrameRate != 29.97 {
		t.Fatalf("unexpected frame rate %v", info.FrameRate)
	}
	if info.VideoCodec != "h264" {
		t.Fatalf("unexpected video codec %q", info.VideoCodec)
	}
	if info.AudioCodec != "aac" {
		t.Fatalf("unexpected audio codec %q", info.AudioCodec)
	}
}

func TestParseHourLongDuration(t *testing.T) {
	banner := `  Duration: 01:02:03.99, start: 0.0
    Stream #0:0: Video: vp9, yuv420p, 640x360, 24 fps, 24 tbr
    Stream #0:1: Audio: opus, 48000 Hz`
	info, err := Parse(banner)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if info.DurationSeconds != (1*60+2)*60+3 {
		t.Fatalf("unexpected duration %d", info.DurationSeconds)
	}
	if info.AudioCodec != "opus" {
		t.Fatalf("unexpected audio codec %q", info.AudioCodec)
	}
}

func TestParseMissingDuration(t *testing.T) {
	_, err := Parse("no streams here at all")
	if !errors.Is(err, services.ErrProbeParse) {
		t.Fatalf("expected ErrProbeParse, got %v", err)
	}
}

func TestParseMissingAudio(t *testing.T) {
	banner := `  Duration: 00:00:10.00
    Stream #0:0: Video: h264, yuv420p, 320x180, 30 fps, 30 tbr`
	if _, err := Parse(banner); !errors.Is(err, services.ErrProbeParse) {
		t.Fatalf("expected ErrProbeParse for missing audio, got %v", err)
	}
}
