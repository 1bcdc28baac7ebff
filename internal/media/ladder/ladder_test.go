package ladder

import (
	"testing"

	"anchorcast/internal/media/probe"
)

func TestPlanStopsAtFirstFailingBase(t *testing.T) {
	// 1000px source: bases 20, 40, 80 qualify (180, 360, 720); 120 fails
	// (1080 > 1000) and evaluation stops there.
	jobs := Plan("in.mkv", probe.Info{Width: 1500, Height: 1000, AudioCodec: "opus"})
	heights := make([]int, 0, len(jobs))
	for _, job := range jobs {
		heights = append(heights, job.Height)
	}
	want := []int{180, 360, 720}
	if len(heights) != len(want) {
		t.Fatalf("unexpected heights %v", heights)
	}
	for i := range want {
		if heights[i] != want[i] {
			t.Fatalf("height %d: got %d, want %d", i, heights[i], want[i])
		}
	}
}

func TestPlan720pAACSource(t *testing.T) {
	jobs := Plan("in.mkv", probe.Info{Width: 1280, Height: 720, AudioCodec: "aac"})
	want := []Job{
		{SourcePath: "in.mkv", Width: 320, Height: 180, AudioPassthrough: true},
		{SourcePath: "in.mkv", Width: 640, Height: 360, AudioPassthrough: true},
		{SourcePath: "in.mkv", Width: 1280, Height: 720, AudioPassthrough: true},
	}
	if len(jobs) != len(want) {
		t.Fatalf("unexpected ladder %+v", jobs)
	}
	for i := range want {
		if jobs[i] != want[i] {
			t.Fatalf("job %d: got %+v, want %+v", i, jobs[i], want[i])
		}
	}
}

func TestPlanPreservesAspectRatioWithRounding(t *testing.T) {
	// 852x480: 180-target width is 180*852/480 = 319.5, rounds to 320.
	jobs := Plan("in.mkv", probe.Info{Width: 852, Height: 480, AudioCodec: "aac"})
	if len(jobs) == 0 {
		t.Fatal("expected at least one job")
	}
	if jobs[0].Width != 320 || jobs[0].Height != 180 {
		t.Fatalf("unexpected first job %+v", jobs[0])
	}
}

func TestPlanLowResolutionSource(t *testing.T) {
	if jobs := Plan("in.mkv", probe.Info{Width: 200, Height: 120}); len(jobs) != 0 {
		t.Fatalf("expected empty ladder, got %+v", jobs)
	}
	jobs := Plan("in.mkv", probe.Info{Width: 320, Height: 180})
	if len(jobs) != 1 || jobs[0].Height != 180 {
		t.Fatalf("expected single 180p job, got %+v", jobs)
	}
}

func TestPlanHeightsStrictlyIncreaseAndFitSource(t *testing.T) {
	info := probe.Info{Width: 7680, Height: 4320, AudioCodec: "aac"}
	jobs := Plan("in.mkv", info)
	if len(jobs) != len(baseUnits) {
		t.Fatalf("4320p source should qualify every base, got %d jobs", len(jobs))
	}
	previous := 0
	for _, job := range jobs {
		if job.Height <= previous {
			t.Fatalf("heights not strictly increasing: %+v", jobs)
		}
		if job.Height > info.Height {
			t.Fatalf("job height %d exceeds source", job.Height)
		}
		previous = job.Height
	}
}
