package feed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"anchorcast/internal/services"
)

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	fmt.Fprint(os.Stdout, os.Getenv("FEED_HELPER_STDOUT"))
	os.Exit(0)
}

func stubCommand(t *testing.T, stdout string, captured *[]string) {
	t.Helper()
	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		if captured != nil {
			*captured = append([]string(nil), args...)
		}
		cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=TestHelperProcess")
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", "FEED_HELPER_STDOUT="+stdout)
		return cmd
	}
	t.Cleanup(func() { commandContext = original })
}

func TestQueryParsesWindow(t *testing.T) {
	var args []string
	stubCommand(t, `{"entries":[{"id":"newest"},{"id":"older"}]}`, &args)

	cli := NewCLI("https://example.com/playlist", "https://example.com/watch?v=%s")
	entries, err := cli.Query(context.Background(), 4, 2)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(entries) != 2 || entries[0].ID != "newest" || entries[1].ID != "older" {
		t.Fatalf("unexpected entries %+v", entries)
	}

	want := []string{"--dump-single-json", "--flat-playlist", "--playlist-start", "5", "--playlist-end", "6", "https://example.com/playlist"}
	if len(args) != len(want) {
		t.Fatalf("unexpected args %v", args)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Fatalf("arg %d: got %q, want %q", i, args[i], want[i])
		}
	}
}

func TestQueryRejectsEmptyWindow(t *testing.T) {
	cli := NewCLI("uri", "%s")
	if _, err := cli.Query(context.Background(), 0, 0); err == nil {
		t.Fatal("expected error for zero window")
	}
}

func TestQueryMalformedJSONIsSourceError(t *testing.T) {
	stubCommand(t, "{nope", nil)
	cli := NewCLI("uri", "%s")
	_, err := cli.Query(context.Background(), 0, 2)
	if !errors.Is(err, services.ErrSource) {
		t.Fatalf("expected ErrSource, got %v", err)
	}
}

func TestFetchBuildsItem(t *testing.T) {
	meta := `{"id":"abc123","title":"A Title","description":"body","width":1280,"height":720,"fps":29.97,"vcodec":"h264","acodec":"aac","duration":93.5}`
	var args []string
	stubCommand(t, meta, &args)

	work := t.TempDir()
	cli := NewCLI("uri", "https://example.com/watch?v=%s")
	item, err := cli.Fetch(context.Background(), "abc123", work)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if item.Title != "A Title" || item.AudioCodec != "aac" || item.Height != 720 {
		t.Fatalf("unexpected item %+v", item)
	}
	if item.VideoPath != filepath.Join(work, "abc123.mkv") {
		t.Fatalf("unexpected video path %q", item.VideoPath)
	}
	if item.ThumbnailPath != filepath.Join(work, "abc123.jpg") {
		t.Fatalf("unexpected thumbnail path %q", item.ThumbnailPath)
	}
	if args[len(args)-1] != "https://example.com/watch?v=abc123" {
		t.Fatalf("unexpected target URL %q", args[len(args)-1])
	}
}

func TestFetchRequiresID(t *testing.T) {
	cli := NewCLI("uri", "%s")
	if _, err := cli.Fetch(context.Background(), " ", t.TempDir()); err == nil {
		t.Fatal("expected error for empty id")
	}
}
