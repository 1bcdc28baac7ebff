package ipfs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/multiformats/go-multihash"

	"anchorcast/internal/services"
)

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	fmt.Fprint(os.Stdout, os.Getenv("IPFS_HELPER_STDOUT"))
	os.Exit(0)
}

func storeDigest(t *testing.T, data []byte) string {
	t.Helper()
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		t.Fatalf("multihash: %v", err)
	}
	return base58.Encode(sum)
}

func newTestServer(t *testing.T, received *[]byte) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v0/add" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil {
			t.Errorf("parse content type: %v", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		reader := multipart.NewReader(r.Body, params["boundary"])
		part, err := reader.NextPart()
		if err != nil {
			t.Errorf("read part: %v", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		payload, err := io.ReadAll(part)
		if err != nil {
			t.Errorf("read payload: %v", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if received != nil {
			*received = payload
		}
		fmt.Fprintf(w, `{"Hash":%q,"Size":"%d"}`, storeDigest(t, payload), len(payload))
	}))
	t.Cleanup(server.Close)
	return server
}

func storeForServer(server *httptest.Server) *Store {
	store := New(0, WithHTTPClient(server.Client()))
	store.baseURL = server.URL
	return store
}

func TestAddPreservesBinaryPayload(t *testing.T) {
	// Bytes chosen to break any textual transport assumption: CRLF pairs,
	// NULs, high bytes, and a fake boundary marker.
	payload := append([]byte("--deadbeef--\r\n\x00\x01\xfe\xff"), bytes.Repeat([]byte{0x89, 0x0a, 0x0d}, 64)...)

	var received []byte
	server := newTestServer(t, &received)
	store := storeForServer(server)

	ref, err := store.Add(context.Background(), payload)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !bytes.Equal(received, payload) {
		t.Fatalf("payload corrupted in transit:\n got %x\nwant %x", received, payload)
	}
	if ref.Size != int64(len(payload)) {
		t.Fatalf("unexpected size %d", ref.Size)
	}
	if ref.Hash != storeDigest(t, payload) {
		t.Fatalf("unexpected digest %q", ref.Hash)
	}
}

func TestAddIdempotentPerContent(t *testing.T) {
	server := newTestServer(t, nil)
	store := storeForServer(server)
	payload := []byte("same bytes every time")

	first, err := store.Add(context.Background(), payload)
	if err != nil {
		t.Fatalf("first add: %v", err)
	}
	second, err := store.Add(context.Background(), payload)
	if err != nil {
		t.Fatalf("second add: %v", err)
	}
	if first.Hash != second.Hash {
		t.Fatalf("digests differ for identical content: %q vs %q", first.Hash, second.Hash)
	}
}

func TestAddFreshBoundaryPerCall(t *testing.T) {
	boundaries := map[string]int{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, params, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
		boundaries[params["boundary"]]++
		fmt.Fprintf(w, `{"Hash":%q,"Size":"1"}`, storeDigest(t, []byte{0}))
	}))
	t.Cleanup(server.Close)
	store := storeForServer(server)

	for i := 0; i < 3; i++ {
		if _, err := store.Add(context.Background(), []byte{0}); err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
	}
	if len(boundaries) != 3 {
		t.Fatalf("expected 3 distinct boundaries, got %v", boundaries)
	}
}

func TestAddServerErrorIsUploadError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "store offline", http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)
	store := storeForServer(server)

	_, err := store.Add(context.Background(), []byte("data"))
	if !errors.Is(err, services.ErrUpload) {
		t.Fatalf("expected ErrUpload, got %v", err)
	}
}

func TestAddFileCapturesDigest(t *testing.T) {
	digest := storeDigest(t, []byte("file contents"))
	original := commandContext
	var captured []string
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		captured = append([]string(nil), args...)
		cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=TestHelperProcess")
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", "IPFS_HELPER_STDOUT="+digest+"\n")
		return cmd
	}
	t.Cleanup(func() { commandContext = original })

	store := New(5001)
	ref, err := store.AddFile(context.Background(), "/work/720.mp4")
	if err != nil {
		t.Fatalf("add file: %v", err)
	}
	if ref.Hash != digest {
		t.Fatalf("unexpected digest %q", ref.Hash)
	}
	want := []string{"add", "-Q", "--raw-leaves", "/work/720.mp4"}
	if len(captured) != len(want) {
		t.Fatalf("unexpected args %v", captured)
	}
	for i := range want {
		if captured[i] != want[i] {
			t.Fatalf("arg %d: got %q, want %q", i, captured[i], want[i])
		}
	}
}

func TestDigestBytesRoundTrip(t *testing.T) {
	payload := []byte("digest me")
	ref := Ref{Hash: storeDigest(t, payload)}
	raw, err := ref.DigestBytes()
	if err != nil {
		t.Fatalf("digest bytes: %v", err)
	}
	decoded, err := multihash.Decode(raw)
	if err != nil {
		t.Fatalf("raw bytes are not a multihash: %v", err)
	}
	if decoded.Code != multihash.SHA2_256 {
		t.Fatalf("unexpected hash function %d", decoded.Code)
	}
	if base58.Encode(raw) != ref.Hash {
		t.Fatal("digest bytes do not re-encode to the store hash")
	}
}

func TestDigestBytesRejectsGarbage(t *testing.T) {
	if _, err := (Ref{Hash: "not!base58"}).DigestBytes(); err == nil {
		t.Fatal("expected error for invalid base58")
	}
	if _, err := (Ref{Hash: base58.Encode([]byte{0xff})}).DigestBytes(); err == nil {
		t.Fatal("expected error for non-multihash bytes")
	}
}
