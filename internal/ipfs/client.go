package ipfs

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"strings"

	"github.com/ipfs/go-cid"
	"github.com/mr-tron/base58"
	"github.com/multiformats/go-multihash"

	"anchorcast/internal/services"
)

var commandContext = exec.CommandContext

// HTTPDoer describes the HTTP client used for in-memory uploads.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Ref identifies stored content: the store-native base58 digest string and
// the stored size in bytes.
type Ref struct {
	Hash string
	Size int64
}

// DigestBytes decodes the store-native hash into its raw multihash bytes,
// the form the ledger records. The decode is validated so a malformed store
// response is caught before it reaches a transaction.
func (r Ref) DigestBytes() ([]byte, error) {
	raw, err := base58.Decode(r.Hash)
	if err != nil {
		return nil, fmt.Errorf("decode store digest %q: %w", r.Hash, err)
	}
	if _, err := multihash.Decode(raw); err != nil {
		return nil, fmt.Errorf("store digest %q is not a multihash: %w", r.Hash, err)
	}
	return raw, nil
}

// CID parses the reference as a content identifier, mainly for logging.
func (r Ref) CID() (cid.Cid, error) {
	return cid.Decode(r.Hash)
}

// Client defines the content store surface the pipeline depends on.
type Client interface {
	Add(ctx context.Context, data []byte) (Ref, error)
	AddFile(ctx context.Context, path string) (Ref, error)
}

// Option configures the store client.
type Option func(*Store)

// WithBinary overrides the default CLI binary name.
func WithBinary(binary string) Option {
	return func(s *Store) {
		if binary != "" {
			s.binary = binary
		}
	}
}

// WithHTTPClient overrides the HTTP client used for in-memory uploads.
func WithHTTPClient(client HTTPDoer) Option {
	return func(s *Store) {
		if client != nil {
			s.client = client
		}
	}
}

// Store talks to a content-addressed store node over its HTTP API and CLI.
type Store struct {
	binary  string
	baseURL string
	client  HTTPDoer
}

// New constructs a Store client for the node's API port. The shared HTTP
// client keeps the connection alive across uploads in a cycle.
func New(apiPort int, opts ...Option) *Store {
	store := &Store{
		binary:  "ipfs",
		baseURL: fmt.Sprintf("http://127.0.0.1:%d", apiPort),
		client:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// AddFile uploads a named file by delegating to the store CLI, capturing the
// emitted digest. Used for large transcoder outputs that already live on
// disk.
func (s *Store) AddFile(ctx context.Context, path string) (Ref, error) {
	if strings.TrimSpace(path) == "" {
		return Ref{}, services.Wrap(services.ErrUpload, "store", "add file", "empty path", nil)
	}
	cmd := commandContext(ctx, s.binary, "add", "-Q", "--raw-leaves", path)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return Ref{}, services.Wrap(services.ErrUpload, "store", "add file", strings.TrimSpace(stderr.String()), err)
	}
	hash := strings.TrimSpace(stdout.String())
	if hash == "" {
		return Ref{}, services.Wrap(services.ErrUpload, "store", "add file", "tool printed no digest", nil)
	}
	return Ref{Hash: hash}, nil
}

// Add uploads an in-memory payload over HTTP. The multipart envelope is
// hand-built: payload bytes are written raw into the body so arbitrary
// binary survives byte-for-byte, with a fresh random boundary per call.
func (s *Store) Add(ctx context.Context, data []byte) (Ref, error) {
	boundary, err := randomBoundary()
	if err != nil {
		return Ref{}, services.Wrap(services.ErrUpload, "store", "add", "generate boundary", err)
	}

	var body bytes.Buffer
	body.WriteString("--" + boundary + "\r\n")
	body.WriteString("Content-Disposition: form-data; name=\"file\"\r\n")
	body.WriteString("Content-Type: application/octet-stream\r\n\r\n")
	body.Write(data)
	body.WriteString("\r\n--" + boundary + "--\r\n")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/v0/add", &body)
	if err != nil {
		return Ref{}, services.Wrap(services.ErrUpload, "store", "add", "build request", err)
	}
	req.Header.Set("Content-Type", "multipart/form-data; boundary="+boundary)

	resp, err := s.client.Do(req)
	if err != nil {
		return Ref{}, services.Wrap(services.ErrUpload, "store", "add", "", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return Ref{}, services.Wrap(services.ErrUpload, "store", "add", "read response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Ref{}, services.Wrap(services.ErrUpload, "store", "add",
			fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload))), nil)
	}

	var result struct {
		Hash string      `json:"Hash"`
		Size json.Number `json:"Size"`
	}
	if err := json.Unmarshal(payload, &result); err != nil {
		return Ref{}, services.Wrap(services.ErrUpload, "store", "add", "decode response", err)
	}
	if result.Hash == "" {
		return Ref{}, services.Wrap(services.ErrUpload, "store", "add", "response missing digest", nil)
	}
	size, _ := result.Size.Int64()
	return Ref{Hash: result.Hash, Size: size}, nil
}

func randomBoundary() (string, error) {
	var raw [32]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(raw[:]), nil
}

var _ Client = (*Store)(nil)
