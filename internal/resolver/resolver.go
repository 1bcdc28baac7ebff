// Package resolver determines the next unpublished feed item from the
// persisted cursor and the feed's newest-first ordering.
package resolver

import (
	"context"
	"errors"
	"fmt"

	"anchorcast/internal/feed"
	"anchorcast/internal/services"
)

// ErrCursorLost indicates the last-published id was not found within the
// configured scan depth. The feed has likely been rewritten or the item
// removed; operator attention is required rather than an unbounded scan.
var ErrCursorLost = errors.New("cursor id no longer present in feed")

// Querier is the feed window lookup the resolver needs.
type Querier interface {
	Query(ctx context.Context, offset, count int) ([]feed.Entry, error)
}

// Resolver walks the feed in two-entry windows.
type Resolver struct {
	querier      Querier
	maxScanDepth int
}

// New constructs a Resolver. maxScanDepth bounds how many entries NextID
// inspects before reporting the cursor lost.
func New(querier Querier, maxScanDepth int) *Resolver {
	if maxScanDepth <= 0 {
		maxScanDepth = 500
	}
	return &Resolver{querier: querier, maxScanDepth: maxScanDepth}
}

// FirstID returns the newest entry's id, used to bootstrap when no cursor
// exists yet.
func (r *Resolver) FirstID(ctx context.Context) (string, error) {
	entries, err := r.querier.Query(ctx, 0, 2)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", services.Wrap(services.ErrSource, "resolver", "first id", "feed is empty", nil)
	}
	return entries[0].ID, nil
}

// NextID scans backward through the feed for lastID and returns its immediate
// predecessor in feed order: the next item to publish, since the feed lists
// newest first. An empty id with a nil error means the feed has nothing newer.
//
// The scan inspects overlapping windows (i, i+1). For a window [a, b]:
// a == lastID means lastID is still the newest entry; b == lastID means a is
// the next item. Anything else advances the window. The scan stops with
// ErrCursorLost once maxScanDepth entries have been inspected without finding
// lastID.
func (r *Resolver) NextID(ctx context.Context, lastID string) (string, error) {
	if lastID == "" {
		return "", services.Wrap(services.ErrSource, "resolver", "next id", "empty last id", nil)
	}
	for offset := 0; offset < r.maxScanDepth; offset++ {
		entries, err := r.querier.Query(ctx, offset, 2)
		if err != nil {
			return "", err
		}
		if len(entries) == 0 {
			break
		}
		if entries[0].ID == lastID {
			return "", nil
		}
		if len(entries) > 1 && entries[1].ID == lastID {
			return entries[0].ID, nil
		}
		if len(entries) < 2 {
			break
		}
	}
	return "", services.Wrap(services.ErrSource, "resolver", "next id",
		fmt.Sprintf("scanned %d entries", r.maxScanDepth), ErrCursorLost)
}
