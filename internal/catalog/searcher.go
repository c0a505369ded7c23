package catalog

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/shelfmarkapp/shelfmark-server/internal/domain"
)

// ErrSuperseded is returned when a newer search was issued while this one
// was in flight. Callers should drop the result silently rather than
// surface it as a failure.
var ErrSuperseded = errors.New("search superseded by a newer query")

// Searcher serializes catalog searches for one user so that only the most
// recently issued query ever produces a result. Each search takes a
// monotonic sequence tag; when a response arrives after a newer search has
// started, it is discarded with ErrSuperseded.
type Searcher struct {
	client *Client
	seq    atomic.Uint64
}

// NewSearcher creates a searcher on top of the shared catalog client.
func NewSearcher(client *Client) *Searcher {
	return &Searcher{client: client}
}

// Search runs a catalog query. If a newer Search call is made before this
// one completes, the stale result is dropped and ErrSuperseded is returned.
func (s *Searcher) Search(ctx context.Context, query string) ([]domain.BookDraft, error) {
	tag := s.seq.Add(1)

	results, err := s.client.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	// A later call bumped the sequence while we were waiting.
	if s.seq.Load() != tag {
		return nil, ErrSuperseded
	}

	return results, nil
}
