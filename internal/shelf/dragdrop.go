// Package shelf holds the in-memory shelf sessions that sit between the
// HTTP layer and the document store. A session owns a user's working copy
// of their bookshelf, applies edits to it, and persists snapshots in the
// background with coalesced writes.
package shelf

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shelfmarkapp/shelfmark-server/internal/domain"
)

// MoveRequest describes a resolved drag-and-drop: take the book at Index
// on From and append it to To.
type MoveRequest struct {
	From  domain.ShelfName
	Index int
	To    domain.ShelfName
}

// ParseDragID parses a drag identifier of the form "<shelf>-<index>".
// A bare shelf name (a drop onto empty shelf space) yields index -1.
// Shelf names themselves contain hyphens-free words with spaces, so the
// split happens at the last hyphen.
func ParseDragID(id string) (domain.ShelfName, int, error) {
	if domain.ShelfName(id).Valid() {
		return domain.ShelfName(id), -1, nil
	}

	cut := strings.LastIndex(id, "-")
	if cut < 0 {
		return "", 0, fmt.Errorf("malformed drag id %q", id)
	}

	shelf := domain.ShelfName(id[:cut])
	if !shelf.Valid() {
		return "", 0, fmt.Errorf("unknown shelf in drag id %q", id)
	}

	index, err := strconv.Atoi(id[cut+1:])
	if err != nil || index < 0 {
		return "", 0, fmt.Errorf("bad index in drag id %q", id)
	}

	return shelf, index, nil
}

// ResolveDrop turns the active (dragged) and over (drop target) drag IDs
// into a move request. The target index is ignored; drops append to the
// destination shelf.
func ResolveDrop(activeID, overID string) (MoveRequest, error) {
	from, index, err := ParseDragID(activeID)
	if err != nil {
		return MoveRequest{}, fmt.Errorf("active id: %w", err)
	}
	if index < 0 {
		return MoveRequest{}, fmt.Errorf("active id %q does not name a book", activeID)
	}

	to, _, err := ParseDragID(overID)
	if err != nil {
		return MoveRequest{}, fmt.Errorf("over id: %w", err)
	}

	return MoveRequest{From: from, Index: index, To: to}, nil
}
