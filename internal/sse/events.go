// Package sse implements Server-Sent Events for pushing bookshelf changes to clients.
package sse

import (
	"time"

	"github.com/shelfmarkapp/shelfmark-server/internal/domain"
)

// EventType represents the type of SSE Event.
type EventType string

const (
	// EventBookshelfUpdated carries a full bookshelf snapshot after any change.
	EventBookshelfUpdated EventType = "bookshelf.updated"
	// EventBookshelfSyncError reports a failed background write of the bookshelf.
	EventBookshelfSyncError EventType = "bookshelf.sync_error"
	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Event represents an SSE event to be sent to clients.
// The Data field contains the event payload as a JSON object for direct deserialization.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"` // Event-specific data as JSON object
	Type      EventType `json:"type"`

	// When set, the event is only delivered to clients of this user.
	// Empty string means "broadcast to all".
	UserID string `json:"-"` // Not sent to the client
}

// BookshelfEventData is the data payload for bookshelf update events.
// The snapshot is self-contained so clients can render without a refetch.
type BookshelfEventData struct {
	Bookshelf *domain.Bookshelf `json:"bookshelf"`
}

// SyncErrorEventData is the data payload for sync error events.
type SyncErrorEventData struct {
	OccurredAt time.Time `json:"occurred_at"`
	Message    string    `json:"message"`
}

// HeartbeatEventData is the data payload for heartbeat events.
type HeartbeatEventData struct {
	ServerTime time.Time `json:"server_time"`
}

// NewBookshelfUpdatedEvent creates a bookshelf update event for one user.
func NewBookshelfUpdatedEvent(userID string, shelf *domain.Bookshelf) Event {
	return Event{
		Type:      EventBookshelfUpdated,
		Timestamp: time.Now(),
		UserID:    userID,
		Data:      BookshelfEventData{Bookshelf: shelf},
	}
}

// NewSyncErrorEvent creates a sync error event for one user.
func NewSyncErrorEvent(userID, message string) Event {
	return Event{
		Type:      EventBookshelfSyncError,
		Timestamp: time.Now(),
		UserID:    userID,
		Data: SyncErrorEventData{
			OccurredAt: time.Now(),
			Message:    message,
		},
	}
}

// NewHeartbeatEvent creates a heartbeat event.
func NewHeartbeatEvent() Event {
	return Event{
		Type:      EventHeartbeat,
		Timestamp: time.Now(),
		Data:      HeartbeatEventData{ServerTime: time.Now()},
	}
}
