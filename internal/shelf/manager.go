package shelf

import (
	"context"
	"log/slog"
	"sync"
)

// Manager owns one shelf session per active user. Sessions are created
// lazily on first access and live until the user logs out everywhere or
// the server shuts down.
type Manager struct {
	store  DocumentStore
	sink   EventSink
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a session manager over the document store.
func NewManager(store DocumentStore, sink EventSink, logger *slog.Logger) *Manager {
	return &Manager{
		store:    store,
		sink:     sink,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// Acquire returns the user's session, creating one on first access.
func (m *Manager) Acquire(ctx context.Context, userID string) (*Session, error) {
	m.mu.Lock()
	if session, ok := m.sessions[userID]; ok {
		m.mu.Unlock()
		return session, nil
	}
	m.mu.Unlock()

	// Create outside the lock; EnsureBookshelf hits the store.
	session, err := newSession(ctx, userID, m.store, m.sink, m.logger)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Another request may have raced us here; keep the winner.
	if existing, ok := m.sessions[userID]; ok {
		go session.Close()
		return existing, nil
	}

	m.sessions[userID] = session
	return session, nil
}

// Close flushes and discards a user's session, if one exists.
func (m *Manager) Close(userID string) {
	m.mu.Lock()
	session, ok := m.sessions[userID]
	delete(m.sessions, userID)
	m.mu.Unlock()

	if ok {
		session.Close()
	}
}

// Shutdown flushes and closes every active session.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, session := range sessions {
		session := session
		wg.Add(1)
		go func() {
			defer wg.Done()
			session.Close()
		}()
	}
	wg.Wait()
}
