package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// storageKey is where the session identity lives in persistent storage.
const storageKey = "storefront:session_id"

// Store persists the anonymous session identity across restarts.
type Store interface {
	// Get returns the stored session ID, or "" when none is stored.
	Get(ctx context.Context) (string, error)
	// Set stores the session ID.
	Set(ctx context.Context, id string) error
}

// Manager owns the session identity lifecycle: reuse a persisted ID when one
// exists, otherwise mint a fresh one and persist it. When the backing store is
// unavailable the manager degrades to an in-memory identity that lasts for the
// process lifetime; session continuity shrinks, nothing else breaks.
type Manager struct {
	store  Store
	logger *slog.Logger

	mu sync.Mutex
	id string
}

// NewManager creates a session manager backed by the given store.
func NewManager(store Store, logger *slog.Logger) *Manager {
	return &Manager{store: store, logger: logger}
}

// GetOrCreate returns the current session ID, establishing one if needed.
// The resolution order is: already resolved in memory, persisted in the
// store, freshly generated. The second return value reports whether the ID
// was freshly generated on this call. A generated ID is written back to the
// store; a write failure is logged and the in-memory ID is used anyway.
func (m *Manager) GetOrCreate(ctx context.Context) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.id != "" {
		return m.id, false, nil
	}

	stored, err := m.store.Get(ctx)
	if err != nil {
		m.logger.WarnContext(ctx, "session store unavailable, using in-memory identity",
			slog.String("error", err.Error()),
		)
	} else if stored != "" {
		m.id = stored
		return m.id, false, nil
	}

	id, err := newSessionID()
	if err != nil {
		return "", false, fmt.Errorf("generate session id: %w", err)
	}
	m.id = id

	if err := m.store.Set(ctx, id); err != nil {
		m.logger.WarnContext(ctx, "failed to persist session id, identity will not survive restart",
			slog.String("session_id", id),
			slog.String("error", err.Error()),
		)
	}

	m.logger.InfoContext(ctx, "session established", slog.String("session_id", id))
	return m.id, true, nil
}

// newSessionID builds an identifier from the current time and a random
// suffix, e.g. "sess-1712000000000-3f8a2c94d1b07e56". The timestamp makes IDs
// roughly sortable; the suffix makes collisions negligible.
func newSessionID() (string, error) {
	suffix := make([]byte, 8)
	if _, err := rand.Read(suffix); err != nil {
		return "", err
	}
	return fmt.Sprintf("sess-%d-%s", time.Now().UnixMilli(), hex.EncodeToString(suffix)), nil
}
