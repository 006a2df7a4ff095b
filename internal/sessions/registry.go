// Package sessions keeps the per-user workflow state of the app in memory.
package sessions

import (
	"slices"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/anvishah1/ForReal/internal/game"
	"github.com/anvishah1/ForReal/internal/upload"
)

// DefaultMaxSessions caps how many users are tracked at once.
const DefaultMaxSessions = 1024

// Entry is one user's upload workflow and guessing game.
type Entry struct {
	ID     string
	Upload *upload.Session
	Game   *game.Engine
}

// Registry maps session ids to entries. When full, the least recently used
// entry is evicted.
type Registry struct {
	classifier upload.Classifier
	pool       *game.Pool
	rng        game.Rand
	logger     *zap.Logger
	max        int

	mu      sync.Mutex
	entries map[string]*Entry
	order   []string
}

// NewRegistry creates an empty registry. A nil rng uses the process-wide
// random source for the games.
func NewRegistry(c upload.Classifier, pool *game.Pool, rng game.Rand, maxSessions int, logger *zap.Logger) *Registry {
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		classifier: c,
		pool:       pool,
		rng:        rng,
		logger:     logger.Named("sessions"),
		max:        maxSessions,
		entries:    make(map[string]*Entry),
	}
}

// Get returns the entry for id, creating one when id is unknown. Ids that are
// not UUIDs are replaced by a fresh one; callers must echo back Entry.ID.
func (r *Registry) Get(id string) *Entry {
	if parsed, err := uuid.Parse(id); err == nil {
		id = parsed.String()
	} else {
		id = uuid.NewString()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.entries[id]; ok {
		r.touch(id)
		return entry
	}

	for len(r.order) >= r.max {
		oldest := r.order[0]
		r.order = r.order[1:]
		delete(r.entries, oldest)
		r.logger.Debug("session evicted", zap.String("session_id", oldest))
	}

	entry := &Entry{
		ID:     id,
		Upload: upload.NewSession(id, r.classifier, r.logger),
		Game:   game.NewEngine(r.pool, r.rng),
	}
	r.entries[id] = entry
	r.order = append(r.order, id)
	r.logger.Debug("session created", zap.String("session_id", id))
	return entry
}

// touch moves id to the most recently used end of the eviction order.
func (r *Registry) touch(id string) {
	if i := slices.Index(r.order, id); i >= 0 {
		r.order = append(slices.Delete(r.order, i, i+1), id)
	}
}

// Len returns the number of tracked sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
