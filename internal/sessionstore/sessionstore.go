// Package sessionstore persists Sessions, Turns, Feedback, and the tool-call
// cache substrate (spec §4.5). Grounded on the teacher's
// internal/sessions.MemorySessionStore (RWMutex-guarded map, CRUD-shaped
// methods) but reworked around this spec's append-only Turn model: sessions
// are never replaced wholesale, only grown by AppendTurn, and ownership is
// checked on every read rather than trusted to the caller.
package sessionstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/agentoven/agentoven/toolcore/pkg/models"

	"github.com/google/uuid"
)

// Store is a thread-safe in-memory implementation of the Session Store.
// One lock guards sessions and feedback; the cache has its own lock since
// it is on the hot path of every tool call and must not contend with
// session appends.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session  // key: session id
	feedback map[string]models.Feedback  // key: turn id

	cacheMu sync.RWMutex
	cache   map[string]cacheSlot
}

type cacheSlot struct {
	entry models.CacheEntry
}

// New creates an empty session store.
func New() *Store {
	return &Store{
		sessions: make(map[string]*models.Session),
		feedback: make(map[string]models.Feedback),
		cache:    make(map[string]cacheSlot),
	}
}

// LoadSession returns the session if owned by userID, else nil — a
// mismatched caller gets the same ∅ result as a genuinely missing session
// (spec §4.5 ownership check), so no side channel distinguishes "not yours"
// from "not found".
func (s *Store) LoadSession(_ context.Context, userID, sessionID string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok || session.UserID != userID {
		return nil, nil
	}

	clone := *session
	clone.Turns = append([]models.Turn(nil), session.Turns...)
	return &clone, nil
}

// AppendTurn atomically appends a Turn to a session, creating the session
// first if it doesn't already exist (I3, I4): turn_number is assigned as
// len(existing turns)+1 under the same lock that performs the append, so
// concurrent appends to the same session are serialized and numbering never
// gaps or races. A session owned by another user is left unchanged and
// reported as not found.
func (s *Store) AppendTurn(_ context.Context, userID, sessionID string, turn models.Turn) (models.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	session, ok := s.sessions[sessionID]
	if ok && session.UserID != userID {
		return models.Turn{}, fmt.Errorf("session %q not found", sessionID)
	}
	if !ok {
		session = &models.Session{
			ID:        sessionID,
			UserID:    userID,
			CreatedAt: now,
		}
		s.sessions[sessionID] = session
	}

	turn.Number = len(session.Turns) + 1
	if turn.ID == "" {
		turn.ID = uuid.New().String()
	}
	turn.CreatedAt = now

	session.Turns = append(session.Turns, turn)
	session.UpdatedAt = now

	return turn, nil
}

// ListSessions returns summaries for every session owned by userID, most
// recently created first.
func (s *Store) ListSessions(_ context.Context, userID string) ([]models.SessionSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.SessionSummary, 0)
	for _, sess := range s.sessions {
		if sess.UserID != userID {
			continue
		}
		out = append(out, models.SessionSummary{
			ID:        sess.ID,
			CreatedAt: sess.CreatedAt,
			TurnCount: len(sess.Turns),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// GetFeedback returns feedback for a turn, or (Feedback{}, false) if none
// has been recorded.
func (s *Store) GetFeedback(_ context.Context, turnID string) (models.Feedback, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fb, ok := s.feedback[turnID]
	return fb, ok
}

// PutFeedback upserts feedback by turn_id (idempotent: replaying the same
// feedback twice leaves a single record).
func (s *Store) PutFeedback(_ context.Context, fb models.Feedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feedback[fb.TurnID] = fb
	return nil
}

// CacheGet implements invoker.CacheStore. Unlike the teacher's
// toolconfig.Cache, there is no stale-data fallback on expiry: an expired
// entry is a miss, full stop, since different users must never observe a
// cached result past its TTL (Testable Property: no stale hits).
func (s *Store) CacheGet(_ context.Context, key string) (interface{}, bool) {
	s.cacheMu.RLock()
	slot, ok := s.cache[key]
	s.cacheMu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Now().After(slot.entry.ExpiresAt) {
		s.cacheMu.Lock()
		if cur, stillThere := s.cache[key]; stillThere && !cur.entry.ExpiresAt.After(time.Now()) {
			delete(s.cache, key)
		}
		s.cacheMu.Unlock()
		return nil, false
	}
	return slot.entry.Value, true
}

// CachePut implements invoker.CacheStore.
func (s *Store) CachePut(_ context.Context, key string, value interface{}, ttl time.Duration) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.cache[key] = cacheSlot{entry: models.CacheEntry{
		Key:       key,
		Value:     value,
		ExpiresAt: time.Now().Add(ttl),
	}}
}
