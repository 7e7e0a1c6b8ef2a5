package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bizlink-ai/concierge-platform/internal/classifier"
)

// Stage is the conversation stage of a session.
type Stage string

const (
	StageInitial             Stage = "initial"
	StageContinuing          Stage = "continuing"
	StageAwaitingAppointment Stage = "awaiting_appointment"
)

// SessionContext is the single source of per-conversation memory. Strongly
// typed so the state machine's transitions are exhaustively checkable.
type SessionContext struct {
	SessionID    string              `json:"session_id"`
	Stage        Stage               `json:"stage"`
	LastCategory classifier.Category `json:"last_category,omitempty"`
	TurnCount    int                 `json:"turn_count"`
}

// NewSessionContext returns the initial state for a session.
func NewSessionContext(sessionID string) SessionContext {
	return SessionContext{SessionID: sessionID, Stage: StageInitial}
}

// SessionStore persists session contexts keyed by (org, session).
// Concurrent writes to the same session key are last-write-wins; different
// sessions never contend.
type SessionStore interface {
	// Get loads a session context, returning a fresh initial context when
	// the session is unknown or expired.
	Get(ctx context.Context, orgID, sessionID string) (SessionContext, error)
	// Save persists the session context, refreshing its TTL.
	Save(ctx context.Context, orgID, sessionID string, sc SessionContext) error
}

const defaultSessionTTL = 24 * time.Hour

// RedisSessionStore keeps session contexts in Redis with a TTL.
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSessionStore creates a Redis-backed session store.
func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	if client == nil {
		panic("conversation: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &RedisSessionStore{client: client, ttl: ttl}
}

func sessionKey(orgID, sessionID string) string {
	return fmt.Sprintf("session:%s:%s", orgID, sessionID)
}

// Get loads a session context from Redis.
func (s *RedisSessionStore) Get(ctx context.Context, orgID, sessionID string) (SessionContext, error) {
	data, err := s.client.Get(ctx, sessionKey(orgID, sessionID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return NewSessionContext(sessionID), nil
		}
		return SessionContext{}, fmt.Errorf("conversation: load session: %w", err)
	}
	var sc SessionContext
	if err := json.Unmarshal(data, &sc); err != nil {
		return SessionContext{}, fmt.Errorf("conversation: decode session: %w", err)
	}
	return sc, nil
}

// Save persists a session context to Redis with the configured TTL.
func (s *RedisSessionStore) Save(ctx context.Context, orgID, sessionID string, sc SessionContext) error {
	data, err := json.Marshal(sc)
	if err != nil {
		return fmt.Errorf("conversation: encode session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(orgID, sessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("conversation: persist session: %w", err)
	}
	return nil
}

// MemorySessionStore is an in-process session store for tests and
// single-node development.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]SessionContext
}

// NewMemorySessionStore creates an empty in-memory store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]SessionContext)}
}

// Get loads a session context, returning a fresh one when absent.
func (s *MemorySessionStore) Get(_ context.Context, orgID, sessionID string) (SessionContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sc, ok := s.sessions[sessionKey(orgID, sessionID)]; ok {
		return sc, nil
	}
	return NewSessionContext(sessionID), nil
}

// Save persists a session context.
func (s *MemorySessionStore) Save(_ context.Context, orgID, sessionID string, sc SessionContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionKey(orgID, sessionID)] = sc
	return nil
}

var (
	_ SessionStore = (*RedisSessionStore)(nil)
	_ SessionStore = (*MemorySessionStore)(nil)
)
