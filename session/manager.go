package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"github.com/room4-2/OpenOrder/config"
)

// ErrTooManySessions is returned when MaxSessions connections are open.
var ErrTooManySessions = errors.New("maximum sessions reached")

const activeSessionsKey = "active_sessions"

func sessionKey(id string) string { return "session:" + id }

// Manager manages all client sessions
type Manager struct {
	sessions map[string]*ClientSession
	mu       sync.RWMutex
	redis    redis.UniversalClient
	config   *config.Config
	handler  TurnHandler
	states   StateStore
	logger   *slog.Logger

	cleanupInterval time.Duration
}

// NewManager creates a session manager. rdb is optional and only used to
// publish session bookkeeping; states receives the pending order cleanup of
// closed and idle sessions.
func NewManager(cfg *config.Config, handler TurnHandler, states StateStore, rdb redis.UniversalClient, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		sessions:        make(map[string]*ClientSession),
		redis:           rdb,
		config:          cfg,
		handler:         handler,
		states:          states,
		logger:          logger,
		cleanupInterval: time.Minute,
	}
}

// CreateSession creates a new client session
func (sm *Manager) CreateSession(ctx context.Context, clientConn *websocket.Conn) (*ClientSession, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if len(sm.sessions) >= sm.config.MaxSessions {
		return nil, ErrTooManySessions
	}

	sessionID := uuid.New().String()
	session := NewClientSession(sessionID, clientConn, sm.handler, sm.config.MaxBufferSize, sm.config.KeepAlivePeriod, sm.logger)

	sm.storeSession(ctx, sessionID, session)
	return session, nil
}

// storeSession saves a session to memory and Redis
func (sm *Manager) storeSession(ctx context.Context, sessionID string, session *ClientSession) {
	sm.sessions[sessionID] = session

	if sm.redis != nil {
		_, err := sm.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, sessionKey(sessionID), map[string]any{
				"created_at":    session.CreatedAt.Format(time.RFC3339),
				"last_activity": session.LastActivity().Format(time.RFC3339),
				"status":        "active",
			})
			pipe.SAdd(ctx, activeSessionsKey, sessionID)
			pipe.Expire(ctx, sessionKey(sessionID), sm.config.SessionTimeout)
			return nil
		})
		if err != nil {
			sm.logger.Warn("failed to record session", "session", sessionID, "error", err)
		}
	}
}

// GetSession retrieves a session by ID
func (sm *Manager) GetSession(sessionID string) (*ClientSession, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	session, exists := sm.sessions[sessionID]
	return session, exists
}

// RemoveSession cleans up and removes a session along with its pending order
func (sm *Manager) RemoveSession(ctx context.Context, sessionID string) error {
	sm.mu.Lock()
	session, exists := sm.sessions[sessionID]
	if exists {
		delete(sm.sessions, sessionID)
	}
	sm.mu.Unlock()

	if !exists {
		return nil
	}
	_ = session.Close()
	sm.forget(ctx, sessionID)
	return nil
}

func (sm *Manager) forget(ctx context.Context, sessionID string) {
	if sm.states != nil {
		if err := sm.states.Delete(ctx, sessionID); err != nil {
			sm.logger.Warn("failed to drop session state", "session", sessionID, "error", err)
		}
	}
	if sm.redis != nil {
		sm.redis.Del(ctx, sessionKey(sessionID))
		sm.redis.SRem(ctx, activeSessionsKey, sessionID)
	}
}

// GetActiveSessionCount returns current session count
func (sm *Manager) GetActiveSessionCount() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// CleanupInactiveSessions closes connections that have been idle longer than
// the session timeout and prunes idle state of sessions without a
// connection, such as the ones driven through the HTTP API.
func (sm *Manager) CleanupInactiveSessions(ctx context.Context) {
	now := time.Now()

	var idle []string
	sm.mu.Lock()
	for id, session := range sm.sessions {
		last := session.LastActivity()
		if now.Sub(last) > sm.config.SessionTimeout {
			idle = append(idle, id)
			continue
		}
		if sm.redis != nil {
			sm.redis.HSet(ctx, sessionKey(id), "last_activity", last.Format(time.RFC3339))
			sm.redis.Expire(ctx, sessionKey(id), sm.config.SessionTimeout)
		}
	}
	sm.mu.Unlock()

	for _, id := range idle {
		sm.logger.Info("closing idle session", "session", id)
		_ = sm.RemoveSession(ctx, id)
	}

	if p, ok := sm.states.(Pruner); ok {
		if n := p.Prune(sm.config.SessionTimeout); n > 0 {
			sm.logger.Info("pruned idle conversations", "count", n)
		}
	}
}

// StartCleanupRoutine starts periodic cleanup of inactive sessions
func (sm *Manager) StartCleanupRoutine(ctx context.Context) {
	ticker := time.NewTicker(sm.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sm.CleanupInactiveSessions(ctx)
		}
	}
}

// Shutdown closes every open session
func (sm *Manager) Shutdown() {
	sm.mu.Lock()
	sessions := sm.sessions
	sm.sessions = make(map[string]*ClientSession)
	sm.mu.Unlock()

	for id, session := range sessions {
		_ = session.Close()
		if sm.redis != nil {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			sm.redis.Del(ctx, sessionKey(id))
			sm.redis.SRem(ctx, activeSessionsKey, id)
			cancel()
		}
	}
	sm.logger.Info("sessions closed", "count", len(sessions))
}
