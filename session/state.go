package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"github.com/room4-2/OpenOrder/order"
)

// StateStore keeps the pending order of every conversation.
type StateStore interface {
	Load(ctx context.Context, sessionID string) (order.PendingOrder, error)
	Save(ctx context.Context, sessionID string, pending order.PendingOrder) error
	Delete(ctx context.Context, sessionID string) error
}

// Pruner is implemented by stores that must drop idle state themselves.
type Pruner interface {
	Prune(idle time.Duration) int
}

type memoryEntry struct {
	pending order.PendingOrder
	touched time.Time
}

// MemoryStates keeps pending orders in process memory.
type MemoryStates struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStates() *MemoryStates {
	return &MemoryStates{entries: make(map[string]memoryEntry), now: time.Now}
}

func (m *MemoryStates) Load(_ context.Context, sessionID string) (order.PendingOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[sessionID]
	if !ok {
		return order.PendingOrder{}, nil
	}
	e.touched = m.now()
	m.entries[sessionID] = e
	return clonePending(e.pending), nil
}

func (m *MemoryStates) Save(_ context.Context, sessionID string, pending order.PendingOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !pending.Proposed() {
		delete(m.entries, sessionID)
		return nil
	}
	m.entries[sessionID] = memoryEntry{pending: clonePending(pending), touched: m.now()}
	return nil
}

func (m *MemoryStates) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, sessionID)
	return nil
}

// Prune drops state untouched for longer than idle and returns how many
// sessions were dropped.
func (m *MemoryStates) Prune(idle time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := m.now().Add(-idle)
	n := 0
	for id, e := range m.entries {
		if e.touched.Before(cutoff) {
			delete(m.entries, id)
			n++
		}
	}
	return n
}

// Len returns the number of sessions with a pending order.
func (m *MemoryStates) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func clonePending(p order.PendingOrder) order.PendingOrder {
	p.Lines = append([]order.OrderLine(nil), p.Lines...)
	return p
}

func pendingKey(sessionID string) string { return "session:" + sessionID + ":pending" }

// RedisStates keeps pending orders in Redis so any replica can continue a
// conversation. Keys expire after ttl without activity.
type RedisStates struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisStates(client redis.UniversalClient, ttl time.Duration) *RedisStates {
	return &RedisStates{client: client, ttl: ttl}
}

func (r *RedisStates) Load(ctx context.Context, sessionID string) (order.PendingOrder, error) {
	var p order.PendingOrder
	raw, err := r.client.Get(ctx, pendingKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return p, nil
	}
	if err != nil {
		return p, fmt.Errorf("failed to load state of session %s: %w", sessionID, err)
	}
	if err := sonic.Unmarshal(raw, &p); err != nil {
		return order.PendingOrder{}, fmt.Errorf("failed to decode state of session %s: %w", sessionID, err)
	}
	if r.ttl > 0 {
		r.client.Expire(ctx, pendingKey(sessionID), r.ttl)
	}
	return p, nil
}

func (r *RedisStates) Save(ctx context.Context, sessionID string, pending order.PendingOrder) error {
	if !pending.Proposed() {
		return r.Delete(ctx, sessionID)
	}
	raw, err := sonic.Marshal(pending)
	if err != nil {
		return fmt.Errorf("failed to encode state of session %s: %w", sessionID, err)
	}
	if err := r.client.Set(ctx, pendingKey(sessionID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save state of session %s: %w", sessionID, err)
	}
	return nil
}

func (r *RedisStates) Delete(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, pendingKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete state of session %s: %w", sessionID, err)
	}
	return nil
}
