package menu

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
)

// DefaultSubject is the NATS subject announcing menu changes.
const DefaultSubject = "menu.changed"

// Holder keeps the current catalog snapshot and swaps it on Reload.
// Readers never observe a partially built catalog.
type Holder struct {
	provider Provider
	current  atomic.Pointer[Catalog]
	logger   *slog.Logger
}

// NewHolder returns a holder with an empty catalog. Call Reload to load it.
func NewHolder(provider Provider, logger *slog.Logger) *Holder {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Holder{provider: provider, logger: logger}
	h.current.Store(NewCatalog(nil))
	return h
}

// Current returns the latest snapshot.
func (h *Holder) Current() *Catalog {
	return h.current.Load()
}

// Reload fetches the menu and publishes a new snapshot. On failure the
// previous snapshot stays in place.
func (h *Holder) Reload(ctx context.Context) (*Catalog, error) {
	items, err := h.provider.ListAvailable(ctx)
	if err != nil {
		return h.Current(), fmt.Errorf("failed to reload menu: %w", err)
	}
	c := NewCatalog(items)
	h.current.Store(c)
	h.logger.Info("menu reloaded", "items", c.Len())
	return c, nil
}

// Watch reloads h every time a message arrives on subject, until ctx is
// done. Each reload gets its own timeout.
func Watch(ctx context.Context, nc *nats.Conn, subject string, h *Holder, timeout time.Duration) error {
	if subject == "" {
		subject = DefaultSubject
	}
	sub, err := nc.Subscribe(subject, func(msg *nats.Msg) {
		h.onChange(ctx, msg.Data, timeout)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}
	h.logger.Info("watching menu changes", "subject", subject)

	<-ctx.Done()
	if err := sub.Unsubscribe(); err != nil {
		h.logger.Warn("menu unsubscribe failed", "error", err)
	}
	return nil
}

// NotifyChanged publishes a change signal on subject.
func NotifyChanged(nc *nats.Conn, subject string) error {
	if subject == "" {
		subject = DefaultSubject
	}
	if err := nc.Publish(subject, []byte("reload")); err != nil {
		return fmt.Errorf("failed to publish menu change: %w", err)
	}
	return nc.Flush()
}

func (h *Holder) onChange(ctx context.Context, payload []byte, timeout time.Duration) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	reloadCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if _, err := h.Reload(reloadCtx); err != nil {
		h.logger.Error("menu change ignored", "payload", string(payload), "error", err)
	}
}
