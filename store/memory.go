package store

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/room4-2/OpenOrder/order"
)

// Memory keeps tickets in process memory. It is meant for tests and local
// runs without Redis.
type Memory struct {
	mu      sync.RWMutex
	tickets map[string]*order.Ticket
	now     func() time.Time
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{tickets: make(map[string]*order.Ticket), now: time.Now}
}

func (m *Memory) SaveOrderLine(_ context.Context, ticketID string, line order.OrderLine, unitPrice decimal.Decimal) error {
	id := normalizeID(ticketID)
	if err := checkLine(id, line); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[id]
	if !ok {
		t = &order.Ticket{ID: id, Status: order.StatusPending, CreatedAt: m.now().UTC()}
		m.tickets[id] = t
	}
	t.Lines = append(t.Lines, order.TicketLine{OrderLine: line, UnitPrice: unitPrice})
	return nil
}

func (m *Memory) TicketStatus(_ context.Context, ticketID string) (*order.Ticket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tickets[normalizeID(ticketID)]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneTicket(t), nil
}

func (m *Memory) UpdateStatus(_ context.Context, ticketID string, status order.TicketStatus) error {
	if err := checkStatus(status); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[normalizeID(ticketID)]
	if !ok {
		return ErrNotFound
	}
	t.Status = status
	return nil
}

func (m *Memory) ListTickets(_ context.Context, view View) ([]*order.Ticket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*order.Ticket
	for _, t := range m.tickets {
		if inView(view, t.Status) {
			out = append(out, cloneTicket(t))
		}
	}
	newestFirst(out)
	return out, nil
}

func (m *Memory) Close() error { return nil }

func cloneTicket(t *order.Ticket) *order.Ticket {
	c := *t
	c.Lines = append([]order.TicketLine(nil), t.Lines...)
	return &c
}
