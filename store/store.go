// Package store persists confirmed tickets and their kitchen status.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/room4-2/OpenOrder/order"
)

var (
	// ErrNotFound is returned when a ticket id is unknown.
	ErrNotFound = errors.New("ticket not found")
	// ErrInvalidStatus is returned for a status outside the ticket lifecycle.
	ErrInvalidStatus = errors.New("invalid ticket status")
)

// View selects which tickets ListTickets returns.
type View string

const (
	// ViewBoard lists tickets the kitchen still works on.
	ViewBoard View = "board"
	// ViewHistory lists archived tickets.
	ViewHistory View = "history"
)

// Store is implemented by every backend.
type Store interface {
	// SaveOrderLine appends one line to a ticket, creating the ticket in
	// pending status on its first line.
	SaveOrderLine(ctx context.Context, ticketID string, line order.OrderLine, unitPrice decimal.Decimal) error
	// TicketStatus returns the ticket with all of its lines.
	TicketStatus(ctx context.Context, ticketID string) (*order.Ticket, error)
	// UpdateStatus moves a whole ticket to status.
	UpdateStatus(ctx context.Context, ticketID string, status order.TicketStatus) error
	// ListTickets returns the tickets of view, newest first.
	ListTickets(ctx context.Context, view View) ([]*order.Ticket, error)
	Close() error
}

// Stats summarises the tickets the kitchen is working on.
type Stats struct {
	Tickets  int                        `json:"tickets"`
	Items    int                        `json:"items"`
	Revenue  decimal.Decimal            `json:"revenue"`
	ByStatus map[order.TicketStatus]int `json:"by_status"`
}

// Summarize counts tickets per status and totals their items and revenue.
// Callers pass the board view; archived tickets are skipped.
func Summarize(tickets []*order.Ticket) Stats {
	s := Stats{
		Revenue: decimal.Zero,
		ByStatus: map[order.TicketStatus]int{
			order.StatusPending:   0,
			order.StatusPreparing: 0,
			order.StatusCompleted: 0,
		},
	}
	for _, t := range tickets {
		if t.Status == order.StatusArchived {
			continue
		}
		s.Tickets++
		s.ByStatus[t.Status]++
		for _, l := range t.Lines {
			s.Items += l.Quantity
		}
		s.Revenue = s.Revenue.Add(t.Total())
	}
	return s
}

func normalizeID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

func checkLine(ticketID string, line order.OrderLine) error {
	if ticketID == "" {
		return fmt.Errorf("%w: empty ticket id", order.ErrInvalidLine)
	}
	return line.Validate()
}

func checkStatus(status order.TicketStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	return nil
}

func inView(view View, status order.TicketStatus) bool {
	if view == ViewHistory {
		return status == order.StatusArchived
	}
	return status != order.StatusArchived
}

func newestFirst(tickets []*order.Ticket) {
	sort.SliceStable(tickets, func(i, j int) bool {
		return tickets[i].CreatedAt.After(tickets[j].CreatedAt)
	})
}
