// Package order turns restaurant chat utterances into structured order lines.
package order

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// NoNotes is the note attached to a line that carries no extra instructions.
const NoNotes = "no notes"

// MaxQuantity is the largest quantity a single order line may carry.
const MaxQuantity = 999

// ErrInvalidLine is returned when an order line breaks its invariants.
var ErrInvalidLine = errors.New("invalid order line")

// OrderLine is one product of an order with its quantity and free-text note.
type OrderLine struct {
	Product  string `json:"product"`
	Quantity int    `json:"quantity"`
	Note     string `json:"note"`
}

// Validate checks that the line names a product and a positive quantity.
func (l OrderLine) Validate() error {
	if strings.TrimSpace(l.Product) == "" {
		return fmt.Errorf("%w: empty product", ErrInvalidLine)
	}
	if l.Quantity <= 0 || l.Quantity > MaxQuantity {
		return fmt.Errorf("%w: quantity %d for %q", ErrInvalidLine, l.Quantity, l.Product)
	}
	return nil
}

// HasNote reports whether the line carries a note other than the sentinel.
func (l OrderLine) HasNote() bool {
	return l.Note != "" && l.Note != NoNotes
}

// State is the lifecycle of a session's pending order.
type State int

const (
	StateEmpty State = iota
	StateProposed
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "EMPTY"
	case StateProposed:
		return "PROPOSED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// PendingOrder is the not yet confirmed order of one conversation.
type PendingOrder struct {
	State State       `json:"state"`
	Lines []OrderLine `json:"lines"`
}

// Proposed reports whether the order is waiting for confirmation.
func (p *PendingOrder) Proposed() bool {
	return p != nil && p.State == StateProposed && len(p.Lines) > 0
}

// Propose replaces the pending lines. The last proposal always wins.
func (p *PendingOrder) Propose(lines []OrderLine) {
	p.Lines = append([]OrderLine(nil), lines...)
	p.State = StateProposed
}

// Clear discards the pending lines.
func (p *PendingOrder) Clear() {
	p.Lines = nil
	p.State = StateEmpty
}

// TicketStatus is the kitchen lifecycle of a confirmed ticket.
type TicketStatus string

const (
	StatusPending   TicketStatus = "pending"
	StatusPreparing TicketStatus = "preparing"
	StatusCompleted TicketStatus = "completed"
	StatusArchived  TicketStatus = "archived"
)

// Valid reports whether s is one of the known statuses.
func (s TicketStatus) Valid() bool {
	switch s {
	case StatusPending, StatusPreparing, StatusCompleted, StatusArchived:
		return true
	}
	return false
}

// TicketLine is a persisted order line with the unit price at confirmation time.
type TicketLine struct {
	OrderLine
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Ticket is a confirmed order.
type Ticket struct {
	ID        string       `json:"id"`
	Status    TicketStatus `json:"status"`
	Lines     []TicketLine `json:"lines"`
	CreatedAt time.Time    `json:"created_at"`
}

// Total sums quantity times unit price over every line.
func (t *Ticket) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range t.Lines {
		total = total.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return total
}

// NewTicketID returns an 8 character uppercase hexadecimal identifier taken
// from a random UUID, which leaves 32 random bits.
func NewTicketID() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// Segment is a span of normalized text that should describe one item.
type Segment struct {
	Text  string
	Start int
	End   int
}

// Classification is one scored label returned by a semantic classifier.
type Classification struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}
