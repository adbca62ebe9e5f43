// Package intent decides what a single chat utterance is asking for.
package intent

import (
	"context"
	"fmt"
)

// Kind is the tag of an Intent.
type Kind int

const (
	Unrecognized Kind = iota
	Confirmation
	Negation
	StatusQuery
	Greeting
	Farewell
	NewOrder
	FeedbackPositive
	FeedbackNegative
)

var kindNames = map[Kind]string{
	Unrecognized:     "unrecognized",
	Confirmation:     "confirmation",
	Negation:         "negation",
	StatusQuery:      "status_query",
	Greeting:         "greeting",
	Farewell:         "farewell",
	NewOrder:         "new_order",
	FeedbackPositive: "feedback_positive",
	FeedbackNegative: "feedback_negative",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// RequestID is the ticket id of a status query that did not name a ticket.
const RequestID = "REQUEST_ID"

// Intent is the classified meaning of one utterance. TicketID is only set
// for StatusQuery.
type Intent struct {
	Kind     Kind
	TicketID string
}

// NeedsTicketID reports whether a status query still has to ask for the id.
func (i Intent) NeedsTicketID() bool {
	return i.Kind == StatusQuery && i.TicketID == RequestID
}

// Input is everything the classifier looks at for one turn.
type Input struct {
	Text string
	// Pending is true when the session has a proposed order waiting for an answer.
	Pending bool
	// Menu matches the products of the current catalog. It may be nil.
	Menu *MenuTerms
}

// Model is a trained intent model. Predict returns one of the model's own
// labels, or "" when it has no opinion.
type Model interface {
	Available() bool
	Predict(ctx context.Context, text string) (string, error)
}
