// Package dialogue runs the per-session order conversation: it classifies
// every utterance, proposes orders, and turns confirmed orders into tickets.
package dialogue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/room4-2/OpenOrder/intent"
	"github.com/room4-2/OpenOrder/menu"
	"github.com/room4-2/OpenOrder/order"
	"github.com/room4-2/OpenOrder/store"
)

// Attachment is a file sent along with a message, usually a photo of a
// written order.
type Attachment struct {
	Name     string
	MIMEType string
	Data     []byte
}

// Message is one customer turn.
type Message struct {
	Text        string
	Attachments []Attachment
}

// TicketStore persists confirmed orders.
type TicketStore interface {
	SaveOrderLine(ctx context.Context, ticketID string, line order.OrderLine, unitPrice decimal.Decimal) error
	TicketStatus(ctx context.Context, ticketID string) (*order.Ticket, error)
	UpdateStatus(ctx context.Context, ticketID string, status order.TicketStatus) error
}

// abandonTimeout bounds the cleanup of a half-written ticket, which may run
// after the turn deadline.
const abandonTimeout = 2 * time.Second

// StateStore keeps the pending order of every session.
type StateStore interface {
	Load(ctx context.Context, sessionID string) (order.PendingOrder, error)
	Save(ctx context.Context, sessionID string, pending order.PendingOrder) error
}

// CatalogSource returns the current menu snapshot.
type CatalogSource interface {
	Current() *menu.Catalog
}

// OCR reads the text of an image.
type OCR interface {
	ExtractText(ctx context.Context, data []byte, mimeType string) (string, error)
}

// Sentiment scores the mood of a message.
type Sentiment interface {
	Analyze(text string) intent.Sentiment
}

// Config holds the optional collaborators and knobs of an Engine.
type Config struct {
	Classifier  order.Classifier
	Matcher     order.Matcher
	Resolver    order.ResolverConfig
	IntentModel intent.Model
	OCR         OCR
	Sentiment   Sentiment
	// TurnTimeout bounds one turn. Zero means no limit.
	TurnTimeout time.Duration
	// Production hides error details from replies.
	Production bool
	Logger     *slog.Logger
}

// Engine is the conversation state machine. It is safe for concurrent use;
// turns of the same session run one at a time.
type Engine struct {
	catalog CatalogSource
	tickets TicketStore
	states  StateStore
	intents *intent.Classifier
	cfg     Config
	logger  *slog.Logger
	locks   *keyedMutex

	exMu      sync.Mutex
	exCatalog *menu.Catalog
	extractor *order.Extractor
	menuTerms *intent.MenuTerms
}

// NewEngine wires an engine.
func NewEngine(catalog CatalogSource, tickets TicketStore, states StateStore, cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		catalog: catalog,
		tickets: tickets,
		states:  states,
		intents: intent.NewClassifier(cfg.IntentModel, logger),
		cfg:     cfg,
		logger:  logger,
		locks:   newKeyedMutex(),
	}
}

// HandleTurn processes one message of sessionID and returns the reply. It
// never fails: errors and panics become an apology.
func (e *Engine) HandleTurn(ctx context.Context, sessionID string, msg Message) (reply string) {
	unlock := e.locks.Lock(sessionID)
	defer unlock()

	logger := e.logger.With("session", sessionID)
	defer func() {
		if r := recover(); r != nil {
			logger.Error("turn panicked", "panic", r, "stack", string(debug.Stack()))
			reply = e.apology(fmt.Errorf("panic: %v", r))
		}
	}()

	if e.cfg.TurnTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.TurnTimeout)
		defer cancel()
	}

	start := time.Now()
	reply, err := e.turn(ctx, logger, sessionID, msg)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			logger.Warn("turn timed out", "error", err)
			return replyTimeout
		}
		logger.Error("turn failed", "error", err)
		return e.apology(err)
	}
	logger.Debug("turn handled", "duration", time.Since(start))
	return reply
}

// Reset discards the pending order of sessionID.
func (e *Engine) Reset(ctx context.Context, sessionID string) error {
	unlock := e.locks.Lock(sessionID)
	defer unlock()
	return e.states.Save(ctx, sessionID, order.PendingOrder{})
}

func (e *Engine) turn(ctx context.Context, logger *slog.Logger, sessionID string, msg Message) (string, error) {
	text := e.withAttachments(ctx, logger, msg)

	pending, err := e.states.Load(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("failed to load session state: %w", err)
	}
	catalog := e.catalog.Current()

	_, terms := e.pipelineFor(catalog)
	it := e.intents.Classify(ctx, intent.Input{Text: text, Pending: pending.Proposed(), Menu: terms})
	logger.Debug("intent classified", "intent", it.Kind.String(), "pending", pending.State.String())

	switch it.Kind {
	case intent.Confirmation:
		return e.confirm(ctx, logger, sessionID, &pending, catalog)
	case intent.Negation:
		pending.Clear()
		if err := e.states.Save(ctx, sessionID, pending); err != nil {
			return "", fmt.Errorf("failed to save session state: %w", err)
		}
		return replyCancelled, nil
	case intent.StatusQuery:
		return e.status(ctx, logger, it), nil
	case intent.Greeting:
		return greetingReply(catalog), nil
	case intent.Farewell:
		return replyFarewell, nil
	case intent.FeedbackPositive:
		return e.empathy(text) + replyPraise, nil
	case intent.FeedbackNegative:
		return e.empathy(text) + replyComplaint, nil
	default:
		return e.propose(ctx, logger, sessionID, &pending, catalog, text)
	}
}

// withAttachments appends the OCR text of every attachment to the message.
// OCR failures only cost the attachment.
func (e *Engine) withAttachments(ctx context.Context, logger *slog.Logger, msg Message) string {
	text := strings.TrimSpace(msg.Text)
	if len(msg.Attachments) == 0 {
		return text
	}
	if e.cfg.OCR == nil {
		logger.Debug("attachments ignored without ocr", "count", len(msg.Attachments))
		return text
	}
	for _, a := range msg.Attachments {
		extracted, err := e.cfg.OCR.ExtractText(ctx, a.Data, a.MIMEType)
		if err != nil {
			logger.Warn("ocr failed", "attachment", a.Name, "error", err)
			continue
		}
		if extracted = strings.TrimSpace(extracted); extracted != "" {
			text = strings.TrimSpace(text + " " + extracted)
		}
	}
	return text
}

func (e *Engine) propose(ctx context.Context, logger *slog.Logger, sessionID string, pending *order.PendingOrder, catalog *menu.Catalog, text string) (string, error) {
	extractor, _ := e.pipelineFor(catalog)
	lines := extractor.Extract(ctx, text)
	if len(lines) == 0 {
		if !pending.Proposed() && intent.MentionsConfirmation(text) {
			return replyNoPending, nil
		}
		return e.empathy(text) + clarificationReply(catalog), nil
	}

	pending.Propose(lines)
	if err := e.states.Save(ctx, sessionID, *pending); err != nil {
		return "", fmt.Errorf("failed to save session state: %w", err)
	}
	logger.Info("order proposed", "lines", len(lines))
	return proposalReply(lines, catalog), nil
}

// confirm turns the pending order into a ticket. When a line cannot be
// saved the pending order is kept so the customer can retry; the retry uses
// a fresh ticket id and the half-written ticket is archived.
func (e *Engine) confirm(ctx context.Context, logger *slog.Logger, sessionID string, pending *order.PendingOrder, catalog *menu.Catalog) (string, error) {
	if !pending.Proposed() {
		return replyNoPending, nil
	}

	ticket := &order.Ticket{ID: order.NewTicketID(), Status: order.StatusPending, CreatedAt: time.Now().UTC()}
	for _, l := range pending.Lines {
		price := catalog.PriceOf(l.Product)
		if err := e.tickets.SaveOrderLine(ctx, ticket.ID, l, price); err != nil {
			logger.Error("failed to persist order", "ticket", ticket.ID, "product", l.Product, "error", err)
			if len(ticket.Lines) > 0 {
				e.abandon(ctx, logger, ticket.ID)
			}
			if errors.Is(err, context.DeadlineExceeded) {
				return "", err
			}
			return replySaveFailed, nil
		}
		ticket.Lines = append(ticket.Lines, order.TicketLine{OrderLine: l, UnitPrice: price})
	}

	pending.Clear()
	if err := e.states.Save(ctx, sessionID, *pending); err != nil {
		// the ticket exists; a stale pending order would create a duplicate
		return "", fmt.Errorf("ticket %s saved but session state was not cleared: %w", ticket.ID, err)
	}
	logger.Info("order confirmed", "ticket", ticket.ID, "lines", len(ticket.Lines))
	return confirmedReply(ticket), nil
}

// abandon moves a partially saved ticket off the kitchen board.
func (e *Engine) abandon(ctx context.Context, logger *slog.Logger, ticketID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), abandonTimeout)
	defer cancel()
	if err := e.tickets.UpdateStatus(ctx, ticketID, order.StatusArchived); err != nil {
		logger.Warn("failed to archive abandoned ticket", "ticket", ticketID, "error", err)
		return
	}
	logger.Info("abandoned ticket archived", "ticket", ticketID)
}

func (e *Engine) status(ctx context.Context, logger *slog.Logger, it intent.Intent) string {
	if it.NeedsTicketID() {
		return replyAskTicketID
	}
	t, err := e.tickets.TicketStatus(ctx, it.TicketID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return notFoundReply(it.TicketID)
	case err != nil:
		logger.Error("ticket lookup failed", "ticket", it.TicketID, "error", err)
		return replyLookupFailed
	}
	return statusReply(t)
}

func (e *Engine) empathy(text string) string {
	if e.cfg.Sentiment == nil {
		return ""
	}
	return intent.EmpathyPrefix(e.cfg.Sentiment.Analyze(text))
}

func (e *Engine) apology(err error) string {
	if e.cfg.Production {
		return replyApology
	}
	return replyApology + " (" + err.Error() + ")"
}

// pipelineFor returns the extractor and menu terms of catalog, rebuilding
// them only when the snapshot changed.
func (e *Engine) pipelineFor(catalog *menu.Catalog) (*order.Extractor, *intent.MenuTerms) {
	e.exMu.Lock()
	defer e.exMu.Unlock()
	if e.extractor == nil || e.exCatalog != catalog {
		e.extractor = order.NewExtractor(catalog.Names(), catalog.Aliases(), e.cfg.Classifier, e.cfg.Matcher, e.cfg.Resolver, e.logger)
		e.menuTerms = intent.NewMenuTerms(catalog.Names())
		e.exCatalog = catalog
	}
	return e.extractor, e.menuTerms
}
