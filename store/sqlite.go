package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"github.com/room4-2/OpenOrder/order"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS order_lines (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	ticket_id TEXT NOT NULL,
	product TEXT NOT NULL,
	quantity INTEGER NOT NULL CHECK (quantity > 0),
	note TEXT NOT NULL DEFAULT 'no notes',
	unit_price TEXT NOT NULL DEFAULT '0',
	status TEXT NOT NULL DEFAULT 'pending',
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_order_lines_ticket ON order_lines(ticket_id);
CREATE INDEX IF NOT EXISTS idx_order_lines_status ON order_lines(status);
`

// SQLite stores one row per order line. Every row of a ticket carries the
// ticket status.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens or creates the database at path.
func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path == "" {
		return nil, errors.New("sqlite path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &SQLite{db: db, now: time.Now}, nil
}

func (s *SQLite) SaveOrderLine(ctx context.Context, ticketID string, line order.OrderLine, unitPrice decimal.Decimal) error {
	id := normalizeID(ticketID)
	if err := checkLine(id, line); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// later lines join the ticket with its current status and creation time
	status, createdAt := string(order.StatusPending), s.now().UTC().Format(time.RFC3339Nano)
	err = tx.QueryRowContext(ctx,
		`SELECT status, created_at FROM order_lines WHERE ticket_id = ? ORDER BY id LIMIT 1`, id,
	).Scan(&status, &createdAt)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to load ticket %s: %w", id, err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO order_lines (ticket_id, product, quantity, note, unit_price, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, line.Product, line.Quantity, line.Note, unitPrice.String(), status, createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save order line for ticket %s: %w", id, err)
	}
	return tx.Commit()
}

func (s *SQLite) TicketStatus(ctx context.Context, ticketID string) (*order.Ticket, error) {
	id := normalizeID(ticketID)
	tickets, err := s.query(ctx,
		`SELECT ticket_id, product, quantity, note, unit_price, status, created_at
		 FROM order_lines WHERE ticket_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	if len(tickets) == 0 {
		return nil, ErrNotFound
	}
	return tickets[0], nil
}

func (s *SQLite) UpdateStatus(ctx context.Context, ticketID string, status order.TicketStatus) error {
	if err := checkStatus(status); err != nil {
		return err
	}
	id := normalizeID(ticketID)
	res, err := s.db.ExecContext(ctx, `UPDATE order_lines SET status = ? WHERE ticket_id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update ticket %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update ticket %s: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLite) ListTickets(ctx context.Context, view View) ([]*order.Ticket, error) {
	cond := `status != 'archived'`
	if view == ViewHistory {
		cond = `status = 'archived'`
	}
	tickets, err := s.query(ctx,
		`SELECT ticket_id, product, quantity, note, unit_price, status, created_at
		 FROM order_lines WHERE `+cond+` ORDER BY id`)
	if err != nil {
		return nil, err
	}
	newestFirst(tickets)
	return tickets, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// query groups rows into tickets in first-seen order.
func (s *SQLite) query(ctx context.Context, q string, args ...any) ([]*order.Ticket, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tickets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*order.Ticket
	byID := make(map[string]*order.Ticket)
	for rows.Next() {
		var (
			id, price, status, created string
			line                       order.OrderLine
		)
		if err := rows.Scan(&id, &line.Product, &line.Quantity, &line.Note, &price, &status, &created); err != nil {
			return nil, fmt.Errorf("failed to scan order line: %w", err)
		}
		unitPrice, err := decimal.NewFromString(price)
		if err != nil {
			return nil, fmt.Errorf("invalid unit price %q on ticket %s: %w", price, id, err)
		}

		t, ok := byID[id]
		if !ok {
			t = &order.Ticket{ID: id, Status: order.TicketStatus(status)}
			t.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
			byID[id] = t
			out = append(out, t)
		}
		t.Lines = append(t.Lines, order.TicketLine{OrderLine: line, UnitPrice: unitPrice})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read order lines: %w", err)
	}
	return out, nil
}
