package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/room4-2/OpenOrder/order"
)

// stepClock returns a clock that advances one second per call.
func stepClock() func() time.Time {
	t := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

type backend struct {
	name string
	open func(t *testing.T) Store
}

func backends() []backend {
	return []backend{
		{name: "memory", open: func(t *testing.T) Store {
			m := NewMemory()
			m.now = stepClock()
			return m
		}},
		{name: "redis", open: func(t *testing.T) Store {
			mr := miniredis.RunT(t)
			client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { _ = client.Close() })
			r := NewRedis(client, time.Hour)
			r.now = stepClock()
			return r
		}},
		{name: "sqlite", open: func(t *testing.T) Store {
			s, err := NewSQLite(context.Background(), filepath.Join(t.TempDir(), "orders.db"))
			require.NoError(t, err)
			s.now = stepClock()
			t.Cleanup(func() { _ = s.Close() })
			return s
		}},
	}
}

func price(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestStore_SaveAndLookup(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			s := b.open(t)

			require.NoError(t, s.SaveOrderLine(ctx, "7D06BF25", order.OrderLine{Product: "pizza", Quantity: 2, Note: "Extra cheese"}, price("9.50")))
			require.NoError(t, s.SaveOrderLine(ctx, "7D06BF25", order.OrderLine{Product: "soda", Quantity: 1, Note: order.NoNotes}, price("2")))

			got, err := s.TicketStatus(ctx, "7d06bf25")
			require.NoError(t, err)
			assert.Equal(t, "7D06BF25", got.ID)
			assert.Equal(t, order.StatusPending, got.Status)
			require.Len(t, got.Lines, 2)
			assert.Equal(t, order.OrderLine{Product: "pizza", Quantity: 2, Note: "Extra cheese"}, got.Lines[0].OrderLine)
			assert.Equal(t, "soda", got.Lines[1].Product)
			assert.Equal(t, "21", got.Total().String())
			assert.False(t, got.CreatedAt.IsZero())
		})
	}
}

func TestStore_NotFound(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			s := b.open(t)

			_, err := s.TicketStatus(ctx, "DEADBEEF")
			assert.ErrorIs(t, err, ErrNotFound)
			assert.ErrorIs(t, s.UpdateStatus(ctx, "DEADBEEF", order.StatusPreparing), ErrNotFound)
		})
	}
}

func TestStore_RejectsInvalidInput(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			s := b.open(t)

			err := s.SaveOrderLine(ctx, "AAAA0000", order.OrderLine{Product: "pizza", Quantity: 0}, decimal.Zero)
			assert.ErrorIs(t, err, order.ErrInvalidLine)
			err = s.SaveOrderLine(ctx, " ", order.OrderLine{Product: "pizza", Quantity: 1}, decimal.Zero)
			assert.ErrorIs(t, err, order.ErrInvalidLine)

			require.NoError(t, s.SaveOrderLine(ctx, "AAAA0000", order.OrderLine{Product: "pizza", Quantity: 1, Note: order.NoNotes}, decimal.Zero))
			assert.ErrorIs(t, s.UpdateStatus(ctx, "AAAA0000", "burnt"), ErrInvalidStatus)
		})
	}
}

func TestStore_StatusLifecycle(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			s := b.open(t)
			line := order.OrderLine{Product: "pizza", Quantity: 1, Note: order.NoNotes}

			for _, id := range []string{"AAAA0001", "AAAA0002", "AAAA0003"} {
				require.NoError(t, s.SaveOrderLine(ctx, id, line, price("9.5")))
			}
			require.NoError(t, s.UpdateStatus(ctx, "AAAA0002", order.StatusPreparing))
			require.NoError(t, s.UpdateStatus(ctx, "AAAA0003", order.StatusArchived))

			got, err := s.TicketStatus(ctx, "AAAA0002")
			require.NoError(t, err)
			assert.Equal(t, order.StatusPreparing, got.Status)

			board, err := s.ListTickets(ctx, ViewBoard)
			require.NoError(t, err)
			require.Len(t, board, 2)
			assert.Equal(t, "AAAA0002", board[0].ID, "newest first")
			assert.Equal(t, "AAAA0001", board[1].ID)

			history, err := s.ListTickets(ctx, ViewHistory)
			require.NoError(t, err)
			require.Len(t, history, 1)
			assert.Equal(t, "AAAA0003", history[0].ID)

			stats := Summarize(board)
			assert.Equal(t, 2, stats.Tickets)
			assert.Equal(t, 2, stats.Items)
			assert.True(t, price("19").Equal(stats.Revenue), stats.Revenue.String())
			assert.Equal(t, 1, stats.ByStatus[order.StatusPending])
			assert.Equal(t, 1, stats.ByStatus[order.StatusPreparing])
			assert.Equal(t, 0, stats.ByStatus[order.StatusCompleted])
		})
	}
}

func TestStore_LineJoinsExistingStatus(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			s := b.open(t)
			line := order.OrderLine{Product: "pizza", Quantity: 1, Note: order.NoNotes}

			require.NoError(t, s.SaveOrderLine(ctx, "BBBB0001", line, decimal.Zero))
			require.NoError(t, s.UpdateStatus(ctx, "BBBB0001", order.StatusPreparing))
			require.NoError(t, s.SaveOrderLine(ctx, "BBBB0001", line, decimal.Zero))

			got, err := s.TicketStatus(ctx, "BBBB0001")
			require.NoError(t, err)
			assert.Equal(t, order.StatusPreparing, got.Status)
			assert.Len(t, got.Lines, 2)
		})
	}
}

func TestRedis_ArchivedTicketsExpire(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	s := NewRedis(client, time.Minute)

	require.NoError(t, s.SaveOrderLine(ctx, "CCCC0001", order.OrderLine{Product: "soda", Quantity: 1, Note: order.NoNotes}, decimal.Zero))
	require.NoError(t, s.UpdateStatus(ctx, "CCCC0001", order.StatusArchived))

	mr.FastForward(2 * time.Minute)

	_, err := s.TicketStatus(ctx, "CCCC0001")
	assert.ErrorIs(t, err, ErrNotFound)
	history, err := s.ListTickets(ctx, ViewHistory)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestSummarize(t *testing.T) {
	tickets := []*order.Ticket{
		{ID: "A", Status: order.StatusPending, Lines: []order.TicketLine{
			{OrderLine: order.OrderLine{Product: "pizza", Quantity: 2}, UnitPrice: price("9.50")},
			{OrderLine: order.OrderLine{Product: "soda", Quantity: 3}, UnitPrice: price("2.00")},
		}},
		{ID: "B", Status: order.StatusCompleted, Lines: []order.TicketLine{
			{OrderLine: order.OrderLine{Product: "soda", Quantity: 1}, UnitPrice: price("2.00")},
		}},
		{ID: "C", Status: order.StatusArchived, Lines: []order.TicketLine{
			{OrderLine: order.OrderLine{Product: "pizza", Quantity: 9}, UnitPrice: price("9.50")},
		}},
	}

	s := Summarize(tickets)
	assert.Equal(t, 2, s.Tickets)
	assert.Equal(t, 6, s.Items)
	assert.Equal(t, "27", s.Revenue.String())
	assert.Equal(t, map[order.TicketStatus]int{
		order.StatusPending:   1,
		order.StatusPreparing: 0,
		order.StatusCompleted: 1,
	}, s.ByStatus)

	empty := Summarize(nil)
	assert.Zero(t, empty.Tickets)
	assert.True(t, empty.Revenue.IsZero())
}
