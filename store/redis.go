package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/room4-2/OpenOrder/order"
)

const ticketIndexKey = "tickets"

func ticketKey(id string) string      { return "ticket:" + id }
func ticketLinesKey(id string) string { return "ticket:" + id + ":lines" }

// Redis stores each ticket as a hash with its status and creation time, a
// list of JSON encoded lines, and an entry in a sorted set ordered by
// creation time.
type Redis struct {
	client redis.UniversalClient
	ttl    time.Duration
	now    func() time.Time
}

// NewRedis returns a store on client. A positive ttl expires archived
// tickets that long after they are archived.
func NewRedis(client redis.UniversalClient, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl, now: time.Now}
}

func (r *Redis) SaveOrderLine(ctx context.Context, ticketID string, line order.OrderLine, unitPrice decimal.Decimal) error {
	id := normalizeID(ticketID)
	if err := checkLine(id, line); err != nil {
		return err
	}
	payload, err := sonic.Marshal(order.TicketLine{OrderLine: line, UnitPrice: unitPrice})
	if err != nil {
		return fmt.Errorf("failed to encode order line: %w", err)
	}

	now := r.now().UTC()
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSetNX(ctx, ticketKey(id), "status", string(order.StatusPending))
		pipe.HSetNX(ctx, ticketKey(id), "created_at", now.Format(time.RFC3339Nano))
		pipe.RPush(ctx, ticketLinesKey(id), payload)
		pipe.ZAddNX(ctx, ticketIndexKey, redis.Z{Score: float64(now.UnixNano()), Member: id})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save order line for ticket %s: %w", id, err)
	}
	return nil
}

func (r *Redis) TicketStatus(ctx context.Context, ticketID string) (*order.Ticket, error) {
	id := normalizeID(ticketID)
	fields, err := r.client.HGetAll(ctx, ticketKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load ticket %s: %w", id, err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}
	raw, err := r.client.LRange(ctx, ticketLinesKey(id), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load lines of ticket %s: %w", id, err)
	}

	t := &order.Ticket{ID: id, Status: order.TicketStatus(fields["status"])}
	if ts, err := time.Parse(time.RFC3339Nano, fields["created_at"]); err == nil {
		t.CreatedAt = ts
	}
	for _, item := range raw {
		var line order.TicketLine
		if err := sonic.UnmarshalString(item, &line); err != nil {
			return nil, fmt.Errorf("failed to decode line of ticket %s: %w", id, err)
		}
		t.Lines = append(t.Lines, line)
	}
	return t, nil
}

func (r *Redis) UpdateStatus(ctx context.Context, ticketID string, status order.TicketStatus) error {
	if err := checkStatus(status); err != nil {
		return err
	}
	id := normalizeID(ticketID)
	n, err := r.client.Exists(ctx, ticketKey(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to check ticket %s: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, ticketKey(id), "status", string(status))
		if status == order.StatusArchived && r.ttl > 0 {
			pipe.Expire(ctx, ticketKey(id), r.ttl)
			pipe.Expire(ctx, ticketLinesKey(id), r.ttl)
		} else {
			pipe.Persist(ctx, ticketKey(id))
			pipe.Persist(ctx, ticketLinesKey(id))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to update ticket %s: %w", id, err)
	}
	return nil
}

func (r *Redis) ListTickets(ctx context.Context, view View) ([]*order.Ticket, error) {
	ids, err := r.client.ZRevRange(ctx, ticketIndexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	var out []*order.Ticket
	for _, id := range ids {
		t, err := r.TicketStatus(ctx, id)
		if errors.Is(err, ErrNotFound) {
			// expired after archiving
			r.client.ZRem(ctx, ticketIndexKey, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		if inView(view, t.Status) {
			out = append(out, t)
		}
	}
	return out, nil
}

// Close is a no-op; the client is owned by the caller.
func (r *Redis) Close() error { return nil }
