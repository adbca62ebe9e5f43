package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractQuantity(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"2 pizza", 2},
		{"pizza", 1},
		{"pizza 12 slices", 12},
		{"0 pizza", 0},
		{"999 pizza", MaxQuantity},
		{"1000 pizza", 0},
		{"99999999999999999999 pizzas", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractQuantity(tt.text), tt.text)
	}
}

func TestExtractNote(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		product string
		qty     int
		want    string
	}{
		{name: "modifier clause", text: "2 pizza with extra cheese", product: "pizza", qty: 2, want: "Extra cheese"},
		{name: "nothing left", text: "1 soda", product: "soda", qty: 1, want: NoNotes},
		{name: "spanish fillers", text: "quiero 2 pizza sin cebolla por favor", product: "pizza", qty: 2, want: "Sin cebolla"},
		{name: "single character left", text: "2 pizza x", product: "pizza", qty: 2, want: NoNotes},
		{name: "multi word product", text: "please give me 1 hot dog without mustard", product: "hot dog", qty: 1, want: "Without mustard"},
		{name: "plural form removed", text: "3 pizzas well done", product: "pizza", qty: 3, want: "Well done"},
		{name: "only first quantity removed", text: "1 pizza with 2 toppings", product: "pizza", qty: 1, want: "2 toppings"},
		{name: "no quantity token", text: "pizza, no onions", product: "pizza", qty: 1, want: "No onions"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractNote(tt.text, tt.product, tt.qty))
		})
	}
}

func TestDedup(t *testing.T) {
	t.Run("keeps first seen order", func(t *testing.T) {
		got := Dedup([]OrderLine{
			{Product: "pizza", Quantity: 2, Note: NoNotes},
			{Product: "soda", Quantity: 1, Note: NoNotes},
			{Product: "pizza", Quantity: 5, Note: NoNotes},
		})
		assert.Equal(t, []OrderLine{
			{Product: "pizza", Quantity: 2, Note: NoNotes},
			{Product: "soda", Quantity: 1, Note: NoNotes},
		}, got)
	})

	t.Run("later note replaces sentinel", func(t *testing.T) {
		got := Dedup([]OrderLine{
			{Product: "pizza", Quantity: 1, Note: NoNotes},
			{Product: "pizza", Quantity: 3, Note: "Extra cheese"},
		})
		assert.Equal(t, []OrderLine{{Product: "pizza", Quantity: 1, Note: "Extra cheese"}}, got)
	})

	t.Run("existing note is kept", func(t *testing.T) {
		got := Dedup([]OrderLine{
			{Product: "pizza", Quantity: 1, Note: "Well done"},
			{Product: "pizza", Quantity: 1, Note: "Extra cheese"},
		})
		assert.Equal(t, "Well done", got[0].Note)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, Dedup(nil))
	})
}

func TestOrderLine_Validate(t *testing.T) {
	assert.NoError(t, OrderLine{Product: "pizza", Quantity: 1}.Validate())
	assert.ErrorIs(t, OrderLine{Product: "pizza"}.Validate(), ErrInvalidLine)
	assert.ErrorIs(t, OrderLine{Quantity: 2}.Validate(), ErrInvalidLine)
	assert.ErrorIs(t, OrderLine{Product: "pizza", Quantity: MaxQuantity + 1}.Validate(), ErrInvalidLine)
}

func TestPendingOrder_Lifecycle(t *testing.T) {
	var p PendingOrder
	assert.False(t, p.Proposed())

	p.Propose([]OrderLine{{Product: "pizza", Quantity: 1, Note: NoNotes}})
	assert.True(t, p.Proposed())
	assert.Equal(t, StateProposed, p.State)

	p.Propose([]OrderLine{{Product: "soda", Quantity: 2, Note: NoNotes}})
	assert.Equal(t, "soda", p.Lines[0].Product, "last proposal wins")

	p.Clear()
	assert.False(t, p.Proposed())
	assert.Equal(t, "EMPTY", p.State.String())
}

func TestNewTicketID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewTicketID()
		assert.Regexp(t, `^[0-9A-F]{8}$`, id)
		seen[id] = true
	}
	assert.Greater(t, len(seen), 990)
}
