package order

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractor_Extract(t *testing.T) {
	tests := []struct {
		name      string
		utterance string
		want      []OrderLine
	}{
		{
			name:      "plain items",
			utterance: "2 pizzas and a soda",
			want: []OrderLine{
				{Product: "pizza", Quantity: 2, Note: NoNotes},
				{Product: "soda", Quantity: 1, Note: NoNotes},
			},
		},
		{
			name:      "modifier stays with its item",
			utterance: "2 pizzas with extra cheese and a soda",
			want: []OrderLine{
				{Product: "pizza", Quantity: 2, Note: "Extra cheese"},
				{Product: "soda", Quantity: 1, Note: NoNotes},
			},
		},
		{
			name:      "spanish with alias",
			utterance: "Quiero dos hot dogs sin mostaza y un refresco, por favor",
			want: []OrderLine{
				{Product: "hot dog", Quantity: 2, Note: "Sin mostaza"},
				{Product: "soda", Quantity: 1, Note: NoNotes},
			},
		},
		{
			name:      "duplicates keep first quantity",
			utterance: "1 pizza, 1 soda, 3 pizzas well done",
			want: []OrderLine{
				{Product: "pizza", Quantity: 1, Note: "Well done"},
				{Product: "soda", Quantity: 1, Note: NoNotes},
			},
		},
		{
			name:      "article inside a note is kept",
			utterance: "a pizza with a lot of cheese",
			want: []OrderLine{
				{Product: "pizza", Quantity: 1, Note: "A lot of cheese"},
			},
		},
		{
			name:      "overflowing quantity dropped",
			utterance: "99999999999999999999 pizzas and 1 soda",
			want: []OrderLine{
				{Product: "soda", Quantity: 1, Note: NoNotes},
			},
		},
		{
			name:      "zero quantity dropped",
			utterance: "0 pizza, 1 soda",
			want:      []OrderLine{{Product: "soda", Quantity: 1, Note: NoNotes}},
		},
		{
			name:      "nothing on the menu",
			utterance: "what time do you close",
			want:      []OrderLine{},
		},
	}

	e := NewExtractor(testMenu, testAliases, nil, nil, ResolverConfig{}, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.Extract(context.Background(), tt.utterance))
		})
	}
}

func TestExtractor_FallsBackToFuzzy(t *testing.T) {
	m := &fakeMatcher{match: "pizza", ok: true}
	e := NewExtractor(testMenu, nil, nil, m, ResolverConfig{}, nil)

	got := e.Extract(context.Background(), "2 piza, 1 soda")
	assert.Equal(t, []OrderLine{
		{Product: "pizza", Quantity: 2, Note: NoNotes},
		{Product: "soda", Quantity: 1, Note: NoNotes},
	}, got)
	assert.Equal(t, 1, m.calls)
}

func TestModifierClause(t *testing.T) {
	assert.Equal(t, "with ham", modifierClause("2 piza with ham"))
	assert.Equal(t, "", modifierClause("2 piza"))
	assert.Equal(t, "sin queso", modifierClause("1 pizzza sin queso"))
}
