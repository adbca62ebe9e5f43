package functions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/room4-2/OpenOrder/order"
)

func TestRankCandidatesDeclaration(t *testing.T) {
	d := RankCandidatesDeclaration([]string{"pizza", "soda"})
	assert.Equal(t, RankCandidates, d.Name)
	require.NotNil(t, d.Parameters)
	items := d.Parameters.Properties["rankings"].Items
	require.NotNil(t, items)
	assert.Equal(t, []string{"pizza", "soda"}, items.Properties["label"].Enum)
	assert.Equal(t, genai.TypeNumber, items.Properties["confidence"].Type)
}

func TestParseRankings(t *testing.T) {
	got, err := ParseRankings(map[string]any{
		"rankings": []any{
			map[string]any{"label": "pizza", "confidence": 0.9},
			map[string]any{"label": " ", "confidence": 0.5},
			map[string]any{"label": "soda", "confidence": 1.7},
			map[string]any{"label": "hot dog", "confidence": int64(0)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []order.Classification{
		{Label: "pizza", Confidence: 0.9},
		{Label: "soda", Confidence: 1},
		{Label: "hot dog", Confidence: 0},
	}, got)
}

func TestParseRankings_Errors(t *testing.T) {
	tests := []struct {
		name string
		args map[string]any
	}{
		{name: "missing", args: map[string]any{}},
		{name: "wrong type", args: map[string]any{"rankings": "pizza"}},
		{name: "entry not object", args: map[string]any{"rankings": []any{"pizza"}}},
		{name: "confidence not number", args: map[string]any{"rankings": []any{map[string]any{"label": "pizza", "confidence": "high"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRankings(tt.args)
			assert.ErrorIs(t, err, ErrBadArguments)
		})
	}
}

func TestParseLabel(t *testing.T) {
	got, err := ParseLabel(map[string]any{"label": " pedido "})
	require.NoError(t, err)
	assert.Equal(t, "pedido", got)

	_, err = ParseLabel(map[string]any{"label": 3})
	assert.ErrorIs(t, err, ErrBadArguments)
	_, err = ParseLabel(nil)
	assert.ErrorIs(t, err, ErrBadArguments)
}
