package order

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

var testMenu = []string{"pizza", "soda", "coca cola", "hot dog", "fish and chips"}

var testAliases = map[string]string{
	"coke":     "coca cola",
	"refresco": "soda",
	"pop":      "soda",
	"burger":   "not on the menu",
}

func TestNormalizer_Normalize(t *testing.T) {
	n := NewNormalizer(testMenu, testAliases)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plural and conjunction", in: "2 Pizzas and a Soda", want: "2 pizza, 1 soda"},
		{name: "spanish numbers", in: "Dos pizzas y una coca cola", want: "2 pizza, 1 coca cola"},
		{name: "alias plural", in: "I want two Cokes", want: "i want 2 coca cola"},
		{name: "alias to canonical", in: "un refresco", want: "1 soda"},
		{name: "diacritics and inverted marks", in: "Sí, ¿una pizza?", want: "si, 1 pizza?"},
		{name: "multi word plural", in: "three hot dogs", want: "3 hot dog"},
		{name: "name containing conjunction", in: "fish and chips and a pop", want: "fish and chips, 1 soda"},
		{name: "no match inside words", in: "pizzeria sodastream", want: "pizzeria sodastream"},
		{name: "alias to unknown product ignored", in: "a burger", want: "a burger"},
		{name: "article before a product", in: "an order of a pizza with a lot of cheese", want: "an order of 1 pizza with a lot of cheese"},
		{name: "article before an alias plural", in: "a cokes", want: "1 coca cola"},
		{name: "collapses separators", in: "pizza , and soda", want: "pizza, soda"},
		{name: "empty", in: "   ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, n.Normalize(tt.in))
		})
	}
}

func TestNormalizer_Idempotent(t *testing.T) {
	n := NewNormalizer(testMenu, map[string]string{"cola": "coca cola", "coke": "coca cola"})

	inputs := []string{
		"2 pizzas and a soda",
		"a cola and two cokes",
		"una coca cola y dos hot dogs, sin mostaza",
		"a pizza with a lot of cheese",
		"Fish and chips and fish and chips",
		"¡Hola! quiero 3 pizzas con extra queso",
	}
	for _, in := range inputs {
		once := n.Normalize(in)
		assert.Equal(t, once, n.Normalize(once), "input %q", in)
	}
}

func TestFold(t *testing.T) {
	assert.Equal(t, "cafe con leche", Fold("  Café   con\tLECHE "))
	assert.Equal(t, "jalapeno", Fold("Jalapeño"))
}

func ExampleNormalizer_Normalize() {
	n := NewNormalizer([]string{"pizza", "soda"}, nil)
	fmt.Println(n.Normalize("Two Pizzas with extra cheese and a soda"))
	// Output: 2 pizza with extra cheese, 1 soda
}
