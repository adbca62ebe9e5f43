// Package menu loads the restaurant catalog and keeps an immutable snapshot
// of it for the order pipeline.
package menu

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/room4-2/OpenOrder/order"
)

// MenuItem is one orderable product.
type MenuItem struct {
	Name    string
	Price   decimal.Decimal
	Aliases []string
}

// Catalog is a read-only snapshot of the menu. It is safe for concurrent use.
type Catalog struct {
	items   map[string]MenuItem
	names   []string
	aliases map[string]string
}

// NewCatalog indexes items by folded name. The first item wins when two
// names fold to the same key. Aliases that collide with a name, or with an
// alias of a longer name, are ignored.
func NewCatalog(items []MenuItem) *Catalog {
	c := &Catalog{
		items:   make(map[string]MenuItem, len(items)),
		aliases: make(map[string]string),
	}
	for _, it := range items {
		name := order.Fold(it.Name)
		if name == "" {
			continue
		}
		if _, dup := c.items[name]; dup {
			continue
		}
		it.Name = name
		c.items[name] = it
		c.names = append(c.names, name)
	}
	sort.Slice(c.names, func(i, j int) bool {
		if len(c.names[i]) != len(c.names[j]) {
			return len(c.names[i]) > len(c.names[j])
		}
		return c.names[i] < c.names[j]
	})
	for _, name := range c.names {
		for _, a := range c.items[name].Aliases {
			a = order.Fold(a)
			_, isName := c.items[a]
			_, taken := c.aliases[a]
			if a == "" || isName || taken {
				continue
			}
			c.aliases[a] = name
		}
	}
	return c
}

// Names returns the canonical names, longest first.
func (c *Catalog) Names() []string {
	return append([]string(nil), c.names...)
}

// PriceOf returns the price of name, or zero when it is not on the menu.
func (c *Catalog) PriceOf(name string) decimal.Decimal {
	if it, ok := c.items[order.Fold(name)]; ok {
		return it.Price
	}
	return decimal.Zero
}

// Aliases returns a copy of the alias to canonical name map.
func (c *Catalog) Aliases() map[string]string {
	out := make(map[string]string, len(c.aliases))
	for k, v := range c.aliases {
		out[k] = v
	}
	return out
}

// Items returns every item sorted by name.
func (c *Catalog) Items() []MenuItem {
	out := make([]MenuItem, 0, len(c.items))
	for _, it := range c.items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of items.
func (c *Catalog) Len() int {
	return len(c.items)
}
