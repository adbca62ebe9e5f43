package menu

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCatalog(t *testing.T) {
	c := NewCatalog([]MenuItem{
		{Name: "Pizza", Price: decimal.RequireFromString("9.50"), Aliases: []string{"Pizzeta", "soda"}},
		{Name: "Soda", Price: decimal.RequireFromString("2")},
		{Name: "Coca Cola", Price: decimal.RequireFromString("2.5"), Aliases: []string{"coke", "pizzeta"}},
		{Name: "pizza", Price: decimal.RequireFromString("1")},
		{Name: "  "},
	})

	assert.Equal(t, []string{"coca cola", "pizza", "soda"}, c.Names())
	assert.Equal(t, 3, c.Len())
	assert.True(t, c.PriceOf("PIZZA").Equal(decimal.RequireFromString("9.50")), "first duplicate wins")
	assert.True(t, c.PriceOf("burger").IsZero())
	assert.Equal(t, map[string]string{"coke": "coca cola", "pizzeta": "coca cola"}, c.Aliases())
}

func TestCatalog_ReturnsCopies(t *testing.T) {
	c := NewCatalog([]MenuItem{{Name: "pizza"}, {Name: "soda", Aliases: []string{"pop"}}})

	names := c.Names()
	names[0] = "changed"
	aliases := c.Aliases()
	aliases["pop"] = "changed"

	assert.NotContains(t, c.Names(), "changed")
	assert.Equal(t, "soda", c.Aliases()["pop"])
}

func writeMenu(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "menu.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestFileProvider(t *testing.T) {
	path := writeMenu(t, `
items:
  - name: pizza
    price: "9.50"
    aliases: [pizzeta]
  - name: soda
    price: "2.00"
  - name: water
`)

	items, err := FileProvider{Path: path}.ListAvailable(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "pizza", items[0].Name)
	assert.Equal(t, []string{"pizzeta"}, items[0].Aliases)
	assert.Equal(t, "9.5", items[0].Price.String())
	assert.True(t, items[2].Price.IsZero())
}

func TestFileProvider_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := FileProvider{Path: filepath.Join(t.TempDir(), "missing.yaml")}.ListAvailable(ctx)
	assert.Error(t, err)

	_, err = FileProvider{Path: writeMenu(t, "items: []\n")}.ListAvailable(ctx)
	assert.ErrorIs(t, err, ErrEmptyMenu)

	_, err = FileProvider{Path: writeMenu(t, "items:\n  - name: pizza\n    price: cheap\n")}.ListAvailable(ctx)
	assert.ErrorContains(t, err, "invalid price")
}

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisProvider(t *testing.T) {
	ctx := context.Background()
	p := NewRedisProvider(newRedis(t))

	_, err := p.ListAvailable(ctx)
	assert.ErrorIs(t, err, ErrEmptyMenu)

	require.NoError(t, p.Seed(ctx, []MenuItem{
		{Name: "pizza", Price: decimal.RequireFromString("9.5"), Aliases: []string{"pizzeta"}},
		{Name: "soda", Price: decimal.RequireFromString("2")},
	}))

	items, err := p.ListAvailable(ctx)
	require.NoError(t, err)
	c := NewCatalog(items)
	assert.Equal(t, []string{"pizza", "soda"}, c.Names())
	assert.Equal(t, "9.5", c.PriceOf("pizza").String())
	assert.Equal(t, map[string]string{"pizzeta": "pizza"}, c.Aliases())
}

type stubProvider struct {
	items []MenuItem
	err   error
}

func (s *stubProvider) ListAvailable(context.Context) ([]MenuItem, error) {
	return s.items, s.err
}

func TestHolder_Reload(t *testing.T) {
	p := &stubProvider{items: []MenuItem{{Name: "pizza"}}}
	h := NewHolder(p, nil)
	assert.Zero(t, h.Current().Len())

	c, err := h.Reload(context.Background())
	require.NoError(t, err)
	assert.Same(t, c, h.Current())

	p.err = errors.New("redis down")
	_, err = h.Reload(context.Background())
	assert.Error(t, err)
	assert.Same(t, c, h.Current(), "failed reload keeps the previous snapshot")

	p.err = nil
	p.items = []MenuItem{{Name: "pizza"}, {Name: "soda"}}
	h.onChange(context.Background(), []byte("reload"), 0)
	assert.Equal(t, 2, h.Current().Len())
}
