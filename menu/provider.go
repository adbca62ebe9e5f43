package menu

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Redis keys read by RedisProvider.
const (
	ItemsKey   = "menu:items"
	AliasesKey = "menu:aliases"
)

// ErrEmptyMenu is returned when a source yields no items.
var ErrEmptyMenu = errors.New("menu has no items")

// Provider lists the products currently available.
type Provider interface {
	ListAvailable(ctx context.Context) ([]MenuItem, error)
}

// FileProvider reads the menu from a YAML file on every call.
type FileProvider struct {
	Path string
}

type menuFile struct {
	Items []struct {
		Name    string   `yaml:"name"`
		Price   string   `yaml:"price"`
		Aliases []string `yaml:"aliases"`
	} `yaml:"items"`
}

// ListAvailable parses the YAML file.
func (p FileProvider) ListAvailable(_ context.Context) ([]MenuItem, error) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read menu file: %w", err)
	}
	var f menuFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse menu file %s: %w", p.Path, err)
	}
	if len(f.Items) == 0 {
		return nil, ErrEmptyMenu
	}

	items := make([]MenuItem, 0, len(f.Items))
	for _, it := range f.Items {
		price := decimal.Zero
		if it.Price != "" {
			price, err = decimal.NewFromString(it.Price)
			if err != nil {
				return nil, fmt.Errorf("invalid price %q for %q: %w", it.Price, it.Name, err)
			}
		}
		items = append(items, MenuItem{Name: it.Name, Price: price, Aliases: it.Aliases})
	}
	return items, nil
}

// RedisProvider reads the menu from two hashes: ItemsKey maps product name
// to price and AliasesKey maps alias to product name.
type RedisProvider struct {
	client redis.UniversalClient
}

// NewRedisProvider returns a provider backed by client.
func NewRedisProvider(client redis.UniversalClient) *RedisProvider {
	return &RedisProvider{client: client}
}

// ListAvailable loads both hashes.
func (p *RedisProvider) ListAvailable(ctx context.Context) ([]MenuItem, error) {
	prices, err := p.client.HGetAll(ctx, ItemsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load menu items: %w", err)
	}
	if len(prices) == 0 {
		return nil, ErrEmptyMenu
	}
	aliases, err := p.client.HGetAll(ctx, AliasesKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load menu aliases: %w", err)
	}

	byName := make(map[string][]string, len(prices))
	for alias, name := range aliases {
		byName[name] = append(byName[name], alias)
	}

	items := make([]MenuItem, 0, len(prices))
	for name, raw := range prices {
		price, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid price %q for %q: %w", raw, name, err)
		}
		items = append(items, MenuItem{Name: name, Price: price, Aliases: byName[name]})
	}
	return items, nil
}

// Seed writes items into the Redis hashes read by RedisProvider.
func (p *RedisProvider) Seed(ctx context.Context, items []MenuItem) error {
	_, err := p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, it := range items {
			pipe.HSet(ctx, ItemsKey, it.Name, it.Price.String())
			for _, a := range it.Aliases {
				pipe.HSet(ctx, AliasesKey, a, it.Name)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to seed menu: %w", err)
	}
	return nil
}
