package main

import (
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/room4-2/OpenOrder/menu"
)

func menuCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "menu",
		Short: "Manage the menu served to the assistant",
	}
	cmd.AddCommand(menuSeedCmd(), menuNotifyCmd(), menuShowCmd())
	return cmd
}

func menuShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the menu file as the assistant sees it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalog, _, err := loadCatalog(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, it := range catalog.Items() {
				fmt.Fprintf(out, "%-20s %8s\n", it.Name, it.Price.StringFixed(2))
			}
			aliases := catalog.Aliases()
			if len(aliases) > 0 {
				fmt.Fprintf(out, "%d aliases\n", len(aliases))
			}
			return nil
		},
	}
}

func menuSeedCmd() *cobra.Command {
	var addr, password string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Copy the menu file into Redis for MENU_SOURCE=redis",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, items, err := loadCatalog(cmd)
			if err != nil {
				return err
			}
			rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password})
			defer rdb.Close()

			if err := menu.NewRedisProvider(rdb).Seed(cmd.Context(), items); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d items into %s\n", len(items), addr)
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "redis", "localhost:6379", "redis address")
	cmd.Flags().StringVar(&password, "redis-password", "", "redis password")
	return cmd
}

func menuNotifyCmd() *cobra.Command {
	var url, subject string
	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Tell running servers to reload the menu",
		RunE: func(cmd *cobra.Command, _ []string) error {
			nc, err := nats.Connect(url, nats.Name("orderctl"))
			if err != nil {
				return fmt.Errorf("failed to connect to NATS: %w", err)
			}
			defer nc.Close()

			if err := menu.NotifyChanged(nc, subject); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published on %s\n", subject)
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "nats", nats.DefaultURL, "NATS server URL")
	cmd.Flags().StringVar(&subject, "subject", menu.DefaultSubject, "menu change subject")
	return cmd
}
