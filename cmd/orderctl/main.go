// Command orderctl talks to a running order server and runs the extraction
// pipeline offline against a menu file.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/room4-2/OpenOrder/logging"
	"github.com/room4-2/OpenOrder/menu"
)

var version = "dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "orderctl",
		Short:         "Operate the OpenOrder assistant",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level, _ := cmd.Flags().GetString("log-level")
			format, _ := cmd.Flags().GetString("log-format")
			_, err := logging.Setup(level, format)
			return err
		},
	}

	root.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-format", "text", "log format (text, json)")
	root.PersistentFlags().String("menu", "menu.yaml", "menu file")

	root.AddCommand(chatCmd(), extractCmd(), classifyCmd(), menuCmd())
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadCatalog(cmd *cobra.Command) (*menu.Catalog, []menu.MenuItem, error) {
	path, _ := cmd.Flags().GetString("menu")
	items, err := menu.FileProvider{Path: path}.ListAvailable(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	return menu.NewCatalog(items), items, nil
}
