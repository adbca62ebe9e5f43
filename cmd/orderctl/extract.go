package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/room4-2/OpenOrder/fuzzy"
	"github.com/room4-2/OpenOrder/intent"
	"github.com/room4-2/OpenOrder/order"
)

func extractCmd() *cobra.Command {
	var (
		asJSON bool
		cutoff float64
	)
	cmd := &cobra.Command{
		Use:   "extract <utterance>",
		Short: "Extract order lines from an utterance without a server",
		Example: `  orderctl extract "2 pizzas with extra cheese and a soda"
  orderctl extract --json "dos hamburguesas sin cebolla"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, _, err := loadCatalog(cmd)
			if err != nil {
				return err
			}
			ex := order.NewExtractor(catalog.Names(), catalog.Aliases(), nil, fuzzy.New(),
				order.ResolverConfig{FuzzyCutoff: cutoff}, slog.Default())

			utterance := strings.Join(args, " ")
			lines := ex.Extract(cmd.Context(), utterance)

			out := cmd.OutOrStdout()
			if asJSON {
				if lines == nil {
					lines = []order.OrderLine{}
				}
				data, err := sonic.ConfigDefault.MarshalIndent(lines, "", "  ")
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, string(data))
				return err
			}

			fmt.Fprintf(out, "normalized: %s\n", ex.Normalize(utterance))
			if len(lines) == 0 {
				fmt.Fprintln(out, "no items found")
				return nil
			}
			for i, l := range lines {
				fmt.Fprintf(out, "%d. %dx %s", i+1, l.Quantity, l.Product)
				if l.HasNote() {
					fmt.Fprintf(out, " (%s)", l.Note)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print lines as JSON")
	cmd.Flags().Float64Var(&cutoff, "fuzzy-cutoff", order.DefaultFuzzyCutoff, "minimum similarity for fuzzy matches")
	return cmd
}

func classifyCmd() *cobra.Command {
	var pending bool
	cmd := &cobra.Command{
		Use:   "classify <utterance>",
		Short: "Show the intent the assistant would assign to an utterance",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, _, err := loadCatalog(cmd)
			if err != nil {
				return err
			}
			text := strings.Join(args, " ")
			it := intent.NewClassifier(nil, slog.Default()).Classify(cmd.Context(), intent.Input{
				Text:    text,
				Pending: pending,
				Menu:    intent.NewMenuTerms(catalog.Names()),
			})

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "intent: %s\n", it.Kind)
			if it.TicketID != "" {
				fmt.Fprintf(out, "ticket: %s\n", it.TicketID)
			}
			s := intent.KeywordSentiment{}.Analyze(text)
			fmt.Fprintf(out, "sentiment: %s (%.2f)\n", s.Label, s.Confidence)
			return nil
		},
	}
	cmd.Flags().BoolVar(&pending, "pending", false, "classify as if an order were waiting for confirmation")
	return cmd
}
