package commands

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/recipescale/internal/config"
	"github.com/jmylchreest/recipescale/internal/output"
	"github.com/jmylchreest/recipescale/pkg/pipeline"
)

var matchCmd = &cobra.Command{
	Use:   "match FILE",
	Short: "Re-run retailer product matching on a saved result",
	Long: `Read a result bundle written by "process", search the retailer for
every shopping list item and write the bundle back with fresh product
matches. No LLM is used.

Examples:
  recipescale match shopping_list.json
  recipescale match chili.yaml -o chili-matched.yaml --retail-mode api --retail-url http://localhost:9000`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return bindFlags(cmd, matchFlags)
	},
	RunE: runMatch,
}

func init() {
	rootCmd.AddCommand(matchCmd)

	flags := matchCmd.Flags()
	flags.StringP("output", "o", "", "output file (default: overwrite FILE)")
	flags.String("format", "", "output format: json, jsonl, yaml, chat (default: from FILE extension)")
	flags.String("retail-mode", "browser", "retailer search mode: browser, api")
	flags.String("retail-url", "", "retailer base URL")
	flags.Float64("min-confidence", 0.3, "minimum match confidence (0-1)")
	flags.Int("concurrency", 1, "concurrent retailer searches")
	flags.Duration("rate", 2*time.Second, "minimum interval between retailer searches")
}

var matchFlags = map[string]string{
	"retail.mode":           "retail-mode",
	"retail.base_url":       "retail-url",
	"retail.min_confidence": "min-confidence",
	"retail.concurrency":    "concurrency",
	"retail.rate_interval":  "rate",
}

func runMatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	v.Set("search_enabled", true)
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}

	in := args[0]
	out, _ := cmd.Flags().GetString("output")
	if out == "" {
		out = in
	}

	pcfg := cfg.Pipeline()
	pcfg.MatchOnly = true
	pcfg.Format, err = formatFor(cmd, out)
	if err != nil {
		return err
	}

	bundle, err := output.ReadBundle(in)
	if err != nil {
		return err
	}
	logInfo("Matching %d items from %s", len(bundle.ShoppingList), in)

	p, err := pipeline.New(pcfg, pipeline.WithObserver(progress))
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	updated, err := p.Rematch(ctx, bundle)
	if err != nil {
		return err
	}
	if err := p.Write(ctx, updated, out); err != nil {
		return err
	}

	logInfo("Saved %s (%s)", out, summary(updated))
	return nil
}

// formatFor uses --format when given, otherwise the output file extension.
func formatFor(cmd *cobra.Command, path string) (output.Format, error) {
	s, _ := cmd.Flags().GetString("format")
	if s == "" {
		return output.FormatForPath(path), nil
	}
	f, err := output.ParseFormat(s)
	if err != nil {
		return "", err
	}
	if err := output.CheckPath(path, f); err != nil {
		return "", err
	}
	return f, nil
}
