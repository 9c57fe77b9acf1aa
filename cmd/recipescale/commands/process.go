package commands

import (
	"context"
	"fmt"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/recipescale/internal/config"
	"github.com/jmylchreest/recipescale/internal/logger"
	"github.com/jmylchreest/recipescale/internal/output"
	"github.com/jmylchreest/recipescale/pkg/pipeline"
	"github.com/jmylchreest/recipescale/pkg/recipe"
)

var processCmd = &cobra.Command{
	Use:     "process URL [SERVINGS]",
	Aliases: []string{"run"},
	Short:   "Scale a recipe and write its shopping list",
	Long: `Fetch the recipe at URL, scale it to SERVINGS (default: num_meals, 7)
and write the result bundle.

The bundle holds the original recipe, the scaled recipe, the shopping
list and, with --search, retailer product matches.

Examples:
  recipescale process "https://example.com/chili" 10
  recipescale process "https://example.com/chili" -o chili.yaml --format yaml
  recipescale process "https://example.com/chili" --fetch-mode dynamic -p openai`,
	Args: cobra.RangeArgs(1, 2),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return bindFlags(cmd, processFlags)
	},
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)

	flags := processCmd.Flags()

	// LLM settings
	flags.StringP("provider", "p", "", "LLM provider: anthropic, openai, openrouter, ollama (auto-detects from env vars)")
	flags.StringP("model", "m", "", "model name (provider-specific)")
	flags.StringP("api-key", "k", "", "API key (or use env var)")
	flags.String("base-url", "", "custom API base URL")
	flags.Int("max-retries", 2, "max LLM request retries")
	flags.String("max-content-size", "100KB", "max recipe text sent to the model (e.g., 100KB, 1MB, 0=unlimited)")

	// Output settings
	flags.StringP("output", "o", output.DefaultPath, "output file")
	flags.String("format", "json", "output format: json, jsonl, yaml, chat")
	flags.Bool("stdout", false, "print the result to stdout instead of writing a file")

	// Fetch settings
	flags.String("fetch-mode", "static", "fetch mode: static, dynamic")
	flags.Duration("timeout", 30*time.Second, "page fetch timeout")
	flags.String("cleaner", "readability", "content cleaner: readability, markdown, text, none")

	// Product matching
	flags.Bool("search", false, "match shopping list items to retailer products")
	flags.String("retail-mode", "browser", "retailer search mode: browser, api")
	flags.String("retail-url", "", "retailer base URL")
}

var processFlags = map[string]string{
	"provider":         "provider",
	"model":            "model",
	"api_key":          "api-key",
	"base_url":         "base-url",
	"llm.max_retries":  "max-retries",
	"max_content_size": "max-content-size",
	"output":           "output",
	"format":           "format",
	"fetch.mode":       "fetch-mode",
	"fetch.timeout":    "timeout",
	"cleaner":          "cleaner",
	"search_enabled":   "search",
	"retail.mode":      "retail-mode",
	"retail.base_url":  "retail-url",
}

func runProcess(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(v)
	if err != nil {
		return err
	}

	url := args[0]
	servings := cfg.NumMeals
	if len(args) == 2 {
		servings, err = parseServings(args[1])
		if err != nil {
			return err
		}
	}

	logger.Debug("process command starting",
		"url", url,
		"servings", servings,
		"max_content_size", humanize.Bytes(uint64(cfg.MaxContentBytes)),
		"search", cfg.SearchEnabled)

	p, err := pipeline.New(cfg.Pipeline(), pipeline.WithObserver(progress))
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	if provider := p.Provider(); provider != nil {
		logInfo("Using %s (%s)", provider.Name(), provider.Model())
	}

	start := time.Now()

	if stdout, _ := cmd.Flags().GetBool("stdout"); stdout {
		bundle, err := p.Run(ctx, url, servings)
		if err != nil {
			return err
		}
		w, err := output.NewWriter(cmd.OutOrStdout(), output.Format(cfg.Format))
		if err != nil {
			return err
		}
		if err := w.Write(bundle); err != nil {
			return err
		}
		return w.Close()
	}

	bundle, err := p.RunAndWrite(ctx, url, servings, cfg.Output)
	if err != nil {
		return err
	}

	logInfo("Saved %s (%d items, est. $%.2f) in %s",
		cfg.Output, len(bundle.ShoppingList), bundle.EstimatedCost,
		time.Since(start).Round(time.Millisecond))
	if bundle.ProductMatches != nil {
		logInfo("Products: %s", summary(bundle))
	}
	return nil
}

// parseServings accepts a positive whole number of servings.
func parseServings(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid servings %q: must be a whole number", s)
	}
	if n <= 0 {
		return 0, fmt.Errorf("invalid servings %d: must be greater than zero", n)
	}
	return n, nil
}

// progress reports stage transitions on stderr.
func progress(e pipeline.Event) {
	switch {
	case !e.Done:
		logInfo("→ %s", e.Stage)
	case e.Err != nil:
		logger.Debug("stage failed", "stage", e.Stage.String(), "duration", e.Duration)
	default:
		logInfo("✓ %s (%s)", e.Stage, e.Duration.Round(time.Millisecond))
	}
}

// summary formats the counts shown after a match run.
func summary(b *recipe.ResultBundle) string {
	return fmt.Sprintf("%d/%d items matched", b.MatchedCount(), len(b.ProductMatches))
}
