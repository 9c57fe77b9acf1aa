package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/recipescale/internal/config"
	"github.com/jmylchreest/recipescale/pkg/cleaner"
	"github.com/jmylchreest/recipescale/pkg/fetcher"
)

var cleanCmd = &cobra.Command{
	Use:   "clean URL|FILE",
	Short: "Show the recipe text the model would receive",
	Long: `Fetch a recipe page (or read a saved HTML file) and print it after
content cleaning. Useful for choosing a cleaner for a site.

Examples:
  recipescale clean "https://example.com/chili"
  recipescale clean page.html --cleaner text
  recipescale clean "https://example.com/chili" --compare`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return bindFlags(cmd, cleanFlags)
	},
	RunE: runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)

	flags := cleanCmd.Flags()
	flags.String("cleaner", "readability", "content cleaner: readability, markdown, text, none")
	flags.Bool("compare", false, "print size statistics for every cleaner instead of content")
	flags.String("fetch-mode", "static", "fetch mode: static, dynamic")
	flags.Duration("timeout", 30*time.Second, "page fetch timeout")
	flags.StringP("output", "o", "", "write cleaned content to a file instead of stdout")
}

var cleanFlags = map[string]string{
	"cleaner":       "cleaner",
	"fetch.mode":    "fetch-mode",
	"fetch.timeout": "timeout",
}

func runClean(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(v)
	if err != nil {
		return err
	}

	source := args[0]
	html, err := loadHTML(ctx, cfg, source)
	if err != nil {
		return err
	}

	baseURL := ""
	if isURL(source) {
		baseURL = source
	}

	if compare, _ := cmd.Flags().GetBool("compare"); compare {
		return compareCleaners(cmd.OutOrStdout(), html, baseURL)
	}

	c, err := cleaner.New(cfg.Cleaner, baseURL)
	if err != nil {
		return err
	}
	cleaned, err := c.Clean(html)
	if err != nil {
		return fmt.Errorf("%s cleaner: %w", c.Name(), err)
	}

	logInfo("%s: %s -> %s (%s)", source, humanize.Bytes(uint64(len(html))),
		humanize.Bytes(uint64(len(cleaned))), c.Name())

	if out, _ := cmd.Flags().GetString("output"); out != "" {
		return os.WriteFile(out, []byte(cleaned), 0o644) //#nosec G306 -- user-requested output file
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), cleaned)
	return err
}

func loadHTML(ctx context.Context, cfg config.Config, source string) (string, error) {
	if !isURL(source) {
		data, err := os.ReadFile(source) //#nosec G304 -- CLI reads a user-specified file
		if err != nil {
			return "", fmt.Errorf("reading file %s: %w", source, err)
		}
		return string(data), nil
	}

	f, err := fetcher.New(cfg.Fetch.Mode, fetcher.Config{UserAgent: cfg.Fetch.UserAgent, Timeout: cfg.Fetch.Timeout})
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	content, err := f.Fetch(ctx, source, fetcher.Options{})
	if err != nil {
		return "", err
	}
	return content.HTML, nil
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// compareCleaners runs every named cleaner over html and writes one row of
// size and timing per cleaner.
func compareCleaners(w io.Writer, html, baseURL string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "CLEANER\tSIZE\tREDUCTION\tTIME\n")
	fmt.Fprintf(tw, "input\t%s\t-\t-\n", humanize.Bytes(uint64(len(html))))

	for _, name := range []string{cleaner.NameReadability, cleaner.NameMarkdown, cleaner.NameText, cleaner.NameNone} {
		c, err := cleaner.New(name, baseURL)
		if err != nil {
			return err
		}
		start := time.Now()
		out, err := c.Clean(html)
		elapsed := time.Since(start)
		if err != nil {
			fmt.Fprintf(tw, "%s\terror: %v\t\t\n", name, err)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", name,
			humanize.Bytes(uint64(len(out))),
			reduction(len(html), len(out)),
			elapsed.Round(time.Microsecond))
	}
	return tw.Flush()
}

func reduction(before, after int) string {
	if before == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.0f%%", 100*(1-float64(after)/float64(before)))
}
