package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jmylchreest/recipescale/internal/output"
	"github.com/jmylchreest/recipescale/internal/version"
)

func TestParseServings(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"7", 7, false},
		{"12", 12, false},
		{"0", 0, true},
		{"-3", 0, true},
		{"2.5", 0, true},
		{"lots", 0, true},
	}
	for _, tt := range tests {
		got, err := parseServings(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("parseServings(%q) = %d, %v", tt.in, got, err)
		}
	}
}

func TestFormatFor(t *testing.T) {
	tests := []struct {
		flag, path string
		want       output.Format
		wantErr    bool
	}{
		{"", "list.json", output.FormatJSON, false},
		{"", "list.yml", output.FormatYAML, false},
		{"yaml", "list.yaml", output.FormatYAML, false},
		{"jsonl", "list.json", output.FormatJSONL, false},
		{"chat", "list.txt", output.FormatChat, false},
		{"bogus", "list.yaml", "", true},
		{"yaml", "list.json", "", true},
		{"chat", "list.json", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.flag+"/"+tt.path, func(t *testing.T) {
			if err := matchCmd.Flags().Set("format", tt.flag); err != nil {
				t.Fatal(err)
			}
			t.Cleanup(func() { _ = matchCmd.Flags().Set("format", "") })
			got, err := formatFor(matchCmd, tt.path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("formatFor() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("formatFor() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"version", "--short", "--env-file", ""})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got := strings.TrimSpace(buf.String()); got != version.String() {
		t.Errorf("version output = %q, want %q", got, version.String())
	}
}

func TestProcessCommand_RejectsBadServings(t *testing.T) {
	rootCmd.SetArgs([]string{"process", "https://example.com/recipe", "zero", "--env-file", ""})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "invalid servings") {
		t.Errorf("Execute() error = %v, want invalid servings", err)
	}
}

const cleanPage = `<html><head><title>Chili</title></head><body>
<nav>Home | Recipes</nav>
<article><h1>Weeknight Chili</h1><p>Serves 4.</p>
<ul><li>1 lb ground beef</li><li>2 cans kidney beans</li></ul>
<p>Brown the beef, add beans and simmer for 30 minutes.</p></article>
<footer>Copyright</footer></body></html>`

func TestCompareCleaners(t *testing.T) {
	var buf bytes.Buffer
	if err := compareCleaners(&buf, cleanPage, "https://example.com/chili"); err != nil {
		t.Fatalf("compareCleaners() error = %v", err)
	}

	got := buf.String()
	for _, want := range []string{"CLEANER", "input", "readability", "markdown", "text", "none"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestReduction(t *testing.T) {
	tests := []struct {
		before, after int
		want          string
	}{
		{0, 0, "0%"},
		{100, 25, "75%"},
		{100, 100, "0%"},
	}
	for _, tt := range tests {
		if got := reduction(tt.before, tt.after); got != tt.want {
			t.Errorf("reduction(%d, %d) = %q, want %q", tt.before, tt.after, got, tt.want)
		}
	}
}

func TestCleanCommand_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chili.html")
	if err := os.WriteFile(path, []byte(cleanPage), 0o644); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"clean", path, "--cleaner", "text", "--quiet", "--env-file", ""})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		_ = cleanCmd.Flags().Set("cleaner", "readability")
	})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(buf.String(), "1 lb ground beef") {
		t.Errorf("cleaned output missing ingredient:\n%s", buf.String())
	}
}
