package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/jmylchreest/recipescale/pkg/recipe"
)

// chatWriter renders result bundles as a short message suitable for a chat
// client.
type chatWriter struct {
	w       io.Writer
	written int
}

func (c *chatWriter) Write(data any) error {
	var b *recipe.ResultBundle
	switch v := data.(type) {
	case *recipe.ResultBundle:
		b = v
	case recipe.ResultBundle:
		b = &v
	default:
		return fmt.Errorf("chat format cannot render %T", data)
	}

	if c.written > 0 {
		if _, err := io.WriteString(c.w, "\n"); err != nil {
			return err
		}
	}
	c.written++
	_, err := io.WriteString(c.w, RenderChat(b))
	return err
}

func (c *chatWriter) Close() error {
	return nil
}

// maxChatTips bounds the storage tip lines in a chat summary.
const maxChatTips = 5

// RenderChat formats b as a human-readable summary.
func RenderChat(b *recipe.ResultBundle) string {
	var sb strings.Builder

	name := b.RecipeName
	if name == "" {
		name = "Recipe"
	}
	fmt.Fprintf(&sb, "🍽️ **%s**\n", name)
	fmt.Fprintf(&sb, "📊 Scaled from %d to %d servings (x%s)\n\n", b.OriginalServings, b.TargetServings, recipe.FormatQuantity(b.ScaleFactor))

	sb.WriteString("**Shopping List:**\n")
	for _, item := range b.ShoppingList {
		line := fmt.Sprintf("• %s: %s %s", item.Name, recipe.FormatQuantity(item.BulkQuantity), item.Unit)
		line = strings.TrimRight(line, " ")
		if item.EstimatedPrice > 0 {
			line += fmt.Sprintf(" ~$%.2f", item.EstimatedPrice)
		}
		sb.WriteString(line + "\n")
	}

	fmt.Fprintf(&sb, "\n💰 **Estimated Total:** $%.2f\n", b.EstimatedCost)

	if b.ProductMatches != nil {
		fmt.Fprintf(&sb, "\n**Products (%d/%d matched):**\n", b.MatchedCount(), len(b.ProductMatches))
		for _, m := range b.ProductMatches {
			if m.Match == nil {
				fmt.Fprintf(&sb, "• %s: no match\n", m.Item)
				continue
			}
			fmt.Fprintf(&sb, "• %s: %s $%.2f\n", m.Item, m.Match.Name, m.Match.Price)
		}
	}

	if tips := strings.TrimSpace(b.StorageTips); tips != "" {
		sb.WriteString("\n**Storage Tips:**\n")
		lines := strings.Split(tips, "\n")
		if len(lines) > maxChatTips {
			lines = lines[:maxChatTips]
		}
		for _, l := range lines {
			if l = strings.TrimSpace(l); l != "" {
				sb.WriteString("• " + l + "\n")
			}
		}
	}

	return sb.String()
}
