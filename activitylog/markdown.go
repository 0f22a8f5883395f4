package activitylog

import (
	"context"
	"fmt"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
)

// TimestampLayout is how entry times are printed.
const TimestampLayout = "15:04:05 2006-01-02"

func newConverter() *converter.Converter {
	return converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)
}

// Markdown renders c as a Markdown document in display order.
func (l *Log) Markdown(ctx context.Context, c Category) (string, error) {
	conv := newConverter()
	md := func(html string) string {
		if html == "" {
			return ""
		}
		out, err := conv.ConvertString(html)
		if err != nil || strings.TrimSpace(out) == "" {
			return strings.TrimSpace(html)
		}
		return strings.TrimSpace(out)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", c.Title())
	entries := l.Entries(ctx, c)
	if len(entries) == 0 {
		b.WriteString("\nNo entries.\n")
		return b.String(), nil
	}
	for _, e := range entries {
		fmt.Fprintf(&b, "\n## %s\n\n", e.Time().Format(TimestampLayout))
		switch c {
		case Admin:
			if h := md(e.Header); h != "" {
				fmt.Fprintf(&b, "**%s**\n\n", h)
			}
			b.WriteString(md(e.Message))
		case TTS, SFX:
			fmt.Fprintf(&b, "**%s** (%s): %s", md(e.From), md(e.Room), md(e.Message))
		default:
			b.WriteString(md(e.HTML))
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}
