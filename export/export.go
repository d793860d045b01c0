// Package export renders processed records as a Markdown outline or as HTML.
package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"

	"github.com/nevindra/kitabi"
)

// Option configures a rendering.
type Option func(*options)

type options struct {
	text     bool
	maxChars int
}

// WithText includes each section's text under its heading, cut to maxChars
// runes when maxChars > 0.
func WithText(maxChars int) Option {
	return func(o *options) { o.text, o.maxChars = true, maxChars }
}

// Markdown renders rec as a heading-per-section outline. Page numbers are
// shown 1-based.
func Markdown(rec kitabi.Record, opts ...Option) string {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	var b strings.Builder
	title := rec.Name
	if title == "" {
		title = rec.ID
	}
	fmt.Fprintf(&b, "# %s\n\n", escape(title))

	b.WriteString("| Pages | Language | Scanned | Method | Structure |\n")
	b.WriteString("|---|---|---|---|---|\n")
	fmt.Fprintf(&b, "| %d | %s | %s | %s | %s |\n\n",
		rec.PageCount, orDash(string(rec.Language)), yesNo(rec.Classification.IsScanned),
		orDash(string(rec.Extraction.Method)), orDash(string(rec.StructureSource)))

	if len(rec.Warnings) > 0 {
		for _, w := range rec.Warnings {
			fmt.Fprintf(&b, "> **%s**: %s\n>\n", w.Kind, escape(w.Message))
		}
		b.WriteString("\n")
	}

	if len(rec.Sections) == 0 {
		b.WriteString("_No sections recovered._\n")
		return b.String()
	}

	for _, s := range rec.Sections {
		level := min(max(s.Level, 1), 3) + 1
		fmt.Fprintf(&b, "%s %s\n\n", strings.Repeat("#", level), escape(s.Title))
		fmt.Fprintf(&b, "_%s_\n\n", pageLabel(s))
		if o.text {
			text := strings.TrimSpace(strings.ReplaceAll(rec.SectionText(s), kitabi.PageBreak, "\n\n"))
			if o.maxChars > 0 {
				if r := []rune(text); len(r) > o.maxChars {
					text = string(r[:o.maxChars]) + "…"
				}
			}
			if text != "" {
				b.WriteString(escape(text))
				b.WriteString("\n\n")
			}
		}
	}
	return b.String()
}

// HTML renders the Markdown outline of rec through goldmark. Arabic records
// are wrapped in a right-to-left container.
func HTML(rec kitabi.Record, opts ...Option) (string, error) {
	md := goldmark.New(
		goldmark.WithExtensions(extension.Table),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	)
	var buf bytes.Buffer
	if err := md.Convert([]byte(Markdown(rec, opts...)), &buf); err != nil {
		return "", fmt.Errorf("export: render html: %w", err)
	}

	dir, lang := "ltr", rec.Language.Code()
	if rec.Language == kitabi.Arabic {
		dir = "rtl"
	}
	var out strings.Builder
	out.WriteString(`<article dir="` + dir + `"`)
	if lang != "" {
		out.WriteString(` lang="` + lang + `"`)
	}
	out.WriteString(">\n")
	out.Write(buf.Bytes())
	out.WriteString("</article>\n")
	return out.String(), nil
}

func pageLabel(s kitabi.Section) string {
	if s.PageStart == s.PageEnd {
		return fmt.Sprintf("page %d", s.PageStart+1)
	}
	return fmt.Sprintf("pages %d-%d", s.PageStart+1, s.PageEnd+1)
}

var mdEscaper = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", "*", `\*`, "_", `\_`, "[", `\[`, "]", `\]`,
	"<", `\<`, ">", `\>`, "#", `\#`, "|", `\|`,
)

func escape(s string) string { return mdEscaper.Replace(s) }

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
