package export

import (
	"strings"
	"testing"

	"github.com/nevindra/kitabi"
)

func sampleRecord() kitabi.Record {
	text, bounds := kitabi.AssembleText([]string{"cover", "contents", "first chapter text", "more of it", "second chapter"})
	return kitabi.Record{
		ID:              "rec-1",
		Name:            "Field_Guide.pdf",
		PageCount:       5,
		Language:        kitabi.English,
		Extraction:      kitabi.ExtractionResult{FullText: text, PageBoundaries: bounds, Method: kitabi.MethodLocal},
		StructureSource: kitabi.StructureTocPage,
		Sections: []kitabi.Section{
			{Title: "Chapter One", Level: 1, PageStart: 2, PageEnd: 3},
			{Title: "1.1 Setup <draft>", Level: 2, PageStart: 3, PageEnd: 3},
			{Title: "Chapter Two", Level: 1, PageStart: 4, PageEnd: 4},
		},
	}
}

func TestMarkdownOutline(t *testing.T) {
	md := Markdown(sampleRecord())

	for _, want := range []string{
		"# Field\\_Guide.pdf\n",
		"| 5 | english | no | local | toc_page |",
		"## Chapter One\n\n_pages 3-4_",
		"### 1.1 Setup \\<draft\\>\n\n_page 4_",
		"## Chapter Two\n\n_page 5_",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
	if strings.Contains(md, "first chapter text") {
		t.Error("text included without WithText")
	}
}

func TestMarkdownWithText(t *testing.T) {
	md := Markdown(sampleRecord(), WithText(0))
	if !strings.Contains(md, "first chapter text\n\nmore of it") {
		t.Errorf("section text missing:\n%s", md)
	}

	md = Markdown(sampleRecord(), WithText(5))
	if !strings.Contains(md, "first…") {
		t.Errorf("truncated text missing:\n%s", md)
	}
}

func TestMarkdownNoSectionsAndWarnings(t *testing.T) {
	rec := kitabi.Record{ID: "rec-2", Warnings: []kitabi.Warning{{Kind: kitabi.WarnTocNotFound, Message: "no toc"}}}
	md := Markdown(rec)
	if !strings.HasPrefix(md, "# rec-2\n") {
		t.Errorf("title fallback: %q", md)
	}
	if !strings.Contains(md, "No sections recovered") || !strings.Contains(md, string(kitabi.WarnTocNotFound)) {
		t.Errorf("markdown = %s", md)
	}
	if !strings.Contains(md, "| 0 | - | no | - | - |") {
		t.Errorf("empty metadata row missing:\n%s", md)
	}
}

func TestHTML(t *testing.T) {
	html, err := HTML(sampleRecord())
	if err != nil {
		t.Fatalf("HTML: %v", err)
	}
	for _, want := range []string{
		`<article dir="ltr" lang="en">`,
		"<table>",
		`<h2 id="chapter-one">Chapter One</h2>`,
		"<em>pages 3-4</em>",
		"1.1 Setup &lt;draft&gt;",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("html missing %q:\n%s", want, html)
		}
	}
	if strings.Contains(html, "<draft>") {
		t.Error("title not escaped")
	}
}

func TestHTMLArabicIsRTL(t *testing.T) {
	rec := kitabi.Record{
		ID:       "rec-3",
		Name:     "كتاب",
		Language: kitabi.Arabic,
		Sections: []kitabi.Section{{Title: "الفصل الأول", Level: 1, PageStart: 0, PageEnd: 2}},
	}
	html, err := HTML(rec)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(html, `<article dir="rtl" lang="ar">`) {
		t.Errorf("html = %s", html)
	}
	if !strings.Contains(html, "الفصل الأول</h2>") {
		t.Errorf("arabic heading missing:\n%s", html)
	}
}
