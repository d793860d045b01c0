package kitabi

import (
	"strings"
	"testing"
)

func printed(entries []TocEntry) []int {
	out := make([]int, len(entries))
	for i, e := range entries {
		out[i] = *e.PrintedPage
	}
	return out
}

func TestFromLinesLatin(t *testing.T) {
	text := strings.Join([]string{
		"Table of Contents",
		"Preface ......... 1",
		"Chapter 1 The Road North . . . . 9",
		"1.1 Leaving home    11",
		"1.1.2 The first night ____ 14",
		"Part II Arrival … 30",
		"Appendix A: Maps ··· 88",
	}, "\n")
	x := NewTocPageExtractor(DefaultConfig())

	got := x.FromLines(text)
	want := []struct {
		title string
		level int
		page  int
	}{
		{"Preface", 1, 1},
		{"Chapter 1 The Road North", 1, 9},
		{"1.1 Leaving home", 2, 11},
		{"1.1.2 The first night", 3, 14},
		{"Part II Arrival", 1, 30},
		{"Appendix A: Maps", 1, 88},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d entries %+v, want %d", len(got), got, len(want))
	}
	for i, w := range want {
		g := got[i]
		if g.Title != w.title || g.Level != w.level || *g.PrintedPage != w.page {
			t.Errorf("entry %d = %q/%d/%d, want %q/%d/%d", i, g.Title, g.Level, *g.PrintedPage, w.title, w.level, w.page)
		}
		if g.ResolvedPageIndex != nil {
			t.Errorf("entry %d resolved before offset resolution", i)
		}
	}
}

func TestFromLinesArabic(t *testing.T) {
	text := strings.Join([]string{
		"فهرس المحتويات",
		"المقدمة ........ ٥",
		"الباب الأول: في العقائد ........ ١٣",
		"المبحث الأول ........ ١٥",
		"٢٢ المطلب الثاني",
		"الفصل الثاني",
		"٤٠",
		"الخاتمة ....... ۹۸",
	}, "\n")
	got := NewTocPageExtractor(DefaultConfig()).FromLines(text)

	if pages := printed(got); len(pages) != 6 || pages[3] != 22 || pages[4] != 40 || pages[5] != 98 {
		t.Fatalf("printed pages = %v", pages)
	}
	levels := []int{1, 1, 2, 3, 1, 1}
	for i, e := range got {
		if e.Level != levels[i] {
			t.Errorf("%q level = %d, want %d", e.Title, e.Level, levels[i])
		}
	}
}

func TestFromLinesStopsAtBackwardJump(t *testing.T) {
	text := strings.Join([]string{
		"One .... 1", "Two .... 4", "Three .... 9", "Four .... 15", "Five .... 22",
		"Figure caption .... 3",
		"Six .... 30",
	}, "\n")
	got := NewTocPageExtractor(DefaultConfig()).FromLines(text)
	if len(got) != 5 {
		t.Errorf("got %d entries, want 5", len(got))
	}
}

func TestFromLinesBelowMinimum(t *testing.T) {
	text := "Contents\nOne .... 1\nTwo .... 4\nThree .... 9"
	if got := NewTocPageExtractor(DefaultConfig()).FromLines(text); got != nil {
		t.Errorf("got %+v, want nil", got)
	}
}

func TestFromLinesSkipsNoise(t *testing.T) {
	text := strings.Join([]string{
		"book_final.indd 7",
		"12/03/2019 10:42:17",
		"© Dar al-Kutub",
		"* * *",
		"One .... 1", "Two .... 4", "Three .... 9", "Four .... 15", "Five .... 22",
		"Chapter 3",
	}, "\n")
	got := NewTocPageExtractor(DefaultConfig()).FromLines(text)
	if pages := printed(got); len(pages) != 5 || pages[0] != 1 {
		t.Errorf("printed pages = %v, want the five real entries", pages)
	}
}

func tableOf(rows ...[]string) Table {
	t := Table{RowCount: len(rows)}
	for r, row := range rows {
		t.ColumnCount = max(t.ColumnCount, len(row))
		for c, cell := range row {
			t.Cells = append(t.Cells, TableCell{RowIndex: r, ColumnIndex: c, Content: cell})
		}
	}
	return t
}

func TestFromTable(t *testing.T) {
	table := tableOf(
		[]string{"الموضوع", "", "الصفحة"},
		[]string{"المقدمة", "", "٣"},
		[]string{"الفصل الأول", "١", "١٠"},
		[]string{"الفصل الثاني", "٢", "٢٥"},
		[]string{"الفصل الثالث", "٣", "٤٠"},
		[]string{"الخاتمة", "", "٧٧"},
	)
	got := NewTocPageExtractor(DefaultConfig()).FromTable(table)
	if pages := printed(got); len(pages) != 5 || pages[1] != 10 || pages[4] != 77 {
		t.Fatalf("printed pages = %v", pages)
	}
	if got[1].Title != "الفصل الأول" {
		t.Errorf("title = %q, want the chapter title", got[1].Title)
	}
}

func TestFromTablePageInFirstColumn(t *testing.T) {
	table := tableOf(
		[]string{"3", "Foreword"},
		[]string{"7", "Origins"},
		[]string{"19", "Growth"},
		[]string{"33", "Decline"},
		[]string{"50", "Index"},
	)
	if got := NewTocPageExtractor(DefaultConfig()).FromTable(table); len(got) != 5 {
		t.Errorf("got %d entries, want 5", len(got))
	}
}

func TestFromTableTooFewRows(t *testing.T) {
	table := tableOf(
		[]string{"Revenue", "2019"},
		[]string{"Costs", "2020"},
		[]string{"Profit", "2021"},
	)
	if got := NewTocPageExtractor(DefaultConfig()).FromTable(table); got != nil {
		t.Errorf("got %+v, want nil", got)
	}
}

func TestExtractPrefersTables(t *testing.T) {
	table := tableOf(
		[]string{"Alpha", "1"}, []string{"Beta", "2"}, []string{"Gamma", "3"}, []string{"Delta", "4"}, []string{"Epsilon", "5"},
	)
	text := "One .... 10\nTwo .... 20\nThree .... 30\nFour .... 40\nFive .... 50"
	got := NewTocPageExtractor(DefaultConfig()).Extract(TocPage{Text: text, Tables: []Table{table}})
	if len(got) == 0 || *got[0].PrintedPage != 1 {
		t.Errorf("got %v, want table entries", printed(got))
	}
}

func TestContinue(t *testing.T) {
	x := NewTocPageExtractor(DefaultConfig())
	next := TocPage{Text: "Six .... 30\nSeven .... 41"}
	if got := x.Continue(next, 22); len(got) != 2 {
		t.Errorf("got %d continuation entries, want 2", len(got))
	}
	if got := x.Continue(next, 35); got != nil {
		t.Errorf("backward continuation accepted: %v", printed(got))
	}
	if got := x.Continue(TocPage{Text: englishPage}, 22); got != nil {
		t.Errorf("body page accepted as continuation: %v", printed(got))
	}
}

func TestHasTocHeader(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"CONTENTS\nOne 1", true},
		{"\n\nجدول المحتويات:\n", true},
		{"فِهْرِس", true},
		{"فهرس الأعلام 250", false},
		{"Contents of the archive are described below", false},
	}
	for _, tt := range tests {
		if got := HasTocHeader(tt.text); got != tt.want {
			t.Errorf("HasTocHeader(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestTocCandidates(t *testing.T) {
	text := func(i int) string {
		if i == 7 {
			return "Contents"
		}
		return ""
	}
	windows := tocCandidates(DefaultConfig(), 100, text)
	if len(windows) != 2 {
		t.Fatalf("got %d windows, want 2", len(windows))
	}
	if windows[0][0] != 7 || len(windows[0]) != 10 {
		t.Errorf("front window = %v, want header page first of [2,12)", windows[0])
	}
	if windows[1][0] != 90 || windows[1][9] != 99 {
		t.Errorf("tail window = %v, want [90,100)", windows[1])
	}

	short := tocCandidates(DefaultConfig(), 8, text)
	if len(short) != 1 || len(short[0]) != 6 {
		t.Errorf("short document windows = %v, want only [2,8)", short)
	}
}
