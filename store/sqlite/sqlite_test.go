package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/nevindra/kitabi"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s := New(filepath.Join(t.TempDir(), "test.db"))
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func intp(n int) *int { return &n }

func testRecord(id string, createdAt int64) kitabi.Record {
	text, bounds := kitabi.AssembleText([]string{"cover", "contents page", "", "chapter one body text", "chapter two body"})
	return kitabi.Record{
		ID:        id,
		Name:      "book.pdf",
		PageCount: 5,
		Classification: kitabi.DocumentClassification{
			SampleSize: 5, AvgCharsPerPage: 12.6, ThresholdUsed: 100,
		},
		Verdict:  kitabi.LanguageVerdict{Language: kitabi.English, Confidence: 0.97, RawCode: "en", SampleCharCount: 60},
		Language: kitabi.English,
		Route: kitabi.Route{
			Path:           []kitabi.RouteState{kitabi.StateSampling, kitabi.StateRouting, kitabi.StateExtracting, kitabi.StateDone},
			LanguageSource: kitabi.SourceModel,
		},
		Extraction: kitabi.ExtractionResult{
			Language: kitabi.English, FullText: text, PageBoundaries: bounds,
			Method: kitabi.MethodLocal, PagesExtracted: 5,
		},
		TocEntries: []kitabi.TocEntry{
			{Title: "Chapter One", Level: 1, PrintedPage: intp(1), ResolvedPageIndex: intp(3)},
			{Title: "Chapter Two", Level: 1, PrintedPage: intp(2), ResolvedPageIndex: intp(4)},
		},
		Sections: []kitabi.Section{
			{Title: "Chapter One", Level: 1, PageStart: 3, PageEnd: 3},
			{Title: "Chapter Two", Level: 1, PageStart: 4, PageEnd: 4},
		},
		StructureSource: kitabi.StructureTocPage,
		Warnings:        []kitabi.Warning{{Kind: kitabi.WarnEntryOutOfRange, Message: "dropped 1 entry"}},
		CreatedAt:       createdAt,
	}
}

func TestInitIdempotent(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "init.db"))
	defer s.Close()
	ctx := context.Background()
	if err := s.Init(ctx); err != nil {
		t.Fatalf("first Init: %v", err)
	}
	if err := s.Init(ctx); err != nil {
		t.Fatalf("second Init: %v", err)
	}
}

func TestSaveAndGetRecord(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	want := testRecord(kitabi.NewID(), 1000)

	if err := s.SaveRecord(ctx, want); err != nil {
		t.Fatalf("SaveRecord: %v", err)
	}
	got, err := s.GetRecord(ctx, want.ID)
	if err != nil {
		t.Fatalf("GetRecord: %v", err)
	}

	if got.Name != want.Name || got.PageCount != 5 || got.Language != kitabi.English || got.CreatedAt != 1000 {
		t.Errorf("metadata = %+v", got)
	}
	if got.Extraction.FullText != want.Extraction.FullText {
		t.Errorf("full text = %q, want %q", got.Extraction.FullText, want.Extraction.FullText)
	}
	if got.PageText(2) != "" || got.PageText(3) != "chapter one body text" {
		t.Errorf("page texts = %q / %q", got.PageText(2), got.PageText(3))
	}
	if got.Extraction.Method != kitabi.MethodLocal || got.Extraction.PagesExtracted != 5 {
		t.Errorf("extraction = %+v", got.Extraction)
	}
	if len(got.Sections) != 2 || got.Sections[1] != want.Sections[1] {
		t.Errorf("sections = %+v", got.Sections)
	}
	if len(got.TocEntries) != 2 || *got.TocEntries[0].ResolvedPageIndex != 3 {
		t.Errorf("toc entries = %+v", got.TocEntries)
	}
	if !got.HasWarning(kitabi.WarnEntryOutOfRange) {
		t.Errorf("warnings = %+v", got.Warnings)
	}
	if len(got.Route.Path) != 4 || got.Route.LanguageSource != kitabi.SourceModel {
		t.Errorf("route = %+v", got.Route)
	}
	if got.Verdict != want.Verdict || got.Classification != want.Classification {
		t.Errorf("verdict/classification = %+v / %+v", got.Verdict, got.Classification)
	}
	if got.SectionText(got.Sections[0]) != "chapter one body text" {
		t.Errorf("section text = %q", got.SectionText(got.Sections[0]))
	}
}

func TestSaveRecordReplaces(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	rec := testRecord("rec-1", 1)
	if err := s.SaveRecord(ctx, rec); err != nil {
		t.Fatal(err)
	}

	rec.Name = "renamed.pdf"
	rec.Sections = rec.Sections[:1]
	rec.Extraction.FullText, rec.Extraction.PageBoundaries = kitabi.AssembleText([]string{"only page"})
	if err := s.SaveRecord(ctx, rec); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetRecord(ctx, "rec-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "renamed.pdf" || len(got.Sections) != 1 || got.Extraction.FullText != "only page" {
		t.Errorf("replaced record = %+v", got)
	}
	if got.Extraction.PagesExtracted != 1 {
		t.Errorf("pages = %d, want 1", got.Extraction.PagesExtracted)
	}
}

func TestGetRecordNotFound(t *testing.T) {
	s := testStore(t)
	_, err := s.GetRecord(context.Background(), "missing")
	if !errors.Is(err, kitabi.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestListRecords(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	for i := range 3 {
		rec := testRecord(fmt.Sprintf("rec-%d", i), int64(100+i))
		if i == 1 {
			rec.Sections = nil
			rec.Classification.IsScanned = true
			rec.Degraded = true
		}
		if err := s.SaveRecord(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	all, err := s.ListRecords(ctx, 0)
	if err != nil {
		t.Fatalf("ListRecords: %v", err)
	}
	if len(all) != 3 || all[0].ID != "rec-2" || all[2].ID != "rec-0" {
		t.Fatalf("order = %+v", all)
	}
	if all[1].Sections != 0 || !all[1].IsScanned || !all[1].Degraded {
		t.Errorf("summary = %+v", all[1])
	}
	if all[0].Sections != 2 || all[0].Method != kitabi.MethodLocal || all[0].StructureSource != kitabi.StructureTocPage {
		t.Errorf("summary = %+v", all[0])
	}

	limited, err := s.ListRecords(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 2 {
		t.Errorf("limited = %d, want 2", len(limited))
	}
}

func TestDeleteRecord(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	if err := s.SaveRecord(ctx, testRecord("rec-1", 1)); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteRecord(ctx, "rec-1"); err != nil {
		t.Fatalf("DeleteRecord: %v", err)
	}
	if _, err := s.GetRecord(ctx, "rec-1"); !errors.Is(err, kitabi.ErrNotFound) {
		t.Errorf("after delete err = %v", err)
	}
	var n int
	if err := s.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM pages`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("orphan pages = %d", n)
	}
	if err := s.DeleteRecord(ctx, "rec-1"); !errors.Is(err, kitabi.ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestConcurrentSaves(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := range 10 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- s.SaveRecord(ctx, testRecord(fmt.Sprintf("rec-%d", i), int64(i)))
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("SaveRecord: %v", err)
		}
	}
	got, err := s.ListRecords(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 10 {
		t.Errorf("records = %d, want 10", len(got))
	}
}
