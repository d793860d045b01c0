package azure

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nevindra/kitabi"
)

const succeededBody = `{
  "status": "succeeded",
  "analyzeResult": {
    "modelId": "prebuilt-layout",
    "pages": [
      {"pageNumber": 3, "width": 8.5, "height": 11, "unit": "inch",
       "lines": [{"content": "Chapter Two", "polygon": [1,1,4,1,4,1.5,1,1.5]}, {"content": "body", "polygon": [1,2,2,2,2,2.2,1,2.2]}]},
      {"pageNumber": 2, "width": 8.5, "height": 11, "unit": "inch",
       "lines": [{"content": "المحتويات"}]}
    ],
    "paragraphs": [
      {"role": "sectionHeading", "content": "Chapter Two", "boundingRegions": [{"pageNumber": 3, "polygon": [1,1,4,1,4,1.5,1,1.5]}]},
      {"content": "body", "boundingRegions": [{"pageNumber": 3, "polygon": [1,2,2,2,2,2.2,1,2.2]}]},
      {"content": "orphan"}
    ],
    "tables": [
      {"rowCount": 1, "columnCount": 2, "boundingRegions": [{"pageNumber": 2}],
       "cells": [{"rowIndex": 0, "columnIndex": 0, "content": "المقدمة"}, {"rowIndex": 0, "columnIndex": 1, "content": "٥"}]}
    ]
  }
}`

type fakeService struct {
	t         *testing.T
	pending   int // polls answered with "running" before success
	final     string
	submitErr int
	polls     atomic.Int32

	mu    sync.Mutex
	query string
	body  []byte
}

func (s *fakeService) request() (string, []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query, s.body
}

func (s *fakeService) handler(base func() string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Ocp-Apim-Subscription-Key") != "test-key" {
			s.t.Errorf("unexpected key header %q", r.Header.Get("Ocp-Apim-Subscription-Key"))
		}
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/documentintelligence/documentModels/prebuilt-layout:analyze":
			body, _ := io.ReadAll(r.Body)
			s.mu.Lock()
			s.query, s.body = r.URL.RawQuery, body
			s.mu.Unlock()
			if s.submitErr != 0 {
				w.Header().Set("Retry-After", "7")
				http.Error(w, `{"error":{"code":"Throttled"}}`, s.submitErr)
				return
			}
			w.Header().Set("Operation-Location", base()+"/operations/1")
			w.WriteHeader(http.StatusAccepted)
		case r.Method == http.MethodGet && r.URL.Path == "/operations/1":
			n := int(s.polls.Add(1))
			w.Header().Set("Content-Type", "application/json")
			if n <= s.pending {
				io.WriteString(w, `{"status":"running"}`)
				return
			}
			io.WriteString(w, s.final)
		default:
			s.t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			http.NotFound(w, r)
		}
	})
}

func newTestClient(t *testing.T, svc *fakeService, opts ...Option) *Client {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(svc.handler(func() string { return srv.URL }))
	t.Cleanup(srv.Close)
	c, err := New(srv.URL+"/", "test-key", append([]Option{WithPollInterval(time.Millisecond)}, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNewValidates(t *testing.T) {
	if _, err := New("", "k"); err == nil {
		t.Error("expected error for empty endpoint")
	}
	if _, err := New("https://x.cognitiveservices.azure.com", ""); err == nil {
		t.Error("expected error for empty key")
	}
	c, err := New("https://x.cognitiveservices.azure.com/", "k")
	if err != nil {
		t.Fatal(err)
	}
	if c.Name() != "azure" || c.Model() != defaultModel {
		t.Errorf("name/model = %q/%q", c.Name(), c.Model())
	}
}

func TestAnalyze(t *testing.T) {
	svc := &fakeService{t: t, pending: 2, final: succeededBody}
	c := newTestClient(t, svc)

	a, err := c.Analyze(context.Background(), []byte("%PDF-1.7"), kitabi.PageRange{Start: 1, End: 3})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	query, body := svc.request()
	if string(body) != "%PDF-1.7" {
		t.Errorf("body = %q", body)
	}
	if !strings.Contains(query, "api-version=2024-11-30") || !strings.Contains(query, "pages=2-3") {
		t.Errorf("query = %q", query)
	}
	if got := svc.polls.Load(); got != 3 {
		t.Errorf("polls = %d, want 3", got)
	}

	if a.Model != "prebuilt-layout" || len(a.Pages) != 2 {
		t.Fatalf("analysis = %+v", a)
	}
	if a.Pages[0].Index != 1 || a.Pages[1].Index != 2 {
		t.Errorf("pages not sorted to 0-based indices: %d, %d", a.Pages[0].Index, a.Pages[1].Index)
	}
	p, ok := a.Page(2)
	if !ok {
		t.Fatal("page 2 missing")
	}
	if p.Text() != "Chapter Two\nbody" {
		t.Errorf("text = %q", p.Text())
	}
	if len(p.Paragraphs) != 2 || p.Paragraphs[0].Role != kitabi.RoleSectionHeading {
		t.Errorf("paragraphs = %+v", p.Paragraphs)
	}
	toc, _ := a.Page(1)
	if len(toc.Tables) != 1 || toc.Tables[0].Rows()[0][1] != "٥" {
		t.Errorf("tables = %+v", toc.Tables)
	}
}

func TestAnalyzeWholeDocumentOmitsPages(t *testing.T) {
	svc := &fakeService{t: t, final: succeededBody}
	c := newTestClient(t, svc)
	if _, err := c.Analyze(context.Background(), []byte("x"), kitabi.PageRange{}); err != nil {
		t.Fatal(err)
	}
	if query, _ := svc.request(); strings.Contains(query, "pages=") {
		t.Errorf("query = %q, want no pages param", query)
	}
}

func TestAnalyzeSubmitError(t *testing.T) {
	svc := &fakeService{t: t, submitErr: http.StatusTooManyRequests}
	c := newTestClient(t, svc)

	_, err := c.Analyze(context.Background(), []byte("x"), kitabi.PageRange{})
	var he *kitabi.ErrHTTP
	if !errors.As(err, &he) {
		t.Fatalf("err = %v, want *ErrHTTP", err)
	}
	if he.Status != http.StatusTooManyRequests || he.RetryAfter != 7*time.Second {
		t.Errorf("ErrHTTP = %+v", he)
	}
	if !strings.Contains(he.Body, "Throttled") {
		t.Errorf("body = %q", he.Body)
	}
}

func TestAnalyzeOperationFailed(t *testing.T) {
	svc := &fakeService{t: t, final: `{"status":"failed","error":{"code":"InvalidContent","message":"corrupt"}}`}
	c := newTestClient(t, svc)

	_, err := c.Analyze(context.Background(), []byte("x"), kitabi.PageRange{})
	if !errors.Is(err, kitabi.ErrCloudUnavailable) {
		t.Fatalf("err = %v, want ErrCloudUnavailable", err)
	}
	if !strings.Contains(err.Error(), "InvalidContent: corrupt") {
		t.Errorf("err = %v", err)
	}
}

func TestAnalyzeTimeout(t *testing.T) {
	svc := &fakeService{t: t, pending: 1 << 30, final: succeededBody}
	c := newTestClient(t, svc, WithTimeout(30*time.Millisecond))

	_, err := c.Analyze(context.Background(), []byte("x"), kitabi.PageRange{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}

func TestPagesParam(t *testing.T) {
	tests := []struct {
		r    kitabi.PageRange
		want string
	}{
		{kitabi.PageRange{}, ""},
		{kitabi.PageRange{Start: 0, End: 1}, "1"},
		{kitabi.PageRange{Start: 3, End: 13}, "4-13"},
		{kitabi.PageRange{Start: 5, End: 5}, ""},
	}
	for _, tt := range tests {
		if got := pagesParam(tt.r); got != tt.want {
			t.Errorf("pagesParam(%+v) = %q, want %q", tt.r, got, tt.want)
		}
	}
}
