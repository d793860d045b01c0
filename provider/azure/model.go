package azure

import (
	"cmp"
	"slices"

	"github.com/nevindra/kitabi"
)

type operationStatus string

const (
	statusSucceeded  operationStatus = "succeeded"
	statusRunning    operationStatus = "running"
	statusNotStarted operationStatus = "notStarted"
	statusFailed     operationStatus = "failed"
)

type analyzeOperation struct {
	Status operationStatus `json:"status"`
	Error  *serviceError   `json:"error,omitempty"`
	Result analyzeResult   `json:"analyzeResult"`
}

type serviceError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type analyzeResult struct {
	ModelID    string      `json:"modelId"`
	Pages      []page      `json:"pages"`
	Paragraphs []paragraph `json:"paragraphs"`
	Tables     []table     `json:"tables"`
}

type page struct {
	PageNumber int     `json:"pageNumber"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Unit       string  `json:"unit"`
	Lines      []line  `json:"lines"`
}

type line struct {
	Content string    `json:"content"`
	Polygon []float64 `json:"polygon"`
}

type boundingRegion struct {
	PageNumber int       `json:"pageNumber"`
	Polygon    []float64 `json:"polygon"`
}

type paragraph struct {
	Role            string           `json:"role"`
	Content         string           `json:"content"`
	BoundingRegions []boundingRegion `json:"boundingRegions"`
}

type table struct {
	RowCount        int              `json:"rowCount"`
	ColumnCount     int              `json:"columnCount"`
	Cells           []cell           `json:"cells"`
	BoundingRegions []boundingRegion `json:"boundingRegions"`
}

type cell struct {
	Kind        string `json:"kind"`
	RowIndex    int    `json:"rowIndex"`
	ColumnIndex int    `json:"columnIndex"`
	Content     string `json:"content"`
}

// convert maps the service result onto kitabi's layout types. Paragraphs and
// tables are top-level in the response and are attached to the page of
// their first bounding region.
func convert(res analyzeResult, model string) kitabi.Analysis {
	if res.ModelID != "" {
		model = res.ModelID
	}
	out := kitabi.Analysis{Model: model, Pages: make([]kitabi.AnalyzedPage, 0, len(res.Pages))}
	byNumber := make(map[int]int, len(res.Pages))
	for _, p := range res.Pages {
		ap := kitabi.AnalyzedPage{
			Index:  p.PageNumber - 1,
			Width:  p.Width,
			Height: p.Height,
			Unit:   p.Unit,
			Lines:  make([]kitabi.Line, len(p.Lines)),
		}
		for i, l := range p.Lines {
			ap.Lines[i] = kitabi.Line{Content: l.Content, Polygon: l.Polygon}
		}
		byNumber[p.PageNumber] = len(out.Pages)
		out.Pages = append(out.Pages, ap)
	}

	for _, para := range res.Paragraphs {
		if len(para.BoundingRegions) == 0 {
			continue
		}
		br := para.BoundingRegions[0]
		i, ok := byNumber[br.PageNumber]
		if !ok {
			continue
		}
		out.Pages[i].Paragraphs = append(out.Pages[i].Paragraphs, kitabi.Paragraph{
			Role:    kitabi.ParagraphRole(para.Role),
			Content: para.Content,
			Polygon: br.Polygon,
		})
	}

	for _, t := range res.Tables {
		if len(t.BoundingRegions) == 0 {
			continue
		}
		i, ok := byNumber[t.BoundingRegions[0].PageNumber]
		if !ok {
			continue
		}
		kt := kitabi.Table{RowCount: t.RowCount, ColumnCount: t.ColumnCount, Cells: make([]kitabi.TableCell, len(t.Cells))}
		for j, c := range t.Cells {
			kt.Cells[j] = kitabi.TableCell{RowIndex: c.RowIndex, ColumnIndex: c.ColumnIndex, Kind: c.Kind, Content: c.Content}
		}
		out.Pages[i].Tables = append(out.Pages[i].Tables, kt)
	}

	slices.SortStableFunc(out.Pages, func(a, b kitabi.AnalyzedPage) int { return cmp.Compare(a.Index, b.Index) })
	return out
}
