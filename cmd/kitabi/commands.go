package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/nevindra/kitabi"
)

// withEnv builds the runtime, runs fn, and always releases the runtime.
func withEnv(c *cli.Context, fn func(*env) error) (err error) {
	e, err := newEnv(c)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if cerr := e.close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(e)
}

func readDocument(path string) (kitabi.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return kitabi.Document{}, err
	}
	return kitabi.Document{Name: filepath.Base(path), Content: data}, nil
}

func classifyAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("classify: at least one FILE is required", 2)
	}
	return withEnv(c, func(e *env) error {
		p, err := e.pipeline()
		if err != nil {
			return err
		}
		format := c.String("format")
		tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
		if format == "table" {
			fmt.Fprintln(tw, "FILE\tPAGES\tSCANNED\tAVG CHARS\tLANGUAGE\tCONFIDENCE\tSOURCE\tCLOUD")
		}
		for _, path := range c.Args().Slice() {
			doc, err := readDocument(path)
			if err != nil {
				return err
			}
			cl, err := p.Classify(c.Context, doc.Content)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			if format == "table" {
				fmt.Fprintf(tw, "%s\t%d\t%s\t%.1f\t%s\t%.2f\t%s\t%s\n", doc.Name, cl.PageCount,
					yesNo(cl.Document.IsScanned), cl.Document.AvgCharsPerPage, orDash(string(cl.Language)),
					cl.Verdict.Confidence, orDash(string(cl.Route.LanguageSource)), yesNo(cl.NeedsCloud))
				continue
			}
			out := struct {
				File string `json:"file"`
				kitabi.Classification
			}{doc.Name, cl}
			if err := encode(c.App.Writer, out, format); err != nil {
				return err
			}
		}
		return tw.Flush()
	})
}

func processAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("process: exactly one FILE is required", 2)
	}
	return withEnv(c, func(e *env) error {
		doc, err := readDocument(c.Args().First())
		if err != nil {
			return err
		}
		p, err := e.pipeline()
		if err != nil {
			return err
		}

		start := time.Now()
		rec, err := p.Process(c.Context, doc, kitabi.WithPageOffset(c.Int("offset")))
		if e.inst != nil {
			e.inst.RecordDocument(c.Context, rec, time.Since(start), err)
		}
		if err != nil {
			return err
		}

		if c.Bool("save") {
			s, err := e.store(c.Context)
			if err != nil {
				return err
			}
			if err := s.SaveRecord(c.Context, rec); err != nil {
				return fmt.Errorf("save record: %w", err)
			}
			e.logger.Info("record saved", "id", rec.ID)
		}
		return writeRecord(c.App.Writer, rec, c.String("format"), c.Bool("text"))
	})
}

func batchAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("batch: at least one FILE is required", 2)
	}
	return withEnv(c, func(e *env) error {
		docs := make([]kitabi.Document, 0, c.NArg())
		for _, path := range c.Args().Slice() {
			doc, err := readDocument(path)
			if err != nil {
				return err
			}
			docs = append(docs, doc)
		}
		p, err := e.pipeline()
		if err != nil {
			return err
		}
		var s kitabi.Store
		if c.Bool("save") {
			if s, err = e.store(c.Context); err != nil {
				return err
			}
		}

		workers := e.cfg.Batch.Workers
		if c.IsSet("workers") {
			workers = c.Int("workers")
		}
		start := time.Now()
		results := kitabi.ProcessBatch(c.Context, p, docs, workers, kitabi.WithPageOffset(c.Int("offset")))

		tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "FILE\tID\tPAGES\tLANGUAGE\tMETHOD\tSECTIONS\tSTATUS")
		failed := 0
		for _, r := range results {
			if e.inst != nil {
				e.inst.RecordDocument(c.Context, r.Record, time.Since(start), r.Err)
			}
			if r.Err != nil {
				failed++
				fmt.Fprintf(tw, "%s\t-\t-\t-\t-\t-\terror: %v\n", r.Name, r.Err)
				continue
			}
			status := "ok"
			if r.Record.Degraded {
				status = "degraded"
			}
			if s != nil {
				if err := s.SaveRecord(c.Context, r.Record); err != nil {
					failed++
					status = "save failed: " + err.Error()
				}
			}
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%d\t%s\n", r.Name, r.Record.ID, r.Record.PageCount,
				r.Record.Language, r.Record.Extraction.Method, len(r.Record.Sections), status)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		if failed > 0 {
			return cli.Exit(fmt.Sprintf("%d of %d documents failed", failed, len(results)), 1)
		}
		return nil
	})
}

func listAction(c *cli.Context) error {
	return withEnv(c, func(e *env) error {
		s, err := e.store(c.Context)
		if err != nil {
			return err
		}
		recs, err := s.ListRecords(c.Context, c.Int("limit"))
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			fmt.Fprintln(c.App.Writer, "No records found")
			return nil
		}
		tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tPAGES\tLANGUAGE\tSCANNED\tMETHOD\tSTRUCTURE\tSECTIONS\tCREATED")
		for _, r := range recs {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\t%s\t%d\t%s\n", r.ID, r.Name, r.PageCount, r.Language,
				yesNo(r.IsScanned), r.Method, r.StructureSource, r.Sections,
				time.Unix(r.CreatedAt, 0).Format("2006-01-02 15:04:05"))
		}
		return tw.Flush()
	})
}

func storedRecord(c *cli.Context, e *env) (kitabi.Record, error) {
	if c.NArg() != 1 {
		return kitabi.Record{}, cli.Exit(c.Command.Name+": exactly one ID is required", 2)
	}
	s, err := e.store(c.Context)
	if err != nil {
		return kitabi.Record{}, err
	}
	return s.GetRecord(c.Context, c.Args().First())
}

func showAction(c *cli.Context) error {
	return withEnv(c, func(e *env) error {
		rec, err := storedRecord(c, e)
		if err != nil {
			return err
		}
		return encode(c.App.Writer, rec, c.String("format"))
	})
}

func exportAction(c *cli.Context) error {
	return withEnv(c, func(e *env) error {
		rec, err := storedRecord(c, e)
		if err != nil {
			return err
		}
		switch f := c.String("format"); f {
		case "markdown", "html":
			return writeRecord(c.App.Writer, rec, f, c.Bool("text"))
		default:
			return cli.Exit(fmt.Sprintf("export: unsupported format %q", f), 2)
		}
	})
}

func deleteAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("delete: exactly one ID is required", 2)
	}
	return withEnv(c, func(e *env) error {
		s, err := e.store(c.Context)
		if err != nil {
			return err
		}
		if err := s.DeleteRecord(c.Context, c.Args().First()); err != nil {
			return err
		}
		e.logger.Info("record deleted", "id", c.Args().First())
		return nil
	})
}
