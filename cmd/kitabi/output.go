package main

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/nevindra/kitabi"
	"github.com/nevindra/kitabi/export"
)

// encode writes v as indented JSON or as YAML.
func encode(w io.Writer, v any, format string) error {
	switch format {
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		return encodeYAML(w, v)
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

// encodeYAML goes through JSON so YAML keys match the json tags.
func encodeYAML(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return err
	}
	return enc.Close()
}

func writeRecord(w io.Writer, rec kitabi.Record, format string, withText bool) error {
	var opts []export.Option
	if withText {
		opts = append(opts, export.WithText(0))
	}
	switch format {
	case "markdown":
		_, err := io.WriteString(w, export.Markdown(rec, opts...))
		return err
	case "html":
		html, err := export.HTML(rec, opts...)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, html)
		return err
	default:
		return encode(w, rec, format)
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
