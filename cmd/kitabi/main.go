// Command kitabi classifies PDF books, extracts their text through the
// cheapest adequate route and recovers their section outline.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "kitabi:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "kitabi",
		Usage: "classify PDF books and recover their structure",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "config file (default $KITABI_CONFIG or kitabi.toml)"},
			&cli.StringFlag{Name: "log-format", Value: "text", Usage: "log output: text or json"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "debug logging"},
			&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "log errors only"},
			&cli.Float64Flag{Name: "threshold", Usage: "average characters per page below which a document counts as scanned"},
		},
		Commands: []*cli.Command{
			{
				Name:      "classify",
				Usage:     "report scanned/digital and language without extracting",
				ArgsUsage: "FILE...",
				Flags:     []cli.Flag{formatFlag("json", "json, yaml or table")},
				Action:    classifyAction,
			},
			{
				Name:      "process",
				Usage:     "extract one document and recover its sections",
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "offset", Usage: "added to printed TOC page numbers to get page indices"},
					formatFlag("json", "json, yaml, markdown or html"),
					&cli.BoolFlag{Name: "text", Usage: "include section text in markdown and html output"},
					&cli.BoolFlag{Name: "save", Usage: "persist the record in the configured store"},
				},
				Action: processAction,
			},
			{
				Name:      "batch",
				Usage:     "process many documents in parallel",
				ArgsUsage: "FILE...",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "workers", Aliases: []string{"w"}, Usage: "parallel documents (default from config)"},
					&cli.IntFlag{Name: "offset", Usage: "added to printed TOC page numbers to get page indices"},
					&cli.BoolFlag{Name: "save", Usage: "persist records in the configured store"},
				},
				Action: batchAction,
			},
			{
				Name:   "list",
				Usage:  "list stored records, newest first",
				Flags:  []cli.Flag{&cli.IntFlag{Name: "limit", Value: 20}},
				Action: listAction,
			},
			{
				Name:      "show",
				Usage:     "print a stored record",
				ArgsUsage: "ID",
				Flags:     []cli.Flag{formatFlag("json", "json or yaml")},
				Action:    showAction,
			},
			{
				Name:      "export",
				Usage:     "render a stored record's outline",
				ArgsUsage: "ID",
				Flags: []cli.Flag{
					formatFlag("markdown", "markdown or html"),
					&cli.BoolFlag{Name: "text", Usage: "include section text"},
				},
				Action: exportAction,
			},
			{
				Name:      "delete",
				Usage:     "remove a stored record",
				ArgsUsage: "ID",
				Action:    deleteAction,
			},
		},
	}
}

func formatFlag(value, usage string) cli.Flag {
	return &cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: value, Usage: usage}
}
