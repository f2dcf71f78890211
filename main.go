package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/surfcore/internal/memctl"
	"github.com/dtnitsch/surfcore/internal/surf"
	"github.com/dtnitsch/surfcore/pkg/help"
)

func main() {
	app := &cli.App{
		Name:  "surfcore",
		Usage: "Paced browser automation with per-site learning",
		Commands: []*cli.Command{
			{
				Name:   "browse",
				Usage:  "Fetch and extract a list of URLs through pooled browser sessions",
				Action: surf.BrowseAction,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "urls",
						Usage: "comma-separated URLs to browse",
					},
					&cli.StringFlag{
						Name:  "config",
						Usage: "path to yaml config file",
					},
					&cli.IntFlag{
						Name:  "concurrency",
						Value: 3,
						Usage: "parallel sessions, clamped to the session cap",
					},
					&cli.StringFlag{
						Name:  "selector",
						Usage: "CSS selector to scope extraction",
					},
					&cli.StringFlag{
						Name:  "category",
						Usage: "category hint (news, forum, ecommerce, financial, blog, general)",
					},
					&cli.StringFlag{
						Name:  "wait",
						Usage: "wait policy (load, domready, networkidle, selector:<css>)",
					},
					&cli.StringFlag{
						Name:  "engine",
						Usage: "browser engine (rod, static)",
					},
					&cli.BoolFlag{
						Name:  "headful",
						Usage: "run the browser with a visible window",
					},
					&cli.StringFlag{
						Name:  "timeout",
						Usage: "per-operation timeout, e.g. 45s",
					},
					&cli.StringFlag{
						Name:  "screenshot",
						Usage: "directory to save full-page screenshots",
					},
					&cli.BoolFlag{
						Name:  "no-chunks",
						Usage: "skip semantic chunking",
					},
					&cli.BoolFlag{
						Name:  "no-dedup",
						Usage: "skip duplicate detection",
					},
					&cli.StringFlag{
						Name:  "format",
						Value: "yaml",
						Usage: "output format (yaml, json)",
					},
					&cli.StringFlag{
						Name:  "fields",
						Usage: "comma-separated result fields to keep",
					},
					&cli.BoolFlag{
						Name:  "terse",
						Usage: "compact single-letter field names",
					},
					&cli.BoolFlag{
						Name:  "quiet",
						Usage: "errors only on stderr",
					},
				},
			},
			{
				Name:   "status",
				Usage:  "Show pool, pacing, memory and system state",
				Action: surf.StatusAction,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "config",
						Usage: "path to yaml config file",
					},
					&cli.StringFlag{
						Name:  "format",
						Usage: "output format (table, yaml, json)",
					},
					&cli.BoolFlag{
						Name:  "quiet",
						Usage: "errors only on stderr",
					},
				},
			},
			{
				Name:   "hosts",
				Usage:  "List learned host patterns",
				Action: memctl.HostsAction,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "config",
						Usage: "path to yaml config file",
					},
					&cli.StringFlag{
						Name:  "by",
						Value: "access",
						Usage: "ranking (access, success)",
					},
					&cli.IntFlag{
						Name:  "limit",
						Value: 20,
						Usage: "max hosts to list",
					},
				},
			},
			{
				Name:      "host",
				Usage:     "Show the learned pattern for one host",
				ArgsUsage: "<name>",
				Action:    memctl.HostAction,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "config",
						Usage: "path to yaml config file",
					},
				},
			},
			{
				Name:  "quickstart",
				Usage: "Print the quick start reference",
				Action: func(c *cli.Context) error {
					fmt.Print(help.ColdstartYAML)
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
