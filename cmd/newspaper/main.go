package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"newspaper-pipeline/internal/app"
	"newspaper-pipeline/internal/observability"
)

func main() {
	ctx, stop := app.GracefulShutdown(context.Background(), observability.NewLogger(observability.Options{}))
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "newspaper",
		Usage: "crawl news sites, clean the articles and load them into a database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "configs/config.yaml",
				Usage:   "path to the YAML config",
				EnvVars: []string{"NEWSPAPER_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "sites",
				Usage:  "list configured news sites",
				Action: sitesAction,
			},
			{
				Name:      "extract",
				Usage:     "crawl one site into <uid>_<date>_articles.csv",
				ArgsUsage: "<site>",
				Action:    extractAction,
			},
			{
				Name:      "transform",
				Usage:     "clean a raw article CSV into <name>_cleaned.csv",
				ArgsUsage: "<file>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "newspaper-uid",
						Usage: "newspaper uid (default: file name prefix before '_')",
					},
				},
				Action: transformAction,
			},
			{
				Name:      "load",
				Usage:     "insert a cleaned CSV into the database",
				ArgsUsage: "<file>",
				Action:    loadAction,
			},
			{
				Name:      "pipeline",
				Usage:     "extract, transform and load the given sites (default: all)",
				ArgsUsage: "[site...]",
				Action:    pipelineAction,
			},
		},
	}
}
