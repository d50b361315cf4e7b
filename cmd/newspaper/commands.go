package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"newspaper-pipeline/internal/app"
	"newspaper-pipeline/internal/config"
	"newspaper-pipeline/internal/fetcher"
	"newspaper-pipeline/internal/observability"
	"newspaper-pipeline/internal/scraper"
)

// env is everything one command needs; close releases the browser and log file.
type env struct {
	cfg          *config.Config
	logger       *observability.Logger
	orchestrator *app.Orchestrator
	close        func()
}

func setup(c *cli.Context) (*env, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	baseLogger := observability.NewLogger(observability.Options{
		LogPath:    cfg.Observability.LogPath,
		LogLevel:   cfg.Observability.LogLevel,
		MaxSizeMB:  cfg.Observability.MaxSizeMB,
		MaxBackups: cfg.Observability.MaxBackups,
		MaxAgeDays: cfg.Observability.MaxAgeDays,
	})
	logger := baseLogger.With("run_id", uuid.NewString(), "command", c.Command.Name)

	var renderer *fetcher.Renderer
	var rendered scraper.PageSource
	if cfg.Rod.Enabled {
		renderer = fetcher.NewRenderer(cfg, logger)
		rendered = renderer
	}

	o := app.NewOrchestrator(cfg, logger, fetcher.NewFetcher(cfg, logger), rendered, app.OpenRepository(cfg, logger))

	return &env{
		cfg:          cfg,
		logger:       logger,
		orchestrator: o,
		close: func() {
			if renderer != nil {
				if err := renderer.Close(); err != nil {
					logger.Error("Failed to close browser", "error", err.Error())
				}
			}
			_ = baseLogger.Close()
		},
	}, nil
}

func sitesAction(c *cli.Context) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	for _, uid := range cfg.SiteUIDs() {
		site := cfg.Sites[uid]
		fmt.Fprintf(c.App.Writer, "%-20s %-4s %s\n", uid, site.Language, site.URL)
	}
	return nil
}

func extractAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: newspaper extract <site>", 2)
	}

	rt, err := setup(c)
	if err != nil {
		return err
	}
	defer rt.close()

	res, err := rt.orchestrator.Extract(c.Context, c.Args().First())
	if err != nil {
		return err
	}

	fmt.Fprintln(c.App.Writer, res.Output)
	return nil
}

func transformAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: newspaper transform <file>", 2)
	}

	rt, err := setup(c)
	if err != nil {
		return err
	}
	defer rt.close()

	res, err := rt.orchestrator.Transform(c.Args().First(), c.String("newspaper-uid"))
	if err != nil {
		return err
	}

	app.RenderPreview(c.App.Writer, res.Rows, rt.cfg.Normalize.PreviewRows, rt.cfg.Normalize.MaxPreviewChars)
	fmt.Fprintln(c.App.Writer, res.Output)
	return nil
}

func loadAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: newspaper load <file>", 2)
	}

	rt, err := setup(c)
	if err != nil {
		return err
	}
	defer rt.close()

	res, err := rt.orchestrator.Load(c.Context, c.Args().First())
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "%d rows, %d inserted, %d skipped\n", res.Rows, res.Inserted, res.Skipped)
	return nil
}

func pipelineAction(c *cli.Context) error {
	rt, err := setup(c)
	if err != nil {
		return err
	}
	defer rt.close()

	results, err := rt.orchestrator.Pipeline(c.Context, c.Args().Slice())
	for _, res := range results {
		if res.Load != nil {
			fmt.Fprintf(c.App.Writer, "%-20s %d inserted\n", res.Extract.Site, res.Load.Inserted)
		}
	}
	return err
}
