package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"newspulse/internal/app"
	"newspulse/internal/config"
	"newspulse/internal/logging"
)

const stopTimeout = 2 * time.Minute

func main() {
	// Optional .env for local development; absence is not an error.
	_ = godotenv.Load()

	cliApp := &cli.App{
		Name:  "newspulse",
		Usage: "Feed ingestion and enrichment pipeline",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the scheduler until interrupted",
				Action: serveCommand,
			},
			{
				Name:   "ingest",
				Usage:  "Run one ingestion cycle and print the report",
				Action: ingestCommand,
			},
			{
				Name:   "seed",
				Usage:  "Create or update the configured sources",
				Action: seedCommand,
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func buildApplication() (*app.Application, error) {
	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)
	return app.New(cfg, logger)
}

func serveCommand(c *cli.Context) error {
	application, err := buildApplication()
	if err != nil {
		return err
	}
	defer application.Close()

	ctx := c.Context
	if err := application.Start(ctx); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	return application.Stop(stopCtx)
}

func ingestCommand(c *cli.Context) error {
	application, err := buildApplication()
	if err != nil {
		return err
	}
	defer application.Close()

	report := application.RunOnce(c.Context)
	if report.Err != nil {
		return report.Err
	}

	for _, src := range report.Sources {
		status := "ok"
		if src.Err != nil {
			status = src.Err.Error()
		}
		fmt.Printf("%-30s fetched=%d stored=%d duplicates=%d dropped=%d failed=%d [%s]\n",
			src.Source, src.Fetched, src.Stored, src.Duplicates, src.Dropped, src.Failed, status)
	}
	fmt.Printf("cycle stored %d items across %d sources in %s\n",
		report.TotalStored(), len(report.Sources), report.Duration.Round(time.Millisecond))
	return nil
}

func seedCommand(c *cli.Context) error {
	application, err := buildApplication()
	if err != nil {
		return err
	}
	defer application.Close()

	return application.SeedSources(c.Context)
}
