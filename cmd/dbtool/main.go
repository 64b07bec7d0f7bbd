package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/PortNumber53/landing-intake/backend/internal/config"
	"github.com/PortNumber53/landing-intake/backend/internal/logging"
	"github.com/PortNumber53/landing-intake/backend/internal/migrations"
	"github.com/PortNumber53/landing-intake/backend/internal/store"
)

func main() {
	// Load environment variables
	_ = godotenv.Load(
		"../.env",
		".env",
	)

	app := &cli.App{
		Name:  "dbtool",
		Usage: "manage the intake request log database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Postgres DSN (defaults to DATABASE_URL)",
				EnvVars: []string{"DATABASE_URL"},
			},
		},
		Action: upCommand,
		Commands: []*cli.Command{
			{
				Name:   "up",
				Usage:  "apply pending migrations",
				Action: upCommand,
			},
			{
				Name:   "fix",
				Usage:  "clear a dirty migration state",
				Action: fixCommand,
			},
			{
				Name:      "force",
				Usage:     "record a schema version without running migrations",
				ArgsUsage: "<version>",
				Action:    forceCommand,
			},
			{
				Name:   "status",
				Usage:  "show the current schema version",
				Action: statusCommand,
			},
			{
				Name:  "requests",
				Usage: "list recent requests",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Value: 50,
						Usage: "maximum number of rows",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "output as JSON",
					},
				},
				Action: requestsCommand,
			},
			{
				Name:   "stats",
				Usage:  "per-endpoint request counts and latency",
				Flags:  []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "output as JSON"}},
				Action: statsCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func openDB(c *cli.Context) (*sql.DB, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}

	dsn := c.String("database-url")
	if dsn == "" {
		return nil, nil, cli.Exit("DATABASE_URL is required", 1)
	}

	db, err := store.Open(c.Context, dsn)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("connected", zap.String("target", store.DescribeDSN(dsn)))
	return db, logger, nil
}

func upCommand(c *cli.Context) error {
	db, logger, err := openDB(c)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migrations.Up(db, logger); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

func fixCommand(c *cli.Context) error {
	db, logger, err := openDB(c)
	if err != nil {
		return err
	}
	defer db.Close()

	logger.Info("attempting to fix dirty database")
	if err := migrations.FixDirtyDatabase(db); err != nil {
		return fmt.Errorf("failed to fix dirty database: %w", err)
	}
	logger.Info("database fixed")
	return nil
}

func forceCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: dbtool force <version>", 1)
	}
	v, err := strconv.ParseUint(c.Args().First(), 10, 32)
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid version number: %s", c.Args().First()), 1)
	}

	db, logger, err := openDB(c)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migrations.ForceVersion(db, uint(v)); err != nil {
		return fmt.Errorf("failed to force version: %w", err)
	}
	logger.Info("database version forced", zap.Uint64("version", v))
	return nil
}

func statusCommand(c *cli.Context) error {
	db, _, err := openDB(c)
	if err != nil {
		return err
	}
	defer db.Close()

	status, err := migrations.CurrentStatus(db)
	if err != nil {
		return err
	}
	if status.Fresh {
		fmt.Println("no migrations applied")
		return nil
	}
	fmt.Printf("version %d (dirty: %t)\n", status.Version, status.Dirty)
	return nil
}

func requestsCommand(c *cli.Context) error {
	db, _, err := openDB(c)
	if err != nil {
		return err
	}
	defer db.Close()

	s, err := store.New(db)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Context, 10*time.Second)
	defer cancel()

	requests, err := s.ListRequests(ctx, c.Int("limit"))
	if err != nil {
		return err
	}
	if c.Bool("json") {
		return writeJSON(requests)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tMETHOD\tENDPOINT\tSTATUS\tMS\tREQUEST ID")
	for _, r := range requests {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
			r.CreatedAt.Format(time.RFC3339), r.Method, r.Endpoint, r.StatusCode, r.ResponseTimeMs, r.RequestID)
	}
	return w.Flush()
}

func statsCommand(c *cli.Context) error {
	db, _, err := openDB(c)
	if err != nil {
		return err
	}
	defer db.Close()

	s, err := store.New(db)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Context, 10*time.Second)
	defer cancel()

	metrics, err := s.EndpointMetrics(ctx)
	if err != nil {
		return err
	}
	if c.Bool("json") {
		return writeJSON(metrics)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ENDPOINT\tTOTAL\tOK\tERRORS\tAVG MS\tLAST")
	for _, m := range metrics {
		last := "-"
		if m.LastRequestAt != nil {
			last = m.LastRequestAt.Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%.1f\t%s\n",
			m.Endpoint, m.TotalRequests, m.SuccessRequests, m.ErrorRequests, m.AvgResponseTimeMs, last)
	}
	return w.Flush()
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
