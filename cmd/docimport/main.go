// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/poiesic/docimport"
	"github.com/poiesic/docimport/config"
	"github.com/poiesic/docimport/ingestion"
	"github.com/poiesic/docimport/scan"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// closeLog releases the log file opened by setupLogger.
var closeLog = func() error { return nil }

func newApp() *cli.App {
	return &cli.App{
		Name:  "docimport",
		Usage: "Bulk import legacy .doc and .docx documents",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Also write JSON logs to this file",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML configuration file",
			},
		},
		Before: setupLogger,
		After: func(c *cli.Context) error {
			return closeLog()
		},
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Scan, extract and load all documents",
				Action: runCommand,
				Flags:  append(sourceFlags(), runFlags()...),
			},
			{
				Name:   "scan",
				Usage:  "List the documents a run would import without changing anything",
				Action: scanCommand,
				Flags:  sourceFlags(),
			},
			{
				Name:   "check",
				Usage:  "Verify decoders are installed and the destination is reachable",
				Action: checkCommand,
				Flags:  append(sourceFlags(), runFlags()...),
			},
		},
	}
}

func sourceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:    "source",
			Aliases: []string{"s"},
			Usage:   "Source location as label=directory (repeat with one form, --source or -s)",
		},
	}
}

func runFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:    "yes",
			Aliases: []string{"y"},
			Usage:   "Skip the confirmation prompt",
		},
		&cli.IntFlag{
			Name:  "batch-size",
			Usage: "Number of records committed together",
			Value: 100,
		},
		&cli.IntFlag{
			Name:  "workers",
			Usage: "Extraction workers (0 = half the CPUs)",
		},
		&cli.IntFlag{
			Name:  "report-interval",
			Usage: "Report progress every N documents",
			Value: 100,
		},
		&cli.DurationFlag{
			Name:  "extract-timeout",
			Usage: "Time limit for decoding one .doc file",
		},
		&cli.StringFlag{
			Name:  "antiword",
			Usage: "Path to the antiword executable",
		},
		&cli.StringFlag{
			Name:  "error-log-dir",
			Usage: "Directory for the failure CSV",
		},
		&cli.StringFlag{
			Name:  "reindex-url",
			Usage: "Application base URL to request a search index rebuild from",
		},
		&cli.StringFlag{
			Name:    "destination",
			Aliases: []string{"d"},
			Usage:   "Destination kind (badger, postgres, api, script)",
		},
		&cli.StringFlag{
			Name:  "db",
			Usage: "Path to BadgerDB database directory",
		},
		&cli.StringFlag{
			Name:  "dsn",
			Usage: "PostgreSQL connection string",
		},
		&cli.BoolFlag{
			Name:  "ensure-schema",
			Usage: "Create the songs and edit_count tables when missing",
		},
		&cli.StringFlag{
			Name:  "api-url",
			Usage: "Application base URL for API delivery",
		},
		&cli.StringFlag{
			Name:  "pg-host",
			Usage: "psql host for script delivery",
		},
		&cli.IntFlag{
			Name:  "pg-port",
			Usage: "psql port for script delivery",
		},
		&cli.StringFlag{
			Name:  "pg-user",
			Usage: "psql user for script delivery",
		},
		&cli.StringFlag{
			Name:  "pg-database",
			Usage: "psql database for script delivery",
		},
		&cli.StringFlag{
			Name:    "pg-password",
			Usage:   "psql password for script delivery",
			EnvVars: []string{"PGPASSWORD"},
		},
		&cli.BoolFlag{
			Name:  "keep-script",
			Usage: "Keep the generated SQL script after execution",
		},
	}
}

// parseSources turns label=dir pairs into a location map.
func parseSources(values []string) (map[string]string, error) {
	locations := make(map[string]string, len(values))
	for _, v := range values {
		label, dir, ok := strings.Cut(v, "=")
		label, dir = strings.TrimSpace(label), strings.TrimSpace(dir)
		if !ok || label == "" || dir == "" {
			return nil, fmt.Errorf("invalid source %q: expected label=directory", v)
		}
		locations[label] = dir
	}
	return locations, nil
}

// loadConfig reads the optional config file and overlays any flags the user set.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if path := c.String("config"); path != "" {
		loaded, err := config.LoadFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if c.IsSet("source") {
		locations, err := parseSources(c.StringSlice("source"))
		if err != nil {
			return nil, err
		}
		cfg.SourceLocations = locations
	}

	setInt := func(name string, dst *int) {
		if c.IsSet(name) {
			*dst = c.Int(name)
		}
	}
	setString := func(name string, dst *string) {
		if c.IsSet(name) {
			*dst = c.String(name)
		}
	}
	setBool := func(name string, dst *bool) {
		if c.IsSet(name) {
			*dst = c.Bool(name)
		}
	}

	setBool("yes", &cfg.ConfirmOverride)
	setInt("batch-size", &cfg.BatchSize)
	setInt("workers", &cfg.Workers)
	setInt("report-interval", &cfg.ReportInterval)
	if c.IsSet("extract-timeout") {
		cfg.ExtractTimeout = c.Duration("extract-timeout")
	}
	setString("antiword", &cfg.AntiwordPath)
	setString("error-log-dir", &cfg.ErrorLogDir)
	setString("reindex-url", &cfg.ReindexURL)

	d := &cfg.Destination
	setString("destination", &d.Kind)
	setString("db", &d.Path)
	setString("dsn", &d.DSN)
	setBool("ensure-schema", &d.EnsureSchema)
	setString("api-url", &d.URL)
	setString("pg-host", &d.Host)
	setInt("pg-port", &d.Port)
	setString("pg-user", &d.User)
	setString("pg-database", &d.Database)
	setString("pg-password", &d.Password)
	setBool("keep-script", &d.KeepScript)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func runCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	im, err := docimport.Open(cfg, docimport.WithLogger(slog.Default()))
	if err != nil {
		return fmt.Errorf("failed to open destination: %w", err)
	}
	defer im.Close()

	out := c.App.Writer
	_, err = im.Run(ctx, out)
	return runOutcome(out, err)
}

// runOutcome reports how a run ended. Only failures that stopped the import
// from starting or completing are returned.
func runOutcome(out io.Writer, err error) error {
	switch {
	case errors.Is(err, ingestion.ErrCancelled):
		fmt.Fprintln(out, "Import cancelled")
		return nil
	case errors.Is(err, ingestion.ErrNonInteractive):
		fmt.Fprintln(out, "Import cancelled: running in non-interactive mode, use --yes to confirm")
		return nil
	case errors.Is(err, ingestion.ErrNoCandidates):
		fmt.Fprintln(out, "No documents found to import")
		return nil
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(out, "Import interrupted")
		return nil
	case err != nil:
		return fmt.Errorf("import failed: %w", err)
	}
	return nil
}

func scanCommand(c *cli.Context) error {
	locations, err := parseSources(c.StringSlice("source"))
	if err != nil {
		return err
	}
	if path := c.String("config"); path != "" && !c.IsSet("source") {
		cfg, err := config.LoadFile(path)
		if err != nil {
			return err
		}
		locations = cfg.SourceLocations
	}
	if len(locations) == 0 {
		return errors.New("at least one --source label=directory is required")
	}

	scanner := scan.New(locations, slog.Default())
	items := scanner.Collect()
	out := c.App.Writer
	for _, item := range items {
		fmt.Fprintf(out, "%s\t%s\n", item.Label, item.Path)
	}

	breakdown := scan.Breakdown(items)
	fmt.Fprintf(out, "\nFound %d documents\n", len(items))
	for _, label := range scanner.Labels() {
		fmt.Fprintf(out, "  %-20s %d\n", label, breakdown[label])
	}
	return nil
}

func checkCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	im, err := docimport.Open(cfg, docimport.WithLogger(slog.Default()))
	if err != nil {
		return fmt.Errorf("failed to open destination: %w", err)
	}
	defer im.Close()

	if err := im.Check(c.Context); err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, "All checks passed")
	return nil
}

// setupLogger installs the default logger. Flags win over the config file.
func setupLogger(c *cli.Context) error {
	levelStr, logFile := c.String("log-level"), c.String("log-file")
	if path := c.String("config"); path != "" {
		if cfg, err := config.LoadFile(path); err == nil {
			if !c.IsSet("log-level") && cfg.LogLevel != "" {
				levelStr = cfg.LogLevel
			}
			if !c.IsSet("log-file") {
				logFile = cfg.LogFile
			}
		}
	}

	levelStr = strings.ToLower(levelStr)
	level, err := config.ParseLevel(levelStr)
	if err != nil {
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger, cleanup := config.SetupLogger(logFile, level)
	slog.SetDefault(logger)
	closeLog = cleanup
	return nil
}
