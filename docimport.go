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


package docimport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/poiesic/docimport/config"
	"github.com/poiesic/docimport/core"
	"github.com/poiesic/docimport/extract"
	"github.com/poiesic/docimport/failurelog"
	"github.com/poiesic/docimport/ingestion"
	"github.com/poiesic/docimport/reindex"
	"github.com/poiesic/docimport/scan"
	"github.com/poiesic/docimport/storage"
	"github.com/poiesic/docimport/storage/api"
	"github.com/poiesic/docimport/storage/badger"
	"github.com/poiesic/docimport/storage/postgres"
	"github.com/poiesic/docimport/storage/script"
)

// Importer wires the scanner, extractor and destination described by a Config.
type Importer struct {
	cfg        *config.Config
	scanner    *scan.Scanner
	extractor  *extract.Extractor
	dest       storage.Destination
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures an Importer.
type Option func(*importerOptions)

type importerOptions struct {
	runner     extract.CommandRunner
	httpClient *http.Client
	logger     *slog.Logger
}

// WithRunner sets the command runner used for antiword and psql.
func WithRunner(runner extract.CommandRunner) Option {
	return func(o *importerOptions) {
		o.runner = runner
	}
}

// WithHTTPClient sets the client used for the API destination and reindex calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *importerOptions) {
		o.httpClient = hc
	}
}

// WithLogger sets the logger handed to every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *importerOptions) {
		o.logger = logger
	}
}

// Open validates cfg and opens its destination.
func Open(cfg *config.Config, opts ...Option) (*Importer, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	options := &importerOptions{
		runner: extract.ExecRunner{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.httpClient == nil {
		options.httpClient = &http.Client{Timeout: api.DefaultTimeout}
	}

	dest, err := openDestination(cfg, options)
	if err != nil {
		return nil, err
	}

	antiwordOpts := []extract.AntiwordOption{
		extract.WithCommand(cfg.AntiwordPath),
		extract.WithTimeout(cfg.ExtractTimeout),
	}

	return &Importer{
		cfg:        cfg,
		scanner:    scan.New(cfg.SourceLocations, options.logger),
		extractor:  extract.NewDefault(options.runner, antiwordOpts, extract.WithLogger(options.logger)),
		dest:       dest,
		httpClient: options.httpClient,
		logger:     options.logger,
	}, nil
}

func openDestination(cfg *config.Config, options *importerOptions) (storage.Destination, error) {
	d := cfg.Destination
	switch d.Kind {
	case config.DestinationBadger:
		store, err := badger.Open(d.Path, options.logger)
		if err != nil {
			return nil, err
		}
		return store, nil

	case config.DestinationPostgres:
		store, err := postgres.Open(d.DSN, options.logger)
		if err != nil {
			return nil, err
		}
		if d.EnsureSchema {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := store.EnsureSchema(ctx); err != nil {
				store.Close()
				return nil, err
			}
		}
		return store, nil

	case config.DestinationAPI:
		apiOpts := []api.Option{api.WithHTTPClient(options.httpClient), api.WithLogger(options.logger)}
		if d.Timeout > 0 {
			apiOpts = append(apiOpts, api.WithTimeout(d.Timeout))
		}
		return api.New(d.URL, apiOpts...), nil

	case config.DestinationScript:
		return script.New(script.Config{
			Host:       d.Host,
			Port:       d.Port,
			User:       d.User,
			Database:   d.Database,
			Password:   d.Password,
			Psql:       d.Psql,
			Dir:        d.ScriptDir,
			KeepScript: d.KeepScript,
			Timeout:    d.Timeout,
		}, scriptRunner(options.runner), options.logger), nil

	default:
		return nil, fmt.Errorf("unknown destination kind %q", d.Kind)
	}
}

// scriptRunner defers to the script writer's own exec runner, which carries
// PGPASSWORD, unless a custom runner was injected.
func scriptRunner(runner extract.CommandRunner) extract.CommandRunner {
	if r, ok := runner.(extract.ExecRunner); ok && len(r.Env) == 0 {
		return nil
	}
	return runner
}

// Close closes the destination.
func (im *Importer) Close() error {
	if err := im.dest.Close(); err != nil {
		im.logger.Error("error closing destination", "err", err)
		return err
	}
	return nil
}

// Config returns the validated configuration.
func (im *Importer) Config() *config.Config {
	return im.cfg
}

// Scanner returns the configured scanner.
func (im *Importer) Scanner() *scan.Scanner {
	return im.scanner
}

// Extractor returns the configured extractor.
func (im *Importer) Extractor() *extract.Extractor {
	return im.extractor
}

// Destination returns the opened destination.
func (im *Importer) Destination() storage.Destination {
	return im.dest
}

// Check verifies decoders are installed and the destination answers.
func (im *Importer) Check(ctx context.Context) error {
	var errs []error
	if err := im.extractor.Check(ctx); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ingestion.ErrDecoderUnavailable, err))
	}
	if err := im.dest.Ping(ctx); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ingestion.ErrDestinationUnavailable, err))
	}
	return errors.Join(errs...)
}

// NewPipeline creates a pipeline from the configuration. Options given here
// are applied after the configured ones.
func (im *Importer) NewPipeline(recorder ingestion.FailureRecorder, out io.Writer, opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	base := []ingestion.Option{
		ingestion.WithBatchSize(im.cfg.BatchSize),
		ingestion.WithReportInterval(im.cfg.ReportInterval),
		ingestion.WithLogger(im.logger),
		ingestion.WithProgress(out),
		ingestion.WithReindexURL(im.reindexBase()),
	}
	if im.cfg.Workers > 0 {
		base = append(base, ingestion.WithPoolSize(im.cfg.Workers))
	}
	if im.cfg.ConfirmOverride {
		base = append(base, ingestion.WithConfirmer(ingestion.AutoConfirm{}))
	}
	if im.cfg.ReindexURL != "" {
		base = append(base, ingestion.WithReindexer(reindex.NewHTTPTrigger(im.cfg.ReindexURL, im.httpClient)))
	}
	return ingestion.NewPipeline(im.scanner, im.extractor, im.dest, recorder, append(base, opts...)...)
}

// reindexBase is the application URL shown in the reindex recommendation.
func (im *Importer) reindexBase() string {
	if im.cfg.ReindexURL != "" {
		return im.cfg.ReindexURL
	}
	if im.cfg.Destination.Kind == config.DestinationAPI {
		return im.cfg.Destination.URL
	}
	return ""
}

// Run performs one import, logging failures to a new CSV file in the
// configured error log directory.
func (im *Importer) Run(ctx context.Context, out io.Writer, opts ...ingestion.Option) (*core.RunSummary, error) {
	recorder, err := failurelog.Create(im.cfg.ErrorLogDir, failurelog.DefaultPrefix, time.Now())
	if err != nil {
		return nil, err
	}

	opts = append([]ingestion.Option{ingestion.WithErrorLogPath(recorder.Path())}, opts...)
	pipeline, err := im.NewPipeline(recorder, out, opts...)
	if err != nil {
		recorder.Close()
		os.Remove(recorder.Path())
		return nil, err
	}
	defer pipeline.Release()

	summary, runErr := pipeline.Run(ctx)

	if err := recorder.Close(); err != nil {
		im.logger.Error("error closing failure log", "path", recorder.Path(), "err", err)
	}
	// A run that never started leaves no artifact behind.
	if (summary == nil || summary.Processed() == 0) && recorder.Count() == 0 {
		os.Remove(recorder.Path())
		if summary != nil {
			summary.ErrorLogPath = ""
		}
	}
	return summary, runErr
}
