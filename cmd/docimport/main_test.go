package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/poiesic/docimport/config"
	"github.com/poiesic/docimport/ingestion"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func findCommand(t *testing.T, app *cli.App, name string) *cli.Command {
	t.Helper()
	for _, cmd := range app.Commands {
		if cmd.Name == name {
			return cmd
		}
	}
	t.Fatalf("command %q not found", name)
	return nil
}

func TestCommands(t *testing.T) {
	app := newApp()
	for _, name := range []string{"run", "scan", "check"} {
		assert.NotNil(t, findCommand(t, app, name))
	}
}

func TestRunCommandFlags(t *testing.T) {
	cmd := findCommand(t, newApp(), "run")

	t.Run("batch-size has default value of 100", func(t *testing.T) {
		var batchFlag *cli.IntFlag
		for _, flag := range cmd.Flags {
			if f, ok := flag.(*cli.IntFlag); ok && f.Name == "batch-size" {
				batchFlag = f
				break
			}
		}
		require.NotNil(t, batchFlag)
		assert.Equal(t, 100, batchFlag.Value)
	})

	t.Run("yes has alias -y", func(t *testing.T) {
		var yesFlag *cli.BoolFlag
		for _, flag := range cmd.Flags {
			if f, ok := flag.(*cli.BoolFlag); ok && f.Name == "yes" {
				yesFlag = f
				break
			}
		}
		require.NotNil(t, yesFlag)
		assert.Equal(t, []string{"y"}, yesFlag.Aliases)
		assert.False(t, yesFlag.Value)
	})

	t.Run("pg-password reads PGPASSWORD", func(t *testing.T) {
		var pwFlag *cli.StringFlag
		for _, flag := range cmd.Flags {
			if f, ok := flag.(*cli.StringFlag); ok && f.Name == "pg-password" {
				pwFlag = f
				break
			}
		}
		require.NotNil(t, pwFlag)
		assert.Equal(t, []string{"PGPASSWORD"}, pwFlag.EnvVars)
	})
}

func TestParseSources(t *testing.T) {
	locations, err := parseSources([]string{"English=/songs/en", " Spanish = /songs/es "})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"English": "/songs/en", "Spanish": "/songs/es"}, locations)

	for _, bad := range []string{"English", "=/songs", "English="} {
		_, err := parseSources([]string{bad})
		assert.Error(t, err, bad)
	}
}

// captureConfig runs the app with a command that only loads the configuration.
func captureConfig(t *testing.T, args ...string) (*config.Config, error) {
	t.Helper()
	var cfg *config.Config
	app := newApp()
	run := findCommand(t, app, "run")
	run.Action = func(c *cli.Context) error {
		var err error
		cfg, err = loadConfig(c)
		return err
	}
	app.Writer = &bytes.Buffer{}
	err := app.Run(append([]string{"docimport"}, args...))
	return cfg, err
}

func TestLoadConfig_Flags(t *testing.T) {
	cfg, err := captureConfig(t, "run",
		"--source", "English=/songs/en",
		"--source", "Spanish=/songs/es",
		"-y",
		"--batch-size", "20",
		"--workers", "3",
		"--extract-timeout", "2s",
		"--destination", "postgres",
		"--dsn", "postgres://localhost/songs",
	)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"English": "/songs/en", "Spanish": "/songs/es"}, cfg.SourceLocations)
	assert.True(t, cfg.ConfirmOverride)
	assert.Equal(t, 20, cfg.BatchSize)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, 2*time.Second, cfg.ExtractTimeout)
	assert.Equal(t, config.DestinationPostgres, cfg.Destination.Kind)
	assert.Equal(t, "postgres://localhost/songs", cfg.Destination.DSN)
}

func TestLoadConfig_ShortSourceFlag(t *testing.T) {
	cfg, err := captureConfig(t, "run", "-s", "English=/songs/en", "-s", "Spanish=/songs/es")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"English": "/songs/en", "Spanish": "/songs/es"}, cfg.SourceLocations)
}

func TestLoadConfig_FileWithOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docimport.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
source_locations:
  English: /songs/en
batch_size: 50
destination:
  kind: api
  url: http://app:8080
`), 0o644))

	cfg, err := captureConfig(t, "--config", path, "run", "--batch-size", "10")
	require.NoError(t, err)

	assert.Equal(t, "/songs/en", cfg.SourceLocations["English"])
	assert.Equal(t, 10, cfg.BatchSize, "flags override the file")
	assert.Equal(t, config.DestinationAPI, cfg.Destination.Kind)
	assert.False(t, cfg.ConfirmOverride)
}

func TestLoadConfig_Invalid(t *testing.T) {
	_, err := captureConfig(t, "run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source location")

	_, err = captureConfig(t, "run", "--source", "nolabel")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "label=directory")
}

func TestScanCommand(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.doc", "b.docx", "readme.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	err := app.Run([]string{"docimport", "scan", "--source", "English=" + dir})
	require.NoError(t, err)

	output := out.String()
	assert.Contains(t, output, filepath.Join(dir, "a.doc"))
	assert.Contains(t, output, filepath.Join(dir, "b.docx"))
	assert.NotContains(t, output, "readme.txt")
	assert.Contains(t, output, "Found 2 documents")
}

func TestScanCommand_RequiresSource(t *testing.T) {
	app := newApp()
	app.Writer = &bytes.Buffer{}
	err := app.Run([]string{"docimport", "scan"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--source")
}

func TestSetupLogger(t *testing.T) {
	t.Run("valid log levels", func(t *testing.T) {
		for _, level := range []string{"debug", "info", "warn", "error", "DEBUG", "WaRn"} {
			t.Run(level, func(t *testing.T) {
				app := &cli.App{
					Name:   "test",
					Flags:  []cli.Flag{&cli.StringFlag{Name: "log-level", Value: "info"}},
					Before: setupLogger,
					Action: func(c *cli.Context) error { return nil },
				}
				require.NoError(t, app.Run([]string{"test", "--log-level", level}))
			})
		}
	})

	t.Run("invalid log level returns error", func(t *testing.T) {
		app := &cli.App{
			Name:   "test",
			Flags:  []cli.Flag{&cli.StringFlag{Name: "log-level", Value: "info"}},
			Before: setupLogger,
			Action: func(c *cli.Context) error { return nil },
		}

		err := app.Run([]string{"test", "--log-level", "invalid"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})

	t.Run("log file is created", func(t *testing.T) {
		logFile := filepath.Join(t.TempDir(), "docimport.log")
		app := newApp()
		app.Writer = &bytes.Buffer{}
		app.Commands = []*cli.Command{{
			Name: "noop",
			Action: func(c *cli.Context) error {
				return nil
			},
		}}
		require.NoError(t, app.Run([]string{"docimport", "--log-file", logFile, "noop"}))

		_, err := os.Stat(logFile)
		assert.NoError(t, err)
	})
}

func TestMain(m *testing.M) {
	code := m.Run()
	os.Exit(code)
}

func TestRunOutcome(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		output  string
		wantErr bool
	}{
		{name: "completed", err: nil},
		{name: "declined", err: ingestion.ErrCancelled, output: "Import cancelled"},
		{name: "non-interactive", err: ingestion.ErrNonInteractive, output: "use --yes to confirm"},
		{name: "wrapped non-interactive", err: fmt.Errorf("confirm: %w", ingestion.ErrNonInteractive), output: "non-interactive mode"},
		{name: "nothing to import", err: ingestion.ErrNoCandidates, output: "No documents found to import"},
		{name: "interrupted", err: context.Canceled, output: "Import interrupted"},
		{name: "destination down", err: ingestion.ErrDestinationUnavailable, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := runOutcome(&out, tt.err)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.err))
				assert.Contains(t, err.Error(), "import failed")
				return
			}
			require.NoError(t, err)
			if tt.output == "" {
				assert.Empty(t, out.String())
			} else {
				assert.Contains(t, out.String(), tt.output)
			}
		})
	}
}
