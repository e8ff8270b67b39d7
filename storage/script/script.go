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


// Package script stages records as SQL statements and applies them in one
// psql invocation at the end of the run.
//
// Commit only stages. Nothing reaches the database until Finalize writes the
// script (BEGIN, inserts, edit counter update, COMMIT) and runs it with
// ON_ERROR_STOP, so a failed execution leaves the database untouched.
package script

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/poiesic/docimport/core"
	"github.com/poiesic/docimport/extract"
	"github.com/poiesic/docimport/storage"
)

// DefaultTimeout bounds the psql execution.
const DefaultTimeout = 600 * time.Second

// Config holds connection and execution settings for psql.
type Config struct {
	Host     string
	Port     int
	User     string
	Database string
	Password string

	// Psql is the psql executable. Defaults to "psql".
	Psql string
	// Dir is where the script file is written. Defaults to os.TempDir().
	Dir string
	// KeepScript leaves the script on disk after execution.
	KeepScript bool
	// Timeout bounds the psql run.
	Timeout time.Duration
}

// Writer is a storage.Destination that defers all writes to Finalize.
type Writer struct {
	cfg    Config
	runner extract.CommandRunner
	logger *slog.Logger

	mu         sync.Mutex
	statements []string
	staged     []*core.Record
	scriptPath string
}

var (
	_ storage.Destination = (*Writer)(nil)
	_ storage.Stager      = (*Writer)(nil)
	_ storage.Describer   = (*Writer)(nil)
)

// New creates a Writer. A nil runner uses extract.ExecRunner carrying PGPASSWORD.
func New(cfg Config, runner extract.CommandRunner, logger *slog.Logger) *Writer {
	if cfg.Psql == "" {
		cfg.Psql = "psql"
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 5432
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Dir == "" {
		cfg.Dir = os.TempDir()
	}
	if runner == nil {
		runner = extract.ExecRunner{Env: []string{"PGPASSWORD=" + cfg.Password}}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		cfg:    cfg,
		runner: runner,
		logger: logger.With("component", "script"),
	}
}

// Describe names the target database for the confirmation prompt.
func (w *Writer) Describe() string {
	return fmt.Sprintf("PostgreSQL %s@%s:%d/%s via psql script", w.cfg.User, w.cfg.Host, w.cfg.Port, w.cfg.Database)
}

func (w *Writer) connArgs() []string {
	return []string{
		"-h", w.cfg.Host,
		"-p", strconv.Itoa(w.cfg.Port),
		"-U", w.cfg.User,
		"-d", w.cfg.Database,
		"-v", "ON_ERROR_STOP=1",
	}
}

// Ping checks psql exists and can run a trivial query.
func (w *Writer) Ping(ctx context.Context) error {
	if _, err := w.runner.LookPath(w.cfg.Psql); err != nil {
		return fmt.Errorf("%w: %s not found: %w", storage.ErrUnavailable, w.cfg.Psql, err)
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	args := append(w.connArgs(), "-c", "SELECT 1")
	if _, err := w.runner.Run(ctx, w.cfg.Psql, args...); err != nil {
		return fmt.Errorf("%w: %w", storage.ErrUnavailable, err)
	}
	return nil
}

// Commit stages records. Staged records are reported as inserted; whether
// they persist is decided at Finalize.
func (w *Writer) Commit(ctx context.Context, records []*core.Record) (storage.CommitResult, error) {
	if err := ctx.Err(); err != nil {
		return storage.CommitResult{}, err
	}
	stmts := make([]string, 0, len(records))
	for _, r := range records {
		stmts = append(stmts, InsertStatement(r))
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.statements = append(w.statements, stmts...)
	w.staged = append(w.staged, records...)
	return storage.CommitResult{Inserted: len(records)}, nil
}

// Staged implements storage.Stager.
func (w *Writer) Staged() []*core.Record {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]*core.Record(nil), w.staged...)
}

// ScriptPath returns the path of the last written script.
func (w *Writer) ScriptPath() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.scriptPath
}

// Finalize writes the script and executes it with psql.
func (w *Writer) Finalize(ctx context.Context, committed int) error {
	w.mu.Lock()
	stmts := append([]string(nil), w.statements...)
	w.mu.Unlock()

	if len(stmts) == 0 {
		return nil
	}

	path, err := w.writeScript(stmts, committed)
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrFinalizeFailed, core.NewReasonError(core.ReasonDBError, err))
	}
	w.mu.Lock()
	w.scriptPath = path
	w.mu.Unlock()
	if !w.cfg.KeepScript {
		defer os.Remove(path)
	}

	w.logger.Info("executing SQL script", "path", path, "statements", len(stmts))
	ctx, cancel := context.WithTimeout(ctx, w.cfg.Timeout)
	defer cancel()

	args := append(w.connArgs(), "-f", path)
	if _, err := w.runner.Run(ctx, w.cfg.Psql, args...); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("psql timed out after %s: %w", w.cfg.Timeout, err)
		}
		return fmt.Errorf("%w: %w", storage.ErrFinalizeFailed, core.NewReasonError(core.ReasonDBError, err))
	}
	return nil
}

func (w *Writer) writeScript(stmts []string, committed int) (string, error) {
	f, err := os.CreateTemp(w.cfg.Dir, "docimport_*.sql")
	if err != nil {
		return "", fmt.Errorf("create script: %w", err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	bw.WriteString("BEGIN;\n\n")
	for _, s := range stmts {
		bw.WriteString(s)
		bw.WriteByte('\n')
	}
	fmt.Fprintf(bw, "\nUPDATE edit_count SET count = count + %d;\n\n", committed)
	bw.WriteString("COMMIT;\n")
	if err := bw.Flush(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("write script: %w", err)
	}
	if err := f.Sync(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("sync script: %w", err)
	}
	return f.Name(), nil
}

// Close discards anything still staged.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.statements = nil
	w.staged = nil
	return nil
}

// InsertStatement renders one record as a literal INSERT statement.
func InsertStatement(r *core.Record) string {
	return fmt.Sprintf(
		"INSERT INTO songs (id, title, author, lyrics, language, translation, created_at, updated_at) VALUES (%s, %s, %s, %s, %s, %s, %s, %s) ON CONFLICT (id) DO NOTHING;",
		pq.QuoteLiteral(r.ID),
		pq.QuoteLiteral(r.Title),
		pq.QuoteLiteral(r.Author),
		pq.QuoteLiteral(r.Body),
		pq.QuoteLiteral(r.Label),
		pq.QuoteLiteral(string(r.Translation)),
		timestampLiteral(r.CreatedAt),
		timestampLiteral(r.UpdatedAt),
	)
}

func timestampLiteral(t time.Time) string {
	if t.IsZero() {
		return "NOW()"
	}
	return pq.QuoteLiteral(t.UTC().Format(time.RFC3339Nano)) + "::timestamptz"
}
