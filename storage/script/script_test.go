package script

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/docimport/core"
	"github.com/poiesic/docimport/extract/mock"
	"github.com/poiesic/docimport/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(title, body string) *core.Record {
	return &core.Record{
		ID:          core.NewID(),
		Title:       title,
		Body:        body,
		Label:       "english",
		Translation: core.TranslationNo,
		CreatedAt:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func testConfig(t *testing.T) Config {
	return Config{
		Host:     "db",
		Port:     5433,
		User:     "app",
		Database: "songs",
		Dir:      t.TempDir(),
	}
}

func TestInsertStatementQuoting(t *testing.T) {
	r := rec("Don't Stop", "it's a \\ backslash")
	stmt := InsertStatement(r)

	assert.Contains(t, stmt, "'Don''t Stop'")
	assert.Contains(t, stmt, `E'it''s a \\ backslash'`)
	assert.Contains(t, stmt, "'2025-01-01T00:00:00Z'::timestamptz")
	assert.True(t, strings.HasSuffix(stmt, "ON CONFLICT (id) DO NOTHING;"))
}

func TestInsertStatementZeroTimestamp(t *testing.T) {
	r := rec("x", "y")
	r.CreatedAt = time.Time{}
	assert.Contains(t, InsertStatement(r), "NOW()")
}

func TestFinalizeWritesAndRunsScript(t *testing.T) {
	var script string
	runner := mock.NewMockRunner()
	runner.RunFunc = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		data, err := os.ReadFile(args[len(args)-1])
		script = string(data)
		return nil, err
	}

	cfg := testConfig(t)
	w := New(cfg, runner, nil)
	ctx := context.Background()

	result, err := w.Commit(ctx, []*core.Record{rec("a", "one"), rec("b", "two")})
	require.NoError(t, err)
	assert.Equal(t, storage.CommitResult{Inserted: 2}, result)
	_, err = w.Commit(ctx, []*core.Record{rec("c", "three")})
	require.NoError(t, err)
	assert.Len(t, w.Staged(), 3)

	require.NoError(t, w.Finalize(ctx, 3))

	calls := runner.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "psql", calls[0].Name)
	assert.Equal(t, []string{"-h", "db", "-p", "5433", "-U", "app", "-d", "songs", "-v", "ON_ERROR_STOP=1", "-f"}, calls[0].Args[:len(calls[0].Args)-1])

	assert.True(t, strings.HasPrefix(script, "BEGIN;\n"))
	assert.Equal(t, 3, strings.Count(script, "INSERT INTO songs"))
	assert.Contains(t, script, "UPDATE edit_count SET count = count + 3;")
	assert.True(t, strings.HasSuffix(script, "COMMIT;\n"))

	_, err = os.Stat(w.ScriptPath())
	assert.True(t, os.IsNotExist(err), "script should be removed unless kept")
}

func TestFinalizeKeepScript(t *testing.T) {
	runner := mock.NewMockRunner()
	runner.RunFunc = func(ctx context.Context, name string, args ...string) ([]byte, error) { return nil, nil }

	cfg := testConfig(t)
	cfg.KeepScript = true
	w := New(cfg, runner, nil)
	_, err := w.Commit(context.Background(), []*core.Record{rec("a", "one")})
	require.NoError(t, err)
	require.NoError(t, w.Finalize(context.Background(), 1))

	_, err = os.Stat(w.ScriptPath())
	assert.NoError(t, err)
}

func TestFinalizeFailureIsDBError(t *testing.T) {
	runner := mock.NewMockRunner()
	runner.RunFunc = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return nil, errors.New("psql: exit status 3: ERROR: relation \"songs\" does not exist")
	}

	w := New(testConfig(t), runner, nil)
	_, err := w.Commit(context.Background(), []*core.Record{rec("a", "one")})
	require.NoError(t, err)

	err = w.Finalize(context.Background(), 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrFinalizeFailed)
	assert.Equal(t, core.ReasonDBError, core.ReasonOf(err, ""))
	assert.Len(t, w.Staged(), 1)
}

func TestFinalizeNothingStaged(t *testing.T) {
	runner := mock.NewMockRunner()
	w := New(testConfig(t), runner, nil)
	require.NoError(t, w.Finalize(context.Background(), 0))
	assert.Zero(t, runner.CallCount())
}

func TestPing(t *testing.T) {
	runner := mock.NewMockRunner()
	runner.RunFunc = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte("1"), nil
	}
	w := New(testConfig(t), runner, nil)
	require.NoError(t, w.Ping(context.Background()))
	assert.Equal(t, []string{"-c", "SELECT 1"}, runner.Calls()[0].Args[10:])

	runner.Missing = map[string]bool{"psql": true}
	assert.ErrorIs(t, w.Ping(context.Background()), storage.ErrUnavailable)
}

func TestCloseDiscardsStaged(t *testing.T) {
	w := New(testConfig(t), mock.NewMockRunner(), nil)
	_, err := w.Commit(context.Background(), []*core.Record{rec("a", "one")})
	require.NoError(t, err)
	require.NoError(t, w.Close())
	assert.Empty(t, w.Staged())
}
