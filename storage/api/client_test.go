package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/docimport/core"
	"github.com/poiesic/docimport/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecord() *core.Record {
	return &core.Record{
		ID:          core.NewID(),
		Title:       "Ode to Joy",
		Body:        "Freude, schöner Götterfunken",
		Label:       "german",
		Translation: core.TranslationNo,
	}
}

func TestCommitPostsSong(t *testing.T) {
	received := make(chan songRequest, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/songs", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var req songRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		received <- req
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := New(srv.URL + "/api/")
	result, err := c.Commit(context.Background(), []*core.Record{testRecord()})
	require.NoError(t, err)
	assert.Equal(t, storage.CommitResult{Inserted: 1}, result)

	got := <-received
	assert.Equal(t, "Ode to Joy", got.Title)
	assert.Equal(t, "Freude, schöner Götterfunken", got.Lyrics)
	assert.Equal(t, got.Lyrics, got.Content)
	assert.Equal(t, "german", got.Language)
}

func TestCommitNon201IsLoadError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK) // anything but 201 is a rejection
		w.Write([]byte("duplicate title"))
	}))
	defer srv.Close()

	_, err := New(srv.URL).Commit(context.Background(), []*core.Record{testRecord()})
	require.Error(t, err)
	assert.Equal(t, core.ReasonLoadError, core.ReasonOf(err, ""))
	assert.ErrorIs(t, err, storage.ErrRejected)
	assert.Contains(t, err.Error(), "duplicate title")
}

func TestCommitTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := New(srv.URL, WithTimeout(50*time.Millisecond))
	_, err := c.Commit(context.Background(), []*core.Record{testRecord()})
	require.Error(t, err)
	assert.Equal(t, core.ReasonTimeout, core.ReasonOf(err, ""))
}

func TestCommitConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url).Commit(context.Background(), []*core.Record{testRecord()})
	require.Error(t, err)
	assert.Equal(t, core.ReasonNetworkError, core.ReasonOf(err, ""))
}

func TestCommitRejectsMultiRecordBatch(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := New(srv.URL)
	assert.Equal(t, 1, c.MaxBatchSize())

	_, err := c.Commit(context.Background(), []*core.Record{testRecord(), testRecord()})
	assert.ErrorIs(t, err, storage.ErrRejected)
	assert.Zero(t, calls.Load())

	result, err := c.Commit(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, result.Inserted)
}

func TestPing(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/health", r.URL.Path)
		if healthy.Load() {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(srv.URL + "/api")
	assert.NoError(t, c.Ping(context.Background()))

	healthy.Store(false)
	assert.ErrorIs(t, c.Ping(context.Background()), storage.ErrUnavailable)
}

func TestFinalizeAndClose(t *testing.T) {
	c := New("http://localhost:1")
	assert.NoError(t, c.Finalize(context.Background(), 10))
	assert.NoError(t, c.Close())
	assert.Equal(t, "API at http://localhost:1", c.Describe())
}
