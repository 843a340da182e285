package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFlusher struct {
	mu        sync.Mutex
	snapshots []Snapshot
	failNext  int
	completed bool
}

func (f *fakeFlusher) Flush(_ context.Context, _ uint, snap Snapshot) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext > 0 {
		f.failNext--
		return false, errors.New("progress store unreachable")
	}
	f.snapshots = append(f.snapshots, snap)
	return f.completed, nil
}

func (f *fakeFlusher) sent() []Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Snapshot, len(f.snapshots))
	copy(out, f.snapshots)
	return out
}

func play(s *Session, from, to int) {
	for i := from; i <= to; i++ {
		s.Observe(Sample{Position: float64(i), Playing: true})
	}
}

func TestSessionSkipsUnchangedSnapshots(t *testing.T) {
	f := &fakeFlusher{}
	s := NewSession(SessionConfig{ModuleID: 7, DurationSeconds: 100}, f)

	play(s, 1, 10)
	require.NoError(t, s.Flush(context.Background()))
	require.NoError(t, s.Flush(context.Background()))

	play(s, 11, 20)
	require.NoError(t, s.Flush(context.Background()))

	sent := f.sent()
	require.Len(t, sent, 2)
	assert.Equal(t, 10, sent[0].WatchedSeconds)
	assert.Equal(t, 20, sent[1].WatchedSeconds)
	assert.Equal(t, 20.0, sent[1].PercentWatched)
}

func TestSessionRetriesAfterFailure(t *testing.T) {
	f := &fakeFlusher{failNext: 1}
	s := NewSession(SessionConfig{ModuleID: 7, DurationSeconds: 100}, f)

	play(s, 1, 5)
	assert.Error(t, s.Flush(context.Background()))
	require.NoError(t, s.Flush(context.Background()))

	sent := f.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, 5, sent[0].WatchedSeconds)
}

func TestSessionCloseFlushesAndDisposes(t *testing.T) {
	f := &fakeFlusher{completed: true}
	s := NewSession(SessionConfig{ModuleID: 7, DurationSeconds: 10}, f)

	play(s, 1, 10)
	require.NoError(t, s.Close(context.Background()))
	assert.True(t, s.Completed())

	play(s, 11, 20)
	assert.ErrorIs(t, s.Flush(context.Background()), ErrSessionClosed)
	assert.NoError(t, s.Close(context.Background()))

	sent := f.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, 10, sent[0].WatchedSeconds)
}

func TestSessionSuspendIsBestEffort(t *testing.T) {
	f := &fakeFlusher{failNext: 1}
	s := NewSession(SessionConfig{ModuleID: 7, DurationSeconds: 10}, f)
	play(s, 1, 3)

	assert.NotPanics(t, func() { s.Suspend(context.Background()) })
	assert.Empty(t, f.sent())
}

func TestSessionRunFlushesOnInterval(t *testing.T) {
	f := &fakeFlusher{}
	s := NewSession(SessionConfig{ModuleID: 7, DurationSeconds: 100, FlushInterval: 10 * time.Millisecond}, f)
	play(s, 1, 4)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return len(f.sent()) >= 1 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
	assert.Equal(t, 4, f.sent()[0].WatchedSeconds)
}

func TestHTTPFlusherPostsSnapshot(t *testing.T) {
	type captured struct {
		body progressRequest
		auth string
	}
	seen := make(chan captured, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/progress", r.URL.Path)
		var c captured
		c.auth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&c.body))
		seen <- c
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"completed":true}`))
	}))
	defer srv.Close()

	f := NewHTTPFlusher(srv.URL, "tok", time.Second)
	completed, err := f.Flush(context.Background(), 9, Snapshot{WatchedSeconds: 42, PercentWatched: 70})
	require.NoError(t, err)
	assert.True(t, completed)

	got := <-seen
	assert.Equal(t, "Bearer tok", got.auth)
	assert.Equal(t, uint(9), got.body.ModuleID)
	assert.Equal(t, 42, got.body.WatchedSeconds)
	assert.Equal(t, 70.0, got.body.PercentWatched)
}

func TestHTTPFlusherReportsServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := NewHTTPFlusher(srv.URL, "tok", time.Second)
	_, err := f.Flush(context.Background(), 9, Snapshot{WatchedSeconds: 1, PercentWatched: 1})
	assert.Error(t, err)
}
