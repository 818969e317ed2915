package feed

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Clark-Hu/rating-pulse/internal/domain"
	"github.com/Clark-Hu/rating-pulse/internal/stream"
)

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	c, err := New(url, 2*time.Second, WithLogger(log.New(io.Discard, "", 0)))
	require.NoError(t, err)
	return c
}

func TestNewRejectsRelativeURL(t *testing.T) {
	_, err := New("localhost:8080", time.Second)
	assert.Error(t, err)
	_, err = New("http://[::1", time.Second)
	assert.Error(t, err)
}

func TestRate(t *testing.T) {
	var got rateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/rate", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	require.NoError(t, newTestClient(t, srv.URL).Rate(context.Background(), 4))
	assert.Equal(t, 4, got.Value)
}

func TestRateValidationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"VALIDATION_ERROR","message":"value must be an integer between 1 and 5"}`))
	}))
	defer srv.Close()

	err := newTestClient(t, srv.URL).Rate(context.Background(), 9)
	require.ErrorIs(t, err, ErrUnexpectedStatus)
	assert.Contains(t, err.Error(), "400")
	assert.Contains(t, err.Error(), "VALIDATION_ERROR")
}

func TestAggregate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/ratings", r.URL.Path)
		_, _ = w.Write([]byte(`{"average":4.33,"events":[10,20,30]}`))
	}))
	defer srv.Close()

	agg, err := newTestClient(t, srv.URL).Aggregate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.Aggregate{Average: 4.33, Events: []int64{10, 20, 30}}, agg)
}

func TestAggregateNormalisesNullEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"average":0,"events":null}`))
	}))
	defer srv.Close()

	agg, err := newTestClient(t, srv.URL).Aggregate(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, agg.Events)
	assert.Empty(t, agg.Events)
}

func TestAggregateServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).Aggregate(context.Background())
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
}

func TestClear(t *testing.T) {
	var method, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	require.NoError(t, newTestClient(t, srv.URL).Clear(context.Background()))
	assert.Equal(t, http.MethodDelete, method)
	assert.Equal(t, "/api/ratings", path)
}

func TestBasePathIsKept(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	require.NoError(t, newTestClient(t, srv.URL+"/pulse/").Clear(context.Background()))
	assert.Equal(t, "/pulse/api/ratings", path)
}

// streamServer serves one scripted body per connection, then 200 with no
// events for any connection beyond the script.
func streamServer(t *testing.T, scripts ...func(enc *stream.Encoder, w http.ResponseWriter)) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var conns atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/stream", r.URL.Path)
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		n := int(conns.Add(1))
		if n > len(scripts) {
			w.Header().Set("Content-Type", "text/event-stream")
			return
		}
		scripts[n-1](stream.NewEncoder(w), w)
	}))
	t.Cleanup(srv.Close)
	return srv, &conns
}

func sendAll(aggs ...any) func(*stream.Encoder, http.ResponseWriter) {
	return func(enc *stream.Encoder, w http.ResponseWriter) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, a := range aggs {
			if raw, ok := a.(string); ok {
				_ = enc.WriteData([]byte(raw))
				continue
			}
			_ = enc.Encode(a)
		}
	}
}

type recordedDelays struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordedDelays) add(d time.Duration) {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
}

func (r *recordedDelays) get() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

func TestWatchSkipsMalformedAndSchedulesOneReconnect(t *testing.T) {
	srv, conns := streamServer(t, sendAll(
		domain.Aggregate{Average: 5, Events: []int64{1}},
		"{not json",
		domain.Aggregate{Average: 4, Events: []int64{1, 2}},
	))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c := newTestClient(t, srv.URL)
	var delays recordedDelays
	c.after = func(d time.Duration) <-chan time.Time {
		delays.add(d)
		cancel()
		return make(chan time.Time)
	}

	var got []domain.Aggregate
	err := c.Watch(ctx, func(agg domain.Aggregate) { got = append(got, agg) })
	require.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, []domain.Aggregate{
		{Average: 5, Events: []int64{1}},
		{Average: 4, Events: []int64{1, 2}},
	}, got)
	assert.Equal(t, []time.Duration{DefaultReconnectDelay}, delays.get())
	assert.GreaterOrEqual(t, delays.get()[0], time.Second)
	assert.EqualValues(t, 1, conns.Load())
}

func TestWatchReconnectsAfterFailure(t *testing.T) {
	srv, conns := streamServer(t,
		func(_ *stream.Encoder, w http.ResponseWriter) {
			w.WriteHeader(http.StatusServiceUnavailable)
		},
		sendAll(domain.Aggregate{Average: 3, Events: []int64{7}}),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c := newTestClient(t, srv.URL)
	var delays recordedDelays
	c.after = func(d time.Duration) <-chan time.Time {
		delays.add(d)
		ch := make(chan time.Time, 1)
		ch <- time.Now()
		return ch
	}

	var got []domain.Aggregate
	err := c.Watch(ctx, func(agg domain.Aggregate) {
		got = append(got, agg)
		cancel()
	})
	require.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, []domain.Aggregate{{Average: 3, Events: []int64{7}}}, got)
	assert.Equal(t, []time.Duration{DefaultReconnectDelay}, delays.get())
	assert.EqualValues(t, 2, conns.Load())
}

func TestWatchRetriesWithoutLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := New(srv.URL, time.Second,
		WithLogger(log.New(io.Discard, "", 0)),
		WithReconnectDelay(250*time.Millisecond))
	require.NoError(t, err)

	var attempts int
	c.after = func(d time.Duration) <-chan time.Time {
		assert.Equal(t, 250*time.Millisecond, d)
		attempts++
		if attempts == 10 {
			cancel()
		}
		ch := make(chan time.Time, 1)
		ch <- time.Now()
		return ch
	}

	err = c.Watch(ctx, func(domain.Aggregate) { t.Fatal("no events expected") })
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 10, attempts)
}

func TestWatchStopsOnCancelMidStream(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_ = stream.NewEncoder(w).Encode(domain.Aggregate{Average: 1, Events: []int64{1}})
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	c := newTestClient(t, srv.URL)
	c.after = func(time.Duration) <-chan time.Time {
		t.Error("no reconnect expected after cancel")
		return make(chan time.Time)
	}

	done := make(chan error, 1)
	go func() {
		done <- c.Watch(ctx, func(domain.Aggregate) { cancel() })
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not return after cancel")
	}
}
