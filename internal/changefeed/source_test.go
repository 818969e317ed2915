package changefeed

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Clark-Hu/rating-pulse/internal/repository"
	"github.com/Clark-Hu/rating-pulse/internal/testdb"
)

func TestPGSourceDeliversStoreMutations(t *testing.T) {
	db := testdb.Start(t, "changefeed_test")
	repo := repository.NewWithPool(db.Pool)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ops := make(chan string, 16)
	src := NewPGSource(db.Pool, 50*time.Millisecond, log.New(io.Discard, "", 0))
	done := make(chan error, 1)
	go func() {
		done <- src.Run(ctx, func(op string) {
			select {
			case ops <- op:
			default:
			}
		})
	}()

	expect := func(want string) {
		t.Helper()
		select {
		case got := <-ops:
			require.Equal(t, want, got)
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for %s", want)
		}
	}

	expect(OpResync)

	_, err := repo.Ratings.Insert(ctx, 4)
	require.NoError(t, err)
	expect("INSERT")

	_, err = repo.Ratings.Clear(ctx)
	require.NoError(t, err)
	expect("DELETE")

	_, err = db.Pool.Exec(ctx, "TRUNCATE rating_events")
	require.NoError(t, err)
	expect("TRUNCATE")

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("source did not stop")
	}
}

func TestWatcherEndToEnd(t *testing.T) {
	db := testdb.Start(t, "changefeed_e2e_test")
	repo := repository.NewWithPool(db.Pool)
	logger := log.New(io.Discard, "", 0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pub := make(chanPublisher, 16)
	w := NewWatcher(NewPGSource(db.Pool, 50*time.Millisecond, logger), repo.Ratings, pub, logger)
	go func() { _ = w.Run(ctx) }()

	// The resync after LISTEN primes an empty aggregate.
	select {
	case agg := <-pub:
		require.Empty(t, agg.Events)
	case <-time.After(5 * time.Second):
		t.Fatal("no priming aggregate")
	}

	_, err := repo.Ratings.Insert(ctx, 5)
	require.NoError(t, err)
	_, err = repo.Ratings.Insert(ctx, 2)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		for {
			select {
			case agg := <-pub:
				if len(agg.Events) == 2 {
					return agg.Average == 3.5
				}
			default:
				return false
			}
		}
	}, 5*time.Second, 10*time.Millisecond)
}
