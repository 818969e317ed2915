package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Clark-Hu/rating-pulse/internal/domain"
	"github.com/Clark-Hu/rating-pulse/internal/testdb"
)

type testEnv struct {
	ctx        context.Context
	repository *Repository
}

func newTestEnv(t testing.TB) *testEnv {
	t.Helper()
	db := testdb.Start(t, "ratings_test")
	return &testEnv{
		ctx:        context.Background(),
		repository: NewWithPool(db.Pool),
	}
}

// fixedClock returns successive instants 1ms apart starting at base.
func fixedClock(base time.Time) func() time.Time {
	var mu sync.Mutex
	next := base
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now := next
		next = next.Add(time.Millisecond)
		return now
	}
}

func TestRatingsRepository_InsertListAggregate(t *testing.T) {
	env := newTestEnv(t)
	base := time.UnixMilli(1_700_000_000_000)
	env.repository.Ratings.now = fixedClock(base)

	for _, v := range []int{5, 3, 4} {
		if _, err := env.repository.Ratings.Insert(env.ctx, v); err != nil {
			t.Fatalf("insert %d: %v", v, err)
		}
	}

	events, err := env.repository.Ratings.List(env.ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("len(events) = %d, want 3", len(events))
	}
	for i, ev := range events {
		want := base.UnixMilli() + int64(i)
		if ev.Timestamp != want {
			t.Fatalf("events[%d].Timestamp = %d, want %d", i, ev.Timestamp, want)
		}
	}

	agg, err := env.repository.Ratings.Aggregate(env.ctx)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if agg.Average != 4 {
		t.Fatalf("agg.Average = %v, want 4", agg.Average)
	}
	if len(agg.Events) != 3 || agg.Events[0] != base.UnixMilli() {
		t.Fatalf("agg.Events = %v", agg.Events)
	}

	got, err := env.repository.Ratings.Get(env.ctx, events[1].ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Value != 3 {
		t.Fatalf("got.Value = %d, want 3", got.Value)
	}
	if _, err := env.repository.Ratings.Get(env.ctx, -1); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRatingsRepository_InsertRejectsOutOfRange(t *testing.T) {
	env := newTestEnv(t)

	for _, v := range []int{0, 6} {
		if _, err := env.repository.Ratings.Insert(env.ctx, v); !errors.Is(err, domain.ErrInvalidValue) {
			t.Fatalf("Insert(%d) error = %v, want ErrInvalidValue", v, err)
		}
	}
}

func TestRatingsRepository_ClearYieldsEmptyAggregate(t *testing.T) {
	env := newTestEnv(t)

	for _, v := range []int{1, 2} {
		if _, err := env.repository.Ratings.Insert(env.ctx, v); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	deleted, err := env.repository.Ratings.Clear(env.ctx)
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("deleted = %d, want 2", deleted)
	}

	agg, err := env.repository.Ratings.Aggregate(env.ctx)
	if err != nil {
		t.Fatalf("aggregate after clear: %v", err)
	}
	if agg.Average != 0 || len(agg.Events) != 0 || agg.Events == nil {
		t.Fatalf("agg = %+v, want {0 []}", agg)
	}
}

func TestRatingsRepository_ConcurrentInserts(t *testing.T) {
	env := newTestEnv(t)

	const workers = 10
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			if _, err := env.repository.Ratings.Insert(env.ctx, v); err != nil {
				t.Errorf("insert %d: %v", v, err)
			}
		}(i%5 + 1)
	}
	wg.Wait()

	agg, err := env.repository.Ratings.Aggregate(env.ctx)
	if err != nil {
		t.Fatalf("aggregate after concurrent inserts: %v", err)
	}
	if len(agg.Events) != workers {
		t.Fatalf("len(agg.Events) = %d, want %d", len(agg.Events), workers)
	}
	if agg.Average != 3 {
		t.Fatalf("agg.Average = %v, want 3", agg.Average)
	}
	for i := 1; i < len(agg.Events); i++ {
		if agg.Events[i] < agg.Events[i-1] {
			t.Fatalf("events not ascending: %v", agg.Events)
		}
	}
}

func BenchmarkRatingsRepositoryInsert(b *testing.B) {
	env := newTestEnv(b)

	for i := 0; i < b.N; i++ {
		if _, err := env.repository.Ratings.Insert(env.ctx, i%5+1); err != nil {
			b.Fatalf("insert: %v", err)
		}
	}
}
