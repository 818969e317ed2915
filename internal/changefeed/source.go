package changefeed

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Channel is the NOTIFY channel the rating_events triggers publish on.
const Channel = "rating_events_changed"

// OpResync is reported once every time the source (re)establishes LISTEN,
// since changes made while it was disconnected were not observed.
const OpResync = "RESYNC"

// Source delivers store change signals until ctx is cancelled. notify
// receives the mutating operation (INSERT, DELETE, TRUNCATE, or OpResync)
// and must not block.
type Source interface {
	Run(ctx context.Context, notify func(op string)) error
}

// PGSource listens for Postgres NOTIFY on a connection taken out of the pool.
type PGSource struct {
	pool    *pgxpool.Pool
	channel string
	retry   time.Duration
	logger  *log.Logger
}

// NewPGSource builds a source on pool. retry is the pause before re-listening
// after the connection fails.
func NewPGSource(pool *pgxpool.Pool, retry time.Duration, logger *log.Logger) *PGSource {
	if logger == nil {
		logger = log.Default()
	}
	if retry <= 0 {
		retry = time.Second
	}
	return &PGSource{pool: pool, channel: Channel, retry: retry, logger: logger}
}

// Run keeps a LISTEN session alive until ctx ends. Connection failures are
// logged and retried after the configured delay; Run only returns ctx.Err().
func (s *PGSource) Run(ctx context.Context, notify func(op string)) error {
	for {
		err := s.listen(ctx, notify)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		listenRestarts.Inc()
		s.logger.Printf("changefeed: listen on %s failed, retrying in %s: %v", s.channel, s.retry, err)

		timer := time.NewTimer(s.retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (s *PGSource) listen(ctx context.Context, notify func(op string)) error {
	pooled, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listen connection: %w", err)
	}
	// A LISTENing session must never be handed back to other pool users.
	conn := pooled.Hijack()
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = conn.Close(closeCtx)
	}()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{s.channel}.Sanitize()); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	s.logger.Printf("changefeed: listening on %s", s.channel)
	notify(OpResync)

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return ctx.Err()
			}
			return fmt.Errorf("wait for notification: %w", err)
		}
		notifications.WithLabelValues(n.Payload).Inc()
		notify(n.Payload)
	}
}
