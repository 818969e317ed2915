// Package changefeed turns store mutations into a stream of recomputed
// aggregates. A single Watcher per process serves every connected viewer.
package changefeed

import (
	"context"
	"log"
	"time"

	"github.com/Clark-Hu/rating-pulse/internal/domain"
)

// Loader reads the current aggregate from the event store.
type Loader interface {
	Aggregate(ctx context.Context) (domain.Aggregate, error)
}

// Publisher receives every freshly computed aggregate.
type Publisher interface {
	Publish(agg domain.Aggregate)
}

// Watcher recomputes the aggregate on every change signal from its Source
// and hands the result to its Publisher.
type Watcher struct {
	source      Source
	loader      Loader
	publisher   Publisher
	logger      *log.Logger
	loadTimeout time.Duration
	pending     chan string
}

// NewWatcher wires a watcher. It does nothing until Run is called.
func NewWatcher(source Source, loader Loader, publisher Publisher, logger *log.Logger) *Watcher {
	if logger == nil {
		logger = log.Default()
	}
	return &Watcher{
		source:      source,
		loader:      loader,
		publisher:   publisher,
		logger:      logger,
		loadTimeout: 5 * time.Second,
		pending:     make(chan string, 1),
	}
}

// Run blocks until ctx is cancelled. Signals that arrive while a reload is
// in flight collapse into a single follow-up reload.
func (w *Watcher) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	srcErr := make(chan error, 1)
	go func() { srcErr <- w.source.Run(ctx, w.signal) }()

	for {
		select {
		case <-ctx.Done():
			<-srcErr
			return ctx.Err()
		case err := <-srcErr:
			return err
		case op := <-w.pending:
			w.reload(ctx, op)
		}
	}
}

func (w *Watcher) signal(op string) {
	select {
	case w.pending <- op:
	default:
	}
}

func (w *Watcher) reload(ctx context.Context, op string) {
	loadCtx, cancel := context.WithTimeout(ctx, w.loadTimeout)
	defer cancel()

	agg, err := w.loader.Aggregate(loadCtx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		reloadFailures.Inc()
		w.logger.Printf("changefeed: reload after %s failed, keeping last aggregate: %v", op, err)
		return
	}
	w.publisher.Publish(agg)
}
