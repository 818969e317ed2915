// Package dashboard ties the push feed to the render loop: every aggregate
// received replaces the event buffer and restarts the loop on it.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/Clark-Hu/rating-pulse/internal/domain"
	"github.com/Clark-Hu/rating-pulse/internal/render"
	"github.com/Clark-Hu/rating-pulse/internal/sampler"
)

// Feed delivers aggregates until ctx is done.
type Feed interface {
	Watch(ctx context.Context, fn func(domain.Aggregate)) error
}

// Options configures what the dashboard draws.
type Options struct {
	Window   time.Duration
	Interval time.Duration
	Style    render.Style
	// Location for clock labels; nil means time.Local.
	Location *time.Location
}

// Dashboard renders the live rate graph for one viewer.
type Dashboard struct {
	feed    Feed
	surface render.Surface
	loop    *render.Loop
	params  sampler.Params
	style   render.Style
	loc     *time.Location
	logger  *log.Logger

	mu      sync.Mutex
	average float64
	events  []int64
}

// New validates opts and returns a dashboard drawing onto surface at the
// cadence of clock.
func New(feed Feed, surface render.Surface, clock render.FrameClock, opts Options, logger *log.Logger) (*Dashboard, error) {
	if logger == nil {
		logger = log.Default()
	}
	params := sampler.Params{Window: opts.Window, Interval: opts.Interval}
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("dashboard: %w", err)
	}
	d := &Dashboard{
		feed:    feed,
		surface: surface,
		params:  params,
		style:   opts.Style,
		loc:     opts.Location,
		logger:  logger,
	}
	d.loop = render.NewLoop(clock, d.draw)
	return d, nil
}

// Apply installs agg: the event buffer is replaced, never mutated, and the
// render loop is restarted so frames draw from the new buffer.
func (d *Dashboard) Apply(agg domain.Aggregate) {
	events := slices.Clone(agg.Events)
	if events == nil {
		events = []int64{}
	}
	d.mu.Lock()
	d.average = agg.Average
	d.events = events
	d.mu.Unlock()

	d.loop.Start(events)
}

// Average is the most recently received average.
func (d *Dashboard) Average() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.average
}

// Events is the current event buffer. Callers must not modify it.
func (d *Dashboard) Events() []int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.events
}

// Run starts drawing and follows the feed until ctx is done. Every value on
// resize forces one immediate redraw. The loop is stopped before Run returns.
func (d *Dashboard) Run(ctx context.Context, resize <-chan os.Signal) error {
	d.loop.Start(d.Events())
	defer d.loop.Stop()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	resizeDone := make(chan struct{})
	go func() {
		defer close(resizeDone)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-resize:
				if !ok {
					return
				}
				d.loop.Redraw()
			}
		}
	}()

	err := d.feed.Watch(ctx, d.Apply)
	cancel()
	<-resizeDone
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// State reports the render loop state.
func (d *Dashboard) State() render.State {
	return d.loop.State()
}

func (d *Dashboard) draw(events []int64, now time.Time) {
	series, err := sampler.Sample(events, d.params, now.UnixMilli())
	if err != nil {
		d.logger.Printf("dashboard: sample: %v", err)
		return
	}
	frame := render.Frame{
		Series:   series,
		Style:    d.style,
		Location: d.loc,
		Caption:  AverageText(d.Average()),
	}
	if err := render.DrawFrame(d.surface, frame); err != nil {
		d.logger.Printf("dashboard: draw: %v", err)
	}
}

// AverageText formats the average for display.
func AverageText(avg float64) string {
	return fmt.Sprintf("Avg: %.2f", avg)
}
