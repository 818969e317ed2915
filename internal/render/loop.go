package render

import (
	"sync"
	"time"
)

// State is the render loop's scheduling state.
type State int

const (
	Stopped State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "stopped"
}

// FrameClock paces the loop, one tick per display frame.
type FrameClock interface {
	// Start begins ticking; stop releases the clock's resources.
	Start() (ticks <-chan time.Time, stop func())
}

// TickerClock ticks at a fixed rate.
type TickerClock struct {
	FPS int
}

// Start implements FrameClock.
func (c TickerClock) Start() (<-chan time.Time, func()) {
	fps := c.FPS
	if fps <= 0 {
		fps = 60
	}
	t := time.NewTicker(time.Second / time.Duration(fps))
	return t.C, t.Stop
}

// DrawFunc renders one frame of events as of now.
type DrawFunc func(events []int64, now time.Time)

// Loop redraws the current event buffer every frame while Running.
//
// Each Start captures the buffer it is given; the previous frame goroutine
// is torn down first, so a replaced buffer is never drawn by a stale loop.
type Loop struct {
	clock FrameClock
	draw  DrawFunc
	now   func() time.Time

	mu     sync.Mutex
	state  State
	events []int64
	quit   chan struct{}
	done   chan struct{}

	// drawMu serialises frames with out-of-band redraws.
	drawMu sync.Mutex
}

// NewLoop returns a stopped loop.
func NewLoop(clock FrameClock, draw DrawFunc) *Loop {
	if clock == nil {
		clock = TickerClock{}
	}
	return &Loop{clock: clock, draw: draw, now: time.Now}
}

// Start (re)enters Running with events as the frame input.
func (l *Loop) Start(events []int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.stopLocked()

	ticks, stopClock := l.clock.Start()
	quit := make(chan struct{})
	done := make(chan struct{})
	l.events = events
	l.quit, l.done = quit, done
	l.state = Running

	go func() {
		defer close(done)
		defer stopClock()
		for {
			select {
			case <-quit:
				return
			case <-ticks:
				// The quit check wins over a tick that raced with Stop.
				select {
				case <-quit:
					return
				default:
				}
				l.frame(events)
			}
		}
	}()
}

// Stop cancels the pending frame and waits for the loop to exit.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopLocked()
}

func (l *Loop) stopLocked() {
	if l.state != Running {
		return
	}
	close(l.quit)
	<-l.done
	l.quit, l.done = nil, nil
	l.state = Stopped
}

// State reports whether frames are being scheduled.
func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Redraw draws one frame immediately with the current buffer, independent
// of the frame cadence and of the loop's state.
func (l *Loop) Redraw() {
	l.mu.Lock()
	events := l.events
	l.mu.Unlock()
	l.frame(events)
}

func (l *Loop) frame(events []int64) {
	l.drawMu.Lock()
	defer l.drawMu.Unlock()
	l.draw(events, l.now())
}
