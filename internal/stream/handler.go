package stream

import (
	"errors"
	"log"
	"net/http"
	"time"
)

// HandlerOptions tunes the push endpoint.
type HandlerOptions struct {
	// Heartbeat is the interval between keep-alive comments.
	Heartbeat time.Duration
	// AllowOrigin is sent as Access-Control-Allow-Origin.
	AllowOrigin string
	// ClientRetry is advertised to clients as their reconnection delay.
	ClientRetry time.Duration
}

// Handler serves the push feed: one subscription per connection, held open
// until the client goes away or the hub closes.
type Handler struct {
	hub    *Hub
	opts   HandlerOptions
	logger *log.Logger
}

// NewHandler builds the push endpoint on hub.
func NewHandler(hub *Hub, opts HandlerOptions, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = 15 * time.Second
	}
	if opts.AllowOrigin == "" {
		opts.AllowOrigin = "*"
	}
	if opts.ClientRetry <= 0 {
		opts.ClientRetry = time.Second
	}
	return &Handler{hub: hub, opts: opts, logger: logger}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)

	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache, no-transform")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	header.Set("Access-Control-Allow-Origin", h.opts.AllowOrigin)

	// The server-wide write timeout would otherwise cut the stream.
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		h.logger.Printf("stream: clear write deadline: %v", err)
	}

	w.WriteHeader(http.StatusOK)
	enc := NewEncoder(w)
	if err := enc.Retry(h.opts.ClientRetry); err != nil {
		connections.WithLabelValues("write_error").Inc()
		return
	}
	if err := rc.Flush(); err != nil {
		h.logger.Printf("stream: flush unsupported: %v", err)
		connections.WithLabelValues("flush_unsupported").Inc()
		return
	}

	sub := h.hub.Subscribe()
	defer h.hub.Unsubscribe(sub)

	heartbeat := time.NewTicker(h.opts.Heartbeat)
	defer heartbeat.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			connections.WithLabelValues("client_closed").Inc()
			return
		case agg, ok := <-sub.C():
			if !ok {
				connections.WithLabelValues("server_closed").Inc()
				return
			}
			if err := enc.Encode(agg); err != nil {
				h.logger.Printf("stream: write aggregate to %s: %v", sub.ID, err)
				connections.WithLabelValues("write_error").Inc()
				return
			}
		case <-heartbeat.C:
			if err := enc.Comment("keep-alive"); err != nil {
				connections.WithLabelValues("write_error").Inc()
				return
			}
		}
		if err := rc.Flush(); err != nil {
			connections.WithLabelValues("write_error").Inc()
			return
		}
	}
}
