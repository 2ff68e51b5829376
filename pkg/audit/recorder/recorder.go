package recorder

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"mercator-hq/custodian/pkg/audit"
)

// ErrClosed is reported to the failure callback for events emitted after
// Close.
var ErrClosed = errors.New("audit recorder closed")

// Config contains configuration for the audit recorder.
type Config struct {
	// Enabled enables audit recording.
	Enabled bool

	// AsyncBuffer is the size of the async write channel buffer.
	// Zero writes every event synchronously inside Emit.
	// Default: 1000
	AsyncBuffer int

	// WriteTimeout bounds a single sink write and the wait for buffer space.
	// Default: 5 seconds
	WriteTimeout time.Duration
}

// DefaultConfig returns the default recorder configuration.
func DefaultConfig() *Config {
	return &Config{
		Enabled:      true,
		AsyncBuffer:  1000,
		WriteTimeout: 5 * time.Second,
	}
}

// FailureFunc is called whenever an event cannot be written.
type FailureFunc func(event *audit.Event, err error)

// Recorder is an audit.Emitter that writes events to a Sink. In async mode
// a background worker drains a buffered channel so emitters never block on
// sink I/O.
type Recorder struct {
	sink      audit.Sink
	config    *Config
	eventChan chan *audit.Event
	wg        sync.WaitGroup
	done      chan struct{}
	closeOnce sync.Once

	// mu orders Emit against Close. Emit holds the read lock while it
	// enqueues; Close flips closed under the write lock before the worker
	// drains, so every enqueued event is written.
	mu     sync.RWMutex
	closed bool

	onFailure FailureFunc
	logger    *slog.Logger
}

// NewRecorder creates a new audit recorder writing to sink.
func NewRecorder(sink audit.Sink, config *Config) *Recorder {
	if config == nil {
		config = DefaultConfig()
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 5 * time.Second
	}

	r := &Recorder{
		sink:   sink,
		config: config,
		done:   make(chan struct{}),
		logger: slog.Default().With("component", "audit.recorder"),
	}

	if config.AsyncBuffer > 0 {
		r.eventChan = make(chan *audit.Event, config.AsyncBuffer)
		r.wg.Add(1)
		go r.worker()
	}

	r.logger.Info("audit recorder initialized",
		"enabled", config.Enabled,
		"async_buffer", config.AsyncBuffer,
		"write_timeout", config.WriteTimeout,
	)

	return r
}

// OnFailure registers a callback invoked for every failed or dropped event.
// It must be called before the first Emit.
func (r *Recorder) OnFailure(fn FailureFunc) {
	r.onFailure = fn
}

// Emit records an event. It never blocks longer than WriteTimeout and
// never returns an error; failures are logged.
func (r *Recorder) Emit(ctx context.Context, event *audit.Event) {
	if !r.config.Enabled || event == nil {
		return
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		r.logger.Warn("recorder closed, dropping event",
			"event_id", event.ID,
			"action", event.Action,
		)
		r.fail(event, ErrClosed)
		return
	}

	if r.eventChan == nil {
		r.writeEvent(event)
		return
	}

	select {
	case r.eventChan <- event:
		r.logger.Debug("audit event enqueued",
			"event_id", event.ID,
			"action", event.Action,
		)
	case <-time.After(r.config.WriteTimeout):
		r.logger.Error("audit channel full, dropping event",
			"event_id", event.ID,
			"action", event.Action,
			"channel_capacity", r.config.AsyncBuffer,
		)
		r.fail(event, context.DeadlineExceeded)
	}
}

// Close drains pending events and stops the worker. The sink is not closed.
func (r *Recorder) Close() error {
	r.closeOnce.Do(func() {
		r.logger.Info("shutting down audit recorder")
		r.mu.Lock()
		r.closed = true
		r.mu.Unlock()
		close(r.done)
		r.wg.Wait()
		r.logger.Info("audit recorder shut down complete")
	})
	return nil
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case event := <-r.eventChan:
			r.writeEvent(event)

		case <-r.done:
			r.logger.Info("draining audit channel before shutdown",
				"pending_count", len(r.eventChan),
			)
			for {
				select {
				case event := <-r.eventChan:
					r.writeEvent(event)
				default:
					r.logger.Info("audit channel drained")
					return
				}
			}
		}
	}
}

func (r *Recorder) writeEvent(event *audit.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	start := time.Now()

	id, err := r.sink.Append(ctx, event)
	if err != nil {
		r.logger.Error("failed to append audit event",
			"event_id", event.ID,
			"action", event.Action,
			"entity_id", event.EntityID,
			"error", err,
		)
		r.fail(event, err)
		return
	}

	duration := time.Since(start)
	r.logger.Debug("audit event recorded",
		"event_id", id,
		"action", event.Action,
		"duration_ms", duration.Milliseconds(),
	)

	if duration > r.config.WriteTimeout/2 {
		r.logger.Warn("slow audit write",
			"event_id", id,
			"duration_ms", duration.Milliseconds(),
			"threshold_ms", (r.config.WriteTimeout / 2).Milliseconds(),
		)
	}
}

func (r *Recorder) fail(event *audit.Event, err error) {
	if r.onFailure != nil {
		r.onFailure(event, err)
	}
}
