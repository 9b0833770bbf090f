// Package dispatcher routes session commands to their handlers.
package dispatcher

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Event is one session command with its arguments. Payload carries state
// resolved by a prepare step for a queued handler.
type Event struct {
	Command   string
	Args      []string
	Timestamp time.Time
	Payload   any
}

// Outcome is the result of a queued event.
type Outcome struct {
	Event  Event
	Result any
	Err    error
}

// ParseLine splits a script line into an event. Blank lines and lines
// starting with '#' yield ok=false.
func ParseLine(line string) (e Event, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return Event{}, false
	}
	fields := strings.Fields(line)
	return Event{Command: fields[0], Args: fields[1:], Timestamp: time.Now()}, true
}

// HandlerFunc processes an event and returns a result.
type HandlerFunc func(Event) (any, error)

// PrepareFunc runs synchronously before a buffered event is queued. The
// returned event is the one queued; an error rejects the event.
type PrepareFunc func(Event) (Event, error)

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*config)

type config struct {
	bufferSize int
	blocking   bool
	logged     bool
	prepare    PrepareFunc
}

// Buffered makes the handler async with a queue of the given size.
func Buffered(size int) Option {
	return func(c *config) {
		c.bufferSize = size
	}
}

// Blocking makes a buffered handler block when the queue is full instead of dropping.
func Blocking() Option {
	return func(c *config) {
		c.blocking = true
	}
}

// Prepared resolves a buffered event at dispatch time, so the queued
// handler does not depend on state that changes after dispatch.
func Prepared(fn PrepareFunc) Option {
	return func(c *config) {
		c.prepare = fn
	}
}

// Logged adds debug logging to the handler.
func Logged() Option {
	return func(c *config) {
		c.logged = true
	}
}

// Dispatcher routes events to registered handlers.
type Dispatcher struct {
	handlers map[string]HandlerFunc
	logger   Logger

	queueSize  metric.Int64ObservableGauge
	dispatched metric.Int64Counter
	dropped    metric.Int64Counter
	failed     metric.Int64Counter

	mu       sync.RWMutex
	buffers  map[string]chan Event
	pending  sync.WaitGroup // buffered events not yet handled
	outcomes []Outcome      // finished buffered events not yet collected
}

// New creates a new Dispatcher with the given logger.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		handlers: make(map[string]HandlerFunc),
		buffers:  make(map[string]chan Event),
		logger:   logger,
	}

	m := meter()

	var err error

	d.queueSize, err = m.Int64ObservableGauge(
		"session.queue.size",
		metric.WithDescription("Current number of commands in queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating queue size gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			d.mu.RLock()
			defer d.mu.RUnlock()
			for cmd, buf := range d.buffers {
				o.ObserveInt64(d.queueSize, int64(len(buf)),
					metric.WithAttributes(attribute.String("command", cmd)))
			}
			return nil
		},
		d.queueSize,
	)
	if err != nil {
		return nil, fmt.Errorf("registering queue callback: %w", err)
	}

	d.dispatched, err = m.Int64Counter(
		"session.commands.dispatched",
		metric.WithDescription("Total commands dispatched"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}

	d.dropped, err = m.Int64Counter(
		"session.commands.dropped",
		metric.WithDescription("Total commands dropped due to full queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}

	d.failed, err = m.Int64Counter(
		"session.commands.failed",
		metric.WithDescription("Total commands whose handler returned an error"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating failed counter: %w", err)
	}

	return d, nil
}

// Register adds a handler for the given command with optional configuration.
func (d *Dispatcher) Register(command string, h HandlerFunc, opts ...Option) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	handler := h

	if cfg.logged {
		handler = d.withLogging(command, handler)
	}

	if cfg.bufferSize > 0 {
		handler = d.withBuffer(command, cfg.bufferSize, cfg.blocking, cfg.logged, handler)
		if cfg.prepare != nil {
			handler = d.withPrepare(command, cfg.logged, cfg.prepare, handler)
		}
	}

	d.handlers[command] = handler
}

// Dispatch routes an event to its registered handler.
func (d *Dispatcher) Dispatch(e Event) (any, error) {
	h, ok := d.handlers[e.Command]
	if !ok {
		return nil, fmt.Errorf("unknown command: %s", e.Command)
	}
	result, err := h(e)
	d.dispatched.Add(context.Background(), 1, metric.WithAttributes(attribute.String("command", e.Command)))
	return result, err
}

// HasHandler returns true if a handler is registered for the command.
func (d *Dispatcher) HasHandler(command string) bool {
	_, ok := d.handlers[command]
	return ok
}

// Commands returns the registered command names.
func (d *Dispatcher) Commands() []string {
	out := make([]string, 0, len(d.handlers))
	for cmd := range d.handlers {
		out = append(out, cmd)
	}
	return out
}

// Wait blocks until every queued event of a buffered handler has been
// handled.
func (d *Dispatcher) Wait() {
	d.pending.Wait()
}

// Completed returns the outcomes of queued events finished since the last
// call, in completion order. It does not wait.
func (d *Dispatcher) Completed() []Outcome {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := d.outcomes
	d.outcomes = nil
	return out
}

func (d *Dispatcher) addOutcome(o Outcome) {
	d.mu.Lock()
	d.outcomes = append(d.outcomes, o)
	d.mu.Unlock()
}

func (d *Dispatcher) withBuffer(command string, size int, blocking, logged bool, h HandlerFunc) HandlerFunc {
	buffer := make(chan Event, size)

	d.mu.Lock()
	d.buffers[command] = buffer
	d.mu.Unlock()

	cmdAttr := attribute.String("command", command)

	go func() {
		for e := range buffer {
			result, err := h(e)
			if err != nil && !logged {
				d.failed.Add(context.Background(), 1, metric.WithAttributes(cmdAttr))
				d.logger.Error("queued command failed", "command", command, "error", err)
			}
			d.addOutcome(Outcome{Event: e, Result: result, Err: err})
			d.pending.Done()
		}
	}()

	if blocking {
		return func(e Event) (any, error) {
			d.pending.Add(1)
			buffer <- e
			return "queued", nil
		}
	}

	return func(e Event) (any, error) {
		d.pending.Add(1)
		select {
		case buffer <- e:
			return "queued", nil
		default:
			d.pending.Done()
			d.dropped.Add(context.Background(), 1, metric.WithAttributes(cmdAttr))
			return nil, fmt.Errorf("queue full: %s", command)
		}
	}
}

func (d *Dispatcher) withPrepare(command string, logged bool, prepare PrepareFunc, enqueue HandlerFunc) HandlerFunc {
	return func(e Event) (any, error) {
		prepared, err := prepare(e)
		if err != nil {
			if logged {
				d.failed.Add(context.Background(), 1, metric.WithAttributes(attribute.String("command", command)))
				d.logger.Error("command rejected", "command", command, "error", err)
			}
			return nil, err
		}
		return enqueue(prepared)
	}
}

func (d *Dispatcher) withLogging(command string, h HandlerFunc) HandlerFunc {
	return func(e Event) (any, error) {
		start := time.Now()
		d.logger.Debug("handling command", "command", command, "args", len(e.Args))

		result, err := h(e)

		if err != nil {
			d.failed.Add(context.Background(), 1, metric.WithAttributes(attribute.String("command", command)))
			d.logger.Error("command failed", "command", command, "duration", time.Since(start), "error", err)
		} else {
			d.logger.Debug("command complete", "command", command, "duration", time.Since(start))
		}

		return result, err
	}
}
