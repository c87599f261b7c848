// Package sequencer runs an ordered list of steps against a shared owner.
//
// Each step starts only after the previous one returned. The first failing
// step ends the run and its error is the result. Cancellation is checked
// between steps: a step already running is allowed to finish, no later step
// starts, and the result is a cancellation error. A Sequence runs once.
package sequencer

import (
	"context"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Iron-Ham/idecore/internal/errors"
	"github.com/Iron-Ham/idecore/internal/logging"
)

// TracerName is the instrumentation scope used for step spans.
const TracerName = "github.com/Iron-Ham/idecore/internal/sequencer"

// StepFunc performs one unit of work for owner.
type StepFunc[T any] func(ctx context.Context, owner T) error

// Step is a named StepFunc.
type Step[T any] struct {
	Name string
	Fn   StepFunc[T]
}

// Named builds a Step.
func Named[T any](name string, fn StepFunc[T]) Step[T] {
	return Step[T]{Name: name, Fn: fn}
}

// Observer is notified around every step. Implementations must be safe for
// concurrent use when shared between sequences.
type Observer interface {
	StepStarted(sequence, step string)
	StepFinished(sequence, step string, elapsed time.Duration, err error)
}

// Option configures a Sequence.
type Option func(*config)

type config struct {
	name     string
	logger   *logging.Logger
	observer Observer
	tracer   trace.Tracer
}

// WithName sets the sequence name used in spans, logs and observer calls.
func WithName(name string) Option {
	return func(c *config) { c.name = name }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithObserver registers an observer for step timings.
func WithObserver(o Observer) Option {
	return func(c *config) { c.observer = o }
}

// WithTracer overrides the tracer obtained from the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(c *config) {
		if t != nil {
			c.tracer = t
		}
	}
}

// Sequence is a single-use run of steps over owner.
type Sequence[T any] struct {
	cfg     config
	owner   T
	steps   []Step[T]
	started atomic.Bool

	failedStep atomic.Pointer[string]
	completed  atomic.Int32
}

// New creates a run instance. The steps slice is copied.
func New[T any](owner T, steps []Step[T], opts ...Option) *Sequence[T] {
	cfg := config{
		name:   "sequence",
		logger: logging.NopLogger(),
		tracer: otel.Tracer(TracerName),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.logger = cfg.logger.WithComponent("sequencer").With("sequence", cfg.name)

	return &Sequence[T]{
		cfg:   cfg,
		owner: owner,
		steps: append([]Step[T](nil), steps...),
	}
}

// Run executes the steps in order and blocks until the run ends.
// A second call returns errors.ErrAlreadyStarted without running anything.
func (s *Sequence[T]) Run(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return errors.ErrAlreadyStarted
	}

	ctx, span := s.cfg.tracer.Start(ctx, s.cfg.name,
		trace.WithAttributes(attribute.Int("sequence.steps", len(s.steps))))
	defer span.End()

	for i, step := range s.steps {
		if err := ctx.Err(); err != nil {
			s.cfg.logger.Debug("sequence canceled", "next_step", step.Name, "completed", i)
			return s.canceled(span, step.Name, err)
		}

		if err := s.runStep(ctx, step); err != nil {
			s.setFailedStep(step.Name)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
		s.completed.Add(1)
	}

	// cancellation requested while the last step ran still cancels the run
	if err := ctx.Err(); err != nil && len(s.steps) > 0 {
		last := s.steps[len(s.steps)-1].Name
		s.cfg.logger.Debug("sequence canceled after last step", "step", last)
		return s.canceled(span, last, err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

func (s *Sequence[T]) canceled(span trace.Span, step string, cause error) error {
	s.setFailedStep(step)
	cerr := errors.NewCanceledError(s.cfg.name, cause)
	span.SetStatus(codes.Error, cerr.Error())
	return cerr
}

func (s *Sequence[T]) setFailedStep(name string) {
	s.failedStep.Store(&name)
}

func (s *Sequence[T]) runStep(ctx context.Context, step Step[T]) error {
	ctx, span := s.cfg.tracer.Start(ctx, s.cfg.name+"."+step.Name,
		trace.WithAttributes(attribute.String("sequence.step", step.Name)))
	defer span.End()

	if s.cfg.observer != nil {
		s.cfg.observer.StepStarted(s.cfg.name, step.Name)
	}
	start := time.Now()

	err := step.Fn(ctx, s.owner)

	elapsed := time.Since(start)
	if s.cfg.observer != nil {
		s.cfg.observer.StepFinished(s.cfg.name, step.Name, elapsed, err)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.cfg.logger.Debug("step failed", "step", step.Name, "duration_ms", elapsed.Milliseconds(), "error", err.Error())
		return err
	}
	s.cfg.logger.Debug("step completed", "step", step.Name, "duration_ms", elapsed.Milliseconds())
	return nil
}

// Start runs the sequence on a new goroutine and calls done exactly once
// with the result.
func (s *Sequence[T]) Start(ctx context.Context, done func(error)) {
	go func() {
		err := s.Run(ctx)
		if done != nil {
			done(err)
		}
	}()
}

// FailedStep returns the name of the step whose error ended the run. For a
// canceled run it is the step that was not started, or the last step when
// cancellation arrived while it ran. It is "" if the run succeeded.
func (s *Sequence[T]) FailedStep() string {
	if p := s.failedStep.Load(); p != nil {
		return *p
	}
	return ""
}

// Completed returns how many steps finished successfully.
func (s *Sequence[T]) Completed() int {
	return int(s.completed.Load())
}

// Name returns the sequence name.
func (s *Sequence[T]) Name() string {
	return s.cfg.name
}
