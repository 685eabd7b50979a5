package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/movingbox/inventory-archive/internal/logging"
)

// Operation is a running export or import. Its event stream must be drained
// (or the operation cancelled) for the run to make progress.
type Operation[R any] struct {
	ID   uuid.UUID
	Name string

	events chan Event
	cancel context.CancelFunc
	done   chan struct{}

	result R
	err    error
}

// ExportOperation is a running export.
type ExportOperation = Operation[ExportResult]

// ImportOperation is a running import.
type ImportOperation = Operation[ImportResult]

// Events returns the progress stream. It is closed when the run ends; the
// last event is ExportCompleted, ImportCompleted or Failed unless the run
// was cancelled.
func (o *Operation[R]) Events() <-chan Event { return o.events }

// Cancel asks the run to stop at its next batch or phase boundary. No
// further events are sent once it is observed.
func (o *Operation[R]) Cancel() { o.cancel() }

// Done is closed after the event stream has been closed.
func (o *Operation[R]) Done() <-chan struct{} { return o.done }

// Wait blocks until the run ends and returns its outcome. A cancelled run
// returns the context error.
func (o *Operation[R]) Wait() (R, error) {
	<-o.done
	return o.result, o.err
}

// Drain consumes the remaining events and returns the outcome.
func (o *Operation[R]) Drain() (R, error) {
	for range o.events {
	}
	return o.Wait()
}

type runFunc[R any] func(ctx context.Context, em *emitter) (R, error)

// startOperation runs fn in its own goroutine under the service's operation
// limiter and reports through a new Operation.
func startOperation[R any](parent context.Context, s *Service, name string,
	mapper func(Event) (float64, string), fn runFunc[R], completed func(R) Event) *Operation[R] {

	id := uuid.New()
	ctx, cancel := context.WithCancel(parent)
	if s.logger != nil {
		ctx = logging.WithLogger(ctx, s.logger)
	}
	ctx = logging.WithOperation(ctx, name, id)
	logger := logging.FromContext(ctx)

	op := &Operation[R]{
		ID:     id,
		Name:   name,
		events: make(chan Event),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	em := &emitter{ctx: ctx, ch: op.events, mapper: mapper}

	go func() {
		defer close(op.done)
		defer close(op.events)
		defer cancel()

		if err := s.limiter.TryAcquire(name); err != nil {
			logger.Warn("operation rejected", "error", err)
			op.err = err
			em.finish(Failed{Err: NewEnvelope(err)})
			return
		}
		defer s.limiter.Release()

		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic in operation", "panic", r)
				op.err = &Error{Kind: KindIO, Op: name, Err: fmt.Errorf("internal error: %v", r)}
				em.finish(Failed{Err: NewEnvelope(op.err)})
			}
		}()

		logger.Debug("operation started")
		res, err := fn(ctx, em)
		switch {
		case err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()):
			logger.Info("operation cancelled")
			op.err = ctx.Err()
		case err != nil:
			pe := newError(name, "", err)
			logger.Error("operation failed", "kind", pe.Kind, "code", pe.Kind.Code(), "error", pe)
			op.err = pe
			em.finish(Failed{Err: NewEnvelope(pe)})
		default:
			logger.Info("operation completed")
			op.result = res
			em.finish(completed(res))
		}
	}()

	return op
}
