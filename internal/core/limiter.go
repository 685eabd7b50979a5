package core

// limiter.go keeps export, import and backup runs against one store
// mutually exclusive. A second run is rejected immediately with
// ErrOperationInProgress instead of queueing behind the first.

import (
	"context"
	"sync"
	"time"
)

// OperationLimiter is a semaphore of operation slots.
type OperationLimiter struct {
	semaphore chan struct{}

	mu      sync.RWMutex
	active  string
	started time.Time
}

// NewOperationLimiter returns a limiter allowing maxConcurrent runs; values
// below 1 mean one.
func NewOperationLimiter(maxConcurrent int) *OperationLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &OperationLimiter{semaphore: make(chan struct{}, maxConcurrent)}
}

// TryAcquire takes a slot for op without blocking. It returns
// ErrOperationInProgress when every slot is taken.
// The caller MUST call Release when the run completes.
func (l *OperationLimiter) TryAcquire(op string) error {
	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active = op
		l.started = time.Now()
		l.mu.Unlock()
		return nil
	default:
		l.mu.RLock()
		running := l.active
		l.mu.RUnlock()
		return &Error{Kind: KindOperationInProgress, Op: op, Err: errBusy(running)}
	}
}

// Release frees a slot taken by TryAcquire.
func (l *OperationLimiter) Release() {
	l.mu.Lock()
	l.active = ""
	l.mu.Unlock()
	<-l.semaphore
}

// Active returns the name of the most recently started run and when it
// started, or "" when idle.
func (l *OperationLimiter) Active() (string, time.Time) {
	if len(l.semaphore) == 0 {
		return "", time.Time{}
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active, l.started
}

// WaitForDrain blocks until no run holds a slot or ctx is done.
func (l *OperationLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		if len(l.semaphore) == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

type errBusy string

func (e errBusy) Error() string {
	if e == "" {
		return "another operation is running"
	}
	return string(e) + " is running"
}
