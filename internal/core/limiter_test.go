package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperationLimiter_TryAcquire(t *testing.T) {
	l := NewOperationLimiter(1)

	name, _ := l.Active()
	assert.Empty(t, name)

	require.NoError(t, l.TryAcquire("export"))
	name, started := l.Active()
	assert.Equal(t, "export", name)
	assert.False(t, started.IsZero())

	err := l.TryAcquire("import")
	require.ErrorIs(t, err, ErrOperationInProgress)
	assert.Contains(t, err.Error(), "export is running")

	l.Release()
	require.NoError(t, l.TryAcquire("import"))
	l.Release()
}

func TestOperationLimiter_Concurrent(t *testing.T) {
	l := NewOperationLimiter(0) // one slot

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		won     int
		started = make(chan struct{})
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-started
			if l.TryAcquire("export") == nil {
				mu.Lock()
				won++
				mu.Unlock()
			}
		}()
	}
	close(started)
	wg.Wait()
	assert.Equal(t, 1, won)
}

func TestOperationLimiter_WaitForDrain(t *testing.T) {
	l := NewOperationLimiter(1)
	require.NoError(t, l.TryAcquire("backup"))

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, l.WaitForDrain(ctx), context.DeadlineExceeded)

	go func() {
		time.Sleep(20 * time.Millisecond)
		l.Release()
	}()
	assert.NoError(t, l.WaitForDrain(context.Background()))
}
