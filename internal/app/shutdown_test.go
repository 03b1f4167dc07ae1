package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestShutdownHandler_ClosesInReverseOrder(t *testing.T) {
	sh := NewShutdownHandler(zap.NewNop(), time.Second)

	var mu sync.Mutex
	var order []string
	for _, name := range []string{"store", "journal", "bus"} {
		name := name
		sh.AddFunc(name, func() error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return nil
		})
	}

	require.NoError(t, sh.Shutdown(context.Background()))
	assert.Equal(t, []string{"bus", "journal", "store"}, order)

	// A second call has nothing left to close.
	require.NoError(t, sh.Shutdown(context.Background()))
	assert.Len(t, order, 3)
}

func TestShutdownHandler_CollectsErrors(t *testing.T) {
	sh := NewShutdownHandler(zap.NewNop(), time.Second)
	boom := errors.New("boom")

	closed := false
	sh.AddFunc("store", func() error { closed = true; return nil })
	sh.AddFunc("journal", func() error { return boom })

	err := sh.Shutdown(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "journal")
	assert.True(t, closed, "later services still close after a failure")
}

func TestShutdownHandler_Timeout(t *testing.T) {
	sh := NewShutdownHandler(zap.NewNop(), 20*time.Millisecond)

	release := make(chan struct{})
	defer close(release)
	sh.AddFunc("stuck", func() error { <-release; return nil })

	err := sh.Shutdown(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}

func TestShutdownHandler_ContextCancelled(t *testing.T) {
	sh := NewShutdownHandler(zap.NewNop(), time.Minute)

	release := make(chan struct{})
	defer close(release)
	sh.AddFunc("stuck", func() error { <-release; return nil })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := sh.Shutdown(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
