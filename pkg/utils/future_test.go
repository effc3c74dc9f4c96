package utils

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFutureResolve(t *testing.T) {
	f := NewFuture[string]()
	assert.False(t, f.IsDone())

	results := make([]string, 5)
	wg := sync.WaitGroup{}
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			value, err := f.Result()
			assert.NoError(t, err)
			results[i] = value
		}(i)
	}

	f.Resolve("abab")
	wg.Wait()

	for _, value := range results {
		assert.Equal(t, "abab", value)
	}
	assert.True(t, f.IsDone())
}

func TestFutureReject(t *testing.T) {
	f := RejectedFuture[int](ErrConnectionLost)

	value, err := f.Result()
	assert.Equal(t, 0, value)
	assert.True(t, errors.Is(err, ErrConnectionLost))
}

func TestFutureDoubleResolutionPanics(t *testing.T) {
	f := NewFuture[int]()
	f.Resolve(1)

	assert.PanicsWithValue(t, ErrAlreadyResolved, func() {
		f.Resolve(2)
	})
	assert.PanicsWithValue(t, ErrAlreadyResolved, func() {
		f.Reject(ErrNotFound)
	})

	value, err := f.Result()
	assert.NoError(t, err)
	assert.Equal(t, 1, value)
}

func TestFutureWaitContext(t *testing.T) {
	f := NewFuture[int]()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := f.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// The future is unaffected by the expired wait
	f.Resolve(3)
	value, err := f.Wait(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 3, value)
}
