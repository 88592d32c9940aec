package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	pkgerrors "github.com/angelmondragon/donorjournal-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoRetriesConcurrencyConflicts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Policy{Attempts: 3, BaseDelay: time.Millisecond}, func(context.Context) error {
		calls++
		if calls < 3 {
			return pkgerrors.New(pkgerrors.CodeConcurrencyConflict, "stale version")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoGivesUpAfterAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Policy{Attempts: 2, BaseDelay: time.Millisecond}, func(context.Context) error {
		calls++
		return pkgerrors.New(pkgerrors.CodeDependency, "db down")
	})
	require.Error(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.CodeOf(err))
}

func TestDoDoesNotRetryPermanentErrors(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Policy{Attempts: 5, BaseDelay: time.Millisecond}, func(context.Context) error {
		calls++
		return pkgerrors.New(pkgerrors.CodeDuplicateDecision, "exists")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeDuplicateDecision))

	calls = 0
	plain := errors.New("plain")
	err = Do(context.Background(), Policy{Attempts: 5, BaseDelay: time.Millisecond}, func(context.Context) error {
		calls++
		return plain
	})
	assert.ErrorIs(t, err, plain)
	assert.Equal(t, 1, calls)
}

func TestDoStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, Policy{Attempts: 10, BaseDelay: 50 * time.Millisecond}, func(context.Context) error {
		calls++
		cancel()
		return pkgerrors.New(pkgerrors.CodeConcurrencyConflict, "stale version")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestBackoffGrowsAndCaps(t *testing.T) {
	b := Backoff(100*time.Millisecond, 300*time.Millisecond, 0)

	var got []time.Duration
	for i := 0; i < 4; i++ {
		d, stop := b.Next()
		require.False(t, stop)
		got = append(got, d)
	}
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 300 * time.Millisecond, 300 * time.Millisecond}, got)
}

func TestBackoffJitterStaysInWindow(t *testing.T) {
	b := Backoff(time.Second, time.Second, 250*time.Millisecond)
	for i := 0; i < 20; i++ {
		d, _ := b.Next()
		assert.GreaterOrEqual(t, d, 750*time.Millisecond)
		assert.LessOrEqual(t, d, 1250*time.Millisecond)
	}
}
