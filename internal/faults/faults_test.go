package faults

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/orders-service/internal/apperr"
)

func TestInject_DisabledByDefault(t *testing.T) {
	inj := New(Config{})
	assert.False(t, inj.Enabled())
	for i := 0; i < 100; i++ {
		require.NoError(t, inj.Inject(context.Background()))
	}

	var nilInjector *Injector
	assert.NoError(t, nilInjector.Inject(context.Background()))
}

func TestInject_ErrorRate(t *testing.T) {
	inj := New(Config{ErrorEnabled: true, ErrorRate: 0.8, Seed: 42})

	const trials = 1000
	failures := 0
	for i := 0; i < trials; i++ {
		if err := inj.Inject(context.Background()); err != nil {
			require.ErrorIs(t, err, apperr.ErrFaultInjected)
			failures++
		}
	}
	rate := float64(failures) / trials
	assert.GreaterOrEqual(t, rate, 0.75)
	assert.LessOrEqual(t, rate, 0.85)
}

func TestInject_SameSeedSameSequence(t *testing.T) {
	a := New(Config{ErrorEnabled: true, ErrorRate: 0.5, Seed: 7})
	b := New(Config{ErrorEnabled: true, ErrorRate: 0.5, Seed: 7})
	for i := 0; i < 50; i++ {
		assert.Equal(t, a.Inject(context.Background()), b.Inject(context.Background()))
	}
}

func TestInject_ZeroRateNeverFails(t *testing.T) {
	inj := New(Config{ErrorEnabled: true, ErrorRate: 0, Seed: 7})
	for i := 0; i < 1000; i++ {
		require.NoError(t, inj.Inject(context.Background()))
	}
}

func TestInject_FullRateAlwaysFails(t *testing.T) {
	inj := New(Config{ErrorEnabled: true, ErrorRate: 1, Seed: 7})
	for i := 0; i < 100; i++ {
		require.ErrorIs(t, inj.Inject(context.Background()), apperr.ErrFaultInjected)
	}
}

func TestInject_Latency(t *testing.T) {
	inj := New(Config{LatencyEnabled: true, Latency: 20 * time.Millisecond})

	start := time.Now()
	require.NoError(t, inj.Inject(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestInject_LatencyRespectsCancellation(t *testing.T) {
	inj := New(Config{LatencyEnabled: true, Latency: time.Hour})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := inj.Inject(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
