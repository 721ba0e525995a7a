// Package faults injects artificial latency and failures into order creation
// so callers' retry and alerting paths can be exercised.
package faults

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/imrishuroy/orders-service/internal/apperr"
)

const (
	DefaultLatency   = 2 * time.Second
	DefaultErrorRate = 0.8
)

// Config toggles the two hooks independently. Both are off by default.
type Config struct {
	LatencyEnabled bool
	Latency        time.Duration
	ErrorEnabled   bool
	ErrorRate      float64
	Seed           uint64 // 0 picks a time-based seed
}

// Injector applies Config on every call to Inject.
type Injector struct {
	cfg Config

	mu  sync.Mutex
	rng *rand.Rand
}

// New returns an Injector using cfg as given: a zero ErrorRate never fails and
// a zero Latency never sleeps. Defaults are applied by the config layer.
func New(cfg Config) *Injector {
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Injector{
		cfg: cfg,
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Enabled reports whether any hook is active.
func (i *Injector) Enabled() bool {
	return i != nil && (i.cfg.LatencyEnabled || i.cfg.ErrorEnabled)
}

// Inject sleeps when latency is enabled, then fails with
// apperr.ErrFaultInjected with probability ErrorRate when errors are enabled.
// A nil Injector does nothing.
func (i *Injector) Inject(ctx context.Context) error {
	if !i.Enabled() {
		return nil
	}
	if i.cfg.LatencyEnabled {
		timer := time.NewTimer(i.cfg.Latency)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	if i.cfg.ErrorEnabled && i.roll() < i.cfg.ErrorRate {
		return apperr.ErrFaultInjected
	}
	return nil
}

func (i *Injector) roll() float64 {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.rng.Float64()
}
