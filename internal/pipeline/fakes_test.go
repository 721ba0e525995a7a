package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/imrishuroy/orders-service/internal/idempotency"
	"github.com/imrishuroy/orders-service/internal/orders"
)

// memIdempotency is an in-memory idempotency.Store driven by a settable clock.
type memIdempotency struct {
	mu      sync.Mutex
	now     time.Time
	window  time.Duration
	records map[string]memRecord

	beginErr    error
	completeErr error
	releaseErr  error

	begins, proceeds, completes, releases int
}

type memRecord struct {
	status  string
	body    []byte
	expires time.Time
}

func newMemIdempotency() *memIdempotency {
	return &memIdempotency{
		now:     time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		window:  30 * time.Second,
		records: map[string]memRecord{},
	}
}

func (m *memIdempotency) Begin(ctx context.Context, key string) (idempotency.Result, error) {
	if err := ctx.Err(); err != nil {
		return idempotency.Result{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.begins++
	if m.beginErr != nil {
		return idempotency.Result{}, m.beginErr
	}
	if rec, ok := m.records[key]; ok && m.now.Before(rec.expires) {
		if rec.status == idempotency.StatusCompleted {
			return idempotency.Result{Outcome: idempotency.Duplicate, ResponseBody: rec.body}, nil
		}
		return idempotency.Result{Outcome: idempotency.InProgress}, nil
	}
	m.records[key] = memRecord{status: idempotency.StatusInProgress, expires: m.now.Add(m.window)}
	m.proceeds++
	return idempotency.Result{Outcome: idempotency.Proceed}, nil
}

func (m *memIdempotency) Complete(ctx context.Context, key string, responseBody []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completes++
	if m.completeErr != nil {
		return m.completeErr
	}
	rec, ok := m.records[key]
	if !ok || rec.status != idempotency.StatusInProgress {
		return idempotency.ErrReservationLost
	}
	m.records[key] = memRecord{status: idempotency.StatusCompleted, body: responseBody, expires: m.now.Add(m.window)}
	return nil
}

func (m *memIdempotency) Release(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releases++
	if m.releaseErr != nil {
		return m.releaseErr
	}
	if rec, ok := m.records[key]; ok && rec.status == idempotency.StatusInProgress {
		delete(m.records, key)
	}
	return nil
}

func (m *memIdempotency) advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

func (m *memIdempotency) status(key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records[key].status
}

// countingUpserter records every order written.
type countingUpserter struct {
	mu     sync.Mutex
	orders []*orders.Order
	err    error
}

func (u *countingUpserter) Upsert(ctx context.Context, order *orders.Order) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.err != nil {
		return u.err
	}
	u.orders = append(u.orders, order)
	return nil
}

func (u *countingUpserter) writes() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.orders)
}

// recordingMetrics counts AddCount calls per metric name.
type recordingMetrics struct {
	mu     sync.Mutex
	counts map[string]float64
}

func (r *recordingMetrics) AddCount(ctx context.Context, name string, value float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		r.counts = map[string]float64{}
	}
	r.counts[name] += value
	return nil
}

func (r *recordingMetrics) get(name string) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[name]
}

type recordingNotifier struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (n *recordingNotifier) PublishOrderCreated(ctx context.Context, orderID string, body []byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ids = append(n.ids, orderID)
	return n.err
}

var errBoom = errors.New("boom")
