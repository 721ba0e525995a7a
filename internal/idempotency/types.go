package idempotency

import (
	"context"
	"time"
)

// Status values for idempotency entries
const (
	StatusInProgress = "IN_PROGRESS"
	StatusCompleted  = "COMPLETED"
)

// IdempotencyRecord is the shape persisted for every fingerprint.
type IdempotencyRecord struct {
	IdempotencyKey      string    `dynamodbav:"idempotency_key" json:"idempotency_key"` // PK
	Status              string    `dynamodbav:"status" json:"status"`
	ResponseBody        string    `dynamodbav:"response_body,omitempty" json:"response_body,omitempty"` // shaped order snapshot
	CreatedAt           time.Time `dynamodbav:"created_at" json:"created_at"`
	UpdatedAt           time.Time `dynamodbav:"updated_at" json:"updated_at"`
	ExpiresAt           int64     `dynamodbav:"expires_at" json:"expires_at"`                                               // TTL epoch seconds
	InProgressExpiresAt int64     `dynamodbav:"in_progress_expires_at,omitempty" json:"in_progress_expires_at,omitempty"` // epoch millis
}

// Outcome is the verdict of the dedup gate.
type Outcome int

const (
	// Proceed means the fingerprint is now reserved by the caller.
	Proceed Outcome = iota
	// Duplicate means a completed result exists and must be replayed.
	Duplicate
	// InProgress means another request holds the reservation.
	InProgress
)

func (o Outcome) String() string {
	switch o {
	case Proceed:
		return "Proceed"
	case Duplicate:
		return "Duplicate"
	case InProgress:
		return "InProgress"
	default:
		return "Unknown"
	}
}

// Result is returned by Begin. ResponseBody is only set for Duplicate.
type Result struct {
	Outcome      Outcome
	ResponseBody []byte
}

// Store reserves, completes and releases fingerprints. Begin must be a single
// atomic conditional write so two concurrent callers can never both Proceed.
type Store interface {
	Begin(ctx context.Context, key string) (Result, error)
	Complete(ctx context.Context, key string, responseBody []byte) error
	Release(ctx context.Context, key string) error
}

// classify turns an existing, unexpired record into a Begin result.
func classify(rec *IdempotencyRecord) Result {
	if rec != nil && rec.Status == StatusCompleted {
		return Result{Outcome: Duplicate, ResponseBody: []byte(rec.ResponseBody)}
	}
	// in flight, or gone between the failed write and the read: caller retries later
	return Result{Outcome: InProgress}
}

// inProgressDeadline bounds how long a reservation blocks retries: the
// caller's deadline when it has one, otherwise the retention window.
func inProgressDeadline(ctx context.Context, now time.Time, window time.Duration) time.Time {
	limit := now.Add(window)
	if dl, ok := ctx.Deadline(); ok && dl.Before(limit) {
		return dl
	}
	return limit
}
