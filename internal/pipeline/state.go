package pipeline

import (
	"github.com/imrishuroy/orders-service/internal/orders"
)

// Phase is a position in the request state machine.
type Phase int

const (
	PhaseReceived Phase = iota
	PhaseValidated
	PhaseDedupGate
	PhaseExecuting
	PhasePersisted
	PhaseShaped
	PhaseResponded
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseReceived:
		return "RECEIVED"
	case PhaseValidated:
		return "VALIDATED"
	case PhaseDedupGate:
		return "DEDUP_GATE"
	case PhaseExecuting:
		return "EXECUTING"
	case PhasePersisted:
		return "PERSISTED"
	case PhaseShaped:
		return "SHAPED"
	case PhaseResponded:
		return "RESPONDED"
	case PhaseError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// State is everything one request has accumulated so far.
type State struct {
	Phase       Phase
	Raw         []byte
	Document    any // decoded Raw
	Input       orders.CreateOrder
	Fingerprint string
	Order       *orders.Order
	OrderID     string
	Snapshot    []byte // shaped response body
	Replayed    bool   // Snapshot came from a completed idempotency record
	Response    Response
}
