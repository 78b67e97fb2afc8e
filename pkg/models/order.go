package models

import "time"

// OrderState is one node of the monotone DAG described in spec.md §4.7.
type OrderState string

const (
	StatePending     OrderState = "PENDING"
	StateValidated   OrderState = "VALIDATED"
	StateSimulating  OrderState = "SIMULATING"
	StateSigning     OrderState = "SIGNING"
	StateBroadcasting OrderState = "BROADCASTING"
	StateConfirming  OrderState = "CONFIRMING"
	StateConfirmed   OrderState = "CONFIRMED"
	StateFailed      OrderState = "FAILED"
)

// allowedTransitions encodes the DAG in spec.md §4.7: each forward state may
// advance to the next, or fail at any point before CONFIRMED.
var allowedTransitions = map[OrderState][]OrderState{
	StatePending:      {StateValidated, StateFailed},
	StateValidated:    {StateSimulating, StateFailed},
	StateSimulating:   {StateSigning, StateFailed},
	StateSigning:      {StateBroadcasting, StateFailed},
	StateBroadcasting: {StateConfirming, StateFailed},
	StateConfirming:   {StateConfirmed, StateFailed},
	StateConfirmed:    {},
	StateFailed:       {},
}

// CanTransition reports whether from -> to is a legal edge in the DAG.
func CanTransition(from, to OrderState) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// PriorityFeeMode selects the Fee Optimizer's aggressiveness (spec.md §4.5).
type PriorityFeeMode string

const (
	FeeModeNone   PriorityFeeMode = "NONE"
	FeeModeLow    PriorityFeeMode = "LOW"
	FeeModeMedium PriorityFeeMode = "MEDIUM"
	FeeModeHigh   PriorityFeeMode = "HIGH"
	FeeModeTurbo  PriorityFeeMode = "TURBO"
	FeeModeUltra  PriorityFeeMode = "ULTRA"
)

// feeModeOrder is the monotone ordering from spec.md P4.
var feeModeOrder = map[PriorityFeeMode]int{
	FeeModeNone:   0,
	FeeModeLow:    1,
	FeeModeMedium: 2,
	FeeModeHigh:   3,
	FeeModeTurbo:  4,
	FeeModeUltra:  5,
}

// Rank returns the mode's position in the monotone ordering.
func (m PriorityFeeMode) Rank() int { return feeModeOrder[m] }

// OrderConfig is the immutable parameters of a buy request.
type OrderConfig struct {
	TokenMint        string
	AmountInBaseUnits uint64
	SlippageBps      int
	PriorityFeeMode  PriorityFeeMode
	UseMEVBundle     bool
	MaxRetries       int
	TimeoutMs        int
	TakeProfitPct    *float64
	StopLossPct      *float64
}

// Order is the durable record driven by the Order Engine state machine.
type Order struct {
	ID         string
	UserID     string
	Config     OrderConfig
	State      OrderState
	RetryCount int
	CreatedAt  time.Time
	UpdatedAt  time.Time

	// Populated once the CONFIRMED terminal data is known.
	Signature       string
	Slot            uint64
	AmountOut       uint64
	PriceImpactPct  float64
	ExecutionTimeMs int64

	// Populated on FAILED.
	FailureKind   string
	FailureMarker string
	FailureMessage string
	Violations    []Violation

	// Breakdown carries the Orchestrator's per-phase latency for this order,
	// set once the surrounding SnipeRequest settles, so GET /orders/{id} can
	// replay the execution timeline without re-running anything.
	Breakdown *ExecutionBreakdown
}

// Transition validates and applies a state change, refusing invalid edges.
// An invalid transition is a programmer error per spec.md §4.7 and panics,
// matching the "never a cycle, never skip a state" invariant P1.
func (o *Order) Transition(to OrderState, now time.Time) {
	if !CanTransition(o.State, to) {
		panic("order: illegal state transition " + string(o.State) + " -> " + string(to))
	}
	o.State = to
	o.UpdatedAt = now
}
