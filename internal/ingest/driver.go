package ingest

import (
	"context"

	"github.com/rawblock/snipe-engine/pkg/models"
)

// LifecycleEvent reports driver connection state to operators, per spec.md
// §4.2 "Emits connected/disconnected/error lifecycle signals".
type LifecycleEvent struct {
	Kind string // "connected" | "disconnected" | "error"
	Err  error
}

// EventCallback receives decoded, deduped PoolCreated events.
type EventCallback func(models.PoolCreated)

// LifecycleCallback receives driver connection lifecycle signals.
type LifecycleCallback func(LifecycleEvent)

// Driver is the narrow capability both ingest sources implement: start
// streaming and stop. Polymorphic over a small set, per spec.md §9
// "Dynamic dispatch" — a plain interface, not an open-world hierarchy.
type Driver interface {
	Start(ctx context.Context, onEvent EventCallback, onLifecycle LifecycleCallback) error
	Stop()
}

// Source selects which driver is active; only one runs at a time per
// spec.md §4.2.
type Source string

const (
	SourcePush Source = "push"
	SourceLog  Source = "log"
)
