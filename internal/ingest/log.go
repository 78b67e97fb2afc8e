package ingest

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/rawblock/snipe-engine/internal/rpc"
	"github.com/rawblock/snipe-engine/pkg/snipeerr"
)

// LogBatch is one notification batch from a program-id log subscription.
type LogBatch struct {
	Signature string
	Logs      []string
}

// LogSubscriber is the external log-channel collaborator (spec.md §1).
type LogSubscriber interface {
	Subscribe(ctx context.Context, programIDs []string) (<-chan LogBatch, error)
}

// TransactionFetcher fetches a full transaction by signature, through the
// RPC Fabric.
type TransactionFetcher interface {
	FetchTransaction(ctx context.Context, signature string) (RawTransaction, error)
}

// poolInitMarkers are the DEX-specific pool-init log marker substrings per
// spec.md §4.2.
var poolInitMarkers = map[string]string{
	"amm_v4":         "initialize2",
	"clmm":           "CreatePool",
	"orca_whirlpool": "InitializePool",
	"meteora":        "InitializeLbPair",
	"pumpfun":        "Instruction: Create",
}

// LogDriver implements spec.md §4.2's log-subscription driver: subscribes
// per program-id, and for each batch whose logs contain a DEX-specific
// pool-init marker, fetches the full transaction through the RPC Fabric and
// decodes it.
type LogDriver struct {
	Subscriber LogSubscriber
	Fetcher    TransactionFetcher
	Programs   ProgramIDs
	Dedup      *Deduper

	cancel context.CancelFunc
}

func NewLogDriver(sub LogSubscriber, fetcher TransactionFetcher, programs ProgramIDs, dedup *Deduper) *LogDriver {
	return &LogDriver{Subscriber: sub, Fetcher: fetcher, Programs: programs, Dedup: dedup}
}

func (d *LogDriver) programIDList() []string {
	return []string{d.Programs.AMMv4, d.Programs.CLMM, d.Programs.OrcaWhirlpool, d.Programs.MeteoraDLMM, d.Programs.PumpPlatform}
}

func (d *LogDriver) Start(ctx context.Context, onEvent EventCallback, onLifecycle LifecycleCallback) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	batches, err := d.Subscriber.Subscribe(ctx, d.programIDList())
	if err != nil {
		onLifecycle(LifecycleEvent{Kind: "error", Err: err})
		return err
	}
	onLifecycle(LifecycleEvent{Kind: "connected"})

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case batch, ok := <-batches:
				if !ok {
					onLifecycle(LifecycleEvent{Kind: "disconnected"})
					return
				}
				d.handleBatch(ctx, batch, onEvent, onLifecycle)
			}
		}
	}()

	return nil
}

func (d *LogDriver) Stop() {
	if d.cancel != nil {
		d.cancel()
	}
}

func matchedMarker(logs []string) bool {
	for _, l := range logs {
		for _, marker := range poolInitMarkers {
			if strings.Contains(l, marker) {
				return true
			}
		}
	}
	return false
}

func (d *LogDriver) handleBatch(ctx context.Context, batch LogBatch, onEvent EventCallback, onLifecycle LifecycleCallback) {
	if !matchedMarker(batch.Logs) {
		return
	}

	tx, err := d.Fetcher.FetchTransaction(ctx, batch.Signature)
	if err != nil {
		if errors.Is(err, rpc.ErrCircuitOpen) || snipeerr.Is(err, "CIRCUIT_OPEN") {
			// Breaker-open surfaces as degraded mode; ingest continues
			// skipping the affected source, never retrying this signature.
			onLifecycle(LifecycleEvent{Kind: "error", Err: err})
			return
		}
		log.Printf("[LogDriver] dropping unfetchable tx %s: %v", batch.Signature, err)
		return
	}

	ev, err := Decode(tx, d.Programs, time.Now())
	if err != nil {
		log.Printf("[LogDriver] dropping unparsable tx %s: %v", tx.Signature, err)
		return
	}
	if !d.Dedup.Admit(*ev, time.Now()) {
		return
	}
	onEvent(*ev)
}
