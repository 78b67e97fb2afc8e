package ingest

import (
	"context"
	"log"
	"time"
)

// PushConn is one live duplex session to the push endpoint.
type PushConn interface {
	Next(ctx context.Context) (RawTransaction, error)
	Ping(ctx context.Context) error
	Close() error
}

// PushTransport opens a new duplex channel subscribed by program-id filter,
// the external push-stream collaborator referenced in spec.md §1.
type PushTransport interface {
	Dial(ctx context.Context, endpoint, token string, programIDs []string) (PushConn, error)
}

// PushDriver implements spec.md §4.2's push-stream driver: maintains
// liveness with a 30s ping, reconnects with exponential backoff (1s
// doubling, capped at max_attempts=10) on stream error.
type PushDriver struct {
	Transport   PushTransport
	Endpoint    string
	Token       string
	Programs    ProgramIDs
	Dedup       *Deduper
	MaxAttempts int
	PingEvery   time.Duration

	cancel context.CancelFunc
}

func NewPushDriver(transport PushTransport, endpoint, token string, programs ProgramIDs, dedup *Deduper) *PushDriver {
	return &PushDriver{
		Transport:   transport,
		Endpoint:    endpoint,
		Token:       token,
		Programs:    programs,
		Dedup:       dedup,
		MaxAttempts: 10,
		PingEvery:   30 * time.Second,
	}
}

func (d *PushDriver) programIDList() []string {
	return []string{d.Programs.AMMv4, d.Programs.CLMM, d.Programs.OrcaWhirlpool, d.Programs.MeteoraDLMM, d.Programs.PumpPlatform}
}

func (d *PushDriver) Start(ctx context.Context, onEvent EventCallback, onLifecycle LifecycleCallback) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	go d.run(ctx, onEvent, onLifecycle)
	return nil
}

func (d *PushDriver) Stop() {
	if d.cancel != nil {
		d.cancel()
	}
}

func (d *PushDriver) run(ctx context.Context, onEvent EventCallback, onLifecycle LifecycleCallback) {
	backoff := time.Second
	attempts := 0

	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := d.Transport.Dial(ctx, d.Endpoint, d.Token, d.programIDList())
		if err != nil {
			attempts++
			onLifecycle(LifecycleEvent{Kind: "error", Err: err})
			if attempts >= d.MaxAttempts {
				onLifecycle(LifecycleEvent{Kind: "disconnected", Err: err})
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			continue
		}

		attempts = 0
		backoff = time.Second
		onLifecycle(LifecycleEvent{Kind: "connected"})
		d.consume(ctx, conn, onEvent, onLifecycle)
		_ = conn.Close()
		onLifecycle(LifecycleEvent{Kind: "disconnected"})
	}
}

func (d *PushDriver) consume(ctx context.Context, conn PushConn, onEvent EventCallback, onLifecycle LifecycleCallback) {
	pingTicker := time.NewTicker(d.PingEvery)
	defer pingTicker.Stop()

	errCh := make(chan error, 1)
	txCh := make(chan RawTransaction, 64)

	go func() {
		for {
			tx, err := conn.Next(ctx)
			if err != nil {
				errCh <- err
				return
			}
			select {
			case txCh <- tx:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errCh:
			onLifecycle(LifecycleEvent{Kind: "error", Err: err})
			return
		case <-pingTicker.C:
			if err := conn.Ping(ctx); err != nil {
				onLifecycle(LifecycleEvent{Kind: "error", Err: err})
				return
			}
		case tx := <-txCh:
			d.handle(tx, onEvent)
		}
	}
}

func (d *PushDriver) handle(tx RawTransaction, onEvent EventCallback) {
	ev, err := Decode(tx, d.Programs, time.Now())
	if err != nil {
		// Parse failures log and drop; never retry the same bad transaction.
		log.Printf("[PushDriver] dropping unparsable tx %s: %v", tx.Signature, err)
		return
	}
	if !d.Dedup.Admit(*ev, time.Now()) {
		return
	}
	onEvent(*ev)
}
