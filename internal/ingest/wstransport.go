package ingest

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

// WSPushTransport dials a push-stream endpoint over a websocket and decodes
// each frame into a RawTransaction, implementing PushTransport. No example
// repo ships a Solana geyser/push client, so this talks gorilla/websocket
// directly — the same library the teacher's own dashboard stream uses.
type WSPushTransport struct{}

func NewWSPushTransport() WSPushTransport { return WSPushTransport{} }

func (WSPushTransport) Dial(ctx context.Context, endpoint, token string, programIDs []string) (PushConn, error) {
	header := map[string][]string{}
	if token != "" {
		header["Authorization"] = []string{"Bearer " + token}
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, header)
	if err != nil {
		return nil, fmt.Errorf("ingest: dial push endpoint: %w", err)
	}

	sub := map[string]any{"type": "subscribe", "programIds": programIDs}
	if err := conn.WriteJSON(sub); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ingest: send subscription: %w", err)
	}
	return &wsPushConn{conn: conn}, nil
}

type wsPushConn struct {
	conn *websocket.Conn
}

type wsTxFrame struct {
	Signature    string `json:"signature"`
	Slot         uint64 `json:"slot"`
	BlockTimeUnix int64  `json:"blockTime"`
	Accounts     []string `json:"accounts"`
	Logs         []string `json:"logs"`
	Instructions []struct {
		ProgramIDIndex int    `json:"programIdIndex"`
		AccountIndexes []int  `json:"accounts"`
		DataBase64     string `json:"data"`
	} `json:"instructions"`
}

func (c *wsPushConn) Next(ctx context.Context) (RawTransaction, error) {
	var frame wsTxFrame
	if err := c.conn.ReadJSON(&frame); err != nil {
		return RawTransaction{}, fmt.Errorf("ingest: read push frame: %w", err)
	}

	ixs := make([]Instruction, len(frame.Instructions))
	for i, ix := range frame.Instructions {
		data, err := base64.StdEncoding.DecodeString(ix.DataBase64)
		if err != nil {
			return RawTransaction{}, fmt.Errorf("ingest: decode instruction data: %w", err)
		}
		ixs[i] = Instruction{ProgramIDIndex: ix.ProgramIDIndex, AccountIndexes: ix.AccountIndexes, Data: data}
	}

	return RawTransaction{
		Signature:    frame.Signature,
		Slot:         frame.Slot,
		BlockTime:    time.Unix(frame.BlockTimeUnix, 0),
		Accounts:     frame.Accounts,
		Instructions: ixs,
		Logs:         frame.Logs,
	}, nil
}

func (c *wsPushConn) Ping(ctx context.Context) error {
	return c.conn.WriteMessage(websocket.PingMessage, nil)
}

func (c *wsPushConn) Close() error {
	return c.conn.Close()
}

// WSLogSubscriber subscribes to per-program log notifications over a
// websocket RPC connection, merging every program's stream into one
// channel, implementing LogSubscriber.
type WSLogSubscriber struct {
	Endpoint string
}

func NewWSLogSubscriber(endpoint string) WSLogSubscriber {
	return WSLogSubscriber{Endpoint: endpoint}
}

func (s WSLogSubscriber) Subscribe(ctx context.Context, programIDs []string) (<-chan LogBatch, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.Endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("ingest: dial log endpoint: %w", err)
	}

	for _, id := range programIDs {
		req := map[string]any{
			"jsonrpc": "2.0", "id": 1, "method": "logsSubscribe",
			"params": []any{map[string]any{"mentions": []string{id}}, map[string]string{"commitment": "confirmed"}},
		}
		if err := conn.WriteJSON(req); err != nil {
			conn.Close()
			return nil, fmt.Errorf("ingest: subscribe logs for %s: %w", id, err)
		}
	}

	out := make(chan LogBatch, 64)
	go func() {
		defer close(out)
		defer conn.Close()
		for {
			var msg struct {
				Params struct {
					Result struct {
						Value struct {
							Signature string   `json:"signature"`
							Logs      []string `json:"logs"`
						} `json:"value"`
					} `json:"result"`
				} `json:"params"`
			}
			if err := conn.ReadJSON(&msg); err != nil {
				log.Printf("[WSLogSubscriber] read failed: %v", err)
				return
			}
			select {
			case out <- LogBatch{Signature: msg.Params.Result.Value.Signature, Logs: msg.Params.Result.Value.Logs}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
