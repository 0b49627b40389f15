package infra

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ConnState is the connection lifecycle state of a WSWorker.
type ConnState string

const (
	StateDisconnected ConnState = "DISCONNECTED"
	StateConnecting   ConnState = "CONNECTING"
	StateConnected    ConnState = "CONNECTED"
	StateReconnecting ConnState = "RECONNECTING"
	// StateFailed means the retry ceiling was hit; the worker has given up
	// and the owner decides how to degrade.
	StateFailed ConnState = "FAILED"
)

// WSHandler defines endpoint-specific logic for the WSWorker.
type WSHandler interface {
	ID() string
	URL() string
	OnConnect(ctx context.Context, conn *websocket.Conn) error
	OnMessage(ctx context.Context, msg []byte)
}

// WSWorker manages the lifecycle of one WebSocket connection: dial,
// read loop, bounded reconnection with exponential backoff, teardown.
// Thread-safe writes go through Write.
type WSWorker struct {
	handler WSHandler
	mu      sync.RWMutex
	conn    *websocket.Conn
	writeMu sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	ReadTimeout time.Duration
	MaxRetries  int
	// OnState is invoked on every lifecycle transition. Called from the
	// worker goroutine; keep it fast.
	OnState func(ConnState)
}

// NewWSWorker creates a worker with default timeouts and retry ceiling.
func NewWSWorker(handler WSHandler) *WSWorker {
	return &WSWorker{
		handler:     handler,
		ReadTimeout: 60 * time.Second,
		MaxRetries:  DefaultMaxRetries,
	}
}

// Start launches the connection loop. Idempotent per worker instance: a
// second Start on a running worker is undefined, callers guard it.
func (w *WSWorker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.runLoop(ctx)
}

// Stop terminates the worker and waits for the loop to exit. Safe to call
// when the worker never connected.
func (w *WSWorker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.close()
	w.wg.Wait()
	w.setState(StateDisconnected)
}

func (w *WSWorker) setState(s ConnState) {
	if w.OnState != nil {
		w.OnState(s)
	}
}

func (w *WSWorker) runLoop(ctx context.Context) {
	defer w.wg.Done()
	retry := 0

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		w.setState(StateConnecting)
		if err := w.connect(ctx); err != nil {
			if retry >= w.MaxRetries {
				slog.Error("WS retry ceiling reached, giving up",
					"id", w.handler.ID(), "retries", retry)
				w.setState(StateFailed)
				return
			}

			delay := Backoff(retry)
			retry++
			slog.Warn("WS connection failed",
				"id", w.handler.ID(), "err", err, "retry", retry, "next_in", delay)
			w.setState(StateReconnecting)

			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
				continue
			}
		}

		retry = 0
		w.setState(StateConnected)
		w.process(ctx)

		select {
		case <-ctx.Done():
			return
		default:
			w.setState(StateReconnecting)
		}
	}
}

func (w *WSWorker) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}

	conn, _, err := dialer.DialContext(ctx, w.handler.URL(), nil)
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.conn = conn
	w.mu.Unlock()

	if err := w.handler.OnConnect(ctx, conn); err != nil {
		w.close()
		return fmt.Errorf("OnConnect failed: %w", err)
	}

	slog.Info("WS connected", "id", w.handler.ID())
	return nil
}

func (w *WSWorker) process(ctx context.Context) {
	for {
		w.mu.RLock()
		c := w.conn
		w.mu.RUnlock()
		if c == nil {
			return
		}

		c.SetReadDeadline(time.Now().Add(w.ReadTimeout))
		_, msg, err := c.ReadMessage()
		if err != nil {
			slog.Warn("WS read error", "id", w.handler.ID(), "err", err)
			w.close()
			return
		}

		w.handler.OnMessage(ctx, msg)
	}
}

// Write sends a message on the connection. Serialized against concurrent
// writers; fails when not connected.
func (w *WSWorker) Write(msgType int, data []byte) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	w.mu.RLock()
	c := w.conn
	w.mu.RUnlock()

	if c == nil {
		return fmt.Errorf("ws not connected")
	}
	return c.WriteMessage(msgType, data)
}

func (w *WSWorker) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn != nil {
		w.conn.Close()
		w.conn = nil
	}
}
