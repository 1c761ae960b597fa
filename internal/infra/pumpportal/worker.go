package pumpportal

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"pumpcap/internal/domain"
	"pumpcap/internal/infra"

	"github.com/gorilla/websocket"
)

const reconnectDelay = 5 * time.Second

// ConnState is the trade stream connection state.
type ConnState int32

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateSubscribed
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateSubscribed:
		return "subscribed"
	default:
		return "disconnected"
	}
}

// subscribeRequest is sent once per connection to scope the feed to the
// tracked mint.
type subscribeRequest struct {
	Method string   `json:"method"`
	Keys   []string `json:"keys"`
}

// Worker maintains the persistent trade stream subscription for one
// token. It reconnects after a fixed delay, forever; there is no
// backoff growth and no retry cutoff.
type Worker struct {
	wsURL   string
	apiKey  string
	mint    string
	sink    domain.TradeSink
	state   atomic.Int32
	conn    *websocket.Conn
	mu      sync.RWMutex
	writeMu sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewWorker creates a new trade stream worker
func NewWorker(wsURL, apiKey, mint string, sink domain.TradeSink) *Worker {
	return &Worker{
		wsURL:  wsURL,
		apiKey: apiKey,
		mint:   mint,
		sink:   sink,
	}
}

// Connect starts the connection loop. Returns ErrMissingAPIKey when no
// credential is configured; the listener stays disabled in that case.
func (w *Worker) Connect(ctx context.Context) error {
	if w.apiKey == "" {
		return domain.ErrMissingAPIKey
	}
	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.connectionLoop(ctx)
	return nil
}

func (w *Worker) connectionLoop(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := w.connect(ctx); err != nil {
			slog.Warn("Trade stream connection failed", slog.Any("error", err))
		} else {
			w.readLoop(ctx)
			slog.Info("Trade stream closed. Reconnecting...")
		}

		w.setState(StateDisconnected)
		infra.GlobalMetrics.RecordReconnect()

		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

func (w *Worker) connect(ctx context.Context) error {
	w.setState(StateConnecting)

	endpoint, err := w.buildURL()
	if err != nil {
		return err
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, endpoint, make(http.Header))
	if err != nil {
		return domain.NewNetworkError("connect", err)
	}

	w.mu.Lock()
	w.conn = conn
	w.mu.Unlock()

	if err := w.subscribe(); err != nil {
		w.closeConnection()
		return domain.NewNetworkError("subscribe", err)
	}

	w.setState(StateSubscribed)
	slog.Info("Trade stream connected", slog.String("mint", w.mint))
	return nil
}

func (w *Worker) buildURL() (string, error) {
	u, err := url.Parse(w.wsURL)
	if err != nil {
		return "", fmt.Errorf("invalid ws url: %w", err)
	}
	q := u.Query()
	q.Set("api-key", w.apiKey)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (w *Worker) subscribe() error {
	b, err := json.Marshal(subscribeRequest{
		Method: "subscribeTokenTrade",
		Keys:   []string{w.mint},
	})
	if err != nil {
		return err
	}
	return w.threadSafeWrite(websocket.TextMessage, b)
}

func (w *Worker) threadSafeWrite(msgType int, data []byte) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.conn == nil {
		return fmt.Errorf("no conn")
	}
	return w.conn.WriteMessage(msgType, data)
}

func (w *Worker) readLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		// No read deadline: a quiet market is normal here, the REST
		// fallback covers stream silence.
		w.mu.RLock()
		conn := w.conn
		w.mu.RUnlock()
		if conn == nil {
			return
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			w.closeConnection()
			return
		}
		w.handleMessage(msg)
	}
}

// handleMessage parses a trade event and hands it to the sink. A
// malformed message is never fatal for the listener.
func (w *Worker) handleMessage(msg []byte) {
	var trade domain.TradeEvent
	if err := json.Unmarshal(msg, &trade); err != nil {
		slog.Debug("Skipping unparseable stream message", slog.Any("error", err))
		return
	}
	// The subscription already scopes the feed, but server-side status
	// messages come through the same socket without a mint.
	if trade.Mint != "" && trade.Mint != w.mint {
		return
	}
	if trade.Mint == "" && trade.MarketCapSol.IsZero() &&
		trade.VTokensInBondingCurve.IsZero() && trade.VSolInBondingCurve.IsZero() {
		return
	}
	w.sink.ProcessTrade(&trade)
}

func (w *Worker) closeConnection() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn != nil {
		w.conn.Close()
		w.conn = nil
	}
}

func (w *Worker) setState(s ConnState) {
	w.state.Store(int32(s))
	infra.GlobalMetrics.SetStreamConnected(s == StateSubscribed)
}

// State returns the current connection state.
func (w *Worker) State() ConnState {
	return ConnState(w.state.Load())
}

// IsConnected reports whether the feed subscription is live.
func (w *Worker) IsConnected() bool {
	return w.State() == StateSubscribed
}

// Disconnect stops the connection loop and closes the socket.
func (w *Worker) Disconnect() {
	if w.cancel != nil {
		w.cancel()
	}
	w.closeConnection()
	w.wg.Wait()
}
