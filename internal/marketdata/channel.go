// Package marketdata maintains a live quote stream over a websocket with
// bounded automatic reconnect, plus a REST fallback for one-shot quotes.
// Subscriptions are reference counted per symbol: the upstream subscribe is
// sent when the first subscriber arrives and the unsubscribe exactly once
// when the last one leaves.
package marketdata

import (
	"context"
	"log"
	"sync"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"tradejournal/internal/config"
)

// Quote is one trade or quote tick for a symbol.
type Quote struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Size      float64   `json:"size"`
	Timestamp time.Time `json:"timestamp"`
}

// QuoteFunc receives ticks for a subscribed symbol.
type QuoteFunc func(Quote)

// UnsubscribeFunc cancels one subscription. Calling it more than once is
// safe; only the first call counts.
type UnsubscribeFunc func()

// Conn is the websocket surface the channel needs. Production connections
// wrap nhooyr.io/websocket; tests inject fakes.
type Conn interface {
	ReadQuote(ctx context.Context) (Quote, error)
	WriteJSON(ctx context.Context, v any) error
	Close() error
}

// DialFunc establishes a connection to the stream.
type DialFunc func(ctx context.Context) (Conn, error)

type streamMessage struct {
	Action  string   `json:"action"`
	Key     string   `json:"key,omitempty"`
	Symbols []string `json:"symbols,omitempty"`
}

// Channel manages the stream connection and its subscriptions.
type Channel struct {
	dial          DialFunc
	delay         time.Duration
	maxReconnects int

	mu        sync.Mutex
	conn      Conn
	subs      map[string]map[int64]QuoteFunc
	nextSubID int64
	attempts  int
	connected bool
	closed    bool
	timer     *time.Timer
}

// Option overrides channel defaults, mainly for tests.
type Option func(*Channel)

// WithDialFunc replaces the default websocket dialer.
func WithDialFunc(dial DialFunc) Option {
	return func(c *Channel) { c.dial = dial }
}

// NewChannel creates a market data channel from configuration. The channel
// is idle until Open is called.
func NewChannel(cfg config.MarketData, opts ...Option) *Channel {
	c := &Channel{
		dial:          defaultDial(cfg),
		delay:         time.Duration(cfg.ReconnectDelayMs) * time.Millisecond,
		maxReconnects: cfg.MaxReconnects,
		subs:          make(map[string]map[int64]QuoteFunc),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func defaultDial(cfg config.MarketData) DialFunc {
	return func(ctx context.Context) (Conn, error) {
		ws, _, err := websocket.Dial(ctx, cfg.StreamURL, nil)
		if err != nil {
			return nil, err
		}
		conn := &wsConn{ws: ws}
		if cfg.APIKey != "" {
			if err := conn.WriteJSON(ctx, streamMessage{Action: "auth", Key: cfg.APIKey}); err != nil {
				conn.Close()
				return nil, err
			}
		}
		return conn, nil
	}
}

// wsConn adapts a nhooyr websocket connection to Conn.
type wsConn struct {
	ws *websocket.Conn
}

func (c *wsConn) ReadQuote(ctx context.Context) (Quote, error) {
	var quote Quote
	err := wsjson.Read(ctx, c.ws, &quote)
	return quote, err
}

func (c *wsConn) WriteJSON(ctx context.Context, v any) error {
	return wsjson.Write(ctx, c.ws, v)
}

func (c *wsConn) Close() error {
	return c.ws.Close(websocket.StatusNormalClosure, "")
}

// Open connects the channel and starts dispatching quotes. Open resets the
// reconnect budget; after the budget is exhausted the channel stays
// disconnected until Open is called again.
func (c *Channel) Open(ctx context.Context) error {
	c.mu.Lock()
	c.closed = false
	c.attempts = 0
	c.mu.Unlock()

	return c.connect(ctx)
}

func (c *Channel) connect(ctx context.Context) error {
	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close()
		return nil
	}
	c.conn = conn
	c.connected = true
	symbols := c.subscribedSymbolsLocked()
	c.mu.Unlock()

	if len(symbols) > 0 {
		if err := conn.WriteJSON(ctx, streamMessage{Action: "subscribe", Symbols: symbols}); err != nil {
			log.Printf("[MarketData] Resubscribe failed: %v", err)
		}
	}

	go c.readLoop(conn)
	return nil
}

func (c *Channel) readLoop(conn Conn) {
	ctx := context.Background()
	for {
		quote, err := conn.ReadQuote(ctx)
		if err != nil {
			c.handleDisconnect(conn)
			return
		}

		c.mu.Lock()
		// A delivered message means the link is healthy again.
		c.attempts = 0
		callbacks := make([]QuoteFunc, 0, len(c.subs[quote.Symbol]))
		for _, cb := range c.subs[quote.Symbol] {
			callbacks = append(callbacks, cb)
		}
		c.mu.Unlock()

		for _, cb := range callbacks {
			cb(quote)
		}
	}
}

// handleDisconnect schedules a reconnect after a fixed delay, up to the
// configured bound. Exceeding the bound leaves the channel disconnected.
func (c *Channel) handleDisconnect(conn Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != conn {
		// A newer connection already replaced this one.
		return
	}
	c.conn = nil
	c.connected = false
	if c.closed {
		return
	}

	if c.attempts >= c.maxReconnects {
		log.Printf("[MarketData] Giving up after %d reconnect attempts", c.attempts)
		return
	}
	c.attempts++
	attempt := c.attempts

	log.Printf("[MarketData] Disconnected, reconnect %d/%d in %s", attempt, c.maxReconnects, c.delay)
	c.timer = time.AfterFunc(c.delay, func() {
		if err := c.connect(context.Background()); err != nil {
			log.Printf("[MarketData] Reconnect %d failed: %v", attempt, err)
			c.retryAfterDialFailure()
		}
	})
}

// retryAfterDialFailure schedules the next attempt when the dial itself
// failed, counting it against the same bound.
func (c *Channel) retryAfterDialFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.attempts >= c.maxReconnects {
		if !c.closed {
			log.Printf("[MarketData] Giving up after %d reconnect attempts", c.attempts)
		}
		return
	}
	c.attempts++
	c.timer = time.AfterFunc(c.delay, func() {
		if err := c.connect(context.Background()); err != nil {
			c.retryAfterDialFailure()
		}
	})
}

// Subscribe registers a callback for a symbol's quotes. The upstream
// subscribe message is sent only for the symbol's first subscriber.
func (c *Channel) Subscribe(symbol string, cb QuoteFunc) UnsubscribeFunc {
	c.mu.Lock()
	id := c.nextSubID
	c.nextSubID++

	first := len(c.subs[symbol]) == 0
	if c.subs[symbol] == nil {
		c.subs[symbol] = make(map[int64]QuoteFunc)
	}
	c.subs[symbol][id] = cb
	conn := c.conn
	c.mu.Unlock()

	if first && conn != nil {
		if err := conn.WriteJSON(context.Background(), streamMessage{Action: "subscribe", Symbols: []string{symbol}}); err != nil {
			log.Printf("[MarketData] Subscribe %s failed: %v", symbol, err)
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			c.unsubscribe(symbol, id)
		})
	}
}

func (c *Channel) unsubscribe(symbol string, id int64) {
	c.mu.Lock()
	delete(c.subs[symbol], id)
	last := len(c.subs[symbol]) == 0
	if last {
		delete(c.subs, symbol)
	}
	conn := c.conn
	c.mu.Unlock()

	if last && conn != nil {
		if err := conn.WriteJSON(context.Background(), streamMessage{Action: "unsubscribe", Symbols: []string{symbol}}); err != nil {
			log.Printf("[MarketData] Unsubscribe %s failed: %v", symbol, err)
		}
	}
}

// Connected reports whether the stream is currently up.
func (c *Channel) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Close shuts the channel down and cancels any pending reconnect.
func (c *Channel) Close() error {
	c.mu.Lock()
	c.closed = true
	c.connected = false
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}

func (c *Channel) subscribedSymbolsLocked() []string {
	symbols := make([]string, 0, len(c.subs))
	for symbol := range c.subs {
		symbols = append(symbols, symbol)
	}
	return symbols
}
