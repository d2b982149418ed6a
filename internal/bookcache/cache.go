// Package bookcache maintains an in-memory, per-token order book built from
// the exchange WebSocket feed. It never does its own I/O; it only consumes
// the message channel a websocket.Manager produces.
package bookcache

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mselser95/polymarket-arb/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Cache holds the latest known book for every subscribed token.
type Cache struct {
	books      map[types.Token]*types.OrderBook
	mu         sync.RWMutex
	logger     *zap.Logger
	msgChan    <-chan *types.OrderbookMessage
	updateChan chan *types.OrderBook
	ctx        context.Context
	wg         sync.WaitGroup
}

// Config holds Cache construction parameters.
type Config struct {
	Logger         *zap.Logger
	MessageChannel <-chan *types.OrderbookMessage
}

// New creates a Cache that is not yet consuming messages; call Start to
// begin processing.
func New(cfg Config) *Cache {
	return &Cache{
		books:      make(map[types.Token]*types.OrderBook),
		logger:     cfg.Logger,
		msgChan:    cfg.MessageChannel,
		updateChan: make(chan *types.OrderBook, 100000),
	}
}

// Start begins consuming the message channel until ctx is cancelled.
func (c *Cache) Start(ctx context.Context) error {
	c.ctx = ctx
	c.logger.Info("bookcache-starting")

	c.wg.Add(1)
	go c.processMessages()

	return nil
}

func (c *Cache) processMessages() {
	defer c.wg.Done()

	for {
		select {
		case <-c.ctx.Done():
			c.logger.Info("bookcache-stopping")
			return
		case msg, ok := <-c.msgChan:
			if !ok {
				c.logger.Info("bookcache-message-channel-closed")
				return
			}
			c.handleMessage(msg)
		}
	}
}

func (c *Cache) handleMessage(msg *types.OrderbookMessage) {
	timer := prometheus.NewTimer(UpdateProcessingDuration)
	defer timer.ObserveDuration()

	UpdatesTotal.WithLabelValues(msg.EventType).Inc()

	switch msg.EventType {
	case "book":
		c.handleBookMessage(msg)
	case "price_change":
		c.handlePriceChangeMessage(msg)
	default:
		// tick_size_change, last_trade_price and anything else the feed
		// sends is not book state; ignore it here.
	}
}

// handleBookMessage replaces the entire stored book for a token with the
// levels carried in a full snapshot. Malformed levels are dropped rather
// than failing the whole message.
func (c *Cache) handleBookMessage(msg *types.OrderbookMessage) {
	asks := types.ParseLevels(msg.Asks)
	bids := types.ParseLevels(msg.Bids)

	if len(asks) == 0 && len(msg.Asks) > 0 {
		ParseFailuresTotal.WithLabelValues(msg.EventType).Inc()
	}
	if len(bids) == 0 && len(msg.Bids) > 0 {
		ParseFailuresTotal.WithLabelValues(msg.EventType).Inc()
	}

	sort.Slice(asks, func(i, j int) bool { return asks[i].Price.LessThan(asks[j].Price) })
	sort.Slice(bids, func(i, j int) bool { return bids[i].Price.GreaterThan(bids[j].Price) })

	book := &types.OrderBook{
		TokenID:     types.Token(msg.AssetID),
		Asks:        asks,
		Bids:        bids,
		LastUpdated: time.Now(),
	}

	lockStart := time.Now()
	c.mu.Lock()
	LockContentionDuration.Observe(time.Since(lockStart).Seconds())

	c.books[book.TokenID] = book
	BooksTracked.Set(float64(len(c.books)))
	c.mu.Unlock()

	c.notify(book)
}

// handlePriceChangeMessage refreshes the freshness timestamp of a token's
// cached book. It never mutates the stored levels: the quoting side treats
// price_change purely as a liveness signal, relying on the next full "book"
// snapshot to reflect an actual price move.
func (c *Cache) handlePriceChangeMessage(msg *types.OrderbookMessage) {
	token := types.Token(msg.AssetID)

	lockStart := time.Now()
	c.mu.Lock()
	LockContentionDuration.Observe(time.Since(lockStart).Seconds())

	book, exists := c.books[token]
	if !exists {
		c.mu.Unlock()
		return
	}
	book.LastUpdated = time.Now()
	snapshot := *book
	c.mu.Unlock()

	c.notify(&snapshot)
}

func (c *Cache) notify(book *types.OrderBook) {
	select {
	case c.updateChan <- book:
	default:
		c.logger.Warn("bookcache-update-channel-full",
			zap.String("token-id", string(book.TokenID)))
		UpdatesDroppedTotal.WithLabelValues("channel_full").Inc()
	}
}

// GetBook returns a copy of the cached book for a token, or false if nothing
// has been received for it yet.
func (c *Cache) GetBook(token types.Token) (*types.OrderBook, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	book, exists := c.books[token]
	if !exists {
		return nil, false
	}
	cpy := *book
	return &cpy, true
}

// BestAsk returns the best ask for a token's cached book.
func (c *Cache) BestAsk(token types.Token) (types.OrderBookLevel, bool) {
	book, ok := c.GetBook(token)
	if !ok {
		return types.OrderBookLevel{}, false
	}
	return book.BestAsk()
}

// BestBid returns the best bid for a token's cached book.
func (c *Cache) BestBid(token types.Token) (types.OrderBookLevel, bool) {
	book, ok := c.GetBook(token)
	if !ok {
		return types.OrderBookLevel{}, false
	}
	return book.BestBid()
}

// IsFresh reports whether the cached book for token was updated within
// horizon of now. A token with no cached book at all is never fresh.
func (c *Cache) IsFresh(token types.Token, now time.Time, horizon time.Duration) bool {
	book, ok := c.GetBook(token)
	if !ok {
		return false
	}
	return book.IsFresh(now, horizon)
}

// IsFreshPair reports whether both legs of a market's books are fresh. The
// state machine's driver cycle requires this before evaluating a quote,
// since pricing always needs both outcome tokens at once.
func (c *Cache) IsFreshPair(up, down types.Token, now time.Time, horizon time.Duration) bool {
	return c.IsFresh(up, now, horizon) && c.IsFresh(down, now, horizon)
}

// UpdateChan returns the channel of book updates, fanned out to any
// subscriber (pricing loop, dashboard, etc).
func (c *Cache) UpdateChan() <-chan *types.OrderBook {
	return c.updateChan
}

// Close waits for the processing goroutine to exit and closes the update
// channel.
func (c *Cache) Close() error {
	c.logger.Info("bookcache-closing")
	c.wg.Wait()
	close(c.updateChan)
	c.logger.Info("bookcache-closed")
	return nil
}
