// Package orderbook implements a per-symbol continuous limit order book:
// FIFO price levels, price-time priority, synthetic depth seeding, and
// order expiry.
//
// Grounded on go-feed's internal/orderbook/book.go (level-slice shape,
// sorted-insert helpers, best bid/ask/mid accessors, depth snapshot)
// generalised from go-feed's float64 ITCH prices to money.Price, and on
// original_source/app/order_book.py for operations go-feed has no
// analogue for (FIFO queue expiry, synthetic depth seeding,
// source-filtered queries). Unlike go-feed, price levels are never
// trimmed by count: go-feed's trim-to-MaxLevels step drops the worst
// level from the slice without pruning its orders from the id index,
// orphaning them past any reach of cancellation or expiry. This book
// has no such cap — only GetDepthSnapshot(N) bounds how many levels a
// caller sees.
//
// Book holds no lock of its own; callers serialise all mutation. In this
// program every mutation runs on the scheduler's goroutine, which also
// drives the matching engine.
package orderbook

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/exsim/clob-exchange/internal/money"
	"github.com/exsim/clob-exchange/internal/ring"
)

// recentPriceCap is the trade-price ring's capacity.
const recentPriceCap = 1000

// ErrInvalidOrder is returned by AddOrder for a malformed request.
var ErrInvalidOrder = errors.New("invalid order")

// PriceLevel holds one price's FIFO order queue. Orders[0] is the head
// (oldest, next to fill).
type PriceLevel struct {
	Price  money.Price
	Orders []*Order
}

// TotalQty sums the queue's quantities.
func (l *PriceLevel) TotalQty() int {
	n := 0
	for _, o := range l.Orders {
		n += o.Qty
	}
	return n
}

// Quote is a best-price/total-quantity pair.
type Quote struct {
	Price money.Price
	Qty   int
}

// Book is a single symbol's order book.
type Book struct {
	Symbol string

	Bids []*PriceLevel // descending by price
	Asks []*PriceLevel // ascending by price

	index     map[string]*Order
	lastPrice money.Price
	hasLast   bool
	prices    *ring.Buffer[money.Price]
}

// NewBook creates an empty order book for symbol.
func NewBook(symbol string) *Book {
	return &Book{
		Symbol: symbol,
		index:  make(map[string]*Order),
		prices: ring.New[money.Price](recentPriceCap),
	}
}

// AddOrder inserts id at the tail of the FIFO queue for price, creating
// the level if absent, and records it in the order index.
func (b *Book) AddOrder(side Side, price money.Price, qty int, id, source string, ts time.Time) error {
	if side != SideBuy && side != SideSell {
		return fmt.Errorf("%w: side must be Buy or Sell", ErrInvalidOrder)
	}
	if !price.IsPositive() {
		return fmt.Errorf("%w: price must be > 0", ErrInvalidOrder)
	}
	if qty <= 0 {
		return fmt.Errorf("%w: qty must be > 0", ErrInvalidOrder)
	}

	o := &Order{ID: id, Side: side, Price: price, Qty: qty, OriginalQty: qty, Source: source, SubmittedAt: ts}
	b.index[id] = o

	if side == SideBuy {
		b.Bids = addToSide(b.Bids, o, true)
	} else {
		b.Asks = addToSide(b.Asks, o, false)
	}
	return nil
}

// RemoveOrder removes an order by id, re-queuing the rest of its level.
// Returns the removed order, or nil if not found.
func (b *Book) RemoveOrder(id string) *Order {
	o, ok := b.index[id]
	if !ok {
		return nil
	}
	delete(b.index, id)
	if o.Side == SideBuy {
		b.Bids = removeFromSide(b.Bids, id)
	} else {
		b.Asks = removeFromSide(b.Asks, id)
	}
	return o
}

// GetOrder looks up an order by id.
func (b *Book) GetOrder(id string) (*Order, bool) {
	o, ok := b.index[id]
	return o, ok
}

// GetOrdersBySource linearly filters one side's resting orders by source.
func (b *Book) GetOrdersBySource(side Side, source string) []*Order {
	levels := b.Bids
	if side == SideSell {
		levels = b.Asks
	}
	var out []*Order
	for _, lvl := range levels {
		for _, o := range lvl.Orders {
			if o.Source == source {
				out = append(out, o)
			}
		}
	}
	return out
}

// CancelOrdersBySource removes every resting order on both sides whose
// Source matches, returning the removed orders. Used by the dashboard's
// cancel-my-strategy-orders control.
func (b *Book) CancelOrdersBySource(source string) []*Order {
	var removed []*Order
	for _, side := range [2]Side{SideBuy, SideSell} {
		for _, lvl := range b.Levels(side) {
			for _, o := range lvl.Orders {
				if o.Source == source {
					removed = append(removed, o)
				}
			}
		}
	}
	for _, o := range removed {
		b.RemoveOrder(o.ID)
	}
	return removed
}

// BestBid returns the best bid quote, or ok=false if the bid side is empty.
func (b *Book) BestBid() (Quote, bool) {
	if len(b.Bids) == 0 {
		return Quote{}, false
	}
	return Quote{Price: b.Bids[0].Price, Qty: b.Bids[0].TotalQty()}, true
}

// BestAsk returns the best ask quote, or ok=false if the ask side is empty.
func (b *Book) BestAsk() (Quote, bool) {
	if len(b.Asks) == 0 {
		return Quote{}, false
	}
	return Quote{Price: b.Asks[0].Price, Qty: b.Asks[0].TotalQty()}, true
}

// MidPrice returns the midpoint of best bid and best ask, or ok=false if
// either side is empty.
func (b *Book) MidPrice() (money.Price, bool) {
	bid, ok := b.BestBid()
	if !ok {
		return money.Zero, false
	}
	ask, ok := b.BestAsk()
	if !ok {
		return money.Zero, false
	}
	return bid.Price.Add(ask.Price).Div(money.NewFromInt(2)), true
}

// DepthEntry is one level of a depth snapshot.
type DepthEntry struct {
	Price      money.Price
	Qty        int
	Cumulative int
	OrderCount int
}

// DepthSnapshot is a point-in-time top-N view of both sides.
type DepthSnapshot struct {
	Bids      []DepthEntry
	Asks      []DepthEntry
	LastPrice money.Price
	HasLast   bool
}

// GetDepthSnapshot returns the top-n levels per side with cumulative
// quantity and order count, plus the last traded price.
func (b *Book) GetDepthSnapshot(n int) DepthSnapshot {
	snap := DepthSnapshot{LastPrice: b.lastPrice, HasLast: b.hasLast}
	snap.Bids = depthEntries(b.Bids, n)
	snap.Asks = depthEntries(b.Asks, n)
	return snap
}

func depthEntries(levels []*PriceLevel, n int) []DepthEntry {
	if n > len(levels) {
		n = len(levels)
	}
	out := make([]DepthEntry, 0, n)
	cum := 0
	for i := 0; i < n; i++ {
		q := levels[i].TotalQty()
		cum += q
		out = append(out, DepthEntry{Price: levels[i].Price, Qty: q, Cumulative: cum, OrderCount: len(levels[i].Orders)})
	}
	return out
}

// RecordTrade pushes a traded price into the bounded recent-price ring and
// updates the last traded price.
func (b *Book) RecordTrade(price money.Price) {
	b.prices.Append(price)
	b.lastPrice = price
	b.hasLast = true
}

// GetRecentPrices returns up to the last window trade prices, oldest first.
func (b *Book) GetRecentPrices(window int) []money.Price {
	return b.prices.Last(window)
}

// ExpireOldOrders pops from the front of each level's queue while an
// order's age exceeds maxAge, deleting levels that empty out and pruning
// the index. Returns the ids removed.
func (b *Book) ExpireOldOrders(now time.Time, maxAge time.Duration) []string {
	var removed []string
	b.Bids, removed = expireSide(b.Bids, now, maxAge, b.index, removed)
	b.Asks, removed = expireSide(b.Asks, now, maxAge, b.index, removed)
	return removed
}

func expireSide(levels []*PriceLevel, now time.Time, maxAge time.Duration, index map[string]*Order, removed []string) ([]*PriceLevel, []string) {
	out := levels[:0:0]
	for _, lvl := range levels {
		for len(lvl.Orders) > 0 && now.Sub(lvl.Orders[0].SubmittedAt) > maxAge {
			delete(index, lvl.Orders[0].ID)
			removed = append(removed, lvl.Orders[0].ID)
			lvl.Orders = lvl.Orders[1:]
		}
		if len(lvl.Orders) > 0 {
			out = append(out, lvl)
		}
	}
	return out, removed
}

// SeedSyntheticDepth ticks i = 2..levels+1, adding a bid at mid*(1-0.005*i)
// and an ask at mid*(1+0.005*i), each with qty = floor(baseQty*0.8^i).
// Skipping i=1 is intentional: it leaves the top of book empty for real
// strategies to quote.
func (b *Book) SeedSyntheticDepth(mid money.Price, levels int, baseQty int, now time.Time) {
	for i := 2; i <= levels+1; i++ {
		skew := 0.005 * float64(i)
		decay := pow(0.8, i)
		qty := int(float64(baseQty) * decay)
		if qty < 1 {
			continue
		}
		bidPrice := mid.MulFloat(1 - skew)
		askPrice := mid.MulFloat(1 + skew)
		_ = b.AddOrder(SideBuy, bidPrice, qty, fmt.Sprintf("synth-bid-%d-%d", i, now.UnixNano()), "synthetic", now)
		_ = b.AddOrder(SideSell, askPrice, qty, fmt.Sprintf("synth-ask-%d-%d", i, now.UnixNano()), "synthetic", now)
	}
}

func pow(base float64, exp int) float64 {
	r := 1.0
	for i := 0; i < exp; i++ {
		r *= base
	}
	return r
}

// Levels returns the live price-level slice for a side, in priority order
// (descending for bids, ascending for asks). Callers (the matching
// engine) may read it for marketability decisions and pass a *PriceLevel
// back into FillHead/RotateHead to mutate it.
func (b *Book) Levels(side Side) []*PriceLevel {
	if side == SideBuy {
		return b.Bids
	}
	return b.Asks
}

// RotateHead moves a level's head order to the back of its own queue —
// self-trade prevention's rotation step.
func (b *Book) RotateHead(level *PriceLevel) {
	if len(level.Orders) < 2 {
		return
	}
	head := level.Orders[0]
	level.Orders = append(level.Orders[1:], head)
}

// FillHead decrements a level's head order by qty. If the head order is
// exhausted it's popped and removed from the index; if the level is then
// empty it's removed from the book. Returns the order that was filled
// (its Qty already decremented) and whether the level was removed.
func (b *Book) FillHead(side Side, level *PriceLevel, qty int) (*Order, bool) {
	if len(level.Orders) == 0 {
		return nil, false
	}
	head := level.Orders[0]
	head.Qty -= qty
	if head.Qty <= 0 {
		delete(b.index, head.ID)
		level.Orders = level.Orders[1:]
	}
	if len(level.Orders) == 0 {
		b.removeLevel(side, level)
		return head, true
	}
	return head, false
}

func (b *Book) removeLevel(side Side, level *PriceLevel) {
	levels := b.Bids
	if side == SideSell {
		levels = b.Asks
	}
	for i, l := range levels {
		if l == level {
			levels = append(levels[:i], levels[i+1:]...)
			break
		}
	}
	if side == SideBuy {
		b.Bids = levels
	} else {
		b.Asks = levels
	}
}

// --- level maintenance, adapted from go-feed's addToSide/removeFromSide ---

func addToSide(levels []*PriceLevel, o *Order, descending bool) []*PriceLevel {
	for _, lvl := range levels {
		if lvl.Price.Equal(o.Price) {
			lvl.Orders = append(lvl.Orders, o)
			return levels
		}
	}

	levels = append(levels, &PriceLevel{Price: o.Price, Orders: []*Order{o}})

	if descending {
		sort.Slice(levels, func(i, j int) bool { return levels[i].Price.GreaterThan(levels[j].Price) })
	} else {
		sort.Slice(levels, func(i, j int) bool { return levels[i].Price.LessThan(levels[j].Price) })
	}

	return levels
}

func removeFromSide(levels []*PriceLevel, id string) []*PriceLevel {
	for i, lvl := range levels {
		for j, o := range lvl.Orders {
			if o.ID == id {
				lvl.Orders = append(lvl.Orders[:j], lvl.Orders[j+1:]...)
				if len(lvl.Orders) == 0 {
					levels = append(levels[:i], levels[i+1:]...)
				}
				return levels
			}
		}
	}
	return levels
}
