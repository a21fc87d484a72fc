package strategy

import (
	"fmt"
	"log"
	"math"
	"os"
	"time"

	"github.com/exsim/clob-exchange/internal/fix"
	"github.com/exsim/clob-exchange/internal/matching"
	"github.com/exsim/clob-exchange/internal/money"
	"github.com/exsim/clob-exchange/internal/orderbook"
)

// BaseStrategy implements the risk/PnL/cooldown framework every concrete
// strategy embeds. Grounded on base_strategy.py's BaseStrategy class.
type BaseStrategy struct {
	sourceName string
	symbol     string
	book       *orderbook.Book
	codec      *fix.Codec
	logger     *log.Logger

	Risk RiskParams

	// RiskCheck is the concrete strategy's own additional risk predicate,
	// run before the base checks. Set by the concrete strategy's
	// constructor.
	RiskCheck RiskCheck

	position    Position
	realisedPnL money.Price

	lastOrderTime     time.Time
	orderCount        int
	positionStartTime *time.Time

	maxUnrealisedPnL money.Price
	cooldownUntil    time.Time

	highestPrice *money.Price
	lowestPrice  *money.Price

	totalTrades   int
	winningTrades int

	rebalancePending bool
}

// Position is an alias of matching.Position: the strategy's average-cost
// inventory is the same value the matching engine updates on each fill
// (shared via Position()), and OnTrade reads it rather than recomputing.
type Position = matching.Position

// NewBaseStrategy builds a BaseStrategy. risk is used exactly as given; a
// zero-valued RiskParams is not replaced by DefaultRiskParams().
func NewBaseStrategy(sourceName, symbol string, book *orderbook.Book, codec *fix.Codec, risk RiskParams) *BaseStrategy {
	return &BaseStrategy{
		sourceName: sourceName,
		symbol:     symbol,
		book:       book,
		codec:      codec,
		logger:     log.New(os.Stdout, fmt.Sprintf("[strategy.%s] ", sourceName), log.Ldate|log.Ltime|log.Lmicroseconds),
		Risk:       risk,
	}
}

func (b *BaseStrategy) Source() string        { return b.sourceName }
func (b *BaseStrategy) Symbol() string         { return b.symbol }
func (b *BaseStrategy) Position() *Position    { return &b.position }
func (b *BaseStrategy) Codec() *fix.Codec      { return b.codec }
func (b *BaseStrategy) Book() *orderbook.Book  { return b.book }
func (b *BaseStrategy) Inventory() int         { return b.position.Qty }
func (b *BaseStrategy) RealisedPnL() money.Price {
	return b.realisedPnL
}

// UnrealisedPnL marks the current position to the book's mid price,
// matching the dashboard's live strategy_status figures.
func (b *BaseStrategy) UnrealisedPnL() money.Price {
	mid, ok := b.book.MidPrice()
	if !ok {
		return money.Zero
	}
	return b.unrealisedPnL(mid)
}

// TotalTrades and WinningTrades back the dashboard's win-rate figure.
func (b *BaseStrategy) TotalTrades() int   { return b.totalTrades }
func (b *BaseStrategy) WinningTrades() int { return b.winningTrades }

// WinRate is winningTrades/totalTrades, 0 when no trades have occurred yet.
func (b *BaseStrategy) WinRate() float64 {
	if b.totalTrades == 0 {
		return 0
	}
	return float64(b.winningTrades) / float64(b.totalTrades)
}

// beginTick mirrors base_strategy.py's generate_orders(): returns true
// (skip this tick) while in cooldown; otherwise refreshes the drawdown
// high-water-mark and cooldown state first.
func (b *BaseStrategy) beginTick(now time.Time) bool {
	if now.Before(b.cooldownUntil) {
		return true
	}
	b.updateUnrealisedPnLAndDrawdown(now)
	return false
}

// maybeRebalance implements the rebalance logic shared by all four
// concrete strategies: once inventory breaches maxInventory, flag
// rebalance_pending and on each subsequent
// tick emit a small offsetting order at the opposite best until flat.
// handled is true when the caller should return orders as-is without
// running its own quoting logic this tick.
func (b *BaseStrategy) maybeRebalance(now time.Time, maxInventory int) (orders []Order, handled bool) {
	if b.rebalancePending {
		qty := b.position.Qty
		if qty < 0 {
			qty = -qty
		}
		if qty > 10 {
			qty = 10
		}
		if qty > 0 {
			if b.position.Qty > 0 {
				if q, ok := b.book.BestAsk(); ok {
					if b.PlaceOrder(orderbook.SideSell, q.Price, qty, now) {
						orders = append(orders, Order{Side: orderbook.SideSell, Price: q.Price, Qty: qty})
					}
				}
			} else {
				if q, ok := b.book.BestBid(); ok {
					if b.PlaceOrder(orderbook.SideBuy, q.Price, qty, now) {
						orders = append(orders, Order{Side: orderbook.SideBuy, Price: q.Price, Qty: qty})
					}
				}
			}
		}
		if b.position.Qty == 0 {
			b.rebalancePending = false
		}
		return orders, true
	}

	inv := b.position.Qty
	if inv < 0 {
		inv = -inv
	}
	if inv >= maxInventory {
		b.rebalancePending = true
		return nil, true
	}
	return nil, false
}

// PlaceOrder enforces the minimum order interval, runs the risk-check
// chain (concrete override, then base checks), and — if both pass —
// encodes a NewOrderSingle, round-trips it through the codec, and rests
// the parsed order directly on the book (base_strategy.py's place_order).
func (b *BaseStrategy) PlaceOrder(side orderbook.Side, price money.Price, qty int, now time.Time) bool {
	if now.Sub(b.lastOrderTime) < b.Risk.MinOrderInterval {
		return false
	}
	if b.RiskCheck != nil && !b.RiskCheck(side, price, qty) {
		b.logger.Printf("risk blocked (strategy check): side=%s qty=%d price=%s", side, qty, price)
		return false
	}
	if !b.baseRiskCheck(side, price, qty, now) {
		return false
	}

	clOrdID := fmt.Sprintf("%s-%d", b.sourceName, now.UnixNano())
	raw, err := b.codec.EncodeNewOrderSingle(clOrdID, b.symbol, side.String(), price, qty, b.sourceName, now)
	if err != nil {
		b.logger.Printf("encode failed: %v", err)
		return false
	}
	msg, err := b.codec.Decode(raw)
	if err != nil {
		b.logger.Printf("round-trip decode failed: %v", err)
		return false
	}
	nos, err := fix.ToNewOrderSingle(msg)
	if err != nil {
		b.logger.Printf("round-trip parse failed: %v", err)
		return false
	}
	parsedSide, ok := orderbook.ParseSide(nos.Side)
	if !ok {
		return false
	}
	if err := b.book.AddOrder(parsedSide, nos.Price, nos.OrderQty, clOrdID, b.sourceName, now); err != nil {
		b.logger.Printf("add_order failed: %v", err)
		return false
	}

	b.orderCount++
	if b.positionStartTime == nil {
		b.positionStartTime = &now
	}
	b.lastOrderTime = now
	return true
}

// baseRiskCheck runs the composite pre-trade risk check, all of which
// must pass.
func (b *BaseStrategy) baseRiskCheck(side orderbook.Side, price money.Price, qty int, now time.Time) bool {
	if qty > b.Risk.MaxOrderQty {
		b.logger.Printf("qty %d exceeds max order qty %d", qty, b.Risk.MaxOrderQty)
		return false
	}

	var ref money.Price
	var haveRef bool
	if side == orderbook.SideSell {
		if q, ok := b.book.BestBid(); ok {
			ref, haveRef = q.Price, true
		}
	} else {
		if q, ok := b.book.BestAsk(); ok {
			ref, haveRef = q.Price, true
		}
	}
	if haveRef && !ref.IsZero() {
		deviation := price.Sub(ref).Abs().Div(ref)
		if deviation.Float64() > b.Risk.MaxPriceDeviation {
			b.logger.Printf("price deviation %.4f exceeds max %.4f", deviation.Float64(), b.Risk.MaxPriceDeviation)
			return false
		}
	}

	if b.orderCount >= b.Risk.MaxDailyOrders {
		b.logger.Print("daily order limit reached")
		return false
	}

	if b.positionStartTime != nil && now.Sub(*b.positionStartTime) > b.Risk.MaxPositionDuration {
		b.logger.Print("position held beyond max duration")
		return false
	}

	mid, _ := b.book.MidPrice()
	total := b.realisedPnL.Add(b.unrealisedPnL(mid))
	if !total.GreaterThan(b.Risk.DailyLossLimit) {
		b.logger.Print("daily loss limit exceeded")
		return false
	}

	if !b.checkLiquidity(side, qty) {
		b.logger.Print("order size exceeds available liquidity")
		return false
	}

	if b.currentVolatility() > b.Risk.MaxVolatility {
		b.logger.Print("volatility threshold exceeded")
		return false
	}

	return true
}

func (b *BaseStrategy) checkLiquidity(side orderbook.Side, qty int) bool {
	levels := b.book.Levels(side.Opposite())
	n := len(levels)
	if n > 5 {
		n = 5
	}
	total := 0
	for i := 0; i < n; i++ {
		total += levels[i].TotalQty()
	}
	if total == 0 {
		return false
	}
	return float64(qty) <= float64(total)*b.Risk.LiquidityFraction
}

// currentVolatility returns the standard deviation of the last 30 trade
// prices, floored at 0.01 to avoid a false zero-volatility reading. With
// fewer than two recorded prices it returns 0.
func (b *BaseStrategy) currentVolatility() float64 {
	prices := b.book.GetRecentPrices(30)
	if len(prices) < 2 {
		return 0.0
	}
	vals := make([]float64, len(prices))
	var sum float64
	for i, p := range prices {
		vals[i] = p.Float64()
		sum += vals[i]
	}
	mean := sum / float64(len(vals))
	var sumSq float64
	for _, v := range vals {
		d := v - mean
		sumSq += d * d
	}
	stddev := math.Sqrt(sumSq / float64(len(vals)))
	if stddev < 0.01 {
		return 0.01
	}
	return stddev
}

// GetAdaptiveOrderSize implements spec's
// clamp(floor(max_order_qty / (volatility + 0.01)), min, max).
func (b *BaseStrategy) GetAdaptiveOrderSize(min, max int) int {
	vol := b.currentVolatility()
	size := int(float64(b.Risk.MaxOrderQty) / (vol + 0.01))
	if size < min {
		size = min
	}
	if size > max {
		size = max
	}
	return size
}

func (b *BaseStrategy) unrealisedPnL(mid money.Price) money.Price {
	if mid.IsZero() || b.position.Qty == 0 {
		return money.Zero
	}
	if b.position.Qty > 0 {
		return mid.Sub(b.position.AvgPrice).MulFloat(float64(b.position.Qty))
	}
	return b.position.AvgPrice.Sub(mid).MulFloat(float64(-b.position.Qty))
}

func (b *BaseStrategy) updateUnrealisedPnLAndDrawdown(now time.Time) {
	mid, ok := b.book.MidPrice()
	if !ok || b.position.Qty == 0 {
		return
	}
	unrealised := b.unrealisedPnL(mid)
	if unrealised.GreaterThan(b.maxUnrealisedPnL) {
		b.maxUnrealisedPnL = unrealised
	}
	drawdown := b.maxUnrealisedPnL.Sub(unrealised)
	if !drawdown.LessThan(b.Risk.DrawdownLimit) {
		b.cooldownUntil = now.Add(b.Risk.CooldownPeriod)
		b.maxUnrealisedPnL = unrealised
	}
}

// OnTrade folds a fill into cumulative PnL/counters and evaluates the
// trailing-stop and per-trade stop-loss/take-profit rules. It does not
// re-derive the average-cost position update: matching.Engine already
// mutated *Position via Position.ApplyFill before calling this, so here
// we only need the PnL this specific fill realised for this participant
// (trade.MakerPnL or trade.TakerPnL, whichever side we were on).
func (b *BaseStrategy) OnTrade(trade matching.Trade) {
	var pnl money.Price
	if trade.MakerSource == b.sourceName {
		pnl = trade.MakerPnL
	} else {
		pnl = trade.TakerPnL
	}

	b.realisedPnL = b.realisedPnL.Add(pnl)
	b.totalTrades++
	if pnl.IsPositive() {
		b.winningTrades++
	}

	b.updateTrailingStop(trade.Price)

	if pnl.Float64() <= -b.Risk.PerTradeStopLoss.Float64() {
		b.logger.Printf("per-trade stop loss triggered: pnl=%s", pnl)
		b.resetPosition()
	} else if pnl.Float64() >= b.Risk.PerTradeTakeProfit.Float64() {
		b.logger.Printf("per-trade take profit triggered: pnl=%s", pnl)
		b.resetPosition()
	}
}

// OnExecutionReport is a no-op by default; optional override.
func (b *BaseStrategy) OnExecutionReport(trade matching.Trade) {}

func (b *BaseStrategy) updateTrailingStop(price money.Price) {
	switch {
	case b.position.Qty > 0:
		if b.highestPrice == nil || price.GreaterThan(*b.highestPrice) {
			p := price
			b.highestPrice = &p
		}
		threshold := b.highestPrice.MulFloat(1 - b.Risk.TrailingStopPct)
		if price.LessThan(threshold) {
			b.logger.Printf("trailing stop hit on long at %s", price)
			b.resetPosition()
		}
	case b.position.Qty < 0:
		if b.lowestPrice == nil || price.LessThan(*b.lowestPrice) {
			p := price
			b.lowestPrice = &p
		}
		threshold := b.lowestPrice.MulFloat(1 + b.Risk.TrailingStopPct)
		if price.GreaterThan(threshold) {
			b.logger.Printf("trailing stop hit on short at %s", price)
			b.resetPosition()
		}
	default:
		b.highestPrice = nil
		b.lowestPrice = nil
	}
}

// resetPosition clears position state on a trailing-stop / stop-loss /
// take-profit trigger. realisedPnL, total_trades/winning_trades/order_count
// are all cumulative metrics and survive the reset — a deliberate
// departure from base_strategy.py's reset_inventory(), which zeroes all
// of them. See DESIGN.md.
func (b *BaseStrategy) resetPosition() {
	b.position.Qty = 0
	b.position.AvgPrice = money.Zero
	b.positionStartTime = nil
	b.highestPrice = nil
	b.lowestPrice = nil
}
