package strategy

import (
	"time"

	"github.com/exsim/clob-exchange/internal/engine"
	"github.com/exsim/clob-exchange/internal/fix"
	"github.com/exsim/clob-exchange/internal/money"
	"github.com/exsim/clob-exchange/internal/orderbook"
)

// Momentum skews its quotes toward the direction of recent price trend
// while always providing liquidity (it never crosses the spread).
// Grounded on original_source/strategies/competitor_strategy2.py
// (MomentumStrategy).
//
// The original's lookback parameter defaults to 0, which makes the
// trend signal permanently inert (len(prices) < 0 is never true, so the
// strategy always computes trend=0) — clearly not the intended window.
// This implementation uses a default lookback of 20 trades instead. See
// DESIGN.md.
type Momentum struct {
	*BaseStrategy
	rng          *engine.RNG
	MaxInventory int
	Lookback     int
	BaseSpread   float64
	MomentumSkew float64
	SizeSkew     int
}

// NewMomentum builds the strategy with its default risk and sizing
// parameters.
func NewMomentum(symbol string, book *orderbook.Book, rng *engine.RNG) *Momentum {
	codec := fix.NewCodec("momentum", "EXSIM")
	base := NewBaseStrategy("momentum", symbol, book, codec, DefaultRiskParams())
	return &Momentum{
		BaseStrategy: base,
		rng:          rng,
		MaxInventory: 100,
		Lookback:     20,
		BaseSpread:   0.002,
		MomentumSkew: 0.001,
		SizeSkew:     2,
	}
}

// GenerateOrders skews a base spread by recent trend direction and adds
// SizeSkew to the trend side's qty; a side is skipped when its qty would
// take inventory past MaxInventory.
func (m *Momentum) GenerateOrders(now time.Time) []Order {
	if m.beginTick(now) {
		return nil
	}
	if orders, handled := m.maybeRebalance(now, m.MaxInventory); handled {
		return orders
	}

	prices := m.Book().GetRecentPrices(m.Lookback)
	if len(prices) < m.Lookback {
		return nil
	}

	trend := linearSlope(prices)

	bestBid, okBid := m.Book().BestBid()
	bestAsk, okAsk := m.Book().BestAsk()
	if !okBid || !okAsk {
		return nil
	}

	skew := 0.0
	if trend > 0 {
		skew = m.MomentumSkew
	} else if trend < 0 {
		skew = -m.MomentumSkew
	}

	mid := bestBid.Price.Add(bestAsk.Price).Div(money.NewFromInt(2))
	bidPrice := mid.MulFloat(1 - m.BaseSpread/2 + skew)
	askPrice := mid.MulFloat(1 + m.BaseSpread/2 + skew)

	base := m.GetAdaptiveOrderSize(1, 10)
	buyQty, sellQty := base, base
	if trend > 0 {
		buyQty += m.SizeSkew
	} else if trend < 0 {
		sellQty += m.SizeSkew
	}

	var orders []Order
	inv := m.Inventory()

	if inv+buyQty <= m.MaxInventory {
		if m.PlaceOrder(orderbook.SideBuy, bidPrice, buyQty, now) {
			orders = append(orders, Order{Side: orderbook.SideBuy, Price: bidPrice, Qty: buyQty})
		}
	}
	if inv-sellQty >= -m.MaxInventory {
		if m.PlaceOrder(orderbook.SideSell, askPrice, sellQty, now) {
			orders = append(orders, Order{Side: orderbook.SideSell, Price: askPrice, Qty: sellQty})
		}
	}

	return orders
}

// linearSlope fits a degree-1 polynomial (least squares) to prices
// indexed 0..n-1 and returns its slope, matching the original's
// numpy.polyfit(range(len(prices)), prices, 1)[0].
func linearSlope(prices []money.Price) float64 {
	n := len(prices)
	if n < 2 {
		return 0
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, p := range prices {
		x := float64(i)
		y := p.Float64()
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	nf := float64(n)
	denom := nf*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (nf*sumXY - sumX*sumY) / denom
}
