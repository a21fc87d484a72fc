package strategy

import (
	"time"

	"github.com/exsim/clob-exchange/internal/engine"
	"github.com/exsim/clob-exchange/internal/fix"
	"github.com/exsim/clob-exchange/internal/money"
	"github.com/exsim/clob-exchange/internal/orderbook"
)

// MarketMaker quotes both sides around the current mid price at a fixed
// spread. Grounded on original_source/strategies/competitor_strategy1.py
// (MarketMakerStrategy); it has no strategy-specific risk override in the
// original, so RiskCheck is left nil (base checks only).
type MarketMaker struct {
	*BaseStrategy
	rng          *engine.RNG
	Spread       float64
	MaxInventory int
}

// NewMarketMaker builds the strategy with spec's default 0.2% spread.
func NewMarketMaker(symbol string, book *orderbook.Book, rng *engine.RNG) *MarketMaker {
	codec := fix.NewCodec("market_maker", "EXSIM")
	base := NewBaseStrategy("market_maker", symbol, book, codec, DefaultRiskParams())
	return &MarketMaker{BaseStrategy: base, rng: rng, Spread: 0.002, MaxInventory: 100}
}

// GenerateOrders quotes a symmetric spread around mid; a side is skipped
// when its qty would take inventory past MaxInventory.
func (m *MarketMaker) GenerateOrders(now time.Time) []Order {
	if m.beginTick(now) {
		return nil
	}
	if orders, handled := m.maybeRebalance(now, m.MaxInventory); handled {
		return orders
	}

	bestBid, okBid := m.Book().BestBid()
	bestAsk, okAsk := m.Book().BestAsk()
	if !okBid || !okAsk {
		return nil
	}

	mid := bestBid.Price.Add(bestAsk.Price).Div(money.NewFromInt(2))
	bidPrice := mid.MulFloat(1 - m.Spread/2)
	askPrice := mid.MulFloat(1 + m.Spread/2)

	var orders []Order
	inv := m.Inventory()

	buyQty := m.rng.IntRange(1, m.GetAdaptiveOrderSize(1, 10))
	if inv+buyQty <= m.MaxInventory {
		if m.PlaceOrder(orderbook.SideBuy, bidPrice, buyQty, now) {
			orders = append(orders, Order{Side: orderbook.SideBuy, Price: bidPrice, Qty: buyQty})
		}
	}

	sellQty := m.rng.IntRange(1, m.GetAdaptiveOrderSize(1, 10))
	if inv-sellQty >= -m.MaxInventory {
		if m.PlaceOrder(orderbook.SideSell, askPrice, sellQty, now) {
			orders = append(orders, Order{Side: orderbook.SideSell, Price: askPrice, Qty: sellQty})
		}
	}

	return orders
}
