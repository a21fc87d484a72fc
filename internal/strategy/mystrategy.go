package strategy

import (
	"time"

	"github.com/exsim/clob-exchange/internal/engine"
	"github.com/exsim/clob-exchange/internal/fix"
	"github.com/exsim/clob-exchange/internal/money"
	"github.com/exsim/clob-exchange/internal/orderbook"
)

// MyStrategy is the user-controlled strategy: quotes at best +/- a
// configurable spread factor, toggled on/off by the dashboard (spec
// §4.4.3, §6 /toggle_my_strategy). Grounded on
// original_source/strategies/my_strategy.py.
type MyStrategy struct {
	*BaseStrategy
	rng          *engine.RNG
	SpreadFactor float64
	MaxInventory int
}

// NewMyStrategy builds the strategy with spec's default 1% spread factor.
func NewMyStrategy(symbol string, book *orderbook.Book, rng *engine.RNG) *MyStrategy {
	codec := fix.NewCodec("my_strategy", "EXSIM")
	base := NewBaseStrategy("my_strategy", symbol, book, codec, DefaultRiskParams())
	s := &MyStrategy{BaseStrategy: base, rng: rng, SpreadFactor: 0.01, MaxInventory: 100}
	s.RiskCheck = s.riskCheck
	return s
}

func (s *MyStrategy) riskCheck(side orderbook.Side, price money.Price, qty int) bool {
	inv := s.Inventory()
	if side == orderbook.SideBuy && inv+qty > s.MaxInventory {
		return false
	}
	if side == orderbook.SideSell && inv-qty < -s.MaxInventory {
		return false
	}
	return qty <= 500
}

// GenerateOrders runs the user-editable strategy slot's order logic.
func (s *MyStrategy) GenerateOrders(now time.Time) []Order {
	if s.beginTick(now) {
		return nil
	}
	if orders, handled := s.maybeRebalance(now, s.MaxInventory); handled {
		return orders
	}

	bestBid, okBid := s.Book().BestBid()
	bestAsk, okAsk := s.Book().BestAsk()
	if !okBid || !okAsk {
		return nil
	}

	adjustedBid := bestBid.Price.MulFloat(1 - s.SpreadFactor)
	adjustedAsk := bestAsk.Price.MulFloat(1 + s.SpreadFactor)

	var orders []Order
	inv := s.Inventory()

	buyQty := s.rng.IntRange(1, s.GetAdaptiveOrderSize(1, 10))
	if inv+buyQty <= s.MaxInventory {
		if s.PlaceOrder(orderbook.SideBuy, adjustedBid, buyQty, now) {
			orders = append(orders, Order{Side: orderbook.SideBuy, Price: adjustedBid, Qty: buyQty})
		}
	}

	sellQty := s.rng.IntRange(1, s.GetAdaptiveOrderSize(1, 10))
	if inv-sellQty >= -s.MaxInventory {
		if s.PlaceOrder(orderbook.SideSell, adjustedAsk, sellQty, now) {
			orders = append(orders, Order{Side: orderbook.SideSell, Price: adjustedAsk, Qty: sellQty})
		}
	}

	return orders
}
