package strategy

import (
	"time"

	"github.com/exsim/clob-exchange/internal/engine"
	"github.com/exsim/clob-exchange/internal/fix"
	"github.com/exsim/clob-exchange/internal/money"
	"github.com/exsim/clob-exchange/internal/orderbook"
)

// PassiveLiquidityProvider quotes at the current best bid and ask,
// capped at a small inventory band. Grounded on
// original_source/strategies/competitor_strategy.py.
type PassiveLiquidityProvider struct {
	*BaseStrategy
	rng          *engine.RNG
	MaxInventory int
}

// NewPassiveLiquidityProvider builds the strategy with spec's defaults
// (inventory capped at +/-100, max order qty 500 per the original's
// override).
func NewPassiveLiquidityProvider(symbol string, book *orderbook.Book, rng *engine.RNG) *PassiveLiquidityProvider {
	codec := fix.NewCodec("passive_liquidity_provider", "EXSIM")
	base := NewBaseStrategy("passive_liquidity_provider", symbol, book, codec, DefaultRiskParams())
	p := &PassiveLiquidityProvider{BaseStrategy: base, rng: rng, MaxInventory: 100}
	p.RiskCheck = p.riskCheck
	return p
}

func (p *PassiveLiquidityProvider) riskCheck(side orderbook.Side, price money.Price, qty int) bool {
	return p.checkInventoryAndCap(side, qty)
}

func (p *PassiveLiquidityProvider) checkInventoryAndCap(side orderbook.Side, qty int) bool {
	inv := p.Inventory()
	if side == orderbook.SideBuy && inv+qty > p.MaxInventory {
		return false
	}
	if side == orderbook.SideSell && inv-qty < -p.MaxInventory {
		return false
	}
	return qty <= 500
}

// GenerateOrders posts passive resting liquidity at the current best bid
// and ask; a side is skipped when its qty would take inventory past
// MaxInventory.
func (p *PassiveLiquidityProvider) GenerateOrders(now time.Time) []Order {
	if p.beginTick(now) {
		return nil
	}
	if orders, handled := p.maybeRebalance(now, p.MaxInventory); handled {
		return orders
	}

	bestBid, okBid := p.Book().BestBid()
	bestAsk, okAsk := p.Book().BestAsk()
	if !okBid || !okAsk {
		return nil
	}

	var orders []Order
	inv := p.Inventory()

	buyQty := p.rng.IntRange(1, p.GetAdaptiveOrderSize(1, 10))
	if inv+buyQty <= p.MaxInventory {
		if p.PlaceOrder(orderbook.SideBuy, bestBid.Price, buyQty, now) {
			orders = append(orders, Order{Side: orderbook.SideBuy, Price: bestBid.Price, Qty: buyQty})
		}
	}

	sellQty := p.rng.IntRange(1, p.GetAdaptiveOrderSize(1, 10))
	if inv-sellQty >= -p.MaxInventory {
		if p.PlaceOrder(orderbook.SideSell, bestAsk.Price, sellQty, now) {
			orders = append(orders, Order{Side: orderbook.SideSell, Price: bestAsk.Price, Qty: sellQty})
		}
	}

	return orders
}
