// Package strategy implements the base risk/PnL framework shared by every
// competing algorithmic strategy, plus four concrete strategies:
// PassiveLiquidityProvider, MarketMaker, Momentum, and MyStrategy.
//
// Grounded on original_source/strategies/base_strategy.py and the three
// competitor_strategy*.py / my_strategy.py files, adapted from Python's
// super()-call-chain override pattern to Go composition: each concrete
// strategy embeds *BaseStrategy and supplies a strategy-specific risk
// predicate as a function value, matching base_strategy.py's
// "concrete _risk_check runs first, then super()._risk_check()" chain.
package strategy

import (
	"time"

	"github.com/exsim/clob-exchange/internal/matching"
	"github.com/exsim/clob-exchange/internal/money"
	"github.com/exsim/clob-exchange/internal/orderbook"
)

// Order is a candidate order a strategy wants placed this tick. The
// scheduler routes each through matching.Engine.MatchOrder — note this
// is independent of BaseStrategy.PlaceOrder already having rested the
// same order directly on the book via order_book.add_order; both paths
// are faithfully carried from the original as two separate, deliberate
// steps rather than flagging either as redundant. See DESIGN.md.
type Order struct {
	Side orderbook.Side
	Price money.Price
	Qty   int
}

// Strategy is what the scheduler drives each tick. Every concrete
// strategy also satisfies matching.Participant (Source/Position/Codec/
// OnTrade/OnExecutionReport) so the matching engine can route fills and
// execution reports back to it.
type Strategy interface {
	matching.Participant
	GenerateOrders(now time.Time) []Order
	Symbol() string

	// Inventory, RealisedPnL, UnrealisedPnL, TotalTrades, WinningTrades
	// and WinRate back the dashboard's /strategy_status endpoint.
	Inventory() int
	RealisedPnL() money.Price
	UnrealisedPnL() money.Price
	TotalTrades() int
	WinningTrades() int
	WinRate() float64
}

// RiskCheck is a strategy-specific risk predicate, run before the base
// framework's own checks. A nil RiskCheck means "no additional
// constraint" — only the base checks apply.
type RiskCheck func(side orderbook.Side, price money.Price, qty int) bool
