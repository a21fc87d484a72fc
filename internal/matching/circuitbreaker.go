package matching

import (
	"time"

	"github.com/exsim/clob-exchange/internal/money"
)

// TradingHalted is raised when the circuit breaker blocks an order.
type TradingHalted struct {
	Reason string
}

func (e *TradingHalted) Error() string { return "trading halted: " + e.Reason }

// CircuitBreaker tracks daily realised loss and order rate, halting
// trading when either threshold is breached within a rolling 24h window.
// Grounded on original_source/app/matching_engine.py's CircuitBreaker.
type CircuitBreaker struct {
	MaxDailyLoss  money.Price // negative threshold, e.g. -10000
	MaxOrderRate  int
	dailyLoss     money.Price
	orderCount    int
	lastResetTime time.Time
}

// DefaultMaxDailyLoss and DefaultMaxOrderRate are spec's circuit breaker
// defaults.
var DefaultMaxDailyLoss = money.NewFromInt(-10000)

const DefaultMaxOrderRate = 1000

// NewCircuitBreaker builds a breaker with spec's defaults.
func NewCircuitBreaker(now time.Time) *CircuitBreaker {
	return &CircuitBreaker{
		MaxDailyLoss:  DefaultMaxDailyLoss,
		MaxOrderRate:  DefaultMaxOrderRate,
		lastResetTime: now,
	}
}

// AllowExecution resets the rolling window if 24h have elapsed, then
// reports whether trading may proceed: it halts when daily_loss has
// breached the (negative) threshold, or the order count has reached the
// rate cap.
func (c *CircuitBreaker) AllowExecution(now time.Time) bool {
	if now.Sub(c.lastResetTime) >= 24*time.Hour {
		c.dailyLoss = money.Zero
		c.orderCount = 0
		c.lastResetTime = now
	}
	if c.dailyLoss.LessThan(c.MaxDailyLoss) || c.dailyLoss.Equal(c.MaxDailyLoss) {
		return false
	}
	if c.orderCount >= c.MaxOrderRate {
		return false
	}
	return true
}

// RecordTrade folds a trade's realised PnL into the daily loss tally and
// increments the order counter.
func (c *CircuitBreaker) RecordTrade(pnl money.Price) {
	c.dailyLoss = c.dailyLoss.Add(pnl)
	c.orderCount++
}

// DailyLoss returns the current rolling-window realised PnL tally.
func (c *CircuitBreaker) DailyLoss() money.Price { return c.dailyLoss }

// OrderCount returns the current rolling-window order count.
func (c *CircuitBreaker) OrderCount() int { return c.orderCount }
