package strategy

import (
	"time"

	"github.com/exsim/clob-exchange/internal/config"
	"github.com/exsim/clob-exchange/internal/money"
)

// RiskParams holds the base framework's tunable risk limits (spec
// §4.4.1/§4.4.2), defaulted the way base_strategy.py's __init__ defaults
// its params dict.
type RiskParams struct {
	MaxOrderQty         int
	MaxPriceDeviation   float64 // fraction, e.g. 0.02 for 2%
	MaxDailyOrders      int
	MaxPositionDuration time.Duration
	DailyLossLimit      money.Price // negative threshold
	MinOrderInterval    time.Duration
	DrawdownLimit       money.Price
	CooldownPeriod      time.Duration
	TrailingStopPct     float64
	PerTradeStopLoss    money.Price // positive magnitude
	PerTradeTakeProfit  money.Price // positive magnitude
	MaxVolatility       float64
	LiquidityFraction   float64 // fraction of top-5 opposite-side qty a single order may take
}

// DefaultRiskParams returns the baseline risk limits every strategy
// starts from.
func DefaultRiskParams() RiskParams {
	return RiskParams{
		MaxOrderQty:         1000,
		MaxPriceDeviation:   0.02,
		MaxDailyOrders:      1000,
		MaxPositionDuration: 60 * time.Second,
		DailyLossLimit:      money.NewFromInt(-10000),
		MinOrderInterval:    time.Second,
		DrawdownLimit:       money.NewFromInt(500),
		CooldownPeriod:      60 * time.Second,
		TrailingStopPct:     0.01,
		PerTradeStopLoss:    money.NewFromInt(100),
		PerTradeTakeProfit:  money.NewFromInt(150),
		MaxVolatility:       0.1,
		LiquidityFraction:   0.20,
	}
}

// RiskParamsFromConfig converts a loaded config.RiskConfig into
// RiskParams, letting deployments override the baseline defaults via
// config.yaml without touching code.
func RiskParamsFromConfig(c config.RiskConfig) RiskParams {
	return RiskParams{
		MaxOrderQty:         c.MaxOrderQty,
		MaxPriceDeviation:   c.MaxPriceDeviation,
		MaxDailyOrders:      c.MaxDailyOrders,
		MaxPositionDuration: c.MaxPositionDuration,
		DailyLossLimit:      money.NewFromFloat(c.DailyLossLimit),
		MinOrderInterval:    c.MinOrderInterval,
		DrawdownLimit:       money.NewFromFloat(c.DrawdownLimit),
		CooldownPeriod:      c.CooldownPeriod,
		TrailingStopPct:     c.TrailingStopPct,
		PerTradeStopLoss:    money.NewFromFloat(c.PerTradeStopLoss),
		PerTradeTakeProfit:  money.NewFromFloat(c.PerTradeTakeProfit),
		MaxVolatility:       c.MaxVolatility,
		LiquidityFraction:   c.LiquidityFraction,
	}
}
