package matching

import (
	"time"

	"github.com/exsim/clob-exchange/internal/money"
	"github.com/exsim/clob-exchange/internal/orderbook"
)

// Trade is one executed fill between a resting maker order and an
// incoming taker order.
type Trade struct {
	Symbol      string
	Price       money.Price
	Qty         int
	MakerID     string
	MakerSource string
	TakerID     string
	TakerSource string
	Side        orderbook.Side // the taker's side
	Time        time.Time
	LatencyMs   float64 // maker latency: time from maker's submission to this fill
	MakerPnL    money.Price
	TakerPnL    money.Price
}

// Role distinguishes which side of a trade a latency sample belongs to.
type Role string

const (
	RoleMaker Role = "maker"
	RoleTaker Role = "taker"
)

// LatencyEntry is one sample appended to a symbol's latency history.
type LatencyEntry struct {
	Time      time.Time
	Source    string
	LatencyMs float64
	Role      Role
}
