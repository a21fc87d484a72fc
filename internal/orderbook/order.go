package orderbook

import (
	"time"

	"github.com/exsim/clob-exchange/internal/money"
)

// Side is Buy or Sell.
type Side byte

const (
	SideBuy  Side = 'B'
	SideSell Side = 'S'
)

// ParseSide accepts the FIX wire codes "1"/"2" as aliases for "B"/"S".
func ParseSide(s string) (Side, bool) {
	switch s {
	case "B", "1":
		return SideBuy, true
	case "S", "2":
		return SideSell, true
	}
	return 0, false
}

// String renders the FIX wire code for a Side.
func (s Side) String() string {
	if s == SideBuy {
		return "1"
	}
	return "2"
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Order is a single resting or incoming limit order.
type Order struct {
	ID          string
	Side        Side
	Price       money.Price
	Qty         int
	OriginalQty int // qty at submission time, for CumQty/LeavesQty reporting
	Source      string
	SubmittedAt time.Time
}
