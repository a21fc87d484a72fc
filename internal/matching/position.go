package matching

import (
	"github.com/exsim/clob-exchange/internal/money"
	"github.com/exsim/clob-exchange/internal/orderbook"
)

// Position tracks one participant's signed inventory and average entry
// price, for average-cost PnL attribution. Qty is positive for a long
// position, negative for a short one.
type Position struct {
	Qty      int
	AvgPrice money.Price
}

// ApplyFill folds a fill of qty at price, on the participant's own side
// in this trade, into the position and returns the realised PnL booked by
// this fill (zero if the fill only opens or extends a position).
func (p *Position) ApplyFill(side orderbook.Side, price money.Price, qty int) money.Price {
	signedQty := qty
	if side == orderbook.SideSell {
		signedQty = -qty
	}

	sameSign := p.Qty == 0 || (p.Qty > 0) == (signedQty > 0)
	if sameSign {
		absInv := abs(p.Qty)
		newQty := p.Qty + signedQty
		if newQty != 0 {
			p.AvgPrice = p.AvgPrice.MulFloat(float64(absInv)).Add(price.MulFloat(float64(qty))).Div(money.NewFromInt(int64(abs(newQty))))
		}
		p.Qty = newQty
		return money.Zero
	}

	closeQty := min(abs(p.Qty), qty)
	var realised money.Price
	if p.Qty > 0 {
		// previously long, this fill sells: profit when price > avg entry.
		realised = price.Sub(p.AvgPrice).MulFloat(float64(closeQty))
	} else {
		// previously short, this fill buys back: profit when price < avg entry.
		realised = p.AvgPrice.Sub(price).MulFloat(float64(closeQty))
	}

	remaining := qty - closeQty
	p.Qty += signedQty
	if p.Qty == 0 {
		p.AvgPrice = money.Zero
	} else if remaining > 0 {
		p.AvgPrice = price
	}
	return realised
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
