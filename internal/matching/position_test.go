package matching

import (
	"testing"

	"github.com/exsim/clob-exchange/internal/money"
	"github.com/exsim/clob-exchange/internal/orderbook"
)

func TestPositionOpenAndExtend(t *testing.T) {
	p := &Position{}
	realised := p.ApplyFill(orderbook.SideBuy, money.NewFromFloat(100), 10)
	if !realised.IsZero() {
		t.Fatalf("opening a position should realise no PnL, got %s", realised)
	}
	if p.Qty != 10 || !p.AvgPrice.Equal(money.NewFromFloat(100)) {
		t.Fatalf("position = %+v", p)
	}

	realised = p.ApplyFill(orderbook.SideBuy, money.NewFromFloat(110), 10)
	if !realised.IsZero() {
		t.Fatalf("extending a position should realise no PnL, got %s", realised)
	}
	if p.Qty != 20 || !p.AvgPrice.Equal(money.NewFromFloat(105)) {
		t.Fatalf("extended position = %+v, want qty=20 avg=105", p)
	}
}

func TestPositionCloseLongForProfit(t *testing.T) {
	p := &Position{Qty: 10, AvgPrice: money.NewFromFloat(100)}
	realised := p.ApplyFill(orderbook.SideSell, money.NewFromFloat(110), 10)
	if !realised.Equal(money.NewFromFloat(100)) {
		t.Fatalf("realised = %s, want 100 (10 * (110-100))", realised)
	}
	if p.Qty != 0 || !p.AvgPrice.IsZero() {
		t.Fatalf("flat position should reset avg price, got %+v", p)
	}
}

func TestPositionCloseShortForProfit(t *testing.T) {
	p := &Position{Qty: -10, AvgPrice: money.NewFromFloat(100)}
	realised := p.ApplyFill(orderbook.SideBuy, money.NewFromFloat(90), 10)
	if !realised.Equal(money.NewFromFloat(100)) {
		t.Fatalf("realised = %s, want 100 (10 * (100-90))", realised)
	}
	if p.Qty != 0 {
		t.Fatalf("position should be flat, got %+v", p)
	}
}

func TestPositionFlipSign(t *testing.T) {
	p := &Position{Qty: 10, AvgPrice: money.NewFromFloat(100)}
	realised := p.ApplyFill(orderbook.SideSell, money.NewFromFloat(105), 15)
	if !realised.Equal(money.NewFromFloat(50)) {
		t.Fatalf("realised = %s, want 50 (10 * (105-100))", realised)
	}
	if p.Qty != -5 || !p.AvgPrice.Equal(money.NewFromFloat(105)) {
		t.Fatalf("flipped position = %+v, want qty=-5 avg=105", p)
	}
}

func TestPositionConservation(t *testing.T) {
	long := &Position{}
	short := &Position{}

	// Two opens at 100, one closes at 110.
	longRealised := long.ApplyFill(orderbook.SideBuy, money.NewFromFloat(100), 10)
	shortRealised := short.ApplyFill(orderbook.SideSell, money.NewFromFloat(100), 10)
	sum := longRealised.Add(shortRealised)

	longRealised = long.ApplyFill(orderbook.SideSell, money.NewFromFloat(110), 10)
	shortRealised = short.ApplyFill(orderbook.SideBuy, money.NewFromFloat(110), 10)
	sum = sum.Add(longRealised).Add(shortRealised)

	if !sum.IsZero() {
		t.Fatalf("PnL conservation violated: sum = %s", sum)
	}
}
