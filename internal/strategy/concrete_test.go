package strategy

import (
	"testing"
	"time"

	"github.com/exsim/clob-exchange/internal/engine"
	"github.com/exsim/clob-exchange/internal/money"
	"github.com/exsim/clob-exchange/internal/orderbook"
)

func seededBook(t *testing.T) *orderbook.Book {
	t.Helper()
	book := orderbook.NewBook("TEST")
	now := time.Now()
	book.SeedSyntheticDepth(money.NewFromFloat(100), 10, 100, now)
	return book
}

func TestPassiveLiquidityProviderQuotesAgainstSeededBook(t *testing.T) {
	book := seededBook(t)
	rng := engine.NewRNG(1)
	p := NewPassiveLiquidityProvider("TEST", book, rng)

	orders := p.GenerateOrders(time.Now())
	if len(orders) == 0 {
		t.Fatal("expected at least one order against a seeded book")
	}
	for _, o := range orders {
		if o.Qty <= 0 {
			t.Fatalf("order qty should be positive, got %+v", o)
		}
	}
}

func TestPassiveLiquidityProviderRebalancesAtInventoryLimit(t *testing.T) {
	book := seededBook(t)
	rng := engine.NewRNG(1)
	p := NewPassiveLiquidityProvider("TEST", book, rng)
	p.position.Qty = p.MaxInventory

	orders := p.GenerateOrders(time.Now())
	if !p.rebalancePending {
		t.Fatal("breaching max inventory should flag rebalance_pending")
	}
	_ = orders
}

func TestMarketMakerQuotesAroundMid(t *testing.T) {
	book := seededBook(t)
	rng := engine.NewRNG(2)
	m := NewMarketMaker("TEST", book, rng)

	orders := m.GenerateOrders(time.Now())
	if len(orders) == 0 {
		t.Fatal("expected orders from MarketMaker against a seeded book")
	}
}

func TestMomentumSkipsWithoutEnoughHistory(t *testing.T) {
	book := seededBook(t)
	rng := engine.NewRNG(3)
	mo := NewMomentum("TEST", book, rng)

	orders := mo.GenerateOrders(time.Now())
	if orders != nil {
		t.Fatalf("with no trade history yet, Momentum should skip, got %+v", orders)
	}
}

func TestMomentumTradesOnceLookbackSatisfied(t *testing.T) {
	book := seededBook(t)
	rng := engine.NewRNG(4)
	mo := NewMomentum("TEST", book, rng)
	mo.Lookback = 3

	// Small upward steps keep the stddev of recent prices (about 0.04)
	// under the 0.1 volatility ceiling.
	for i := 0; i < 3; i++ {
		book.RecordTrade(money.NewFromFloat(100 + 0.05*float64(i)))
	}

	orders := mo.GenerateOrders(time.Now())
	if len(orders) == 0 {
		t.Fatal("expected orders once enough trade history has accumulated")
	}
}

func TestMyStrategyAdjustsAroundSpreadFactor(t *testing.T) {
	book := seededBook(t)
	rng := engine.NewRNG(5)
	s := NewMyStrategy("TEST", book, rng)

	// The seeded best bid and ask are 2% apart, so a quote 1% beyond either
	// would breach the 2% price-deviation cap; tighten the top of book first.
	now := time.Now()
	_ = book.AddOrder(orderbook.SideBuy, money.NewFromFloat(99.9), 50, "tight-bid", "seed", now)
	_ = book.AddOrder(orderbook.SideSell, money.NewFromFloat(100.1), 50, "tight-ask", "seed", now)

	orders := s.GenerateOrders(now)
	if len(orders) == 0 {
		t.Fatal("expected orders from MyStrategy against a seeded book")
	}
	bestBid, _ := book.BestBid()
	for _, o := range orders {
		if o.Side == orderbook.SideBuy && !o.Price.LessThan(bestBid.Price) {
			t.Fatalf("buy should be adjusted below best bid, got %s vs %s", o.Price, bestBid.Price)
		}
	}
}
