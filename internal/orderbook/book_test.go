package orderbook

import (
	"testing"
	"time"

	"github.com/exsim/clob-exchange/internal/money"
)

func TestEmptyBook(t *testing.T) {
	b := NewBook("IBM")
	if _, ok := b.BestBid(); ok {
		t.Fatal("empty book should have no best bid")
	}
	if _, ok := b.BestAsk(); ok {
		t.Fatal("empty book should have no best ask")
	}
	if _, ok := b.MidPrice(); ok {
		t.Fatal("empty book should have no mid price")
	}
}

func TestAddSingleBid(t *testing.T) {
	b := NewBook("IBM")
	if err := b.AddOrder(SideBuy, money.NewFromFloat(100), 10, "o1", "mm", time.Now()); err != nil {
		t.Fatalf("AddOrder: %v", err)
	}
	bid, ok := b.BestBid()
	if !ok || !bid.Price.Equal(money.NewFromFloat(100)) || bid.Qty != 10 {
		t.Fatalf("BestBid = %+v, ok=%v", bid, ok)
	}
}

func TestBidDescendingSorting(t *testing.T) {
	b := NewBook("IBM")
	prices := []float64{100, 102, 99, 101}
	for i, p := range prices {
		if err := b.AddOrder(SideBuy, money.NewFromFloat(p), 1, string(rune('a'+i)), "mm", time.Now()); err != nil {
			t.Fatalf("AddOrder: %v", err)
		}
	}
	for i := 1; i < len(b.Bids); i++ {
		if !b.Bids[i-1].Price.GreaterThan(b.Bids[i].Price) {
			t.Fatalf("bids not strictly descending at %d: %v", i, b.Bids)
		}
	}
}

func TestAskAscendingSorting(t *testing.T) {
	b := NewBook("IBM")
	prices := []float64{100, 102, 99, 101}
	for i, p := range prices {
		if err := b.AddOrder(SideSell, money.NewFromFloat(p), 1, string(rune('a'+i)), "mm", time.Now()); err != nil {
			t.Fatalf("AddOrder: %v", err)
		}
	}
	for i := 1; i < len(b.Asks); i++ {
		if !b.Asks[i-1].Price.LessThan(b.Asks[i].Price) {
			t.Fatalf("asks not strictly ascending at %d: %v", i, b.Asks)
		}
	}
}

func TestAddOrderValidation(t *testing.T) {
	b := NewBook("IBM")
	if err := b.AddOrder(SideBuy, money.NewFromFloat(0), 1, "o1", "mm", time.Now()); err == nil {
		t.Fatal("zero price should be rejected")
	}
	if err := b.AddOrder(SideBuy, money.NewFromFloat(1), 0, "o1", "mm", time.Now()); err == nil {
		t.Fatal("zero qty should be rejected")
	}
}

func TestFIFOWithinLevel(t *testing.T) {
	b := NewBook("IBM")
	now := time.Now()
	if err := b.AddOrder(SideBuy, money.NewFromFloat(100), 5, "first", "a", now); err != nil {
		t.Fatalf("AddOrder: %v", err)
	}
	if err := b.AddOrder(SideBuy, money.NewFromFloat(100), 5, "second", "b", now.Add(time.Millisecond)); err != nil {
		t.Fatalf("AddOrder: %v", err)
	}
	lvl := b.Bids[0]
	if lvl.Orders[0].ID != "first" || lvl.Orders[1].ID != "second" {
		t.Fatalf("FIFO order wrong: %+v", lvl.Orders)
	}
}

func TestRemoveOrderRequeuesLevel(t *testing.T) {
	b := NewBook("IBM")
	now := time.Now()
	_ = b.AddOrder(SideBuy, money.NewFromFloat(100), 5, "first", "a", now)
	_ = b.AddOrder(SideBuy, money.NewFromFloat(100), 3, "second", "b", now)

	removed := b.RemoveOrder("first")
	if removed == nil || removed.ID != "first" {
		t.Fatalf("RemoveOrder returned %+v", removed)
	}
	if len(b.Bids[0].Orders) != 1 || b.Bids[0].Orders[0].ID != "second" {
		t.Fatalf("level not requeued: %+v", b.Bids[0].Orders)
	}
	if _, ok := b.GetOrder("first"); ok {
		t.Fatal("removed order should be gone from the index")
	}
}

func TestRemoveOrderEmptiesLevel(t *testing.T) {
	b := NewBook("IBM")
	_ = b.AddOrder(SideBuy, money.NewFromFloat(100), 5, "only", "a", time.Now())
	b.RemoveOrder("only")
	if len(b.Bids) != 0 {
		t.Fatalf("emptied level should be removed, got %d levels", len(b.Bids))
	}
}

func TestExpireOldOrders(t *testing.T) {
	b := NewBook("IBM")
	old := time.Now().Add(-2 * time.Minute)
	fresh := time.Now()
	_ = b.AddOrder(SideBuy, money.NewFromFloat(100), 5, "stale", "a", old)
	_ = b.AddOrder(SideBuy, money.NewFromFloat(100), 5, "new", "b", fresh)

	removed := b.ExpireOldOrders(time.Now(), time.Minute)
	if len(removed) != 1 || removed[0] != "stale" {
		t.Fatalf("ExpireOldOrders removed %v, want [stale]", removed)
	}
	if _, ok := b.GetOrder("stale"); ok {
		t.Fatal("stale order should be pruned from index")
	}
	if _, ok := b.GetOrder("new"); !ok {
		t.Fatal("fresh order should remain")
	}
}

func TestExpireOldOrdersRemovesEmptyLevel(t *testing.T) {
	b := NewBook("IBM")
	old := time.Now().Add(-2 * time.Minute)
	_ = b.AddOrder(SideBuy, money.NewFromFloat(100), 5, "stale", "a", old)
	b.ExpireOldOrders(time.Now(), time.Minute)
	if len(b.Bids) != 0 {
		t.Fatalf("level should be removed once it empties, got %d", len(b.Bids))
	}
}

func TestSeedSyntheticDepthSkipsTopOfBook(t *testing.T) {
	b := NewBook("IBM")
	mid := money.NewFromFloat(100)
	b.SeedSyntheticDepth(mid, 5, 100, time.Now())

	bid, ok := b.BestBid()
	if !ok {
		t.Fatal("seeding should produce a best bid")
	}
	// i starts at 2, so the best bid is mid*(1-0.01), below mid itself.
	if !bid.Price.LessThan(mid) {
		t.Fatalf("seeded best bid %s should be below mid %s", bid.Price, mid)
	}
	expectedTopBid := mid.MulFloat(1 - 0.005*2)
	if !bid.Price.Equal(expectedTopBid) {
		t.Fatalf("best bid = %s, want %s (i=2, skipping i=1)", bid.Price, expectedTopBid)
	}
}

func TestGetDepthSnapshotCumulative(t *testing.T) {
	b := NewBook("IBM")
	now := time.Now()
	_ = b.AddOrder(SideSell, money.NewFromFloat(101), 5, "a1", "a", now)
	_ = b.AddOrder(SideSell, money.NewFromFloat(102), 7, "a2", "a", now)

	snap := b.GetDepthSnapshot(10)
	if len(snap.Asks) != 2 {
		t.Fatalf("expected 2 ask levels, got %d", len(snap.Asks))
	}
	if snap.Asks[0].Cumulative != 5 || snap.Asks[1].Cumulative != 12 {
		t.Fatalf("cumulative wrong: %+v", snap.Asks)
	}
}

func TestGetOrdersBySource(t *testing.T) {
	b := NewBook("IBM")
	now := time.Now()
	_ = b.AddOrder(SideBuy, money.NewFromFloat(100), 1, "a1", "alice", now)
	_ = b.AddOrder(SideBuy, money.NewFromFloat(99), 1, "b1", "bob", now)
	_ = b.AddOrder(SideBuy, money.NewFromFloat(98), 1, "a2", "alice", now)

	got := b.GetOrdersBySource(SideBuy, "alice")
	if len(got) != 2 {
		t.Fatalf("GetOrdersBySource = %d orders, want 2", len(got))
	}
}

func TestRecentPricesWindow(t *testing.T) {
	b := NewBook("IBM")
	for i := 1; i <= 5; i++ {
		b.RecordTrade(money.NewFromInt(int64(i)))
	}
	got := b.GetRecentPrices(2)
	if len(got) != 2 || !got[0].Equal(money.NewFromInt(4)) || !got[1].Equal(money.NewFromInt(5)) {
		t.Fatalf("GetRecentPrices(2) = %v", got)
	}
}

func TestFillHeadRemovesExhaustedLevel(t *testing.T) {
	b := NewBook("IBM")
	_ = b.AddOrder(SideSell, money.NewFromFloat(101), 5, "a1", "a", time.Now())
	lvl := b.Asks[0]

	head, removed := b.FillHead(SideSell, lvl, 5)
	if head == nil || head.ID != "a1" {
		t.Fatalf("FillHead returned %+v", head)
	}
	if !removed {
		t.Fatal("level should report removed once its only order is exhausted")
	}
	if len(b.Asks) != 0 {
		t.Fatalf("exhausted level should be gone, got %d", len(b.Asks))
	}
	if _, ok := b.GetOrder("a1"); ok {
		t.Fatal("exhausted order should be pruned from index")
	}
}

func TestRotateHeadSelfTradePrevention(t *testing.T) {
	b := NewBook("IBM")
	now := time.Now()
	_ = b.AddOrder(SideSell, money.NewFromFloat(101), 5, "taker-owned", "taker", now)
	_ = b.AddOrder(SideSell, money.NewFromFloat(101), 3, "other", "maker", now)

	lvl := b.Asks[0]
	b.RotateHead(lvl)
	if lvl.Orders[0].ID != "other" {
		t.Fatalf("after rotation head should be 'other', got %q", lvl.Orders[0].ID)
	}
	if lvl.Orders[1].ID != "taker-owned" {
		t.Fatalf("rotated order should move to the back, got %+v", lvl.Orders)
	}
}
