package state

import (
	"sync"
	"testing"
	"time"

	"github.com/exsim/clob-exchange/internal/fix"
	"github.com/exsim/clob-exchange/internal/matching"
	"github.com/exsim/clob-exchange/internal/money"
	"github.com/exsim/clob-exchange/internal/orderbook"
)

func TestRecordTradeAppendsToSymbolHistory(t *testing.T) {
	s := New()
	s.RecordTrade(matching.Trade{Symbol: "IBM", Price: money.NewFromFloat(100), Qty: 10})
	s.RecordTrade(matching.Trade{Symbol: "MSFT", Price: money.NewFromFloat(200), Qty: 5})

	ibm := s.Trades("IBM")
	if len(ibm) != 1 || ibm[0].Qty != 10 {
		t.Fatalf("IBM trades = %+v", ibm)
	}
	if len(s.Trades("MSFT")) != 1 {
		t.Fatal("MSFT trades should be tracked separately from IBM")
	}
}

func TestHistoryCapsAtFiveHundred(t *testing.T) {
	s := New()
	for i := 0; i < HistoryCap+50; i++ {
		s.RecordTrade(matching.Trade{Symbol: "IBM", Price: money.NewFromFloat(100), Qty: i})
	}
	trades := s.Trades("IBM")
	if len(trades) != HistoryCap {
		t.Fatalf("trade history len = %d, want %d", len(trades), HistoryCap)
	}
	if trades[len(trades)-1].Qty != HistoryCap+49 {
		t.Fatalf("oldest trades should have been dropped, last qty = %d", trades[len(trades)-1].Qty)
	}
}

func TestRecordExecutionReportAndLatency(t *testing.T) {
	s := New()
	s.RecordExecutionReport("IBM", []byte("raw"), fix.ExecutionReportParams{ClOrdID: "C1", Symbol: "IBM"})
	s.RecordLatency("IBM", matching.LatencyEntry{Time: time.Now(), Source: "mm", LatencyMs: 1.5, Role: matching.RoleMaker})

	reports := s.ExecutionReports("IBM")
	if len(reports) != 1 || reports[0].Params.ClOrdID != "C1" {
		t.Fatalf("execution reports = %+v", reports)
	}
	latency := s.LatencyHistory("IBM")
	if len(latency) != 1 || latency[0].Role != matching.RoleMaker {
		t.Fatalf("latency history = %+v", latency)
	}
}

func TestAppendSnapshotSpreadLiquidity(t *testing.T) {
	s := New()
	now := time.Now()
	s.AppendSnapshot("IBM", orderbook.DepthSnapshot{}, now)
	s.AppendSpread("IBM", money.NewFromFloat(99), money.NewFromFloat(101), now)
	s.AppendLiquidity("IBM", 30, 40, now)

	if len(s.Snapshots("IBM")) != 1 {
		t.Fatal("expected one snapshot")
	}
	spreads := s.SpreadHistory("IBM")
	if len(spreads) != 1 || !spreads[0].Mid.Equal(money.NewFromFloat(100)) {
		t.Fatalf("spread history = %+v", spreads)
	}
	if !spreads[0].Spread.Equal(money.NewFromFloat(2)) {
		t.Fatalf("spread = %s, want 2", spreads[0].Spread)
	}
	liquidity := s.LiquidityHistory("IBM")
	if len(liquidity) != 1 || liquidity[0].BidDepth != 30 || liquidity[0].AskDepth != 40 {
		t.Fatalf("liquidity history = %+v", liquidity)
	}
}

func TestHaltedAndMyStrategyFlags(t *testing.T) {
	s := New()
	if s.Halted() || s.MyStrategyEnabled() {
		t.Fatal("flags should default false")
	}
	s.SetHalted(true)
	s.SetMyStrategyEnabled(true)
	if !s.Halted() || !s.MyStrategyEnabled() {
		t.Fatal("flags should reflect the update")
	}
}

func TestSelectedSymbolRoundTrip(t *testing.T) {
	s := New()
	s.SetSelectedSymbol("IBM")
	if s.SelectedSymbol() != "IBM" {
		t.Fatalf("selected symbol = %q, want IBM", s.SelectedSymbol())
	}
}

func TestCompetitionLogAppend(t *testing.T) {
	s := New()
	s.AppendCompetitionLog("market_maker bought 10 IBM @ 100.00")
	log := s.CompetitionLog()
	if len(log) != 1 {
		t.Fatalf("competition log = %+v", log)
	}
}

func TestConcurrentAccessDoesNotRace(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.RecordTrade(matching.Trade{Symbol: "IBM", Price: money.NewFromFloat(100), Qty: i})
			_ = s.Trades("IBM")
		}(i)
	}
	wg.Wait()
	if len(s.Trades("IBM")) != 20 {
		t.Fatalf("expected 20 trades after concurrent writers, got %d", len(s.Trades("IBM")))
	}
}
