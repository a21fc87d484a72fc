// Package state holds the trading-state object shared by the matching
// engines, the strategy scheduler, and the dashboard API: per-symbol
// bounded histories behind a single mutex. Grounded on go-feed's
// persistence layer (internal/persist) for the "trim on append" shape,
// generalized here to internal/ring's generic buffer, and on
// original_source/app/state.py for what gets recorded and at what cap.
package state

import (
	"sync"
	"time"

	"github.com/exsim/clob-exchange/internal/fix"
	"github.com/exsim/clob-exchange/internal/matching"
	"github.com/exsim/clob-exchange/internal/money"
	"github.com/exsim/clob-exchange/internal/orderbook"
	"github.com/exsim/clob-exchange/internal/ring"
)

// HistoryCap bounds every per-symbol ring buffer.
const HistoryCap = 500

// OrderBookSnapshotRecord pairs a depth snapshot with when it was taken.
type OrderBookSnapshotRecord struct {
	Time  time.Time
	Depth orderbook.DepthSnapshot
}

// SpreadSample is one point in a symbol's bid/ask/mid/spread history.
type SpreadSample struct {
	Time   time.Time
	Bid    money.Price
	Ask    money.Price
	Mid    money.Price
	Spread money.Price
}

// LiquiditySample tracks top-of-book depth used by the liquidity floor
// and the dashboard's liquidity chart.
type LiquiditySample struct {
	Time      time.Time
	BidDepth  int
	AskDepth  int
}

// ExecutionReportRecord is one FIX 35=8 message as recorded, kept both
// raw (for re-transmission) and decoded (for display).
type ExecutionReportRecord struct {
	Time   time.Time
	Raw    []byte
	Params fix.ExecutionReportParams
}

// StrategyStatusRecord is one strategy's point-in-time scoreboard entry,
// refreshed by the scheduler every tick and read by the dashboard's
// /strategy_status endpoint. Keeping this in State rather than handing
// the API live *strategy.BaseStrategy pointers avoids a second lock:
// the scheduler writes it under the same tick that owns the strategy.
type StrategyStatusRecord struct {
	Inventory     int
	RealisedPnL   money.Price
	UnrealisedPnL money.Price
	TotalPnL      money.Price
	TotalTrades   int
	WinningTrades int
	WinRate       float64
}

// symbolHistory bundles every bounded history kept for one symbol.
type symbolHistory struct {
	trades      *ring.Buffer[matching.Trade]
	snapshots   *ring.Buffer[OrderBookSnapshotRecord]
	spreads     *ring.Buffer[SpreadSample]
	liquidity   *ring.Buffer[LiquiditySample]
	latency     *ring.Buffer[matching.LatencyEntry]
	execReports *ring.Buffer[ExecutionReportRecord]
}

func newSymbolHistory() *symbolHistory {
	return &symbolHistory{
		trades:      ring.New[matching.Trade](HistoryCap),
		snapshots:   ring.New[OrderBookSnapshotRecord](HistoryCap),
		spreads:     ring.New[SpreadSample](HistoryCap),
		liquidity:   ring.New[LiquiditySample](HistoryCap),
		latency:     ring.New[matching.LatencyEntry](HistoryCap),
		execReports: ring.New[ExecutionReportRecord](HistoryCap),
	}
}

// State is the trading-state object: one mutex guards every symbol's
// histories plus the global halt/enable flags. A single mutex protects
// the entire trading-state object, and ring-buffer truncation happens in
// the same critical section as append.
type State struct {
	mu      sync.Mutex
	symbols map[string]*symbolHistory

	halted            bool
	myStrategyEnabled bool
	selectedSymbol    string

	competitionLog *ring.Buffer[string]
	strategyStatus map[string]map[string]StrategyStatusRecord
}

// New creates an empty State.
func New() *State {
	return &State{
		symbols:        make(map[string]*symbolHistory),
		competitionLog: ring.New[string](HistoryCap),
		strategyStatus: make(map[string]map[string]StrategyStatusRecord),
	}
}

// symbolFor returns the history bucket for symbol, creating it on first
// use. Callers must hold s.mu.
func (s *State) symbolFor(symbol string) *symbolHistory {
	h, ok := s.symbols[symbol]
	if !ok {
		h = newSymbolHistory()
		s.symbols[symbol] = h
	}
	return h
}

// RecordTrade implements matching.Recorder.
func (s *State) RecordTrade(t matching.Trade) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.symbolFor(t.Symbol).trades.Append(t)
}

// RecordExecutionReport implements matching.Recorder.
func (s *State) RecordExecutionReport(symbol string, raw []byte, params fix.ExecutionReportParams) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.symbolFor(symbol).execReports.Append(ExecutionReportRecord{Time: time.Now(), Raw: raw, Params: params})
}

// RecordLatency implements matching.Recorder.
func (s *State) RecordLatency(symbol string, entry matching.LatencyEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.symbolFor(symbol).latency.Append(entry)
}

// AppendSnapshot records a point-in-time order book depth snapshot.
// Called by the scheduler once per symbol per tick.
func (s *State) AppendSnapshot(symbol string, depth orderbook.DepthSnapshot, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.symbolFor(symbol).snapshots.Append(OrderBookSnapshotRecord{Time: now, Depth: depth})
}

// AppendSpread records a bid/ask/mid/spread sample.
func (s *State) AppendSpread(symbol string, bid, ask money.Price, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mid := bid.Add(ask).Div(money.NewFromInt(2))
	spread := ask.Sub(bid)
	s.symbolFor(symbol).spreads.Append(SpreadSample{Time: now, Bid: bid, Ask: ask, Mid: mid, Spread: spread})
}

// AppendLiquidity records a top-of-book depth sample.
func (s *State) AppendLiquidity(symbol string, bidDepth, askDepth int, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.symbolFor(symbol).liquidity.Append(LiquiditySample{Time: now, BidDepth: bidDepth, AskDepth: askDepth})
}

// AppendCompetitionLog records a free-form line for the dashboard's
// competition log panel.
func (s *State) AppendCompetitionLog(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.competitionLog.Append(line)
}

// Trades returns a copy of symbol's trade history, oldest first.
func (s *State) Trades(symbol string) []matching.Trade {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.symbolFor(symbol).trades.Items()
}

// RecentTrades returns the most recent n trades for symbol.
func (s *State) RecentTrades(symbol string, n int) []matching.Trade {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.symbolFor(symbol).trades.Last(n)
}

// Snapshots returns a copy of symbol's order book snapshot history.
func (s *State) Snapshots(symbol string) []OrderBookSnapshotRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.symbolFor(symbol).snapshots.Items()
}

// SpreadHistory returns a copy of symbol's spread sample history.
func (s *State) SpreadHistory(symbol string) []SpreadSample {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.symbolFor(symbol).spreads.Items()
}

// LiquidityHistory returns a copy of symbol's liquidity sample history.
func (s *State) LiquidityHistory(symbol string) []LiquiditySample {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.symbolFor(symbol).liquidity.Items()
}

// LatencyHistory returns a copy of symbol's latency sample history.
func (s *State) LatencyHistory(symbol string) []matching.LatencyEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.symbolFor(symbol).latency.Items()
}

// ExecutionReports returns a copy of symbol's execution report history.
func (s *State) ExecutionReports(symbol string) []ExecutionReportRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.symbolFor(symbol).execReports.Items()
}

// CompetitionLog returns a copy of the global competition log.
func (s *State) CompetitionLog() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.competitionLog.Items()
}

// SetStrategyStatus overwrites one strategy's scoreboard entry for symbol.
func (s *State) SetStrategyStatus(symbol, name string, rec StrategyStatusRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.strategyStatus[symbol]
	if !ok {
		m = make(map[string]StrategyStatusRecord)
		s.strategyStatus[symbol] = m
	}
	m[name] = rec
}

// DeleteStrategyStatus drops a strategy's scoreboard entry, used when
// my_strategy is toggled off so it stops appearing in /strategy_status.
func (s *State) DeleteStrategyStatus(symbol, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.strategyStatus[symbol], name)
}

// StrategyStatuses returns a copy of symbol's strategy scoreboard, keyed
// by strategy name.
func (s *State) StrategyStatuses(symbol string) map[string]StrategyStatusRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]StrategyStatusRecord, len(s.strategyStatus[symbol]))
	for name, rec := range s.strategyStatus[symbol] {
		out[name] = rec
	}
	return out
}

// Halted reports whether the circuit breaker has halted trading.
func (s *State) Halted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.halted
}

// SetHalted updates the global halt flag.
func (s *State) SetHalted(halted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.halted = halted
}

// MyStrategyEnabled reports whether the user-controlled strategy is
// currently toggled on via the /toggle_my_strategy endpoint.
func (s *State) MyStrategyEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.myStrategyEnabled
}

// SetMyStrategyEnabled toggles the user-controlled strategy.
func (s *State) SetMyStrategyEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.myStrategyEnabled = enabled
}

// SelectedSymbol returns the symbol currently focused on the dashboard.
func (s *State) SelectedSymbol() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedSymbol
}

// SetSelectedSymbol changes the dashboard's focused symbol.
func (s *State) SetSelectedSymbol(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedSymbol = symbol
}

// Symbols returns the set of symbols with any recorded history.
func (s *State) Symbols() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.symbols))
	for sym := range s.symbols {
		out = append(out, sym)
	}
	return out
}
