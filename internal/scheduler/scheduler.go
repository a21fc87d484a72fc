// Package scheduler runs the periodic background loop that keeps every
// symbol's order book seeded, advances the four competing strategies,
// and routes their orders into the matching engine.
//
// Grounded on original_source/api/routes.py's auto_update_order_books
// (expire -> ensure strategies exist -> reseed check -> snapshot ->
// generate/route orders -> heartbeats, looping every 5s) and on the
// go-feed's per-symbol runner goroutine in cmd/feedsim/main.go,
// generalised here into one goroutine iterating all symbols per tick
// rather than one per symbol.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/exsim/clob-exchange/internal/config"
	"github.com/exsim/clob-exchange/internal/engine"
	"github.com/exsim/clob-exchange/internal/marketdata"
	"github.com/exsim/clob-exchange/internal/matching"
	"github.com/exsim/clob-exchange/internal/metrics"
	"github.com/exsim/clob-exchange/internal/money"
	"github.com/exsim/clob-exchange/internal/orderbook"
	"github.com/exsim/clob-exchange/internal/state"
	"github.com/exsim/clob-exchange/internal/strategy"
)

const (
	tickInterval   = 5 * time.Second
	maxOrderAge    = 60 * time.Second
	reseedInterval = 120 * time.Second
	minDepthLevels = 3
	minDepthQty    = 20
	depthLevels    = 10
	seedBaseQty    = 100
)

// symbolUnit bundles the per-symbol runtime wired together at startup.
type symbolUnit struct {
	symbol     string
	book       *orderbook.Book
	engine     *matching.Engine
	strategies map[string]strategy.Strategy
	lastReseed time.Time
	rng        *engine.RNG
}

// cancelRequest asks the scheduler goroutine to cancel one symbol's
// my_strategy orders. Book mutation only ever happens on the scheduler's
// own goroutine (see orderbook.Book's package doc), so the API layer
// submits this instead of touching the book directly.
type cancelRequest struct {
	symbol string
	result chan cancelResult
}

type cancelResult struct {
	removed []*orderbook.Order
	err     error
}

// Scheduler advances every symbol's order book and strategies on a
// fixed tick as the single background task driving the exchange.
type Scheduler struct {
	cfg    *config.Config
	state  *state.State
	market *marketdata.Source
	logger *log.Logger

	units      map[string]*symbolUnit
	cancelReqs chan cancelRequest
}

// New builds a Scheduler with one order book, matching engine, and
// strategy set per configured symbol.
func New(cfg *config.Config, st *state.State, market *marketdata.Source, logger *log.Logger, rngSeed int64) *Scheduler {
	if logger == nil {
		logger = log.Default()
	}
	s := &Scheduler{
		cfg:        cfg,
		state:      st,
		market:     market,
		logger:     logger,
		units:      make(map[string]*symbolUnit),
		cancelReqs: make(chan cancelRequest),
	}

	now := time.Now()
	seed := rngSeed
	for _, symbol := range cfg.Symbols {
		book := orderbook.NewBook(symbol)
		eng := matching.NewEngine(book, now)
		eng.Recorder = st
		rng := engine.NewRNG(seed)
		seed++

		u := &symbolUnit{
			symbol:     symbol,
			book:       book,
			engine:     eng,
			strategies: make(map[string]strategy.Strategy),
			rng:        rng,
		}
		s.units[symbol] = u
		s.instantiateCompetitors(u)
	}
	return s
}

// SetRecorder overrides every symbol's matching.Recorder. Used by
// cmd/exchange to splice in durable persistence ahead of the in-memory
// state recorder when a store is configured; uncalled, every engine
// keeps recording straight to state.State as New wired it.
func (s *Scheduler) SetRecorder(rec matching.Recorder) {
	for _, u := range s.units {
		u.engine.Recorder = rec
	}
}

// instantiateCompetitors creates the three always-on competitor
// strategies for a symbol if they don't already exist, registering each
// as an engine participant.
func (s *Scheduler) instantiateCompetitors(u *symbolUnit) {
	if _, ok := u.strategies["passive_liquidity_provider"]; !ok {
		strat := strategy.NewPassiveLiquidityProvider(u.symbol, u.book, u.rng)
		s.applyRiskConfig(strat.BaseStrategy)
		u.strategies["passive_liquidity_provider"] = strat
		u.engine.RegisterParticipant(strat)
	}
	if _, ok := u.strategies["market_maker"]; !ok {
		strat := strategy.NewMarketMaker(u.symbol, u.book, u.rng)
		s.applyRiskConfig(strat.BaseStrategy)
		u.strategies["market_maker"] = strat
		u.engine.RegisterParticipant(strat)
	}
	if _, ok := u.strategies["momentum"]; !ok {
		strat := strategy.NewMomentum(u.symbol, u.book, u.rng)
		s.applyRiskConfig(strat.BaseStrategy)
		u.strategies["momentum"] = strat
		u.engine.RegisterParticipant(strat)
	}
}

// syncMyStrategy creates or tears down the user-controlled strategy
// instance to match the dashboard's toggle.
func (s *Scheduler) syncMyStrategy(u *symbolUnit) {
	if s.state.MyStrategyEnabled() {
		if _, ok := u.strategies["my_strategy"]; !ok {
			strat := strategy.NewMyStrategy(u.symbol, u.book, u.rng)
			s.applyRiskConfig(strat.BaseStrategy)
			u.strategies["my_strategy"] = strat
			u.engine.RegisterParticipant(strat)
		}
	} else {
		delete(u.strategies, "my_strategy")
	}
}

func (s *Scheduler) applyRiskConfig(b *strategy.BaseStrategy) {
	b.Risk = strategy.RiskParamsFromConfig(s.cfg.Risk)
}

// Run blocks, ticking every 5s until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case req := <-s.cancelReqs:
			s.handleCancelRequest(req)
		case <-ticker.C:
			if s.state.Halted() {
				continue
			}
			for symbol, u := range s.units {
				s.tick(ctx, symbol, u)
			}
		}
	}
}

func (s *Scheduler) handleCancelRequest(req cancelRequest) {
	u, ok := s.units[req.symbol]
	if !ok {
		req.result <- cancelResult{err: fmt.Errorf("unknown symbol %q", req.symbol)}
		return
	}
	req.result <- cancelResult{removed: u.book.CancelOrdersBySource("my_strategy")}
}

// CancelMyStrategyOrders removes every resting my_strategy order on
// symbol's book, routed through the scheduler goroutine since Book
// mutation isn't safe from any other goroutine.
func (s *Scheduler) CancelMyStrategyOrders(ctx context.Context, symbol string) ([]*orderbook.Order, error) {
	req := cancelRequest{symbol: symbol, result: make(chan cancelResult, 1)}
	select {
	case s.cancelReqs <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case res := <-req.result:
		return res.removed, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ValidSymbols returns every ticker this scheduler has a unit for.
func (s *Scheduler) ValidSymbols() []string {
	out := make([]string, 0, len(s.units))
	for symbol := range s.units {
		out = append(out, symbol)
	}
	return out
}

// IsValidSymbol reports whether symbol has a configured unit.
func (s *Scheduler) IsValidSymbol(symbol string) bool {
	_, ok := s.units[symbol]
	return ok
}

// tick advances one symbol: expire stale orders, sync strategy
// instances, reseed if thin or stale, record history, then generate
// and route every strategy's orders.
func (s *Scheduler) tick(ctx context.Context, symbol string, u *symbolUnit) {
	start := time.Now()
	defer func() {
		metrics.SchedulerTickDuration.WithLabelValues(symbol).Observe(time.Since(start).Seconds())
	}()
	now := start

	u.book.ExpireOldOrders(now, maxOrderAge)
	s.syncMyStrategy(u)

	s.maybeReseed(ctx, u, now)

	s.state.AppendSnapshot(symbol, u.book.GetDepthSnapshot(depthLevels), now)
	if bid, ok := u.book.BestBid(); ok {
		if ask, ok2 := u.book.BestAsk(); ok2 {
			s.state.AppendSpread(symbol, bid.Price, ask.Price, now)
			mid := bid.Price.Add(ask.Price).Div(money.NewFromInt(2))
			spread := ask.Price.Sub(bid.Price)
			if !mid.IsZero() {
				metrics.SpreadBps.WithLabelValues(symbol).Set(spread.Div(mid).Float64() * 10000)
			}
		}
	}
	bidDepth, askDepth := topOfBookDepth(u.book)
	s.state.AppendLiquidity(symbol, bidDepth, askDepth, now)
	metrics.TopOfBookDepth.WithLabelValues(symbol, "bid").Set(float64(bidDepth))
	metrics.TopOfBookDepth.WithLabelValues(symbol, "ask").Set(float64(askDepth))

	for name, strat := range u.strategies {
		s.runStrategy(symbol, u, name, strat, now)
		s.state.SetStrategyStatus(symbol, name, state.StrategyStatusRecord{
			Inventory:     strat.Inventory(),
			RealisedPnL:   strat.RealisedPnL(),
			UnrealisedPnL: strat.UnrealisedPnL(),
			TotalPnL:      strat.RealisedPnL().Add(strat.UnrealisedPnL()),
			TotalTrades:   strat.TotalTrades(),
			WinningTrades: strat.WinningTrades(),
			WinRate:       strat.WinRate(),
		})
	}
	if !s.state.MyStrategyEnabled() {
		s.state.DeleteStrategyStatus(symbol, "my_strategy")
	}

	for _, strat := range u.strategies {
		codec := strat.Codec()
		if codec.IsHeartbeatDue(now) {
			codec.EncodeHeartbeat(now)
		}
	}
}

// runStrategy generates orders from strat and routes each one through
// the matching engine. GenerateOrders both rests the order directly on
// the book (via BaseStrategy.PlaceOrder) and the same candidate order
// is separately matched here — both paths are deliberately kept; see
// DESIGN.md.
func (s *Scheduler) runStrategy(symbol string, u *symbolUnit, name string, strat strategy.Strategy, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Printf("scheduler: strategy %s/%s panicked: %v", symbol, name, r)
		}
	}()

	orders := strat.GenerateOrders(now)
	for _, o := range orders {
		orderID := uuid.NewString()
		metrics.OrdersRoutedTotal.WithLabelValues(symbol, strat.Source()).Inc()
		trades, err := u.engine.MatchOrder(o.Side, o.Price, o.Qty, orderID, strat.Source())
		if err != nil {
			if _, halted := err.(*matching.TradingHalted); halted {
				s.logger.Printf("scheduler: %s halted: %v", symbol, err)
				s.state.SetHalted(true)
				metrics.TradingHaltsTotal.WithLabelValues(symbol).Inc()
				return
			}
			s.logger.Printf("scheduler: %s/%s match error: %v", symbol, name, err)
			continue
		}
		if len(trades) > 0 {
			last := trades[len(trades)-1]
			u.book.RecordTrade(last.Price)
			s.state.AppendCompetitionLog(fmt.Sprintf("%s traded %s x%d on %s", strat.Source(), last.Price, last.Qty, symbol))
			metrics.TradesTotal.WithLabelValues(symbol, strat.Source()).Add(float64(len(trades)))
		}
	}
}

// maybeReseed reseeds synthetic depth when the book is too thin on
// either side or the periodic reseed interval has elapsed, matching the
// original's bids_ok/asks_ok/time_for_reseed checks.
func (s *Scheduler) maybeReseed(ctx context.Context, u *symbolUnit, now time.Time) {
	bidsOK, asksOK := depthSufficient(u.book)
	needReseed := !bidsOK || !asksOK
	timeForReseed := now.Sub(u.lastReseed) > reseedInterval

	if !needReseed && !timeForReseed {
		return
	}

	price, ok, err := s.market.GetLatestPrice(ctx, u.symbol)
	if err != nil || !ok {
		if err != nil {
			s.logger.Printf("scheduler: price fetch for %s: %v", u.symbol, err)
		}
		return
	}

	u.book.SeedSyntheticDepth(price, depthLevels, seedBaseQty, now)
	u.lastReseed = now
	metrics.ReseedsTotal.WithLabelValues(u.symbol).Inc()
	s.logger.Printf("scheduler: reseeded %s at mid %s (bidsOK=%v asksOK=%v timeForReseed=%v)",
		u.symbol, price, bidsOK, asksOK, timeForReseed)
}

func depthSufficient(book *orderbook.Book) (bidsOK, asksOK bool) {
	bidsOK = levelsSufficient(book.Levels(orderbook.SideBuy))
	asksOK = levelsSufficient(book.Levels(orderbook.SideSell))
	return
}

func levelsSufficient(levels []*orderbook.PriceLevel) bool {
	if len(levels) < minDepthLevels {
		return false
	}
	total := 0
	for _, lvl := range levels {
		total += lvl.TotalQty()
	}
	return total >= minDepthQty
}

func topOfBookDepth(book *orderbook.Book) (bidDepth, askDepth int) {
	snap := book.GetDepthSnapshot(depthLevels)
	for _, lvl := range snap.Bids {
		bidDepth += lvl.Qty
	}
	for _, lvl := range snap.Asks {
		askDepth += lvl.Qty
	}
	return
}

