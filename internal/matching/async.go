package matching

import (
	"context"
	"sync"

	"github.com/exsim/clob-exchange/internal/money"
	"github.com/exsim/clob-exchange/internal/orderbook"
)

// Result carries a MatchOrder outcome back to an async caller.
type Result struct {
	Trades []Trade
	Err    error
}

// request bundles one MatchOrder call's arguments and its reply channel.
type request struct {
	side        orderbook.Side
	price       money.Price
	qty         int
	takerID     string
	takerSource string
	reply       chan Result
}

// AsyncEngine wraps an Engine with a bounded worker pool so callers can
// submit concurrently without serialising on a single goroutine. Each
// worker still calls the synchronous Engine.MatchOrder under a mutex
// shared by all workers, so per-symbol ordering guarantees are unaffected
// — only submission is concurrent, not matching.
//
// Grounded on original_source/app/matching_engine.py's AsyncMatchingEngine
// (a ThreadPoolExecutor wrapping the same synchronous match_order), adapted
// to a Go worker-pool-over-channel idiom instead of a thread pool executor.
type AsyncEngine struct {
	engine  *Engine
	work    chan request
	workers int
	mu      sync.Mutex // held by a worker for the whole of one MatchOrder call
}

// NewAsyncEngine starts workers goroutines draining a bounded work queue
// against engine.
func NewAsyncEngine(engine *Engine, workers int) *AsyncEngine {
	if workers < 1 {
		workers = 1
	}
	a := &AsyncEngine{engine: engine, work: make(chan request, workers*4), workers: workers}
	for i := 0; i < workers; i++ {
		go a.run()
	}
	return a
}

func (a *AsyncEngine) run() {
	for req := range a.work {
		a.mu.Lock()
		trades, err := a.engine.MatchOrder(req.side, req.price, req.qty, req.takerID, req.takerSource)
		a.mu.Unlock()
		req.reply <- Result{Trades: trades, Err: err}
	}
}

// MatchAsync submits an order for matching and returns a channel that
// receives exactly one Result, or an error immediately if ctx is
// cancelled before the request could be enqueued.
func (a *AsyncEngine) MatchAsync(ctx context.Context, side orderbook.Side, price money.Price, qty int, takerID, takerSource string) <-chan Result {
	reply := make(chan Result, 1)
	req := request{side: side, price: price, qty: qty, takerID: takerID, takerSource: takerSource, reply: reply}

	select {
	case a.work <- req:
	case <-ctx.Done():
		reply <- Result{Err: ctx.Err()}
	}
	return reply
}

// Close stops accepting new work. In-flight requests already enqueued
// still complete.
func (a *AsyncEngine) Close() {
	close(a.work)
}
