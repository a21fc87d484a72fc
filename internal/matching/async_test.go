package matching

import (
	"context"
	"testing"
	"time"

	"github.com/exsim/clob-exchange/internal/money"
	"github.com/exsim/clob-exchange/internal/orderbook"
)

func TestAsyncEngineMatchesSubmittedOrder(t *testing.T) {
	e, _ := newTestEngine()
	e.RegisterParticipant(newFakeParticipant("maker-1"))
	e.RegisterParticipant(newFakeParticipant("taker-1"))

	now := time.Now()
	_ = e.Book.AddOrder(orderbook.SideSell, money.NewFromFloat(100), 10, "m1", "maker-1", now)

	async := NewAsyncEngine(e, 2)
	defer async.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	result := <-async.MatchAsync(ctx, orderbook.SideBuy, money.NewFromFloat(100), 10, "t1", "taker-1")
	if result.Err != nil {
		t.Fatalf("MatchAsync: %v", result.Err)
	}
	if len(result.Trades) != 1 || result.Trades[0].Qty != 10 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestAsyncEngineCancelledContext(t *testing.T) {
	e, _ := newTestEngine()
	// No workers draining this unbuffered channel, so the send branch in
	// MatchAsync can never proceed and the ctx.Done() branch is the only
	// one that can ever fire.
	async := &AsyncEngine{engine: e, work: make(chan request)}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := <-async.MatchAsync(ctx, orderbook.SideBuy, money.NewFromFloat(100), 10, "t1", "taker-1")
	if result.Err == nil {
		t.Fatal("expected a context-cancellation error")
	}
}
