// Package matching implements the continuous matching algorithm: circuit
// breaker gating, self-trade prevention, average-cost PnL attribution, and
// execution report emission for a single symbol's order book.
//
// Grounded on original_source/app/matching_engine.py (MatchingEngine.match_order,
// calculate_pnl, CircuitBreaker) for the algorithm, adapted to Go error
// values instead of raised exceptions and to money.Price instead of float.
package matching

import (
	"time"

	"github.com/google/uuid"

	"github.com/exsim/clob-exchange/internal/fix"
	"github.com/exsim/clob-exchange/internal/money"
	"github.com/exsim/clob-exchange/internal/orderbook"
)

// Participant is a strategy (or other PnL-bearing entity) the engine can
// fill orders against. Source is the unique tag used for PnL attribution
// and FIX tag 6007.
type Participant interface {
	Source() string
	Position() *Position
	Codec() *fix.Codec
	OnTrade(t Trade)
	OnExecutionReport(t Trade)
}

// Recorder receives trades, execution reports, and latency samples for
// shared-state history. A nil Recorder is a valid no-op.
type Recorder interface {
	RecordTrade(t Trade)
	RecordExecutionReport(symbol string, raw []byte, params fix.ExecutionReportParams)
	RecordLatency(symbol string, entry LatencyEntry)
}

// Engine matches incoming orders against a single symbol's Book.
type Engine struct {
	Book           *orderbook.Book
	CircuitBreaker *CircuitBreaker
	Recorder       Recorder

	// execCodec is the exchange's own outgoing identity for execution
	// reports: Sender=EXCHANGE, Target=MY_COMPANY. This is the reverse of
	// a strategy's own codec (Sender=<strategy>, Target=EXSIM), which is
	// only ever used for that strategy's NewOrderSingle/Heartbeat traffic.
	execCodec *fix.Codec

	participants map[string]Participant
}

// NewEngine creates an Engine for book with a fresh circuit breaker.
func NewEngine(book *orderbook.Book, now time.Time) *Engine {
	return &Engine{
		Book:           book,
		CircuitBreaker: NewCircuitBreaker(now),
		execCodec:      fix.NewCodec("EXCHANGE", "MY_COMPANY"),
		participants:   make(map[string]Participant),
	}
}

// RegisterParticipant makes p eligible for PnL attribution and execution
// reports keyed by its source name.
func (e *Engine) RegisterParticipant(p Participant) {
	e.participants[p.Source()] = p
}

func marketable(takerSide orderbook.Side, levelPrice, takerPrice money.Price) bool {
	if takerSide == orderbook.SideBuy {
		return !levelPrice.GreaterThan(takerPrice)
	}
	return !levelPrice.LessThan(takerPrice)
}

// MatchOrder attempts to fill (side, price, qty) against the opposite
// book, applying self-trade prevention, PnL accounting, and execution
// report emission, then rests any residual quantity.
func (e *Engine) MatchOrder(side orderbook.Side, price money.Price, qty int, takerID, takerSource string) ([]Trade, error) {
	now := time.Now()
	if !e.CircuitBreaker.AllowExecution(now) {
		return nil, &TradingHalted{Reason: "circuit breaker triggered"}
	}

	takerSubmittedAt := now
	originalQty := qty
	remaining := qty
	takerFilled := 0
	opp := side.Opposite()

	var trades []Trade

	for remaining > 0 {
		levels := e.Book.Levels(opp)
		if len(levels) == 0 {
			break
		}
		level := levels[0]
		if !marketable(side, level.Price, price) {
			break
		}

		maxAttempts := len(level.Orders)
		attempts := 0
		tradedAtLevel := false

		for len(level.Orders) > 0 && remaining > 0 && attempts < maxAttempts {
			head := level.Orders[0]
			if head.Source == takerSource {
				e.Book.RotateHead(level)
				attempts++
				continue
			}

			tradeQty := min(remaining, head.Qty)
			tradeNow := time.Now()
			makerLatencyMs := float64(tradeNow.Sub(head.SubmittedAt)) / float64(time.Millisecond)
			takerLatencyMs := float64(tradeNow.Sub(takerSubmittedAt)) / float64(time.Millisecond)

			var makerPnL, takerPnL money.Price
			if mp, ok := e.participants[head.Source]; ok {
				makerPnL = mp.Position().ApplyFill(opp, level.Price, tradeQty)
			}
			if tp, ok := e.participants[takerSource]; ok {
				takerPnL = tp.Position().ApplyFill(side, level.Price, tradeQty)
			}
			e.CircuitBreaker.RecordTrade(makerPnL)

			trade := Trade{
				Symbol:      e.Book.Symbol,
				Price:       level.Price,
				Qty:         tradeQty,
				MakerID:     head.ID,
				MakerSource: head.Source,
				TakerID:     takerID,
				TakerSource: takerSource,
				Side:        side,
				Time:        tradeNow,
				LatencyMs:   makerLatencyMs,
				MakerPnL:    makerPnL,
				TakerPnL:    takerPnL,
			}
			trades = append(trades, trade)
			e.Book.RecordTrade(level.Price)
			if e.Recorder != nil {
				e.Recorder.RecordTrade(trade)
				e.Recorder.RecordLatency(e.Book.Symbol, LatencyEntry{Time: tradeNow, Source: head.Source, LatencyMs: makerLatencyMs, Role: RoleMaker})
				e.Recorder.RecordLatency(e.Book.Symbol, LatencyEntry{Time: tradeNow, Source: takerSource, LatencyMs: takerLatencyMs, Role: RoleTaker})
			}

			makerLeaves := head.Qty - tradeQty
			if makerLeaves < 0 {
				makerLeaves = 0
			}
			makerCum := head.OriginalQty - makerLeaves
			e.emitExecutionReport(trade, head.OriginalQty, makerCum, makerLeaves, opp)

			takerFilled += tradeQty
			takerLeaves := originalQty - takerFilled
			if takerLeaves < 0 {
				takerLeaves = 0
			}
			e.emitExecutionReport(trade, originalQty, takerFilled, takerLeaves, side)

			remaining -= tradeQty
			e.Book.FillHead(opp, level, tradeQty)
			tradedAtLevel = true
		}

		if !tradedAtLevel {
			break
		}
	}

	if remaining > 0 {
		_ = e.Book.AddOrder(side, price, remaining, takerID, takerSource, now)
	}

	return trades, nil
}

// emitExecutionReport sends one execution report for the participant on
// reportSide (opp for the maker, side for the taker), picking OrdStatus/
// ExecType from the leaves quantity.
func (e *Engine) emitExecutionReport(trade Trade, orderQty, cumQty, leavesQty int, reportSide orderbook.Side) {
	var source string
	if reportSide == trade.Side {
		source = trade.TakerSource
	} else {
		source = trade.MakerSource
	}
	p, ok := e.participants[source]
	if !ok {
		return
	}

	ordStatus, execType := "2", "F"
	if leavesQty > 0 {
		ordStatus, execType = "1", "1"
	}

	lastQty := trade.Qty
	lastPx := trade.Price
	price := trade.Price

	clOrdID := trade.MakerID
	orderID := trade.MakerID
	if source == trade.TakerSource {
		clOrdID = trade.TakerID
		orderID = trade.TakerID
	}

	params := fix.ExecutionReportParams{
		ClOrdID:   clOrdID,
		OrderID:   orderID,
		ExecID:    uuid.NewString(),
		OrdStatus: ordStatus,
		ExecType:  execType,
		Symbol:    trade.Symbol,
		Side:      reportSide.String(),
		OrderQty:  orderQty,
		LastQty:   &lastQty,
		LastPx:    &lastPx,
		LeavesQty: &leavesQty,
		CumQty:    &cumQty,
		Price:     &price,
		Source:    source,
	}

	raw := e.execCodec.EncodeExecutionReport(params)
	if e.Recorder != nil {
		e.Recorder.RecordExecutionReport(trade.Symbol, raw, params)
	}
	p.OnExecutionReport(trade)
	p.OnTrade(trade)
}
