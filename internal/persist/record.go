package persist

import (
	"context"
	"log"
	"time"

	"github.com/exsim/clob-exchange/internal/fix"
	"github.com/exsim/clob-exchange/internal/matching"
)

// tradeDoc is the durable form of a matching.Trade.
type tradeDoc struct {
	Symbol      string    `bson:"symbol"`
	Price       float64   `bson:"price"`
	Qty         int       `bson:"qty"`
	MakerID     string    `bson:"maker_id"`
	MakerSource string    `bson:"maker_source"`
	TakerID     string    `bson:"taker_id"`
	TakerSource string    `bson:"taker_source"`
	Side        string    `bson:"side"`
	ExecutedAt  time.Time `bson:"executed_at"`
}

// reportDoc is the durable form of a FIX 35=8 execution report.
type reportDoc struct {
	Symbol     string    `bson:"symbol"`
	Raw        []byte    `bson:"raw"`
	ClOrdID    string    `bson:"cl_ord_id"`
	OrderID    string    `bson:"order_id"`
	ExecID     string    `bson:"exec_id"`
	ExecType   string    `bson:"exec_type"`
	Source     string    `bson:"source"`
	RecordedAt time.Time `bson:"recorded_at"`
}

// Recorder durably persists trades and execution reports to MongoDB
// while passing every call through to another matching.Recorder
// (normally *state.State), so the dashboard's in-memory histories and
// the database both see every fill. Grounded on cmd/feedsim/main.go's
// tradeCh/tradeWriter pair: a buffered channel feeds a single draining
// goroutine, and the channel send drops (logging each drop) under
// back-pressure rather than blocking the scheduler's tick.
type Recorder struct {
	next    matching.Recorder
	store   *Store
	trades  chan tradeDoc
	reports chan reportDoc
}

// NewRecorder wraps next (which may be nil) with durable persistence.
// bufSize bounds how many unflushed trades/reports may queue before
// new ones are dropped.
func NewRecorder(store *Store, next matching.Recorder, bufSize int) *Recorder {
	return &Recorder{
		next:    next,
		store:   store,
		trades:  make(chan tradeDoc, bufSize),
		reports: make(chan reportDoc, bufSize),
	}
}

// RecordTrade implements matching.Recorder.
func (r *Recorder) RecordTrade(t matching.Trade) {
	if r.next != nil {
		r.next.RecordTrade(t)
	}
	doc := tradeDoc{
		Symbol:      t.Symbol,
		Price:       t.Price.Float64(),
		Qty:         t.Qty,
		MakerID:     t.MakerID,
		MakerSource: t.MakerSource,
		TakerID:     t.TakerID,
		TakerSource: t.TakerSource,
		Side:        t.Side.String(),
		ExecutedAt:  t.Time,
	}
	select {
	case r.trades <- doc:
	default:
		log.Printf("persist: trade buffer full, dropping fill for %s", t.Symbol)
	}
}

// RecordExecutionReport implements matching.Recorder.
func (r *Recorder) RecordExecutionReport(symbol string, raw []byte, params fix.ExecutionReportParams) {
	if r.next != nil {
		r.next.RecordExecutionReport(symbol, raw, params)
	}
	doc := reportDoc{
		Symbol:     symbol,
		Raw:        raw,
		ClOrdID:    params.ClOrdID,
		OrderID:    params.OrderID,
		ExecID:     params.ExecID,
		ExecType:   params.ExecType,
		Source:     params.Source,
		RecordedAt: time.Now(),
	}
	select {
	case r.reports <- doc:
	default:
		log.Printf("persist: execution report buffer full, dropping report for %s", symbol)
	}
}

// RecordLatency implements matching.Recorder. Latency samples are a
// diagnostic live view only (internal/state already bounds them in a
// ring buffer); they are not durably persisted.
func (r *Recorder) RecordLatency(symbol string, entry matching.LatencyEntry) {
	if r.next != nil {
		r.next.RecordLatency(symbol, entry)
	}
}

// Run drains both buffers until ctx is cancelled. Each document is a
// best-effort insert: a write error is logged, never fatal to the
// caller's tick loop.
func (r *Recorder) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case doc := <-r.trades:
			if _, err := r.store.db.Collection("trades").InsertOne(ctx, doc); err != nil {
				log.Printf("persist: insert trade: %v", err)
			}
		case doc := <-r.reports:
			if _, err := r.store.db.Collection("execution_reports").InsertOne(ctx, doc); err != nil {
				log.Printf("persist: insert execution report: %v", err)
			}
		}
	}
}
