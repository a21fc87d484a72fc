// Package api serves the dashboard's JSON endpoints: exchange/strategy
// toggles, order book and history reads, the strategy scoreboard, and
// symbol selection.
//
// Grounded on go-feed's internal/api/api.go (Server/Register/
// writeJSON/writeError/parseIntParam shape, net/http.ServeMux method+path
// patterns) and on original_source/api/routes.py's register_routes for
// the route list and response shapes.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/exsim/clob-exchange/internal/scheduler"
	"github.com/exsim/clob-exchange/internal/state"
)

// Server wires the dashboard's HTTP handlers to the shared trading
// state and the scheduler that owns every symbol's order book.
type Server struct {
	state     *state.State
	scheduler *scheduler.Scheduler
	startAt   time.Time
}

// NewServer builds a Server.
func NewServer(st *state.State, sched *scheduler.Scheduler) *Server {
	return &Server{state: st, scheduler: sched, startAt: time.Now()}
}

// Register attaches every route to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /toggle_exchange", s.handleToggleExchange)
	mux.HandleFunc("POST /toggle_my_strategy", s.handleToggleMyStrategy)
	mux.HandleFunc("POST /cancel_mystrategy_orders", s.handleCancelMyStrategyOrders)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /order_book", s.handleOrderBook)
	mux.HandleFunc("GET /trades", s.handleTrades)
	mux.HandleFunc("GET /order_book_history", s.handleOrderBookHistory)
	mux.HandleFunc("GET /spread_history", s.handleSpreadHistory)
	mux.HandleFunc("GET /liquidity_history", s.handleLiquidityHistory)
	mux.HandleFunc("GET /strategy_status", s.handleStrategyStatus)
	mux.HandleFunc("GET /execution_reports", s.handleExecutionReports)
	mux.HandleFunc("POST /select_symbol", s.handleSelectSymbol)
	mux.HandleFunc("GET /order_latency_history", s.handleOrderLatencyHistory)
}

// writeJSON writes v as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// resolveSymbol returns the request's ?symbol= query param, falling
// back to the dashboard's currently selected symbol, matching the
// original's "symbol = request.args.get('symbol') or current_symbol".
func (s *Server) resolveSymbol(r *http.Request) string {
	if sym := r.URL.Query().Get("symbol"); sym != "" {
		return sym
	}
	return s.state.SelectedSymbol()
}

// parseFloatParam parses an optional float64 query parameter, returning
// (0, false) when absent or malformed.
func parseFloatParam(r *http.Request, key string) (float64, bool) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
