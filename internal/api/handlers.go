package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/exsim/clob-exchange/internal/matching"
	"github.com/exsim/clob-exchange/internal/money"
	"github.com/exsim/clob-exchange/internal/orderbook"
	"github.com/exsim/clob-exchange/internal/state"
)

// --- POST /toggle_exchange ---

func (s *Server) handleToggleExchange(w http.ResponseWriter, r *http.Request) {
	halted := !s.state.Halted()
	s.state.SetHalted(halted)
	status := "active"
	if halted {
		status = "halted"
	}
	s.state.AppendCompetitionLog("Exchange " + status)
	writeJSON(w, http.StatusOK, map[string]bool{"exchange_halted": halted})
}

// --- POST /toggle_my_strategy ---

func (s *Server) handleToggleMyStrategy(w http.ResponseWriter, r *http.Request) {
	enabled := !s.state.MyStrategyEnabled()
	s.state.SetMyStrategyEnabled(enabled)
	status := "paused"
	if enabled {
		status = "enabled"
	}
	s.state.AppendCompetitionLog("MyStrategy " + status)
	writeJSON(w, http.StatusOK, map[string]bool{"my_strategy_enabled": enabled})
}

// --- POST /cancel_mystrategy_orders ---

type cancelOrdersRequest struct {
	Symbol string `json:"symbol"`
}

type removedOrder struct {
	ID     string      `json:"id"`
	Side   string      `json:"side"`
	Price  money.Price `json:"price"`
	Qty    int         `json:"qty"`
	Source string      `json:"source"`
}

func (s *Server) handleCancelMyStrategyOrders(w http.ResponseWriter, r *http.Request) {
	var req cancelOrdersRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	symbol := req.Symbol
	if symbol == "" {
		symbol = s.state.SelectedSymbol()
	}
	if !s.scheduler.IsValidSymbol(symbol) {
		writeError(w, http.StatusBadRequest, "invalid symbol")
		return
	}

	removed, err := s.scheduler.CancelMyStrategyOrders(r.Context(), symbol)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]removedOrder, len(removed))
	for i, o := range removed {
		out[i] = removedOrder{ID: o.ID, Side: o.Side.String(), Price: o.Price, Qty: o.Qty, Source: o.Source}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "removed_orders": out})
}

// --- GET /status ---

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"exchange_halted":     s.state.Halted(),
		"my_strategy_enabled": s.state.MyStrategyEnabled(),
		"symbol":              s.state.SelectedSymbol(),
	})
}

// --- GET /order_book ---

type bookLevelJSON struct {
	Price money.Price `json:"price"`
	Qty   int         `json:"qty"`
}

func (s *Server) handleOrderBook(w http.ResponseWriter, r *http.Request) {
	symbol := s.state.SelectedSymbol()
	if req := r.URL.Query().Get("symbol"); req != "" && s.scheduler.IsValidSymbol(req) {
		symbol = req
	}

	snapshots := s.state.Snapshots(symbol)
	resp := map[string]any{
		"bids":       []bookLevelJSON{},
		"asks":       []bookLevelJSON{},
		"last_price": nil,
	}
	if len(snapshots) > 0 {
		latest := snapshots[len(snapshots)-1]
		bids := make([]bookLevelJSON, len(latest.Depth.Bids))
		for i, lvl := range latest.Depth.Bids {
			bids[i] = bookLevelJSON{Price: lvl.Price, Qty: lvl.Qty}
		}
		asks := make([]bookLevelJSON, len(latest.Depth.Asks))
		for i, lvl := range latest.Depth.Asks {
			asks[i] = bookLevelJSON{Price: lvl.Price, Qty: lvl.Qty}
		}
		resp["bids"] = bids
		resp["asks"] = asks
		if latest.Depth.HasLast {
			resp["last_price"] = latest.Depth.LastPrice
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- GET /trades ---

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	symbol := s.resolveSymbol(r)
	if symbol == "" || !s.scheduler.IsValidSymbol(symbol) {
		writeError(w, http.StatusBadRequest, "invalid or missing symbol")
		return
	}

	trades := s.state.Trades(symbol)
	writeJSON(w, http.StatusOK, filterTrades(trades, r))
}

func filterTrades(trades []matching.Trade, r *http.Request) []matching.Trade {
	var side orderbook.Side
	var haveSide bool
	if v := r.URL.Query().Get("side"); v != "" {
		side, haveSide = parseSideParam(v)
	}
	source := r.URL.Query().Get("source")
	minPrice, haveMin := parseFloatParam(r, "min_price")
	maxPrice, haveMax := parseFloatParam(r, "max_price")

	out := make([]matching.Trade, 0, len(trades))
	for _, t := range trades {
		if haveSide && t.Side != side {
			continue
		}
		if source != "" && t.TakerSource != source {
			continue
		}
		if haveMin && t.Price.Float64() < minPrice {
			continue
		}
		if haveMax && t.Price.Float64() > maxPrice {
			continue
		}
		out = append(out, t)
	}
	return out
}

// parseSideParam accepts both the FIX wire codes ("1"/"2"/"B"/"S") and
// the dashboard's plain "buy"/"sell" query values.
func parseSideParam(v string) (orderbook.Side, bool) {
	switch strings.ToLower(v) {
	case "buy":
		return orderbook.SideBuy, true
	case "sell":
		return orderbook.SideSell, true
	}
	return orderbook.ParseSide(v)
}

// --- GET /order_book_history ---

type historyEntryJSON struct {
	Time        time.Time     `json:"time"`
	PriceLevels []money.Price `json:"price_levels"`
	Quantities  []int         `json:"quantities"`
}

func (s *Server) handleOrderBookHistory(w http.ResponseWriter, r *http.Request) {
	symbol := s.resolveSymbol(r)
	if symbol == "" || !s.scheduler.IsValidSymbol(symbol) {
		writeError(w, http.StatusBadRequest, "invalid or missing symbol")
		return
	}

	snapshots := s.state.Snapshots(symbol)
	out := make([]historyEntryJSON, len(snapshots))
	for i, snap := range snapshots {
		levels := make([]money.Price, 0, len(snap.Depth.Bids)+len(snap.Depth.Asks))
		qtys := make([]int, 0, len(snap.Depth.Bids)+len(snap.Depth.Asks))
		for _, lvl := range snap.Depth.Bids {
			levels = append(levels, lvl.Price)
			qtys = append(qtys, lvl.Qty)
		}
		for _, lvl := range snap.Depth.Asks {
			levels = append(levels, lvl.Price)
			qtys = append(qtys, lvl.Qty)
		}
		out[i] = historyEntryJSON{Time: snap.Time, PriceLevels: levels, Quantities: qtys}
	}
	writeJSON(w, http.StatusOK, out)
}

// --- GET /spread_history ---

func (s *Server) handleSpreadHistory(w http.ResponseWriter, r *http.Request) {
	symbol := s.resolveSymbol(r)
	if symbol == "" || !s.scheduler.IsValidSymbol(symbol) {
		writeError(w, http.StatusBadRequest, "invalid or missing symbol")
		return
	}
	writeJSON(w, http.StatusOK, s.state.SpreadHistory(symbol))
}

// --- GET /liquidity_history ---

func (s *Server) handleLiquidityHistory(w http.ResponseWriter, r *http.Request) {
	symbol := s.resolveSymbol(r)
	if symbol == "" || !s.scheduler.IsValidSymbol(symbol) {
		writeError(w, http.StatusBadRequest, "invalid or missing symbol")
		return
	}
	writeJSON(w, http.StatusOK, s.state.LiquidityHistory(symbol))
}

// --- GET /strategy_status ---

type strategyStatusJSON struct {
	Inventory     int     `json:"inventory"`
	RealisedPnL   float64 `json:"realized_pnl"`
	UnrealisedPnL float64 `json:"unrealized_pnl"`
	TotalPnL      float64 `json:"total_pnl"`
	TotalTrades   int     `json:"total_trades"`
	WinRate       float64 `json:"win_rate"`
}

func (s *Server) handleStrategyStatus(w http.ResponseWriter, r *http.Request) {
	symbol := s.resolveSymbol(r)
	if symbol == "" || !s.scheduler.IsValidSymbol(symbol) {
		writeError(w, http.StatusBadRequest, "invalid or missing symbol")
		return
	}

	statuses := s.state.StrategyStatuses(symbol)
	out := make(map[string]strategyStatusJSON, len(statuses))
	for name, rec := range statuses {
		out[name] = strategyStatusJSON{
			Inventory:     rec.Inventory,
			RealisedPnL:   rec.RealisedPnL.Float64(),
			UnrealisedPnL: rec.UnrealisedPnL.Float64(),
			TotalPnL:      rec.TotalPnL.Float64(),
			TotalTrades:   rec.TotalTrades,
			WinRate:       rec.WinRate,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// --- GET /execution_reports ---

func (s *Server) handleExecutionReports(w http.ResponseWriter, r *http.Request) {
	symbol := s.resolveSymbol(r)
	if symbol == "" || !s.scheduler.IsValidSymbol(symbol) {
		writeError(w, http.StatusBadRequest, "invalid or missing symbol")
		return
	}

	reports := s.state.ExecutionReports(symbol)
	if source := r.URL.Query().Get("source"); source != "" {
		filtered := make([]state.ExecutionReportRecord, 0, len(reports))
		for _, rec := range reports {
			if rec.Params.Source == source {
				filtered = append(filtered, rec)
			}
		}
		reports = filtered
	}
	writeJSON(w, http.StatusOK, reports)
}

// --- POST /select_symbol ---

type selectSymbolRequest struct {
	Symbol string `json:"symbol"`
	Ticker string `json:"ticker"`
}

func (s *Server) handleSelectSymbol(w http.ResponseWriter, r *http.Request) {
	var req selectSymbolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	symbol := req.Symbol
	if symbol == "" {
		symbol = req.Ticker
	}
	if symbol == "" || !s.scheduler.IsValidSymbol(symbol) {
		writeError(w, http.StatusBadRequest, "invalid symbol")
		return
	}

	s.state.SetSelectedSymbol(symbol)
	s.state.AppendCompetitionLog("Symbol selected: " + symbol)
	writeJSON(w, http.StatusOK, map[string]string{"status": "symbol_changed", "symbol": symbol})
}

// --- GET /order_latency_history ---

func (s *Server) handleOrderLatencyHistory(w http.ResponseWriter, r *http.Request) {
	symbol := s.resolveSymbol(r)
	if symbol == "" || !s.scheduler.IsValidSymbol(symbol) {
		writeError(w, http.StatusBadRequest, "invalid or missing symbol")
		return
	}
	writeJSON(w, http.StatusOK, s.state.LatencyHistory(symbol))
}
