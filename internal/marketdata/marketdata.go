// Package marketdata is a thin facade over the intraday reference-price
// collaborator: an HTTP fetch with a timeout, an on-disk JSON cache, and
// a persisted daily API-call counter. The REST client's internals
// (retries, request shaping, rate limiting against the upstream vendor)
// are intentionally minimal — this package only needs to hand the
// scheduler a price per symbol, cheaply, without hammering the upstream
// API.
//
// Grounded on original_source/app/market_data.py (fetch_intraday_data,
// load_cached_data, get_latest_price, the API-call counter file) and on
// go-feed's resty usage conventions (SetTimeout, SetContext).
package marketdata

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/exsim/clob-exchange/internal/money"
)

// CacheExpiry matches the original's CACHE_EXPIRY_SECONDS.
const CacheExpiry = time.Hour

type cacheEntry struct {
	Price money.Price `json:"price"`
	At    time.Time   `json:"at"`
}

type quoteResponse struct {
	Close float64 `json:"close"`
	C     float64 `json:"c"`
	Bid   float64 `json:"bid"`
	Ask   float64 `json:"ask"`
}

// Source fetches the latest reference price for a symbol.
type Source struct {
	http      *resty.Client
	baseURL   string
	cacheDir  string
	counter   *apiCallCounter
	mu        sync.Mutex
	logger    *log.Logger
}

// NewSource builds a Source. baseURL is the upstream intraday quote
// endpoint; cacheDir holds cached price files and the call counter.
func NewSource(baseURL, cacheDir string, logger *log.Logger) *Source {
	if logger == nil {
		logger = log.Default()
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second)
	return &Source{
		http:     client,
		baseURL:  baseURL,
		cacheDir: cacheDir,
		counter:  newAPICallCounter(filepath.Join(cacheDir, "api_calls_today.json")),
		logger:   logger,
	}
}

// GetLatestPrice returns symbol's latest reference price, preferring an
// unexpired on-disk cache entry over a network call, mirroring
// fetch_intraday_data's cache-then-fetch order. ok is false when no
// price could be obtained from either source.
func (s *Source) GetLatestPrice(ctx context.Context, symbol string) (money.Price, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.loadCache(symbol); ok {
		return entry.Price, true, nil
	}

	var result quoteResponse
	resp, err := s.http.R().
		SetContext(ctx).
		SetPathParam("symbol", symbol).
		SetResult(&result).
		Get("/intraday/{symbol}")
	if err != nil {
		s.logger.Printf("marketdata: fetch %s: %v", symbol, err)
		return money.Price{}, false, err
	}
	if resp.IsError() {
		s.logger.Printf("marketdata: fetch %s: status %d", symbol, resp.StatusCode())
		return money.Price{}, false, nil
	}
	s.counter.increment()

	price := result.Close
	if price == 0 {
		price = result.C
	}
	if price == 0 && result.Bid != 0 && result.Ask != 0 {
		price = (result.Bid + result.Ask) / 2
	}
	if price == 0 {
		return money.Price{}, false, nil
	}

	p := money.NewFromFloat(price)
	s.saveCache(symbol, p)
	return p, true, nil
}

func (s *Source) cachePath(symbol string) string {
	return filepath.Join(s.cacheDir, symbol+"_latest.json")
}

func (s *Source) loadCache(symbol string) (cacheEntry, bool) {
	raw, err := os.ReadFile(s.cachePath(symbol))
	if err != nil {
		return cacheEntry{}, false
	}
	var entry cacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return cacheEntry{}, false
	}
	if time.Since(entry.At) > CacheExpiry {
		return cacheEntry{}, false
	}
	return entry, true
}

func (s *Source) saveCache(symbol string, price money.Price) {
	if err := os.MkdirAll(s.cacheDir, 0o755); err != nil {
		s.logger.Printf("marketdata: cache dir %s: %v", s.cacheDir, err)
		return
	}
	entry := cacheEntry{Price: price, At: time.Now()}
	raw, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if err := os.WriteFile(s.cachePath(symbol), raw, 0o644); err != nil {
		s.logger.Printf("marketdata: write cache %s: %v", symbol, err)
	}
}
