package marketdata

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGetLatestPriceFetchesAndCaches(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		json.NewEncoder(w).Encode(quoteResponse{Close: 101.5})
	}))
	defer srv.Close()

	dir := t.TempDir()
	s := NewSource(srv.URL, dir, nil)

	price, ok, err := s.GetLatestPrice(context.Background(), "IBM")
	if err != nil || !ok {
		t.Fatalf("GetLatestPrice: ok=%v err=%v", ok, err)
	}
	if price.Float64() != 101.5 {
		t.Fatalf("price = %v, want 101.5", price.Float64())
	}

	// Second call should hit the on-disk cache, not the network.
	if _, _, err := s.GetLatestPrice(context.Background(), "IBM"); err != nil {
		t.Fatalf("cached GetLatestPrice: %v", err)
	}
	if hits != 1 {
		t.Fatalf("expected exactly one upstream request, got %d", hits)
	}
}

func TestGetLatestPriceFallsBackOnBidAsk(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(quoteResponse{Bid: 99, Ask: 101})
	}))
	defer srv.Close()

	s := NewSource(srv.URL, t.TempDir(), nil)
	price, ok, err := s.GetLatestPrice(context.Background(), "MSFT")
	if err != nil || !ok {
		t.Fatalf("GetLatestPrice: ok=%v err=%v", ok, err)
	}
	if price.Float64() != 100 {
		t.Fatalf("price = %v, want 100 (mid of bid/ask)", price.Float64())
	}
}

func TestGetLatestPriceNotOKOnUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := NewSource(srv.URL, t.TempDir(), nil)
	_, ok, err := s.GetLatestPrice(context.Background(), "IBM")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false on a 500 response")
	}
}
