package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/exsim/clob-exchange/internal/api"
	"github.com/exsim/clob-exchange/internal/archive"
	"github.com/exsim/clob-exchange/internal/config"
	"github.com/exsim/clob-exchange/internal/marketdata"
	"github.com/exsim/clob-exchange/internal/obslog"
	"github.com/exsim/clob-exchange/internal/persist"
	"github.com/exsim/clob-exchange/internal/scheduler"
	"github.com/exsim/clob-exchange/internal/state"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger, rotWriter, err := obslog.New(cfg.Logging.Path)
	if err != nil {
		log.Fatalf("open log: %v", err)
	}
	defer rotWriter.Close()
	logger.Println("exchange simulator starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("received signal %v, shutting down...", sig)
		cancel()
	}()

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	logger.Printf("PRNG seed: %d", seed)
	logger.Printf("loaded %d symbols", len(cfg.Symbols))

	market := marketdata.NewSource(cfg.MarketData.BaseURL, cfg.MarketData.CacheDir, logger)
	st := state.New()
	sched := scheduler.New(cfg, st, market, logger, seed)

	// Optional durable persistence: trades and execution reports beyond
	// the in-memory ring buffers, plus historical candle/stats queries.
	if cfg.Store.MongoURI != "" {
		store, err := persist.NewStore(ctx, cfg.Store.MongoURI)
		if err != nil {
			logger.Fatalf("database connection failed: %v", err)
		}
		defer store.Close(context.Background())

		if err := store.Migrate(ctx); err != nil {
			logger.Fatalf("index migration failed: %v", err)
		}

		recorder := persist.NewRecorder(store, st, 4096)
		sched.SetRecorder(recorder)
		go recorder.Run(ctx)

		go persist.RunRetention(ctx, store, cfg.Store.RetentionDays)

		if cfg.Store.Archive.Dir != "" {
			archiver := archive.New(store.DB(), cfg.Store.Archive.Dir,
				cfg.Store.Archive.MaxGB, cfg.Store.Archive.IntervalHours, cfg.Store.Archive.AfterHours)
			go archiver.Run(ctx)
		}

		logger.Println("durable persistence enabled")
	}

	go sched.Run(ctx)
	logger.Println("scheduler started")

	mux := http.NewServeMux()
	apiServer := api.NewServer(st, sched)
	apiServer.Register(mux)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ok","symbols":%d}`, len(cfg.Symbols))
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Printf("HTTP server listening on http://%s", addr)
	logger.Printf("metrics: http://%s/metrics", addr)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		logger.Fatalf("server error: %v", err)
	}

	logger.Println("exchange simulator stopped")
}
