// rh-kelly funnel-service
//
// Conversation engine for the recruitment funnel:
//   - POST /events — process one normalized inbound event (dedupe, load lead
//     context, evaluate the stage transition, persist, return outbound intents)
//
// State lives in PostgreSQL with a Redis fast tier in front; message
// deduplication and stage-change notifications also ride on Redis. The open
// vacancy catalog is served from a cron-refreshed snapshot.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robertmcarvalho/rh-kelly-agent/internal/classifier"
	"github.com/robertmcarvalho/rh-kelly-agent/internal/config"
	"github.com/robertmcarvalho/rh-kelly-agent/internal/content"
	"github.com/robertmcarvalho/rh-kelly-agent/internal/db"
	"github.com/robertmcarvalho/rh-kelly-agent/internal/dedupe"
	"github.com/robertmcarvalho/rh-kelly-agent/internal/funnel"
	"github.com/robertmcarvalho/rh-kelly-agent/internal/httpapi"
	"github.com/robertmcarvalho/rh-kelly-agent/internal/orchestrator"
	"github.com/robertmcarvalho/rh-kelly-agent/internal/store"
	"github.com/robertmcarvalho/rh-kelly-agent/internal/vacancy"
)

const version = "1.0.0"

func main() {
	// ── Config ──────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[funnel-service] Config error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── Content ─────────────────────────────────────────────────────────────
	cnt, err := content.Load(cfg.ContentPath)
	if err != nil {
		log.Fatalf("[funnel-service] Content error: %v", err)
	}

	// ── PostgreSQL ───────────────────────────────────────────────────────────
	log.Println("[funnel-service] Connecting to PostgreSQL…")
	pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("[funnel-service] PostgreSQL: %v", err)
	}
	defer pool.Close()
	log.Println("[funnel-service] PostgreSQL connected ✓")

	// ── Redis ────────────────────────────────────────────────────────────────
	log.Println("[funnel-service] Connecting to Redis…")
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("[funnel-service] Redis: %v", err)
	}
	defer rdb.Close()
	log.Println("[funnel-service] Redis connected ✓")

	// ── Vacancy snapshot ─────────────────────────────────────────────────────
	vacancies := vacancy.NewCache(vacancy.NewPostgresSource(pool), cfg.VacancyRefreshMinutes)
	if err := vacancies.Start(ctx); err != nil {
		log.Fatalf("[funnel-service] Vacancy snapshot: %v", err)
	}
	defer vacancies.Stop()

	// ── Engine ───────────────────────────────────────────────────────────────
	machine := funnel.NewMachine(cnt, vacancies, classifier.NewKeyword(vacancies), funnel.Config{
		SkipIntro:    cfg.SkipIntro,
		MaxReprompts: cfg.MaxReprompts,
	})
	leadStore := store.NewTwoTier(
		store.NewPostgres(pool), rdb,
		time.Duration(cfg.ContextTTLSeconds)*time.Second,
		time.Duration(cfg.StoreTimeoutMillis)*time.Millisecond,
	)
	guard := dedupe.NewRedis(rdb, time.Duration(cfg.DedupeTTLSeconds)*time.Second)
	orc := orchestrator.New(leadStore, guard, machine, orchestrator.RedisPublisher{RDB: rdb}, cfg.CASMaxRetries)

	// ── HTTP server ──────────────────────────────────────────────────────────
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	httpapi.NewHandler(orc).RegisterRoutes(mux)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("[funnel-service] v%s listening on :%s", version, cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[funnel-service] HTTP server error: %v", err)
		}
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[funnel-service] Shutting down…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[funnel-service] Shutdown error: %v", err)
	}
	log.Println("[funnel-service] Stopped.")
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"service": "funnel-service",
		"version": version,
	})
}
