// The server binary exposes the PayChain HTTP API: interactive transfers,
// scheduled-payment CRUD, receipts and the manual due-cycle trigger.
// Business logic lives in the internal service packages; main only wires
// and supervises.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"paychain/internal/ledger/handler"
	"paychain/internal/platform/app"
	"paychain/internal/platform/config"
	"paychain/internal/platform/httpserver"
	"paychain/internal/platform/middleware"
	processorhandler "paychain/internal/processor/handler"
	receipthandler "paychain/internal/receipts/handler"
	schedulehandler "paychain/internal/schedule/handler"
)

func main() {
	seed := flag.String("seed", "", "comma-separated principals to seed with demo accounts")
	flag.Parse()

	if err := run(*seed); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run(seed string) error {
	_ = godotenv.Load()
	cfg := config.FromEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if seed != "" {
		if err := a.Seed(ctx, strings.Split(seed, ",")); err != nil {
			return err
		}
	}

	srv := httpserver.New(cfg.Addr, newRouter(a))

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		a.Logger.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return group.Wait()
}

func newRouter(a *app.App) chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.Recovery(a.Logger))
	router.Use(middleware.RequestID)
	router.Use(middleware.RequestTime)
	router.Use(middleware.Logger(a.Logger))
	router.Use(middleware.Principal)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	router.Group(func(r chi.Router) {
		r.Use(middleware.RequirePrincipal)
		handler.New(a.Ledger, a.Logger).Register(r)
		schedulehandler.New(a.Rules, a.Ledger, a.Logger).Register(r)
		receipthandler.New(a.Receipts, a.Ledger, a.Logger).Register(r)
	})

	processorhandler.New(a.Processor, a.Logger).Register(router)
	return router
}
