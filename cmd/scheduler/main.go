// The scheduler binary drives the due cycle. By default it runs as a cron
// daemon on the configured schedule; -once runs a single cycle and exits,
// which is what containerized cron and operators backfilling a missed day
// use.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"paychain/internal/platform/app"
	"paychain/internal/platform/config"
)

func main() {
	once := flag.Bool("once", false, "run a single due cycle and exit")
	asOf := flag.String("as-of", "", "cycle date as YYYY-MM-DD (default today), only with -once")
	flag.Parse()

	if err := run(*once, *asOf); err != nil {
		fmt.Fprintf(os.Stderr, "scheduler: %v\n", err)
		os.Exit(1)
	}
}

func run(once bool, asOfRaw string) error {
	_ = godotenv.Load()
	cfg := config.FromEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if once {
		asOf := time.Now().UTC()
		if asOfRaw != "" {
			if asOf, err = time.Parse(time.DateOnly, asOfRaw); err != nil {
				return fmt.Errorf("invalid -as-of date %q", asOfRaw)
			}
		}
		report, err := a.Processor.RunDueCycle(ctx, asOf)
		if err != nil {
			return err
		}
		a.Logger.Info("cycle complete",
			"as_of", report.AsOf.Format(time.DateOnly),
			"processed", report.Processed,
			"failed", report.Failed,
		)
		return nil
	}
	if asOfRaw != "" {
		return fmt.Errorf("-as-of requires -once")
	}

	c := cron.New()
	_, err = c.AddFunc(cfg.DueCycleSchedule, func() {
		if _, err := a.Processor.RunDueCycle(ctx, time.Now().UTC()); err != nil {
			a.Logger.Error("scheduled due cycle failed", "error", err.Error())
		}
	})
	if err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", cfg.DueCycleSchedule, err)
	}

	a.Logger.Info("scheduler started", "schedule", cfg.DueCycleSchedule)
	c.Start()
	<-ctx.Done()

	// Let an in-flight cycle finish before exiting.
	<-c.Stop().Done()
	return nil
}
