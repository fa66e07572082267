package main // Entry point package

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/clinic-booking-saga/internal/config"
	"github.com/iliyamo/clinic-booking-saga/internal/handler"
	"github.com/iliyamo/clinic-booking-saga/internal/quota"
	"github.com/iliyamo/clinic-booking-saga/internal/queue"
	"github.com/iliyamo/clinic-booking-saga/internal/router"
	"github.com/iliyamo/clinic-booking-saga/internal/saga"
	queue_publisher "github.com/iliyamo/clinic-booking-saga/internal/service"
	"github.com/iliyamo/clinic-booking-saga/internal/store"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments use the environment
	cfg := config.Load()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Fatal("redis is unreachable; it is the only external store, refusing to start")
	}

	// External handles, injected explicitly into every component.
	txnStore := store.NewTransactionStore(rdb, cfg.TransactionTTL)
	eventLog := store.NewEventLog(rdb)
	failureFlag := store.NewFailureFlag(rdb, cfg.SimulateBookingFailure)
	arbiter := quota.NewArbiter(rdb, cfg)

	steps := saga.NewSteps(txnStore, eventLog, arbiter, failureFlag, queue_publisher.Notifier{}, cfg)
	comp := saga.NewCompensator(txnStore, eventLog, arbiter)
	dispatcher := saga.NewDispatcher(steps, comp, txnStore, eventLog, eventLog)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Choreography consumer: reacts to events on the shared stream.
	go dispatcher.Run(ctx)

	// Broker consumer: appends confirmed bookings to logs/booking.log.
	go func() {
		if err := queue.StartBookingConsumer(); err != nil {
			log.Printf("booking consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true
	router.RegisterRoutes(e,
		handler.NewHealthHandler(rdb),
		handler.NewBookingHandler(txnStore, eventLog),
		handler.NewAdminHandler(arbiter, failureFlag, cfg),
		handler.NewStepHandler(steps, comp, txnStore),
	)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s, quota=%d/day, discount=%.1f%%)", addr, cfg.Env, cfg.DailyDiscountQuota, cfg.DiscountPercentage)

	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
}
