package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dhstore/checkout/internal/checkout"
	"github.com/dhstore/checkout/internal/config"
	"github.com/dhstore/checkout/internal/db"
	"github.com/dhstore/checkout/internal/events"
	"github.com/dhstore/checkout/internal/gateway"
	"github.com/dhstore/checkout/internal/handlers"
	"github.com/dhstore/checkout/internal/ledger"
	"github.com/dhstore/checkout/internal/memstore"
	"github.com/dhstore/checkout/internal/notify"
	"github.com/dhstore/checkout/internal/order"
	"github.com/dhstore/checkout/internal/reconcile"
	"github.com/dhstore/checkout/internal/router"
	"github.com/dhstore/checkout/internal/sequence"
	"github.com/dhstore/checkout/internal/shipping"
	logger "github.com/sirupsen/logrus"
)

const memoryDSN = "memory"

type storage interface {
	ledger.Store
	sequence.Store
	reconcile.OrderStore
	reconcile.PendingOrderStore
	order.Database
}

func openStorage(dsn string) (storage, func(), error) {
	if dsn == memoryDSN {
		logger.Warn("Using in-memory storage, data is lost on restart")
		return memstore.New(), func() {}, nil
	}
	database, err := db.NewDatabase(dsn)
	if err != nil {
		return nil, nil, err
	}
	return database, database.Close, nil
}

func main() {
	conf, err := config.NewConfig()
	if err != nil {
		panic(err)
	}

	level, err := logger.ParseLevel(conf.LogLevel)
	if err != nil {
		panic(err)
	}
	logger.SetLevel(level)

	store, closeStore, err := openStorage(conf.DatabaseDSN)
	if err != nil {
		panic(err)
	}
	defer closeStore()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := notify.Options{
		QueueSize:     conf.NotifyQueueSize,
		Workers:       conf.NotifyWorkers,
		RatePerSecond: conf.NotifyRatePerSecond,
	}
	if len(conf.KafkaBrokers) > 0 {
		publisher := events.NewPublisher(conf.KafkaBrokers, conf.KafkaOrderTopic)
		defer publisher.Close()
		opts.Publisher = publisher
	}
	dispatcher := notify.NewDispatcher(
		notify.NewHTTPSender(conf.SMSAPIURL, conf.WhatsAppAPIURL, conf.NotifyAPIKey, conf.GatewayTimeout),
		opts,
	)
	// not bound to ctx so that Close can drain what is already queued
	dispatcher.Start(context.Background())
	defer dispatcher.Close()

	allocator := sequence.NewAllocator(store, sequence.Config{
		OrderPrefix:   conf.OrderPrefix,
		InvoicePrefix: conf.InvoicePrefix,
		Width:         conf.SequenceWidth,
		LookupTimeout: conf.SequenceLookupTimeout,
	})
	l := ledger.NewLedger(store)
	rates := shipping.Rates{TamilNadu: conf.TamilNaduShippingRate, OtherState: conf.OtherStateShippingRate}
	finalizer := reconcile.NewFinalizer(store, allocator, rates, dispatcher)

	gw := gateway.NewClient(conf.RazorpayAPIURL, conf.RazorpayKeyID, conf.RazorpayKeySecret, conf.GatewayTimeout)
	handlerSet := handlers.NewHandlerSet(
		reconcile.NewReconciler(store, store, l, finalizer),
		checkout.NewService(allocator, l, gw, finalizer, conf.RazorpayKeyID),
		allocator.OrderPrefix(),
	)

	sweeper := order.NewSweeper(store, l, conf.PendingOrderTTL, conf.SweepInterval)
	go sweeper.Run(ctx)

	r := router.NewRouter(conf, handlerSet)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := r.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("Server shutdown failed: %s", err.Error())
		}
	}()

	logger.Infof("Listening on %s", conf.RunAddress)
	if conf.RazorpayWebhookSecret == "" {
		logger.Warn("RAZORPAY_WEBHOOK_SECRET is empty, webhook signatures are not checked")
	}
	err = r.ListenAndServe()
	if err != nil {
		panic(err)
	}
}
