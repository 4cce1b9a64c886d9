// File: cmd/app/main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"recruitment-billing/internal/config"
	"recruitment-billing/internal/domain/model"
	"recruitment-billing/internal/domain/ports/adapter"
	"recruitment-billing/internal/infra/adapters/gateway"
	"recruitment-billing/internal/infra/adapters/notify"
	"recruitment-billing/internal/infra/bus"
	pg "recruitment-billing/internal/infra/db/postgres"
	"recruitment-billing/internal/infra/logging"
	"recruitment-billing/internal/infra/metrics"
	red "recruitment-billing/internal/infra/redis"
	"recruitment-billing/internal/infra/sched"
	"recruitment-billing/internal/infra/web"
	"recruitment-billing/internal/infra/worker"
	"recruitment-billing/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- Config & logging ----
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.Connect(ctx, cfg.Database.URL)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect failed")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connect failed")
	}
	defer redisClient.Close()
	locker := red.NewLocker(redisClient)

	// ---- Repositories ----
	paymentRepo := pg.NewPaymentRepo(pool)
	subRepo := pg.NewSubscriptionRepo(pool)
	pkgRepo := pg.NewPackageRepo(pool)
	webhookRepo := pg.NewWebhookEventRepo(pool)
	notifLogRepo := pg.NewNotificationLogRepo(pool)
	txManager := pg.NewTxManager(pool)

	// ---- Events & background jobs ----
	eventBus := bus.New(logger)
	jobPool := worker.NewPool(worker.Options{
		Workers:     cfg.Worker.Size,
		QueueDepth:  cfg.Worker.QueueDepth,
		MaxAttempts: cfg.Worker.MaxAttempts,
		Backoff:     cfg.Worker.Backoff,
	}, logger)
	jobPool.Start(ctx)
	defer jobPool.Stop()

	// ---- Payment gateways ----
	gateways := map[string]adapter.PaymentGateway{}
	if cfg.Gateway.VNPay.HashSecret != "" {
		vnp := gateway.NewVNPayGateway(cfg.Gateway.VNPay, logger)
		gateways[vnp.Name()] = vnp
	}
	if cfg.Gateway.Stripe.SecretKey != "" {
		str := gateway.NewStripeGateway(cfg.Gateway.Stripe, logger)
		gateways[str.Name()] = str
	}
	if len(gateways) == 0 {
		logger.Fatal().Msg("no payment gateway configured: set gateway.vnpay or gateway.stripe")
	}
	logger.Info().Strs("gateways", gatewayNames(gateways)).Msg("payment gateways ready")

	// ---- Use cases ----
	subUC := usecase.NewSubscriptionUseCase(subRepo, pkgRepo, txManager, eventBus, cfg.Billing.Policy(), logger)
	paymentUC := usecase.NewPaymentUseCase(paymentRepo, pkgRepo, txManager, gateways, eventBus, usecase.RetryPolicy{
		Attempts: cfg.Gateway.RefundRetries,
		Backoff:  cfg.Gateway.RefundBackoff,
	}, logger)
	pkgUC := usecase.NewPackageUseCase(pkgRepo, txManager, logger)
	webhookUC := usecase.NewWebhookUseCase(gateways, paymentUC, subUC, paymentRepo, subRepo, pkgRepo, webhookRepo, txManager, eventBus, logger)

	sender := notify.NewSender(cfg.Notify, logger)
	notifUC := usecase.NewNotificationUseCase(sender, jobPool, notifLogRepo, logger)
	eventBus.Subscribe(notifUC.HandleEvent)
	eventBus.Subscribe(paymentMetrics)

	// ---- Schedulers ----
	dunning := sched.NewDunningWorker(cfg.Billing.DunningCron, subUC, locker, logger)
	if err := dunning.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("dunning worker start failed")
	}
	reconciler := sched.NewPaymentReconciler(paymentUC, locker, cfg.Billing.ReconcileInterval, cfg.Billing.PendingTimeout, logger)
	go reconciler.Start(ctx)

	// ---- HTTP server ----
	srv := web.NewServer(cfg.Server, paymentUC, subUC, pkgUC, webhookUC, notifUC, gateways, logger)
	go func() {
		if err := srv.Run(ctx); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
			cancel()
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigc:
		logger.Info().Str("signal", sig.String()).Msg("shutdown requested")
	case <-ctx.Done():
	}
	cancel()
}

// paymentMetrics bridges committed payment events into the counters.
func paymentMetrics(_ context.Context, ev model.DomainEvent) {
	switch ev.Type {
	case model.EventPaymentSucceeded:
		metrics.IncPayment(ev.Gateway, "succeeded")
		metrics.AddPaymentRevenue(ev.Currency, ev.Amount)
	case model.EventPaymentFailed:
		metrics.IncPayment(ev.Gateway, "failed")
	case model.EventPaymentRefunded:
		metrics.IncPayment(ev.Gateway, "refunded")
	}
}

func gatewayNames(gateways map[string]adapter.PaymentGateway) []string {
	names := make([]string, 0, len(gateways))
	for name := range gateways {
		names = append(names, name)
	}
	return names
}
