package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"carteirinha/internal/admin"
	"carteirinha/internal/applicant"
	"carteirinha/internal/audit"
	auditHandler "carteirinha/internal/audit/handler"
	"carteirinha/internal/audit/publisher"
	auditMemory "carteirinha/internal/audit/store/memory"
	auditPostgres "carteirinha/internal/audit/store/postgres"
	jwttoken "carteirinha/internal/jwt_token"
	onboardingHandler "carteirinha/internal/onboarding/handler"
	"carteirinha/internal/onboarding/snapshot"
	"carteirinha/internal/onboarding/store"
	"carteirinha/internal/payment"
	paymentHandler "carteirinha/internal/payment/handler"
	"carteirinha/internal/platform/config"
	"carteirinha/internal/platform/httpserver"
	"carteirinha/internal/platform/logger"
	"carteirinha/internal/platform/metrics"
	"carteirinha/internal/platform/redis"
	"carteirinha/internal/transition"
	transitionHandler "carteirinha/internal/transition/handler"
	httptransport "carteirinha/internal/transport/http"
)

const (
	jwtIssuer   = "carteirinha"
	jwtAudience = "carteirinha-api"
)

// main wires dependencies and owns the server lifecycle. Business logic
// lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	// Persistence. An empty DSN selects the in-memory stores, which is the
	// local development mode.
	var (
		profiles        store.ProfileStore
		payments        store.PaymentStore
		documents       store.DocumentStore
		faceValidations store.FaceValidationStore
		cards           store.CardStore
		admins          admin.Store
		gateways        payment.GatewayStore
		auditStore      audit.Store
	)
	if cfg.PostgresDSN != "" {
		db, err := store.Open(cfg.PostgresDSN)
		if err != nil {
			log.Error("failed to open postgres", "error", err.Error())
			os.Exit(1)
		}
		defer db.Close()
		profiles = store.NewPostgresProfileStore(db)
		payments = store.NewPostgresPaymentStore(db)
		documents = store.NewPostgresDocumentStore(db)
		faceValidations = store.NewPostgresFaceValidationStore(db)
		cards = store.NewPostgresCardStore(db)
		admins = admin.NewPostgresStore(db)
		gateways = payment.NewPostgresGatewayStore(db)
		auditStore = auditPostgres.New(db)
	} else {
		profiles = store.NewInMemoryProfileStore()
		payments = store.NewInMemoryPaymentStore()
		documents = store.NewInMemoryDocumentStore()
		faceValidations = store.NewInMemoryFaceValidationStore()
		cards = store.NewInMemoryCardStore()
		admins = admin.NewInMemoryStore()
		gateways = payment.NewInMemoryGatewayStore(payment.Gateway{
			Name:        payment.GatewayPagarme,
			DisplayName: "Pagar.me",
			IsActive:    true,
		})
		auditStore = auditMemory.New()
		log.Warn("no postgres DSN configured, using in-memory stores")
	}

	cache, err := redis.New(cfg.RedisAddr)
	if err != nil {
		log.Error("failed to connect to redis", "error", err.Error())
		os.Exit(1)
	}
	if cache != nil {
		defer cache.Close()
	}

	var auditPublisher audit.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		kafka, err := publisher.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic, log)
		if err != nil {
			log.Error("failed to connect to kafka", "error", err.Error())
			os.Exit(1)
		}
		defer kafka.Close()
		auditPublisher = kafka
	}

	m := metrics.New()
	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, jwtIssuer, jwtAudience)

	loader := snapshot.NewLoader(
		profiles, payments, documents, faceValidations, cards,
		cache, config.SnapshotCacheTTL, log,
	)
	auditSvc := audit.NewService(auditStore, auditPublisher, log)
	applicantSvc := applicant.NewService(profiles, documents, faceValidations, loader, log)
	paymentSvc := payment.NewService(payments, gateways, payment.SandboxChargers(), loader, m, log)
	transitionSvc := transition.NewService(
		admins, profiles, payments, documents, cards, gateways,
		auditSvc, loader, m, log,
	)

	router := httptransport.NewRouter(log, m,
		onboardingHandler.New(loader, applicantSvc, log, m, jwtService),
		paymentHandler.New(paymentSvc, log, m, jwtService),
		transitionHandler.New(transitionSvc, log, m, jwtService),
		auditHandler.New(auditSvc, log, jwtService),
	)

	srv := httpserver.New(cfg.Addr, router)

	go func() {
		log.Info("starting carteirinha server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err.Error())
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err.Error())
		os.Exit(1)
	}
}
