// README: Entry point; loads config, wires services, starts HTTP server and the channel hub.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"campusride/internal/auth"
	"campusride/internal/config"
	httptransport "campusride/internal/http"
	"campusride/internal/infra"
	"campusride/internal/ingest"
	"campusride/internal/logging"
	"campusride/internal/maps"
	"campusride/internal/modules/captain"
	"campusride/internal/modules/dispatch"
	"campusride/internal/modules/matching"
	"campusride/internal/modules/presence"
	"campusride/internal/modules/pricing"
	"campusride/internal/modules/ride"
	"campusride/internal/payments"
	"campusride/internal/types"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger := logging.NewLogger(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Maps.APIKey == "" {
		log.Fatal("CAMPUSRIDE_MAPS_API_KEY is required")
	}
	routes, err := maps.NewRouteService(cfg.Maps.APIKey)
	if err != nil {
		log.Fatalf("maps init: %v", err)
	}
	places, err := maps.NewPlacesService(cfg.Maps.APIKey)
	if err != nil {
		log.Fatalf("maps init: %v", err)
	}

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatal(err)
	}
	defer dbPool.Close()

	redisClient := infra.NewRedis(cfg.Redis.Addr)
	defer redisClient.Close()

	locationFeed := ingest.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.LocationTopic)
	defer locationFeed.Close()

	geoStore := matching.NewStore(redisClient)

	captainStore := captain.NewPostgresStore(dbPool)
	captainSvc := captain.NewService(captainStore, geoStore, locationFeed, logger)

	matchingSvc := matching.NewService(geoStore, captainStore, cfg.Matching.RadiusKm)

	hub := presence.NewHub(logger)
	go hub.Run(ctx)

	dispatchSvc := dispatch.NewService(hub, matchingSvc, logger)

	pricingSvc := pricing.NewService()
	rideStore := ride.NewPostgresStore(dbPool)
	rideSvc := ride.NewService(rideStore, routes, pricingSvc, dispatchSvc, logger)
	if cfg.Stripe.APIKey != "" {
		rideSvc.SetPaymentGateway(payments.NewClient(cfg.Stripe.APIKey))
	}

	verifier := auth.NewVerifier(cfg.Auth.JWTSecret)
	presenceSvc := presence.NewService(hub, verifier, captainSvc, logger)
	// A captain coming online triggers a fresh open-request snapshot on
	// the captains group channel.
	presenceSvc.SetCaptainOnlineHook(func(ctx context.Context, _ types.ID) {
		open, err := rideSvc.ListAvailable(ctx)
		if err != nil {
			logger.Warn("open ride snapshot failed", "err", err)
			return
		}
		dispatchSvc.BroadcastCaptainsOnline(open)
	})

	handler := httptransport.NewRouter(httptransport.RouterDeps{
		Rides:    rideSvc,
		Captains: captainSvc,
		Presence: presenceSvc,
		Places:   places,
		Verifier: verifier,
		Log:      logger,
	})

	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: handler}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("campusride api listening", "addr", cfg.HTTP.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}
