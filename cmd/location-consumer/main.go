// README: Kafka consumer; replays captain location events into the Redis geo index.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/kafka-go"

	"campusride/internal/config"
	"campusride/internal/infra"
	"campusride/internal/ingest"
	"campusride/internal/logging"
	"campusride/internal/modules/captain"
	"campusride/internal/modules/matching"
)

var (
	eventsConsumed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "campusride", Name: "consumer_events_total",
		Help: "Total location events consumed",
	})
	eventsInvalid = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "campusride", Name: "consumer_events_invalid_total",
		Help: "Total undecodable location events",
	})
	indexErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "campusride", Name: "consumer_index_errors_total",
		Help: "Total geo index update failures",
	})
)

func main() {
	var metricsAddr string
	flag.StringVar(&metricsAddr, "metrics-addr", ":2112", "address to serve prometheus metrics on")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		os.Exit(1)
	}
	logger := logging.NewLogger(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient := infra.NewRedis(cfg.Redis.Addr)
	geo := matching.NewStore(redisClient)

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			if err := redisClient.Ping(r.Context()).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
		})
		logger.Info("metrics listening", "addr", metricsAddr)
		if err := http.ListenAndServe(metricsAddr, mux); err != nil {
			logger.Warn("metrics server stopped", "err", err)
		}
	}()

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Kafka.Brokers,
		Topic:    cfg.Kafka.LocationTopic,
		GroupID:  "campusride-location-consumer",
		MinBytes: 10e3,
		MaxBytes: 10e6,
	})
	defer func() {
		_ = reader.Close()
		_ = redisClient.Close()
	}()

	logger.Info("location consumer started", "topic", cfg.Kafka.LocationTopic, "brokers", cfg.Kafka.Brokers)

	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		m, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("consumer shutting down")
				return
			}
			logger.Warn("kafka read failed", "err", err, "backoff", backoff)
			time.Sleep(backoff)
			if backoff *= 2; backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}
		backoff = time.Second
		eventsConsumed.Inc()

		var e ingest.LocationEvent
		if err := json.Unmarshal(m.Value, &e); err != nil {
			eventsInvalid.Inc()
			logger.Warn("undecodable location event", "err", err)
			continue
		}
		if err := applyWithRetry(ctx, geo, e, 3, 200*time.Millisecond); err != nil {
			indexErrors.Inc()
			logger.Error("geo index update failed", "captain", e.CaptainID, "err", err)
		}
	}
}

// applyWithRetry writes one event into the geo index. An offline event
// removes the captain; anything else refreshes the position.
func applyWithRetry(ctx context.Context, geo *matching.Store, e ingest.LocationEvent, attempts int, delay time.Duration) error {
	var err error
	for i := 0; i < attempts; i++ {
		if e.Status == string(captain.StatusOffline) {
			err = geo.Remove(ctx, e.CaptainID)
		} else {
			err = geo.Add(ctx, e.CaptainID, e.Position)
		}
		if err == nil {
			return nil
		}
		time.Sleep(delay)
		delay *= 2
	}
	return err
}
