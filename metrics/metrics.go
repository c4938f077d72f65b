// Package metrics exposes prometheus collectors mirroring the service
// counters, plus a small sidecar server for scraping them.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var (
	ActiveClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wscore_active_clients",
			Help: "Number of currently connected websocket clients",
		},
	)

	RejectedRequests = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wscore_rejected_requests_total",
			Help: "Total number of requests that matched no route",
		},
	)

	BroadcastsPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wscore_broadcasts_published_total",
			Help: "Total number of messages fanned out by the pub/sub router",
		},
	)

	SessionsOverflowed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wscore_sessions_overflowed_total",
			Help: "Total number of sessions torn down because their mailbox filled up",
		},
	)
)

// RecordClientConnected bumps the active-client gauge.
func RecordClientConnected() { ActiveClients.Inc() }

// RecordClientClosed drops the active-client gauge.
func RecordClientClosed() { ActiveClients.Dec() }

// RecordRejection counts one unmapped-route rejection.
func RecordRejection() { RejectedRequests.Inc() }

// RecordBroadcast counts one fanned-out publication.
func RecordBroadcast() { BroadcastsPublished.Inc() }

// RecordOverflow counts one mailbox-overflow teardown.
func RecordOverflow() { SessionsOverflowed.Inc() }

var shutdownTimeout = 5 * time.Second

// Serve runs a /metrics endpoint on addr until ctx is cancelled. It returns
// immediately; failures are logged, not fatal.
func Serve(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && err != http.ErrServerClosed {
			log.Warn().Err(err).Msg("Failed to shut down metrics server cleanly")
		}
	}()

	go func() {
		log.Info().Str("addr", addr).Msg("Metrics endpoint listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn().Err(err).Msg("Metrics server stopped unexpectedly")
		}
	}()
}
