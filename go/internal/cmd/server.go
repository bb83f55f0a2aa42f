package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mcdev12/courtside/go/internal/draft/draft"
	"github.com/mcdev12/courtside/go/internal/metrics"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

func setupServer(cfg *Config, services *Services) *http.Server {
	mux := http.NewServeMux()

	// Setup CORS middleware
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AllowedHeaders: []string{"*"},
	})

	// Register draft service
	draftServicePath, draftServiceHandler := draft.NewServiceHandler(services.Draft)
	mux.Handle(draftServicePath, draftServiceHandler)

	mux.Handle("/metrics", metrics.Handler(services.Registry))
	setupHealthCheck(mux, services)

	// Setup HTTP/2 server
	return &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           h2c.NewHandler(c.Handler(mux), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func setupHealthCheck(mux *http.ServeMux, services *Services) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status, body := http.StatusOK, "OK"
		if err := services.DB.PingContext(ctx); err != nil {
			status, body = http.StatusServiceUnavailable, "database unavailable"
		} else if !services.Publisher.Conn().IsConnected() {
			// Draft operations still commit without NATS; failed events spool.
			body = "OK (broadcast degraded)"
		}

		w.WriteHeader(status)
		if _, err := w.Write([]byte(body)); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})
}
