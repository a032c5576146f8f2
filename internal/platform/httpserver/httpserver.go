package httpserver

import (
	"net/http"
	"time"
)

// New builds an HTTP server with timeouts sized for the onboarding API.
// Webhook and admin handlers finish fast; the write timeout only has to
// outlive the router's own request timeout.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
