package httpserver

import (
	"net/http"

	"examsite/internal/platform/config"
)

// New builds the API server from the server section of the configuration.
func New(cfg config.Server, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		// Write timeout leaves room for the request timeout middleware to answer first.
		WriteTimeout: cfg.RequestTimeout + cfg.ReadHeaderTimeout,
		IdleTimeout:  2 * cfg.RequestTimeout,
	}
}
