package httpserver

import (
	"net/http"
	"time"
)

// New builds an HTTP server with sane defaults. Position ingestion is a
// high-frequency endpoint, so timeouts stay short; handlers that call the
// restrictions service carry their own context deadlines.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
}
