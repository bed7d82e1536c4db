// Package httpserver builds the API server with timeouts sized for this
// service's traffic.
package httpserver

import (
	"net/http"
	"time"
)

// New builds an HTTP server for the paychain API. The write timeout leaves
// room for a manual due-cycle run over a large backlog; all other endpoints
// finish well inside it.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       90 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
}
