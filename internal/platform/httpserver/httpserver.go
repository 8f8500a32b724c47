package httpserver

import (
	"net/http"
	"time"
)

// New builds the API server. Per-request deadlines are enforced by the
// router's timeout middleware; the header timeout here guards the phase
// before a request reaches the router.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
