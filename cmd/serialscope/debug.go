package main

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/banshee-data/serialscope/internal/monitoring"
)

// serveDebug starts the optional debug listener with the given route
// attachers and, when metrics is non-nil, a Prometheus endpoint at
// /metrics. The returned function shuts the server down.
func (a *app) serveDebug(addr string, metrics http.Handler, attach ...func(*http.ServeMux)) func() {
	mux := http.NewServeMux()
	for _, fn := range attach {
		fn(mux)
	}
	if metrics != nil {
		mux.Handle("/metrics", metrics)
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		monitoring.Logf("debug server: %v", err)
		return func() {}
	}
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			monitoring.Logf("debug server: %v", err)
		}
	}()
	monitoring.Logf("debug routes on http://%s/debug/", ln.Addr())
	if a.onDebugListen != nil {
		a.onDebugListen(ln.Addr().String())
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}
