// Package server implements the webhook HTTP front door: signature
// verification, event dispatch to internal/tools, scoped per-repo settings
// resolution, and the self-review checkbox / push-dedup / ignore-filter
// side logic that sits around dispatch. Grounded on orig/server/mod.rs and
// orig/server/webhook.rs.
package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jlucaso1/pr-agent-go/internal/config"
	"github.com/jlucaso1/pr-agent-go/pkg/logger"
)

var log = logger.New("server")

var webhookRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "pr_agent_webhook_requests_total",
	Help: "Total GitHub webhook requests received, labeled by outcome.",
}, []string{"outcome"})

// Server is the webhook HTTP front door: a health check at "/" and the
// signed webhook receiver at "/api/v1/github_webhooks", plus a Prometheus
// "/metrics" endpoint. Grounded on orig/server/mod.rs's build_router.
type Server struct {
	addr         string
	baseSettings *config.Settings
	baseOpts     config.LoadOptions
	httpServer   *http.Server
}

// New builds a Server bound to addr (e.g. ":3000"), using baseSettings as
// the ambient configuration for webhook signature verification and as the
// base layer every per-PR scoped settings snapshot is resolved from.
// baseOpts should carry whatever secrets/CLI-override layers the process
// was started with, so each webhook dispatch re-resolves the same secrets
// rather than losing them.
func New(baseSettings *config.Settings, baseOpts config.LoadOptions, addr string) *Server {
	return &Server{addr: addr, baseSettings: baseSettings, baseOpts: baseOpts}
}

func healthCheckHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func countingWebhookHandler(inner http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		inner.ServeHTTP(rec, r)
		outcome := "accepted"
		if rec.status >= http.StatusBadRequest {
			outcome = "rejected"
		}
		webhookRequestsTotal.WithLabelValues(outcome).Inc()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) mux(background context.Context) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /", healthCheckHandler)
	mux.Handle("POST /api/v1/github_webhooks",
		countingWebhookHandler(newWebhookHandler(background, s.baseSettings, s.baseOpts)))
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

// ListenAndServe starts the HTTP server and blocks until ctx is canceled
// (e.g. by SIGINT/SIGTERM), at which point it shuts down gracefully with a
// bounded drain timeout. Grounded on orig/server/mod.rs's start_server /
// shutdown_signal.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	s.httpServer = &http.Server{
		Addr:    s.addr,
		Handler: s.mux(context.Background()),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", s.addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Printf("shutdown signal received, draining in-flight requests")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-errCh
	}
}
