package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"online-quiz/internal/app"
	"online-quiz/internal/metrics"
)

type RouterConfig struct {
	// TrustProxy derives the client origin from X-Forwarded-For / X-Real-IP.
	TrustProxy bool
	Metrics    *metrics.Metrics
	Gatherer   prometheus.Gatherer
}

// NewRouter wires health, metrics, the websocket channel and the JSON API.
func NewRouter(service *app.QuizService, logger logrus.FieldLogger, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	if cfg.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(RequestID)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}
	r.Get("/ws", NewWSHandler(service, logger).ServeWS)
	NewHandler(service, logger).Routes(r)
	return r
}
