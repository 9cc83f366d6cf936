package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

var (
	NotificationsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bizgram",
			Subsystem: "notifications",
			Name:      "created_total",
			Help:      "Notifications stored, by type.",
		},
		[]string{"type"},
	)

	NotificationsSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bizgram",
			Subsystem: "notifications",
			Name:      "skipped_total",
			Help:      "Notifications not stored, by reason.",
		},
		[]string{"reason"},
	)

	BellRequests = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "bizgram",
			Subsystem: "notifications",
			Name:      "bell_requests_total",
			Help:      "Bell listings served.",
		},
	)

	StreamSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "bizgram",
			Subsystem: "notifications",
			Name:      "stream_subscribers",
			Help:      "Open SSE and websocket notification streams.",
		},
	)

	MessagesSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "bizgram",
			Subsystem: "dm",
			Name:      "messages_sent_total",
			Help:      "Direct messages stored.",
		},
	)

	PDFRenderDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "bizgram",
			Subsystem: "callsheet",
			Name:      "pdf_render_seconds",
			Help:      "Time spent rendering call sheet PDFs.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
	)

	RescoreRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bizgram",
			Subsystem: "opinions",
			Name:      "rescore_runs_total",
			Help:      "Opinion rescore job runs, by outcome.",
		},
		[]string{"success"},
	)
)

func init() {
	prometheus.MustRegister(
		NotificationsCreated,
		NotificationsSkipped,
		BellRequests,
		StreamSubscribers,
		MessagesSent,
		PDFRenderDuration,
		RescoreRuns,
	)
}

// Middleware records request metrics for the API echo instance.
func Middleware() echo.MiddlewareFunc {
	return echoprometheus.NewMiddleware("bizgram")
}

// Serve exposes /metrics on its own echo instance until ctx is cancelled.
func Serve(ctx context.Context, port string, log *zap.Logger) {
	m := echo.New()
	m.HideBanner = true
	m.HidePort = true
	m.GET("/metrics", echoprometheus.NewHandler())

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = m.Shutdown(shutdownCtx)
	}()

	log.Info("Metrics server listening", zap.String("port", port))
	if err := m.Start(":" + port); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("metrics server stopped", zap.Error(err))
	}
}
