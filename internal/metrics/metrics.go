package metrics

import (
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	// Pass metrics
	PassesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screentime_passes_total",
			Help: "Total tracking passes run, by outcome",
		},
		[]string{"outcome"},
	)

	PassDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "screentime_pass_duration_seconds",
			Help:    "Tracking pass duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)

	LastPassTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "screentime_last_pass_timestamp_seconds",
			Help: "Unix time of the last successful tracking pass",
		},
	)

	// Report metrics
	ReportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screentime_reports_total",
			Help: "Total daily reports produced, by computation method",
		},
		[]string{"method"},
	)

	ReportFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screentime_report_failures_total",
			Help: "Total passes that produced no report",
		},
		[]string{"reason"},
	)

	AppMinutes = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "screentime_app_minutes",
			Help: "Minutes spent in each tracked app today",
		},
		[]string{"app"},
	)

	// Reconciliation metrics
	DecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screentime_decisions_total",
			Help: "Reconciliation decisions taken, by kind",
		},
		[]string{"decision"},
	)

	// Delivery metrics
	StoreErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screentime_store_errors_total",
			Help: "Report store operation errors",
		},
		[]string{"operation"},
	)

	PublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "screentime_publish_errors_total",
			Help: "Report publish errors",
		},
	)
)

func init() {
	prometheus.MustRegister(
		PassesTotal,
		PassDuration,
		LastPassTimestamp,
		ReportsTotal,
		ReportFailuresTotal,
		AppMinutes,
		DecisionsTotal,
		StoreErrorsTotal,
		PublishErrorsTotal,
	)
}

// Server is the metrics HTTP server
type Server struct {
	server   *http.Server
	logger   zerolog.Logger
	listener net.Listener // set when systemd passes a socket
}

// NewServer creates a new metrics server
func NewServer(addr string, logger zerolog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return &Server{
		server: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
		logger: logger.With().Str("component", "metrics").Logger(),
	}
}

// SetListener makes the server use ln instead of binding Addr itself.
func (s *Server) SetListener(ln net.Listener) {
	s.listener = ln
}

// Start serves metrics in the background.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("Starting metrics server")
	go func() {
		var err error
		if s.listener != nil {
			s.logger.Debug().Msg("Serving metrics on inherited listener")
			err = s.server.Serve(s.listener)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Metrics server error")
		}
	}()
	return nil
}

// Stop closes the metrics server.
func (s *Server) Stop() error {
	s.logger.Info().Msg("Stopping metrics server")
	return s.server.Close()
}
