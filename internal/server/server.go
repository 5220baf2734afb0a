package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/matheuscscp/ziteboard-sessions/internal/config"
	"github.com/matheuscscp/ziteboard-sessions/internal/constants"
	"github.com/matheuscscp/ziteboard-sessions/internal/logging"
)

func newServer(conf *config.Config, api http.Handler,
	promRegisterer prometheus.Registerer, promGatherer prometheus.Gatherer) *http.Server {

	promHandler := promhttp.HandlerFor(promGatherer, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
	requestDurationSecs := prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Name: "http_request_duration_seconds",
		Help: "Duration of HTTP requests in seconds",
	}, []string{"method", "pattern", "status"})
	promRegisterer.MustRegister(requestDurationSecs)

	return &http.Server{
		Addr:              conf.Server.Addr,
		ReadHeaderTimeout: 10 * time.Second,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t := time.Now()
			sr := &statusRecorder{ResponseWriter: w}
			defer func() {
				status := fmt.Sprintf("%d", sr.getStatusCode())
				requestDurationSecs.
					WithLabelValues(r.Method, metricsPattern(r), status).
					Observe(time.Since(t).Seconds())
			}()

			requestID := r.Header.Get(constants.HeaderRequestID)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w = sr
			w.Header().Set(constants.HeaderRequestID, requestID)
			r = logging.IntoRequest(r, logrus.WithField("http", logrus.Fields{
				"method":    r.Method,
				"path":      r.URL.Path,
				"requestID": requestID,
			}))

			switch r.URL.Path {
			case "/readyz", "/healthz":
				w.WriteHeader(http.StatusOK)
			case "/metrics":
				promHandler.ServeHTTP(w, r)
			default:
				api.ServeHTTP(w, r)
			}
		}),
	}
}

// metricsPattern avoids one time series per lesson by labeling requests with
// the route instead of the raw path.
func metricsPattern(r *http.Request) string {
	switch r.URL.Path {
	case "/readyz", "/healthz", "/metrics":
		return r.URL.Path
	}
	if r.Pattern != "" {
		return r.Pattern
	}
	return "unmatched"
}
