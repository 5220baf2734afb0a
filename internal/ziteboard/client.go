package ziteboard

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/matheuscscp/ziteboard-sessions/internal/config"
	"github.com/matheuscscp/ziteboard-sessions/internal/constants"
)

const (
	resultSuccess        = "success"
	resultVendorError    = "vendor_error"
	resultTransportError = "transport_error"
)

type Client struct {
	baseURL     string
	apiKey      string
	tokenExpiry string
	httpClient  *http.Client

	requests            *prometheus.CounterVec
	requestDurationSecs *prometheus.SummaryVec
}

func New(conf *config.ZiteboardConfig, promRegisterer prometheus.Registerer) *Client {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ziteboard_requests_total",
		Help: "Number of requests sent to the Ziteboard API by result",
	}, []string{"path", "result"})
	requestDurationSecs := prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Name: "ziteboard_request_duration_seconds",
		Help: "Duration of requests sent to the Ziteboard API in seconds",
	}, []string{"path"})
	promRegisterer.MustRegister(requests, requestDurationSecs)

	return &Client{
		baseURL:     conf.BaseURL(),
		apiKey:      conf.APIKey,
		tokenExpiry: strconv.Itoa(conf.TokenExpiryInSeconds),
		httpClient: &http.Client{
			Timeout: constants.RequestTimeoutSeconds * time.Second,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout: constants.ConnectTimeoutSeconds * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: constants.ConnectTimeoutSeconds * time.Second,
				MaxIdleConns:        10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		requests:            requests,
		requestDurationSecs: requestDurationSecs,
	}
}
