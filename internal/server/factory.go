package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/matheuscscp/ziteboard-sessions/internal/boards"
	"github.com/matheuscscp/ziteboard-sessions/internal/config"
	"github.com/matheuscscp/ziteboard-sessions/internal/store"
)

func New(conf *config.Config, m *boards.Manager, seeder store.Seeder,
	promRegisterer prometheus.Registerer, promGatherer prometheus.Gatherer) *http.Server {

	api := newAPI(m, seeder)
	return newServer(conf, api, promRegisterer, promGatherer)
}
