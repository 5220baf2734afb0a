package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/matheuscscp/ziteboard-sessions/internal/boards"
	"github.com/matheuscscp/ziteboard-sessions/internal/config"
	"github.com/matheuscscp/ziteboard-sessions/internal/logging"
	"github.com/matheuscscp/ziteboard-sessions/internal/server"
	"github.com/matheuscscp/ziteboard-sessions/internal/store/factory"
	"github.com/matheuscscp/ziteboard-sessions/internal/ziteboard"
)

const shutdownTimeout = 30 * time.Second

func main() {
	createBoard := flag.Bool("create-board", false,
		"Create a single Ziteboard board, log its ID and exit.")
	flag.Parse()

	if err := logging.LoadLevel(); err != nil {
		logrus.WithError(err).Warn("failed to load log level, using info")
	}

	conf, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := ziteboard.New(&conf.Ziteboard, prometheus.DefaultRegisterer)

	if *createBoard {
		boardID, _, err := client.CreateBoard(ctx)
		if err != nil {
			logrus.WithError(err).Fatal("failed to create board")
		}
		logrus.WithField("boardID", boardID).Info("board created")
		return
	}

	st, err := factory.New(ctx, &conf.Store)
	if err != nil {
		logrus.WithError(err).Fatal("failed to open store")
	}
	defer func() {
		if err := st.Close(); err != nil {
			logrus.WithError(err).Error("failed to close store")
		}
	}()

	m := boards.NewManager(client, st, conf, time.Now, prometheus.DefaultRegisterer)
	s := server.New(conf, m, st, prometheus.DefaultRegisterer, prometheus.DefaultGatherer)

	serverErr := make(chan error, 1)
	go func() {
		logrus.WithField("addr", s.Addr).Info("starting server")
		serverErr <- s.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Error("server failed")
		}
		return
	case <-ctx.Done():
	}

	logrus.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("failed to shut down server")
	}
}
