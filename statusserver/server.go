// Copyright 2024, dawgz-go.

package statusserver

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	log "github.com/sirupsen/logrus"

	"github.com/dawgz-go/dawgz/config"
	"github.com/dawgz-go/dawgz/sink"
	"github.com/dawgz-go/dawgz/util"
)

const apiRoot = "/api/v1/"

// Server serves the current state of every run known to a sink.MemorySink.
// It never mutates anything - the write path is entirely the engine and
// slurm packages pushing events through the sink.
type Server struct {
	store *sink.MemorySink
	echo  *echo.Echo
}

// New builds a Server backed by store, with routes registered but not yet
// listening.
func New(store *sink.MemorySink) *Server {
	s := &Server{store: store, echo: echo.New()}

	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.Logger())

	s.echo.GET("/healthz", s.healthzHandler)
	s.echo.GET(apiRoot+"runs/:runId", s.runStatusHandler)

	return s
}

// Run listens until the process is asked to stop or ctx is done. If
// cfg.TLS.CertFile and KeyFile are both set, it serves TLS.
func (s *Server) Run(ctx context.Context, cfg config.Server) error {
	errChan := make(chan error, 1)
	go func() {
		if cfg.TLS.CertFile != "" && cfg.TLS.KeyFile != "" {
			errChan <- s.startTLS(cfg)
		} else {
			errChan <- s.echo.Start(cfg.ListenAddress)
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("statusserver: shutting down")
		return s.echo.Shutdown(context.Background())
	case err := <-errChan:
		return err
	}
}

func (s *Server) startTLS(cfg config.Server) error {
	if cfg.TLS.CAFile == "" {
		return s.echo.StartTLS(cfg.ListenAddress, cfg.TLS.CertFile, cfg.TLS.KeyFile)
	}

	tlsConfig, err := util.NewTLSConfig(cfg.TLS.CAFile, cfg.TLS.CertFile, cfg.TLS.KeyFile)
	if err != nil {
		return err
	}
	s.echo.TLSServer.TLSConfig = tlsConfig
	return s.echo.StartTLS(cfg.ListenAddress, cfg.TLS.CertFile, cfg.TLS.KeyFile)
}

// ServeHTTP lets Server be used directly with httptest, without binding a
// real port.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

func (s *Server) healthzHandler(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// GET <apiRoot>runs/{runId}
func (s *Server) runStatusHandler(c echo.Context) error {
	runID := c.Param("runId")

	snap, ok := s.store.Workflow(runID)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "run not found")
	}
	return c.JSON(http.StatusOK, snap)
}
