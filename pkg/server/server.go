// Package server runs HTTP servers until a signal or context cancellation
// stops them.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const stopWaitTime = 5 * time.Second

type Server interface {
	Start() error
	Stop() error
}

type Config struct {
	Host         string        `env:"HOST"          envDefault:""`
	Port         string        `env:"PORT"          envDefault:"8080"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT"  envDefault:"15s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"60s"`
}

type httpServer struct {
	ctx     context.Context
	cancel  context.CancelFunc
	name    string
	address string
	server  *http.Server
	logger  *slog.Logger
}

var _ Server = (*httpServer)(nil)

func NewHTTPServer(ctx context.Context, cancel context.CancelFunc, name string, cfg Config, handler http.Handler, logger *slog.Logger) Server {
	address := net.JoinHostPort(cfg.Host, cfg.Port)

	return &httpServer{
		ctx:     ctx,
		cancel:  cancel,
		name:    name,
		address: address,
		server: &http.Server{
			Addr:              address,
			Handler:           handler,
			ReadHeaderTimeout: cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
		},
		logger: logger,
	}
}

func (s *httpServer) Start() error {
	errCh := make(chan error, 1)
	s.logger.Info(fmt.Sprintf("%s service HTTP server listening at %s", s.name, s.address))
	go func() {
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case <-s.ctx.Done():
		return s.Stop()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return err
	}
}

func (s *httpServer) Stop() error {
	defer s.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), stopWaitTime)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Error(fmt.Sprintf("%s service HTTP server error occurred during shutdown at %s: %s", s.name, s.address, err))

		return fmt.Errorf("%s service HTTP server error occurred during shutdown at %s: %w", s.name, s.address, err)
	}
	s.logger.Info(fmt.Sprintf("%s HTTP service shutdown of http at %s", s.name, s.address))

	return nil
}

// StopSignalHandler stops every server on SIGINT, SIGTERM or when ctx ends.
func StopSignalHandler(ctx context.Context, cancel context.CancelFunc, logger *slog.Logger, svcName string, servers ...Server) error {
	c := make(chan os.Signal, 2)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(c)

	select {
	case sig := <-c:
		defer cancel()
		errs := make([]error, 0, len(servers))
		for _, s := range servers {
			errs = append(errs, s.Stop())
		}
		logger.Info(fmt.Sprintf("%s service shutdown by signal: %s", svcName, sig))

		return errors.Join(errs...)
	case <-ctx.Done():
		return nil
	}
}
