package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/mkrupp/homecase-postboard/internal/infra/logging"
)

// HTTPTransportConfig contains configuration parameters for HTTP servers.
type HTTPTransportConfig struct {
	// ServerAddr is the network address to listen on
	ServerAddr string `env:"SERVER_ADDR" default:":8080"`
	// ReadHeaderTimeout is the timeout for reading request headers
	ReadHeaderTimeout time.Duration `env:"READ_HEADER_TIMEOUT" default:"5s"`

	ReadTimeout     time.Duration `env:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" default:"15s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" default:"10s"`

	CORS CORSConfig `envPrefix:"CORS_"`
}

// HTTPTransport defines the interface for HTTP handlers that can serve requests.
type HTTPTransport interface {
	http.Handler
}

// Wrap applies the standard middleware stack to handler: panic recovery,
// request logging, CORS and tracing, outermost last.
func Wrap(handler HTTPTransport, cfg HTTPTransportConfig, log logging.Logger) http.Handler {
	handler = RescueingMiddleware(handler, log)
	handler = LoggingMiddleware(handler, log)
	handler = CORSMiddleware(handler, cfg.CORS)
	handler = RequestIDMiddleware(handler)

	return handler
}

// ListenAndServe starts an HTTP server with the given handler and configuration.
// It sets up standard middleware for logging, tracing, CORS and panic recovery.
// The server shuts down gracefully once ctx is cancelled.
// Returns an error if the server fails to start or encounters an error while running.
func ListenAndServe(ctx context.Context, handler HTTPTransport, cfg HTTPTransportConfig) (err error) {
	log := logging.GetLogger("infra.transport.http")

	//nolint:exhaustruct
	server := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           Wrap(handler, cfg, log),
		ErrorLog:          logging.GetLogLogger(log, logging.LevelError),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}
	defer server.Close()

	sock, err := net.Listen("tcp", cfg.ServerAddr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	defer sock.Close()

	log.InfoContext(ctx, "listening", "addr", sock.Addr().String())

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.ErrorContext(shutdownCtx, "shutdown failed", "error", err)
		}
	}()

	if err := server.Serve(sock); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}

	return nil
}
