// Package server levanta el http.Server con timeouts y apagado ordenado.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dropDatabas3/federation/internal/config"
	"github.com/dropDatabas3/federation/internal/observability/logger"
)

// New crea el http.Server con los timeouts de la configuración.
func New(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadTimeout:       config.Dur(cfg.Server.ReadTimeout, 15*time.Second),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      config.Dur(cfg.Server.WriteTimeout, 45*time.Second),
		IdleTimeout:       config.Dur(cfg.Server.IdleTimeout, 60*time.Second),
	}
}

// Run sirve hasta que ctx se cancele y luego drena las conexiones.
func Run(ctx context.Context, srv *http.Server, shutdownTimeout time.Duration) error {
	log := logger.From(ctx).With(logger.Layer("server"))

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", logger.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down http server")
	shCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shCtx); err != nil {
		return err
	}
	return <-errCh
}
