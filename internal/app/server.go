package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/wb-go/wbf/zlog"
)

const readHeaderTimeout = 10 * time.Second

// serveHTTP обслуживает ln до отмены ctx, затем закрывает прием и ждет активные запросы не дольше shutdownTimeout.
func serveHTTP(ctx context.Context, srv *http.Server, ln net.Listener) error {
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Serve(ln)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		zlog.Logger.Info().Msg("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	if err := <-serverErr; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	zlog.Logger.Info().Msg("HTTP server stopped")
	return nil
}
