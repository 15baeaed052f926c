package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	logger "github.com/sirupsen/logrus"

	"lotengine/src/handler"
)

// Routes groups the handlers mounted by NewRouter.
type Routes struct {
	Positions http.HandlerFunc
	Decisions http.HandlerFunc
	ProRata   http.HandlerFunc
}

// DefaultRoutes wires every route to the production repositories.
func DefaultRoutes() Routes {
	return Routes{
		Positions: handler.DefaultPositionsHandler(),
		Decisions: handler.DefaultDecisionsHandler(),
		ProRata:   handler.ProRataHandler(),
	}
}

func NewRouter(routes Routes) http.Handler {
	r := chi.NewRouter()
	// === Global Middleware ===
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// Public routes
	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.WithError(err).Error(" \"/health error")
		}
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/positions/{userID}/{strategyID}/{symbol}", routes.Positions)
	r.Get("/decisions/{userID}/{strategyID}/{symbol}", routes.Decisions)
	r.Post("/allocations/pro-rata", routes.ProRata)

	return r
}

// StartServer serves h until ctx is cancelled, then shuts down gracefully.
func StartServer(ctx context.Context, config *Config, h http.Handler) error {
	addr := ":" + config.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.WithError(err).Error("Server crashed")
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Shutdown error")
		return err
	}
	return nil
}
