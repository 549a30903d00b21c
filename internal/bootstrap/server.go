package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Arseniy92/charterpay/api"
	"github.com/Arseniy92/charterpay/config"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handlers struct {
	Flights  *api.FlightHandler
	Bookings *api.BookingHandler
	Admin    *api.AdminHandler
	Webhooks *api.WebhookHandler
}

// Run assembles the HTTP router and blocks until the context is canceled or
// the server fails.
func Run(ctx context.Context, cfg *config.Config, log *zap.Logger, h Handlers) error {
	router := newRouter(cfg, log, h)

	httpSrv := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}

func newRouter(cfg *config.Config, log *zap.Logger, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), api.RequestLogger(log))

	v1 := router.Group("/api/v1")

	// Webhooks authenticate via signature, not via session identity.
	h.Webhooks.Register(v1.Group("/webhooks"))

	flightsPublic := v1.Group("/flights")

	authed := v1.Group("")
	authed.Use(api.Auth(cfg.Auth.JWTSecret))

	h.Bookings.Register(authed.Group("/bookings"))

	admin := authed.Group("")
	admin.Use(api.RequireAdmin())
	flightsAdmin := admin.Group("/flights")

	h.Flights.Register(flightsPublic, flightsAdmin)
	h.Admin.Register(admin.Group("/admin"))

	return router
}
