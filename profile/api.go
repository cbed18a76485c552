package profile

import (
	"context"
	"errors"
	"net/http"
	"time"

	"log/slog"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/m3rciful/schedbot/core/buildinfo"
	"github.com/m3rciful/schedbot/core/logger"
)

// Lister is the read side the HTTP API needs from the store.
type Lister interface {
	List(ctx context.Context, persona string) ([]Profile, error)
}

// API is the read-only projection of the profile store.
type API struct {
	echo    *echo.Echo
	lister  Lister
	persona string
	listen  string
}

// NewAPI builds the HTTP surface. persona selects whose profiles the
// user listing exposes.
func NewAPI(lister Lister, persona, listen string) *API {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())

	a := &API{echo: e, lister: lister, persona: persona, listen: listen}
	e.GET("/", a.handleRoot)
	e.GET("/api/users", a.handleUsers)
	return a
}

// Handler exposes the router for tests.
func (a *API) Handler() http.Handler { return a.echo }

// Run serves until ctx is done, then shuts down gracefully.
func (a *API) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.API.Info("listening",
			slog.String("event", "api.start"),
			slog.String("addr", a.listen),
		)
		errCh <- a.echo.Start(a.listen)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.echo.Shutdown(shutdownCtx); err != nil {
			return err
		}
		err := <-errCh
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (a *API) handleRoot(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildinfo.Version,
	})
}

func (a *API) handleUsers(c echo.Context) error {
	profiles, err := a.lister.List(c.Request().Context(), a.persona)
	if err != nil {
		logger.API.Error("list users failed",
			slog.String("event", "api.users_error"),
			slog.String("error", err.Error()),
		)
		return echo.NewHTTPError(http.StatusInternalServerError, "storage unavailable")
	}
	if profiles == nil {
		profiles = []Profile{}
	}
	return c.JSON(http.StatusOK, profiles)
}
