package bootstrap

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	app "github.com/mohammadpnp/profile-import/internal/application/profile"
	httpecho "github.com/mohammadpnp/profile-import/internal/interfaces/http/echo"
	"go.uber.org/zap"
)

type ServerDeps struct {
	Sessions    app.ImportSessionManager
	Progress    httpecho.ProgressReader
	Profiles    app.GetProfileByID
	Exporter    httpecho.ProfileExporter
	MaxUploadMB int
	Logger      *zap.Logger
}

func NewHTTPServer(deps ServerDeps) *echo.Echo {
	server := echo.New()
	server.HideBanner = true
	server.HidePort = true

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := deps.MaxUploadMB
	if limit <= 0 {
		limit = 10
	}

	server.Use(middleware.Recover())
	server.Use(middleware.RequestID())
	server.Use(requestLogger(logger))
	server.Use(middleware.BodyLimit(fmt.Sprintf("%dM", limit)))

	importHandler := httpecho.NewImportHandler(deps.Sessions, deps.Progress)
	profileHandler := httpecho.NewProfileHandler(deps.Profiles, deps.Exporter)

	httpecho.RegisterRoutes(server, importHandler, profileHandler)

	server.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	return server
}
