package api

import (
	"github.com/datallboy/jarview/internal/api/controllers"
	"github.com/datallboy/jarview/internal/app"
	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
)

func RegisterRoutes(e *echo.Echo, app *app.Context) {

	// Middleware: Request Logger
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c *echo.Context, v middleware.RequestLoggerValues) error {
			app.Logger.Info("%s %s | %d | %s", v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	}))

	jarCtrl := &controllers.JarController{App: app}
	historyCtrl := &controllers.HistoryController{App: app}

	// jar:// listings and extraction
	e.GET(controllers.JarPrefix+"/*", jarCtrl.Handle)

	// Extracted members
	e.GET(controllers.FilesPrefix+"*", jarCtrl.HandleFile)

	e.GET("/api/history", historyCtrl.List)
	e.GET("/api/history/:id", historyCtrl.Get)
	e.GET("/healthz", historyCtrl.Health)
}
