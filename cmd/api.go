package cmd

import (
	"context"
	"fmt"
	"time"

	"autotrader/internal/delivery/http"
	"autotrader/pkg/middleware"

	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

type HTTPServer struct {
	appDep  *AppDependency
	handler *http.HttpAPIHandler
}

func NewHTTPServer(appDep *AppDependency, handler *http.HttpAPIHandler) *HTTPServer {
	return &HTTPServer{
		appDep:  appDep,
		handler: handler,
	}
}

func (s *HTTPServer) Start() error {
	s.appDep.log.Info("Starting HTTP server", zap.Int("port", s.appDep.cfg.API.Port))

	s.appDep.echo.HideBanner = true
	s.appDep.echo.Use(echoMiddleware.Recover())
	s.appDep.echo.Use(middleware.NewRateLimiterMiddleware())
	s.handler.SetupRoutes()

	address := fmt.Sprintf(":%d", s.appDep.cfg.API.Port)
	return s.appDep.echo.Start(address)
}

func (s *HTTPServer) Stop(ctx context.Context) error {
	s.appDep.log.Info("Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.appDep.echo.Shutdown(shutdownCtx); err != nil {
		s.appDep.log.Error("Error while stopping HTTP server", zap.Error(err))
		return err
	}
	s.appDep.log.Info("HTTP server stopped")
	return nil
}
