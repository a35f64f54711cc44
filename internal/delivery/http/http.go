package http

import (
	"net/http"

	"autotrader/internal/dto"
	"autotrader/internal/service"
	"autotrader/pkg/logger"

	goValidator "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type HttpAPIHandler struct {
	echo      *echo.Echo
	validator *goValidator.Validate
	service   *service.Service
	log       *logger.Logger
}

func NewHttpAPIHandler(e *echo.Echo, validator *goValidator.Validate, svc *service.Service, log *logger.Logger) *HttpAPIHandler {
	return &HttpAPIHandler{
		echo:      e,
		validator: validator,
		service:   svc,
		log:       log,
	}
}

func (h *HttpAPIHandler) SetupRoutes() {
	h.echo.GET("/health", h.Health)

	base := h.echo.Group("/api")
	h.SetupStrategies(base)
	h.SetupPaperTrading(base)
}

func (h *HttpAPIHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, dto.BaseResponse{
		Status:  http.StatusOK,
		Message: "ok",
	})
}

func respond(c echo.Context, status int, message string, data interface{}) error {
	return c.JSON(status, dto.BaseResponse{
		Status:  status,
		Message: message,
		Data:    data,
	})
}

func respondError(c echo.Context, status int, err error) error {
	return c.JSON(status, dto.BaseResponse{
		Status:  status,
		Message: err.Error(),
	})
}
