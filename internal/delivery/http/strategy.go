package http

import (
	"context"
	"net/http"
	"strconv"

	"autotrader/internal/dto"
	"autotrader/internal/model"

	"gorm.io/datatypes"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupStrategies(base *echo.Group) {
	v1 := base.Group("/v1/strategies")
	{
		v1.POST("/definitions", h.CreateDefinition)
		v1.POST("", h.CreateStrategy)
		v1.GET("/:id", h.GetStrategy)
		v1.GET("/:id/signals", h.ListSignals)
		v1.POST("/:id/start", h.StartStrategy)
		v1.POST("/:id/pause", h.PauseStrategy)
		v1.POST("/:id/stop", h.StopStrategy)
	}
}

func (h *HttpAPIHandler) CreateDefinition(c echo.Context) error {
	var req dto.CreateDefinitionRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return respondError(c, http.StatusBadRequest, err)
	}

	def, err := h.service.SchedulerService.CreateDefinition(c.Request().Context(), req.Name, req.Kind, req.Parameters)
	if err != nil {
		return respondError(c, http.StatusBadRequest, err)
	}
	return respond(c, http.StatusCreated, "Strategy definition created", def)
}

func (h *HttpAPIHandler) CreateStrategy(c echo.Context) error {
	var req dto.CreateStrategyRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return respondError(c, http.StatusBadRequest, err)
	}

	strategy := &model.LiveStrategy{
		UserID:          req.UserID,
		DefinitionID:    req.DefinitionID,
		Symbols:         datatypes.JSONSlice[string](req.Symbols),
		CheckInterval:   req.CheckInterval,
		AutoExecute:     req.AutoExecute,
		MaxPositionSize: req.MaxPositionSize,
		MaxPositions:    req.MaxPositions,
		DailyLossLimit:  req.DailyLossLimit,
		PositionSizePct: req.PositionSizePct,
	}
	if err := h.service.SchedulerService.CreateStrategy(c.Request().Context(), strategy); err != nil {
		return respondError(c, http.StatusBadRequest, err)
	}
	return respond(c, http.StatusCreated, "Strategy created", strategy)
}

func (h *HttpAPIHandler) GetStrategy(c echo.Context) error {
	id, err := strategyID(c)
	if err != nil {
		return respondError(c, http.StatusBadRequest, err)
	}

	strategy, err := h.service.SchedulerService.GetStrategy(c.Request().Context(), id)
	if err != nil {
		return respondError(c, http.StatusInternalServerError, err)
	}
	if strategy == nil {
		return respond(c, http.StatusNotFound, "Strategy not found", nil)
	}
	return respond(c, http.StatusOK, "OK", strategy)
}

func (h *HttpAPIHandler) ListSignals(c echo.Context) error {
	id, err := strategyID(c)
	if err != nil {
		return respondError(c, http.StatusBadRequest, err)
	}

	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	signals, err := h.service.SchedulerService.ListSignals(c.Request().Context(), id, limit)
	if err != nil {
		return respondError(c, http.StatusInternalServerError, err)
	}
	return respond(c, http.StatusOK, "OK", signals)
}

func (h *HttpAPIHandler) StartStrategy(c echo.Context) error {
	return h.lifecycle(c, h.service.SchedulerService.StartStrategy, "Strategy started")
}

func (h *HttpAPIHandler) PauseStrategy(c echo.Context) error {
	return h.lifecycle(c, h.service.SchedulerService.PauseStrategy, "Strategy paused")
}

func (h *HttpAPIHandler) StopStrategy(c echo.Context) error {
	return h.lifecycle(c, h.service.SchedulerService.StopStrategy, "Strategy stopped")
}

func (h *HttpAPIHandler) lifecycle(c echo.Context, op func(ctx context.Context, id uint) error, message string) error {
	id, err := strategyID(c)
	if err != nil {
		return respondError(c, http.StatusBadRequest, err)
	}
	if err := op(c.Request().Context(), id); err != nil {
		return respondError(c, http.StatusConflict, err)
	}
	return respond(c, http.StatusOK, message, nil)
}

func strategyID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
