package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"autotrader/internal/dto"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupPaperTrading(base *echo.Group) {
	v1 := base.Group("/v1/paper")
	{
		v1.GET("/accounts/:user_id", h.GetPaperAccount)
		v1.GET("/accounts/:user_id/trades", h.GetPaperTrades)
		v1.POST("/orders", h.PlacePaperOrder)
		v1.POST("/accounts/reset", h.ResetPaperAccount)
	}
}

func (h *HttpAPIHandler) GetPaperAccount(c echo.Context) error {
	userID, err := userIDParam(c)
	if err != nil {
		return respondError(c, http.StatusBadRequest, err)
	}

	snapshot, err := h.service.PaperTradingService.GetAccount(c.Request().Context(), userID)
	if err != nil {
		return respondError(c, http.StatusInternalServerError, err)
	}
	return respond(c, http.StatusOK, "OK", snapshot)
}

func (h *HttpAPIHandler) GetPaperTrades(c echo.Context) error {
	userID, err := userIDParam(c)
	if err != nil {
		return respondError(c, http.StatusBadRequest, err)
	}

	limit := 100
	if raw := c.QueryParam("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	trades, err := h.service.PaperTradingService.GetTrades(c.Request().Context(), userID, limit)
	if err != nil {
		return respondError(c, http.StatusInternalServerError, err)
	}
	return respond(c, http.StatusOK, "OK", trades)
}

// PlacePaperOrder fills a manual order at the latest trade price, or at the
// limit price when one is given.
func (h *HttpAPIHandler) PlacePaperOrder(c echo.Context) error {
	var req dto.PlaceOrderRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return respondError(c, http.StatusBadRequest, err)
	}

	ctx := c.Request().Context()
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))

	var price float64
	if req.LimitPrice != nil {
		price = *req.LimitPrice
	} else {
		trade, err := h.service.Market.GetLatestTrade(ctx, symbol)
		if err != nil {
			return respondError(c, http.StatusBadGateway, err)
		}
		price = trade.Price
	}

	result, err := h.service.PaperTradingService.ExecuteOrder(ctx, req.UserID, symbol, req.Qty, dto.OrderSide(req.Side), price)
	if err != nil {
		return respondError(c, http.StatusInternalServerError, err)
	}
	if !result.Success {
		return respond(c, http.StatusUnprocessableEntity, result.Error, result)
	}
	return respond(c, http.StatusOK, "Order filled", result)
}

func (h *HttpAPIHandler) ResetPaperAccount(c echo.Context) error {
	var req dto.ResetAccountRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, err)
	}
	if err := h.validator.Struct(req); err != nil {
		return respondError(c, http.StatusBadRequest, err)
	}

	account, err := h.service.PaperTradingService.Reset(c.Request().Context(), req.UserID, req.StartingBalance)
	if err != nil {
		return respondError(c, http.StatusInternalServerError, err)
	}
	return respond(c, http.StatusOK, "Account reset", account)
}

func userIDParam(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("user_id"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid user_id: %w", err)
	}
	return uint(id), nil
}
