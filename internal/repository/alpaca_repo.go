package repository

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"autotrader/config"
	"autotrader/internal/contract"
	"autotrader/internal/dto"
	"autotrader/pkg/cache"
	"autotrader/pkg/common"
	"autotrader/pkg/httpclient"
	"autotrader/pkg/logger"
	"autotrader/pkg/ratelimit"

	"golang.org/x/sync/errgroup"
)

// GatewayError is a failure talking to the broker API. StatusCode is zero
// for transport-level failures.
type GatewayError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *GatewayError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("alpaca %s: status %d: %s", e.Op, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("alpaca %s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// AlpacaRepository serves both sides of the broker integration: market data
// reads and real order writes.
type AlpacaRepository interface {
	contract.MarketDataProvider
	contract.BrokerGateway
}

type alpacaRepository struct {
	dataClient   httpclient.HTTPClient
	brokerClient httpclient.HTTPClient
	cfg          *config.Config
	logger       *logger.Logger
	limiter      *ratelimit.WindowLimiter
	cache        cache.Cache
	credentials  contract.CredentialResolver
}

func NewAlpacaRepository(cfg *config.Config, log *logger.Logger, c cache.Cache, credentials contract.CredentialResolver) AlpacaRepository {
	dataHeaders := map[string]string{
		"APCA-API-KEY-ID":     cfg.Alpaca.APIKey,
		"APCA-API-SECRET-KEY": cfg.Alpaca.APISecret,
	}

	return &alpacaRepository{
		dataClient:   httpclient.New(cfg.Alpaca.DataBaseURL, cfg.Alpaca.Timeout, dataHeaders),
		brokerClient: httpclient.New(cfg.Alpaca.BrokerBaseURL, cfg.Alpaca.Timeout, nil),
		cfg:          cfg,
		logger:       log,
		limiter:      ratelimit.NewWindowLimiter(cfg.Alpaca.MaxRequestPerMin, time.Minute),
		cache:        c,
		credentials:  credentials,
	}
}

// do runs a read call through the shared rate limiter with retries.
// Transport errors and 5xx responses are retried with exponential backoff;
// 4xx responses and an exhausted rate limit window fail immediately.
func (r *alpacaRepository) do(ctx context.Context, op string, call func() (*httpclient.BaseResponse, error)) (*httpclient.BaseResponse, error) {
	var lastErr error

	for attempt := 0; attempt <= r.cfg.Alpaca.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := r.cfg.Alpaca.RetryBaseBackoff * time.Duration(1<<(attempt-1))
			if backoff > r.cfg.Alpaca.RetryMaxBackoff {
				backoff = r.cfg.Alpaca.RetryMaxBackoff
			}
			r.logger.WarnContext(ctx, "Retrying alpaca request",
				logger.StringField("op", op),
				logger.IntField("attempt", attempt),
				logger.Field("backoff", backoff.String()))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		if err := r.limiter.Allow(); err != nil {
			return nil, &GatewayError{Op: op, Err: err}
		}

		resp, err := call()
		if err != nil {
			lastErr = &GatewayError{Op: op, Err: err}
			continue
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			lastErr = &GatewayError{Op: op, StatusCode: resp.StatusCode, Body: string(resp.Body)}
			continue
		}
		if resp.StatusCode >= http.StatusBadRequest {
			return nil, &GatewayError{Op: op, StatusCode: resp.StatusCode, Body: string(resp.Body)}
		}
		return resp, nil
	}

	return nil, lastErr
}

// doOnce runs an order write with no retries. An ambiguous failure on a
// write (timeout, 5xx) may still have filled; resubmitting could fill twice,
// so the error surfaces to the caller after a single attempt.
func (r *alpacaRepository) doOnce(ctx context.Context, op string, call func() (*httpclient.BaseResponse, error)) (*httpclient.BaseResponse, error) {
	if err := r.limiter.Allow(); err != nil {
		return nil, &GatewayError{Op: op, Err: err}
	}

	resp, err := call()
	if err != nil {
		return nil, &GatewayError{Op: op, Err: err}
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &GatewayError{Op: op, StatusCode: resp.StatusCode, Body: string(resp.Body)}
	}
	return resp, nil
}

type alpacaTrade struct {
	Timestamp time.Time `json:"t"`
	Price     float64   `json:"p"`
	Size      float64   `json:"s"`
}

type alpacaQuote struct {
	Timestamp time.Time `json:"t"`
	BidPrice  float64   `json:"bp"`
	AskPrice  float64   `json:"ap"`
	BidSize   float64   `json:"bs"`
	AskSize   float64   `json:"as"`
}

func (r *alpacaRepository) GetLatestTrade(ctx context.Context, symbol string) (*dto.LastTrade, error) {
	key := fmt.Sprintf(common.KEY_LAST_TRADE_PRICE, symbol)
	if cached, ok := cache.GetTyped[dto.LastTrade](r.cache, key); ok {
		return &cached, nil
	}

	var out struct {
		Symbol string      `json:"symbol"`
		Trade  alpacaTrade `json:"trade"`
	}
	endpoint := fmt.Sprintf("/v2/stocks/%s/trades/latest", symbol)
	_, err := r.do(ctx, "latest_trade", func() (*httpclient.BaseResponse, error) {
		return r.dataClient.Get(ctx, endpoint, nil, nil, &out)
	})
	if err != nil {
		return nil, err
	}

	trade := dto.LastTrade{
		Symbol:    symbol,
		Price:     out.Trade.Price,
		Size:      out.Trade.Size,
		Timestamp: out.Trade.Timestamp,
	}
	r.cache.Set(key, trade, r.cfg.Alpaca.PriceCacheTTL)
	return &trade, nil
}

func (r *alpacaRepository) GetLatestQuote(ctx context.Context, symbol string) (*dto.LastQuote, error) {
	key := fmt.Sprintf(common.KEY_LAST_QUOTE, symbol)
	if cached, ok := cache.GetTyped[dto.LastQuote](r.cache, key); ok {
		return &cached, nil
	}

	var out struct {
		Symbol string      `json:"symbol"`
		Quote  alpacaQuote `json:"quote"`
	}
	endpoint := fmt.Sprintf("/v2/stocks/%s/quotes/latest", symbol)
	_, err := r.do(ctx, "latest_quote", func() (*httpclient.BaseResponse, error) {
		return r.dataClient.Get(ctx, endpoint, nil, nil, &out)
	})
	if err != nil {
		return nil, err
	}

	quote := dto.LastQuote{
		Symbol:    symbol,
		BidPrice:  out.Quote.BidPrice,
		AskPrice:  out.Quote.AskPrice,
		BidSize:   out.Quote.BidSize,
		AskSize:   out.Quote.AskSize,
		Timestamp: out.Quote.Timestamp,
	}
	r.cache.Set(key, quote, r.cfg.Alpaca.PriceCacheTTL)
	return &quote, nil
}

// GetLatestTrades fans out per-symbol lookups with bounded concurrency.
// Symbols that fail are logged and omitted; the caller gets whatever prices
// were available.
func (r *alpacaRepository) GetLatestTrades(ctx context.Context, symbols []string) (map[string]dto.LastTrade, error) {
	result := make(map[string]dto.LastTrade, len(symbols))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Alpaca.BatchConcurrency)

	for _, symbol := range symbols {
		symbol := symbol
		g.Go(func() error {
			trade, err := r.GetLatestTrade(gctx, symbol)
			if err != nil {
				r.logger.WarnContext(gctx, "Failed to fetch latest trade",
					logger.StringField("symbol", symbol),
					logger.ErrorField(err))
				return nil
			}
			mu.Lock()
			result[symbol] = *trade
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *alpacaRepository) GetBars(ctx context.Context, symbol string, start, end time.Time) ([]dto.Bar, error) {
	endpoint := fmt.Sprintf("/v2/stocks/%s/bars", symbol)
	queryParams := map[string]string{
		"timeframe": "1Day",
		"start":     start.UTC().Format(time.RFC3339),
		"end":       end.UTC().Format(time.RFC3339),
		"limit":     "10000",
	}

	var bars []dto.Bar
	for {
		var out struct {
			Bars          []dto.Bar `json:"bars"`
			Symbol        string    `json:"symbol"`
			NextPageToken *string   `json:"next_page_token"`
		}
		_, err := r.do(ctx, "bars", func() (*httpclient.BaseResponse, error) {
			return r.dataClient.Get(ctx, endpoint, queryParams, nil, &out)
		})
		if err != nil {
			return nil, err
		}

		bars = append(bars, out.Bars...)
		if out.NextPageToken == nil || *out.NextPageToken == "" {
			break
		}
		queryParams["page_token"] = *out.NextPageToken
	}

	return bars, nil
}

func (r *alpacaRepository) PlaceOrder(ctx context.Context, userID uint, req dto.OrderRequest) (*dto.Order, error) {
	headers, err := r.authHeaders(ctx, userID)
	if err != nil {
		return nil, err
	}

	body := map[string]interface{}{
		"symbol":        req.Symbol,
		"qty":           strconv.FormatFloat(req.Qty, 'f', -1, 64),
		"side":          req.Side,
		"type":          req.Type,
		"time_in_force": req.TimeInForce,
	}
	if req.LimitPrice != nil {
		body["limit_price"] = strconv.FormatFloat(*req.LimitPrice, 'f', -1, 64)
	}

	var order dto.Order
	_, err = r.doOnce(ctx, "place_order", func() (*httpclient.BaseResponse, error) {
		return r.brokerClient.Post(ctx, "/v2/orders", body, headers, &order)
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *alpacaRepository) CancelOrder(ctx context.Context, userID uint, orderID string) error {
	headers, err := r.authHeaders(ctx, userID)
	if err != nil {
		return err
	}

	_, err = r.doOnce(ctx, "cancel_order", func() (*httpclient.BaseResponse, error) {
		return r.brokerClient.Delete(ctx, "/v2/orders/"+orderID, headers, nil)
	})
	return err
}

func (r *alpacaRepository) ReplaceOrder(ctx context.Context, userID uint, orderID string, req dto.OrderRequest) (*dto.Order, error) {
	headers, err := r.authHeaders(ctx, userID)
	if err != nil {
		return nil, err
	}

	body := map[string]interface{}{
		"qty": strconv.FormatFloat(req.Qty, 'f', -1, 64),
	}
	if req.LimitPrice != nil {
		body["limit_price"] = strconv.FormatFloat(*req.LimitPrice, 'f', -1, 64)
	}
	if req.TimeInForce != "" {
		body["time_in_force"] = req.TimeInForce
	}

	var order dto.Order
	_, err = r.doOnce(ctx, "replace_order", func() (*httpclient.BaseResponse, error) {
		return r.brokerClient.Patch(ctx, "/v2/orders/"+orderID, body, headers, &order)
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *alpacaRepository) authHeaders(ctx context.Context, userID uint) (map[string]string, error) {
	keys, err := r.credentials.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}
	if keys == nil {
		return nil, fmt.Errorf("user %d has no active broker credential", userID)
	}
	return map[string]string{
		"APCA-API-KEY-ID":     keys.APIKey,
		"APCA-API-SECRET-KEY": keys.APISecret,
	}, nil
}
