// Package broker provides market data, option catalog and order clients for
// placing option spreads.
package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/eddiefleurent/bull_call_spread/internal/models"
)

const (
	alpacaPaperTradingURL = "https://paper-api.alpaca.markets"
	alpacaLiveTradingURL  = "https://api.alpaca.markets"
	alpacaDataURL         = "https://data.alpaca.markets"

	// contractsPageLimit is the page size requested from the contracts endpoint.
	contractsPageLimit = 1000
	// maxContractPages bounds pagination in case the API keeps returning tokens.
	maxContractPages = 50

	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 4 << 20
)

// APIError represents an API error with status code and response body
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.Status, e.Body)
}

// AlpacaClient talks to the Alpaca trading and market data REST APIs.
type AlpacaClient struct {
	client     *http.Client
	logger     *logrus.Logger
	apiKey     string
	secretKey  string
	tradingURL string
	dataURL    string
	dataFeed   string
	paper      bool
}

// Ensure AlpacaClient implements Broker at compile time.
var _ Broker = (*AlpacaClient)(nil)

// NewAlpacaClient creates a client for the paper or live environment.
func NewAlpacaClient(apiKey, secretKey string, paper bool) *AlpacaClient {
	return NewAlpacaClientWithBaseURLs(apiKey, secretKey, paper, "", "")
}

// NewAlpacaClientWithBaseURLs creates a client with optional custom trading and data base URLs.
// Empty URLs fall back to the defaults for the selected environment.
func NewAlpacaClientWithBaseURLs(apiKey, secretKey string, paper bool, tradingURL, dataURL string) *AlpacaClient {
	if tradingURL == "" {
		if paper {
			tradingURL = alpacaPaperTradingURL
		} else {
			tradingURL = alpacaLiveTradingURL
		}
	}
	if dataURL == "" {
		dataURL = alpacaDataURL
	}

	return &AlpacaClient{
		client:     &http.Client{Timeout: defaultTimeout},
		logger:     logrus.StandardLogger(),
		apiKey:     apiKey,
		secretKey:  secretKey,
		tradingURL: strings.TrimRight(tradingURL, "/"),
		dataURL:    strings.TrimRight(dataURL, "/"),
		paper:      paper,
	}
}

// WithHTTPClient allows overriding the HTTP client (tests, custom transport).
func (a *AlpacaClient) WithHTTPClient(c *http.Client) *AlpacaClient {
	if c != nil {
		a.client = c
	}
	return a
}

// WithTimeout sets the HTTP client timeout duration.
func (a *AlpacaClient) WithTimeout(timeout time.Duration) *AlpacaClient {
	if timeout > 0 && a.client != nil {
		a.client.Timeout = timeout
	}
	return a
}

// WithLogger sets the logger used for request diagnostics.
func (a *AlpacaClient) WithLogger(logger *logrus.Logger) *AlpacaClient {
	if logger != nil {
		a.logger = logger
	}
	return a
}

// WithDataFeed selects the stock data feed ("iex", "sip"). Empty uses the account default.
func (a *AlpacaClient) WithDataFeed(feed string) *AlpacaClient {
	a.dataFeed = strings.ToLower(strings.TrimSpace(feed))
	return a
}

// IsPaper reports whether the client targets the paper trading environment.
func (a *AlpacaClient) IsPaper() bool {
	return a.paper
}

// ============ API Response Structures ============

type latestQuoteResponse struct {
	Symbol string `json:"symbol"`
	Quote  struct {
		Timestamp time.Time `json:"t"`
		AskPrice  float64   `json:"ap"`
		AskSize   int64     `json:"as"`
		BidPrice  float64   `json:"bp"`
		BidSize   int64     `json:"bs"`
	} `json:"quote"`
}

type optionContractsResponse struct {
	NextPageToken *string                `json:"next_page_token"`
	Contracts     []alpacaOptionContract `json:"option_contracts"`
}

type alpacaOptionContract struct {
	ID               string `json:"id"`
	Symbol           string `json:"symbol"`
	Name             string `json:"name"`
	Status           string `json:"status"`
	ExpirationDate   string `json:"expiration_date"`
	UnderlyingSymbol string `json:"underlying_symbol"`
	Type             string `json:"type"`
	Style            string `json:"style"`
	StrikePrice      string `json:"strike_price"`
	Tradable         bool   `json:"tradable"`
}

type alpacaOrderLeg struct {
	Symbol         string `json:"symbol"`
	Side           string `json:"side"`
	RatioQty       string `json:"ratio_qty"`
	PositionIntent string `json:"position_intent,omitempty"`
}

type alpacaOrderRequest struct {
	OrderClass    string           `json:"order_class"`
	Qty           string           `json:"qty"`
	Type          string           `json:"type"`
	TimeInForce   string           `json:"time_in_force"`
	ClientOrderID string           `json:"client_order_id,omitempty"`
	Legs          []alpacaOrderLeg `json:"legs"`
}

type alpacaOrder struct {
	ID            string `json:"id"`
	ClientOrderID string `json:"client_order_id"`
	Status        string `json:"status"`
	OrderClass    string `json:"order_class"`
}

// ============ API Methods ============

// GetQuote retrieves the latest stock quote for a symbol.
func (a *AlpacaClient) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	params := url.Values{}
	if a.dataFeed != "" {
		params.Set("feed", a.dataFeed)
	}
	endpoint := fmt.Sprintf("%s/v2/stocks/%s/quotes/latest", a.dataURL, url.PathEscape(symbol))
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var response latestQuoteResponse
	if _, err := a.makeRequestCtx(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}

	return &models.Quote{
		Symbol:    symbol,
		Bid:       response.Quote.BidPrice,
		Ask:       response.Quote.AskPrice,
		BidSize:   response.Quote.BidSize,
		AskSize:   response.Quote.AskSize,
		Timestamp: response.Quote.Timestamp,
	}, nil
}

// GetOptionContracts lists option contracts matching the query, following pagination.
func (a *AlpacaClient) GetOptionContracts(ctx context.Context, query models.ContractQuery) ([]models.ContractRecord, error) {
	params := url.Values{}
	params.Set("underlying_symbols", query.Underlying)
	if !query.Expiration.IsZero() {
		params.Set("expiration_date", query.ExpirationDate())
	}
	if query.StrikeGTE != "" {
		params.Set("strike_price_gte", query.StrikeGTE)
	}
	if query.StrikeLTE != "" {
		params.Set("strike_price_lte", query.StrikeLTE)
	}
	if query.Type != "" {
		params.Set("type", strings.ToLower(string(query.Type)))
	}
	if query.Status != "" {
		params.Set("status", strings.ToLower(query.Status))
	}
	params.Set("limit", strconv.Itoa(contractsPageLimit))

	var records []models.ContractRecord
	for page := 0; page < maxContractPages; page++ {
		endpoint := a.tradingURL + "/v2/options/contracts?" + params.Encode()

		var response optionContractsResponse
		if _, err := a.makeRequestCtx(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
			return nil, err
		}
		for _, c := range response.Contracts {
			records = append(records, a.toContractRecord(c))
		}

		if response.NextPageToken == nil || *response.NextPageToken == "" {
			return records, nil
		}
		params.Set("page_token", *response.NextPageToken)
	}

	a.logger.WithField("pages", maxContractPages).Warn("Option contracts pagination truncated")
	return records, nil
}

func (a *AlpacaClient) toContractRecord(c alpacaOptionContract) models.ContractRecord {
	record := models.ContractRecord{Symbol: c.Symbol}
	switch strings.ToUpper(c.Type) {
	case string(models.ContractTypeCall):
		record.Type = models.ContractTypeCall
	case string(models.ContractTypePut):
		record.Type = models.ContractTypePut
	}
	if strike, err := decimal.NewFromString(c.StrikePrice); err == nil {
		record.Strike = strike.InexactFloat64()
		record.HasStrike = true
	} else {
		a.logger.WithError(err).WithField("contract", c.Symbol).Debug("Unparseable strike price")
	}
	return record
}

// PlaceMultiLegOrder submits a multi-leg market order. The raw response body
// is returned in OrderResponse.Raw.
func (a *AlpacaClient) PlaceMultiLegOrder(ctx context.Context, order *models.OrderRequest) (*models.OrderResponse, error) {
	if order == nil {
		return nil, errors.New("order is required")
	}
	if order.Quantity <= 0 {
		return nil, fmt.Errorf("invalid order quantity: %d (must be > 0)", order.Quantity)
	}
	if len(order.Legs) < 2 {
		return nil, fmt.Errorf("multi-leg orders require at least 2 legs, got %d", len(order.Legs))
	}

	tif, err := models.ParseTimeInForce(string(order.TimeInForce))
	if err != nil {
		return nil, err
	}

	req := alpacaOrderRequest{
		OrderClass:    order.OrderClass,
		Qty:           strconv.Itoa(order.Quantity),
		Type:          "market",
		TimeInForce:   strings.ToLower(string(tif)),
		ClientOrderID: order.ClientOrderID,
	}
	for _, leg := range order.Legs {
		req.Legs = append(req.Legs, alpacaOrderLeg{
			Symbol:         leg.Symbol,
			Side:           string(leg.Side),
			RatioQty:       strconv.Itoa(leg.RatioQuantity),
			PositionIntent: positionIntent(leg.Side),
		})
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding order: %w", err)
	}

	var placed alpacaOrder
	raw, err := a.makeRequestCtx(ctx, http.MethodPost, a.tradingURL+"/v2/orders", body, &placed)
	if err != nil {
		return nil, err
	}

	return &models.OrderResponse{
		ID:     placed.ID,
		Status: placed.Status,
		Raw:    string(raw),
	}, nil
}

func positionIntent(side models.OrderSide) string {
	switch side {
	case models.SideBuy:
		return "buy_to_open"
	case models.SideSell:
		return "sell_to_open"
	default:
		return ""
	}
}

// makeRequestCtx performs an authenticated request, decodes a JSON body into
// response and returns the raw body.
func (a *AlpacaClient) makeRequestCtx(ctx context.Context, method, endpoint string,
	body []byte, response interface{}) ([]byte, error) {
	var reqBody io.Reader = http.NoBody
	if body != nil {
		reqBody = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, err
	}

	req.Header.Set("APCA-API-KEY-ID", a.apiKey)
	req.Header.Set("APCA-API-SECRET-KEY", a.secretKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "bull-call-spread/1.0 (+alpaca)")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			a.logger.WithError(err).Warn("Failed to close response body")
		}
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading %s %s response: %w", method, endpoint, err)
	}

	a.logger.WithFields(logrus.Fields{
		"method":   method,
		"endpoint": endpoint,
		"status":   resp.StatusCode,
		"duration": time.Since(start).String(),
	}).Debug("Alpaca request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		ct := resp.Header.Get("Content-Type")
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			return nil, &APIError{Status: resp.StatusCode, Body: fmt.Sprintf("%s %s (%s) -> %s (retry-after: %s)", method, endpoint, ct, string(raw), ra)}
		}
		return nil, &APIError{Status: resp.StatusCode, Body: fmt.Sprintf("%s %s (%s) -> %s", method, endpoint, ct, string(raw))}
	}

	if len(bytes.TrimSpace(raw)) == 0 || response == nil {
		return raw, nil
	}
	if err := json.Unmarshal(raw, response); err != nil {
		return nil, fmt.Errorf("decoding %s %s response: %w", method, endpoint, err)
	}
	return raw, nil
}
