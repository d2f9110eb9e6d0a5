package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/quantfold/momo/internal/contracts"
	"github.com/quantfold/momo/pkg/config"
	"github.com/quantfold/momo/pkg/httputil"
	"github.com/quantfold/momo/pkg/logger"
)

const dateLayout = "2006-01-02"

// PolygonClient talks to the Polygon.io REST API. Every request passes the
// shared sliding-window limiter (via httputil) and a local minimum-spacing
// limiter, so quota policy lives here and not at call sites.
type PolygonClient struct {
	cfg        *config.Config
	logger     *logger.Logger
	httpClient *httputil.Client
	spacing    *rate.Limiter
}

// NewPolygonClient creates a Polygon API client.
func NewPolygonClient(cfg *config.Config, log *logger.Logger, httpClient *httputil.Client) *PolygonClient {
	return &PolygonClient{
		cfg:        cfg,
		logger:     log,
		httpClient: httpClient,
		spacing:    rate.NewLimiter(rate.Every(cfg.Polygon.MinSpacing), 1),
	}
}

type aggBar struct {
	Open   float64 `json:"o"`
	High   float64 `json:"h"`
	Low    float64 `json:"l"`
	Close  float64 `json:"c"`
	Volume float64 `json:"v"`
	Ticker string  `json:"T"`
}

type aggsResponse struct {
	Results []aggBar `json:"results"`
	Status  string   `json:"status"`
}

type contractRef struct {
	Ticker         string  `json:"ticker"`
	StrikePrice    float64 `json:"strike_price"`
	ExpirationDate string  `json:"expiration_date"`
	ContractType   string  `json:"contract_type"`
}

type contractsResponse struct {
	Results []contractRef `json:"results"`
}

// GroupedDaily fetches all US stock bars for one date. An empty slice with
// a nil error means the market was closed (or data is not published yet).
func (c *PolygonClient) GroupedDaily(ctx context.Context, date time.Time) ([]contracts.PriceBar, error) {
	u := fmt.Sprintf("%s/v2/aggs/grouped/locale/us/market/stocks/%s?adjusted=true&apiKey=%s",
		c.cfg.Polygon.BaseURL, date.Format(dateLayout), url.QueryEscape(c.cfg.Polygon.APIKey))

	var out aggsResponse
	if err := c.getJSON(ctx, u, &out); err != nil {
		return nil, fmt.Errorf("grouped daily %s: %w", date.Format(dateLayout), err)
	}

	bars := make([]contracts.PriceBar, 0, len(out.Results))
	for _, r := range out.Results {
		bars = append(bars, contracts.PriceBar{
			Ticker: r.Ticker,
			Date:   date,
			Open:   r.Open,
			High:   r.High,
			Low:    r.Low,
			Close:  r.Close,
			Volume: int64(r.Volume),
		})
	}
	return bars, nil
}

// DailyBar fetches a single ticker's bar for one date. Returns nil when the
// source has no bar: unavailable, not an error.
func (c *PolygonClient) DailyBar(ctx context.Context, ticker string, date time.Time) (*contracts.PriceBar, error) {
	d := date.Format(dateLayout)
	u := fmt.Sprintf("%s/v2/aggs/ticker/%s/range/1/day/%s/%s?adjusted=true&apiKey=%s",
		c.cfg.Polygon.BaseURL, url.PathEscape(ticker), d, d, url.QueryEscape(c.cfg.Polygon.APIKey))

	var out aggsResponse
	if err := c.getJSON(ctx, u, &out); err != nil {
		return nil, fmt.Errorf("daily bar %s %s: %w", ticker, d, err)
	}

	if len(out.Results) == 0 {
		return nil, nil
	}

	r := out.Results[0]
	return &contracts.PriceBar{
		Ticker: ticker,
		Date:   date,
		Open:   r.Open,
		High:   r.High,
		Low:    r.Low,
		Close:  r.Close,
		Volume: int64(r.Volume),
	}, nil
}

// OptionContracts searches the reference endpoint for listed contracts
// within the query bounds, as listed right now.
func (c *PolygonClient) OptionContracts(ctx context.Context, q contracts.ChainQuery) ([]contracts.OptionContract, error) {
	params := url.Values{}
	params.Set("underlying_ticker", q.Underlying)
	params.Set("contract_type", string(q.Type))
	params.Set("expiration_date.gte", q.ExpirationFrom.Format(dateLayout))
	params.Set("expiration_date.lte", q.ExpirationTo.Format(dateLayout))
	params.Set("strike_price.gte", fmt.Sprintf("%.2f", q.StrikeFrom))
	params.Set("strike_price.lte", fmt.Sprintf("%.2f", q.StrikeTo))
	params.Set("limit", "1000")
	params.Set("apiKey", c.cfg.Polygon.APIKey)

	u := fmt.Sprintf("%s/v3/reference/options/contracts?%s", c.cfg.Polygon.BaseURL, params.Encode())

	var out contractsResponse
	if err := c.getJSON(ctx, u, &out); err != nil {
		return nil, fmt.Errorf("option contracts %s: %w", q.Underlying, err)
	}

	observed := time.Now().UTC()
	result := make([]contracts.OptionContract, 0, len(out.Results))
	for _, r := range out.Results {
		exp, err := time.Parse(dateLayout, r.ExpirationDate)
		if err != nil {
			c.logger.WithFields(map[string]interface{}{
				"symbol":     r.Ticker,
				"expiration": r.ExpirationDate,
			}).Warn("Skipping contract with unparseable expiration")
			continue
		}
		result = append(result, contracts.OptionContract{
			Underlying: q.Underlying,
			Symbol:     r.Ticker,
			Strike:     r.StrikePrice,
			Expiration: exp,
			Type:       contracts.OptionType(r.ContractType),
			ObservedAt: observed,
		})
	}
	return result, nil
}

// OptionDailyClose fetches a contract's close for a date. ok=false when the
// contract did not trade that day.
func (c *PolygonClient) OptionDailyClose(ctx context.Context, contractSymbol string, date time.Time) (float64, bool, error) {
	d := date.Format(dateLayout)
	u := fmt.Sprintf("%s/v2/aggs/ticker/%s/range/1/day/%s/%s?adjusted=true&apiKey=%s",
		c.cfg.Polygon.BaseURL, url.PathEscape(contractSymbol), d, d, url.QueryEscape(c.cfg.Polygon.APIKey))

	var out aggsResponse
	if err := c.getJSON(ctx, u, &out); err != nil {
		return 0, false, fmt.Errorf("option close %s %s: %w", contractSymbol, d, err)
	}

	if len(out.Results) == 0 {
		return 0, false, nil
	}
	return out.Results[0].Close, true, nil
}

// getJSON performs a rate-limited GET and decodes the body. Non-2xx after
// the retry budget is reported as an error so the caller can degrade the
// lookup to "still pending".
func (c *PolygonClient) getJSON(ctx context.Context, url string, v interface{}) error {
	if err := c.spacing.Wait(ctx); err != nil {
		return err
	}

	resp, err := c.httpClient.Get(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("polygon status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
