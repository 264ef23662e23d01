package wbgapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"chartbook/internal/model"
)

const (
	defaultBaseURL         = "https://api.worldbank.org/v2/"
	defaultFormatParam     = "format"
	defaultFormatValue     = "json"
	defaultPerPage         = 1000
	defaultRateLimitPerSec = 5
	defaultRateLimitBurst  = 5
	defaultTimeoutSeconds  = 20
	defaultUserAgent       = "chartbook/0.1"
	defaultAggregateRegion = "Aggregates"
)

var ErrNoRecords = errors.New("wbgapi: no records found")

type Config struct {
	BaseURL         string
	FormatParam     string
	FormatValue     string
	PerPage         int
	RateLimitPerSec int
	RateLimitBurst  int
	Timeout         time.Duration
	UserAgent       string
}

// Client talks to the World Bank API v2. All operations are synchronous and
// paginate server responses transparently.
type Client struct {
	config  Config
	client  *http.Client
	limiter *rateLimiter
}

// Metadata is the slice of a probe record the normalizer cares about.
type Metadata struct {
	IndicatorName string
	Decimal       int
}

// Observation is one (indicator, period) data point for an economy. Upstream
// rows with a null value are never materialized as observations.
type Observation struct {
	IndicatorID string
	Period      string
	Value       float64
}

func New() (*Client, error) {
	cfg, err := ConfigFromEnv()
	if err != nil {
		return nil, err
	}
	return NewWithConfig(cfg)
}

func NewWithConfig(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/") + "/"
	if cfg.FormatParam == "" {
		cfg.FormatParam = defaultFormatParam
	}
	if cfg.FormatValue == "" {
		cfg.FormatValue = defaultFormatValue
	}
	if cfg.PerPage <= 0 {
		cfg.PerPage = defaultPerPage
	}
	if cfg.RateLimitPerSec <= 0 {
		cfg.RateLimitPerSec = defaultRateLimitPerSec
	}
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = defaultRateLimitBurst
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeoutSeconds * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}

	return &Client{
		config:  cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: newRateLimiter(cfg.RateLimitPerSec, cfg.RateLimitBurst),
	}, nil
}

func ConfigFromEnv() (Config, error) {
	cfg := Config{
		BaseURL:     getenv("WB_BASE_URL", defaultBaseURL),
		FormatParam: getenv("WB_FORMAT_PARAM", defaultFormatParam),
		FormatValue: getenv("WB_FORMAT_VALUE", defaultFormatValue),
		UserAgent:   getenv("WB_USER_AGENT", defaultUserAgent),
	}

	cfg.PerPage = getenvInt("WB_PER_PAGE", defaultPerPage)
	cfg.RateLimitPerSec = getenvInt("WB_RATE_LIMIT_PER_SEC", defaultRateLimitPerSec)
	cfg.RateLimitBurst = getenvInt("WB_RATE_LIMIT_BURST", defaultRateLimitBurst)
	cfg.Timeout = time.Duration(getenvInt("WB_TIMEOUT_SECONDS", defaultTimeoutSeconds)) * time.Second

	return cfg, nil
}

// FetchLatest requests the most recent single record for one indicator and
// one economy. The old-style country/indicator endpoint is the only one that
// reports the indicator's native decimal precision, which is why metadata
// probes go through here.
func (c *Client) FetchLatest(ctx context.Context, economyID, indicatorID string) (Metadata, error) {
	if strings.TrimSpace(indicatorID) == "" {
		return Metadata{}, errors.New("wbgapi: indicator id is required")
	}

	path := fmt.Sprintf("country/%s/indicator/%s", url.PathEscape(economyID), url.PathEscape(indicatorID))
	params := url.Values{}
	params.Set("mrv", "1")

	rows, err := c.fetchAll(ctx, path, params)
	if err != nil {
		return Metadata{}, err
	}
	if len(rows) == 0 {
		return Metadata{}, ErrNoRecords
	}

	row := rows[0]
	name, _ := getNestedString(row, "indicator", "value")
	decimal, _ := getInt(row, "decimal")
	return Metadata{IndicatorName: name, Decimal: decimal}, nil
}

// FetchSeries pulls the full time series for a set of indicators from one
// source database. Rows whose value is null are dropped; a period/indicator
// combination the source does not report is simply absent from the result.
func (c *Client) FetchSeries(ctx context.Context, indicatorIDs []string, economyID string, sourceDB int) ([]Observation, error) {
	if len(indicatorIDs) == 0 {
		return nil, errors.New("wbgapi: at least one indicator id is required")
	}

	path := fmt.Sprintf("country/%s/indicator/%s",
		url.PathEscape(economyID), url.PathEscape(strings.Join(indicatorIDs, ";")))
	params := url.Values{}
	params.Set("source", strconv.Itoa(sourceDB))

	rows, err := c.fetchAll(ctx, path, params)
	if err != nil {
		return nil, err
	}

	observations := make([]Observation, 0, len(rows))
	for _, row := range rows {
		id, ok := getNestedString(row, "indicator", "id")
		if !ok {
			continue
		}
		period, ok := getString(row, "date")
		if !ok {
			continue
		}
		value, ok := getFloat(row, "value")
		if !ok {
			continue
		}
		observations = append(observations, Observation{
			IndicatorID: id,
			Period:      period,
			Value:       value,
		})
	}
	return observations, nil
}

// ListEconomies fetches display labels for an explicit id list. The result is
// ordered by the requested ids, which are authoritative for sheet order.
func (c *Client) ListEconomies(ctx context.Context, ids []string) ([]model.Economy, error) {
	if len(ids) == 0 {
		return nil, errors.New("wbgapi: at least one economy id is required")
	}

	path := "country/" + url.PathEscape(strings.Join(ids, ";"))
	rows, err := c.fetchAll(ctx, path, nil)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]model.Economy, len(rows))
	for _, row := range rows {
		economy, ok := economyFromRow(row)
		if !ok {
			continue
		}
		byID[strings.ToUpper(economy.ID)] = economy
	}

	economies := make([]model.Economy, 0, len(ids))
	for _, id := range ids {
		economy, ok := byID[strings.ToUpper(strings.TrimSpace(id))]
		if !ok {
			return nil, fmt.Errorf("wbgapi: unknown economy %q", id)
		}
		economies = append(economies, economy)
	}
	return economies, nil
}

// ListAllEconomies returns the full catalog in upstream order, excluding
// aggregate entries (regional and income groupings) unless asked to keep them.
func (c *Client) ListAllEconomies(ctx context.Context, includeAggregates bool) ([]model.Economy, error) {
	rows, err := c.fetchAll(ctx, "country/all", nil)
	if err != nil {
		return nil, err
	}

	economies := make([]model.Economy, 0, len(rows))
	for _, row := range rows {
		economy, ok := economyFromRow(row)
		if !ok {
			continue
		}
		if !includeAggregates && isAggregate(row) {
			continue
		}
		economies = append(economies, economy)
	}
	if len(economies) == 0 {
		return nil, errors.New("wbgapi: no economies parsed")
	}
	return economies, nil
}

func economyFromRow(row map[string]any) (model.Economy, bool) {
	id, ok := getString(row, "id")
	if !ok {
		return model.Economy{}, false
	}
	name, _ := getString(row, "name")
	if name == "" {
		name = id
	}
	return model.Economy{ID: id, Name: name}, true
}

func isAggregate(row map[string]any) bool {
	region, ok := getNestedString(row, "region", "value")
	if !ok {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(region), defaultAggregateRegion)
}

// fetchAll walks every page of a v2 endpoint and concatenates the row arrays.
func (c *Client) fetchAll(ctx context.Context, path string, params url.Values) ([]map[string]any, error) {
	all := make([]map[string]any, 0)

	page := 1
	for {
		query := url.Values{}
		for key, values := range params {
			for _, value := range values {
				query.Add(key, value)
			}
		}
		query.Set("per_page", strconv.Itoa(c.config.PerPage))
		query.Set("page", strconv.Itoa(page))

		body, err := c.doRequest(ctx, path, query)
		if err != nil {
			return nil, err
		}
		rows, pages, err := parsePage(body)
		if err != nil {
			return nil, err
		}
		all = append(all, rows...)

		if page >= pages {
			break
		}
		page++
	}
	return all, nil
}

func (c *Client) doRequest(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set(c.config.FormatParam, c.config.FormatValue)
	endpoint := c.config.BaseURL + strings.TrimLeft(path, "/") + "?" + params.Encode()

	log.Debug().Str("url", endpoint).Msg("wbgapi request")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("wbgapi: request failed (%s): %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return body, nil
}

// parsePage splits a v2 response into its data rows and total page count.
// The shape is [pageinfo, rows]; error responses carry a "message" array in
// the first element instead of paging fields.
func parsePage(body []byte) ([]map[string]any, int, error) {
	var payload []any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, 0, fmt.Errorf("wbgapi: unexpected response: %w", err)
	}
	if len(payload) == 0 {
		return nil, 0, errors.New("wbgapi: empty response")
	}

	info, ok := payload[0].(map[string]any)
	if !ok {
		return nil, 0, errors.New("wbgapi: unexpected response shape")
	}
	if message, ok := apiMessage(info); ok {
		return nil, 0, fmt.Errorf("wbgapi: %s", message)
	}

	pages, ok := getInt(info, "pages")
	if !ok || pages < 1 {
		pages = 1
	}

	if len(payload) < 2 || payload[1] == nil {
		return nil, pages, nil
	}
	items, ok := payload[1].([]any)
	if !ok {
		return nil, 0, errors.New("wbgapi: unexpected row shape")
	}
	return toRowList(items), pages, nil
}

func apiMessage(info map[string]any) (string, bool) {
	raw, ok := info["message"]
	if !ok {
		return "", false
	}
	items, ok := raw.([]any)
	if !ok || len(items) == 0 {
		return "request rejected", true
	}
	parts := make([]string, 0, len(items))
	for _, item := range items {
		row, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if value, ok := getString(row, "value"); ok {
			parts = append(parts, value)
		}
	}
	if len(parts) == 0 {
		return "request rejected", true
	}
	return strings.Join(parts, "; "), true
}

func toRowList(items []any) []map[string]any {
	rows := make([]map[string]any, 0, len(items))
	for _, item := range items {
		row, ok := item.(map[string]any)
		if !ok {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

func getNestedString(row map[string]any, key, subkey string) (string, bool) {
	nested, ok := row[key].(map[string]any)
	if !ok {
		return "", false
	}
	return getString(nested, subkey)
}

func getString(row map[string]any, key string) (string, bool) {
	value, ok := row[key]
	if !ok {
		return "", false
	}
	switch typed := value.(type) {
	case string:
		trimmed := strings.TrimSpace(typed)
		if trimmed == "" {
			return "", false
		}
		return trimmed, true
	case json.Number:
		return typed.String(), true
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64), true
	default:
		return "", false
	}
}

func getFloat(row map[string]any, key string) (float64, bool) {
	value, ok := row[key]
	if !ok || value == nil {
		return 0, false
	}
	switch typed := value.(type) {
	case float64:
		return typed, true
	case int:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case json.Number:
		parsed, err := typed.Float64()
		if err != nil {
			return 0, false
		}
		return parsed, true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(typed), 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

func getInt(row map[string]any, key string) (int, bool) {
	value, ok := getFloat(row, key)
	if !ok {
		return 0, false
	}
	return int(value), true
}

type rateLimiter struct {
	tokens chan struct{}
}

func newRateLimiter(ratePerSec, burst int) *rateLimiter {
	if ratePerSec <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}

	limiter := &rateLimiter{
		tokens: make(chan struct{}, burst),
	}
	for i := 0; i < burst; i++ {
		limiter.tokens <- struct{}{}
	}

	interval := time.Second / time.Duration(ratePerSec)
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		for range ticker.C {
			select {
			case limiter.tokens <- struct{}{}:
			default:
			}
		}
	}()

	return limiter
}

func (l *rateLimiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.tokens:
		return nil
	}
}

func getenv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
