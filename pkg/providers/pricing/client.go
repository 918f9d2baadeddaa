// Package pricing provides a client for the external storefront pricing API.
// Price lookups are inherently best-effort; only detail fetches can fail
// loudly, and even those never block catalog aggregation.
package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/gameshelf-io/gameshelf-engine/pkg/apperrors"
	"github.com/gameshelf-io/gameshelf-engine/pkg/cache"
	"github.com/gameshelf-io/gameshelf-engine/pkg/config"
	"github.com/gameshelf-io/gameshelf-engine/pkg/jsonutil"
	"github.com/gameshelf-io/gameshelf-engine/pkg/logging"
	"github.com/gameshelf-io/gameshelf-engine/pkg/models"
	"github.com/gameshelf-io/gameshelf-engine/pkg/retry"
)

// DefaultTimeout is the maximum time to wait for storefront responses.
const DefaultTimeout = 15 * time.Second

// DefaultRegion is the currency region used when callers pass none.
const DefaultRegion = "us"

// storeURLPattern matches the numeric product id in storefront URLs of the
// form .../app/<digits>/...
var storeURLPattern = regexp.MustCompile(`/app/(\d+)(?:/|$)`)

// Client provides access to the storefront pricing API.
type Client struct {
	httpClient    *http.Client
	storeBaseURL  string
	searchBaseURL string
	cache         cache.Cache
	detailsTTL    time.Duration
	logger        *zap.Logger
}

// NewClient creates a pricing provider client with an injected cache.
func NewClient(cfg *config.PricingProviderConfig, c cache.Cache, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	searchBase := cfg.SearchBaseURL
	if searchBase == "" {
		searchBase = cfg.StoreBaseURL
	}

	return &Client{
		httpClient:    &http.Client{Timeout: timeout},
		storeBaseURL:  cfg.StoreBaseURL,
		searchBaseURL: searchBase,
		cache:         c,
		detailsTTL:    cfg.DetailsTTL,
		logger:        logger.Named("pricing"),
	}
}

// ============================================================================
// Wire types
// ============================================================================

type wireSearchResponse struct {
	Total int `json:"total"`
	Items []struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"items"`
}

type wirePriceOverview struct {
	Currency        string          `json:"currency"`
	Initial         json.RawMessage `json:"initial"`
	Final           json.RawMessage `json:"final"`
	DiscountPercent int             `json:"discount_percent"`
}

type wireAppData struct {
	Name          string             `json:"name"`
	IsFree        bool               `json:"is_free"`
	PriceOverview *wirePriceOverview `json:"price_overview"`
}

type wireAppEntry struct {
	Success bool         `json:"success"`
	Data    *wireAppData `json:"data"`
}

// ============================================================================
// Public API
// ============================================================================

// SearchByName performs a fuzzy storefront search and returns the first
// match's store id. It never returns an error: price resolution is
// best-effort, so any failure degrades to "no store id".
func (c *Client) SearchByName(ctx context.Context, title string) (int64, bool) {
	params := url.Values{}
	params.Set("term", title)
	params.Set("l", "english")
	params.Set("cc", "US")
	endpoint := c.searchBaseURL + "/api/storesearch?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("Storefront search failed",
			zap.String("title", title),
			zap.String("error", logging.SanitizeError(err)))
		return 0, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Debug("Storefront search returned error",
			zap.String("title", title),
			zap.Int("status", resp.StatusCode))
		return 0, false
	}

	var result wireSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		c.logger.Debug("Storefront search response unparseable",
			zap.String("title", title),
			zap.Error(err))
		return 0, false
	}

	if len(result.Items) == 0 {
		return 0, false
	}
	return result.Items[0].ID, true
}

// GetDetails fetches price/discount data for a store id, cached by
// (storeID, region). A storefront "not found" yields (nil, nil); transport
// or parse failures yield an error the caller may treat as recoverable.
func (c *Client) GetDetails(ctx context.Context, storeID int64, region string) (*models.PricingRecord, error) {
	if region == "" {
		region = DefaultRegion
	}

	key := cache.Key("pricing", "details", strconv.FormatInt(storeID, 10), region)

	var cached models.PricingRecord
	if c.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	params := url.Values{}
	params.Set("appids", strconv.FormatInt(storeID, 10))
	params.Set("cc", region)
	params.Set("l", "english")
	endpoint := c.storeBaseURL + "/api/appdetails?" + params.Encode()

	envelope, err := retry.DoWithResult(ctx, nil, func() (map[string]wireAppEntry, error) {
		return c.fetchAppDetails(ctx, endpoint)
	})
	if err != nil {
		return nil, fmt.Errorf("pricing details for store id %d: %w", storeID, err)
	}

	entry, ok := envelope[strconv.FormatInt(storeID, 10)]
	if !ok {
		return nil, fmt.Errorf("%w: pricing response missing app id %d", apperrors.ErrUpstreamUnavailable, storeID)
	}
	if !entry.Success || entry.Data == nil {
		// The storefront knows nothing about this id. Not an error.
		return nil, nil
	}

	record := &models.PricingRecord{
		Name:   entry.Data.Name,
		IsFree: entry.Data.IsFree,
	}
	if po := entry.Data.PriceOverview; po != nil {
		record.Price = &models.PriceOverview{
			Currency:        po.Currency,
			Initial:         NormalizePrice(jsonutil.FlexibleFloatValue(po.Initial)),
			Final:           NormalizePrice(jsonutil.FlexibleFloatValue(po.Final)),
			DiscountPercent: po.DiscountPercent,
		}
	}

	c.cacheSet(ctx, key, record)
	return record, nil
}

// ExtractStoreID parses a storefront product URL and returns the embedded
// numeric store id. Pure string parsing, no network call.
func ExtractStoreID(rawURL string) (int64, bool) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return 0, false
	}

	match := storeURLPattern.FindStringSubmatch(parsed.Path)
	if match == nil {
		return 0, false
	}

	id, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// NormalizePrice converts an upstream monetary value to major units. The
// storefront reports integers in minor units (cents) for real prices, but
// already-major values for small numbers; dividing small values again would
// double-scale them, so only values above 100 are divided.
func NormalizePrice(v float64) float64 {
	if v > 100 {
		return v / 100
	}
	return v
}

// ============================================================================
// Internals
// ============================================================================

func (c *Client) fetchAppDetails(ctx context.Context, endpoint string) (map[string]wireAppEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: storefront returned status %d: %s",
			apperrors.ErrUpstreamUnavailable, resp.StatusCode,
			logging.TruncateString(string(body), 200))
	}

	var envelope map[string]wireAppEntry
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("%w: failed to parse storefront response: %v", apperrors.ErrUpstreamUnavailable, err)
	}
	return envelope, nil
}

func (c *Client) cacheGet(ctx context.Context, key string, out any) bool {
	data, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn("Cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		c.logger.Warn("Discarding undecodable cache entry", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (c *Client) cacheSet(ctx context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("Failed to encode cache entry", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.cache.Set(ctx, key, data, c.detailsTTL); err != nil {
		c.logger.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
	}
}
