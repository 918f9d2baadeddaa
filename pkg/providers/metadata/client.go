// Package metadata provides a client for the external game-metadata catalog.
// All reads go through a TTL cache; the client itself is stateless.
package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
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

// DefaultTimeout is the maximum time to wait for metadata provider responses.
const DefaultTimeout = 15 * time.Second

// screenshotPageSize limits screenshot listings; screenshots are decorative
// and six is all the UI renders.
const screenshotPageSize = 6

// Client provides access to the metadata provider API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	cache      cache.Cache
	searchTTL  time.Duration
	detailsTTL time.Duration
	logger     *zap.Logger
}

// NewClient creates a metadata provider client. The cache is injected so
// tests can substitute a deterministic fake.
func NewClient(cfg *config.MetadataProviderConfig, c cache.Cache, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		cache:      c,
		searchTTL:  cfg.SearchTTL,
		detailsTTL: cfg.DetailsTTL,
		logger:     logger.Named("metadata"),
	}
}

// ============================================================================
// Wire types
// ============================================================================

type wireSummary struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Released json.RawMessage `json:"released"`
	Image    string          `json:"background_image"`
	Rating   float64         `json:"rating"`
}

type wireList struct {
	Results []wireSummary `json:"results"`
}

type wireNamed struct {
	Name string `json:"name"`
}

type wirePlatform struct {
	Platform wireNamed `json:"platform"`
}

type wireStore struct {
	URL   string    `json:"url"`
	Store wireNamed `json:"store"`
}

type wireDetails struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description_raw"`
	Image       string          `json:"background_image"`
	Rating      float64         `json:"rating"`
	Metacritic  json.RawMessage `json:"metacritic"`
	Genres      []wireNamed     `json:"genres"`
	Platforms   []wirePlatform  `json:"platforms"`
	Developers  []wireNamed     `json:"developers"`
	Publishers  []wireNamed     `json:"publishers"`
	Released    json.RawMessage `json:"released"`
	Website     string          `json:"website"`
	Stores      []wireStore     `json:"stores"`
}

type wireScreenshots struct {
	Results []struct {
		Image string `json:"image"`
	} `json:"results"`
}

// ============================================================================
// Public API
// ============================================================================

// Search performs a text search against the upstream catalog. Results are
// cached by (query, limit). Upstream failure is returned to the caller, which
// decides whether to degrade.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]models.MetadataSummary, error) {
	key := cache.Key("metadata", "search", query, strconv.Itoa(limit))

	var cached []models.MetadataSummary
	if c.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	params := url.Values{}
	params.Set("search", query)
	params.Set("page_size", strconv.Itoa(limit))

	var list wireList
	if err := c.getJSON(ctx, "/games", params, &list); err != nil {
		return nil, fmt.Errorf("metadata search %q failed: %w", query, err)
	}

	summaries := mapSummaries(list.Results)
	c.cacheSet(ctx, key, summaries, c.searchTTL)
	return summaries, nil
}

// GetDetails fetches the full detail record for an external id, cached by id.
// Returns apperrors.ErrNotFound when the upstream has no such record.
func (c *Client) GetDetails(ctx context.Context, id int64) (*models.MetadataRecord, error) {
	key := cache.Key("metadata", "details", strconv.FormatInt(id, 10))

	var cached models.MetadataRecord
	if c.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	var details wireDetails
	if err := c.getJSON(ctx, fmt.Sprintf("/games/%d", id), url.Values{}, &details); err != nil {
		return nil, fmt.Errorf("metadata details for id %d failed: %w", id, err)
	}

	record := mapDetails(details)
	c.cacheSet(ctx, key, record, c.detailsTTL)
	return record, nil
}

// GetScreenshots returns screenshot URLs for an external id. Screenshots are
// non-critical: any failure degrades to an empty list instead of an error.
func (c *Client) GetScreenshots(ctx context.Context, id int64) []string {
	key := cache.Key("metadata", "screenshots", strconv.FormatInt(id, 10))

	var cached []string
	if c.cacheGet(ctx, key, &cached) {
		return cached
	}

	params := url.Values{}
	params.Set("page_size", strconv.Itoa(screenshotPageSize))

	var shots wireScreenshots
	if err := c.getJSON(ctx, fmt.Sprintf("/games/%d/screenshots", id), params, &shots); err != nil {
		c.logger.Warn("Failed to fetch screenshots",
			zap.Int64("metadata_id", id),
			zap.String("error", logging.SanitizeError(err)))
		return nil
	}

	urls := make([]string, 0, len(shots.Results))
	for _, s := range shots.Results {
		if s.Image != "" {
			urls = append(urls, s.Image)
		}
	}
	c.cacheSet(ctx, key, urls, c.detailsTTL)
	return urls
}

// FetchPopular returns a page of popular games, optionally filtered by genre
// slug. Used by the offline catalog import tooling.
func (c *Client) FetchPopular(ctx context.Context, page, pageSize int, genre string) ([]models.MetadataSummary, error) {
	key := cache.Key("metadata", "popular", strconv.Itoa(page), strconv.Itoa(pageSize), genre)

	var cached []models.MetadataSummary
	if c.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	params := url.Values{}
	params.Set("ordering", "-added")
	params.Set("page", strconv.Itoa(page))
	params.Set("page_size", strconv.Itoa(pageSize))
	if genre != "" {
		params.Set("genres", genre)
	}

	var list wireList
	if err := c.getJSON(ctx, "/games", params, &list); err != nil {
		return nil, fmt.Errorf("metadata popular listing failed: %w", err)
	}

	summaries := mapSummaries(list.Results)
	c.cacheSet(ctx, key, summaries, c.searchTTL)
	return summaries, nil
}

// FetchByDateRange returns a page of games released between start and end
// (YYYY-MM-DD). Used by the offline catalog import tooling.
func (c *Client) FetchByDateRange(ctx context.Context, start, end string, page, pageSize int) ([]models.MetadataSummary, error) {
	key := cache.Key("metadata", "dates", start, end, strconv.Itoa(page), strconv.Itoa(pageSize))

	var cached []models.MetadataSummary
	if c.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	params := url.Values{}
	params.Set("dates", start+","+end)
	params.Set("ordering", "-released")
	params.Set("page", strconv.Itoa(page))
	params.Set("page_size", strconv.Itoa(pageSize))

	var list wireList
	if err := c.getJSON(ctx, "/games", params, &list); err != nil {
		return nil, fmt.Errorf("metadata date-range listing failed: %w", err)
	}

	summaries := mapSummaries(list.Results)
	c.cacheSet(ctx, key, summaries, c.searchTTL)
	return summaries, nil
}

// ============================================================================
// Internals
// ============================================================================

// getJSON executes an authenticated GET and decodes the JSON response.
// Transient upstream failures are retried; a 404 maps to apperrors.ErrNotFound.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	params.Set("key", c.apiKey)
	endpoint := c.baseURL + path + "?" + params.Encode()

	return retry.DoIfRetryable(ctx, nil, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return apperrors.ErrNotFound
		}
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			c.logger.Warn("Metadata provider returned error",
				zap.Int("status", resp.StatusCode),
				zap.String("url", logging.SanitizeURL(endpoint)))
			return fmt.Errorf("metadata provider returned status %d: %s",
				resp.StatusCode, logging.TruncateString(string(body), 200))
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
		return nil
	})
}

// cacheGet reads a JSON value from the cache. Cache failures are logged and
// treated as misses; caching must never break a lookup.
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

func (c *Client) cacheSet(ctx context.Context, key string, value any, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("Failed to encode cache entry", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.cache.Set(ctx, key, data, ttl); err != nil {
		c.logger.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func mapSummaries(results []wireSummary) []models.MetadataSummary {
	summaries := make([]models.MetadataSummary, 0, len(results))
	for _, r := range results {
		summaries = append(summaries, models.MetadataSummary{
			ID:       r.ID,
			Name:     r.Name,
			Released: jsonutil.FlexibleStringValue(r.Released),
			CoverURL: r.Image,
			Rating:   r.Rating,
		})
	}
	return summaries
}

func mapDetails(d wireDetails) *models.MetadataRecord {
	record := &models.MetadataRecord{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		CoverURL:    d.Image,
		Rating:      d.Rating,
		CriticScore: jsonutil.FlexibleIntValue(d.Metacritic),
		ReleaseDate: jsonutil.FlexibleStringValue(d.Released),
		Website:     d.Website,
	}

	for _, g := range d.Genres {
		record.Genres = append(record.Genres, g.Name)
	}
	for _, p := range d.Platforms {
		record.Platforms = append(record.Platforms, p.Platform.Name)
	}
	for _, dev := range d.Developers {
		record.Developers = append(record.Developers, dev.Name)
	}
	for _, pub := range d.Publishers {
		record.Publishers = append(record.Publishers, pub.Name)
	}
	for _, s := range d.Stores {
		record.Stores = append(record.Stores, models.StoreLink{
			Name: s.Store.Name,
			URL:  s.URL,
		})
	}

	return record
}
