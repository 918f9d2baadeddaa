package metadata

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gameshelf-io/gameshelf-engine/pkg/apperrors"
	"github.com/gameshelf-io/gameshelf-engine/pkg/cache"
	"github.com/gameshelf-io/gameshelf-engine/pkg/config"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := &config.MetadataProviderConfig{
		BaseURL:    server.URL,
		APIKey:     "test-key",
		SearchTTL:  time.Hour,
		DetailsTTL: 24 * time.Hour,
		Timeout:    5 * time.Second,
	}
	return NewClient(cfg, cache.NewMemory(), zap.NewNop()), server
}

func TestSearch_ReturnsSummaries(t *testing.T) {
	var gotKey, gotSearch, gotPageSize string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("key")
		gotSearch = r.URL.Query().Get("search")
		gotPageSize = r.URL.Query().Get("page_size")
		fmt.Fprint(w, `{"results":[
			{"id":3498,"name":"Grand Theft Auto V","released":"2013-09-17","background_image":"https://img.example/gtav.jpg","rating":4.47},
			{"id":4200,"name":"Portal 2","released":"2011-04-18","background_image":"","rating":4.6}
		]}`)
	}))

	results, err := client.Search(context.Background(), "portal", 5)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "test-key", gotKey)
	assert.Equal(t, "portal", gotSearch)
	assert.Equal(t, "5", gotPageSize)

	assert.Equal(t, int64(3498), results[0].ID)
	assert.Equal(t, "Grand Theft Auto V", results[0].Name)
	assert.Equal(t, "2013-09-17", results[0].Released)
	assert.Equal(t, 4.47, results[0].Rating)
}

func TestSearch_CachedByQueryAndLimit(t *testing.T) {
	calls := 0
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprint(w, `{"results":[{"id":1,"name":"Celeste"}]}`)
	}))

	ctx := context.Background()
	_, err := client.Search(ctx, "celeste", 5)
	require.NoError(t, err)
	_, err = client.Search(ctx, "celeste", 5)
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "second identical search should be served from cache")

	// A different limit is a different cache key.
	_, err = client.Search(ctx, "celeste", 10)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestSearch_UpstreamFailurePropagates(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 400 is permanent: no retries, immediate error to the caller.
		http.Error(w, "bad request", http.StatusBadRequest)
	}))

	_, err := client.Search(context.Background(), "anything", 5)
	require.Error(t, err)
}

func TestGetDetails_MapsRecord(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/games/3328", r.URL.Path)
		fmt.Fprint(w, `{
			"id":3328,
			"name":"The Witcher 3: Wild Hunt",
			"description_raw":"An open world RPG.",
			"background_image":"https://img.example/tw3.jpg",
			"rating":4.65,
			"metacritic":92,
			"genres":[{"name":"RPG"},{"name":"Adventure"}],
			"platforms":[{"platform":{"name":"PC"}},{"platform":{"name":"PlayStation 5"}}],
			"developers":[{"name":"CD PROJEKT RED"}],
			"publishers":[{"name":"CD PROJEKT RED"}],
			"released":"2015-05-18",
			"website":"https://thewitcher.com",
			"stores":[{"url":"https://store.steampowered.com/app/292030/","store":{"name":"Steam"}}]
		}`)
	}))

	record, err := client.GetDetails(context.Background(), 3328)
	require.NoError(t, err)

	assert.Equal(t, int64(3328), record.ID)
	assert.Equal(t, "The Witcher 3: Wild Hunt", record.Name)
	assert.Equal(t, 4.65, record.Rating)
	assert.Equal(t, 92, record.CriticScore)
	assert.Equal(t, []string{"RPG", "Adventure"}, record.Genres)
	assert.Equal(t, []string{"PC", "PlayStation 5"}, record.Platforms)
	assert.Equal(t, []string{"CD PROJEKT RED"}, record.Developers)
	assert.Equal(t, "2015-05-18", record.ReleaseDate)
	require.Len(t, record.Stores, 1)
	assert.Equal(t, "Steam", record.Stores[0].Name)
	assert.Equal(t, "https://store.steampowered.com/app/292030/", record.Stores[0].URL)
}

func TestGetDetails_NullMetacritic(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":7,"name":"Obscure Indie","metacritic":null,"released":null}`)
	}))

	record, err := client.GetDetails(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 0, record.CriticScore)
	assert.Equal(t, "", record.ReleaseDate)
}

func TestGetDetails_NotFound(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))

	_, err := client.GetDetails(context.Background(), 999999)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestGetDetails_Cached(t *testing.T) {
	calls := 0
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprint(w, `{"id":42,"name":"Cached Game"}`)
	}))

	ctx := context.Background()
	_, err := client.GetDetails(ctx, 42)
	require.NoError(t, err)
	record, err := client.GetDetails(ctx, 42)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, "Cached Game", record.Name)
}

func TestGetScreenshots_BestEffort(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	}))

	// Failure must not surface: screenshots degrade to an empty list.
	shots := client.GetScreenshots(context.Background(), 42)
	assert.Empty(t, shots)
}

func TestGetScreenshots_ReturnsURLs(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/games/42/screenshots", r.URL.Path)
		assert.Equal(t, "6", r.URL.Query().Get("page_size"))
		fmt.Fprint(w, `{"results":[{"image":"https://img.example/1.jpg"},{"image":"https://img.example/2.jpg"}]}`)
	}))

	shots := client.GetScreenshots(context.Background(), 42)
	assert.Equal(t, []string{"https://img.example/1.jpg", "https://img.example/2.jpg"}, shots)
}

func TestFetchPopular_GenreFilter(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "-added", r.URL.Query().Get("ordering"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "40", r.URL.Query().Get("page_size"))
		assert.Equal(t, "indie", r.URL.Query().Get("genres"))
		fmt.Fprint(w, `{"results":[{"id":9,"name":"Hades"}]}`)
	}))

	results, err := client.FetchPopular(context.Background(), 2, 40, "indie")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Hades", results[0].Name)
}

func TestFetchByDateRange(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2024-01-01,2024-12-31", r.URL.Query().Get("dates"))
		fmt.Fprint(w, `{"results":[{"id":11,"name":"Balatro","released":"2024-02-20"}]}`)
	}))

	results, err := client.FetchByDateRange(context.Background(), "2024-01-01", "2024-12-31", 1, 20)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "2024-02-20", results[0].Released)
}
