package repositories

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gameshelf-io/gameshelf-engine/pkg/apperrors"
	"github.com/gameshelf-io/gameshelf-engine/pkg/database"
	"github.com/gameshelf-io/gameshelf-engine/pkg/models"
	"github.com/gameshelf-io/gameshelf-engine/pkg/testhelpers"
)

func setupRepo(t *testing.T) GameRepository {
	t.Helper()

	testDB := testhelpers.GetTestDB(t)
	testDB.TruncateGames(t)
	return NewGameRepository(&database.DB{Pool: testDB.Pool})
}

func int64Ptr(v int64) *int64 { return &v }

func TestGameRepository_UpsertInsertsNewGame(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	game := &models.CatalogGame{
		Title:       "Hollow Knight",
		Genres:      []string{"Metroidvania", "Indie"},
		Platforms:   []string{"PC", "Switch"},
		Developer:   "Team Cherry",
		Publisher:   "Team Cherry",
		Score:       9.2,
		CriticScore: 90,
		MetadataID:  int64Ptr(9767),
		StoreID:     int64Ptr(367520),
		Price:       14.99,
		Currency:    "USD",
	}

	require.NoError(t, repo.Upsert(ctx, game))
	assert.NotEqual(t, uuid.Nil, game.ID)
	assert.False(t, game.CreatedAt.IsZero())

	got, err := repo.GetByID(ctx, game.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hollow Knight", got.Title)
	assert.Equal(t, []string{"Metroidvania", "Indie"}, got.Genres)
	require.NotNil(t, got.MetadataID)
	assert.Equal(t, int64(9767), *got.MetadataID)
	assert.Equal(t, 14.99, got.Price)
}

func TestGameRepository_UpsertOnTitleConflictUpdates(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	first := &models.CatalogGame{Title: "Celeste", Price: 19.99, Currency: "USD"}
	require.NoError(t, repo.Upsert(ctx, first))

	// Same title imported again, e.g. by a concurrent discovery request.
	second := &models.CatalogGame{
		Title:      "Celeste",
		Price:      9.99,
		Currency:   "USD",
		OnSale:     true,
		MetadataID: int64Ptr(50734),
	}
	require.NoError(t, repo.Upsert(ctx, second))

	// Still one row, refreshed in place.
	assert.Equal(t, first.ID, second.ID)

	got, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 9.99, got.Price)
	assert.True(t, got.OnSale)
}

func TestGameRepository_UpsertRoundTripsPriceMap(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	game := &models.CatalogGame{
		Title: "Stardew Valley",
		Prices: map[string]models.PricePoint{
			"USD": {Price: 14.99, OriginalPrice: 14.99},
			"EUR": {Price: 13.99, OriginalPrice: 13.99},
		},
	}
	require.NoError(t, repo.Upsert(ctx, game))

	got, err := repo.GetByID(ctx, game.ID)
	require.NoError(t, err)
	require.Len(t, got.Prices, 2)
	assert.Equal(t, 13.99, got.Prices["EUR"].Price)
}

func TestGameRepository_GetByIDNotFound(t *testing.T) {
	repo := setupRepo(t)

	_, err := repo.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestGameRepository_GetByMetadataID(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	game := &models.CatalogGame{Title: "Outer Wilds", MetadataID: int64Ptr(263355)}
	require.NoError(t, repo.Upsert(ctx, game))

	got, err := repo.GetByMetadataID(ctx, 263355)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Outer Wilds", got.Title)

	missing, err := repo.GetByMetadataID(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestGameRepository_ExistsByMetadataID(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &models.CatalogGame{Title: "Hades", MetadataID: int64Ptr(274755)}))

	exists, err := repo.ExistsByMetadataID(ctx, 274755)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsByMetadataID(ctx, 999999)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestGameRepository_SearchMatchesAcrossFields(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	games := []*models.CatalogGame{
		{Title: "DOOM Eternal", Genres: []string{"Shooter"}, Developer: "id Software", Platforms: []string{"PC"}},
		{Title: "Animal Crossing", Genres: []string{"Simulation"}, Developer: "Nintendo", Platforms: []string{"Switch"}},
		{Title: "Quake", Genres: []string{"Shooter"}, Developer: "id Software", Platforms: []string{"PC"}},
	}
	for _, g := range games {
		require.NoError(t, repo.Upsert(ctx, g))
	}

	// Substring match on genre, case-insensitive.
	byGenre, err := repo.Search(ctx, "shoot", models.GameFilters{}, 20)
	require.NoError(t, err)
	assert.Len(t, byGenre, 2)

	// Substring match on developer.
	byDev, err := repo.Search(ctx, "id soft", models.GameFilters{}, 20)
	require.NoError(t, err)
	assert.Len(t, byDev, 2)

	// Genre filter narrows the match set.
	filtered, err := repo.Search(ctx, "o", models.GameFilters{Genre: "Simulation"}, 20)
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "Animal Crossing", filtered[0].Title)
}

func TestGameRepository_SearchOrdersOwnedFirst(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	notOwned := &models.CatalogGame{Title: "Portal"}
	require.NoError(t, repo.Upsert(ctx, notOwned))

	owned := &models.CatalogGame{Title: "Portal 2", InLibrary: true}
	require.NoError(t, repo.Upsert(ctx, owned))

	results, err := repo.Search(ctx, "portal", models.GameFilters{}, 20)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Portal 2", results[0].Title, "owned games sort first")
}

func TestGameRepository_TextSearchRanksTitleHighest(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &models.CatalogGame{
		Title:  "Racing Simulator",
		Genres: []string{"Racing"},
	}))
	require.NoError(t, repo.Upsert(ctx, &models.CatalogGame{
		Title:  "Gran Turismo",
		Genres: []string{"Racing"},
	}))

	results, err := repo.TextSearch(ctx, "racing", 20)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Racing Simulator", results[0].Title, "title matches outrank genre matches")
}

func TestGameRepository_ListPagination(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	for _, title := range []string{"A Game", "B Game", "C Game"} {
		require.NoError(t, repo.Upsert(ctx, &models.CatalogGame{Title: title}))
	}

	page, err := repo.List(ctx, models.GameFilters{}, 2, 0)
	require.NoError(t, err)
	assert.Len(t, page, 2)

	rest, err := repo.List(ctx, models.GameFilters{}, 2, 2)
	require.NoError(t, err)
	assert.Len(t, rest, 1)
}

func TestGameRepository_Delete(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	game := &models.CatalogGame{Title: "Short Lived"}
	require.NoError(t, repo.Upsert(ctx, game))

	require.NoError(t, repo.Delete(ctx, game.ID))
	assert.ErrorIs(t, repo.Delete(ctx, game.ID), apperrors.ErrNotFound)
}
