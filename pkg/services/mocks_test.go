package services

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/gameshelf-io/gameshelf-engine/pkg/apperrors"
	"github.com/gameshelf-io/gameshelf-engine/pkg/models"
)

// mockMetadataProvider implements MetadataProvider with function fields.
type mockMetadataProvider struct {
	searchFunc      func(ctx context.Context, query string, limit int) ([]models.MetadataSummary, error)
	getDetailsFunc  func(ctx context.Context, id int64) (*models.MetadataRecord, error)
	screenshotsFunc func(ctx context.Context, id int64) []string
}

func (m *mockMetadataProvider) Search(ctx context.Context, query string, limit int) ([]models.MetadataSummary, error) {
	if m.searchFunc != nil {
		return m.searchFunc(ctx, query, limit)
	}
	return nil, nil
}

func (m *mockMetadataProvider) GetDetails(ctx context.Context, id int64) (*models.MetadataRecord, error) {
	if m.getDetailsFunc != nil {
		return m.getDetailsFunc(ctx, id)
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockMetadataProvider) GetScreenshots(ctx context.Context, id int64) []string {
	if m.screenshotsFunc != nil {
		return m.screenshotsFunc(ctx, id)
	}
	return nil
}

// mockPricingProvider implements PricingProvider with function fields and
// counts fuzzy search calls.
type mockPricingProvider struct {
	searchByNameFunc func(ctx context.Context, title string) (int64, bool)
	getDetailsFunc   func(ctx context.Context, storeID int64, region string) (*models.PricingRecord, error)

	mu            sync.Mutex
	searchCalls   int
	detailsCalled []int64
}

func (m *mockPricingProvider) SearchByName(ctx context.Context, title string) (int64, bool) {
	m.mu.Lock()
	m.searchCalls++
	m.mu.Unlock()

	if m.searchByNameFunc != nil {
		return m.searchByNameFunc(ctx, title)
	}
	return 0, false
}

func (m *mockPricingProvider) GetDetails(ctx context.Context, storeID int64, region string) (*models.PricingRecord, error) {
	m.mu.Lock()
	m.detailsCalled = append(m.detailsCalled, storeID)
	m.mu.Unlock()

	if m.getDetailsFunc != nil {
		return m.getDetailsFunc(ctx, storeID, region)
	}
	return nil, nil
}

// mockGameRepository is an in-memory stand-in for the catalog store.
type mockGameRepository struct {
	mu    sync.Mutex
	games map[string]*models.CatalogGame // keyed by title

	upsertErr error
	searchErr error

	localResults []*models.CatalogGame
	existsFunc   func(metadataID int64) (bool, error)
}

func newMockGameRepository() *mockGameRepository {
	return &mockGameRepository{games: make(map[string]*models.CatalogGame)}
}

func (m *mockGameRepository) Upsert(ctx context.Context, game *models.CatalogGame) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.games[game.Title]; ok {
		game.ID = existing.ID
		game.InLibrary = existing.InLibrary
	} else if game.ID == uuid.Nil {
		game.ID = uuid.New()
	}
	copied := *game
	m.games[game.Title] = &copied
	return nil
}

func (m *mockGameRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.CatalogGame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, g := range m.games {
		if g.ID == id {
			return g, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockGameRepository) GetByMetadataID(ctx context.Context, metadataID int64) (*models.CatalogGame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, g := range m.games {
		if g.MetadataID != nil && *g.MetadataID == metadataID {
			return g, nil
		}
	}
	return nil, nil
}

func (m *mockGameRepository) ExistsByMetadataID(ctx context.Context, metadataID int64) (bool, error) {
	if m.existsFunc != nil {
		return m.existsFunc(metadataID)
	}

	g, _ := m.GetByMetadataID(ctx, metadataID)
	return g != nil, nil
}

func (m *mockGameRepository) Search(ctx context.Context, query string, filters models.GameFilters, limit int) ([]*models.CatalogGame, error) {
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.localResults, nil
}

func (m *mockGameRepository) TextSearch(ctx context.Context, query string, limit int) ([]*models.CatalogGame, error) {
	return m.localResults, nil
}

func (m *mockGameRepository) List(ctx context.Context, filters models.GameFilters, limit, offset int) ([]*models.CatalogGame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*models.CatalogGame, 0, len(m.games))
	for _, g := range m.games {
		out = append(out, g)
	}
	return out, nil
}

func (m *mockGameRepository) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for title, g := range m.games {
		if g.ID == id {
			delete(m.games, title)
			return nil
		}
	}
	return apperrors.ErrNotFound
}

// mockAggregator implements AggregatorService with a function field.
type mockAggregator struct {
	aggregateFunc func(ctx context.Context, metadataID, storeID int64) (*models.CatalogGame, error)

	mu    sync.Mutex
	calls []int64
}

func (m *mockAggregator) Aggregate(ctx context.Context, metadataID, storeID int64) (*models.CatalogGame, error) {
	m.mu.Lock()
	m.calls = append(m.calls, metadataID)
	m.mu.Unlock()

	if m.aggregateFunc != nil {
		return m.aggregateFunc(ctx, metadataID, storeID)
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockGameRepository) stored(title string) *models.CatalogGame {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.games[title]
}
