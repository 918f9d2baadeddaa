package handlers

import (
	"context"

	"github.com/google/uuid"

	"github.com/gameshelf-io/gameshelf-engine/pkg/apperrors"
	"github.com/gameshelf-io/gameshelf-engine/pkg/models"
	"github.com/gameshelf-io/gameshelf-engine/pkg/services"
)

// mockCatalogService implements services.CatalogService with function fields.
type mockCatalogService struct {
	getFunc    func(ctx context.Context, id uuid.UUID) (*models.CatalogGame, error)
	listFunc   func(ctx context.Context, filters models.GameFilters, limit, offset int) ([]*models.CatalogGame, error)
	searchFunc func(ctx context.Context, query string, limit int) ([]*models.CatalogGame, error)
	importFunc func(ctx context.Context, metadataID, storeID int64) (*models.CatalogGame, error)
	deleteFunc func(ctx context.Context, id uuid.UUID) error
}

var _ services.CatalogService = (*mockCatalogService)(nil)

func (m *mockCatalogService) Get(ctx context.Context, id uuid.UUID) (*models.CatalogGame, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, id)
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockCatalogService) List(ctx context.Context, filters models.GameFilters, limit, offset int) ([]*models.CatalogGame, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, filters, limit, offset)
	}
	return nil, nil
}

func (m *mockCatalogService) Search(ctx context.Context, query string, limit int) ([]*models.CatalogGame, error) {
	if m.searchFunc != nil {
		return m.searchFunc(ctx, query, limit)
	}
	return nil, nil
}

func (m *mockCatalogService) ImportByExternalID(ctx context.Context, metadataID, storeID int64) (*models.CatalogGame, error) {
	if m.importFunc != nil {
		return m.importFunc(ctx, metadataID, storeID)
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockCatalogService) Delete(ctx context.Context, id uuid.UUID) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return apperrors.ErrNotFound
}

// mockDiscoveryService implements services.DiscoveryService.
type mockDiscoveryService struct {
	searchAndSyncFunc func(ctx context.Context, query string, filters models.GameFilters) (*services.DiscoveryResult, error)
}

var _ services.DiscoveryService = (*mockDiscoveryService)(nil)

func (m *mockDiscoveryService) SearchAndSync(ctx context.Context, query string, filters models.GameFilters) (*services.DiscoveryResult, error) {
	if m.searchAndSyncFunc != nil {
		return m.searchAndSyncFunc(ctx, query, filters)
	}
	return &services.DiscoveryResult{Results: []models.UnifiedSearchResult{}, Source: services.SourceLocal}, nil
}
