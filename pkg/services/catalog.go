package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gameshelf-io/gameshelf-engine/pkg/models"
	"github.com/gameshelf-io/gameshelf-engine/pkg/repositories"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// euRegion is the secondary storefront region sampled on admin imports.
const euRegion = "eu"

// CatalogService exposes read and admin operations over the game catalog.
type CatalogService interface {
	// Get returns a game by id or apperrors.ErrNotFound.
	Get(ctx context.Context, id uuid.UUID) (*models.CatalogGame, error)

	// List returns a page of the catalog, newest first. Limit is clamped
	// to a sane range; a zero limit selects the default page size.
	List(ctx context.Context, filters models.GameFilters, limit, offset int) ([]*models.CatalogGame, error)

	// Search ranks catalog games against the weighted full-text index.
	// Blank queries return an empty result.
	Search(ctx context.Context, query string, limit int) ([]*models.CatalogGame, error)

	// ImportByExternalID aggregates and persists a game from provider ids,
	// enriched with screenshots and a secondary-region price point.
	// Metadata lookup failures surface as apperrors.ErrNotFound.
	ImportByExternalID(ctx context.Context, metadataID, storeID int64) (*models.CatalogGame, error)

	// Delete removes a game or returns apperrors.ErrNotFound.
	Delete(ctx context.Context, id uuid.UUID) error
}

type catalogService struct {
	repo       repositories.GameRepository
	aggregator AggregatorService
	metadata   MetadataProvider
	pricing    PricingProvider
	logger     *zap.Logger
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(
	repo repositories.GameRepository,
	aggregator AggregatorService,
	meta MetadataProvider,
	price PricingProvider,
	logger *zap.Logger,
) CatalogService {
	return &catalogService{
		repo:       repo,
		aggregator: aggregator,
		metadata:   meta,
		pricing:    price,
		logger:     logger.Named("catalog"),
	}
}

var _ CatalogService = (*catalogService)(nil)

func (s *catalogService) Get(ctx context.Context, id uuid.UUID) (*models.CatalogGame, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *catalogService) List(ctx context.Context, filters models.GameFilters, limit, offset int) ([]*models.CatalogGame, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	return s.repo.List(ctx, filters, limit, offset)
}

func (s *catalogService) Search(ctx context.Context, query string, limit int) ([]*models.CatalogGame, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []*models.CatalogGame{}, nil
	}
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}

	return s.repo.TextSearch(ctx, query, limit)
}

func (s *catalogService) ImportByExternalID(ctx context.Context, metadataID, storeID int64) (*models.CatalogGame, error) {
	game, err := s.aggregator.Aggregate(ctx, metadataID, storeID)
	if err != nil {
		return nil, err
	}

	game.Screenshots = s.metadata.GetScreenshots(ctx, metadataID)
	s.attachSecondaryPrice(ctx, game)

	if err := s.repo.Upsert(ctx, game); err != nil {
		return nil, err
	}

	s.logger.Info("Imported game into catalog",
		zap.String("title", game.Title),
		zap.Int64("metadata_id", metadataID))

	return game, nil
}

func (s *catalogService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("Deleted game from catalog", zap.String("id", id.String()))
	return nil
}

// attachSecondaryPrice samples the European storefront region so admin
// imports carry more than one currency. Failures are logged and ignored.
func (s *catalogService) attachSecondaryPrice(ctx context.Context, game *models.CatalogGame) {
	if game.StoreID == nil {
		return
	}

	record, err := s.pricing.GetDetails(ctx, *game.StoreID, euRegion)
	if err != nil {
		s.logger.Debug("Secondary region price unavailable",
			zap.Int64("store_id", *game.StoreID),
			zap.Error(err))
		return
	}
	if record == nil || record.Price == nil {
		return
	}

	if game.Prices == nil {
		game.Prices = make(map[string]models.PricePoint)
	}
	game.Prices[record.Price.Currency] = models.PricePoint{
		Price:           record.Price.Final,
		OriginalPrice:   record.Price.Initial,
		DiscountPercent: record.Price.DiscountPercent,
	}
}
