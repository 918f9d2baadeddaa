package services

import (
	"context"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/gameshelf-io/gameshelf-engine/pkg/models"
	"github.com/gameshelf-io/gameshelf-engine/pkg/providers/pricing"
)

// AggregatorService combines metadata and pricing provider records into a
// single catalog entry.
type AggregatorService interface {
	// Aggregate builds a catalog game from the given external metadata id.
	// storeID may be 0, in which case the pricing identifier is resolved
	// from the metadata record's store links or, failing that, a fuzzy
	// name search against the storefront. Metadata failures are fatal;
	// pricing failures degrade to an unpriced record.
	Aggregate(ctx context.Context, metadataID, storeID int64) (*models.CatalogGame, error)
}

type aggregatorService struct {
	metadata MetadataProvider
	pricing  PricingProvider
	logger   *zap.Logger
}

// NewAggregatorService creates a new AggregatorService.
func NewAggregatorService(meta MetadataProvider, price PricingProvider, logger *zap.Logger) AggregatorService {
	return &aggregatorService{
		metadata: meta,
		pricing:  price,
		logger:   logger.Named("aggregator"),
	}
}

var _ AggregatorService = (*aggregatorService)(nil)

func (s *aggregatorService) Aggregate(ctx context.Context, metadataID, storeID int64) (*models.CatalogGame, error) {
	record, err := s.metadata.GetDetails(ctx, metadataID)
	if err != nil {
		return nil, err
	}

	game := &models.CatalogGame{
		Title:       record.Name,
		Genres:      record.Genres,
		Platforms:   record.Platforms,
		Developer:   firstOrEmpty(record.Developers),
		Publisher:   firstOrEmpty(record.Publishers),
		CoverURL:    record.CoverURL,
		Description: record.Description,
		ReleaseDate: record.ReleaseDate,
		Score:       math.Round(record.Rating * 2), // provider rating is 0-5, catalog score is 0-10
		CriticScore: record.CriticScore,
		MetadataID:  &metadataID,
	}

	resolved, ok := s.resolveStoreID(ctx, record, storeID)
	if !ok {
		return game, nil
	}

	pricingRecord, err := s.pricing.GetDetails(ctx, resolved, pricing.DefaultRegion)
	if err != nil {
		s.logger.Warn("Pricing lookup failed, continuing unpriced",
			zap.Int64("store_id", resolved),
			zap.String("title", record.Name),
			zap.Error(err))
		return game, nil
	}
	if pricingRecord == nil {
		return game, nil
	}

	// Storefront confirmed the id even if the product is free or unpriced.
	game.StoreID = &resolved

	if po := pricingRecord.Price; po != nil {
		game.Price = po.Final
		game.Currency = po.Currency
		game.DiscountPercent = po.DiscountPercent
		game.OnSale = po.DiscountPercent > 0
		game.OriginalPrice = po.Initial
		game.Prices = map[string]models.PricePoint{
			po.Currency: {
				Price:           po.Final,
				OriginalPrice:   po.Initial,
				DiscountPercent: po.DiscountPercent,
			},
		}
	}

	return game, nil
}

// resolveStoreID picks the pricing identifier: an explicit id wins, then a
// parseable store link, then a fuzzy name search as the last resort.
func (s *aggregatorService) resolveStoreID(ctx context.Context, record *models.MetadataRecord, explicit int64) (int64, bool) {
	if explicit > 0 {
		return explicit, true
	}

	for _, link := range record.Stores {
		if !strings.Contains(strings.ToLower(link.Name), "steam") {
			continue
		}
		if id, ok := pricing.ExtractStoreID(link.URL); ok {
			return id, true
		}
	}

	if id, ok := s.pricing.SearchByName(ctx, record.Name); ok {
		return id, true
	}

	s.logger.Debug("No storefront match for game", zap.String("title", record.Name))
	return 0, false
}

func firstOrEmpty(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
