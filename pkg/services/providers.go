// Package services contains the business logic for catalog aggregation
// and discovery.
package services

import (
	"context"

	"github.com/gameshelf-io/gameshelf-engine/pkg/models"
	"github.com/gameshelf-io/gameshelf-engine/pkg/providers/metadata"
	"github.com/gameshelf-io/gameshelf-engine/pkg/providers/pricing"
)

// MetadataProvider is the slice of the metadata client the services need.
type MetadataProvider interface {
	Search(ctx context.Context, query string, limit int) ([]models.MetadataSummary, error)
	GetDetails(ctx context.Context, id int64) (*models.MetadataRecord, error)
	GetScreenshots(ctx context.Context, id int64) []string
}

// PricingProvider is the slice of the pricing client the services need.
type PricingProvider interface {
	SearchByName(ctx context.Context, title string) (int64, bool)
	GetDetails(ctx context.Context, storeID int64, region string) (*models.PricingRecord, error)
}

var (
	_ MetadataProvider = (*metadata.Client)(nil)
	_ PricingProvider  = (*pricing.Client)(nil)
)
