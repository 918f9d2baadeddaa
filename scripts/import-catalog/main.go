// import-catalog bulk-loads games from the metadata provider into the
// catalog, with pricing attached where the storefront knows the title.
//
// Two selection modes:
//   - popularity (default): pages through the provider's top-rated games
//   - date range: -from/-to select games released in a window
//
// Usage:
//
//	go run ./scripts/import-catalog [-pages 3] [-page-size 40] [-genre action]
//	go run ./scripts/import-catalog -from 2024-01-01 -to 2024-12-31
//
// Configuration comes from config.yaml and the usual environment variables
// (METADATA_API_KEY is required).
//
// Flags:
//
//	-dry-run   List what would be imported without writing (default: false)
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/gameshelf-io/gameshelf-engine/pkg/cache"
	"github.com/gameshelf-io/gameshelf-engine/pkg/config"
	"github.com/gameshelf-io/gameshelf-engine/pkg/database"
	"github.com/gameshelf-io/gameshelf-engine/pkg/models"
	"github.com/gameshelf-io/gameshelf-engine/pkg/providers/metadata"
	"github.com/gameshelf-io/gameshelf-engine/pkg/providers/pricing"
	"github.com/gameshelf-io/gameshelf-engine/pkg/repositories"
	"github.com/gameshelf-io/gameshelf-engine/pkg/services"
)

func main() {
	pages := flag.Int("pages", 3, "Number of provider pages to fetch")
	pageSize := flag.Int("page-size", 40, "Games per provider page")
	genre := flag.String("genre", "", "Restrict popularity mode to a genre slug")
	from := flag.String("from", "", "Release window start (YYYY-MM-DD)")
	to := flag.String("to", "", "Release window end (YYYY-MM-DD)")
	dryRun := flag.Bool("dry-run", false, "List what would be imported without writing")
	flag.Parse()

	if (*from == "") != (*to == "") {
		fmt.Fprintln(os.Stderr, "-from and -to must be used together")
		os.Exit(1)
	}

	cfg, err := config.Load("import-catalog")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	logger := zap.NewNop()

	db, err := database.NewConnection(ctx, &cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	// A process-local cache is enough for a one-shot bulk run.
	providerCache := cache.NewMemory()
	metadataClient := metadata.NewClient(&cfg.Metadata, providerCache, logger)
	pricingClient := pricing.NewClient(&cfg.Pricing, providerCache, logger)
	aggregator := services.NewAggregatorService(metadataClient, pricingClient, logger)
	repo := repositories.NewGameRepository(db)

	var imported, skipped, failed int
	for page := 1; page <= *pages; page++ {
		summaries, err := fetchPage(ctx, metadataClient, page, *pageSize, *genre, *from, *to)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to fetch page %d: %v\n", page, err)
			os.Exit(1)
		}
		if len(summaries) == 0 {
			break
		}

		for _, summary := range summaries {
			switch importOne(ctx, repo, aggregator, summary, *dryRun) {
			case outcomeImported:
				imported++
			case outcomeSkipped:
				skipped++
			case outcomeFailed:
				failed++
			}
		}
	}

	fmt.Printf("\nDone: %d imported, %d skipped, %d failed\n", imported, skipped, failed)
	if failed > 0 {
		os.Exit(1)
	}
}

func fetchPage(ctx context.Context, client *metadata.Client, page, pageSize int, genre, from, to string) ([]models.MetadataSummary, error) {
	if from != "" {
		return client.FetchByDateRange(ctx, from, to, page, pageSize)
	}
	return client.FetchPopular(ctx, page, pageSize, genre)
}

type outcome int

const (
	outcomeImported outcome = iota
	outcomeSkipped
	outcomeFailed
)

func importOne(ctx context.Context, repo repositories.GameRepository, aggregator services.AggregatorService, summary models.MetadataSummary, dryRun bool) outcome {
	exists, err := repo.ExistsByMetadataID(ctx, summary.ID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "  FAIL %s: %v\n", summary.Name, err)
		return outcomeFailed
	}
	if exists {
		fmt.Printf("  skip %s (already in catalog)\n", summary.Name)
		return outcomeSkipped
	}

	if dryRun {
		fmt.Printf("  would import %s (metadata id %d)\n", summary.Name, summary.ID)
		return outcomeImported
	}

	game, err := aggregator.Aggregate(ctx, summary.ID, 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "  FAIL %s: %v\n", summary.Name, err)
		return outcomeFailed
	}

	if err := repo.Upsert(ctx, game); err != nil {
		fmt.Fprintf(os.Stderr, "  FAIL %s: %v\n", summary.Name, err)
		return outcomeFailed
	}

	if game.IsPriced() {
		fmt.Printf("  imported %s (%.2f %s)\n", game.Title, game.Price, game.Currency)
	} else {
		fmt.Printf("  imported %s (unpriced)\n", game.Title)
	}
	return outcomeImported
}
