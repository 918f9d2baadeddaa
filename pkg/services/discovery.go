package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"unicode"

	"go.uber.org/zap"

	"github.com/gameshelf-io/gameshelf-engine/pkg/apperrors"
	"github.com/gameshelf-io/gameshelf-engine/pkg/config"
	"github.com/gameshelf-io/gameshelf-engine/pkg/models"
	"github.com/gameshelf-io/gameshelf-engine/pkg/repositories"
)

// Result sources reported by discovery responses.
const (
	// SourceLocal means only the local catalog was consulted.
	SourceLocal = "local"
	// SourceMixed means remote candidates were considered, whether or not
	// any were imported.
	SourceMixed = "mixed"
)

// DiscoveryResult is the unified search response.
type DiscoveryResult struct {
	Results []models.UnifiedSearchResult `json:"results"`
	Source  string                       `json:"source"`
}

// DiscoveryService answers unified search queries, eagerly importing remote
// matches the catalog has not seen before.
type DiscoveryService interface {
	// SearchAndSync searches the local catalog and the metadata provider,
	// imports novel remote candidates, and returns the merged result set.
	// Queries shorter than the configured minimum return an empty local
	// result without touching the database or the provider.
	SearchAndSync(ctx context.Context, query string, filters models.GameFilters) (*DiscoveryResult, error)
}

type discoveryService struct {
	repo       repositories.GameRepository
	metadata   MetadataProvider
	aggregator AggregatorService
	cfg        config.DiscoveryConfig
	logger     *zap.Logger
}

// NewDiscoveryService creates a new DiscoveryService.
func NewDiscoveryService(
	repo repositories.GameRepository,
	meta MetadataProvider,
	aggregator AggregatorService,
	cfg config.DiscoveryConfig,
	logger *zap.Logger,
) DiscoveryService {
	return &discoveryService{
		repo:       repo,
		metadata:   meta,
		aggregator: aggregator,
		cfg:        cfg,
		logger:     logger.Named("discovery"),
	}
}

var _ DiscoveryService = (*discoveryService)(nil)

func (s *discoveryService) SearchAndSync(ctx context.Context, query string, filters models.GameFilters) (*DiscoveryResult, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < s.cfg.MinQueryLength {
		return &DiscoveryResult{Results: []models.UnifiedSearchResult{}, Source: SourceLocal}, nil
	}

	locals, err := s.repo.Search(ctx, query, filters, s.cfg.LocalLimit)
	if err != nil {
		return nil, err
	}

	candidates, err := s.metadata.Search(ctx, query, s.cfg.RemoteLimit)
	if err != nil {
		// Remote degradation: the local catalog still answers the query.
		s.logger.Warn("Remote search unavailable, serving local results only",
			zap.String("query", query),
			zap.Error(err))
		return &DiscoveryResult{Results: projectGames(locals), Source: SourceLocal}, nil
	}

	novel := filterNovel(candidates, locals)
	imported := s.importCandidates(ctx, novel)

	results := projectGames(locals)
	for _, game := range imported {
		if matchesFilters(game, filters) {
			results = append(results, models.NewUnifiedSearchResult(game))
		}
	}

	return &DiscoveryResult{Results: results, Source: SourceMixed}, nil
}

// filterNovel drops remote candidates the local result set already covers,
// matching by external id or by normalized title.
func filterNovel(candidates []models.MetadataSummary, locals []*models.CatalogGame) []models.MetadataSummary {
	knownIDs := make(map[int64]struct{}, len(locals))
	knownTitles := make(map[string]struct{}, len(locals))
	for _, g := range locals {
		if g.MetadataID != nil {
			knownIDs[*g.MetadataID] = struct{}{}
		}
		knownTitles[normalizeTitle(g.Title)] = struct{}{}
	}

	var novel []models.MetadataSummary
	for _, c := range candidates {
		if _, seen := knownIDs[c.ID]; seen {
			continue
		}
		if _, seen := knownTitles[normalizeTitle(c.Name)]; seen {
			continue
		}
		novel = append(novel, c)
	}
	return novel
}

// importCandidates aggregates and persists candidates concurrently. A
// failing candidate is logged and skipped; it never fails the search.
func (s *discoveryService) importCandidates(ctx context.Context, candidates []models.MetadataSummary) []*models.CatalogGame {
	if len(candidates) == 0 {
		return nil
	}

	var (
		mu       sync.Mutex
		imported []*models.CatalogGame
		wg       sync.WaitGroup
	)

	for _, candidate := range candidates {
		wg.Add(1)
		go func(c models.MetadataSummary) {
			defer wg.Done()

			if game := s.importOne(ctx, c); game != nil {
				mu.Lock()
				imported = append(imported, game)
				mu.Unlock()
			}
		}(candidate)
	}
	wg.Wait()

	// Goroutine completion order is not deterministic; callers get a
	// stable ordering instead.
	sort.Slice(imported, func(i, j int) bool {
		return imported[i].Title < imported[j].Title
	})

	return imported
}

func (s *discoveryService) importOne(ctx context.Context, candidate models.MetadataSummary) *models.CatalogGame {
	exists, err := s.repo.ExistsByMetadataID(ctx, candidate.ID)
	if err != nil {
		s.logger.Error("Failed to check candidate existence",
			zap.Int64("metadata_id", candidate.ID),
			zap.Error(err))
		return nil
	}
	if exists {
		return nil
	}

	game, err := s.aggregator.Aggregate(ctx, candidate.ID, 0)
	if err != nil {
		s.logger.Warn("Skipping candidate, aggregation failed",
			zap.Int64("metadata_id", candidate.ID),
			zap.String("name", candidate.Name),
			zap.Error(err))
		return nil
	}

	if err := s.repo.Upsert(ctx, game); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			// A concurrent request imported the same title first.
			s.logger.Debug("Candidate already imported concurrently",
				zap.String("title", game.Title))
		} else {
			s.logger.Error("Failed to persist imported game",
				zap.String("title", game.Title),
				zap.Error(err))
		}
		return nil
	}

	return game
}

// normalizeTitle lowercases and strips everything but letters and digits so
// "The Witcher 3: Wild Hunt" and "the witcher 3 wild hunt" compare equal.
func normalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// matchesFilters applies catalog filters to a freshly imported game. Values
// compare case-insensitively against the game's attributes.
func matchesFilters(game *models.CatalogGame, filters models.GameFilters) bool {
	if filters.IsZero() {
		return true
	}
	if filters.Genre != "" && !containsFold(game.Genres, filters.Genre) {
		return false
	}
	if filters.Platform != "" && !containsFold(game.Platforms, filters.Platform) {
		return false
	}
	if filters.Developer != "" && !strings.EqualFold(game.Developer, filters.Developer) {
		return false
	}
	return true
}

func containsFold(values []string, target string) bool {
	for _, v := range values {
		if strings.EqualFold(v, target) {
			return true
		}
	}
	return false
}

func projectGames(games []*models.CatalogGame) []models.UnifiedSearchResult {
	results := make([]models.UnifiedSearchResult, 0, len(games))
	for _, g := range games {
		results = append(results, models.NewUnifiedSearchResult(g))
	}
	return results
}
