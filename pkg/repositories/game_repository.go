package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/gameshelf-io/gameshelf-engine/pkg/apperrors"
	"github.com/gameshelf-io/gameshelf-engine/pkg/database"
	"github.com/gameshelf-io/gameshelf-engine/pkg/models"
)

// GameRepository provides data access for the game catalog.
type GameRepository interface {
	// Upsert inserts a game or, on a title conflict, refreshes the existing
	// row's metadata and pricing fields. The game's ID and timestamps are
	// populated from the database.
	Upsert(ctx context.Context, game *models.CatalogGame) error

	// GetByID returns a game or apperrors.ErrNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (*models.CatalogGame, error)

	// GetByMetadataID returns the game holding the given external metadata
	// id, or nil when no such game exists.
	GetByMetadataID(ctx context.Context, metadataID int64) (*models.CatalogGame, error)

	// ExistsByMetadataID reports whether a game with the given external
	// metadata id is already in the catalog.
	ExistsByMetadataID(ctx context.Context, metadataID int64) (bool, error)

	// Search performs a case-insensitive substring match across title,
	// genres, developer and platforms, narrowed by filters, ordered by
	// in_library descending then id ascending for stable result sets.
	Search(ctx context.Context, query string, filters models.GameFilters, limit int) ([]*models.CatalogGame, error)

	// TextSearch ranks games against the weighted full-text index
	// (title weighted highest).
	TextSearch(ctx context.Context, query string, limit int) ([]*models.CatalogGame, error)

	// List returns a page of the catalog, newest first.
	List(ctx context.Context, filters models.GameFilters, limit, offset int) ([]*models.CatalogGame, error)

	// Delete removes a game or returns apperrors.ErrNotFound.
	Delete(ctx context.Context, id uuid.UUID) error
}

type gameRepository struct {
	db *database.DB
}

// NewGameRepository creates a new GameRepository.
func NewGameRepository(db *database.DB) GameRepository {
	return &gameRepository{db: db}
}

var _ GameRepository = (*gameRepository)(nil)

// gameColumns is the column list every scan in this file follows.
const gameColumns = `
	id, title, genres, platforms, developer, publisher, cover_url,
	description, release_date, score, critic_score, screenshots,
	metadata_id, store_id, price, currency, discount_percent, on_sale,
	original_price, prices, in_library, created_at, updated_at`

// ============================================================================
// Writes
// ============================================================================

func (r *gameRepository) Upsert(ctx context.Context, game *models.CatalogGame) error {
	prices, err := pricesValue(game.Prices)
	if err != nil {
		return fmt.Errorf("failed to encode price map: %w", err)
	}

	now := time.Now()

	query := `
		INSERT INTO games (
			title, genres, platforms, developer, publisher, cover_url,
			description, release_date, score, critic_score, screenshots,
			metadata_id, store_id, price, currency, discount_percent, on_sale,
			original_price, prices, in_library, genres_text, platforms_text,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22, $23, $23
		)
		ON CONFLICT (title) DO UPDATE SET
			genres = EXCLUDED.genres,
			platforms = EXCLUDED.platforms,
			developer = EXCLUDED.developer,
			publisher = EXCLUDED.publisher,
			cover_url = EXCLUDED.cover_url,
			description = EXCLUDED.description,
			release_date = EXCLUDED.release_date,
			score = EXCLUDED.score,
			critic_score = EXCLUDED.critic_score,
			screenshots = EXCLUDED.screenshots,
			metadata_id = EXCLUDED.metadata_id,
			store_id = EXCLUDED.store_id,
			price = EXCLUDED.price,
			currency = EXCLUDED.currency,
			discount_percent = EXCLUDED.discount_percent,
			on_sale = EXCLUDED.on_sale,
			original_price = EXCLUDED.original_price,
			prices = EXCLUDED.prices,
			genres_text = EXCLUDED.genres_text,
			platforms_text = EXCLUDED.platforms_text,
			updated_at = EXCLUDED.updated_at
		RETURNING id, in_library, created_at, updated_at`

	err = r.db.QueryRow(ctx, query,
		game.Title,
		game.Genres,
		game.Platforms,
		game.Developer,
		game.Publisher,
		game.CoverURL,
		game.Description,
		game.ReleaseDate,
		game.Score,
		game.CriticScore,
		game.Screenshots,
		game.MetadataID,
		game.StoreID,
		game.Price,
		game.Currency,
		game.DiscountPercent,
		game.OnSale,
		game.OriginalPrice,
		prices,
		game.InLibrary,
		strings.Join(game.Genres, " "),
		strings.Join(game.Platforms, " "),
		now,
	).Scan(&game.ID, &game.InLibrary, &game.CreatedAt, &game.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperrors.ErrConflict
		}
		return fmt.Errorf("failed to upsert game: %w", err)
	}

	return nil
}

func (r *gameRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Exec(ctx, `DELETE FROM games WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete game: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// ============================================================================
// Reads
// ============================================================================

func (r *gameRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.CatalogGame, error) {
	query := `SELECT ` + gameColumns + ` FROM games WHERE id = $1`

	game, err := scanGame(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}

	return game, nil
}

func (r *gameRepository) GetByMetadataID(ctx context.Context, metadataID int64) (*models.CatalogGame, error) {
	query := `SELECT ` + gameColumns + ` FROM games WHERE metadata_id = $1 LIMIT 1`

	game, err := scanGame(r.db.QueryRow(ctx, query, metadataID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // No game holds this metadata id
		}
		return nil, err
	}

	return game, nil
}

func (r *gameRepository) ExistsByMetadataID(ctx context.Context, metadataID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM games WHERE metadata_id = $1)`,
		metadataID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check metadata id %d: %w", metadataID, err)
	}
	return exists, nil
}

func (r *gameRepository) Search(ctx context.Context, query string, filters models.GameFilters, limit int) ([]*models.CatalogGame, error) {
	pattern := "%" + query + "%"

	sql := `
		SELECT ` + gameColumns + `
		FROM games
		WHERE (
			title ILIKE $1
			OR developer ILIKE $1
			OR EXISTS (SELECT 1 FROM unnest(genres) g WHERE g ILIKE $1)
			OR EXISTS (SELECT 1 FROM unnest(platforms) p WHERE p ILIKE $1)
		)
		AND ($2 = '' OR EXISTS (SELECT 1 FROM unnest(genres) fg WHERE fg ILIKE $2))
		AND ($3 = '' OR EXISTS (SELECT 1 FROM unnest(platforms) fp WHERE fp ILIKE $3))
		AND ($4 = '' OR developer ILIKE $4)
		ORDER BY in_library DESC, id ASC
		LIMIT $5`

	rows, err := r.db.Query(ctx, sql, pattern, filters.Genre, filters.Platform, filters.Developer, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search games: %w", err)
	}
	defer rows.Close()

	return collectGames(rows)
}

func (r *gameRepository) TextSearch(ctx context.Context, query string, limit int) ([]*models.CatalogGame, error) {
	sql := `
		SELECT ` + gameColumns + `
		FROM games
		WHERE search_vector @@ plainto_tsquery('english', $1)
		ORDER BY ts_rank(search_vector, plainto_tsquery('english', $1)) DESC, id ASC
		LIMIT $2`

	rows, err := r.db.Query(ctx, sql, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to text-search games: %w", err)
	}
	defer rows.Close()

	return collectGames(rows)
}

func (r *gameRepository) List(ctx context.Context, filters models.GameFilters, limit, offset int) ([]*models.CatalogGame, error) {
	sql := `
		SELECT ` + gameColumns + `
		FROM games
		WHERE ($1 = '' OR EXISTS (SELECT 1 FROM unnest(genres) fg WHERE fg ILIKE $1))
		AND ($2 = '' OR EXISTS (SELECT 1 FROM unnest(platforms) fp WHERE fp ILIKE $2))
		AND ($3 = '' OR developer ILIKE $3)
		ORDER BY created_at DESC, id ASC
		LIMIT $4 OFFSET $5`

	rows, err := r.db.Query(ctx, sql, filters.Genre, filters.Platform, filters.Developer, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	defer rows.Close()

	return collectGames(rows)
}

// ============================================================================
// Helper Functions
// ============================================================================

func collectGames(rows pgx.Rows) ([]*models.CatalogGame, error) {
	var games []*models.CatalogGame
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		games = append(games, game)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating games: %w", err)
	}

	return games, nil
}

func scanGame(row pgx.Row) (*models.CatalogGame, error) {
	var g models.CatalogGame
	var prices []byte

	err := row.Scan(
		&g.ID,
		&g.Title,
		&g.Genres,
		&g.Platforms,
		&g.Developer,
		&g.Publisher,
		&g.CoverURL,
		&g.Description,
		&g.ReleaseDate,
		&g.Score,
		&g.CriticScore,
		&g.Screenshots,
		&g.MetadataID,
		&g.StoreID,
		&g.Price,
		&g.Currency,
		&g.DiscountPercent,
		&g.OnSale,
		&g.OriginalPrice,
		&prices,
		&g.InLibrary,
		&g.CreatedAt,
		&g.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan game: %w", err)
	}

	if len(prices) > 0 && string(prices) != "null" {
		if err := json.Unmarshal(prices, &g.Prices); err != nil {
			return nil, fmt.Errorf("failed to unmarshal price map: %w", err)
		}
	}

	return &g, nil
}

// pricesValue converts a price map to JSONB for insertion.
// Returns nil for empty maps to store NULL in the database.
func pricesValue(prices map[string]models.PricePoint) ([]byte, error) {
	if len(prices) == 0 {
		return nil, nil
	}
	return json.Marshal(prices)
}
