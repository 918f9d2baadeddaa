package models

import (
	"time"

	"github.com/google/uuid"
)

// CatalogGame is a persisted catalog entry. Title is unique across the
// catalog; the unique index is the only concurrency guard for eager imports.
type CatalogGame struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Genres      []string  `json:"genres"`
	Platforms   []string  `json:"platforms"`
	Developer   string    `json:"developer,omitempty"`
	Publisher   string    `json:"publisher,omitempty"`
	CoverURL    string    `json:"cover_url,omitempty"`
	Description string    `json:"description,omitempty"`
	ReleaseDate string    `json:"release_date,omitempty"`

	// Score is a 0-10 aggregate user score; CriticScore is 0-100.
	Score       float64 `json:"score"`
	CriticScore int     `json:"critic_score"`

	Screenshots []string `json:"screenshots,omitempty"`

	// MetadataID is the metadata provider's identifier, StoreID the pricing
	// provider's. Both are optional; they are distinct identifier spaces.
	MetadataID *int64 `json:"metadata_id,omitempty"`
	StoreID    *int64 `json:"store_id,omitempty"`

	// Pricing fields. A record without a store id is free/unpriced, not
	// "price unknown".
	Price           float64 `json:"price"`
	Currency        string  `json:"currency,omitempty"`
	DiscountPercent int     `json:"discount_percent"`
	OnSale          bool    `json:"on_sale"`
	OriginalPrice   float64 `json:"original_price"`

	// Prices holds optional per-currency price points (keyed "USD", "EUR").
	Prices map[string]PricePoint `json:"prices,omitempty"`

	InLibrary bool `json:"in_library"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PricePoint is one currency's view of a game's price.
type PricePoint struct {
	Price           float64 `json:"price"`
	OriginalPrice   float64 `json:"original_price"`
	DiscountPercent int     `json:"discount_percent"`
}

// IsPriced reports whether the game carries storefront pricing data.
func (g *CatalogGame) IsPriced() bool {
	return g.StoreID != nil && g.Price > 0
}

// UnifiedSearchResult is the discovery response projection of a CatalogGame.
// It is created per request and never persisted.
type UnifiedSearchResult struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Genres      []string  `json:"genres"`
	Platforms   []string  `json:"platforms"`
	Developer   string    `json:"developer,omitempty"`
	CoverURL    string    `json:"cover_url,omitempty"`
	ReleaseDate string    `json:"release_date,omitempty"`
	Score       float64   `json:"score"`
	Price       float64   `json:"price"`
	Currency    string    `json:"currency,omitempty"`
	OnSale      bool      `json:"on_sale"`

	// IsExternal is false for every result once eager import has run; it is
	// kept for response compatibility.
	IsExternal bool `json:"is_external"`
	InLibrary  bool `json:"in_library"`
}

// NewUnifiedSearchResult projects a catalog game into the discovery DTO.
func NewUnifiedSearchResult(g *CatalogGame) UnifiedSearchResult {
	return UnifiedSearchResult{
		ID:          g.ID,
		Title:       g.Title,
		Genres:      g.Genres,
		Platforms:   g.Platforms,
		Developer:   g.Developer,
		CoverURL:    g.CoverURL,
		ReleaseDate: g.ReleaseDate,
		Score:       g.Score,
		Price:       g.Price,
		Currency:    g.Currency,
		OnSale:      g.OnSale,
		IsExternal:  false,
		InLibrary:   g.InLibrary,
	}
}
