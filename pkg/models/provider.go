package models

// MetadataSummary is a search/listing hit from the metadata provider.
type MetadataSummary struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Released string  `json:"released,omitempty"`
	CoverURL string  `json:"cover_url,omitempty"`
	Rating   float64 `json:"rating"`
}

// StoreLink is a (store name, product URL) pair from a metadata record.
type StoreLink struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// MetadataRecord is a full detail record from the metadata provider.
// Rating is on the provider's 0-5 scale; CriticScore is 0-100.
// Records are transient: fetched on demand, cached by id, discarded after
// aggregation into a CatalogGame.
type MetadataRecord struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	CoverURL    string      `json:"cover_url,omitempty"`
	Rating      float64     `json:"rating"`
	CriticScore int         `json:"critic_score"`
	Genres      []string    `json:"genres,omitempty"`
	Platforms   []string    `json:"platforms,omitempty"`
	Developers  []string    `json:"developers,omitempty"`
	Publishers  []string    `json:"publishers,omitempty"`
	ReleaseDate string      `json:"release_date,omitempty"`
	Website     string      `json:"website,omitempty"`
	Stores      []StoreLink `json:"stores,omitempty"`
}

// PriceOverview carries normalized (major-unit) storefront pricing.
type PriceOverview struct {
	Currency        string  `json:"currency"`
	Initial         float64 `json:"initial"`
	Final           float64 `json:"final"`
	DiscountPercent int     `json:"discount_percent"`
}

// PricingRecord is a transient price lookup result from the pricing provider.
// A nil Price with IsFree unset means the storefront lists the product
// without a price overview.
type PricingRecord struct {
	Name   string         `json:"name"`
	IsFree bool           `json:"is_free"`
	Price  *PriceOverview `json:"price,omitempty"`
}
