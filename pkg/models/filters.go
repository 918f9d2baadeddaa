package models

// GameFilters narrows catalog queries. Empty fields match everything.
// Matching is case-insensitive.
type GameFilters struct {
	Genre     string `json:"genre,omitempty"`
	Platform  string `json:"platform,omitempty"`
	Developer string `json:"developer,omitempty"`
}

// IsZero reports whether no filter is set.
func (f GameFilters) IsZero() bool {
	return f.Genre == "" && f.Platform == "" && f.Developer == ""
}
