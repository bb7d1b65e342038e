package models

import (
	"time"
)

// PageStatus represents the publication state of a generated page
type PageStatus string

const (
	PageStatusDraft     PageStatus = "draft"
	PageStatusPublished PageStatus = "published"
)

// GeoLevel identifies the geography level a page is generated for
type GeoLevel string

const (
	GeoLevelState GeoLevel = "state"
	GeoLevelCity  GeoLevel = "city"
	GeoLevelNone  GeoLevel = ""
)

// Page is one generated marketing page. Slug is the natural key; the unique
// index is the sole arbiter of cross-job duplicate races.
type Page struct {
	ID   string `json:"id" badgerhold:"key"`
	Slug string `json:"slug" badgerhold:"unique"`

	Title           string `json:"title"`
	MetaTitle       string `json:"meta_title,omitempty"`
	MetaDescription string `json:"meta_description,omitempty"`

	CategoryID string   `json:"category_id,omitempty"`
	StateID    string   `json:"state_id,omitempty"`
	CityID     string   `json:"city_id,omitempty"`
	GeoLevel   GeoLevel `json:"geo_level,omitempty"`

	// Custom holds projected spreadsheet fields for CSV-sourced pages
	Custom map[string]string `json:"custom,omitempty"`

	Status      PageStatus `json:"status"`
	IsPublished bool       `json:"is_published"`
	PublishedAt *time.Time `json:"published_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
