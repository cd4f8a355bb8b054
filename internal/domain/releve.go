package domain

import (
	"context"
	"time"

	"github.com/paulmach/orb/geojson"
)

// Releve is one field survey record (occurrence relevé).
type Releve struct {
	ID        int64
	DatasetID int64
	TaxonCode int64
	NomCite   string
	DateMin   time.Time
	DateMax   time.Time
	Observers []string
	Comment   string
}

// ReleveFilter narrows a releve listing. Zero values mean "no filter".
type ReleveFilter struct {
	Limit     int
	Page      int
	TaxonCode int64
	Observer  string
	DateLow   time.Time
	DateUp    time.Time
}

// RelevePage is one page of releves rendered as a feature collection,
// with counts before and after filtering.
type RelevePage struct {
	Items         *geojson.FeatureCollection `json:"items"`
	Total         int64                      `json:"total"`
	TotalFiltered int64                      `json:"total_filtered"`
	Page          int                        `json:"page"`
	Limit         int                        `json:"limit"`
}

// ReleveRepository is the occurrence store backing the overlay payloads.
type ReleveRepository interface {
	List(ctx context.Context, filter ReleveFilter) (*RelevePage, error)
	Insert(ctx context.Context, feature *geojson.Feature) (*geojson.Feature, error)
	Delete(ctx context.Context, id int64) error
}
