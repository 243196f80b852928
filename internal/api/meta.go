package api

import (
	"fmt"
	"strconv"

	"github.com/haruapp/haru-server/internal/catalog"
	"github.com/haruapp/haru-server/internal/domain"
)

// Meta is the Stremio meta object served in catalog and meta responses.
// Field names follow the protocol's camelCase wire format.
type Meta struct {
	ID          string   `json:"id"`
	Type        string   `json:"type"`
	Name        string   `json:"name"`
	Poster      string   `json:"poster,omitempty"`
	Background  string   `json:"background,omitempty"`
	Logo        string   `json:"logo,omitempty"`
	Description string   `json:"description,omitempty"`
	ReleaseInfo string   `json:"releaseInfo,omitempty"`
	IMDBRating  string   `json:"imdbRating,omitempty"`
	Runtime     string   `json:"runtime,omitempty"`
	Genres      []string `json:"genres,omitempty"`
}

// CatalogResponse is the body of a catalog route. Metas is always an
// array on the wire, never null.
type CatalogResponse struct {
	Metas []Meta `json:"metas"`
}

// MetaResponse is the body of a meta route. Meta is null for ids the
// catalog does not carry.
type MetaResponse struct {
	Meta *Meta `json:"meta"`
}

// metaFromRecord converts a catalog record to the wire shape.
func metaFromRecord(r domain.AnimeRecord) Meta {
	m := Meta{
		ID:          r.ID,
		Type:        catalog.TypeSeries,
		Name:        r.Name,
		Poster:      r.Poster,
		Background:  r.Background,
		Logo:        r.Logo,
		Description: r.Description,
		ReleaseInfo: r.ReleaseInfo(),
		Genres:      r.Genres,
	}
	if r.IsMovie() {
		m.Type = catalog.TypeMovie
	}
	if r.Rating != nil {
		m.IMDBRating = strconv.FormatFloat(*r.Rating, 'f', 1, 64)
	}
	if r.RuntimeMinutes > 0 {
		m.Runtime = fmt.Sprintf("%d min", r.RuntimeMinutes)
	}
	return m
}

func metasFromRecords(records []domain.AnimeRecord) []Meta {
	metas := make([]Meta, len(records))
	for i := range records {
		metas[i] = metaFromRecord(records[i])
	}
	return metas
}
