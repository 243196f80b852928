package domain

import "time"

// CatalogStats summarizes a catalog build.
type CatalogStats struct {
	Total  int `json:"total"`
	Series int `json:"series"`
	Movies int `json:"movies"`
}

// CatalogFile is the envelope the refresh pipeline writes and the server
// loads. Older catalogs were a bare top-level array; the loader accepts
// both shapes.
type CatalogFile struct {
	BuildDate string        `json:"buildDate"`
	Version   string        `json:"version"`
	Source    string        `json:"source"`
	Stats     CatalogStats  `json:"stats"`
	Catalog   []AnimeRecord `json:"catalog"`
}

// NewCatalogFile assembles the envelope around a record set, computing
// the stats from the classification split.
func NewCatalogFile(version, source string, records []AnimeRecord) CatalogFile {
	stats := CatalogStats{Total: len(records)}
	for i := range records {
		if records[i].IsMovie() {
			stats.Movies++
		} else {
			stats.Series++
		}
	}
	return CatalogFile{
		BuildDate: time.Now().UTC().Format(time.RFC3339),
		Version:   version,
		Source:    source,
		Stats:     stats,
		Catalog:   records,
	}
}
