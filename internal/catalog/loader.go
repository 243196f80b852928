// Package catalog owns the in-memory anime catalog: loading it from the
// enriched JSON file, indexing it, filtering it into the served catalogs,
// and searching it.
package catalog

import (
	"bytes"
	"compress/gzip"
	"encoding/json/v2"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/haruapp/haru-server/internal/domain"
)

// gzipMagic identifies a gzip stream regardless of file extension.
var gzipMagic = []byte{0x1f, 0x8b}

// looseFile mirrors the envelope the refresh pipeline writes, with the
// records kept raw so the normalizer can absorb older field spellings.
type looseFile struct {
	BuildDate string              `json:"buildDate"`
	Version   string              `json:"version"`
	Source    string              `json:"source"`
	Catalog   []map[string]any    `json:"catalog"`
	Stats     domain.CatalogStats `json:"stats"`
}

// parseCatalog decodes a catalog file payload. It accepts the current
// envelope shape and the bare top-level array written by earlier
// pipeline versions, gzip-compressed or plain.
func parseCatalog(data []byte) (domain.CatalogFile, error) {
	if bytes.HasPrefix(data, gzipMagic) {
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return domain.CatalogFile{}, fmt.Errorf("open gzip catalog: %w", err)
		}
		defer zr.Close()

		raw, err := io.ReadAll(zr)
		if err != nil {
			return domain.CatalogFile{}, fmt.Errorf("read gzip catalog: %w", err)
		}
		data = raw
	}

	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return domain.CatalogFile{}, fmt.Errorf("catalog file is empty")
	}

	var file looseFile
	if trimmed[0] == '[' {
		// Bare array from a pre-envelope build.
		if err := json.Unmarshal(trimmed, &file.Catalog); err != nil {
			return domain.CatalogFile{}, fmt.Errorf("parse catalog array: %w", err)
		}
	} else {
		if err := json.Unmarshal(trimmed, &file); err != nil {
			return domain.CatalogFile{}, fmt.Errorf("parse catalog envelope: %w", err)
		}
	}

	records := make([]domain.AnimeRecord, 0, len(file.Catalog))
	for _, raw := range file.Catalog {
		record, ok := normalizeRecord(raw)
		if !ok {
			continue
		}
		records = append(records, record)
	}

	out := domain.CatalogFile{
		BuildDate: file.BuildDate,
		Version:   file.Version,
		Source:    file.Source,
		Stats:     file.Stats,
		Catalog:   records,
	}
	if out.Stats.Total == 0 {
		out.Stats = countStats(records)
	}
	return out, nil
}

// parseFilters decodes the precomputed facet file.
func parseFilters(data []byte) (domain.FilterOptions, error) {
	var file domain.FacetFile
	if err := json.Unmarshal(data, &file); err != nil {
		return domain.FilterOptions{}, fmt.Errorf("parse filters: %w", err)
	}
	return file.Options(), nil
}

func countStats(records []domain.AnimeRecord) domain.CatalogStats {
	stats := domain.CatalogStats{Total: len(records)}
	for i := range records {
		if records[i].IsMovie() {
			stats.Movies++
		} else {
			stats.Series++
		}
	}
	return stats
}

// normalizeRecord converts one raw catalog entry into the canonical
// record. It is the only place loose field spellings and types are
// tolerated; everything downstream sees the canonical shape. Records
// with no usable identity or no name are dropped.
func normalizeRecord(raw map[string]any) (domain.AnimeRecord, bool) {
	r := domain.AnimeRecord{
		ID:          str(raw, "id"),
		ImdbID:      str(raw, "imdb_id", "imdbId", "imdb"),
		MalID:       num(raw, "mal_id", "malId"),
		KitsuID:     num(raw, "kitsu_id", "kitsuId"),
		AnilistID:   num(raw, "anilist_id", "anilistId"),
		TmdbID:      num(raw, "tmdb_id", "tmdbId"),
		Name:        str(raw, "name", "title"),
		Description: str(raw, "description", "overview", "synopsis"),
		Genres:      strs(raw, "genres"),
		Studios:     strs(raw, "studios"),
		Aliases:     strs(raw, "aliases", "alt_titles", "altTitles"),

		Subtype:      domain.ParseSubtype(str(raw, "subtype", "type", "format")),
		Status:       domain.ParseStatus(str(raw, "status", "airing_status", "airingStatus")),
		Year:         num(raw, "year"),
		Season:       domain.ParseSeason(str(raw, "season")),
		BroadcastDay: normalizeWeekday(str(raw, "broadcast_day", "broadcastDay", "weekday")),
		StartDate:    str(raw, "start_date", "startDate"),
		EndDate:      str(raw, "end_date", "endDate"),

		Poster:     str(raw, "poster", "poster_image", "posterImage"),
		PosterBlur: str(raw, "poster_blur", "posterBlur"),
		Background: str(raw, "background", "cover_image", "coverImage"),
		Logo:       str(raw, "logo"),

		EpisodeCount:   num(raw, "episode_count", "episodeCount", "episodes"),
		RuntimeMinutes: runtimeMinutes(raw),
	}

	if rating, ok := ratingValue(raw); ok {
		r.Rating = &rating
	}

	if r.ID == "" {
		if r.MalID == 0 {
			return domain.AnimeRecord{}, false
		}
		r.ID = domain.MalFallbackID(r.MalID)
	}
	if r.Name == "" {
		return domain.AnimeRecord{}, false
	}

	return r, true
}

// str returns the first non-empty string under any of the keys.
func str(raw map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := raw[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

// num coerces the first present value to an int, accepting JSON numbers
// and numeric strings.
func num(raw map[string]any, keys ...string) int {
	for _, key := range keys {
		v, ok := raw[key]
		if !ok || v == nil {
			continue
		}
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		case string:
			if parsed, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
				return parsed
			}
		}
	}
	return 0
}

// strs collects a string list under any of the keys, skipping empties.
func strs(raw map[string]any, keys ...string) []string {
	for _, key := range keys {
		v, ok := raw[key]
		if !ok {
			continue
		}
		items, ok := v.([]any)
		if !ok {
			continue
		}
		out := make([]string, 0, len(items))
		for _, item := range items {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

// ratingValue coerces a rating to the 0-10 scale. Kitsu reports
// percentages, so values above 10 are divided down.
func ratingValue(raw map[string]any) (float64, bool) {
	for _, key := range []string{"rating", "score", "average_rating", "averageRating"} {
		v, ok := raw[key]
		if !ok || v == nil {
			continue
		}
		var rating float64
		switch n := v.(type) {
		case float64:
			rating = n
		case string:
			parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
			if err != nil {
				continue
			}
			rating = parsed
		default:
			continue
		}
		if rating <= 0 {
			continue
		}
		if rating > 10 {
			rating /= 10
		}
		return rating, true
	}
	return 0, false
}

// runtimeMinutes coerces a runtime to whole minutes. Sources report
// numbers, numeric strings, and prose like "24 min" or "1 hr 45 min".
func runtimeMinutes(raw map[string]any) int {
	for _, key := range []string{"runtime_minutes", "runtimeMinutes", "runtime", "episode_length", "episodeLength"} {
		v, ok := raw[key]
		if !ok || v == nil {
			continue
		}
		switch n := v.(type) {
		case float64:
			return int(n)
		case string:
			if minutes := parseRuntimeString(n); minutes > 0 {
				return minutes
			}
		}
	}
	return 0
}

// parseRuntimeString handles the prose runtime forms: "24", "24 min",
// "1 hr", "1 hr 45 min", "2 hours".
func parseRuntimeString(s string) int {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(s)))
	if len(fields) == 0 {
		return 0
	}

	// Plain number means minutes.
	if len(fields) == 1 {
		if n, err := strconv.Atoi(fields[0]); err == nil {
			return n
		}
		return 0
	}

	total := 0
	for i := 0; i+1 < len(fields); i += 2 {
		n, err := strconv.Atoi(fields[i])
		if err != nil {
			return 0
		}
		unit := fields[i+1]
		switch {
		case strings.HasPrefix(unit, "hr"), strings.HasPrefix(unit, "hour"):
			total += n * 60
		case strings.HasPrefix(unit, "min"):
			total += n
		default:
			return 0
		}
	}
	return total
}

// normalizeWeekday maps source weekday spellings ("Mondays", "monday")
// onto the canonical singular capitalized form.
func normalizeWeekday(s string) string {
	day := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "s")
	switch day {
	case "monday":
		return "Monday"
	case "tuesday":
		return "Tuesday"
	case "wednesday":
		return "Wednesday"
	case "thursday":
		return "Thursday"
	case "friday":
		return "Friday"
	case "saturday":
		return "Saturday"
	case "sunday":
		return "Sunday"
	default:
		return ""
	}
}
