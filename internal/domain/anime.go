// Package domain contains the core entities and classification logic for the Haru anime catalog.
package domain

import (
	"fmt"
	"strings"
)

// Subtype is the Kitsu-style format classification of a title.
type Subtype string

const (
	SubtypeTV      Subtype = "TV"
	SubtypeMovie   Subtype = "movie"
	SubtypeOVA     Subtype = "OVA"
	SubtypeONA     Subtype = "ONA"
	SubtypeSpecial Subtype = "special"
	SubtypeMusic   Subtype = "music"
)

// ParseSubtype normalizes a source-provided subtype string.
// Unknown values fall back to TV so a record still lands in a catalog.
func ParseSubtype(s string) Subtype {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tv":
		return SubtypeTV
	case "movie":
		return SubtypeMovie
	case "ova":
		return SubtypeOVA
	case "ona":
		return SubtypeONA
	case "special", "tv special":
		return SubtypeSpecial
	case "music", "music video", "pv", "cm":
		return SubtypeMusic
	default:
		return SubtypeTV
	}
}

// Status represents the airing lifecycle of a title.
type Status string

const (
	StatusOngoing  Status = "ONGOING"
	StatusFinished Status = "FINISHED"
	StatusUpcoming Status = "UPCOMING"
)

// ParseStatus maps the status vocabulary of Kitsu and Jikan onto the
// canonical three states.
func ParseStatus(s string) Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "current", "airing", "ongoing", "currently airing", "releasing":
		return StatusOngoing
	case "finished", "complete", "completed", "finished airing":
		return StatusFinished
	case "upcoming", "tba", "unreleased", "not yet aired", "not_yet_released":
		return StatusUpcoming
	default:
		return StatusFinished
	}
}

// Season is the broadcast season a title premiered in.
type Season string

const (
	SeasonWinter Season = "winter"
	SeasonSpring Season = "spring"
	SeasonSummer Season = "summer"
	SeasonFall   Season = "fall"
)

// ParseSeason normalizes a source-provided season string. An empty or
// unknown value yields "" so callers can treat the season as absent.
func ParseSeason(s string) Season {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "winter":
		return SeasonWinter
	case "spring":
		return SeasonSpring
	case "summer":
		return SeasonSummer
	case "fall", "autumn":
		return SeasonFall
	default:
		return ""
	}
}

// SeasonForMonth returns the broadcast season containing the given month.
func SeasonForMonth(month int) Season {
	switch {
	case month >= 1 && month <= 3:
		return SeasonWinter
	case month >= 4 && month <= 6:
		return SeasonSpring
	case month >= 7 && month <= 9:
		return SeasonSummer
	case month >= 10 && month <= 12:
		return SeasonFall
	default:
		return ""
	}
}

// movieRuntimeMinutes is the runtime at which a "special" counts as a
// feature film rather than a bonus episode.
const movieRuntimeMinutes = 100

// AnimeRecord is one title in the catalog. Records are immutable once
// loaded; a catalog refresh replaces the whole set.
type AnimeRecord struct {
	// ID is the Stremio meta id: the IMDB id when matched ("tt..."),
	// otherwise a "mal-<id>" fallback.
	ID string `json:"id" validate:"required,animeid"`

	ImdbID    string `json:"imdb_id,omitempty"`
	MalID     int    `json:"mal_id,omitempty"`
	KitsuID   int    `json:"kitsu_id,omitempty"`
	AnilistID int    `json:"anilist_id,omitempty"`
	TmdbID    int    `json:"tmdb_id,omitempty"`

	Name        string   `json:"name" validate:"required"`
	Description string   `json:"description,omitempty"`
	Genres      []string `json:"genres,omitempty"`
	Studios     []string `json:"studios,omitempty"`
	Aliases     []string `json:"aliases,omitempty"`

	Subtype      Subtype `json:"subtype"`
	Status       Status  `json:"status"`
	Year         int     `json:"year,omitempty"`
	Season       Season  `json:"season,omitempty"`
	BroadcastDay string  `json:"broadcast_day,omitempty"`
	StartDate    string  `json:"start_date,omitempty"`
	EndDate      string  `json:"end_date,omitempty"`

	Poster     string `json:"poster,omitempty" validate:"omitempty,url"`
	PosterBlur string `json:"poster_blur,omitempty"`
	Background string `json:"background,omitempty" validate:"omitempty,url"`
	Logo       string `json:"logo,omitempty" validate:"omitempty,url"`

	// Rating is the community score on a 0-10 scale, nil when no source
	// reported one.
	Rating         *float64 `json:"rating,omitempty" validate:"omitempty,gte=0,lte=10"`
	EpisodeCount   int      `json:"episode_count,omitempty"`
	RuntimeMinutes int      `json:"runtime_minutes,omitempty"`
}

// IsMovie reports whether the record belongs in the movie catalog.
// Feature-length specials count as movies; everything else that is not
// an explicit movie is a series.
func (r *AnimeRecord) IsMovie() bool {
	if r.Subtype == SubtypeMovie {
		return true
	}
	return r.Subtype == SubtypeSpecial && r.RuntimeMinutes >= movieRuntimeMinutes
}

// IsSeries is the exact complement of IsMovie, so every record lands in
// exactly one of the two catalogs.
func (r *AnimeRecord) IsSeries() bool {
	return !r.IsMovie()
}

// StartYear returns the premiere year, falling back to the start date
// when the year field is absent. Returns 0 when unknown.
func (r *AnimeRecord) StartYear() int {
	if r.Year > 0 {
		return r.Year
	}
	if len(r.StartDate) >= 4 {
		var y int
		if _, err := fmt.Sscanf(r.StartDate[:4], "%d", &y); err == nil {
			return y
		}
	}
	return 0
}

// RatingValue returns the rating or 0 when absent. Sorting treats
// unrated titles as worst.
func (r *AnimeRecord) RatingValue() float64 {
	if r.Rating == nil {
		return 0
	}
	return *r.Rating
}

// HasGenre reports whether the record carries the genre, matched
// case-insensitively.
func (r *AnimeRecord) HasGenre(genre string) bool {
	for _, g := range r.Genres {
		if strings.EqualFold(g, genre) {
			return true
		}
	}
	return false
}

// HasStudio reports whether the record credits the studio, matched
// case-insensitively.
func (r *AnimeRecord) HasStudio(studio string) bool {
	for _, s := range r.Studios {
		if strings.EqualFold(s, studio) {
			return true
		}
	}
	return false
}

// ReleaseInfo renders the year span shown under a title: "2013" for a
// finished single year, "2013-" while ongoing, "2013-2016" for a span.
func (r *AnimeRecord) ReleaseInfo() string {
	start := r.StartYear()
	if start == 0 {
		return ""
	}
	if r.Status == StatusOngoing {
		return fmt.Sprintf("%d-", start)
	}
	if len(r.EndDate) >= 4 && r.EndDate[:4] != fmt.Sprintf("%d", start) {
		return fmt.Sprintf("%d-%s", start, r.EndDate[:4])
	}
	return fmt.Sprintf("%d", start)
}

// MalFallbackID builds the Stremio id used when no IMDB match exists.
func MalFallbackID(malID int) string {
	return fmt.Sprintf("mal-%d", malID)
}
