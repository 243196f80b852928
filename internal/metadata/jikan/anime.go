package jikan

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Anime is one MyAnimeList entry with the wire format's quirks already
// decoded: durations as minutes, dates as YYYY-MM-DD, broadcast day as
// a singular weekday.
type Anime struct {
	MalID         int
	Title         string
	EnglishTitle  string
	JapaneseTitle string
	Synonyms      []string
	Type          string
	Episodes      int
	Status        string
	Airing        bool
	AiredFrom     string
	AiredTo       string
	// DurationMin is the per-episode (or movie) length in minutes, 0
	// when MAL lists it as unknown.
	DurationMin int
	// Score is the community score on a 0-10 scale, 0 when unscored.
	Score      float64
	ScoredBy   int
	Rank       int
	Popularity int
	Synopsis   string
	Season     string
	Year       int
	// BroadcastDay is the airing weekday ("Sunday"), empty when the
	// schedule is unknown.
	BroadcastDay string
	AgeRating    string
	// Genres folds MAL's genres, explicit genres, themes, and
	// demographics into one deduplicated list.
	Genres   []string
	Studios  []string
	ImageURL string
}

// GetAnime fetches the full record for one MAL id.
func (c *Client) GetAnime(ctx context.Context, malID int) (*Anime, error) {
	body, err := c.doRequest(ctx, fmt.Sprintf("%s/anime/%d/full", c.baseURL, malID))
	if err != nil {
		return nil, fmt.Errorf("jikan anime %d: %w", malID, err)
	}

	var doc animeDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("jikan anime %d: parse response: %w", malID, err)
	}

	return doc.Data.anime(), nil
}

// Wire types. Only the fields the pipeline consumes are declared.

type animeDocument struct {
	Data animeData `json:"data"`
}

type animeData struct {
	MalID          int          `json:"mal_id"`
	Title          string       `json:"title"`
	TitleEnglish   string       `json:"title_english"`
	TitleJapanese  string       `json:"title_japanese"`
	TitleSynonyms  []string     `json:"title_synonyms"`
	Type           string       `json:"type"`
	Episodes       int          `json:"episodes"`
	Status         string       `json:"status"`
	Airing         bool         `json:"airing"`
	Aired          airedRange   `json:"aired"`
	Duration       string       `json:"duration"`
	Rating         string       `json:"rating"`
	Score          float64      `json:"score"`
	ScoredBy       int          `json:"scored_by"`
	Rank           int          `json:"rank"`
	Popularity     int          `json:"popularity"`
	Synopsis       string       `json:"synopsis"`
	Season         string       `json:"season"`
	Year           int          `json:"year"`
	Broadcast      broadcast    `json:"broadcast"`
	Studios        []namedEntry `json:"studios"`
	Genres         []namedEntry `json:"genres"`
	ExplicitGenres []namedEntry `json:"explicit_genres"`
	Themes         []namedEntry `json:"themes"`
	Demographics   []namedEntry `json:"demographics"`
	Images         struct {
		JPG struct {
			ImageURL      string `json:"image_url"`
			LargeImageURL string `json:"large_image_url"`
		} `json:"jpg"`
	} `json:"images"`
}

type airedRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type broadcast struct {
	Day      string `json:"day"`
	Time     string `json:"time"`
	Timezone string `json:"timezone"`
}

type namedEntry struct {
	MalID int    `json:"mal_id"`
	Name  string `json:"name"`
}

func (d animeData) anime() *Anime {
	a := &Anime{
		MalID:         d.MalID,
		Title:         d.Title,
		EnglishTitle:  d.TitleEnglish,
		JapaneseTitle: d.TitleJapanese,
		Synonyms:      d.TitleSynonyms,
		Type:          d.Type,
		Episodes:      d.Episodes,
		Status:        d.Status,
		Airing:        d.Airing,
		AiredFrom:     dateOnly(d.Aired.From),
		AiredTo:       dateOnly(d.Aired.To),
		DurationMin:   parseDuration(d.Duration),
		Score:         d.Score,
		ScoredBy:      d.ScoredBy,
		Rank:          d.Rank,
		Popularity:    d.Popularity,
		Synopsis:      d.Synopsis,
		Season:        d.Season,
		Year:          d.Year,
		BroadcastDay:  weekday(d.Broadcast.Day),
		AgeRating:     d.Rating,
		ImageURL:      d.bestImage(),
	}

	for _, group := range [][]namedEntry{d.Genres, d.ExplicitGenres, d.Themes, d.Demographics} {
		for _, entry := range group {
			if entry.Name == "" || slices.Contains(a.Genres, entry.Name) {
				continue
			}
			a.Genres = append(a.Genres, entry.Name)
		}
	}
	for _, studio := range d.Studios {
		if studio.Name != "" {
			a.Studios = append(a.Studios, studio.Name)
		}
	}

	return a
}

func (d animeData) bestImage() string {
	if d.Images.JPG.LargeImageURL != "" {
		return d.Images.JPG.LargeImageURL
	}
	return d.Images.JPG.ImageURL
}

// dateOnly trims a MAL timestamp like "1998-04-03T00:00:00+00:00" to
// the date part.
func dateOnly(ts string) string {
	date, _, _ := strings.Cut(ts, "T")
	return date
}

// weekday singularizes MAL's plural broadcast days ("Sundays").
func weekday(day string) string {
	return strings.TrimSuffix(day, "s")
}

// parseDuration converts MAL duration strings like "24 min per ep",
// "1 hr 55 min", or "2 hr" to minutes. Unknown or sub-minute formats
// come back as 0.
func parseDuration(s string) int {
	fields := strings.Fields(s)
	minutes := 0
	for i := 0; i+1 < len(fields); i++ {
		n, err := strconv.Atoi(fields[i])
		if err != nil {
			continue
		}
		switch fields[i+1] {
		case "hr":
			minutes += n * 60
		case "min":
			minutes += n
		}
	}
	return minutes
}

