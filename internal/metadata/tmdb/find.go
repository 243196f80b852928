package tmdb

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"net/url"
)

const (
	posterBase   = "https://image.tmdb.org/t/p/w500"
	backdropBase = "https://image.tmdb.org/t/p/original"
)

// Art is the artwork TMDB holds for one title. URLs are fully
// qualified; either may be empty when TMDB has no image of that kind.
type Art struct {
	TmdbID int
	// MediaType is "movie" or "tv" depending on which result list the
	// match came from.
	MediaType   string
	PosterURL   string
	BackdropURL string
}

// FindByImdbID resolves an IMDB id to TMDB artwork. Movie results win
// over TV results when both exist; ErrNotFound means TMDB knows no
// title under that id.
func (c *Client) FindByImdbID(ctx context.Context, imdbID string) (*Art, error) {
	query := url.Values{}
	query.Set("external_source", "imdb_id")
	query.Set("api_key", c.apiKey)

	rawURL := fmt.Sprintf("%s/find/%s?%s", c.baseURL, url.PathEscape(imdbID), query.Encode())
	cacheKey := "tmdb:find:" + imdbID

	body, err := c.doRequest(ctx, rawURL, cacheKey)
	if err != nil {
		return nil, fmt.Errorf("tmdb find %s: %w", imdbID, err)
	}

	var doc findDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("tmdb find %s: parse response: %w", imdbID, err)
	}

	if len(doc.MovieResults) > 0 {
		return doc.MovieResults[0].art("movie"), nil
	}
	if len(doc.TVResults) > 0 {
		return doc.TVResults[0].art("tv"), nil
	}
	return nil, fmt.Errorf("tmdb find %s: %w", imdbID, ErrNotFound)
}

type findDocument struct {
	MovieResults []findResult `json:"movie_results"`
	TVResults    []findResult `json:"tv_results"`
}

type findResult struct {
	ID           int    `json:"id"`
	PosterPath   string `json:"poster_path"`
	BackdropPath string `json:"backdrop_path"`
}

func (r findResult) art(mediaType string) *Art {
	art := &Art{TmdbID: r.ID, MediaType: mediaType}
	if r.PosterPath != "" {
		art.PosterURL = posterBase + r.PosterPath
	}
	if r.BackdropPath != "" {
		art.BackdropURL = backdropBase + r.BackdropPath
	}
	return art
}
