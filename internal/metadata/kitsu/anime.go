package kitsu

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"net/url"
	"strconv"
)

// Anime is one title from the Kitsu catalog with its categories
// resolved from the sideloaded includes.
type Anime struct {
	ID                int
	CanonicalTitle    string
	EnglishTitle      string
	RomajiTitle       string
	JapaneseTitle     string
	AbbreviatedTitles []string
	Synopsis          string
	// Rating is Kitsu's approval percentage on a 0-100 scale, 0 when
	// the title is unrated.
	Rating        float64
	StartDate     string
	EndDate       string
	Status        string
	Subtype       string
	EpisodeCount  int
	EpisodeLength int
	AgeRating     string
	PosterURL     string
	CoverURL      string
	Categories    []string
}

// Page is one page of the anime listing.
type Page struct {
	Anime []Anime
	// NextOffset is the offset of the following page, -1 on the last.
	NextOffset int
	// Total is the full result count reported by the API.
	Total int
}

// ListAnime fetches one page of the catalog ordered by popularity,
// with categories sideloaded so each page costs a single request.
func (c *Client) ListAnime(ctx context.Context, offset int) (*Page, error) {
	query := url.Values{}
	query.Set("page[limit]", strconv.Itoa(PageLimit))
	query.Set("page[offset]", strconv.Itoa(offset))
	query.Set("sort", "-userCount")
	query.Set("include", "categories")
	query.Set("fields[categories]", "title")

	body, err := c.doRequest(ctx, c.baseURL+"/anime?"+query.Encode())
	if err != nil {
		return nil, fmt.Errorf("kitsu list anime offset %d: %w", offset, err)
	}

	var doc animeDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("kitsu list anime offset %d: parse response: %w", offset, err)
	}

	categories := make(map[string]string, len(doc.Included))
	for _, inc := range doc.Included {
		if inc.Type == "categories" {
			categories[inc.ID] = inc.Attributes.Title
		}
	}

	page := &Page{
		Anime:      make([]Anime, 0, len(doc.Data)),
		NextOffset: -1,
		Total:      doc.Meta.Count,
	}
	for _, res := range doc.Data {
		page.Anime = append(page.Anime, res.anime(categories))
	}
	if doc.Links.Next != "" {
		page.NextOffset = offset + len(doc.Data)
	}

	return page, nil
}

// JSON:API wire types. Only the attributes the pipeline consumes are
// declared; everything else falls off during decoding.

type animeDocument struct {
	Data     []animeResource    `json:"data"`
	Included []includedResource `json:"included"`
	Meta     struct {
		Count int `json:"count"`
	} `json:"meta"`
	Links struct {
		Next string `json:"next"`
	} `json:"links"`
}

type animeResource struct {
	ID            string          `json:"id"`
	Attributes    animeAttributes `json:"attributes"`
	Relationships struct {
		Categories struct {
			Data []resourceRef `json:"data"`
		} `json:"categories"`
	} `json:"relationships"`
}

type includedResource struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Attributes struct {
		Title string `json:"title"`
	} `json:"attributes"`
}

type resourceRef struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

type animeAttributes struct {
	CanonicalTitle    string            `json:"canonicalTitle"`
	Titles            map[string]string `json:"titles"`
	AbbreviatedTitles []string          `json:"abbreviatedTitles"`
	Synopsis          string            `json:"synopsis"`
	AverageRating     string            `json:"averageRating"`
	StartDate         string            `json:"startDate"`
	EndDate           string            `json:"endDate"`
	Status            string            `json:"status"`
	Subtype           string            `json:"subtype"`
	EpisodeCount      int               `json:"episodeCount"`
	EpisodeLength     int               `json:"episodeLength"`
	AgeRating         string            `json:"ageRating"`
	PosterImage       imageSet          `json:"posterImage"`
	CoverImage        imageSet          `json:"coverImage"`
}

type imageSet struct {
	Original string `json:"original"`
	Large    string `json:"large"`
	Small    string `json:"small"`
}

func (r animeResource) anime(categories map[string]string) Anime {
	attrs := r.Attributes

	id, _ := strconv.Atoi(r.ID)
	rating, _ := strconv.ParseFloat(attrs.AverageRating, 64)

	a := Anime{
		ID:                id,
		CanonicalTitle:    attrs.CanonicalTitle,
		EnglishTitle:      attrs.Titles["en"],
		RomajiTitle:       attrs.Titles["en_jp"],
		JapaneseTitle:     attrs.Titles["ja_jp"],
		AbbreviatedTitles: attrs.AbbreviatedTitles,
		Synopsis:          attrs.Synopsis,
		Rating:            rating,
		StartDate:         attrs.StartDate,
		EndDate:           attrs.EndDate,
		Status:            attrs.Status,
		Subtype:           attrs.Subtype,
		EpisodeCount:      attrs.EpisodeCount,
		EpisodeLength:     attrs.EpisodeLength,
		AgeRating:         attrs.AgeRating,
		PosterURL:         attrs.PosterImage.best(),
		CoverURL:          attrs.CoverImage.best(),
	}

	for _, ref := range r.Relationships.Categories.Data {
		if title := categories[ref.ID]; title != "" {
			a.Categories = append(a.Categories, title)
		}
	}

	return a
}

// best picks the largest available rendition.
func (s imageSet) best() string {
	for _, u := range []string{s.Original, s.Large, s.Small} {
		if u != "" {
			return u
		}
	}
	return ""
}
