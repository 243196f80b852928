package enrich

import (
	"encoding/json/v2"
	"fmt"
	"os"
	"slices"

	"github.com/haruapp/haru-server/internal/domain"
)

// Overrides is curated data correcting the automated merge. It lives
// in an external JSON file so fixing a bad merge never needs a code
// change.
type Overrides struct {
	// Hide lists catalog ids dropped from the output entirely.
	Hide []string `json:"hide"`
	// Remap redirects a child entry onto the parent id whose record
	// absorbs it during the season merge.
	Remap map[string]string `json:"remap"`
}

// LoadOverrides reads the overrides file. A missing file is not an
// error; it yields the empty overrides.
func LoadOverrides(path string) (Overrides, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Overrides{}, nil
	}
	if err != nil {
		return Overrides{}, fmt.Errorf("read overrides: %w", err)
	}

	var o Overrides
	if err := json.Unmarshal(data, &o); err != nil {
		return Overrides{}, fmt.Errorf("parse overrides: %w", err)
	}
	return o, nil
}

// MergeSeasons folds per-season series entries that resolved to the
// same IMDB id into one record. The earliest season keeps the
// identity; later seasons contribute episodes, genres, aliases, and
// better-rated art. Movies never merge. Output preserves the input
// order of each group's first member.
func MergeSeasons(records []domain.AnimeRecord, overrides Overrides) []domain.AnimeRecord {
	hidden := make(map[string]bool, len(overrides.Hide))
	for _, id := range overrides.Hide {
		hidden[id] = true
	}
	targets := make(map[string]bool, len(overrides.Remap))
	for _, target := range overrides.Remap {
		targets[target] = true
	}

	groups := make(map[string][]domain.AnimeRecord)
	var order []string

	for _, r := range records {
		if hidden[r.ID] {
			continue
		}

		key := mergeKey(r, overrides, targets)
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], r)
	}

	out := make([]domain.AnimeRecord, 0, len(order))
	for _, key := range order {
		out = append(out, mergeGroup(groups[key]))
	}
	return out
}

// mergeKey picks the grouping key: the remap target when curated, the
// IMDB id for matched series, otherwise the record's own id (no merge).
// Movies always stand alone.
func mergeKey(r domain.AnimeRecord, overrides Overrides, targets map[string]bool) string {
	if target, ok := overrides.Remap[r.ID]; ok {
		return target
	}
	// A remap target must land in the same group as the records pointed at
	// it, even when the target itself never matched an IMDB id.
	if targets[r.ID] {
		return r.ID
	}
	if r.IsMovie() || r.ImdbID == "" {
		return "solo:" + r.ID
	}
	return r.ImdbID
}

// mergeGroup folds a season group into one record.
func mergeGroup(group []domain.AnimeRecord) domain.AnimeRecord {
	if len(group) == 1 {
		return group[0]
	}

	// Earliest premiere wins identity.
	slices.SortStableFunc(group, func(a, b domain.AnimeRecord) int {
		return a.StartYear() - b.StartYear()
	})

	base := group[0]
	bestArt := base

	for _, season := range group[1:] {
		base.EpisodeCount += season.EpisodeCount

		for _, g := range season.Genres {
			if !slices.Contains(base.Genres, g) {
				base.Genres = append(base.Genres, g)
			}
		}
		for _, s := range season.Studios {
			if !slices.Contains(base.Studios, s) {
				base.Studios = append(base.Studios, s)
			}
		}

		// The absorbed season's name becomes an alias.
		for _, alias := range append([]string{season.Name}, season.Aliases...) {
			if alias != "" && alias != base.Name && !slices.Contains(base.Aliases, alias) {
				base.Aliases = append(base.Aliases, alias)
			}
		}

		if season.RatingValue() > bestArt.RatingValue() {
			bestArt = season
		}
		if season.RatingValue() > base.RatingValue() && season.Rating != nil {
			base.Rating = season.Rating
		}

		if season.EndDate > base.EndDate {
			base.EndDate = season.EndDate
		}
		if season.Status == domain.StatusOngoing {
			base.Status = domain.StatusOngoing
			base.BroadcastDay = season.BroadcastDay
		}

		if base.MalID == 0 {
			base.MalID = season.MalID
		}
		if base.TmdbID == 0 {
			base.TmdbID = season.TmdbID
		}
	}

	if bestArt.Poster != "" {
		base.Poster = bestArt.Poster
		base.PosterBlur = bestArt.PosterBlur
	}
	if bestArt.Background != "" {
		base.Background = bestArt.Background
	}

	return base
}
