package enrich

import (
	"regexp"
	"slices"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/net/html"

	"github.com/haruapp/haru-server/internal/domain"
	"github.com/haruapp/haru-server/internal/genre"
	"github.com/haruapp/haru-server/internal/metadata/jikan"
	"github.com/haruapp/haru-server/internal/metadata/kitsu"
)

// newRecord builds the canonical record from the Kitsu base entry and
// the optional MAL enrichment. It is a pure function of its inputs;
// id resolution and art happen later in the pipeline.
func newRecord(a kitsu.Anime, mal *jikan.Anime) domain.AnimeRecord {
	if mal == nil {
		mal = &jikan.Anime{}
	}

	name := pickName(a, mal)

	r := domain.AnimeRecord{
		KitsuID:        a.ID,
		MalID:          mal.MalID,
		Name:           name,
		Description:    cleanDescription(firstNonEmpty(a.Synopsis, mal.Synopsis)),
		Genres:         genre.CanonicalizeAll(append(slices.Clone(a.Categories), mal.Genres...)),
		Studios:        mal.Studios,
		Aliases:        collectAliases(name, a, mal),
		Subtype:        domain.ParseSubtype(firstNonEmpty(a.Subtype, mal.Type)),
		Status:         domain.ParseStatus(firstNonEmpty(a.Status, mal.Status)),
		Year:           mal.Year,
		Season:         domain.ParseSeason(mal.Season),
		BroadcastDay:   mal.BroadcastDay,
		StartDate:      firstNonEmpty(a.StartDate, mal.AiredFrom),
		EndDate:        firstNonEmpty(a.EndDate, mal.AiredTo),
		Poster:         firstNonEmpty(a.PosterURL, mal.ImageURL),
		Background:     a.CoverURL,
		EpisodeCount:   firstPositive(a.EpisodeCount, mal.Episodes),
		RuntimeMinutes: firstPositive(a.EpisodeLength, mal.DurationMin),
	}

	if r.Year == 0 || r.Season == "" {
		if t, err := time.Parse("2006-01-02", r.StartDate); err == nil {
			if r.Year == 0 {
				r.Year = t.Year()
			}
			if r.Season == "" {
				r.Season = domain.SeasonForMonth(int(t.Month()))
			}
		}
	}

	if rating := pickRating(a, mal); rating > 0 {
		r.Rating = &rating
	}

	return r
}

// pickName applies the title language preference: English first, then
// the source's canonical (usually romaji) title.
func pickName(a kitsu.Anime, mal *jikan.Anime) string {
	return firstNonEmpty(
		a.EnglishTitle,
		mal.EnglishTitle,
		a.CanonicalTitle,
		a.RomajiTitle,
		mal.Title,
	)
}

// pickRating prefers the MAL community score (already 0-10) over
// Kitsu's approval percentage scaled down.
func pickRating(a kitsu.Anime, mal *jikan.Anime) float64 {
	if mal.Score > 0 {
		return mal.Score
	}
	if a.Rating > 0 {
		return a.Rating / 10
	}
	return 0
}

// collectAliases gathers every alternate title except the chosen name,
// deduplicated in source order.
func collectAliases(name string, a kitsu.Anime, mal *jikan.Anime) []string {
	candidates := []string{
		a.CanonicalTitle,
		a.EnglishTitle,
		a.RomajiTitle,
		a.JapaneseTitle,
		mal.Title,
		mal.EnglishTitle,
		mal.JapaneseTitle,
	}
	candidates = append(candidates, a.AbbreviatedTitles...)
	candidates = append(candidates, mal.Synonyms...)

	var aliases []string
	for _, c := range candidates {
		if c == "" || c == name || slices.Contains(aliases, c) {
			continue
		}
		aliases = append(aliases, c)
	}
	return aliases
}

// maxMatchNames bounds the IMDB lookups per title.
const maxMatchNames = 5

// matchNames returns the names to try against the IMDB index, primary
// name first.
func matchNames(r domain.AnimeRecord) []string {
	names := append([]string{r.Name}, r.Aliases...)
	if len(names) > maxMatchNames {
		names = names[:maxMatchNames]
	}
	return names
}

// htmlTagPattern matches common HTML tags to detect markup in a
// synopsis.
var htmlTagPattern = regexp.MustCompile(`<(p|br|div|span|b|i|strong|em|a|ul|ol|li|h[1-6]|blockquote)[\s>/]`)

// blankLines collapses runs of blank lines left by tag removal.
var blankLines = regexp.MustCompile(`\n{3,}`)

func containsHTML(s string) bool {
	return htmlTagPattern.MatchString(strings.ToLower(s))
}

// cleanDescription renders a source synopsis as plain text: HTML is
// converted to markdown, leftover tags are stripped, and entities are
// unescaped.
func cleanDescription(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	if containsHTML(s) {
		if markdown, err := htmltomarkdown.ConvertString(s); err == nil {
			s = markdown
		}
	}

	s = stripTags(s)
	s = blankLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// stripTags drops any markup the markdown conversion left behind,
// keeping only text content. Entities are unescaped as a side effect
// of tokenization.
func stripTags(s string) string {
	var b strings.Builder
	tokenizer := html.NewTokenizer(strings.NewReader(s))
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return b.String()
		case html.TextToken:
			b.Write(tokenizer.Text())
		}
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
