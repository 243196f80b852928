package catalog

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/haruapp/haru-server/internal/domain"
)

// Search scoring. Name match tiers are exclusive and an exact name
// match always outranks every non-exact combination: the capped bonus
// total below the exact tier tops out at 975.
const (
	scoreNameExact     = 1000
	scoreNamePrefix    = 500
	scoreNameSubstring = 250

	scoreAliasExact     = 300
	scoreAliasPrefix    = 150
	scoreAliasSubstring = 75

	scoreWordHit    = 25
	scoreWordHitCap = 100

	scoreTagHit    = 25
	scoreTagHitCap = 50

	scoreDescriptionHit = 25
)

// minQueryRunes is the minimum folded query length; anything shorter
// returns no results rather than scanning the whole catalog.
const minQueryRunes = 2

// searchText carries the case- and diacritic-folded fields of one
// record, built once per snapshot so scoring is pure string work.
type searchText struct {
	name    string
	words   []string
	aliases []string
	tags    []string
	desc    string
}

func buildSearchText(records []domain.AnimeRecord) []searchText {
	out := make([]searchText, len(records))
	for i := range records {
		r := &records[i]
		st := &out[i]
		st.name = foldText(r.Name)
		st.words = strings.Fields(st.name)
		for _, alias := range r.Aliases {
			if folded := foldText(alias); folded != "" {
				st.aliases = append(st.aliases, folded)
			}
		}
		for _, tag := range r.Genres {
			st.tags = append(st.tags, foldText(tag))
		}
		for _, tag := range r.Studios {
			st.tags = append(st.tags, foldText(tag))
		}
		st.desc = foldText(r.Description)
	}
	return out
}

// foldText lowercases and strips diacritics so "Pokémon" matches
// "pokemon".
func foldText(s string) string {
	decomposed := norm.NFKD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return strings.TrimSpace(b.String())
}

// Search ranks the catalog against a free-text query. Results come back
// best first with a deterministic total order: score, then rating, then
// name, then id. Queries shorter than two folded runes yield nothing.
// contentType narrows to "series" or "movie"; empty searches both.
func (s *Store) Search(query, contentType string) []domain.AnimeRecord {
	folded := foldText(query)
	if utf8.RuneCountInString(folded) < minQueryRunes {
		return []domain.AnimeRecord{}
	}
	queryWords := strings.Fields(folded)

	snap := s.view()

	type hit struct {
		idx   int
		score int
	}
	hits := make([]hit, 0, 32)
	for i := range snap.records {
		r := &snap.records[i]
		switch contentType {
		case TypeSeries:
			if !r.IsSeries() {
				continue
			}
		case TypeMovie:
			if !r.IsMovie() {
				continue
			}
		}
		if score := scoreRecord(&snap.search[i], folded, queryWords); score > 0 {
			hits = append(hits, hit{idx: i, score: score})
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		a, b := &snap.records[hits[i].idx], &snap.records[hits[j].idx]
		if ra, rb := a.RatingValue(), b.RatingValue(); ra != rb {
			return ra > rb
		}
		return byNameID(a, b)
	})

	out := make([]domain.AnimeRecord, len(hits))
	for i, h := range hits {
		out[i] = snap.records[h.idx]
	}
	return out
}

func scoreRecord(st *searchText, query string, queryWords []string) int {
	score := matchTier(st.name, query, scoreNameExact, scoreNamePrefix, scoreNameSubstring)

	bestAlias := 0
	for _, alias := range st.aliases {
		if t := matchTier(alias, query, scoreAliasExact, scoreAliasPrefix, scoreAliasSubstring); t > bestAlias {
			bestAlias = t
		}
	}
	score += bestAlias

	wordHits := 0
	for _, qw := range queryWords {
		for _, w := range st.words {
			if w == qw {
				wordHits += scoreWordHit
				break
			}
		}
	}
	score += capScore(wordHits, scoreWordHitCap)

	tagHits := 0
	for _, tag := range st.tags {
		if strings.Contains(tag, query) {
			tagHits += scoreTagHit
		}
	}
	score += capScore(tagHits, scoreTagHitCap)

	if st.desc != "" && strings.Contains(st.desc, query) {
		score += scoreDescriptionHit
	}

	return score
}

// matchTier returns the single best tier for one target string: exact
// beats prefix beats substring.
func matchTier(target, query string, exact, prefix, substring int) int {
	switch {
	case target == query:
		return exact
	case strings.HasPrefix(target, query):
		return prefix
	case strings.Contains(target, query):
		return substring
	default:
		return 0
	}
}

func capScore(score, limit int) int {
	if score > limit {
		return limit
	}
	return score
}
