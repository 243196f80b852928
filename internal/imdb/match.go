package imdb

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"unicode"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	// matchThreshold is the minimum Jaro-Winkler similarity for an
	// accepted match.
	matchThreshold = 0.92

	// yearTolerance allows IMDB and the anime sources to disagree by
	// one year (premiere vs production year).
	yearTolerance = 1

	// candidateLimit per index query.
	candidateLimit = 10
)

// movieTypes and seriesTypes partition IMDB title types by which
// catalog they may match. Direct-to-video and special types appear in
// both because OVAs land on either side of IMDB's classification.
var (
	movieTypes = map[string]bool{
		"movie":     true,
		"tvMovie":   true,
		"tvSpecial": true,
		"video":     true,
		"short":     true,
	}
	seriesTypes = map[string]bool{
		"tvSeries":     true,
		"tvMiniSeries": true,
		"tvSpecial":    true,
		"tvShort":      true,
		"video":        true,
	}
)

// Matcher resolves anime titles to IMDB ids. Candidates come from the
// fuzzy index; acceptance requires passing the year window, the type
// check, and the similarity threshold.
type Matcher struct {
	index     *Index
	metric    *metrics.JaroWinkler
	threshold float64
	logger    *slog.Logger
}

// NewMatcher creates a matcher over the given index.
func NewMatcher(index *Index, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	metric := metrics.NewJaroWinkler()
	metric.CaseSensitive = false

	return &Matcher{
		index:     index,
		metric:    metric,
		threshold: matchThreshold,
		logger:    logger,
	}
}

// Query describes one title to resolve.
type Query struct {
	// Names in preference order: canonical first, then alternates.
	Names []string
	// Year of the premiere; 0 disables the year window.
	Year int
	// Movie selects the movie-compatible IMDB types, otherwise the
	// series-compatible set applies.
	Movie bool
}

// Match returns the best-scoring acceptable candidate, or ok=false when
// nothing clears the threshold.
func (m *Matcher) Match(ctx context.Context, q Query) (Candidate, bool) {
	var best Candidate
	bestScore := 0.0

	for _, name := range q.Names {
		if name == "" {
			continue
		}
		candidates, err := m.index.Candidates(ctx, name, candidateLimit)
		if err != nil {
			m.logger.Warn("imdb candidate search failed", "name", name, "error", err)
			continue
		}

		folded := foldText(name)
		for _, c := range candidates {
			if !m.acceptable(q, c) {
				continue
			}
			// Candidate titles come back from the index already folded.
			score := max(
				strutil.Similarity(folded, c.Title, m.metric),
				strutil.Similarity(folded, c.OriginalTitle, m.metric),
			)
			if score > bestScore {
				best = c
				bestScore = score
			}
		}
	}

	if bestScore < m.threshold {
		return Candidate{}, false
	}
	return best, true
}

// acceptable applies the year window and the type check. Similarity
// never overrides a year-window failure.
func (m *Matcher) acceptable(q Query, c Candidate) bool {
	if q.Year > 0 {
		if c.Year == 0 {
			return false
		}
		diff := q.Year - c.Year
		if diff < -yearTolerance || diff > yearTolerance {
			return false
		}
	}

	if q.Movie {
		return movieTypes[c.Type]
	}
	return seriesTypes[c.Type]
}

// foldTransformer strips diacritics: NFD decomposition, drop combining
// marks, recompose.
var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// foldText lowercases and de-accents a title for comparison, so
// "Pokémon" and "pokemon" compare equal.
func foldText(s string) string {
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}
