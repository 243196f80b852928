package imdb

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
)

// indexBatchSize documents per bleve batch during build.
const indexBatchSize = 500

// Index is an in-memory full-text index over the animation titles.
// It exists only for the duration of one enrichment run, so it is
// never persisted.
type Index struct {
	index  bleve.Index
	logger *slog.Logger
}

// Candidate is one potential IMDB match surfaced by the index. Title
// and OriginalTitle are fold-normalized (lowercased, diacritics
// stripped), the form similarity scoring runs on.
type Candidate struct {
	Tconst        string
	Title         string
	OriginalTitle string
	Year          int
	Type          string
}

// NewIndex builds the index over the given titles.
func NewIndex(titles []Title, logger *slog.Logger) (*Index, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	index, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}

	for i := 0; i < len(titles); i += indexBatchSize {
		end := min(i+indexBatchSize, len(titles))

		batch := index.NewBatch()
		for _, t := range titles[i:end] {
			// Titles are indexed fold-normalized so accented and plain
			// spellings hit the same terms.
			doc := map[string]any{
				"title":          foldText(t.PrimaryTitle),
				"original_title": foldText(t.OriginalTitle),
				"year":           t.StartYear,
				"type":           t.Type,
			}
			if err := batch.Index(t.Tconst, doc); err != nil {
				index.Close()
				return nil, fmt.Errorf("batch index %s: %w", t.Tconst, err)
			}
		}
		if err := index.Batch(batch); err != nil {
			index.Close()
			return nil, fmt.Errorf("commit batch %d-%d: %w", i, end, err)
		}
	}

	logger.Info("built imdb match index", "titles", len(titles))
	return &Index{index: index, logger: logger}, nil
}

// Close releases the index.
func (ix *Index) Close() error {
	return ix.index.Close()
}

// Count returns the number of indexed titles.
func (ix *Index) Count() (uint64, error) {
	return ix.index.DocCount()
}

// Candidates runs a fuzzy title search and returns the top matches.
// Scoring here is only recall; the matcher applies the precise
// similarity, year, and type checks.
func (ix *Index) Candidates(ctx context.Context, name string, limit int) ([]Candidate, error) {
	name = foldText(name)
	if name == "" {
		return nil, nil
	}

	titleMatch := bleve.NewMatchQuery(name)
	titleMatch.SetField("title")
	titleMatch.SetBoost(2.0)

	originalMatch := bleve.NewMatchQuery(name)
	originalMatch.SetField("original_title")

	fuzzy := bleve.NewFuzzyQuery(name)
	fuzzy.SetField("title")
	fuzzy.SetFuzziness(1)
	fuzzy.SetBoost(0.5)

	searchQuery := bleve.NewDisjunctionQuery([]query.Query{titleMatch, originalMatch, fuzzy}...)

	request := bleve.NewSearchRequestOptions(searchQuery, limit, 0, false)
	request.Fields = []string{"title", "original_title", "year", "type"}

	result, err := ix.index.SearchInContext(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("search candidates: %w", err)
	}

	candidates := make([]Candidate, 0, len(result.Hits))
	for _, hit := range result.Hits {
		c := Candidate{Tconst: hit.ID}
		if t, ok := hit.Fields["title"].(string); ok {
			c.Title = t
		}
		if t, ok := hit.Fields["original_title"].(string); ok {
			c.OriginalTitle = t
		}
		if y, ok := hit.Fields["year"].(float64); ok {
			c.Year = int(y)
		}
		if t, ok := hit.Fields["type"].(string); ok {
			c.Type = t
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

// buildIndexMapping creates the Bleve mapping for title documents.
// Titles get the English analyzer for stemmed recall; the type field
// stays keyword so stored values come back exact.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	titleFieldMapping := bleve.NewTextFieldMapping()
	titleFieldMapping.Analyzer = en.AnalyzerName
	titleFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("title", titleFieldMapping)

	originalFieldMapping := bleve.NewTextFieldMapping()
	originalFieldMapping.Analyzer = en.AnalyzerName
	originalFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("original_title", originalFieldMapping)

	yearFieldMapping := bleve.NewNumericFieldMapping()
	yearFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("year", yearFieldMapping)

	typeFieldMapping := bleve.NewTextFieldMapping()
	typeFieldMapping.Analyzer = keyword.Name
	typeFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("type", typeFieldMapping)

	indexMapping.AddDocumentMapping("_default", docMapping)
	return indexMapping
}
