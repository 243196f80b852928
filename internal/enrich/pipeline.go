// Package enrich implements the offline catalog build: pull the anime
// listing, enrich every title with cross-service ids, details, ratings,
// and art, merge per-season entries, and emit the catalog artifacts the
// server loads.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/haruapp/haru-server/internal/domain"
	"github.com/haruapp/haru-server/internal/imdb"
	"github.com/haruapp/haru-server/internal/metadata/fribb"
	"github.com/haruapp/haru-server/internal/metadata/jikan"
	"github.com/haruapp/haru-server/internal/metadata/kitsu"
	"github.com/haruapp/haru-server/internal/metadata/tmdb"
)

// defaultMaxTitles bounds a run when no explicit cap is configured. The
// listing is popularity-ordered, so the cap keeps the most-watched
// titles.
const defaultMaxTitles = 5000

// AnimeSource pages through the popularity-ordered anime listing.
type AnimeSource interface {
	ListAnime(ctx context.Context, offset int) (*kitsu.Page, error)
}

// DetailSource returns per-title detail for a MAL id.
type DetailSource interface {
	GetAnime(ctx context.Context, malID int) (*jikan.Anime, error)
}

// MappingSource downloads the cross-service id mapping list.
type MappingSource interface {
	Fetch(ctx context.Context) (*fribb.List, error)
}

// TitleMatcher resolves a name and year against the IMDB dataset.
type TitleMatcher interface {
	Match(ctx context.Context, q imdb.Query) (imdb.Candidate, bool)
}

// RatingSource returns the IMDB community rating for a tt id.
type RatingSource interface {
	Rating(ctx context.Context, tconst string) (*imdb.Rating, error)
}

// ArtSource finds TMDB artwork for an IMDB id.
type ArtSource interface {
	FindByImdbID(ctx context.Context, imdbID string) (*tmdb.Art, error)
}

// HashSource computes a BlurHash placeholder for a poster URL.
type HashSource interface {
	BlurHash(ctx context.Context, rawURL string) (string, error)
}

// Pipeline runs one full enrichment pass. Every per-title source is
// optional: a missing or failing enrichment source degrades that one
// record, never the run. Only the listing source and the id mapping
// download abort a run, because without them there is no catalog worth
// emitting.
type Pipeline struct {
	anime    AnimeSource
	details  DetailSource
	mappings MappingSource
	matcher  TitleMatcher
	ratings  RatingSource
	art      ArtSource
	hashes   HashSource

	maxTitles int
	overrides Overrides
	logger    *slog.Logger
}

// PipelineOptions configures a Pipeline. Anime is required; every other
// source is optional and skipped when nil.
type PipelineOptions struct {
	Anime    AnimeSource
	Details  DetailSource
	Mappings MappingSource
	Matcher  TitleMatcher
	Ratings  RatingSource
	Art      ArtSource
	Hashes   HashSource

	// MaxTitles caps how many titles are pulled from the listing.
	// Defaults to defaultMaxTitles.
	MaxTitles int
	// Overrides curates the season merge.
	Overrides Overrides
	// Logger for run diagnostics. Defaults to stderr.
	Logger *slog.Logger
}

// NewPipeline assembles a pipeline from its sources.
func NewPipeline(opts PipelineOptions) (*Pipeline, error) {
	if opts.Anime == nil {
		return nil, errors.New("enrich: anime listing source is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	maxTitles := opts.MaxTitles
	if maxTitles <= 0 {
		maxTitles = defaultMaxTitles
	}

	return &Pipeline{
		anime:     opts.Anime,
		details:   opts.Details,
		mappings:  opts.Mappings,
		matcher:   opts.Matcher,
		ratings:   opts.Ratings,
		art:       opts.Art,
		hashes:    opts.Hashes,
		maxTitles: maxTitles,
		overrides: opts.Overrides,
		logger:    logger,
	}, nil
}

type runStats struct {
	detailMisses int
	matched      int
	skipped      int
}

// Run executes one enrichment pass and returns the merged record set,
// ready for the emitter.
func (p *Pipeline) Run(ctx context.Context) ([]domain.AnimeRecord, error) {
	started := time.Now()

	var mappings *fribb.List
	if p.mappings != nil {
		list, err := p.mappings.Fetch(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetch id mappings: %w", err)
		}
		mappings = list
		p.logger.Info("id mappings loaded", "entries", list.Len())
	}

	stats := &runStats{}
	records := make([]domain.AnimeRecord, 0, p.maxTitles)

	fetched := 0
	for offset := 0; offset >= 0 && fetched < p.maxTitles; {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := p.anime.ListAnime(ctx, offset)
		if err != nil {
			return nil, fmt.Errorf("list anime offset %d: %w", offset, err)
		}

		for i := range page.Anime {
			if fetched >= p.maxTitles {
				break
			}
			fetched++

			record, ok := p.buildRecord(ctx, page.Anime[i], mappings, stats)
			if !ok {
				continue
			}
			records = append(records, record)
		}

		p.logger.Debug("listing page processed",
			"offset", offset,
			"fetched", fetched,
			"listing_total", page.Total)
		offset = page.NextOffset
	}

	merged := MergeSeasons(records, p.overrides)

	p.logger.Info("enrichment run complete",
		"fetched", fetched,
		"records", len(records),
		"merged", len(merged),
		"imdb_matched", stats.matched,
		"skipped", stats.skipped,
		"detail_misses", stats.detailMisses,
		"duration", time.Since(started).Round(time.Millisecond))

	return merged, nil
}

// buildRecord enriches one listing entry into a catalog record. It
// reports false when the title ends up with no usable identity.
func (p *Pipeline) buildRecord(ctx context.Context, anime kitsu.Anime, mappings *fribb.List, stats *runStats) (domain.AnimeRecord, bool) {
	var mapping *fribb.Mapping
	if mappings != nil {
		if m, ok := mappings.ByKitsu(anime.ID); ok {
			mapping = m
		}
	}

	var detail *jikan.Anime
	if p.details != nil && mapping != nil && mapping.MalID != 0 {
		d, err := p.details.GetAnime(ctx, mapping.MalID)
		if err != nil {
			stats.detailMisses++
			p.logger.Warn("detail fetch failed, continuing with base record",
				"kitsu_id", anime.ID,
				"mal_id", mapping.MalID,
				"error", err)
		} else {
			detail = d
		}
	}

	record := newRecord(anime, detail)

	if mapping != nil {
		if record.MalID == 0 {
			record.MalID = mapping.MalID
		}
		record.AnilistID = mapping.AnilistID
		record.ImdbID = mapping.ImdbID
		record.TmdbID = int(mapping.TmdbID)
	}

	if record.ImdbID == "" && p.matcher != nil {
		q := imdb.Query{
			Names: matchNames(record),
			Year:  record.StartYear(),
			Movie: record.IsMovie(),
		}
		if c, ok := p.matcher.Match(ctx, q); ok {
			record.ImdbID = c.Tconst
			stats.matched++
		}
	}

	switch {
	case record.ImdbID != "":
		record.ID = record.ImdbID
	case record.MalID != 0:
		record.ID = domain.MalFallbackID(record.MalID)
	default:
		stats.skipped++
		p.logger.Warn("skipping title with no IMDB or MAL identity",
			"kitsu_id", anime.ID,
			"name", record.Name)
		return domain.AnimeRecord{}, false
	}

	p.applyRating(ctx, &record)
	p.applyArt(ctx, &record)
	p.applyBlurHash(ctx, &record)

	return record, true
}

func (p *Pipeline) applyRating(ctx context.Context, r *domain.AnimeRecord) {
	if p.ratings == nil || r.ImdbID == "" {
		return
	}

	rating, err := p.ratings.Rating(ctx, r.ImdbID)
	if err != nil {
		p.logger.Warn("imdb rating lookup failed", "id", r.ID, "error", err)
		return
	}
	// The IMDB community score outranks source-site scores when present.
	if rating != nil && rating.Average > 0 {
		avg := rating.Average
		r.Rating = &avg
	}
}

func (p *Pipeline) applyArt(ctx context.Context, r *domain.AnimeRecord) {
	if p.art == nil || r.ImdbID == "" {
		return
	}

	art, err := p.art.FindByImdbID(ctx, r.ImdbID)
	if err != nil {
		if !errors.Is(err, tmdb.ErrNotFound) {
			p.logger.Warn("tmdb art lookup failed", "id", r.ID, "error", err)
		}
		return
	}

	// Source-site art wins; TMDB fills the gaps.
	if r.TmdbID == 0 {
		r.TmdbID = art.TmdbID
	}
	if r.Poster == "" {
		r.Poster = art.PosterURL
	}
	if r.Background == "" {
		r.Background = art.BackdropURL
	}
}

func (p *Pipeline) applyBlurHash(ctx context.Context, r *domain.AnimeRecord) {
	if p.hashes == nil || r.Poster == "" {
		return
	}

	hash, err := p.hashes.BlurHash(ctx, r.Poster)
	if err != nil {
		p.logger.Warn("poster blurhash failed", "id", r.ID, "url", r.Poster, "error", err)
		return
	}
	r.PosterBlur = hash
}
