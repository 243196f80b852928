// Package main provides the offline enrichment pipeline that builds the
// catalog files served by the Haru addon.
//
// It lists anime from Kitsu, layers MAL detail and Fribb id mappings on
// top, matches unmapped titles against a local IMDB dataset, pulls art
// from TMDB, merges per-season entries, and writes database.json,
// database.json.gz and filters.json into the output directory. The
// running server picks the new files up through its catalog watcher.
//
// Usage:
//
//	go run ./cmd/refresh --out ~/haru/data --tmdb-key $TMDB_API_KEY \
//	    --imdb-basics title.basics.tsv.gz --imdb-ratings title.ratings.tsv.gz
//
// All upstream responses are cached on disk, so an interrupted run can be
// restarted without re-spending API quota.
package main

import (
	"context"
	"flag"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/haruapp/haru-server/internal/enrich"
	"github.com/haruapp/haru-server/internal/fetchcache"
	"github.com/haruapp/haru-server/internal/imdb"
	"github.com/haruapp/haru-server/internal/logger"
	"github.com/haruapp/haru-server/internal/metadata/fribb"
	"github.com/haruapp/haru-server/internal/metadata/jikan"
	"github.com/haruapp/haru-server/internal/metadata/kitsu"
	"github.com/haruapp/haru-server/internal/metadata/tmdb"
)

var (
	outDir      = flag.String("out", envOr("HARU_DATA", "./data"), "Output directory for catalog artifacts")
	cacheDir    = flag.String("cache", "", "Fetch cache directory (default: <out>/cache)")
	cacheTTL    = flag.Duration("cache-ttl", fetchcache.DefaultTTL, "How long cached upstream responses stay valid")
	maxTitles   = flag.Int("max-titles", 0, "Cap on titles pulled from the Kitsu listing (0 = default)")
	overrides   = flag.String("overrides", "", "Curated overrides JSON (default: <out>/overrides.json)")
	tmdbKey     = flag.String("tmdb-key", os.Getenv("TMDB_API_KEY"), "TMDB API key; empty disables the art step")
	imdbDB      = flag.String("imdb-db", "", "IMDB dataset database (default: <out>/imdb.db)")
	imdbBasics  = flag.String("imdb-basics", "", "title.basics TSV to import before the run (plain or .gz)")
	imdbRatings = flag.String("imdb-ratings", "", "title.ratings TSV to import before the run (plain or .gz)")
	skipDetails = flag.Bool("skip-details", false, "Skip the MAL detail fetch (Jikan)")
	skipPosters = flag.Bool("skip-posters", false, "Skip poster probing and blurhash computation")
	dryRun      = flag.Bool("dry-run", false, "Run the pipeline but do not write catalog files")
	logLevel    = flag.String("log-level", envOr("LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")
)

func main() {
	flag.Parse()

	log := logger.New(logger.Config{Level: logger.ParseLevel(*logLevel)})

	if *cacheDir == "" {
		*cacheDir = filepath.Join(*outDir, "cache")
	}
	if *overrides == "" {
		*overrides = filepath.Join(*outDir, "overrides.json")
	}
	if *imdbDB == "" {
		*imdbDB = filepath.Join(*outDir, "imdb.db")
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatal("Failed to create output directory", "path", *outDir, "error", err)
	}

	// A refresh run can take a while; let SIGINT finish the current title
	// and stop cleanly instead of leaving a half-written cache.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cache, err := fetchcache.Open(fetchcache.Options{
		Path:   *cacheDir,
		TTL:    *cacheTTL,
		Logger: log.Logger,
	})
	if err != nil {
		log.Fatal("Failed to open fetch cache", "path", *cacheDir, "error", err)
	}
	defer cache.Close()

	kitsuClient := kitsu.New(kitsu.Options{Cache: cache, Logger: log.Logger})
	defer kitsuClient.Close()

	opts := enrich.PipelineOptions{
		Anime:     kitsuClient,
		Mappings:  fribb.New(fribb.Options{Cache: cache, Logger: log.Logger}),
		MaxTitles: *maxTitles,
		Logger:    log.Logger,
	}

	if !*skipDetails {
		jikanClient := jikan.New(jikan.Options{Cache: cache, Logger: log.Logger})
		defer jikanClient.Close()
		opts.Details = jikanClient
	} else {
		log.Info("MAL detail fetch disabled")
	}

	if *tmdbKey != "" {
		tmdbClient := tmdb.New(tmdb.Options{APIKey: *tmdbKey, Cache: cache, Logger: log.Logger})
		defer tmdbClient.Close()
		opts.Art = tmdbClient
	} else {
		log.Info("No TMDB key, skipping the art step")
	}

	if !*skipPosters {
		prober := enrich.NewPosterProber(enrich.ProberOptions{Cache: cache, Logger: log.Logger})
		defer prober.Close()
		opts.Hashes = prober
	}

	dataset := openDataset(ctx, log)
	if dataset != nil {
		defer dataset.Close()
		titles, err := dataset.AnimationTitles(ctx)
		if err != nil {
			log.Fatal("Failed to load animation titles", "error", err)
		}
		index, err := imdb.NewIndex(titles, log.Logger)
		if err != nil {
			log.Fatal("Failed to build title index", "error", err)
		}
		defer index.Close()
		opts.Matcher = imdb.NewMatcher(index, log.Logger)
		opts.Ratings = dataset
	}

	ovr, err := enrich.LoadOverrides(*overrides)
	if err != nil {
		log.Fatal("Failed to load overrides", "path", *overrides, "error", err)
	}
	opts.Overrides = ovr

	pipeline, err := enrich.NewPipeline(opts)
	if err != nil {
		log.Fatal("Failed to assemble pipeline", "error", err)
	}

	started := time.Now()
	records, err := pipeline.Run(ctx)
	if err != nil {
		log.Fatal("Enrichment run failed", "error", err)
	}

	if *dryRun {
		log.Info("Dry run complete, skipping emit",
			"records", len(records),
			"duration", time.Since(started).Round(time.Second),
		)
		return
	}

	emitter := enrich.NewEmitter(enrich.EmitterOptions{Dir: *outDir, Logger: log.Logger})
	file, err := emitter.Emit(records)
	if err != nil {
		log.Fatal("Failed to write catalog", "error", err)
	}

	log.Info("Catalog refreshed",
		"path", filepath.Join(*outDir, enrich.CatalogFilename),
		"version", file.Version,
		"total", file.Stats.Total,
		"series", file.Stats.Series,
		"movies", file.Stats.Movies,
		"duration", time.Since(started).Round(time.Second),
	)
}

// openDataset opens the IMDB dataset when one is configured, importing
// fresh TSV dumps first when given. Returns nil when no dataset is
// available; the pipeline then skips matching and community ratings.
func openDataset(ctx context.Context, log *logger.Logger) *imdb.Dataset {
	importing := *imdbBasics != "" || *imdbRatings != ""
	if !importing {
		if _, err := os.Stat(*imdbDB); err != nil {
			log.Info("No IMDB dataset, skipping title matching and ratings", "path", *imdbDB)
			return nil
		}
	}

	dataset, err := imdb.Open(*imdbDB, log.Logger)
	if err != nil {
		log.Fatal("Failed to open IMDB dataset", "path", *imdbDB, "error", err)
	}

	if *imdbBasics != "" {
		importTSV(ctx, log, *imdbBasics, dataset.ImportBasics)
	}
	if *imdbRatings != "" {
		importTSV(ctx, log, *imdbRatings, dataset.ImportRatings)
	}

	return dataset
}

func importTSV(ctx context.Context, log *logger.Logger, path string, ingest func(context.Context, io.Reader) (int, error)) {
	f, err := os.Open(path)
	if err != nil {
		log.Fatal("Failed to open IMDB dump", "path", path, "error", err)
	}
	defer f.Close()

	if _, err := ingest(ctx, f); err != nil {
		log.Fatal("Failed to import IMDB dump", "path", path, "error", err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
