package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/haruapp/haru-server/internal/domain"
)

// Store holds the enriched catalog in memory and answers every read the
// addon serves. A load builds a complete immutable snapshot and swaps it
// in under the lock, so readers never observe a half-built catalog.
//
// Thread safety: all public methods are safe for concurrent use.
type Store struct {
	catalogPath string
	filtersPath string
	logger      *slog.Logger

	// readFile is swapped in tests to count disk reads.
	readFile func(string) ([]byte, error)

	// group collapses concurrent loads into a single disk read.
	group singleflight.Group

	mu   sync.RWMutex
	snap *snapshot
}

// Options configures the catalog store.
type Options struct {
	CatalogPath string       // Path to the enriched catalog JSON (plain or gzip)
	FiltersPath string       // Path to the precomputed filter options JSON
	Logger      *slog.Logger // Logger for load events (uses discard if nil)
}

// snapshot is one immutable view of the catalog. Lookups index into the
// records slice so a record is stored once.
type snapshot struct {
	records []domain.AnimeRecord
	search  []searchText

	byID      map[string]int
	byImdb    map[string]int
	byMal     map[int]int
	byKitsu   map[int]int
	byAnilist map[int]int
	bySeason  map[seasonKey][]int

	filters   domain.FilterOptions
	stats     domain.CatalogStats
	buildDate string
	version   string
	source    string

	ready    bool
	loadedAt time.Time
}

// seasonKey buckets records by premiere season.
type seasonKey struct {
	year   int
	season domain.Season
}

// BuildInfo describes the catalog build currently being served.
type BuildInfo struct {
	BuildDate string
	Version   string
	Source    string
	Stats     domain.CatalogStats
	LoadedAt  time.Time
}

// New creates a catalog store. The catalog is not read until Load is
// called; until then the store serves an empty, not-ready view.
func New(opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return &Store{
		catalogPath: opts.CatalogPath,
		filtersPath: opts.FiltersPath,
		logger:      logger,
		readFile:    os.ReadFile,
	}
}

// Load reads the catalog file and swaps in a fresh snapshot. Concurrent
// calls share a single read. A missing or corrupt file on first load
// installs an empty not-ready snapshot and returns the error; the
// server keeps running and serves empty results until a load succeeds.
// Once a catalog is serving, a failed reload keeps the previous
// snapshot in place.
func (s *Store) Load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err, shared := s.group.Do("load", func() (any, error) {
		return nil, s.loadOnce()
	})
	if shared {
		s.logger.Debug("catalog load shared with concurrent caller")
	}
	return err
}

func (s *Store) loadOnce() error {
	started := time.Now()

	data, err := s.readFile(s.catalogPath)
	if err != nil {
		s.installEmptyIfUnloaded()
		return fmt.Errorf("read catalog %s: %w", s.catalogPath, err)
	}

	file, err := parseCatalog(data)
	if err != nil {
		s.installEmptyIfUnloaded()
		return fmt.Errorf("parse catalog %s: %w", s.catalogPath, err)
	}

	snap := buildSnapshot(file)
	snap.filters = s.loadFilters(file.Catalog)
	s.install(snap)

	s.logger.Info("catalog loaded",
		"path", s.catalogPath,
		"total", snap.stats.Total,
		"series", snap.stats.Series,
		"movies", snap.stats.Movies,
		"build_date", snap.buildDate,
		"duration", time.Since(started).Round(time.Millisecond).String(),
	)
	return nil
}

// loadFilters prefers the precomputed filters file and falls back to
// computing the facets from the records just loaded.
func (s *Store) loadFilters(records []domain.AnimeRecord) domain.FilterOptions {
	if s.filtersPath != "" {
		if data, err := s.readFile(s.filtersPath); err == nil {
			if filters, err := parseFilters(data); err == nil {
				return filters
			} else {
				s.logger.Warn("filters file unreadable, computing from catalog",
					"path", s.filtersPath, "error", err)
			}
		}
	}
	return domain.ComputeFilterOptions(records)
}

func (s *Store) install(snap *snapshot) {
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
}

// installEmptyIfUnloaded records that a first load was attempted. A
// failed reload leaves the previous snapshot serving instead.
func (s *Store) installEmptyIfUnloaded() {
	s.mu.Lock()
	if s.snap == nil {
		s.snap = &snapshot{loadedAt: time.Now()}
	}
	s.mu.Unlock()
}

// buildSnapshot indexes the records. Later records win id collisions,
// matching how the pipeline orders merged entries.
func buildSnapshot(file domain.CatalogFile) *snapshot {
	snap := &snapshot{
		records:   file.Catalog,
		search:    buildSearchText(file.Catalog),
		byID:      make(map[string]int, len(file.Catalog)),
		byImdb:    make(map[string]int, len(file.Catalog)),
		byMal:     make(map[int]int, len(file.Catalog)),
		byKitsu:   make(map[int]int, len(file.Catalog)),
		byAnilist: make(map[int]int, len(file.Catalog)),
		bySeason:  make(map[seasonKey][]int),
		stats:     file.Stats,
		buildDate: file.BuildDate,
		version:   file.Version,
		source:    file.Source,
		ready:     len(file.Catalog) > 0,
		loadedAt:  time.Now(),
	}
	for i := range file.Catalog {
		r := &file.Catalog[i]
		snap.byID[r.ID] = i
		if r.ImdbID != "" {
			snap.byImdb[r.ImdbID] = i
		}
		if r.MalID > 0 {
			snap.byMal[r.MalID] = i
		}
		if r.KitsuID > 0 {
			snap.byKitsu[r.KitsuID] = i
		}
		if r.AnilistID > 0 {
			snap.byAnilist[r.AnilistID] = i
		}
		if year := r.StartYear(); r.Season != "" && year > 0 {
			key := seasonKey{year: year, season: r.Season}
			snap.bySeason[key] = append(snap.bySeason[key], i)
		}
	}
	return snap
}

// seasonBucket returns copies of the records premiering in one season.
func (snap *snapshot) seasonBucket(year int, season domain.Season) []domain.AnimeRecord {
	idxs := snap.bySeason[seasonKey{year: year, season: season}]
	out := make([]domain.AnimeRecord, len(idxs))
	for i, idx := range idxs {
		out[i] = snap.records[idx]
	}
	return out
}

// view returns the current snapshot, never nil.
func (s *Store) view() *snapshot {
	s.mu.RLock()
	snap := s.snap
	s.mu.RUnlock()
	if snap == nil {
		return &snapshot{}
	}
	return snap
}

// Ready reports whether a non-empty catalog is being served.
func (s *Store) Ready() bool {
	return s.view().ready
}

// Len returns the number of records in the current snapshot.
func (s *Store) Len() int {
	return len(s.view().records)
}

// All returns the records of the current snapshot. The slice is shared
// with the snapshot and must not be mutated.
func (s *Store) All() []domain.AnimeRecord {
	return s.view().records
}

// Filters returns the facet options of the current snapshot.
func (s *Store) Filters() domain.FilterOptions {
	return s.view().filters
}

// BuildInfo returns metadata about the catalog build being served.
func (s *Store) BuildInfo() BuildInfo {
	snap := s.view()
	return BuildInfo{
		BuildDate: snap.buildDate,
		Version:   snap.version,
		Source:    snap.source,
		Stats:     snap.stats,
		LoadedAt:  snap.loadedAt,
	}
}

// GetBySeason returns every record premiering in one broadcast season,
// movies included.
func (s *Store) GetBySeason(year int, season domain.Season) []domain.AnimeRecord {
	return s.view().seasonBucket(year, season)
}

// Get looks up a record by its canonical id ("tt..." or "mal-...").
func (s *Store) Get(id string) (domain.AnimeRecord, bool) {
	snap := s.view()
	if i, ok := snap.byID[id]; ok {
		return snap.records[i], true
	}
	return domain.AnimeRecord{}, false
}

// Resolve looks up a record by any id form Stremio may hand the addon:
// the canonical id, a bare IMDB id, or a "mal-", "kitsu:", "anilist:"
// prefixed external id.
func (s *Store) Resolve(id string) (domain.AnimeRecord, bool) {
	snap := s.view()

	if i, ok := snap.byID[id]; ok {
		return snap.records[i], true
	}

	switch {
	case strings.HasPrefix(id, "tt"):
		if i, ok := snap.byImdb[id]; ok {
			return snap.records[i], true
		}
	case strings.HasPrefix(id, "mal-"):
		if n, err := strconv.Atoi(strings.TrimPrefix(id, "mal-")); err == nil {
			if i, ok := snap.byMal[n]; ok {
				return snap.records[i], true
			}
		}
	case strings.HasPrefix(id, "kitsu:"):
		if n, err := strconv.Atoi(strings.TrimPrefix(id, "kitsu:")); err == nil {
			if i, ok := snap.byKitsu[n]; ok {
				return snap.records[i], true
			}
		}
	case strings.HasPrefix(id, "anilist:"):
		if n, err := strconv.Atoi(strings.TrimPrefix(id, "anilist:")); err == nil {
			if i, ok := snap.byAnilist[n]; ok {
				return snap.records[i], true
			}
		}
	}

	return domain.AnimeRecord{}, false
}
