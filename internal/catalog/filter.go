package catalog

import (
	"fmt"
	"sort"
	"time"

	"github.com/haruapp/haru-server/internal/domain"
)

// ID names one of the catalogs the addon serves.
type ID string

const (
	CatalogTopRated       ID = "top-rated"
	CatalogSeasonReleases ID = "season-releases"
	CatalogAiring         ID = "airing"
	CatalogMovies         ID = "movies"
)

// Stremio content types the addon answers for.
const (
	TypeSeries = "series"
	TypeMovie  = "movie"
)

// Synthetic movie facets. They are prepended to the movie genre list in
// the manifest and resolved here; they never appear in FilterOptions.
const (
	FacetUpcoming    = "Upcoming"
	FacetNewReleases = "New Releases"
)

// PageSize is the fixed number of metas per catalog page.
const PageSize = 100

// Thresholds for the exclude-long-running heuristic on the airing
// catalog.
const (
	longRunningEpisodes     = 500
	longRunningAgedEpisodes = 200
	longRunningAgeYears     = 5
)

// newReleaseWindowYears is how far back the "New Releases" movie facet
// reaches from the current year.
const newReleaseWindowYears = 1

// Request selects and shapes one catalog page.
type Request struct {
	Catalog ID
	Type    string // "series" or "movie"; empty matches the catalog's own type
	Genre   string // raw facet value; a trailing " (N)" count is tolerated
	Skip    int

	ExcludeLongRunning bool

	// Now anchors year-relative rules; the zero value means time.Now().
	Now time.Time
}

func (req *Request) now() time.Time {
	if req.Now.IsZero() {
		return time.Now()
	}
	return req.Now
}

// Catalog returns the full filtered and sorted record list for a
// request. Callers paginate with Paginate. An unknown catalog id or a
// type that does not match the catalog yields an empty list.
func (s *Store) Catalog(req Request) []domain.AnimeRecord {
	snap := s.view()
	genre := domain.TrimFacetCount(req.Genre)

	switch req.Catalog {
	case CatalogTopRated:
		if !seriesType(req.Type) {
			return nil
		}
		return topRated(snap.records, genre)
	case CatalogSeasonReleases:
		if !seriesType(req.Type) {
			return nil
		}
		return seasonReleases(snap, genre)
	case CatalogAiring:
		if !seriesType(req.Type) {
			return nil
		}
		return airing(snap.records, genre, req.ExcludeLongRunning, req.now())
	case CatalogMovies:
		if req.Type != "" && req.Type != TypeMovie {
			return nil
		}
		return movies(snap.records, genre, req.now())
	default:
		return nil
	}
}

// Page is Catalog plus pagination.
func (s *Store) Page(req Request) []domain.AnimeRecord {
	return Paginate(s.Catalog(req), req.Skip)
}

// Paginate slices one fixed-size page out of a result list. An
// out-of-range skip yields an empty slice; concatenating pages at
// skip 0, 100, 200, ... reconstructs the list exactly.
func Paginate(records []domain.AnimeRecord, skip int) []domain.AnimeRecord {
	if skip < 0 || skip >= len(records) {
		return []domain.AnimeRecord{}
	}
	end := skip + PageSize
	if end > len(records) {
		end = len(records)
	}
	return records[skip:end]
}

func seriesType(t string) bool {
	return t == "" || t == TypeSeries
}

// topRated lists series by rating, optionally narrowed to one genre.
func topRated(records []domain.AnimeRecord, genre string) []domain.AnimeRecord {
	out := collect(records, func(r *domain.AnimeRecord) bool {
		if !r.IsSeries() {
			return false
		}
		return genre == "" || r.HasGenre(genre)
	})
	sortByRating(out)
	return out
}

// seasonReleases lists the series of one broadcast season, newest
// premiere first. The facet value is a season label like "Fall 2024";
// with no facet the newest season present in the catalog is shown.
func seasonReleases(snap *snapshot, genre string) []domain.AnimeRecord {
	var (
		season domain.Season
		year   int
		ok     bool
	)
	if genre != "" {
		season, year, ok = domain.ParseSeasonLabel(genre)
		if !ok {
			return nil
		}
	} else {
		season, year, ok = newestSeason(snap.records)
		if !ok {
			return nil
		}
	}

	out := collect(snap.seasonBucket(year, season), func(r *domain.AnimeRecord) bool {
		return r.IsSeries()
	})
	sortByPremiere(out)
	return out
}

// newestSeason finds the most recent (year, season) pair among series.
// Movies are ignored so an early-announced film cannot empty the
// default season catalog.
func newestSeason(records []domain.AnimeRecord) (domain.Season, int, bool) {
	var (
		bestSeason domain.Season
		bestYear   int
		bestRank   = -1
	)
	for i := range records {
		r := &records[i]
		if r.Season == "" || !r.IsSeries() {
			continue
		}
		year := r.StartYear()
		if year == 0 {
			continue
		}
		rank := seasonOrdinal(r.Season)
		if year > bestYear || (year == bestYear && rank > bestRank) {
			bestSeason, bestYear, bestRank = r.Season, year, rank
		}
	}
	return bestSeason, bestYear, bestYear > 0
}

func seasonOrdinal(s domain.Season) int {
	switch s {
	case domain.SeasonWinter:
		return 0
	case domain.SeasonSpring:
		return 1
	case domain.SeasonSummer:
		return 2
	case domain.SeasonFall:
		return 3
	default:
		return -1
	}
}

// airing lists currently broadcasting series, optionally narrowed to a
// weekday facet, with the long-running filter applied when enabled.
func airing(records []domain.AnimeRecord, weekday string, excludeLongRunning bool, now time.Time) []domain.AnimeRecord {
	out := collect(records, func(r *domain.AnimeRecord) bool {
		if !r.IsSeries() || r.Status != domain.StatusOngoing {
			return false
		}
		if weekday != "" && r.BroadcastDay != weekday {
			return false
		}
		if excludeLongRunning && isLongRunning(r, now) {
			return false
		}
		return true
	})
	sortByRating(out)
	return out
}

// isLongRunning flags perennial franchises: anything past 500 episodes,
// or past 200 episodes when it started more than five years ago.
func isLongRunning(r *domain.AnimeRecord, now time.Time) bool {
	if r.EpisodeCount >= longRunningEpisodes {
		return true
	}
	year := r.StartYear()
	return year > 0 && now.Year()-year > longRunningAgeYears &&
		r.EpisodeCount >= longRunningAgedEpisodes
}

// movies lists the movie catalog. Besides plain genre facets it resolves
// the two synthetic facets: "Upcoming" (unreleased, soonest premiere
// first) and "New Releases" (premiered within the recent window, newest
// year first).
func movies(records []domain.AnimeRecord, genre string, now time.Time) []domain.AnimeRecord {
	switch genre {
	case FacetUpcoming:
		out := collect(records, func(r *domain.AnimeRecord) bool {
			return r.IsMovie() && r.Status == domain.StatusUpcoming
		})
		sortByUpcoming(out)
		return out
	case FacetNewReleases:
		cutoff := now.Year() - newReleaseWindowYears
		out := collect(records, func(r *domain.AnimeRecord) bool {
			return r.IsMovie() && r.Status != domain.StatusUpcoming && r.StartYear() >= cutoff
		})
		sortByYear(out)
		return out
	default:
		out := collect(records, func(r *domain.AnimeRecord) bool {
			if !r.IsMovie() {
				return false
			}
			return genre == "" || r.HasGenre(genre)
		})
		sortByRating(out)
		return out
	}
}

func collect(records []domain.AnimeRecord, keep func(*domain.AnimeRecord) bool) []domain.AnimeRecord {
	out := make([]domain.AnimeRecord, 0, len(records)/4)
	for i := range records {
		if keep(&records[i]) {
			out = append(out, records[i])
		}
	}
	return out
}

// sortByRating orders by rating desc, then name, then id. Every sort
// here ends on the id so pagination sees one stable total order.
func sortByRating(records []domain.AnimeRecord) {
	sort.Slice(records, func(i, j int) bool {
		if ri, rj := records[i].RatingValue(), records[j].RatingValue(); ri != rj {
			return ri > rj
		}
		return byNameID(&records[i], &records[j])
	})
}

// sortByPremiere orders by premiere date desc, unknown dates last.
func sortByPremiere(records []domain.AnimeRecord) {
	sort.Slice(records, func(i, j int) bool {
		di, dj := premiereKey(&records[i]), premiereKey(&records[j])
		if di != dj {
			return di > dj
		}
		if ri, rj := records[i].RatingValue(), records[j].RatingValue(); ri != rj {
			return ri > rj
		}
		return byNameID(&records[i], &records[j])
	})
}

// sortByUpcoming orders by premiere date asc so the next release leads;
// unknown dates sort last.
func sortByUpcoming(records []domain.AnimeRecord) {
	sort.Slice(records, func(i, j int) bool {
		di, dj := premiereKey(&records[i]), premiereKey(&records[j])
		if di != dj {
			if di == "" {
				return false
			}
			if dj == "" {
				return true
			}
			return di < dj
		}
		if ri, rj := records[i].RatingValue(), records[j].RatingValue(); ri != rj {
			return ri > rj
		}
		return byNameID(&records[i], &records[j])
	})
}

// sortByYear orders by premiere year desc, then rating desc.
func sortByYear(records []domain.AnimeRecord) {
	sort.Slice(records, func(i, j int) bool {
		if yi, yj := records[i].StartYear(), records[j].StartYear(); yi != yj {
			return yi > yj
		}
		if ri, rj := records[i].RatingValue(), records[j].RatingValue(); ri != rj {
			return ri > rj
		}
		return byNameID(&records[i], &records[j])
	})
}

// premiereKey is a sortable premiere date: the full start date when
// known, else the bare year, else empty.
func premiereKey(r *domain.AnimeRecord) string {
	if r.StartDate != "" {
		return r.StartDate
	}
	if y := r.StartYear(); y > 0 {
		return fmt.Sprintf("%04d", y)
	}
	return ""
}

func byNameID(a, b *domain.AnimeRecord) bool {
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	return a.ID < b.ID
}
