package catalog

import (
	"bytes"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haruapp/haru-server/internal/domain"
)

const envelopeFixture = `{
	"buildDate": "2026-08-01T04:00:00Z",
	"version": "b7f3a1",
	"source": "kitsu",
	"stats": {"total": 3, "series": 2, "movies": 1},
	"catalog": [
		{
			"id": "tt0213338",
			"imdb_id": "tt0213338",
			"mal_id": 1,
			"kitsu_id": 1376,
			"name": "Cowboy Bebop",
			"genres": ["Action", "Sci-Fi"],
			"studios": ["Sunrise"],
			"subtype": "TV",
			"status": "FINISHED",
			"year": 1998,
			"season": "spring",
			"rating": 8.75,
			"episode_count": 26,
			"runtime_minutes": 24
		},
		{
			"id": "tt2560140",
			"imdb_id": "tt2560140",
			"mal_id": 16498,
			"anilist_id": 16498,
			"name": "Attack on Titan",
			"genres": ["Action", "Drama"],
			"subtype": "TV",
			"status": "ONGOING",
			"year": 2013,
			"season": "spring",
			"broadcast_day": "Sunday",
			"rating": 8.55,
			"episode_count": 25
		},
		{
			"id": "tt5311514",
			"imdb_id": "tt5311514",
			"mal_id": 32281,
			"name": "Your Name.",
			"genres": ["Drama", "Romance"],
			"subtype": "movie",
			"status": "FINISHED",
			"year": 2016,
			"season": "summer",
			"rating": 8.85,
			"runtime_minutes": 106
		}
	]
}`

// writeStoreFile writes catalog bytes into a temp dir and returns a
// store pointed at them.
func writeStoreFile(t *testing.T, data []byte) *Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "database.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	return New(Options{CatalogPath: path})
}

func TestStore_LoadEnvelope(t *testing.T) {
	store := writeStoreFile(t, []byte(envelopeFixture))

	require.NoError(t, store.Load(context.Background()))

	assert.True(t, store.Ready())
	assert.Equal(t, 3, store.Len())

	info := store.BuildInfo()
	assert.Equal(t, "2026-08-01T04:00:00Z", info.BuildDate)
	assert.Equal(t, "b7f3a1", info.Version)
	assert.Equal(t, "kitsu", info.Source)
	assert.Equal(t, 3, info.Stats.Total)
	assert.Equal(t, 2, info.Stats.Series)
	assert.Equal(t, 1, info.Stats.Movies)
	assert.False(t, info.LoadedAt.IsZero())
}

func TestStore_LoadBareArray(t *testing.T) {
	fixture := `[
		{"id": "tt0213338", "name": "Cowboy Bebop", "subtype": "TV", "status": "FINISHED"},
		{"id": "tt5311514", "name": "Your Name.", "subtype": "movie", "status": "FINISHED"}
	]`
	store := writeStoreFile(t, []byte(fixture))

	require.NoError(t, store.Load(context.Background()))

	assert.True(t, store.Ready())
	assert.Equal(t, 2, store.Len())

	// Stats are computed when the file carries none.
	info := store.BuildInfo()
	assert.Equal(t, 2, info.Stats.Total)
	assert.Equal(t, 1, info.Stats.Series)
	assert.Equal(t, 1, info.Stats.Movies)
}

func TestStore_LoadGzip(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(envelopeFixture))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	// Content detection, not the file extension, selects the decoder.
	store := writeStoreFile(t, buf.Bytes())

	require.NoError(t, store.Load(context.Background()))
	assert.True(t, store.Ready())
	assert.Equal(t, 3, store.Len())
}

func TestStore_LoadLooseShapes(t *testing.T) {
	fixture := `[
		{
			"id": "tt2560140",
			"imdbId": "tt2560140",
			"malId": "16498",
			"title": "Attack on Titan",
			"type": "tv",
			"status": "currently airing",
			"weekday": "Sundays",
			"episodeLength": "24 min",
			"averageRating": "85.5",
			"episodes": 25
		},
		{
			"mal_id": 772,
			"name": "Ghost in the Shell 2.0",
			"subtype": "Special",
			"runtime": "1 hr 45 min",
			"status": "finished airing"
		},
		{"id": "tt0000001"},
		{"name": "No Identity At All"}
	]`
	store := writeStoreFile(t, []byte(fixture))

	require.NoError(t, store.Load(context.Background()))

	// The two malformed trailing entries are dropped.
	require.Equal(t, 2, store.Len())

	aot, ok := store.Get("tt2560140")
	require.True(t, ok)
	assert.Equal(t, 16498, aot.MalID)
	assert.Equal(t, "Attack on Titan", aot.Name)
	assert.Equal(t, domain.SubtypeTV, aot.Subtype)
	assert.Equal(t, domain.StatusOngoing, aot.Status)
	assert.Equal(t, "Sunday", aot.BroadcastDay)
	assert.Equal(t, 24, aot.RuntimeMinutes)
	require.NotNil(t, aot.Rating)
	assert.InDelta(t, 8.55, *aot.Rating, 0.001)

	gits, ok := store.Get("mal-772")
	require.True(t, ok)
	assert.Equal(t, domain.SubtypeSpecial, gits.Subtype)
	assert.Equal(t, 105, gits.RuntimeMinutes)
	assert.True(t, gits.IsMovie())
}

func TestStore_LoadMissingFile(t *testing.T) {
	store := New(Options{CatalogPath: filepath.Join(t.TempDir(), "nope.json")})

	err := store.Load(context.Background())
	require.Error(t, err)

	// The server keeps running on an empty, not-ready catalog.
	assert.False(t, store.Ready())
	assert.Equal(t, 0, store.Len())
	assert.Empty(t, store.Catalog(Request{Catalog: CatalogTopRated}))
	assert.Empty(t, store.Search("cowboy bebop", ""))
}

func TestStore_LoadCorrupt(t *testing.T) {
	store := writeStoreFile(t, []byte(`{"catalog": [{`))

	err := store.Load(context.Background())
	require.Error(t, err)
	assert.False(t, store.Ready())
	assert.Equal(t, 0, store.Len())
}

func TestStore_LoadEmptyCatalog(t *testing.T) {
	store := writeStoreFile(t, []byte(`{"catalog": []}`))

	// An empty catalog parses fine but is not considered ready.
	require.NoError(t, store.Load(context.Background()))
	assert.False(t, store.Ready())
}

func TestStore_LoadCancelled(t *testing.T) {
	store := writeStoreFile(t, []byte(envelopeFixture))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, store.Load(ctx), context.Canceled)
}

func TestStore_ConcurrentLoadsShareOneRead(t *testing.T) {
	store := writeStoreFile(t, []byte(envelopeFixture))

	var reads atomic.Int64
	realRead := store.readFile
	store.readFile = func(path string) ([]byte, error) {
		reads.Add(1)
		time.Sleep(200 * time.Millisecond)
		return realRead(path)
	}

	const callers = 20
	var ready, done sync.WaitGroup
	start := make(chan struct{})

	ready.Add(callers)
	done.Add(callers)
	for range callers {
		go func() {
			defer done.Done()
			ready.Done()
			<-start
			assert.NoError(t, store.Load(context.Background()))
		}()
	}

	ready.Wait()
	close(start)
	done.Wait()

	assert.Equal(t, int64(1), reads.Load())
	assert.True(t, store.Ready())
}

func TestStore_ReloadSwapsSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "database.json")
	require.NoError(t, os.WriteFile(path, []byte(envelopeFixture), 0o644))

	store := New(Options{CatalogPath: path})
	require.NoError(t, store.Load(context.Background()))
	require.Equal(t, 3, store.Len())

	next := `{
		"buildDate": "2026-08-02T04:00:00Z",
		"version": "c9d401",
		"source": "kitsu",
		"catalog": [{"id": "tt0213338", "name": "Cowboy Bebop", "subtype": "TV", "status": "FINISHED"}]
	}`
	require.NoError(t, os.WriteFile(path, []byte(next), 0o644))

	require.NoError(t, store.Load(context.Background()))
	assert.Equal(t, 1, store.Len())
	assert.Equal(t, "2026-08-02T04:00:00Z", store.BuildInfo().BuildDate)
}

func TestStore_FailedReloadKeepsPreviousSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "database.json")
	require.NoError(t, os.WriteFile(path, []byte(envelopeFixture), 0o644))

	store := New(Options{CatalogPath: path})
	require.NoError(t, store.Load(context.Background()))
	require.Equal(t, 3, store.Len())

	// A truncated write must not replace the serving catalog.
	require.NoError(t, os.WriteFile(path, []byte(`{"catalog": [{"id":`), 0o644))
	require.Error(t, store.Load(context.Background()))

	assert.True(t, store.Ready())
	assert.Equal(t, 3, store.Len())
	assert.Equal(t, "2026-08-01T04:00:00Z", store.BuildInfo().BuildDate)
}

func TestStore_FiltersFromFile(t *testing.T) {
	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "database.json")
	filtersPath := filepath.Join(dir, "filters.json")
	require.NoError(t, os.WriteFile(catalogPath, []byte(envelopeFixture), 0o644))
	require.NoError(t, os.WriteFile(filtersPath, []byte(`{
		"genres": {"withCounts": ["Action (42)", "Drama (17)"], "list": ["Action", "Drama"]},
		"seasons": {"withCounts": ["Spring 2013 (7)"], "list": ["Spring 2013"]},
		"weekdays": {"withCounts": [], "list": []},
		"studios": {"withCounts": [], "list": []},
		"movieGenres": {"withCounts": [], "list": []}
	}`), 0o644))

	store := New(Options{CatalogPath: catalogPath, FiltersPath: filtersPath})
	require.NoError(t, store.Load(context.Background()))

	filters := store.Filters()
	require.Len(t, filters.Genres, 2)
	assert.Equal(t, domain.FacetCount{Label: "Action", Count: 42}, filters.Genres[0])
	assert.Equal(t, domain.FacetCount{Label: "Drama", Count: 17}, filters.Genres[1])
	require.Len(t, filters.Seasons, 1)
	assert.Equal(t, domain.FacetCount{Label: "Spring 2013", Count: 7}, filters.Seasons[0])
}

func TestStore_FiltersComputedWhenFileMissing(t *testing.T) {
	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "database.json")
	require.NoError(t, os.WriteFile(catalogPath, []byte(envelopeFixture), 0o644))

	store := New(Options{
		CatalogPath: catalogPath,
		FiltersPath: filepath.Join(dir, "filters.json"),
	})
	require.NoError(t, store.Load(context.Background()))

	filters := store.Filters()
	labels := make([]string, 0, len(filters.Genres))
	for _, f := range filters.Genres {
		labels = append(labels, f.Label)
	}
	assert.Equal(t, []string{"Action", "Drama", "Romance", "Sci-Fi"}, labels)
}

func TestStore_Resolve(t *testing.T) {
	store := writeStoreFile(t, []byte(envelopeFixture))
	require.NoError(t, store.Load(context.Background()))

	tests := []struct {
		name   string
		id     string
		want   string
		wantOK bool
	}{
		{name: "canonical imdb id", id: "tt0213338", want: "Cowboy Bebop", wantOK: true},
		{name: "mal prefix", id: "mal-16498", want: "Attack on Titan", wantOK: true},
		{name: "kitsu prefix", id: "kitsu:1376", want: "Cowboy Bebop", wantOK: true},
		{name: "anilist prefix", id: "anilist:16498", want: "Attack on Titan", wantOK: true},
		{name: "unknown imdb id", id: "tt9999999", wantOK: false},
		{name: "unknown prefix", id: "tvdb:42", wantOK: false},
		{name: "malformed mal id", id: "mal-abc", wantOK: false},
		{name: "empty", id: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, ok := store.Resolve(tt.id)
			require.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, record.Name)
			}
		})
	}
}

func TestStore_GetBySeason(t *testing.T) {
	store := writeStoreFile(t, []byte(envelopeFixture))
	require.NoError(t, store.Load(context.Background()))

	spring2013 := store.GetBySeason(2013, domain.SeasonSpring)
	require.Len(t, spring2013, 1)
	assert.Equal(t, "Attack on Titan", spring2013[0].Name)

	summer2016 := store.GetBySeason(2016, domain.SeasonSummer)
	require.Len(t, summer2016, 1)
	assert.Equal(t, "Your Name.", summer2016[0].Name)

	assert.Empty(t, store.GetBySeason(1990, domain.SeasonWinter))
}

func TestStore_BeforeLoad(t *testing.T) {
	store := New(Options{CatalogPath: "unused.json"})

	assert.False(t, store.Ready())
	assert.Equal(t, 0, store.Len())
	assert.Empty(t, store.All())

	_, ok := store.Get("tt0213338")
	assert.False(t, ok)
}
