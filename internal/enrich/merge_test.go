package enrich

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haruapp/haru-server/internal/domain"
)

func season(id, imdbID, name string, year int) domain.AnimeRecord {
	return domain.AnimeRecord{
		ID:      id,
		ImdbID:  imdbID,
		Name:    name,
		Year:    year,
		Subtype: domain.SubtypeTV,
		Status:  domain.StatusFinished,
	}
}

func ratingOf(v float64) *float64 { return &v }

func TestMergeSeasons_FoldsSeasonsIntoEarliest(t *testing.T) {
	s1 := season("tt0409591", "tt0409591", "Naruto", 2002)
	s1.MalID = 20
	s1.EpisodeCount = 220
	s1.Genres = []string{"Action", "Adventure"}
	s1.Studios = []string{"Pierrot"}
	s1.Aliases = []string{"NARUTO"}
	s1.Rating = ratingOf(8.0)
	s1.Poster = "https://img.example/naruto-s1.jpg"
	s1.EndDate = "2007-02-08"

	s2 := season("tt0988824", "tt0409591", "Naruto Shippuden", 2007)
	s2.MalID = 1735
	s2.TmdbID = 30983
	s2.EpisodeCount = 500
	s2.Genres = []string{"Action", "Martial Arts"}
	s2.Studios = []string{"Pierrot"}
	s2.Rating = ratingOf(8.5)
	s2.Poster = "https://img.example/naruto-s2.jpg"
	s2.Background = "https://img.example/naruto-s2-bg.jpg"
	s2.EndDate = "2017-03-23"

	// Later season listed first: the earliest premiere must still win
	// the identity.
	merged := MergeSeasons([]domain.AnimeRecord{s2, s1}, Overrides{})
	require.Len(t, merged, 1)

	got := merged[0]
	assert.Equal(t, "tt0409591", got.ID)
	assert.Equal(t, "Naruto", got.Name)
	assert.Equal(t, 720, got.EpisodeCount)
	assert.Equal(t, []string{"Action", "Adventure", "Martial Arts"}, got.Genres)
	assert.Equal(t, []string{"Pierrot"}, got.Studios)
	assert.Contains(t, got.Aliases, "NARUTO")
	assert.Contains(t, got.Aliases, "Naruto Shippuden")

	// Highest rating survives, and the best-rated season's art is used.
	require.NotNil(t, got.Rating)
	assert.InDelta(t, 8.5, *got.Rating, 0.001)
	assert.Equal(t, "https://img.example/naruto-s2.jpg", got.Poster)
	assert.Equal(t, "https://img.example/naruto-s2-bg.jpg", got.Background)

	assert.Equal(t, "2017-03-23", got.EndDate)
	assert.Equal(t, 20, got.MalID)
	assert.Equal(t, 30983, got.TmdbID)
}

func TestMergeSeasons_GenresNeverDuplicate(t *testing.T) {
	s1 := season("tt0001", "tt0001", "Show", 2010)
	s1.Genres = []string{"Action", "Drama"}
	s2 := season("tt0002", "tt0001", "Show Season 2", 2011)
	s2.Genres = []string{"Drama", "Action", "Thriller"}

	merged := MergeSeasons([]domain.AnimeRecord{s1, s2}, Overrides{})
	require.Len(t, merged, 1)
	assert.Equal(t, []string{"Action", "Drama", "Thriller"}, merged[0].Genres)
}

func TestMergeSeasons_OngoingSeasonPropagates(t *testing.T) {
	s1 := season("tt0001", "tt0001", "Show", 2020)
	s2 := season("tt0002", "tt0001", "Show Season 2", 2023)
	s2.Status = domain.StatusOngoing
	s2.BroadcastDay = "Friday"

	merged := MergeSeasons([]domain.AnimeRecord{s1, s2}, Overrides{})
	require.Len(t, merged, 1)
	assert.Equal(t, domain.StatusOngoing, merged[0].Status)
	assert.Equal(t, "Friday", merged[0].BroadcastDay)
}

func TestMergeSeasons_MoviesStandAlone(t *testing.T) {
	series := season("tt0409591", "tt0409591", "Naruto", 2002)
	movie := season("tt0476680", "tt0409591", "Naruto the Movie", 2004)
	movie.Subtype = domain.SubtypeMovie

	merged := MergeSeasons([]domain.AnimeRecord{series, movie}, Overrides{})
	require.Len(t, merged, 2)
	assert.Equal(t, "Naruto", merged[0].Name)
	assert.Equal(t, "Naruto the Movie", merged[1].Name)
}

func TestMergeSeasons_UnmatchedNeverMerge(t *testing.T) {
	a := season("mal-100", "", "Obscure Show", 2015)
	b := season("mal-200", "", "Obscure Show", 2016)

	merged := MergeSeasons([]domain.AnimeRecord{a, b}, Overrides{})
	assert.Len(t, merged, 2)
}

func TestMergeSeasons_HideDropsRecords(t *testing.T) {
	keep := season("tt0001", "tt0001", "Keeper", 2010)
	drop := season("mal-999", "", "Duplicate Entry", 2010)

	merged := MergeSeasons([]domain.AnimeRecord{keep, drop}, Overrides{Hide: []string{"mal-999"}})
	require.Len(t, merged, 1)
	assert.Equal(t, "Keeper", merged[0].Name)
}

func TestMergeSeasons_RemapJoinsUnmatchedParent(t *testing.T) {
	// Neither record matched an IMDB id, so only the curated remap can
	// bring them together.
	parent := season("mal-100", "", "Long Saga", 2001)
	parent.EpisodeCount = 50
	child := season("mal-200", "", "Long Saga Part 2", 2004)
	child.EpisodeCount = 25

	overrides := Overrides{Remap: map[string]string{"mal-200": "mal-100"}}
	merged := MergeSeasons([]domain.AnimeRecord{parent, child}, overrides)

	require.Len(t, merged, 1)
	assert.Equal(t, "mal-100", merged[0].ID)
	assert.Equal(t, "Long Saga", merged[0].Name)
	assert.Equal(t, 75, merged[0].EpisodeCount)
	assert.Contains(t, merged[0].Aliases, "Long Saga Part 2")
}

func TestMergeSeasons_PreservesFirstSeenOrder(t *testing.T) {
	first := season("tt0001", "tt0001", "First", 2010)
	second := season("mal-2", "", "Second", 2011)
	firstSeason2 := season("tt0003", "tt0001", "First Season 2", 2012)
	third := season("tt0004", "tt0004", "Third", 2013)

	merged := MergeSeasons([]domain.AnimeRecord{first, second, firstSeason2, third}, Overrides{})

	require.Len(t, merged, 3)
	assert.Equal(t, "First", merged[0].Name)
	assert.Equal(t, "Second", merged[1].Name)
	assert.Equal(t, "Third", merged[2].Name)
}

func TestLoadOverrides(t *testing.T) {
	t.Run("missing file yields empty overrides", func(t *testing.T) {
		o, err := LoadOverrides(filepath.Join(t.TempDir(), "overrides.json"))
		require.NoError(t, err)
		assert.Empty(t, o.Hide)
		assert.Empty(t, o.Remap)
	})

	t.Run("curated file parses", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "overrides.json")
		payload := `{"hide": ["mal-999"], "remap": {"mal-200": "mal-100"}}`
		require.NoError(t, os.WriteFile(path, []byte(payload), 0o644))

		o, err := LoadOverrides(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"mal-999"}, o.Hide)
		assert.Equal(t, map[string]string{"mal-200": "mal-100"}, o.Remap)
	})

	t.Run("malformed file errors", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "overrides.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

		_, err := LoadOverrides(path)
		assert.ErrorContains(t, err, "parse overrides")
	})
}
