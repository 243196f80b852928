package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haruapp/haru-server/internal/domain"
)

func testFilters() domain.FilterOptions {
	return domain.FilterOptions{
		Genres: []domain.FacetCount{
			{Label: "Action", Count: 812},
			{Label: "Animation", Count: 4200},
			{Label: "Drama", Count: 633},
		},
		Seasons: []domain.FacetCount{
			{Label: "Fall 2024", Count: 63},
			{Label: "Summer 2024", Count: 58},
		},
		Weekdays: []domain.FacetCount{
			{Label: "Saturday", Count: 21},
			{Label: "Sunday", Count: 17},
		},
		Studios: []domain.FacetCount{
			{Label: "Toei Animation", Count: 240},
		},
		MovieGenres: []domain.FacetCount{
			{Label: "Animation", Count: 900},
			{Label: "Fantasy", Count: 112},
		},
	}
}

func TestBuild_Descriptor(t *testing.T) {
	m := Build(Options{
		ID:          "community.haru.anime",
		Name:        "Haru Anime Catalogs",
		Description: "Anime catalogs with IMDB ratings",
		Filters:     testFilters(),
		Config:      DefaultConfig(),
	})

	assert.Equal(t, "community.haru.anime", m.ID)
	assert.Equal(t, Version, m.Version)
	assert.Equal(t, []string{"series", "movie"}, m.Types)
	assert.Equal(t, []string{"catalog", "meta"}, m.Resources)
	assert.Equal(t, []string{"tt", "mal-", "kitsu:", "anilist:"}, m.IDPrefixes)
	assert.True(t, m.BehaviorHints.Configurable)

	require.Len(t, m.Catalogs, 4)
	assert.Equal(t, "top-rated", m.Catalogs[0].ID)
	assert.Equal(t, "series", m.Catalogs[0].Type)
	assert.Equal(t, "season-releases", m.Catalogs[1].ID)
	assert.Equal(t, "airing", m.Catalogs[2].ID)
	assert.Equal(t, "movies", m.Catalogs[3].ID)
	assert.Equal(t, "movie", m.Catalogs[3].Type)
}

func TestBuild_DropsAnimationFacet(t *testing.T) {
	m := Build(Options{Filters: testFilters(), Config: DefaultConfig()})

	genreOptions := extraOptions(t, m.Catalogs[0], "genre")
	assert.Equal(t, []string{"Action (812)", "Drama (633)"}, genreOptions)

	movieOptions := extraOptions(t, m.Catalogs[3], "genre")
	assert.NotContains(t, movieOptions, "Animation (900)")
	assert.NotContains(t, movieOptions, "Animation")
}

func TestBuild_MovieGenresLeadWithSynthetics(t *testing.T) {
	m := Build(Options{Filters: testFilters(), Config: DefaultConfig()})

	movieOptions := extraOptions(t, m.Catalogs[3], "genre")
	assert.Equal(t, []string{"Upcoming", "New Releases", "Fantasy (112)"}, movieOptions)
}

func TestBuild_CountsToggle(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ShowCounts = false

	m := Build(Options{Filters: testFilters(), Config: cfg})

	assert.Equal(t, []string{"Action", "Drama"}, extraOptions(t, m.Catalogs[0], "genre"))
	assert.Equal(t, []string{"Fall 2024", "Summer 2024"}, extraOptions(t, m.Catalogs[1], "genre"))
	assert.Equal(t, []string{"Saturday", "Sunday"}, extraOptions(t, m.Catalogs[2], "genre"))
	assert.Equal(t, []string{"Upcoming", "New Releases", "Fantasy"}, extraOptions(t, m.Catalogs[3], "genre"))
}

func TestBuild_SearchAndSkipExtras(t *testing.T) {
	m := Build(Options{Filters: testFilters(), Config: DefaultConfig()})

	assert.True(t, hasExtra(m.Catalogs[0], "search"))
	assert.True(t, hasExtra(m.Catalogs[0], "skip"))
	assert.False(t, hasExtra(m.Catalogs[1], "search"))
	assert.True(t, hasExtra(m.Catalogs[1], "skip"))
	assert.True(t, hasExtra(m.Catalogs[3], "search"))
}

func TestBuild_Pure(t *testing.T) {
	opts := Options{
		ID:      "community.haru.anime",
		Filters: testFilters(),
		Config:  DefaultConfig(),
	}

	assert.Equal(t, Build(opts), Build(opts))
}

func extraOptions(t *testing.T, c Catalog, name string) []string {
	t.Helper()
	for _, extra := range c.Extra {
		if extra.Name == name {
			return extra.Options
		}
	}
	t.Fatalf("catalog %s has no %q extra", c.ID, name)
	return nil
}

func hasExtra(c Catalog, name string) bool {
	for _, extra := range c.Extra {
		if extra.Name == name {
			return true
		}
	}
	return false
}
