package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haruapp/haru-server/internal/domain"
	"github.com/haruapp/haru-server/internal/metadata/jikan"
	"github.com/haruapp/haru-server/internal/metadata/kitsu"
)

func bebopBase() kitsu.Anime {
	return kitsu.Anime{
		ID:                1376,
		CanonicalTitle:    "Cowboy Bebop",
		EnglishTitle:      "Cowboy Bebop",
		RomajiTitle:       "Cowboy Bebop",
		JapaneseTitle:     "カウボーイビバップ",
		AbbreviatedTitles: []string{"CB"},
		Synopsis:          "In 2071, bounty hunters chase criminals across the solar system.",
		Rating:            82.31,
		StartDate:         "1998-04-03",
		EndDate:           "1999-04-24",
		Status:            "finished",
		Subtype:           "TV",
		EpisodeCount:      26,
		EpisodeLength:     24,
		PosterURL:         "https://media.kitsu.app/anime/1376/poster.jpg",
		CoverURL:          "https://media.kitsu.app/anime/1376/cover.jpg",
		Categories:        []string{"Action", "Science Fiction"},
	}
}

func bebopDetail() *jikan.Anime {
	return &jikan.Anime{
		MalID:        1,
		Title:        "Cowboy Bebop",
		EnglishTitle: "Cowboy Bebop",
		Synonyms:     []string{"CB"},
		Type:         "TV",
		Episodes:     26,
		Status:       "Finished Airing",
		AiredFrom:    "1998-04-03",
		AiredTo:      "1999-04-24",
		DurationMin:  24,
		Score:        8.75,
		Season:       "spring",
		Year:         1998,
		BroadcastDay: "Saturday",
		Genres:       []string{"Action", "Sci-Fi", "Space"},
		Studios:      []string{"Sunrise"},
		ImageURL:     "https://cdn.myanimelist.net/images/anime/4/19644.jpg",
	}
}

func TestNewRecord_MergesSources(t *testing.T) {
	r := newRecord(bebopBase(), bebopDetail())

	assert.Equal(t, 1376, r.KitsuID)
	assert.Equal(t, 1, r.MalID)
	assert.Equal(t, "Cowboy Bebop", r.Name)
	assert.Equal(t, "In 2071, bounty hunters chase criminals across the solar system.", r.Description)

	// Kitsu categories come first; MAL genres union in without
	// duplicates once canonicalized.
	assert.Equal(t, []string{"Action", "Sci-Fi", "Space"}, r.Genres)
	assert.Equal(t, []string{"Sunrise"}, r.Studios)

	assert.Equal(t, domain.SubtypeTV, r.Subtype)
	assert.Equal(t, domain.StatusFinished, r.Status)
	assert.Equal(t, 1998, r.Year)
	assert.Equal(t, domain.SeasonSpring, r.Season)
	assert.Equal(t, "Saturday", r.BroadcastDay)
	assert.Equal(t, "1998-04-03", r.StartDate)
	assert.Equal(t, "1999-04-24", r.EndDate)

	assert.Equal(t, "https://media.kitsu.app/anime/1376/poster.jpg", r.Poster)
	assert.Equal(t, "https://media.kitsu.app/anime/1376/cover.jpg", r.Background)

	require.NotNil(t, r.Rating)
	assert.InDelta(t, 8.75, *r.Rating, 0.001)
	assert.Equal(t, 26, r.EpisodeCount)
	assert.Equal(t, 24, r.RuntimeMinutes)
}

func TestNewRecord_WithoutDetail(t *testing.T) {
	r := newRecord(bebopBase(), nil)

	assert.Equal(t, "Cowboy Bebop", r.Name)
	assert.Zero(t, r.MalID)
	assert.Equal(t, []string{"Action", "Sci-Fi"}, r.Genres)
	assert.Empty(t, r.Studios)

	// Year and season derive from the start date when MAL is absent.
	assert.Equal(t, 1998, r.Year)
	assert.Equal(t, domain.SeasonSpring, r.Season)

	// Kitsu's approval percentage scales down to the 0-10 scale.
	require.NotNil(t, r.Rating)
	assert.InDelta(t, 8.231, *r.Rating, 0.001)
}

func TestNewRecord_RatingPreference(t *testing.T) {
	// MAL score wins when both report one.
	r := newRecord(bebopBase(), bebopDetail())
	require.NotNil(t, r.Rating)
	assert.InDelta(t, 8.75, *r.Rating, 0.001)

	// Unrated everywhere stays nil.
	base := bebopBase()
	base.Rating = 0
	detail := bebopDetail()
	detail.Score = 0
	r = newRecord(base, detail)
	assert.Nil(t, r.Rating)
}

func TestNewRecord_NamePreference(t *testing.T) {
	tests := []struct {
		name string
		base kitsu.Anime
		mal  *jikan.Anime
		want string
	}{
		{
			name: "kitsu english first",
			base: kitsu.Anime{EnglishTitle: "Attack on Titan", CanonicalTitle: "Shingeki no Kyojin"},
			mal:  &jikan.Anime{EnglishTitle: "Attack on Titan (MAL)"},
			want: "Attack on Titan",
		},
		{
			name: "mal english beats canonical",
			base: kitsu.Anime{CanonicalTitle: "Shingeki no Kyojin"},
			mal:  &jikan.Anime{EnglishTitle: "Attack on Titan"},
			want: "Attack on Titan",
		},
		{
			name: "canonical beats romaji",
			base: kitsu.Anime{CanonicalTitle: "Shingeki no Kyojin", RomajiTitle: "Shingeki no Kyojin 2"},
			want: "Shingeki no Kyojin",
		},
		{
			name: "mal title is the last resort",
			mal:  &jikan.Anime{Title: "Shingeki no Kyojin"},
			want: "Shingeki no Kyojin",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, newRecord(tt.base, tt.mal).Name)
		})
	}
}

func TestNewRecord_Aliases(t *testing.T) {
	base := kitsu.Anime{
		CanonicalTitle:    "Shingeki no Kyojin",
		EnglishTitle:      "Attack on Titan",
		JapaneseTitle:     "進撃の巨人",
		AbbreviatedTitles: []string{"AoT", "SnK"},
	}
	mal := &jikan.Anime{
		Title:    "Shingeki no Kyojin",
		Synonyms: []string{"AoT"},
	}

	r := newRecord(base, mal)

	assert.Equal(t, "Attack on Titan", r.Name)
	// The chosen name never appears as an alias, and duplicates across
	// sources collapse.
	assert.Equal(t, []string{"Shingeki no Kyojin", "進撃の巨人", "AoT", "SnK"}, r.Aliases)
}

func TestMatchNames(t *testing.T) {
	r := domain.AnimeRecord{
		Name:    "Attack on Titan",
		Aliases: []string{"a", "b", "c", "d", "e", "f"},
	}
	assert.Equal(t, []string{"Attack on Titan", "a", "b", "c", "d"}, matchNames(r))

	solo := domain.AnimeRecord{Name: "Akira"}
	assert.Equal(t, []string{"Akira"}, matchNames(solo))
}

func TestCleanDescription(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "plain text passes through",
			in:   "A simple synopsis.",
			want: "A simple synopsis.",
		},
		{
			name: "surrounding whitespace trimmed",
			in:   "  padded  synopsis \n",
			want: "padded  synopsis",
		},
		{
			name: "paragraph tags become blank lines",
			in:   "<p>First paragraph.</p><p>Second paragraph.</p>",
			want: "First paragraph.\n\nSecond paragraph.",
		},
		{
			name: "entities unescape without markup",
			in:   "Taro&#39;s story &amp; its sequel",
			want: "Taro's story & its sequel",
		},
		{
			name: "stray tags outside the markup heuristic still strip",
			in:   "(Source: <cite>official site</cite>)",
			want: "(Source: official site)",
		},
		{
			name: "blank line runs collapse",
			in:   "First.\n\n\n\nSecond.",
			want: "First.\n\nSecond.",
		},
		{
			name: "empty stays empty",
			in:   "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanDescription(tt.in))
		})
	}
}
