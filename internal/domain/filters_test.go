package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTrimFacetCount_RoundTrip(t *testing.T) {
	labels := []string{
		"Action",
		"Sci-Fi",
		"Slice of Life",
		"Fall 2024",
		"Monday",
		"A-1 Pictures",
		"Kyoto Animation",
	}

	for _, label := range labels {
		for _, count := range []int{0, 1, 42, 1987} {
			formatted := FormatFacetCount(label, count)
			assert.Equal(t, label, TrimFacetCount(formatted),
				"round trip failed for %q", formatted)
		}
	}
}

func TestTrimFacetCount_PassThrough(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Action", "Action"},
		{"Action (12)", "Action"},
		{"Action (twelve)", "Action (twelve)"},
		{"Action ()", "Action ()"},
		{"(12)", "(12)"},
		{"", ""},
		{"Madhouse (Studio)", "Madhouse (Studio)"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, TrimFacetCount(tt.input))
		})
	}
}

func TestSeasonLabel_RoundTrip(t *testing.T) {
	for _, season := range []Season{SeasonWinter, SeasonSpring, SeasonSummer, SeasonFall} {
		label := SeasonLabel(season, 2023)
		gotSeason, gotYear, ok := ParseSeasonLabel(label)
		require.True(t, ok, "label %q should parse", label)
		assert.Equal(t, season, gotSeason)
		assert.Equal(t, 2023, gotYear)
	}
}

func TestParseSeasonLabel_Invalid(t *testing.T) {
	for _, input := range []string{"", "Fall", "2023", "Fall 23", "Monsoon 2023", "Fall 2023 Extra"} {
		t.Run(input, func(t *testing.T) {
			_, _, ok := ParseSeasonLabel(input)
			assert.False(t, ok)
		})
	}
}

func testRecords() []AnimeRecord {
	rating := func(v float64) *float64 { return &v }
	return []AnimeRecord{
		{
			ID: "tt0213338", Name: "Cowboy Bebop", Subtype: SubtypeTV,
			Status: StatusFinished, Year: 1998, Season: SeasonSpring,
			Genres: []string{"Action", "Sci-Fi"}, Studios: []string{"Sunrise"},
			Rating: rating(8.9), EpisodeCount: 26,
		},
		{
			ID: "tt2560140", Name: "Attack on Titan", Subtype: SubtypeTV,
			Status: StatusOngoing, Year: 2013, Season: SeasonSpring,
			BroadcastDay: "Sunday",
			Genres:       []string{"Action", "Drama"}, Studios: []string{"Wit Studio"},
			Rating: rating(8.5), EpisodeCount: 87,
		},
		{
			ID: "tt5311514", Name: "Your Name.", Subtype: SubtypeMovie,
			Status: StatusFinished, Year: 2016, Season: SeasonSummer,
			Genres: []string{"Drama", "Romance"}, Studios: []string{"CoMix Wave Films"},
			Rating: rating(8.4), RuntimeMinutes: 106,
		},
		{
			ID: "mal-772", Name: "Mobile Suit Gundam II", Subtype: SubtypeSpecial,
			Status: StatusFinished, Year: 1981,
			Genres: []string{"Action", "Mecha"}, Studios: []string{"Sunrise"},
			RuntimeMinutes: 134,
		},
	}
}

func TestComputeFilterOptions_Genres(t *testing.T) {
	fo := ComputeFilterOptions(testRecords())

	// Alphabetical, with counts across the whole catalog.
	require.Len(t, fo.Genres, 5)
	assert.Equal(t, FacetCount{Label: "Action", Count: 3}, fo.Genres[0])
	assert.Equal(t, FacetCount{Label: "Drama", Count: 2}, fo.Genres[1])
	assert.Equal(t, FacetCount{Label: "Mecha", Count: 1}, fo.Genres[2])
	assert.Equal(t, FacetCount{Label: "Romance", Count: 1}, fo.Genres[3])
	assert.Equal(t, FacetCount{Label: "Sci-Fi", Count: 1}, fo.Genres[4])
}

func TestComputeFilterOptions_MovieGenresOnlyCountMovies(t *testing.T) {
	fo := ComputeFilterOptions(testRecords())

	// Your Name. (movie) and the feature-length Gundam special.
	want := []FacetCount{
		{Label: "Action", Count: 1},
		{Label: "Drama", Count: 1},
		{Label: "Mecha", Count: 1},
		{Label: "Romance", Count: 1},
	}
	assert.Equal(t, want, fo.MovieGenres)
}

func TestComputeFilterOptions_SeasonsNewestFirst(t *testing.T) {
	fo := ComputeFilterOptions(testRecords())

	require.Len(t, fo.Seasons, 3)
	assert.Equal(t, "Summer 2016", fo.Seasons[0].Label)
	assert.Equal(t, "Spring 2013", fo.Seasons[1].Label)
	assert.Equal(t, "Spring 1998", fo.Seasons[2].Label)
}

func TestComputeFilterOptions_WeekdaysOnlyOngoing(t *testing.T) {
	fo := ComputeFilterOptions(testRecords())

	// Only Attack on Titan is ongoing with a broadcast day.
	require.Len(t, fo.Weekdays, 1)
	assert.Equal(t, FacetCount{Label: "Sunday", Count: 1}, fo.Weekdays[0])
}

func TestComputeFilterOptions_WeekdayOrder(t *testing.T) {
	records := []AnimeRecord{
		{ID: "a", Status: StatusOngoing, BroadcastDay: "Friday"},
		{ID: "b", Status: StatusOngoing, BroadcastDay: "Monday"},
		{ID: "c", Status: StatusOngoing, BroadcastDay: "Wednesday"},
		{ID: "d", Status: StatusOngoing, BroadcastDay: "Monday"},
	}

	fo := ComputeFilterOptions(records)

	require.Len(t, fo.Weekdays, 3)
	assert.Equal(t, "Monday", fo.Weekdays[0].Label)
	assert.Equal(t, 2, fo.Weekdays[0].Count)
	assert.Equal(t, "Wednesday", fo.Weekdays[1].Label)
	assert.Equal(t, "Friday", fo.Weekdays[2].Label)
}

func TestComputeFilterOptions_StudiosByFrequency(t *testing.T) {
	fo := ComputeFilterOptions(testRecords())

	require.NotEmpty(t, fo.Studios)
	assert.Equal(t, FacetCount{Label: "Sunrise", Count: 2}, fo.Studios[0])
}

func TestFacetLabels(t *testing.T) {
	values := []FacetCount{
		{Label: "Action", Count: 3},
		{Label: "Drama", Count: 2},
	}

	assert.Equal(t, []string{"Action", "Drama"}, FacetLabels(values, false))
	assert.Equal(t, []string{"Action (3)", "Drama (2)"}, FacetLabels(values, true))
}

func TestComputeFilterOptions_Empty(t *testing.T) {
	fo := ComputeFilterOptions(nil)

	assert.Empty(t, fo.Genres)
	assert.Empty(t, fo.Seasons)
	assert.Empty(t, fo.Weekdays)
	assert.Empty(t, fo.Studios)
	assert.Empty(t, fo.MovieGenres)
}

func TestFacetFile_RoundTrip(t *testing.T) {
	original := FilterOptions{
		Genres: []FacetCount{
			{Label: "Action", Count: 42},
			{Label: "Slice of Life", Count: 7},
		},
		Seasons: []FacetCount{
			{Label: "Fall 2024", Count: 63},
		},
		Weekdays: []FacetCount{
			{Label: "Sunday", Count: 11},
		},
		Studios: []FacetCount{
			{Label: "Madhouse", Count: 31},
		},
		MovieGenres: []FacetCount{
			{Label: "Fantasy", Count: 5},
		},
	}

	file := original.File()
	assert.Equal(t, []string{"Action (42)", "Slice of Life (7)"}, file.Genres.WithCounts)
	assert.Equal(t, []string{"Action", "Slice of Life"}, file.Genres.List)

	parsed := file.Options()
	assert.Equal(t, original, parsed)
}

func TestFacetFile_OptionsWithCountsOnly(t *testing.T) {
	file := FacetFile{
		Genres: FacetList{WithCounts: []string{"Action (42)", "Drama (17)"}},
	}

	parsed := file.Options()
	require.Len(t, parsed.Genres, 2)
	assert.Equal(t, FacetCount{Label: "Action", Count: 42}, parsed.Genres[0])
	assert.Equal(t, FacetCount{Label: "Drama", Count: 17}, parsed.Genres[1])
}

func TestFacetFile_OptionsMalformedCount(t *testing.T) {
	file := FacetFile{
		Genres: FacetList{
			WithCounts: []string{"Action (lots)"},
			List:       []string{"Action"},
		},
	}

	parsed := file.Options()
	require.Len(t, parsed.Genres, 1)
	assert.Equal(t, FacetCount{Label: "Action", Count: 0}, parsed.Genres[0])
}
