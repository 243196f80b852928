package manifest

import (
	"strings"

	"github.com/haruapp/haru-server/internal/catalog"
	"github.com/haruapp/haru-server/internal/domain"
)

// Version is the addon version advertised in the manifest and over
// mDNS.
const Version = "1.2.0"

// redundantGenre never appears as a facet option: the whole catalog is
// animation, so the label carries no signal.
const redundantGenre = "Animation"

// Options carries the inputs of one manifest build.
type Options struct {
	ID          string
	Name        string
	Description string
	Logo        string
	Filters     domain.FilterOptions
	Config      Config
}

// Build renders the addon manifest for one configuration. It is a pure
// function of its options; two calls with equal options produce equal
// manifests.
func Build(opts Options) Manifest {
	counts := opts.Config.ShowCounts

	genres := dropRedundant(domain.FacetLabels(opts.Filters.Genres, counts))
	seasons := domain.FacetLabels(opts.Filters.Seasons, counts)
	weekdays := domain.FacetLabels(opts.Filters.Weekdays, counts)

	// The two synthetic values lead the movie genre list; they are
	// resolved by the movies handler, not stored in any facet file.
	movieGenres := make([]string, 0, len(opts.Filters.MovieGenres)+2)
	movieGenres = append(movieGenres, catalog.FacetUpcoming, catalog.FacetNewReleases)
	movieGenres = append(movieGenres, dropRedundant(domain.FacetLabels(opts.Filters.MovieGenres, counts))...)

	return Manifest{
		ID:          opts.ID,
		Version:     Version,
		Name:        opts.Name,
		Description: opts.Description,
		Logo:        opts.Logo,
		Types:       []string{catalog.TypeSeries, catalog.TypeMovie},
		Resources:   []string{"catalog", "meta"},
		IDPrefixes:  []string{"tt", "mal-", "kitsu:", "anilist:"},
		BehaviorHints: BehaviorHints{
			Configurable: true,
		},
		Catalogs: []Catalog{
			{
				Type: catalog.TypeSeries,
				ID:   string(catalog.CatalogTopRated),
				Name: "Anime Top Rated",
				Extra: []ExtraField{
					{Name: "genre", Options: genres},
					{Name: "search"},
					{Name: "skip"},
				},
			},
			{
				Type: catalog.TypeSeries,
				ID:   string(catalog.CatalogSeasonReleases),
				Name: "Anime by Season",
				Extra: []ExtraField{
					{Name: "genre", Options: seasons},
					{Name: "skip"},
				},
			},
			{
				Type: catalog.TypeSeries,
				ID:   string(catalog.CatalogAiring),
				Name: "Anime Airing Now",
				Extra: []ExtraField{
					{Name: "genre", Options: weekdays},
					{Name: "skip"},
				},
			},
			{
				Type: catalog.TypeMovie,
				ID:   string(catalog.CatalogMovies),
				Name: "Anime Movies",
				Extra: []ExtraField{
					{Name: "genre", Options: movieGenres},
					{Name: "search"},
					{Name: "skip"},
				},
			},
		},
	}
}

// dropRedundant removes the Animation label from a facet option list,
// with or without a count suffix.
func dropRedundant(labels []string) []string {
	out := make([]string, 0, len(labels))
	for _, label := range labels {
		if strings.EqualFold(domain.TrimFacetCount(label), redundantGenre) {
			continue
		}
		out = append(out, label)
	}
	return out
}
