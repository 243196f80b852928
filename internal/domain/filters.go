package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// FacetCount is one selectable filter value with its occurrence count
// across the catalog.
type FacetCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// FilterOptions holds every facet offered in the manifest. The refresh
// pipeline writes it to filters.json; the loader recomputes it from the
// catalog when the file is missing.
type FilterOptions struct {
	Genres      []FacetCount `json:"genres"`
	Seasons     []FacetCount `json:"seasons"`
	Weekdays    []FacetCount `json:"weekdays"`
	Studios     []FacetCount `json:"studios"`
	MovieGenres []FacetCount `json:"movieGenres"`
}

// FacetList is one facet in the filters file. Both rendered forms are
// stored so serving never re-derives labels from the catalog.
type FacetList struct {
	WithCounts []string `json:"withCounts"`
	List       []string `json:"list"`
}

// FacetFile is the on-disk filters format the refresh pipeline writes
// next to the catalog.
type FacetFile struct {
	Genres      FacetList `json:"genres"`
	Seasons     FacetList `json:"seasons"`
	Weekdays    FacetList `json:"weekdays"`
	Studios     FacetList `json:"studios"`
	MovieGenres FacetList `json:"movieGenres"`
}

// File renders the filter options into their on-disk form.
func (o FilterOptions) File() FacetFile {
	return FacetFile{
		Genres:      facetList(o.Genres),
		Seasons:     facetList(o.Seasons),
		Weekdays:    facetList(o.Weekdays),
		Studios:     facetList(o.Studios),
		MovieGenres: facetList(o.MovieGenres),
	}
}

// Options parses an on-disk facet file back into filter options,
// recovering each count from the withCounts rendering.
func (f FacetFile) Options() FilterOptions {
	return FilterOptions{
		Genres:      facetCounts(f.Genres),
		Seasons:     facetCounts(f.Seasons),
		Weekdays:    facetCounts(f.Weekdays),
		Studios:     facetCounts(f.Studios),
		MovieGenres: facetCounts(f.MovieGenres),
	}
}

func facetList(values []FacetCount) FacetList {
	return FacetList{
		WithCounts: FacetLabels(values, true),
		List:       FacetLabels(values, false),
	}
}

func facetCounts(list FacetList) []FacetCount {
	labels := list.List
	if len(labels) == 0 && len(list.WithCounts) > 0 {
		labels = make([]string, len(list.WithCounts))
		for i, s := range list.WithCounts {
			labels[i] = TrimFacetCount(s)
		}
	}

	out := make([]FacetCount, 0, len(labels))
	for i, label := range labels {
		fc := FacetCount{Label: label}
		if i < len(list.WithCounts) {
			fc.Count = facetCountOf(list.WithCounts[i], label)
		}
		out = append(out, fc)
	}
	return out
}

// facetCountOf extracts N from a "Label (N)" rendering of the label.
func facetCountOf(withCount, label string) int {
	suffix := strings.TrimPrefix(withCount, label)
	suffix = strings.TrimPrefix(suffix, " (")
	suffix = strings.TrimSuffix(suffix, ")")
	n, err := strconv.Atoi(suffix)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// FacetLabels renders a facet list for the manifest, with or without
// the occurrence counts.
func FacetLabels(values []FacetCount, withCounts bool) []string {
	labels := make([]string, len(values))
	for i, v := range values {
		if withCounts {
			labels[i] = FormatFacetCount(v.Label, v.Count)
		} else {
			labels[i] = v.Label
		}
	}
	return labels
}

// FormatFacetCount renders "Label (N)". TrimFacetCount inverts it.
func FormatFacetCount(label string, count int) string {
	return fmt.Sprintf("%s (%d)", label, count)
}

// TrimFacetCount strips a trailing " (N)" count suffix from a facet
// value. Values without a count suffix pass through unchanged, so
// clients may send either form.
func TrimFacetCount(s string) string {
	open := strings.LastIndex(s, " (")
	if open < 0 || !strings.HasSuffix(s, ")") {
		return s
	}
	inner := s[open+2 : len(s)-1]
	if inner == "" {
		return s
	}
	for _, r := range inner {
		if r < '0' || r > '9' {
			return s
		}
	}
	return s[:open]
}

// SeasonLabel renders the display form of a broadcast season, e.g.
// "Fall 2024".
func SeasonLabel(season Season, year int) string {
	name := string(season)
	if name == "" {
		return strconv.Itoa(year)
	}
	return fmt.Sprintf("%s%s %d", strings.ToUpper(name[:1]), name[1:], year)
}

// ParseSeasonLabel inverts SeasonLabel. The count suffix, if any, must
// already be trimmed.
func ParseSeasonLabel(s string) (Season, int, bool) {
	parts := strings.Fields(s)
	if len(parts) != 2 {
		return "", 0, false
	}
	season := ParseSeason(parts[0])
	if season == "" {
		return "", 0, false
	}
	year, err := strconv.Atoi(parts[1])
	if err != nil || year < 1900 {
		return "", 0, false
	}
	return season, year, true
}

// weekOrder fixes the display order of broadcast weekdays.
var weekOrder = map[string]int{ //nolint:gochecknoglobals // static lookup table
	"Monday":    0,
	"Tuesday":   1,
	"Wednesday": 2,
	"Thursday":  3,
	"Friday":    4,
	"Saturday":  5,
	"Sunday":    6,
}

// seasonRank orders seasons within one year, earliest first.
var seasonRank = map[Season]int{ //nolint:gochecknoglobals // static lookup table
	SeasonWinter: 0,
	SeasonSpring: 1,
	SeasonSummer: 2,
	SeasonFall:   3,
}

// ComputeFilterOptions derives every facet list from a record set.
//
// Ordering is part of the contract: genres and movie genres sort
// alphabetically, seasons newest first, weekdays in week order, studios
// by frequency.
func ComputeFilterOptions(records []AnimeRecord) FilterOptions {
	genres := map[string]int{}
	movieGenres := map[string]int{}
	seasons := map[string]int{}
	weekdays := map[string]int{}
	studios := map[string]int{}

	for i := range records {
		r := &records[i]
		for _, g := range r.Genres {
			if g == "" {
				continue
			}
			genres[g]++
			if r.IsMovie() {
				movieGenres[g]++
			}
		}
		if r.Season != "" && r.StartYear() > 0 {
			seasons[SeasonLabel(r.Season, r.StartYear())]++
		}
		if _, ok := weekOrder[r.BroadcastDay]; ok && r.Status == StatusOngoing {
			weekdays[r.BroadcastDay]++
		}
		for _, s := range r.Studios {
			if s != "" {
				studios[s]++
			}
		}
	}

	return FilterOptions{
		Genres:      sortedAlpha(genres),
		Seasons:     sortedSeasons(seasons),
		Weekdays:    sortedWeekdays(weekdays),
		Studios:     sortedByCount(studios),
		MovieGenres: sortedAlpha(movieGenres),
	}
}

func sortedAlpha(counts map[string]int) []FacetCount {
	out := facetSlice(counts)
	sort.Slice(out, func(i, j int) bool {
		return out[i].Label < out[j].Label
	})
	return out
}

func sortedByCount(counts map[string]int) []FacetCount {
	out := facetSlice(counts)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}

func sortedWeekdays(counts map[string]int) []FacetCount {
	out := facetSlice(counts)
	sort.Slice(out, func(i, j int) bool {
		return weekOrder[out[i].Label] < weekOrder[out[j].Label]
	})
	return out
}

func sortedSeasons(counts map[string]int) []FacetCount {
	out := facetSlice(counts)
	sort.Slice(out, func(i, j int) bool {
		si, yi, oki := ParseSeasonLabel(out[i].Label)
		sj, yj, okj := ParseSeasonLabel(out[j].Label)
		if !oki || !okj {
			return out[i].Label < out[j].Label
		}
		if yi != yj {
			return yi > yj
		}
		return seasonRank[si] > seasonRank[sj]
	})
	return out
}

func facetSlice(counts map[string]int) []FacetCount {
	out := make([]FacetCount, 0, len(counts))
	for label, count := range counts {
		out = append(out, FacetCount{Label: label, Count: count})
	}
	return out
}
