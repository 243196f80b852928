package fribb

import (
	"encoding/json/v2"
	"fmt"
	"strconv"
)

// FlexID is a numeric id that tolerates the list's mixed encodings:
// numbers, numeric strings, and placeholder strings like "unknown",
// which decode to 0.
type FlexID int

// UnmarshalJSON handles flexible id parsing from JSON.
func (id *FlexID) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*id = FlexID(n)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		n, err := strconv.Atoi(s)
		if err != nil {
			*id = 0
			return nil
		}
		*id = FlexID(n)
		return nil
	}

	return fmt.Errorf("cannot unmarshal %s into FlexID", string(data))
}

// Mapping links one title's ids across services. Absent ids are 0 for
// numeric services and "" for IMDB.
type Mapping struct {
	AnidbID   int    `json:"anidb_id"`
	AnilistID int    `json:"anilist_id"`
	KitsuID   int    `json:"kitsu_id"`
	MalID     int    `json:"mal_id"`
	ImdbID    string `json:"imdb_id"`
	TmdbID    FlexID `json:"themoviedb_id"`
	TvdbID    FlexID `json:"thetvdb_id"`
	Type      string `json:"type"`
}

// List is the full mapping set with per-service lookup indexes. When
// the list carries duplicate ids for a service, the first entry wins.
type List struct {
	mappings  []Mapping
	byKitsu   map[int]*Mapping
	byMal     map[int]*Mapping
	byAnilist map[int]*Mapping
}

// NewList indexes a mapping set. Fetch callers get this for free;
// the constructor exists for callers bringing their own mappings.
func NewList(mappings []Mapping) *List {
	l := &List{
		mappings:  mappings,
		byKitsu:   make(map[int]*Mapping, len(mappings)),
		byMal:     make(map[int]*Mapping, len(mappings)),
		byAnilist: make(map[int]*Mapping, len(mappings)),
	}
	for i := range mappings {
		m := &mappings[i]
		if m.KitsuID != 0 {
			if _, ok := l.byKitsu[m.KitsuID]; !ok {
				l.byKitsu[m.KitsuID] = m
			}
		}
		if m.MalID != 0 {
			if _, ok := l.byMal[m.MalID]; !ok {
				l.byMal[m.MalID] = m
			}
		}
		if m.AnilistID != 0 {
			if _, ok := l.byAnilist[m.AnilistID]; !ok {
				l.byAnilist[m.AnilistID] = m
			}
		}
	}
	return l
}

// Len returns the number of mappings in the list.
func (l *List) Len() int {
	return len(l.mappings)
}

// ByKitsu looks up the mapping for a Kitsu id.
func (l *List) ByKitsu(id int) (*Mapping, bool) {
	m, ok := l.byKitsu[id]
	return m, ok
}

// ByMal looks up the mapping for a MyAnimeList id.
func (l *List) ByMal(id int) (*Mapping, bool) {
	m, ok := l.byMal[id]
	return m, ok
}

// ByAnilist looks up the mapping for an AniList id.
func (l *List) ByAnilist(id int) (*Mapping, bool) {
	m, ok := l.byAnilist[id]
	return m, ok
}
