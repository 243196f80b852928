package genre

// CanonicalAliases maps source tag slugs to canonical display genres.
// One source tag can expand to several display genres. Tags carry the
// union of Kitsu categories, MAL genres/themes/demographics, and TMDB
// TV genres.
var CanonicalAliases = map[string][]string{
	// Straight renames
	"science-fiction": {"Sci-Fi"},
	"scifi":           {"Sci-Fi"},
	"sf":              {"Sci-Fi"},
	"suspense":        {"Thriller"},
	"sport":           {"Sports"},

	// TMDB combined genres expand to both halves
	"action-adventure": {"Action", "Adventure"},
	"sci-fi-fantasy":   {"Sci-Fi", "Fantasy"},
	"war-politics":     {"Military"},

	// Kitsu categories
	"magical-girl": {"Magic"},
	"mahou-shoujo": {"Magic"},
	"demon":        {"Supernatural"},
	"demons":       {"Supernatural"},
	"zombies":      {"Horror"},
	"gore":         {"Horror"},
	"vampires":     {"Vampire"},
	"gag-comedy":   {"Comedy"},
	"cooking":      {"Gourmet"},
	"yaoi":         {"Boys Love"},
	"shounen-ai":   {"Boys Love"},
	"yuri":         {"Girls Love"},
	"shoujo-ai":    {"Girls Love"},
	"idol":         {"Music"},
	"family":       {"Kids"},
	"war":          {"Military"},
	"crime":        {"Thriller"},

	// MAL themes folded into broader facets
	"gag-humor":        {"Comedy"},
	"parody":           {"Comedy"},
	"detective":        {"Mystery"},
	"police":           {"Mystery"},
	"organized-crime":  {"Thriller"},
	"survival":         {"Thriller"},
	"high-stakes-game": {"Game"},
	"strategy-game":    {"Game"},
	"video-game":       {"Game"},
	"reincarnation":    {"Isekai"},
	"time-travel":      {"Sci-Fi"},
	"mythology":        {"Supernatural"},
	"idols-female":     {"Music"},
	"idols-male":       {"Music"},
	"showbiz":          {"Music"},
	"performing-arts":  {"Music"},
	"racing":           {"Sports"},
	"combat-sports":    {"Sports", "Martial Arts"},
	"team-sports":      {"Sports"},
	"medical":          {"Drama"},
	"workplace":        {"Slice of Life"},
	"iyashikei":        {"Slice of Life"},
	"cgdct":            {"Slice of Life"},
	"adult-cast":       {"Slice of Life"},
	"childcare":        {"Slice of Life"},
	"pets":             {"Slice of Life"},
	"love-polygon":     {"Romance"},
	"romantic-subtext": {"Romance"},
	"harem":            {"Harem"},
	"reverse-harem":    {"Harem"},
	"super-power":      {"Super Power"},
	"superpower":       {"Super Power"},
	"martial-arts":     {"Martial Arts"},
	"slice-of-life":    {"Slice of Life"},
	"boys-love":        {"Boys Love"},
	"girls-love":       {"Girls Love"},
}

// droppedTags carry no catalog signal: every record would match, or the
// tag marks content the catalog does not serve.
var droppedTags = map[string]bool{
	"animation": true,
	"anime":     true,
	"cartoon":   true,
	"hentai":    true,
	"erotica":   true,
}

// Canonicalize maps one raw source tag into display genres. Unknown
// tags pass through title-cased; dropped tags yield nil.
func Canonicalize(raw string) []string {
	slug := Slugify(raw)
	if slug == "" || droppedTags[slug] {
		return nil
	}
	if display, ok := CanonicalAliases[slug]; ok {
		return display
	}
	return []string{DisplayName(slug)}
}

// CanonicalizeAll maps a full source tag list, deduplicating while
// preserving first-seen order.
func CanonicalizeAll(raws []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, raw := range raws {
		for _, g := range Canonicalize(raw) {
			if !seen[g] {
				seen[g] = true
				out = append(out, g)
			}
		}
	}
	return out
}
