package genre

import "strings"

// displayNames fixes the rendering of slugs whose display form is not
// plain title case.
var displayNames = map[string]string{
	"sci-fi":        "Sci-Fi",
	"slice-of-life": "Slice of Life",
	"boys-love":     "Boys Love",
	"girls-love":    "Girls Love",
	"super-power":   "Super Power",
	"martial-arts":  "Martial Arts",
	"avant-garde":   "Avant Garde",
	"award-winning": "Award Winning",
	"mecha":         "Mecha",
	"isekai":        "Isekai",
	"ecchi":         "Ecchi",
	"josei":         "Josei",
	"seinen":        "Seinen",
	"shoujo":        "Shoujo",
	"shounen":       "Shounen",
	"ova":           "OVA",
	"ona":           "ONA",
}

// lowercaseWords stay lowercase inside a title-cased display name.
var lowercaseWords = map[string]bool{
	"of":  true,
	"the": true,
	"and": true,
	"in":  true,
	"no":  true,
}

// DisplayName renders a slug for the catalog: known slugs use their
// fixed form, everything else gets title-cased word by word.
func DisplayName(slug string) string {
	if name, ok := displayNames[slug]; ok {
		return name
	}

	words := strings.Split(slug, "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		if i > 0 && lowercaseWords[w] {
			words[i] = w
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
