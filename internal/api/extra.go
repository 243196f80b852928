package api

import (
	"net/url"
	"strconv"
	"strings"
)

// Extra holds the optional request properties of a catalog route.
type Extra struct {
	Genre  string
	Search string
	Skip   int
}

// parseExtra parses the extra path segment of a catalog URL: &-joined
// key=value pairs with URL-escaped values, e.g.
// "genre=Science%20Fiction&skip=100". Unknown keys, malformed pairs and
// bad skip values are ignored so odd client URLs degrade to the plain
// catalog instead of erroring.
func parseExtra(segment string) Extra {
	var extra Extra
	if segment == "" {
		return extra
	}

	for pair := range strings.SplitSeq(segment, "&") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		if decoded, err := url.PathUnescape(value); err == nil {
			value = decoded
		}

		switch key {
		case "genre":
			extra.Genre = value
		case "search":
			extra.Search = value
		case "skip":
			if n, err := strconv.Atoi(value); err == nil && n > 0 {
				extra.Skip = n
			}
		}
	}

	return extra
}
