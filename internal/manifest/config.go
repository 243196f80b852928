package manifest

import "strings"

// Config is the per-install configuration carried in the optional path
// segment ahead of the addon routes. It is parsed on every request and
// never persisted.
type Config struct {
	ExcludeLongRunning bool
	ShowCounts         bool
}

// DefaultConfig is what an unconfigured install gets.
func DefaultConfig() Config {
	return Config{ExcludeLongRunning: true, ShowCounts: true}
}

// ParseConfig reads an "&"-joined flag segment such as
// "excludeLongRunning=false&showCounts=0". Flags missing from the
// segment keep their defaults; only the values "0" and "false" disable
// a flag, so a bare flag name counts as enabled. Unknown flags are
// ignored.
func ParseConfig(segment string) Config {
	cfg := DefaultConfig()
	if segment == "" {
		return cfg
	}

	for pair := range strings.SplitSeq(segment, "&") {
		key, value, _ := strings.Cut(pair, "=")
		switch strings.TrimSpace(key) {
		case "excludeLongRunning":
			cfg.ExcludeLongRunning = flagEnabled(value)
		case "showCounts":
			cfg.ShowCounts = flagEnabled(value)
		}
	}
	return cfg
}

func flagEnabled(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "0", "false":
		return false
	default:
		return true
	}
}

// Segment renders the non-default flags back into path-segment form.
// A default configuration renders empty so install URLs stay short.
func (c Config) Segment() string {
	var parts []string
	if !c.ExcludeLongRunning {
		parts = append(parts, "excludeLongRunning=false")
	}
	if !c.ShowCounts {
		parts = append(parts, "showCounts=false")
	}
	return strings.Join(parts, "&")
}
