// Package manifest produces the Stremio addon descriptor and parses the
// per-install configuration segment.
package manifest

// Manifest is the capability descriptor Stremio clients fetch before
// anything else.
type Manifest struct {
	ID            string        `json:"id"`
	Version       string        `json:"version"`
	Name          string        `json:"name"`
	Description   string        `json:"description"`
	Types         []string      `json:"types"`
	Resources     []string      `json:"resources"`
	Catalogs      []Catalog     `json:"catalogs"`
	IDPrefixes    []string      `json:"idPrefixes,omitempty"`
	Logo          string        `json:"logo,omitempty"`
	Background    string        `json:"background,omitempty"`
	BehaviorHints BehaviorHints `json:"behaviorHints"`
}

// Catalog defines one catalog the addon serves.
type Catalog struct {
	Type  string       `json:"type"`
	ID    string       `json:"id"`
	Name  string       `json:"name"`
	Extra []ExtraField `json:"extra,omitempty"`
}

// ExtraField declares one extra parameter a catalog accepts, with the
// selectable options where the parameter is an enum.
type ExtraField struct {
	Name       string   `json:"name"`
	Options    []string `json:"options,omitempty"`
	IsRequired bool     `json:"isRequired,omitempty"`
}

// BehaviorHints tells clients how the addon behaves.
type BehaviorHints struct {
	Configurable          bool `json:"configurable"`
	ConfigurationRequired bool `json:"configurationRequired,omitempty"`
}
