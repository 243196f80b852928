package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseConfig(t *testing.T) {
	tests := []struct {
		name    string
		segment string
		want    Config
	}{
		{
			name:    "empty segment keeps defaults",
			segment: "",
			want:    Config{ExcludeLongRunning: true, ShowCounts: true},
		},
		{
			name:    "false disables",
			segment: "excludeLongRunning=false",
			want:    Config{ExcludeLongRunning: false, ShowCounts: true},
		},
		{
			name:    "zero disables",
			segment: "showCounts=0",
			want:    Config{ExcludeLongRunning: true, ShowCounts: false},
		},
		{
			name:    "both flags",
			segment: "excludeLongRunning=0&showCounts=false",
			want:    Config{ExcludeLongRunning: false, ShowCounts: false},
		},
		{
			name:    "bare flag name stays enabled",
			segment: "excludeLongRunning",
			want:    Config{ExcludeLongRunning: true, ShowCounts: true},
		},
		{
			name:    "any other value stays enabled",
			segment: "excludeLongRunning=yes&showCounts=1",
			want:    Config{ExcludeLongRunning: true, ShowCounts: true},
		},
		{
			name:    "case-insensitive values",
			segment: "excludeLongRunning=FALSE",
			want:    Config{ExcludeLongRunning: false, ShowCounts: true},
		},
		{
			name:    "unknown flags ignored",
			segment: "darkMode=0&showCounts=0",
			want:    Config{ExcludeLongRunning: true, ShowCounts: false},
		},
		{
			name:    "garbage segment keeps defaults",
			segment: "not a config at all",
			want:    Config{ExcludeLongRunning: true, ShowCounts: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseConfig(tt.segment))
		})
	}
}

func TestConfig_Segment(t *testing.T) {
	assert.Equal(t, "", DefaultConfig().Segment())
	assert.Equal(t, "excludeLongRunning=false",
		Config{ExcludeLongRunning: false, ShowCounts: true}.Segment())
	assert.Equal(t, "excludeLongRunning=false&showCounts=false",
		Config{}.Segment())
}

func TestParseConfig_SegmentRoundTrip(t *testing.T) {
	for _, cfg := range []Config{
		{ExcludeLongRunning: true, ShowCounts: true},
		{ExcludeLongRunning: false, ShowCounts: true},
		{ExcludeLongRunning: true, ShowCounts: false},
		{ExcludeLongRunning: false, ShowCounts: false},
	} {
		assert.Equal(t, cfg, ParseConfig(cfg.Segment()))
	}
}
