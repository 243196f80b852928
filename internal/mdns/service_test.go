package mdns

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstants(t *testing.T) {
	assert.Equal(t, "_stremio-addon._tcp", ServiceType)
	assert.Equal(t, "/manifest.json", ManifestPath)
}

func TestNewService(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	service := NewService(logger)

	require.NotNil(t, service)
	assert.Nil(t, service.server, "server should be nil before Start")
}

func TestServiceStop(t *testing.T) {
	t.Run("stop when not started is safe", func(t *testing.T) {
		logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
		service := NewService(logger)

		service.Stop()
		assert.Nil(t, service.server)
	})

	t.Run("stop can be called multiple times", func(t *testing.T) {
		logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
		service := NewService(logger)

		service.Stop()
		service.Stop()
		service.Stop()
	})
}

func TestServiceStart(t *testing.T) {
	// Multicast is unavailable in some environments (containers, CI),
	// so a Start failure is tolerated; success must leave the service
	// running and restartable.
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	service := NewService(logger)

	instance := Instance{
		ID:      "app.haru.catalog",
		Name:    "Haru",
		Version: "1.2.0",
	}

	err := service.Start(instance, 7700)
	if err != nil {
		t.Skipf("multicast unavailable here: %v", err)
	}

	assert.NotNil(t, service.server)
	assert.Contains(t, buf.String(), "mDNS advertisement started")

	// Restart replaces the advertisement instead of leaking it.
	require.NoError(t, service.Start(instance, 7701))

	service.Stop()
	assert.Nil(t, service.server)
	assert.Contains(t, buf.String(), "mDNS advertisement stopped")
}
