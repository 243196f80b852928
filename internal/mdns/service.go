// Package mdns advertises the addon on the local network, so Stremio
// clients on the same LAN can find it without typing a URL.
package mdns

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/hashicorp/mdns"
)

const (
	// ServiceType is the mDNS service type advertised for Stremio
	// addons.
	ServiceType = "_stremio-addon._tcp"

	// ManifestPath is where the addon manifest lives on the advertised
	// host.
	ManifestPath = "/manifest.json"
)

// Instance identifies the advertised addon.
type Instance struct {
	ID      string
	Name    string
	Version string
}

// Service manages the mDNS advertisement lifecycle.
type Service struct {
	server *mdns.Server
	logger *slog.Logger
	mu     sync.Mutex
}

// NewService creates an mDNS service. Start begins advertising.
func NewService(logger *slog.Logger) *Service {
	return &Service{
		logger: logger,
	}
}

// Start begins advertising the addon. Call it after the HTTP server is
// listening. Failures are expected in some environments (containers
// without multicast); callers should log and continue.
func (s *Service) Start(instance Instance, port int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Stop an existing advertisement first so restarts are clean.
	if s.server != nil {
		_ = s.server.Shutdown()
		s.server = nil
	}

	host, err := os.Hostname()
	if err != nil {
		host = "haru-server"
	}

	txtRecords := []string{
		fmt.Sprintf("id=%s", instance.ID),
		fmt.Sprintf("name=%s", instance.Name),
		fmt.Sprintf("version=%s", instance.Version),
		fmt.Sprintf("manifest=%s", ManifestPath),
	}

	service, err := mdns.NewMDNSService(
		host,        // Instance name (hostname)
		ServiceType, // Service type (_stremio-addon._tcp)
		"",          // Domain (empty = .local)
		"",          // Host (empty = use system hostname)
		port,        // Port
		nil,         // IPs (nil = all interfaces)
		txtRecords,  // TXT records
	)
	if err != nil {
		return fmt.Errorf("create mDNS service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{
		Zone: service,
	})
	if err != nil {
		return fmt.Errorf("start mDNS server: %w", err)
	}

	s.server = server

	s.logger.Info("mDNS advertisement started",
		"service", ServiceType,
		"port", port,
		"name", instance.Name,
		"id", instance.ID,
	)

	return nil
}

// Stop stops advertising. Safe to call multiple times or before Start.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		_ = s.server.Shutdown()
		s.server = nil
		s.logger.Info("mDNS advertisement stopped")
	}
}
