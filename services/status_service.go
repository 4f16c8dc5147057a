// services/status_service.go
package services

import (
	"fmt"
	"os"
	"strings"

	"github.com/gewnthar/advsync/config"
)

// Version is the engine release, reported on the identity line.
const Version = "1.4.2"

// Status answers the read-only queries of the command surface. None of its
// methods mutate anything, so they are safe at any time, including while a
// sync holds the run lock.
type Status struct {
	cfg *config.Config
}

func NewStatus(cfg *config.Config) *Status {
	return &Status{cfg: cfg}
}

// Describe returns the human-readable feed description.
func (s *Status) Describe() string {
	return fmt.Sprintf("Feed:   %s\nVendor: %s\nHome:   %s",
		s.cfg.Feed.Name, s.cfg.Feed.Vendor, s.cfg.Feed.Home)
}

// FeedVersion returns the content of the mirrored feed version marker, empty
// when no feed has been installed yet.
func (s *Status) FeedVersion() string {
	data, err := os.ReadFile(s.cfg.VersionFilePath())
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// Identify returns the machine-readable identity line.
func (s *Status) Identify() string {
	flags := "ENABLED"
	if !s.cfg.Enabled {
		flags = "DISABLED"
	}
	return fmt.Sprintf("%s|%s|%s|%s", s.cfg.Feed.Name, Version, s.cfg.Feed.Vendor, flags)
}
