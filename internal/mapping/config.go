package mapping

import (
	"strings"

	"github.com/roach88/recordsync/internal/ir"
)

// Defaults used when no zone is configured.
const (
	DefaultZoneName  = "RecordSyncZone"
	DefaultOwnerName = "__defaultOwner__"
)

// Config fixes the zone that every projected record lives in.
// It is passed explicitly to identity and projection operations.
type Config struct {
	ZoneName  string `json:"zone_name"`
	OwnerName string `json:"owner_name"`
}

// DefaultConfig returns the default zone and owner placeholder.
func DefaultConfig() Config {
	return Config{ZoneName: DefaultZoneName, OwnerName: DefaultOwnerName}
}

// ZoneID returns the configured zone identity.
func (c Config) ZoneID() ir.ZoneID {
	return ir.ZoneID{ZoneName: c.ZoneName, OwnerName: c.OwnerName}
}

// Validate rejects blank zone or owner names.
func (c Config) Validate() error {
	if strings.TrimSpace(c.ZoneName) == "" {
		return newError(ErrCodeInvalidConfig, "", "", "zone name is required")
	}
	if strings.TrimSpace(c.OwnerName) == "" {
		return newError(ErrCodeInvalidConfig, "", "", "owner name is required")
	}
	return nil
}

// RecordIDFor derives the remote identity of the object whose local
// identifier is localID. The same inputs always yield the same identity.
func RecordIDFor(cfg Config, localID string) (ir.RecordID, error) {
	if err := cfg.Validate(); err != nil {
		return ir.RecordID{}, err
	}
	if localID == "" {
		return ir.RecordID{}, newError(ErrCodeMissingIdentifier, "", "", "local record identifier is empty")
	}
	return ir.RecordID{RecordName: localID, Zone: cfg.ZoneID()}, nil
}
