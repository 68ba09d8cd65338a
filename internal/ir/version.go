package ir

// Version constants for persisted formats.
const (
	// ArchiveVersion is the system-fields archive envelope version.
	ArchiveVersion = 1

	// Version is the recordsync release.
	Version = "0.1.0"
)
