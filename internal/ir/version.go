package ir

// Version constants for the reference encoding.
const (
	// IRVersion is the reference schema version. Stored with cached
	// references so that a format change invalidates them.
	IRVersion = "1"
)
