package model

// Version constants for persisted records.
const (
	// SchemaVersion is the version of the rule and signal record schema.
	SchemaVersion = "1"

	// EngineVersion is the nysig engine version.
	EngineVersion = "0.1.0"
)
