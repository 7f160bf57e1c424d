package ir

// Version constants for the persisted schema and the engine.
const (
	// SchemaVersion is the version recorded by store migrations.
	SchemaVersion = 2

	// EngineVersion is the lldsync engine version.
	EngineVersion = "0.1.0"
)
