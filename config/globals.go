package config

// GlobalFlags contains common flags used across commands
type GlobalFlags struct {
	ConfigPath string
	NoInput    bool
	Verbose    bool
	NoColor    bool

	// Command-specific configurations
	Sync SyncConfig
}

// SyncConfig holds sync command overrides of the config file. Zero values
// keep the configured setting.
type SyncConfig struct {
	Concurrency         int
	IgnoreErrorDownload bool
	Confirm             bool
}

// Global is the shared instance of GlobalFlags
var Global = GlobalFlags{}
