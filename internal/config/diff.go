package config

// Diff describes what changed between two configs. Only the log level can be
// applied without a restart; providers, stores, and engine tuning are wired
// at construction time.
type Diff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// RestartRequired is true when any field outside the hot-reloadable set
	// changed.
	RestartRequired bool
}

// Compare returns what changed between old and new.
func Compare(old, new *Config) Diff {
	d := Diff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Providers != new.Providers ||
		old.Store != new.Store ||
		old.Engine != new.Engine ||
		old.Server.MetricsAddr != new.Server.MetricsAddr {
		d.RestartRequired = true
	}

	return d
}
