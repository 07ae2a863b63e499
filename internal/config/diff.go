package config

// Diff describes what changed between two configs in the log level, the
// event-bus sizing, and the index/store settings. The index's on-disk layout
// and the store's segment sizing are fixed for a process's lifetime, so a
// change to either is reported for visibility but never applied without a
// restart.
type Diff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	EventsChanged bool
	NewEvents     EventsConfig

	// RestartRequired is true when index or store settings changed —
	// these cannot be hot-applied to an already-initialized [Memory].
	RestartRequired bool
}

// Changed reports whether old and new differ in any tracked field.
func (d Diff) Changed() bool {
	return d.LogLevelChanged || d.EventsChanged || d.RestartRequired
}

// DiffConfigs compares old and new configs and returns what changed.
func DiffConfigs(old, new *Config) Diff {
	d := Diff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}
	if old.Events != new.Events {
		d.EventsChanged = true
		d.NewEvents = new.Events
	}
	if old.Index != new.Index || old.Store != new.Store {
		d.RestartRequired = true
	}

	return d
}
