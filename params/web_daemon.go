package params

import "time"

type WebDaemonConfig struct {
	ListenerConfig

	// SummaryDir is where /summaries looks for reports.
	SummaryDir string

	// LastKnownTTL bounds how long /last/{entity} remembers a sample.
	LastKnownTTL time.Duration

	// SummaryCacheSize is the number of parsed reports kept in memory.
	SummaryCacheSize int
}

func DefaultWebListenerConfig() ListenerConfig {
	return ListenerConfig{
		Network: "tcp",
		Address: "",
	}
}

func DefaultWebDaemonConfig() *WebDaemonConfig {
	return &WebDaemonConfig{
		ListenerConfig:   DefaultWebListenerConfig(),
		SummaryDir:       DefaultOutputDir,
		LastKnownTTL:     5 * time.Minute,
		SummaryCacheSize: 64,
	}
}

func DefaultTestWebDaemonConfig() *WebDaemonConfig {
	d := DefaultWebDaemonConfig()
	d.Address = "localhost:3333"
	d.SummaryDir = ""
	return d
}
