package params

// DefaultThreshold is the maximum allowed mean position error, in meters.
var DefaultThreshold = 1.5

type GateConfig struct {
	// Dir is searched for the newest report when File is empty.
	Dir string

	// File is an explicit summary (.txt) or row log (.csv).
	File string

	// Pattern overrides the default globs (summaries first, then row logs).
	Pattern string

	Threshold float64

	// PerVehicle also checks every vehicle's mean error against Threshold.
	PerVehicle bool
}

func DefaultGateConfig() *GateConfig {
	return &GateConfig{
		Dir:        DefaultOutputDir,
		Threshold:  DefaultThreshold,
		PerVehicle: true,
	}
}
