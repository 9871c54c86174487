package params

import (
	"os"
	"time"
)

// InfluxConfig configures optional export of samples to InfluxDB.
// An empty URL disables export.
type InfluxConfig struct {
	URL    string
	Token  string
	Org    string
	Bucket string

	// BatchSize is the number of samples posted per write.
	BatchSize int
}

func DefaultInfluxConfig() *InfluxConfig {
	return &InfluxConfig{
		URL:       os.Getenv("INFLUXDB_URL"),
		Token:     os.Getenv("INFLUXDB_TOKEN"),
		Org:       os.Getenv("INFLUXDB_ORG"),
		Bucket:    os.Getenv("INFLUXDB_BUCKET"),
		BatchSize: 500,
	}
}

// ArchiveConfig configures optional upload of session artifacts to S3.
// The AWS library reads credentials and region from the environment.
// An empty Bucket disables upload.
type ArchiveConfig struct {
	Bucket  string
	Prefix  string
	Timeout time.Duration
}

func DefaultArchiveConfig() *ArchiveConfig {
	return &ArchiveConfig{
		Bucket:  os.Getenv("AWS_BUCKETNAME"),
		Prefix:  "position-accuracy",
		Timeout: 30 * time.Second,
	}
}

// MeterInterval is how often the session logs throughput.
var MeterInterval = 10 * time.Second

// DedupeCacheSize bounds the transport's duplicate frame cache.
var DedupeCacheSize = 10_000
