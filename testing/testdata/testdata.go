package testdata

import (
	"path/filepath"
	"runtime"
)

// basepath is the root directory of this package.
var basepath string

func init() {
	_, currentFile, _, _ := runtime.Caller(0)
	basepath = filepath.Dir(currentFile)
}

// Path returns the absolute path of rel, relative to this testdata/ directory.
// If rel is already absolute, it is returned unmodified.
// Taken from https://github.com/grpc/grpc-go/blob/master/testdata/testdata.go.
func Path(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(basepath, rel)
}

// TransportSmall is a recorded transport: two vehicles over twenty steps,
// one export request halfway, and an end marker.
// flow_0.0 is rendered 0.5 m off its reference, flow_0.1 1.5 m off.
var TransportSmall = "transport_small.jsonl"
