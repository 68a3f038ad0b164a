// Package version exposes the build metadata stamped into the binary.
package version

import "runtime"

// Set through -ldflags "-X ..." by the release build; the defaults identify a
// local development build.
var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)

// Info is the payload served by the version endpoint and mirrored into the
// build-info metric labels.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

func Get() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
	}
}
