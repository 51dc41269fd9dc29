// Package version carries build metadata injected at link time:
// go build -ldflags "-X git.home.luguber.info/inful/txbridge/internal/version.Version=v1.0.0".
package version

import "runtime"

// Version contains the application version information.
var Version = "unknown"

// BuildInfo contains additional build metadata.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Info is the build metadata as served by the admin endpoint.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

// Get returns the current build metadata.
func Get() Info {
	return Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
	}
}

// String renders a one-line version banner.
func (i Info) String() string {
	return "txbridge " + i.Version + " (" + i.GitCommit + ", built " + i.BuildTime + ", " + i.GoVersion + ")"
}
