// Package version exposes build information injected via ldflags.
package version

import (
	"fmt"
	"runtime"
)

const Service = "biomarkerpulse"

// Set at build time with -ldflags "-X github.com/pscheid92/biomarkerpulse/internal/version.Version=..."
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

type Info struct {
	Service   string `json:"service"`
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
}

func Get() Info {
	return Info{
		Service:   Service,
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
	}
}

// String renders the info for startup logs, e.g. "biomarkerpulse dev (unknown)".
func (i Info) String() string {
	return fmt.Sprintf("%s %s (%s)", i.Service, i.Version, i.Commit)
}
