package version

import (
	"runtime"
	"sync"
)

// Info describes the running build. Version, BuildTime and GitCommit are
// injected through -ldflags at build time; defaults identify a dev build.
type Info struct {
	Version   string `json:"version"`
	BuildTime string `json:"buildTime"`
	GitCommit string `json:"gitCommit"`
	GoVersion string `json:"goVersion"`
}

var (
	mu      sync.RWMutex
	current = Info{
		Version:   "dev",
		BuildTime: "unknown",
		GitCommit: "unknown",
		GoVersion: runtime.Version(),
	}
)

// Set records the build information. Called once from main before anything
// reads it.
func Set(version, buildTime, gitCommit string) {
	mu.Lock()
	defer mu.Unlock()
	if version != "" {
		current.Version = version
	}
	if buildTime != "" {
		current.BuildTime = buildTime
	}
	if gitCommit != "" {
		current.GitCommit = gitCommit
	}
}

// Get returns the current build information.
func Get() Info {
	mu.RLock()
	defer mu.RUnlock()
	return current
}
