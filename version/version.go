package version

import (
	"runtime"
	"runtime/debug"
)

// Populated at build time via -ldflags; fall back to VCS build info
var (
	BuildVersion = "dev"
	GitSHA       = ""
)

type Info struct {
	Service   string `json:"service"`
	Version   string `json:"version"`
	GitSHA    string `json:"git_sha,omitempty"`
	GoVersion string `json:"go_version"`
}

func Get(service string) Info {
	gitSHA := GitSHA
	if gitSHA == "" {
		if info, ok := debug.ReadBuildInfo(); ok {
			for _, s := range info.Settings {
				if s.Key == "vcs.revision" {
					gitSHA = s.Value
					break
				}
			}
		}
	}

	return Info{
		Service:   service,
		Version:   BuildVersion,
		GitSHA:    gitSHA,
		GoVersion: runtime.Version(),
	}
}
