// Package version reports the build of the editcore binary. The variables
// are set with -ldflags "-X" at release time.
package version

import (
	"fmt"
	"runtime/debug"
)

// Build information.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

const (
	devVersion    = "dev"
	unknownCommit = "none"
	unknownDate   = "unknown"
	shortHashLen  = 12
)

// InitBinaryVersion fills fields left unset by the linker from the module
// build info, which `go install` records.
func InitBinaryVersion() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	if Version == devVersion && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			if Commit == unknownCommit {
				Commit = setting.Value[:min(len(setting.Value), shortHashLen)]
			}
		case "vcs.time":
			if Date == unknownDate {
				Date = setting.Value
			}
		}
	}
}

// String formats the build for `editcore version`.
func String() string {
	return fmt.Sprintf("editcore %s (commit: %s, built: %s)", Version, Commit, Date)
}
