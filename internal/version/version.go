package version

import (
	"fmt"
	"runtime/debug"
	"time"
)

// These variables can be set at build time via ldflags:
//
//	go build -ldflags="-X github.com/muurk/netdisco/internal/version.Version=v1.2.3 \
//	                   -X github.com/muurk/netdisco/internal/version.Commit=abc123"
//
// Otherwise they are filled from the module and VCS build info, or fall
// back to a "dev" version.
var (
	// Version is the semantic version of the application
	Version = ""
	// Commit is the git commit hash
	Commit = ""
)

// shortHashLen is how much of the VCS revision is kept
const shortHashLen = 7

func init() {
	info, _ := debug.ReadBuildInfo()
	Version, Commit = resolve(Version, Commit, info, time.Now())
}

// resolve fills whichever of version and commit is empty. Tagged module
// versions win over VCS data; dev builds are stamped with the commit date,
// or now when there is none.
func resolve(version, commit string, info *debug.BuildInfo, now time.Time) (string, string) {
	var revision, commitTime string
	modified := false
	if info != nil {
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				revision = s.Value
			case "vcs.time":
				commitTime = s.Value
			case "vcs.modified":
				modified = s.Value == "true"
			}
		}
	}

	if commit == "" {
		commit = "unknown"
		if revision != "" {
			commit = revision[:min(len(revision), shortHashLen)]
			if modified {
				commit += "-dirty"
			}
		}
	}

	if version != "" {
		return version, commit
	}

	// installed with "go install module@vX.Y.Z"
	if info != nil && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version, commit
	}

	if t, err := time.Parse(time.RFC3339, commitTime); err == nil {
		return "dev-" + t.Format("20060102"), commit
	}
	return "dev-" + now.Format("20060102-150405"), commit
}

// Full returns the full version string including commit
func Full() string {
	return fmt.Sprintf("%s (commit: %s)", Version, Commit)
}

// UserAgent is sent with UPnP description requests
func UserAgent() string {
	return fmt.Sprintf("netdisco/%s UPnP/1.1", Version)
}
