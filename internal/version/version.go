package version

import (
	"fmt"
)

// Version indicates the version of the binary, such as a release number
// or semantic version.
// Set via -ldflags "-X github.com/fuzun45/FBCM-LoadSetup-Software/internal/version.Version=v1.0.0"
var Version string

// GitCommit stores the latest Git commit hash.
// Set via -ldflags "-X github.com/fuzun45/FBCM-LoadSetup-Software/internal/version.GitCommit=$(git rev-parse HEAD)"
var GitCommit string

// BuildTime stores the build timestamp in UTC.
// Set via -ldflags "-X github.com/fuzun45/FBCM-LoadSetup-Software/internal/version.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var BuildTime string

// GoVersion captures the Go version used to build the binary.
var GoVersion string

// VersionInfo() returns all versioning information for troubleshooting
// or version checks.
func VersionInfo() string {
	return fmt.Sprintf("Version: %s, Git Commit: %s, Build Time: %s, Go Version: %s",
		Version, GitCommit, BuildTime, GoVersion)
}
