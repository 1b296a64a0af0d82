// Copyright 2025 Juan Font
// BSD-3-Clause

package version

import "fmt"

var (
	// Version is the main version number that is being run at the moment.
	Version = "0.1.0"

	// VersionPrerelease is a pre-release marker for the Version. If this is ""
	// (empty string) then it means that it is a final release. Otherwise, this
	// is a pre-release such as "dev" (in development), "beta", "rc1", etc.
	VersionPrerelease = "dev"

	// Commit is set with -ldflags at build time.
	Commit = ""
)

// String renders the version as 0.1.0-dev (abc1234).
func String() string {
	v := Version
	if VersionPrerelease != "" {
		v = fmt.Sprintf("%s-%s", v, VersionPrerelease)
	}
	if Commit != "" {
		v = fmt.Sprintf("%s (%s)", v, Commit)
	}
	return v
}
