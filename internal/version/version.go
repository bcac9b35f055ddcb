// Package version holds the framework version and the rule deciding which
// modules it can host.
package version

import (
	"strings"

	"golang.org/x/mod/semver"
)

// Bus is the framework version modules declare they were built against
const Bus = "0.0.1"

// Build information set by goreleaser
var (
	version = Bus
	commit  = "none"
	date    = "unknown"
)

// Version returns the framework version
func Version() string {
	return version
}

// BuildInfo returns detailed build information
func BuildInfo() string {
	return "Version: " + version + "\nCommit: " + commit + "\nBuild Date: " + date
}

// Canonical returns v in the "vMAJOR.MINOR.PATCH" form semver expects, or
// "" if v is not a semantic version
func Canonical(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return semver.Canonical(v)
}

// Compatible reports whether a module built against busVersion can run on
// this framework. The major version must match exactly and the module's
// minor version must not be newer than the framework's.
func Compatible(busVersion string) bool {
	return compatible(Bus, busVersion)
}

func compatible(current, module string) bool {
	cur, mod := Canonical(current), Canonical(module)
	if cur == "" || mod == "" {
		return false
	}
	if semver.Major(cur) != semver.Major(mod) {
		return false
	}
	return semver.Compare(semver.MajorMinor(cur), semver.MajorMinor(mod)) >= 0
}
