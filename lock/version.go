package lock

import "golang.org/x/mod/semver"

// Version information for the memlock runtime.
const (
	// Version is the current version of the locking runtime.
	Version = "0.1.0"

	// VersionMajor is the major version number.
	VersionMajor = 0

	// VersionMinor is the minor version number.
	VersionMinor = 1

	// VersionPatch is the patch version number.
	VersionPatch = 0
)

// Info provides runtime information about the locking package.
type Info struct {
	// Version is the runtime version string.
	Version string

	// Protocol describes the cell protocol in force.
	Protocol string

	// CellBytes is the size of one lock cell.
	CellBytes int
}

// GetInfo returns information about the locking runtime.
//
// Example:
//
//	info := lock.GetInfo()
//	fmt.Printf("memlock %s (%s)\n", info.Version, info.Protocol)
func GetInfo() Info {
	return Info{
		Version:   Version,
		Protocol:  "cas 0->1, store 0, wake one",
		CellBytes: CellSize,
	}
}

// IsCompatible reports whether this runtime satisfies required, a semantic
// version like "v0.1.0" or "0.1.0".
//
// Two runtimes touching the same cells must agree on the cell protocol, so
// compatibility means: same major version, and this runtime is not older
// than required. Malformed version strings are never compatible.
func IsCompatible(required string) bool {
	req := required
	if len(req) == 0 || req[0] != 'v' {
		req = "v" + req
	}
	if !semver.IsValid(req) {
		return false
	}
	cur := "v" + Version
	return semver.Major(req) == semver.Major(cur) && semver.Compare(cur, req) >= 0
}
