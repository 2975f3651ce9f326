// Package badlist models the threat list of known-compromised package
// versions and the fetch/cache layer that supplies it.
package badlist

import "strings"

// Badlist maps a package name to its known-bad exact versions. Keys
// beginning with an underscore are metadata (source, updated-at) and are
// excluded from counts and matching. The list is immutable for the
// lifetime of a scan run.
type Badlist map[string][]string

// Len counts the package entries, excluding metadata keys.
func (b Badlist) Len() int {
	n := 0
	for name := range b {
		if !strings.HasPrefix(name, "_") {
			n++
		}
	}
	return n
}

// Contains reports whether the exact (name, version) pair is known bad.
func (b Badlist) Contains(name, version string) bool {
	if strings.HasPrefix(name, "_") {
		return false
	}
	for _, bad := range b[name] {
		if bad == version {
			return true
		}
	}
	return false
}
