package lockfile

import "regexp"

var versionPrefix = regexp.MustCompile(`^[^0-9]+`)

// CleanVersion strips every leading non-digit character from a version
// specifier, so "^1.2.3" and ">=1.2.3" both become "1.2.3". This is a
// textual transform, not semver range resolution: it assumes the manifest
// pins (or carets) the version that the lockfile resolved, which holds for
// the overwhelming majority of real-world declarations. Known limitation:
// it is lossy for ranges with two bounds (">=1.0.0 <2.0.0") and leaves
// pre-release suffixes untouched. Matching downstream depends on exactly
// this behavior; do not swap in a semver library.
func CleanVersion(v string) string {
	return versionPrefix.ReplaceAllString(v, "")
}
