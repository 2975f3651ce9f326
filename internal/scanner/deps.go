package scanner

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/kluth/shai-hulud-scanner/internal/badlist"
	"github.com/kluth/shai-hulud-scanner/internal/lockfile"
	"github.com/kluth/shai-hulud-scanner/internal/logging"
	"github.com/kluth/shai-hulud-scanner/internal/report"
)

// DepsResult holds the threat matcher output.
type DepsResult struct {
	BadDeps []report.BadDependency
	// TotalScanned is max(manifest dependency count, distinct lockfile
	// package names): the larger, more representative denominator rather
	// than a double count.
	TotalScanned int
}

type packageManifest struct {
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

// ScanDependencies cross-references the project's manifest and lockfiles
// against the badlist. Lockfile entries are matched regardless of whether
// they appear in the manifest, which is what surfaces transitive
// compromises. A missing manifest is logged and tolerated; lockfile
// scanning still proceeds.
func ScanDependencies(dir string, bad badlist.Badlist, log logging.Logger) DepsResult {
	res := DepsResult{BadDeps: []report.BadDependency{}}

	manifest := loadManifest(dir, log)

	seen := make(map[report.BadDependency]bool)
	emit := func(name, version string) {
		f := report.BadDependency{Name: name, Version: version}
		if !seen[f] {
			seen[f] = true
			res.BadDeps = append(res.BadDeps, f)
		}
	}

	names := sortedKeys(manifest)
	for _, name := range names {
		version := lockfile.CleanVersion(manifest[name])
		if bad.Contains(name, version) {
			emit(name, version)
		}
	}

	lockDeps := lockfile.Resolve(dir, log)
	lockNames := make(map[string]bool)
	for _, dep := range lockDeps {
		lockNames[dep.Name] = true
		if bad.Contains(dep.Name, dep.Version) {
			emit(dep.Name, dep.Version)
		}
	}

	res.TotalScanned = len(manifest)
	if len(lockNames) > res.TotalScanned {
		res.TotalScanned = len(lockNames)
	}
	return res
}

// loadManifest merges dependencies and devDependencies, the latter taking
// precedence when a name appears in both.
func loadManifest(dir string, log logging.Logger) map[string]string {
	data, err := os.ReadFile(filepath.Join(dir, "package.json"))
	if err != nil {
		log.Error("No package.json found.")
		return nil
	}

	var pkg packageManifest
	if err := json.Unmarshal(data, &pkg); err != nil {
		log.Error("No package.json found.")
		return nil
	}

	merged := make(map[string]string, len(pkg.Dependencies)+len(pkg.DevDependencies))
	for name, version := range pkg.Dependencies {
		merged[name] = version
	}
	for name, version := range pkg.DevDependencies {
		merged[name] = version
	}
	return merged
}

// sortedKeys keeps manifest finding order deterministic across runs.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
