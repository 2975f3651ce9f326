// Package lockfile normalizes dependency graphs across the npm, Yarn and
// pnpm lockfile formats into flat (name, version) lists.
package lockfile

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kluth/shai-hulud-scanner/internal/logging"
	"github.com/kluth/shai-hulud-scanner/internal/report"
)

const nodeModulesMarker = "node_modules/"

// Resolve parses every recognized lockfile in dir and concatenates their
// entries. Results are not deduplicated; that is the matcher's job. A
// missing lockfile contributes zero entries, a malformed one is logged and
// skipped so the remaining formats still resolve.
func Resolve(dir string, log logging.Logger) []report.Dependency {
	var deps []report.Dependency

	if path := filepath.Join(dir, "package-lock.json"); exists(path) {
		deps = append(deps, parseNPMLockfile(path, log)...)
	}
	if path := filepath.Join(dir, "yarn.lock"); exists(path) {
		deps = append(deps, parseYarnLockfile(path, log)...)
	}
	if path := filepath.Join(dir, "pnpm-lock.yaml"); exists(path) {
		deps = append(deps, parsePnpmLockfile(path, log)...)
	}

	return deps
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// npmLockfile covers both the v7+ "packages" map and the legacy nested
// "dependencies" tree.
type npmLockfile struct {
	Packages     map[string]npmLockPackage `json:"packages"`
	Dependencies map[string]npmLegacyEntry `json:"dependencies"`
}

type npmLockPackage struct {
	Version string `json:"version"`
}

type npmLegacyEntry struct {
	Version      string                    `json:"version"`
	Dependencies map[string]npmLegacyEntry `json:"dependencies"`
}

func parseNPMLockfile(path string, log logging.Logger) []report.Dependency {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Debug("failed to read npm lockfile %s: %v", path, err)
		return nil
	}

	var lock npmLockfile
	if err := json.Unmarshal(data, &lock); err != nil {
		log.Debug("failed to parse npm lockfile %s: %v", path, err)
		return nil
	}

	var deps []report.Dependency

	if len(lock.Packages) > 0 {
		// npm v7+: keys are install paths like "node_modules/@scope/name".
		// Sorted so entry order is stable across runs.
		for _, pkgPath := range sortedKeys(lock.Packages) {
			if pkgPath == "" {
				continue // root package
			}
			name := pkgPath
			if idx := strings.LastIndex(pkgPath, nodeModulesMarker); idx >= 0 {
				name = pkgPath[idx+len(nodeModulesMarker):]
			}
			version := lock.Packages[pkgPath].Version
			if version == "" {
				version = "0.0.0"
			}
			if name != "" {
				deps = append(deps, report.Dependency{Name: name, Version: version, Source: report.SourceLockfile})
			}
		}
		return deps
	}

	// Legacy npm v6: walk the nested tree with an explicit stack so a
	// pathological lockfile cannot exhaust the goroutine stack.
	stack := []map[string]npmLegacyEntry{lock.Dependencies}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, name := range sortedKeys(node) {
			entry := node[name]
			version := entry.Version
			if version == "" {
				version = "0.0.0"
			}
			deps = append(deps, report.Dependency{Name: name, Version: version, Source: report.SourceLockfile})
			if len(entry.Dependencies) > 0 {
				stack = append(stack, entry.Dependencies)
			}
		}
	}
	return deps
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// yarnEntryPattern matches a dependency block header ("name@specifier",
// optionally quoted) followed within the block by its resolved version line.
// Blocks that never declare a version are silently skipped.
var yarnEntryPattern = regexp.MustCompile(`(?m)^"?([^@\s"]+)@[^"\n]*"?:[^\n]*\n(?:[ \t]+[^\n]*\n)*?[ \t]+version "([^"]+)"`)

func parseYarnLockfile(path string, log logging.Logger) []report.Dependency {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Debug("failed to read yarn lockfile %s: %v", path, err)
		return nil
	}

	var deps []report.Dependency
	for _, m := range yarnEntryPattern.FindAllStringSubmatch(string(data), -1) {
		deps = append(deps, report.Dependency{Name: m[1], Version: m[2], Source: report.SourceLockfile})
	}
	return deps
}

type pnpmLockfile struct {
	Packages map[string]yaml.Node `yaml:"packages"`
}

func parsePnpmLockfile(path string, log logging.Logger) []report.Dependency {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Debug("failed to read pnpm lockfile %s: %v", path, err)
		return nil
	}

	var lock pnpmLockfile
	if err := yaml.Unmarshal(data, &lock); err != nil {
		log.Debug("failed to parse pnpm lockfile %s: %v", path, err)
		return nil
	}

	var deps []report.Dependency
	for _, spec := range sortedKeys(lock.Packages) {
		// Keys look like /name/1.0.0 or /@scope/name/1.0.0_peerhash.
		if !strings.HasPrefix(spec, "/") {
			continue
		}
		parts := strings.Split(spec[1:], "/")
		if len(parts) < 2 {
			continue
		}
		name := strings.Join(parts[:len(parts)-1], "/")
		version, _, _ := strings.Cut(parts[len(parts)-1], "_")
		deps = append(deps, report.Dependency{Name: name, Version: version, Source: report.SourceLockfile})
	}
	return deps
}

// FindProjectDirs returns every directory beneath root (up to maxDepth
// levels deep) that contains a package-lock.json, skipping node_modules.
func FindProjectDirs(root string, maxDepth int) []string {
	var dirs []string
	var recurse func(dir string, depth int)
	recurse = func(dir string, depth int) {
		if depth > maxDepth {
			return
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			return
		}
		for _, e := range entries {
			if !e.IsDir() && e.Name() == "package-lock.json" {
				dirs = append(dirs, dir)
				break
			}
		}
		for _, e := range entries {
			if e.IsDir() && e.Name() != "node_modules" {
				recurse(filepath.Join(dir, e.Name()), depth+1)
			}
		}
	}
	recurse(root, 0)
	return dirs
}
