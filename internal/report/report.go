// Package report defines the common finding model shared by all scanners
// and the aggregation of their results into a single scan report.
package report

import "time"

// DependencySource says where a dependency entry was observed.
type DependencySource int

const (
	// SourceManifest marks a dependency declared in package.json.
	SourceManifest DependencySource = iota
	// SourceLockfile marks a dependency resolved from a lockfile.
	SourceLockfile
)

// Dependency is a normalized (name, version) pair. Two dependencies are
// equal iff name and version match exactly.
type Dependency struct {
	Name    string           `json:"name"`
	Version string           `json:"version"`
	Source  DependencySource `json:"-"`
}

// BadDependency is a dependency matched against the badlist.
type BadDependency struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// SuspiciousFileKind classifies a suspicious file finding.
type SuspiciousFileKind string

const (
	// FileBundleHash is a bundle.js whose content hash matches the known payload.
	FileBundleHash SuspiciousFileKind = "bundle.js"
	// FileIOC is a package manifest containing an indicator of compromise.
	FileIOC SuspiciousFileKind = "IOC"
	// FileLeakedToken is a package manifest containing a GitHub token shape.
	FileLeakedToken SuspiciousFileKind = "GitHub-Token"
)

// SuspiciousFile is a file-level finding from the node_modules scan.
type SuspiciousFile struct {
	Kind        SuspiciousFileKind `json:"type"`
	Path        string             `json:"path"`
	Detail      string             `json:"details,omitempty"`
	PackageName string             `json:"packageName,omitempty"`
}

// SuspiciousScript is a postinstall script matching a worm execution signature.
type SuspiciousScript struct {
	Path   string `json:"path"`
	Script string `json:"script"`
}

// GitIssueKind classifies a repository-history finding.
type GitIssueKind string

const (
	GitSuspiciousBranch     GitIssueKind = "suspicious-branch"
	GitSuspiciousCommits    GitIssueKind = "suspicious-commits"
	GitSuspiciousFilesAdded GitIssueKind = "suspicious-files-added"
	GitSuspiciousRemote     GitIssueKind = "suspicious-remote"
	GitUnsignedCommits      GitIssueKind = "unsigned-commits"
)

// GitIssue is a repository-history finding. Items carries the matched
// branches, commit subjects, file names or remote lines, depending on Kind.
type GitIssue struct {
	Kind   GitIssueKind `json:"type"`
	Items  []string     `json:"items,omitempty"`
	Reason string       `json:"reason"`
}

// GithubIssue is a finding from the optional GitHub organization scan.
type GithubIssue struct {
	Kind string `json:"type"`
	Name string `json:"name"`
}

// ScanReport aggregates the findings of one scan invocation. Field names
// mirror the legacy JSON report so existing tooling can keep parsing it.
type ScanReport struct {
	ScannedDir        string             `json:"scannedDir"`
	Timestamp         string             `json:"timestamp"`
	BadDeps           []BadDependency    `json:"badDeps"`
	SuspiciousFiles   []SuspiciousFile   `json:"suspiciousFiles"`
	SuspiciousScripts []SuspiciousScript `json:"suspiciousScripts"`
	GitIssues         []GitIssue         `json:"gitIssues"`
	GithubIssues      []GithubIssue      `json:"githubIssues"`
	TotalScanned      int                `json:"totalScanned"`
	TotalIssues       int                `json:"totalIssues"`
	DurationMS        float64            `json:"durationMs"`
	GitError          string             `json:"gitError,omitempty"`
	GithubError       string             `json:"githubError,omitempty"`
}

// New creates an empty report for the given directory with non-nil finding
// slices, so JSON output renders arrays rather than null.
func New(dir string) *ScanReport {
	return &ScanReport{
		ScannedDir:        dir,
		Timestamp:         time.Now().UTC().Format(time.RFC3339),
		BadDeps:           []BadDependency{},
		SuspiciousFiles:   []SuspiciousFile{},
		SuspiciousScripts: []SuspiciousScript{},
		GitIssues:         []GitIssue{},
		GithubIssues:      []GithubIssue{},
	}
}

// Finalize recomputes the derived issue count and records the scan duration.
func (r *ScanReport) Finalize(duration time.Duration) {
	r.TotalIssues = len(r.BadDeps) + len(r.SuspiciousFiles) + len(r.SuspiciousScripts) +
		len(r.GitIssues) + len(r.GithubIssues)
	r.DurationMS = float64(duration.Microseconds()) / 1000
}
