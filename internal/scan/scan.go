// Package scan wires the individual scanners into a single invocation and
// merges their findings into one report.
package scan

import (
	"context"
	"time"

	"github.com/kluth/shai-hulud-scanner/internal/badlist"
	"github.com/kluth/shai-hulud-scanner/internal/github"
	"github.com/kluth/shai-hulud-scanner/internal/gitexec"
	"github.com/kluth/shai-hulud-scanner/internal/logging"
	"github.com/kluth/shai-hulud-scanner/internal/report"
	"github.com/kluth/shai-hulud-scanner/internal/scanner"
)

// Config holds one scan invocation's settings.
type Config struct {
	SkipGit     bool
	GithubToken string
	GithubOrg   string
	// Git overrides the exec-backed git client; nil uses the default.
	Git gitexec.Client
	// Badlist, when non-nil, bypasses the fetcher (used by tests and by
	// callers that already hold a loaded list).
	Badlist badlist.Badlist
	Fetcher *badlist.Fetcher
}

// Runner executes scans against project directories.
type Runner struct {
	cfg Config
	log logging.Logger
}

// NewRunner creates a Runner. A nil logger falls back to the silent sink.
func NewRunner(cfg Config, log logging.Logger) *Runner {
	if log == nil {
		log = logging.Nop{}
	}
	return &Runner{cfg: cfg, log: log}
}

// Run scans one project directory and returns the merged report. The four
// scanners run sequentially; each degrades locally and none can abort the
// invocation. Finding order is deterministic for a fixed input.
func (r *Runner) Run(ctx context.Context, dir string) (*report.ScanReport, error) {
	start := time.Now()
	rep := report.New(dir)

	list := r.cfg.Badlist
	if list == nil {
		fetcher := r.cfg.Fetcher
		if fetcher == nil {
			fetcher = badlist.NewFetcher()
		}
		var err error
		list, err = fetcher.Get(ctx, r.log)
		if err != nil {
			return nil, err
		}
	}

	deps := scanner.ScanDependencies(dir, list, r.log)
	rep.BadDeps = deps.BadDeps
	rep.TotalScanned = deps.TotalScanned

	files := scanner.ScanFiles(dir, r.log)
	rep.SuspiciousFiles = files.SuspiciousFiles
	rep.SuspiciousScripts = files.SuspiciousScripts

	if !r.cfg.SkipGit {
		git := scanner.ScanGitRepository(ctx, dir, r.cfg.Git, r.log)
		rep.GitIssues = git.Issues
		rep.GitError = git.Err
	}

	if r.cfg.GithubToken != "" && r.cfg.GithubOrg != "" {
		gh := github.ScanOrg(ctx, r.cfg.GithubToken, r.cfg.GithubOrg, r.log)
		rep.GithubIssues = gh.Issues
		rep.GithubError = gh.Err
	}

	rep.Finalize(time.Since(start))
	return rep, nil
}
