package scanner

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kluth/shai-hulud-scanner/internal/gitexec"
	"github.com/kluth/shai-hulud-scanner/internal/logging"
	"github.com/kluth/shai-hulud-scanner/internal/report"
)

// GitResult holds the repository-history scanner output. Err carries a
// scan-level diagnostic (e.g. the git binary is missing) and never aborts
// the overall invocation.
type GitResult struct {
	Issues []report.GitIssue
	Err    string
}

const (
	recentSubjectCount  = 20
	signatureCheckCount = 10
	recentFilesWindow   = "30 days ago"
)

// suspiciousCommitPatterns is checked in order against each subject line;
// the first match wins.
var suspiciousCommitPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)shai-hulud`),
	regexp.MustCompile(`(?i)add.*bundle\.js`),
	regexp.MustCompile(`(?i)postinstall.*malicious`),
	regexp.MustCompile(`(?i)trufflehog`),
	regexp.MustCompile(`(?i)webhook\.site`),
	regexp.MustCompile(`(?i)exfiltrat`),
	regexp.MustCompile(`(?i)malicious.*package`),
	regexp.MustCompile(`(?i)backdoor`),
}

// ScanGitRepository applies the worm propagation heuristics to local git
// metadata. Each check is independently fault-tolerant: a failed query
// yields an empty result for that step only. The unsigned-commit check
// runs last and only reports in combination with another finding.
func ScanGitRepository(ctx context.Context, dir string, git gitexec.Client, log logging.Logger) GitResult {
	res := GitResult{Issues: []report.GitIssue{}}

	if _, err := os.Stat(filepath.Join(dir, ".git")); err != nil {
		return res
	}
	if git == nil {
		git = gitexec.New(dir)
	}

	record := func(err error) {
		// An exit status just means the query had nothing to report (no
		// remotes, no commits); only a failure to run git at all is worth
		// surfacing on the report.
		if err == nil || res.Err != "" {
			return
		}
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			res.Err = "git scan failed: " + err.Error()
			log.Warn("Git scan failed: %v", err)
		}
	}

	branches, err := git.Branches(ctx)
	record(err)
	if found := suspiciousBranches(branches); len(found) > 0 {
		res.Issues = append(res.Issues, report.GitIssue{
			Kind:   report.GitSuspiciousBranch,
			Items:  found,
			Reason: "Branch names match Shai-Hulud patterns",
		})
	}

	subjects, err := git.RecentSubjects(ctx, recentSubjectCount)
	record(err)
	if found := suspiciousCommits(subjects); len(found) > 0 {
		res.Issues = append(res.Issues, report.GitIssue{
			Kind:   report.GitSuspiciousCommits,
			Items:  found,
			Reason: "Commit messages contain suspicious patterns",
		})
	}

	touched, err := git.FilesTouchedSince(ctx, recentFilesWindow)
	record(err)
	if found := suspiciousAddedFiles(touched); len(found) > 0 {
		res.Issues = append(res.Issues, report.GitIssue{
			Kind:   report.GitSuspiciousFilesAdded,
			Items:  found,
			Reason: "Suspicious files added in recent commits",
		})
		log.Warn("Suspicious files added recently:")
		for _, name := range found {
			log.Debug("  %s", name)
		}
	}

	remotes, err := git.Remotes(ctx)
	record(err)
	if found := suspiciousRemotes(remotes); len(found) > 0 {
		res.Issues = append(res.Issues, report.GitIssue{
			Kind:   report.GitSuspiciousRemote,
			Items:  found,
			Reason: "Git remotes point to suspicious repositories",
		})
		log.Warn("Suspicious git remotes found")
	}

	// Combined-signal rule: unsigned commits are only reportable when the
	// checks above already produced a finding.
	status, err := git.SignatureStatus(ctx, signatureCheckCount)
	record(err)
	if hasUnsigned(status) && len(res.Issues) > 0 {
		res.Issues = append(res.Issues, report.GitIssue{
			Kind:   report.GitUnsignedCommits,
			Reason: "Unsigned commits detected alongside other suspicious indicators",
		})
		log.Warn("Recent commits are not GPG signed (combined with other suspicious activity)")
	}

	return res
}

// suspiciousBranches flags worm-related names outright, and "migration"
// branches only when paired with a worm term, so legitimate data-migration
// branches stay clean.
func suspiciousBranches(branches []string) []string {
	var found []string
	for _, branch := range branches {
		lower := strings.ToLower(branch)
		switch {
		case strings.Contains(lower, "shai-hulud"),
			strings.Contains(lower, "exfiltrate"),
			strings.Contains(lower, "malware"),
			strings.Contains(lower, "backdoor"):
			found = append(found, branch)
		case strings.Contains(lower, "migration"):
			if strings.Contains(lower, "shai") || strings.Contains(lower, "hulud") ||
				strings.Contains(lower, "worm") || strings.Contains(lower, "malicious") {
				found = append(found, branch)
			}
		}
	}
	return found
}

func suspiciousCommits(subjects []string) []string {
	var found []string
	for _, subject := range subjects {
		for _, pattern := range suspiciousCommitPatterns {
			if pattern.MatchString(subject) {
				found = append(found, strings.TrimSpace(subject))
				break
			}
		}
	}
	return dedupe(found)
}

func suspiciousAddedFiles(files []string) []string {
	var found []string
	for _, name := range files {
		lower := strings.ToLower(name)
		if strings.Contains(lower, "bundle.js") ||
			strings.Contains(lower, "shai-hulud") ||
			strings.Contains(lower, "malware") ||
			strings.Contains(lower, "backdoor") ||
			(strings.Contains(lower, "postinstall") && strings.Contains(lower, ".js")) {
			found = append(found, name)
		}
	}
	return dedupe(found)
}

// suspiciousRemotes is deliberately case-sensitive on the two forms the
// worm is known to use for its repositories.
func suspiciousRemotes(remotes []string) []string {
	var found []string
	for _, line := range remotes {
		if strings.Contains(line, "Shai-Hulud") || strings.Contains(line, "shai-hulud") {
			found = append(found, line)
		}
	}
	return found
}

// hasUnsigned reports whether any "<hash> <G?>" line carries an unsigned
// (N) or unverifiable (U) signature marker.
func hasUnsigned(status []string) bool {
	for _, line := range status {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		marker := fields[len(fields)-1]
		if marker == "N" || marker == "U" {
			return true
		}
	}
	return false
}

// dedupe removes duplicates preserving first-seen order.
func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	var out []string
	for _, item := range items {
		if !seen[item] {
			seen[item] = true
			out = append(out, item)
		}
	}
	return out
}
