// Package gitexec backs the repository-history scanner's read-only git
// queries with the git command-line tool.
package gitexec

import (
	"bytes"
	"context"
	"os/exec"
	"strconv"
	"strings"
)

// Client issues the five read-only queries the history scanner needs.
// Any implementation satisfying these is acceptable; this one shells out
// to git in the repository directory.
type Client interface {
	Branches(ctx context.Context) ([]string, error)
	RecentSubjects(ctx context.Context, n int) ([]string, error)
	FilesTouchedSince(ctx context.Context, since string) ([]string, error)
	Remotes(ctx context.Context) ([]string, error)
	// SignatureStatus returns one "<hash> <G?>" line per commit, newest
	// first, using git's signature-validity markers.
	SignatureStatus(ctx context.Context, n int) ([]string, error)
}

// CLI is the exec-backed Client.
type CLI struct {
	Dir string
}

// New creates a CLI client rooted at the given repository directory.
func New(dir string) *CLI {
	return &CLI{Dir: dir}
}

func (c *CLI) run(ctx context.Context, args ...string) ([]string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = c.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, err
	}

	var lines []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

func (c *CLI) Branches(ctx context.Context) ([]string, error) {
	lines, err := c.run(ctx, "branch", "-a")
	if err != nil {
		return nil, err
	}
	branches := make([]string, 0, len(lines))
	for _, line := range lines {
		branches = append(branches, strings.TrimSpace(strings.ReplaceAll(line, "*", "")))
	}
	return branches, nil
}

func (c *CLI) RecentSubjects(ctx context.Context, n int) ([]string, error) {
	return c.run(ctx, "log", "--oneline", "-"+strconv.Itoa(n))
}

func (c *CLI) FilesTouchedSince(ctx context.Context, since string) ([]string, error) {
	return c.run(ctx, "log", "--name-only", "--pretty=format:", "--since="+since)
}

func (c *CLI) Remotes(ctx context.Context) ([]string, error) {
	return c.run(ctx, "remote", "-v")
}

func (c *CLI) SignatureStatus(ctx context.Context, n int) ([]string, error) {
	return c.run(ctx, "log", "--pretty=format:%H %G?", "-"+strconv.Itoa(n))
}
