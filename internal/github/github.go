// Package github is the optional organization scanner: pure API glue that
// flags repositories, branches and Actions workflows matching worm
// propagation signatures.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kluth/shai-hulud-scanner/internal/logging"
	"github.com/kluth/shai-hulud-scanner/internal/report"
)

const defaultBaseURL = "https://api.github.com"

const requestTimeout = 10 * time.Second

// Result holds the organization scan output.
type Result struct {
	Issues []report.GithubIssue
	Err    string
}

// Scanner queries the GitHub API with token authentication.
type Scanner struct {
	Token   string
	BaseURL string
	Client  *http.Client
}

type repoInfo struct {
	Name     string `json:"name"`
	FullName string `json:"full_name"`
}

type branchInfo struct {
	Name string `json:"name"`
}

type workflowList struct {
	Workflows []workflowInfo `json:"workflows"`
}

type workflowInfo struct {
	Path string `json:"path"`
}

// ScanOrg checks every repository in the organization for worm propagation
// signatures: "-migration" forks, repos or branches named after the worm,
// and the Actions workflow file the worm installs.
func ScanOrg(ctx context.Context, token, org string, log logging.Logger) Result {
	s := &Scanner{Token: token, Client: &http.Client{Timeout: requestTimeout}}
	return s.ScanOrg(ctx, org, log)
}

func (s *Scanner) ScanOrg(ctx context.Context, org string, log logging.Logger) Result {
	res := Result{Issues: []report.GithubIssue{}}

	var repos []repoInfo
	if err := s.get(ctx, fmt.Sprintf("/orgs/%s/repos", org), &repos); err != nil {
		res.Err = err.Error()
		log.Warn("GitHub scan failed: %v", err)
		return res
	}
	log.Info("GitHub scan for org %q (%d repos checked):", org, len(repos))

	for _, repo := range repos {
		if strings.Contains(repo.Name, "-migration") || repo.Name == "Shai-Hulud" {
			res.Issues = append(res.Issues, report.GithubIssue{Kind: "repo", Name: repo.FullName})
			log.Warn("Suspicious repo: %s", repo.FullName)
		}

		var branches []branchInfo
		if err := s.get(ctx, fmt.Sprintf("/repos/%s/%s/branches", org, repo.Name), &branches); err != nil {
			continue // no access to this repo, skip it
		}
		for _, branch := range branches {
			if branch.Name == "shai-hulud" {
				res.Issues = append(res.Issues, report.GithubIssue{
					Kind: "branch",
					Name: fmt.Sprintf("%s (branch: shai-hulud)", repo.FullName),
				})
				log.Warn("Suspicious branch 'shai-hulud' in: %s", repo.FullName)
			}
		}

		var workflows workflowList
		if err := s.get(ctx, fmt.Sprintf("/repos/%s/%s/actions/workflows", org, repo.Name), &workflows); err != nil {
			continue // workflows not accessible, skip
		}
		for _, wf := range workflows.Workflows {
			if strings.Contains(wf.Path, "shai-hulud-workflow.yml") {
				res.Issues = append(res.Issues, report.GithubIssue{Kind: "workflow", Name: repo.FullName})
				log.Warn("Suspicious workflow in: %s", repo.FullName)
			}
		}
	}

	return res
}

func (s *Scanner) get(ctx context.Context, path string, out any) error {
	base := s.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if s.Token != "" {
		req.Header.Set("Authorization", "token "+s.Token)
	}

	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: requestTimeout}
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GitHub API returned %d for %s", resp.StatusCode, path)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
