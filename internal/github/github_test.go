package github

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kluth/shai-hulud-scanner/internal/logging"
)

func newTestScanner(t *testing.T, repos []map[string]any, branches map[string][]string, workflows map[string][]string) *Scanner {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/orgs/acme/repos", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(repos)
	})
	mux.HandleFunc("/repos/acme/", func(w http.ResponseWriter, r *http.Request) {
		// Paths: /repos/acme/<name>/branches, /repos/acme/<name>/actions/workflows
		rest := strings.TrimPrefix(r.URL.Path, "/repos/acme/")
		switch {
		case strings.HasSuffix(rest, "/branches"):
			name := strings.TrimSuffix(rest, "/branches")
			names, ok := branches[name]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			var out []map[string]string
			for _, n := range names {
				out = append(out, map[string]string{"name": n})
			}
			json.NewEncoder(w).Encode(out)
		case strings.HasSuffix(rest, "/actions/workflows"):
			name := strings.TrimSuffix(rest, "/actions/workflows")
			paths, ok := workflows[name]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			var list []map[string]string
			for _, p := range paths {
				list = append(list, map[string]string{"path": p})
			}
			json.NewEncoder(w).Encode(map[string]any{"workflows": list})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return &Scanner{Token: "t", BaseURL: srv.URL, Client: srv.Client()}
}

func TestScanOrg(t *testing.T) {
	s := newTestScanner(t,
		[]map[string]any{
			{"name": "app", "full_name": "acme/app"},
			{"name": "data-migration", "full_name": "acme/data-migration"},
			{"name": "infected", "full_name": "acme/infected"},
		},
		map[string][]string{
			"app":            {"main"},
			"data-migration": {"main"},
			"infected":       {"main", "shai-hulud"},
		},
		map[string][]string{
			"app":            {".github/workflows/ci.yml"},
			"data-migration": {},
			"infected":       {},
		},
	)

	res := s.ScanOrg(context.Background(), "acme", logging.Nop{})
	if res.Err != "" {
		t.Fatalf("unexpected error: %s", res.Err)
	}
	if len(res.Issues) != 2 {
		t.Fatalf("got %d issues, want 2: %+v", len(res.Issues), res.Issues)
	}
	if res.Issues[0].Kind != "repo" || res.Issues[0].Name != "acme/data-migration" {
		t.Errorf("first issue = %+v, want the -migration repo", res.Issues[0])
	}
	if res.Issues[1].Kind != "branch" {
		t.Errorf("second issue = %+v, want the shai-hulud branch", res.Issues[1])
	}
}

func TestScanOrgWormWorkflow(t *testing.T) {
	s := newTestScanner(t,
		[]map[string]any{
			{"name": "app", "full_name": "acme/app"},
			{"name": "backdoored", "full_name": "acme/backdoored"},
		},
		map[string][]string{
			"app":        {"main"},
			"backdoored": {"main"},
		},
		map[string][]string{
			"app":        {".github/workflows/release.yml"},
			"backdoored": {".github/workflows/shai-hulud-workflow.yml"},
		},
	)

	res := s.ScanOrg(context.Background(), "acme", logging.Nop{})
	if res.Err != "" {
		t.Fatalf("unexpected error: %s", res.Err)
	}
	if len(res.Issues) != 1 {
		t.Fatalf("got %d issues, want 1: %+v", len(res.Issues), res.Issues)
	}
	if res.Issues[0].Kind != "workflow" || res.Issues[0].Name != "acme/backdoored" {
		t.Errorf("issue = %+v, want a workflow finding for acme/backdoored", res.Issues[0])
	}
}

func TestScanOrgInaccessibleWorkflows(t *testing.T) {
	// A repo whose workflows endpoint fails is skipped, not fatal.
	s := newTestScanner(t,
		[]map[string]any{
			{"name": "locked", "full_name": "acme/locked"},
			{"name": "evil-migration", "full_name": "acme/evil-migration"},
		},
		map[string][]string{
			"locked":         {"main"},
			"evil-migration": {"main"},
		},
		map[string][]string{
			// "locked" deliberately absent: 404 on its workflows query.
			"evil-migration": {},
		},
	)

	res := s.ScanOrg(context.Background(), "acme", logging.Nop{})
	if res.Err != "" {
		t.Fatalf("unexpected error: %s", res.Err)
	}
	if len(res.Issues) != 1 {
		t.Fatalf("got %d issues, want 1: %+v", len(res.Issues), res.Issues)
	}
	if res.Issues[0].Kind != "repo" || res.Issues[0].Name != "acme/evil-migration" {
		t.Errorf("issue = %+v, want the -migration repo", res.Issues[0])
	}
}

func TestScanOrgAPIFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	s := &Scanner{Token: "bad", BaseURL: srv.URL, Client: srv.Client()}
	res := s.ScanOrg(context.Background(), "acme", logging.Nop{})
	if res.Err == "" {
		t.Error("expected an error string on API failure")
	}
	if len(res.Issues) != 0 {
		t.Errorf("got %d issues on failure, want 0", len(res.Issues))
	}
}
