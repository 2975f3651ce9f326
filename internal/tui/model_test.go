package tui

import (
	"testing"

	"github.com/kluth/shai-hulud-scanner/internal/report"
)

func TestFlatten(t *testing.T) {
	rep := report.New("/tmp/p")
	rep.BadDeps = append(rep.BadDeps, report.BadDependency{Name: "left-pad", Version: "1.0.0"})
	rep.SuspiciousScripts = append(rep.SuspiciousScripts, report.SuspiciousScript{Path: "a/package.json", Script: "node bundle.js"})
	rep.GitIssues = append(rep.GitIssues, report.GitIssue{
		Kind:   report.GitSuspiciousBranch,
		Items:  []string{"shai-hulud-migration"},
		Reason: "Branch names match Shai-Hulud patterns",
	})
	rep.Finalize(0)

	items := flatten(rep)
	if len(items) != 3 {
		t.Fatalf("flatten() returned %d items, want 3", len(items))
	}
	first, ok := items[0].(item)
	if !ok || first.title != "left-pad@1.0.0" {
		t.Errorf("first item = %#v, want the bad dependency", items[0])
	}
}

func TestViewClean(t *testing.T) {
	rep := report.New("/tmp/p")
	rep.Finalize(0)

	m := NewModel(rep)
	view := m.View()
	if view == "" {
		t.Fatal("View() returned empty output")
	}
}
