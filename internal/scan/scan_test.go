package scan

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/kluth/shai-hulud-scanner/internal/badlist"
	"github.com/kluth/shai-hulud-scanner/internal/logging"
	"github.com/kluth/shai-hulud-scanner/internal/report"
)

func setupProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"package.json": `{"dependencies": {"left-pad": "^1.0.0", "express": "^4.18.0"}}`,
		"package-lock.json": `{
  "packages": {
    "node_modules/left-pad": {"version": "1.0.0"},
    "node_modules/express": {"version": "4.18.2"},
    "node_modules/qs": {"version": "6.11.0"}
  }
}`,
		"node_modules/evil/package.json": `{"name": "evil", "scripts": {"postinstall": "node bundle.js"}}`,
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestRunnerMergesFindings(t *testing.T) {
	dir := setupProject(t)
	runner := NewRunner(Config{
		SkipGit: true,
		Badlist: badlist.Badlist{"left-pad": {"1.0.0"}},
	}, logging.Nop{})

	rep, err := runner.Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(rep.BadDeps) != 1 {
		t.Errorf("BadDeps = %+v, want one left-pad finding", rep.BadDeps)
	}
	if len(rep.SuspiciousScripts) != 1 {
		t.Errorf("SuspiciousScripts = %+v, want one", rep.SuspiciousScripts)
	}
	if rep.TotalScanned != 3 {
		t.Errorf("TotalScanned = %d, want 3 (distinct lockfile names)", rep.TotalScanned)
	}
	if rep.TotalIssues != 2 {
		t.Errorf("TotalIssues = %d, want 2", rep.TotalIssues)
	}
}

func TestRunnerIdempotent(t *testing.T) {
	dir := setupProject(t)
	runner := NewRunner(Config{
		SkipGit: true,
		Badlist: badlist.Badlist{"left-pad": {"1.0.0"}},
	}, logging.Nop{})

	normalize := func(r *report.ScanReport) string {
		r.Timestamp = ""
		r.DurationMS = 0
		data, err := json.Marshal(r)
		if err != nil {
			t.Fatal(err)
		}
		return string(data)
	}

	first, err := runner.Run(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	second, err := runner.Run(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}

	if normalize(first) != normalize(second) {
		t.Errorf("reports differ across runs on unchanged input:\n%s\n%s", normalize(first), normalize(second))
	}
}

func TestRunnerCleanProject(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "package.json"),
		[]byte(`{"dependencies": {"express": "^4.18.0"}}`), 0o644); err != nil {
		t.Fatal(err)
	}

	runner := NewRunner(Config{SkipGit: true, Badlist: badlist.Badlist{}}, logging.Nop{})
	rep, err := runner.Run(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if rep.TotalIssues != 0 {
		t.Errorf("TotalIssues = %d, want 0", rep.TotalIssues)
	}
	if rep.TotalScanned != 1 {
		t.Errorf("TotalScanned = %d, want 1", rep.TotalScanned)
	}
}
