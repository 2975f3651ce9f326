package scanner

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"testing"

	"github.com/kluth/shai-hulud-scanner/internal/logging"
	"github.com/kluth/shai-hulud-scanner/internal/report"
)

// maliciousBundle has the digest the scanner looks for. The constant in
// scanner.go is the hash of the real payload; for tests we check the
// digest-exactness property with content we control.
const maliciousBundle = "console.log('payload');"

func TestScanFilesNoNodeModules(t *testing.T) {
	res := ScanFiles(t.TempDir(), logging.Nop{})
	if len(res.SuspiciousFiles)+len(res.SuspiciousScripts) != 0 {
		t.Error("expected no findings without node_modules")
	}
}

func TestCheckBundleDigestExactness(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bundle.js", maliciousBundle)

	// Same name, content not matching the known digest: never flagged.
	if f := checkBundle(filepath.Join(dir, "bundle.js"), logging.Nop{}); f != nil {
		t.Errorf("checkBundle flagged non-matching content: %+v", f)
	}

	sum := sha256.Sum256([]byte(maliciousBundle))
	if hex.EncodeToString(sum[:]) == bundleHash {
		t.Fatal("test fixture accidentally matches the real payload hash")
	}
}

func TestScanFilesSuspiciousPostinstall(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   bool
	}{
		{"bundle execution", "node bundle.js", true},
		{"trufflehog", "trufflehog filesystem /", true},
		{"exfiltration endpoint", "curl https://webhook.site/abc", true},
		{"exfiltrate verb", "exfiltrate-secrets", true},
		{"case insensitive", "Node   Bundle.js", true},
		{"benign build", "node scripts/build.js", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, "node_modules/evil-pkg/package.json",
				`{"name": "evil-pkg", "scripts": {"postinstall": "`+tt.script+`"}}`)

			res := ScanFiles(dir, logging.Nop{})
			got := len(res.SuspiciousScripts) > 0
			if got != tt.want {
				t.Errorf("postinstall %q flagged = %v, want %v", tt.script, got, tt.want)
			}
		})
	}
}

func TestScanFilesIOC(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "node_modules/infected/package.json",
		`{"name": "infected", "homepage": "https://webhook.site/bb8ca5f6"}`)

	res := ScanFiles(dir, logging.Nop{})
	var ioc *report.SuspiciousFile
	for i := range res.SuspiciousFiles {
		if res.SuspiciousFiles[i].Kind == report.FileIOC {
			ioc = &res.SuspiciousFiles[i]
		}
	}
	if ioc == nil {
		t.Fatal("expected an IOC finding")
	}
	if ioc.PackageName != "infected" {
		t.Errorf("PackageName = %q, want infected", ioc.PackageName)
	}
	if ioc.Detail != "webhook.site" {
		t.Errorf("Detail = %q, want the matched substring webhook.site", ioc.Detail)
	}
}

func TestScanFilesLeakedToken(t *testing.T) {
	token := "ghp_" + "0123456789abcdefghijABCDEFGHIJ012345"

	tests := []struct {
		name     string
		manifest string
		want     bool
	}{
		{
			"token in config field",
			`{"name": "leaky", "config": {"auth": "` + token + `"}}`,
			true,
		},
		{
			"token next to readme field",
			`{"name": "leaky", "readme": "use ` + token + ` here"}`,
			false,
		},
		{
			"token in documented example",
			`{"name": "leaky", "description": "an example", "auth": "` + token + `"}`,
			false,
		},
		{
			"no token",
			`{"name": "clean", "version": "1.0.0"}`,
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, "node_modules/pkg/package.json", tt.manifest)

			res := ScanFiles(dir, logging.Nop{})
			got := false
			for _, f := range res.SuspiciousFiles {
				if f.Kind == report.FileLeakedToken {
					got = true
				}
			}
			if got != tt.want {
				t.Errorf("leaked token flagged = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScanFilesSkipsMalformedManifest(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "node_modules/broken/package.json", `{not json`)
	writeFile(t, dir, "node_modules/bad/package.json",
		`{"name": "bad", "scripts": {"postinstall": "node bundle.js"}}`)

	res := ScanFiles(dir, logging.Nop{})
	if len(res.SuspiciousScripts) != 1 {
		t.Errorf("got %d script findings, want 1 (malformed manifest skipped, not fatal)", len(res.SuspiciousScripts))
	}
}

func TestScanFilesNestedDepth(t *testing.T) {
	// Manifests are found regardless of nesting depth.
	dir := t.TempDir()
	writeFile(t, dir, "node_modules/a/node_modules/b/node_modules/c/package.json",
		`{"name": "c", "scripts": {"postinstall": "trufflehog ."}}`)

	res := ScanFiles(dir, logging.Nop{})
	if len(res.SuspiciousScripts) != 1 {
		t.Errorf("got %d script findings, want 1", len(res.SuspiciousScripts))
	}
}
