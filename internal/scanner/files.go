package scanner

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/kluth/shai-hulud-scanner/internal/logging"
	"github.com/kluth/shai-hulud-scanner/internal/report"
)

// FilesResult holds the file signature scanner output.
type FilesResult struct {
	SuspiciousFiles   []report.SuspiciousFile
	SuspiciousScripts []report.SuspiciousScript
}

// ScanFiles walks the installed-package tree for the known malicious
// bundle.js (by content hash) and for package manifests carrying worm
// postinstall signatures, IOCs or GitHub token shapes. A missing
// node_modules directory is not an error.
func ScanFiles(dir string, log logging.Logger) FilesResult {
	res := FilesResult{
		SuspiciousFiles:   []report.SuspiciousFile{},
		SuspiciousScripts: []report.SuspiciousScript{},
	}

	nodeModules := filepath.Join(dir, "node_modules")
	if _, err := os.Stat(nodeModules); err != nil {
		return res
	}

	// filepath.WalkDir visits entries in lexical order, so findings come
	// out in a stable order for a fixed tree.
	filepath.WalkDir(nodeModules, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		switch d.Name() {
		case "bundle.js":
			if f := checkBundle(path, log); f != nil {
				res.SuspiciousFiles = append(res.SuspiciousFiles, *f)
			}
		case "package.json":
			checkManifest(path, &res)
		}
		return nil
	})

	return res
}

// checkBundle hashes a bundle.js candidate and compares it against the
// known payload digest. Oversized and unreadable files are skipped.
func checkBundle(path string, log logging.Logger) *report.SuspiciousFile {
	info, err := os.Stat(path)
	if err != nil || info.Size() > maxFileSize {
		return nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	sum := sha256.Sum256(content)
	digest := hex.EncodeToString(sum[:])
	if digest != bundleHash {
		return nil
	}
	log.Debug("bundle.js hash match at %s", path)
	return &report.SuspiciousFile{Kind: report.FileBundleHash, Path: path, Detail: digest}
}

func checkManifest(path string, res *FilesResult) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}

	var pkg map[string]any
	if err := json.Unmarshal(data, &pkg); err != nil {
		return
	}

	pkgName := "unknown"
	if n, ok := pkg["name"].(string); ok && n != "" {
		pkgName = n
	}

	// Postinstall script against the worm execution signatures.
	if scripts, ok := pkg["scripts"].(map[string]any); ok {
		if postinstall, ok := scripts["postinstall"].(string); ok && postinstall != "" {
			if suspiciousPostinstall.MatchString(postinstall) {
				res.SuspiciousScripts = append(res.SuspiciousScripts, report.SuspiciousScript{
					Path:   path,
					Script: postinstall,
				})
			}
		}
	}

	// The broader IOC set over the whole serialized manifest. Marshaling
	// the parsed object (rather than rescanning raw bytes) normalizes
	// whitespace and key order.
	serialized, err := json.Marshal(pkg)
	if err != nil {
		return
	}
	content := string(serialized)

	if match := suspiciousIOCs.FindString(content); match != "" {
		res.SuspiciousFiles = append(res.SuspiciousFiles, report.SuspiciousFile{
			Kind:        report.FileIOC,
			Path:        path,
			Detail:      match,
			PackageName: pkgName,
		})
	}

	if githubTokenPattern.MatchString(content) && !looksLikeDocumentation(content) {
		res.SuspiciousFiles = append(res.SuspiciousFiles, report.SuspiciousFile{
			Kind:        report.FileLeakedToken,
			Path:        path,
			Detail:      "Potential GitHub token detected",
			PackageName: pkgName,
		})
	}
}

// looksLikeDocumentation suppresses token findings when the manifest text
// reads like docs (example tokens in README-like fields are common).
func looksLikeDocumentation(content string) bool {
	return (strings.Contains(content, "description") && strings.Contains(content, "example")) ||
		strings.Contains(content, "readme") ||
		strings.Contains(content, "documentation")
}
