// Package scanner implements the detection engine: the threat matcher over
// normalized dependencies, the node_modules file signature scan, and the
// local repository-history heuristics.
package scanner

import "regexp"

// bundleHash is the sha256 of the known malicious bundle.js payload.
const bundleHash = "46faab8ab153fae6e80e7cca38eab363075bb524edd79e42269217a083628f09"

// maxFileSize bounds hashing I/O; larger candidates are skipped.
const maxFileSize = 10 * 1024 * 1024

var (
	// suspiciousPostinstall matches known worm execution signatures in
	// postinstall scripts.
	suspiciousPostinstall = regexp.MustCompile(`(?i)(node\s+bundle\.js|trufflehog|webhook\.site|exfiltrat)`)

	// suspiciousIOCs is the broader indicator set searched across a whole
	// package manifest: the exfiltration endpoint, the campaign webhook
	// identifier, the worm name and the harvesting tool it drops.
	suspiciousIOCs = regexp.MustCompile(`(?i)(webhook\.site|bb8ca5f6-4175-45d2-b042-fc9ebb8170b7|shai-hulud|trufflehog)`)

	// githubTokenPattern matches the two fixed-length GitHub personal
	// access token shapes.
	githubTokenPattern = regexp.MustCompile(`ghp_[a-zA-Z0-9]{36}|gho_[a-zA-Z0-9]{36}`)
)
