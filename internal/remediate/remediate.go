// Package remediate uninstalls compromised dependencies via the package
// manager. It is invocation glue only; deciding what to remove is the
// matcher's job.
package remediate

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/kluth/shai-hulud-scanner/internal/logging"
	"github.com/kluth/shai-hulud-scanner/internal/report"
)

// Uninstall runs `npm uninstall` for every bad dependency in dir.
func Uninstall(ctx context.Context, dir string, badDeps []report.BadDependency, log logging.Logger) error {
	if len(badDeps) == 0 {
		return nil
	}

	args := []string{"uninstall"}
	for _, dep := range badDeps {
		args = append(args, dep.Name)
	}

	log.Info("Auto-remediation initiated...")
	cmd := exec.CommandContext(ctx, "npm", args...)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("npm uninstall failed: %w: %s", err, out)
	}

	log.Success("Bad dependencies uninstalled successfully")
	log.Success("Remediation complete - removed %d compromised packages", len(badDeps))
	log.Info("Next: run 'npm install' to reinstall clean dependencies")
	log.Info("Consider running 'npm audit' for additional security checks")
	return nil
}
