package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kluth/shai-hulud-scanner/internal/badlist"
	"github.com/kluth/shai-hulud-scanner/internal/lockfile"
	"github.com/kluth/shai-hulud-scanner/internal/logging"
	"github.com/kluth/shai-hulud-scanner/internal/remediate"
	"github.com/kluth/shai-hulud-scanner/internal/report"
	"github.com/kluth/shai-hulud-scanner/internal/scan"
	"github.com/kluth/shai-hulud-scanner/internal/tui"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	scanDir     string
	jsonOutput  bool
	format      string
	outputFile  string
	badlistURL  string
	skipGit     bool
	remediateIt bool
	githubToken string
	githubOrg   string
	verbose     bool
	quiet       bool
	overview    bool
)

const overviewText = `Shai-Hulud Worm Overview:
On September 14, 2025, Shai-Hulud, a self-replicating npm worm, compromised
over 180 popular packages in the registry. Adversaries began by phishing
maintainer accounts, then released tainted versions containing heavily
obfuscated JavaScript (notably a monolithic bundle.js) that executed during
the postinstall phase of npm install. The payload ran TruffleHog to hunt for
secrets in the developer's environment, double-base64-encoded the stolen data
and exfiltrated it to attacker-controlled endpoints, then amplified its reach
by republishing additional owned packages and flipping private GitHub
repositories to public via "-migration" forks.

Sources:
* https://flyingduck.io/blogs/ctrl-tinycolor-Supply-Chain-Attack
* https://www.wiz.io/blog/shai-hulud-npm-supply-chain-attack`

func main() {
	rootCmd := &cobra.Command{
		Use:   "hulud-scan",
		Short: "Scan a JavaScript project for Shai-Hulud worm infections",
		Long: fmt.Sprintf(`hulud-scan detects indicators of the Shai-Hulud npm supply-chain
compromise: known-bad package versions (direct and transitive), the known
malicious bundle.js by content hash, suspicious postinstall scripts, leaked
GitHub tokens, and worm propagation signatures in local git history.

Build Info: Commit %s, Date %s

Examples:  hulud-scan --dir ./my-app
  hulud-scan --json --output report.json
  hulud-scan --remediate
  hulud-scan --org my-org --github-token $GITHUB_TOKEN`, commit, date),
		Version: version,
		RunE:    run,
	}

	rootCmd.AddCommand(newScanTreeCmd())
	rootCmd.AddCommand(newTuiCmd())
	rootCmd.AddCommand(newMcpCmd())

	rootCmd.PersistentFlags().StringVarP(&scanDir, "dir", "d", ".", "directory to scan")
	rootCmd.PersistentFlags().StringVar(&badlistURL, "badlist-url", "", "override the affected-packages list URL")
	rootCmd.PersistentFlags().BoolVar(&skipGit, "skip-git", false, "skip the local git repository scan")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress progress messages")

	rootCmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON report (alias for --format json)")
	rootCmd.Flags().StringVar(&format, "format", "terminal", "output format (terminal, json, pdf)")
	rootCmd.Flags().StringVarP(&outputFile, "output", "o", "", "write report to file instead of stdout")
	rootCmd.Flags().BoolVar(&remediateIt, "remediate", false, "auto-uninstall bad dependencies")
	rootCmd.Flags().StringVarP(&githubToken, "github-token", "g", "", "GitHub token for org scan (optional)")
	rootCmd.Flags().StringVar(&githubOrg, "org", "", "GitHub org to scan (requires token)")
	rootCmd.Flags().BoolVar(&overview, "overview", false, "display overview of the Shai-Hulud worm")

	if err := rootCmd.Execute(); err != nil {
		if exitErr, ok := err.(*ExitError); ok {
			if exitErr.Message != "" {
				fmt.Fprintln(os.Stderr, exitErr.Message)
			}
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// ExitError signals a non-standard exit code (1 when findings exist).
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string { return e.Message }

func run(cmd *cobra.Command, args []string) error {
	if overview {
		fmt.Println(overviewText)
		return nil
	}
	if err := loadConfiguration(cmd); err != nil {
		return err
	}

	dir, err := filepath.Abs(scanDir)
	if err != nil {
		return err
	}

	rep, err := runScan(cmd.Context(), dir)
	if err != nil {
		return err
	}

	out, cleanup, err := resolveOutput()
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	if err := report.NewRenderer(out, format).Render(rep); err != nil {
		return err
	}

	if remediateIt && len(rep.BadDeps) > 0 {
		if err := remediate.Uninstall(cmd.Context(), dir, rep.BadDeps, newLogger()); err != nil {
			return err
		}
		return nil // remediated: exit clean
	}

	if rep.TotalIssues > 0 {
		return &ExitError{Code: 1}
	}
	return nil
}

func runScan(ctx context.Context, dir string) (*report.ScanReport, error) {
	log := newLogger()

	fetcher := badlist.NewFetcher()
	if badlistURL != "" {
		fetcher.URL = badlistURL
	}

	runner := scan.NewRunner(scan.Config{
		SkipGit:     skipGit,
		GithubToken: githubToken,
		GithubOrg:   githubOrg,
		Fetcher:     fetcher,
	}, log)

	return runner.Run(ctx, dir)
}

// newLogger keeps stdout clean for machine-readable formats by routing
// progress to stderr, and silences it entirely under --quiet.
func newLogger() logging.Logger {
	if quiet {
		return logging.Nop{}
	}
	if jsonOutput || format != report.FormatTerminal || outputFile != "" {
		return logging.NewTerminal(os.Stderr, os.Stderr, verbose)
	}
	return logging.NewTerminal(os.Stdout, os.Stderr, verbose)
}

func resolveOutput() (io.Writer, func(), error) {
	if outputFile == "" {
		return os.Stdout, nil, nil
	}
	f, err := os.Create(outputFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { f.Close() }, nil
}

func newScanTreeCmd() *cobra.Command {
	var maxDepth int
	cmd := &cobra.Command{
		Use:   "scan-tree [root]",
		Short: "Scan every project with a package-lock.json beneath a root directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfiguration(cmd); err != nil {
				return err
			}
			root := "."
			if len(args) > 0 {
				root = args[0]
			}
			root, err := filepath.Abs(root)
			if err != nil {
				return err
			}

			dirs := lockfile.FindProjectDirs(root, maxDepth)
			if len(dirs) == 0 {
				fmt.Println("No directories with package-lock.json found.")
				return nil
			}

			log := newLogger()
			for i, dir := range dirs {
				log.Info("[%d/%d] Processing %s...", i+1, len(dirs), dir)
				rep, err := runScan(cmd.Context(), dir)
				if err != nil {
					return err
				}
				if err := report.NewRenderer(os.Stdout, format).Render(rep); err != nil {
					return err
				}
				if rep.TotalIssues > 0 {
					return &ExitError{Code: 1, Message: fmt.Sprintf("issues found in %s", dir)}
				}
			}
			log.Success("All directories processed successfully.")
			return nil
		},
	}
	cmd.Flags().IntVar(&maxDepth, "max-depth", 2, "maximum directory depth to search")
	return cmd
}

func newTuiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Scan and browse findings interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfiguration(cmd); err != nil {
				return err
			}
			dir, err := filepath.Abs(scanDir)
			if err != nil {
				return err
			}
			quiet = true // the TUI owns the terminal
			rep, err := runScan(cmd.Context(), dir)
			if err != nil {
				return err
			}
			p := tea.NewProgram(tui.NewModel(rep), tea.WithAltScreen())
			_, err = p.Run()
			return err
		},
	}
}

type configFile struct {
	BadlistURL string `yaml:"badlist-url"`
	Format     string `yaml:"format"`
	SkipGit    bool   `yaml:"skip-git"`
	Quiet      bool   `yaml:"quiet"`
	Verbose    bool   `yaml:"verbose"`
}

func loadConfiguration(cmd *cobra.Command) error {
	if cfgPath := findConfigFile(); cfgPath != "" {
		cfg, err := loadConfigFile(cfgPath)
		if err != nil {
			return err
		}
		applyConfig(cfg)
	}
	resolveConfig(cmd)
	if quiet && verbose {
		return fmt.Errorf("--quiet and --verbose are mutually exclusive")
	}
	if jsonOutput {
		format = report.FormatJSON
	}
	switch format {
	case report.FormatTerminal, report.FormatJSON, report.FormatPDF:
	default:
		return fmt.Errorf("invalid format %q: must be terminal, json, or pdf", format)
	}
	return nil
}

func findConfigFile() string {
	if _, err := os.Stat(".hulud-scan.yaml"); err == nil {
		return ".hulud-scan.yaml"
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	p := filepath.Join(home, ".config", "hulud-scan", "config.yaml")
	if _, err := os.Stat(p); err == nil {
		return p
	}
	return ""
}

func loadConfigFile(path string) (*configFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var cfg configFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return &cfg, nil
}

func applyConfig(cfg *configFile) {
	if cfg == nil {
		return
	}
	if cfg.BadlistURL != "" {
		badlistURL = cfg.BadlistURL
	}
	if cfg.Format != "" {
		format = cfg.Format
	}
	if cfg.SkipGit {
		skipGit = true
	}
	if cfg.Quiet {
		quiet = true
	}
	if cfg.Verbose {
		verbose = true
	}
}

func resolveConfig(cmd *cobra.Command) {
	resolveStringEnv(cmd, "badlist-url", "HULUD_SCAN_BADLIST_URL", &badlistURL)
	resolveStringEnv(cmd, "format", "HULUD_SCAN_FORMAT", &format)
	resolveStringEnv(cmd, "github-token", "HULUD_SCAN_GITHUB_TOKEN", &githubToken)
	resolveBoolEnv(cmd, "skip-git", "HULUD_SCAN_SKIP_GIT", &skipGit)
	resolveBoolEnv(cmd, "quiet", "HULUD_SCAN_QUIET", &quiet)
}

func flagChanged(cmd *cobra.Command, name string) bool {
	if cmd == nil {
		return false
	}
	f := cmd.Flags().Lookup(name)
	if f == nil {
		f = cmd.InheritedFlags().Lookup(name)
	}
	return f != nil && f.Changed
}

func resolveStringEnv(cmd *cobra.Command, flagName, envKey string, target *string) {
	if flagChanged(cmd, flagName) {
		return
	}
	if v := os.Getenv(envKey); v != "" {
		*target = v
	}
}

func resolveBoolEnv(cmd *cobra.Command, flagName, envKey string, target *bool) {
	if flagChanged(cmd, flagName) {
		return
	}
	if v := os.Getenv(envKey); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*target = b
		}
	}
}
