package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/go-pdf/fpdf"
)

// Output formats.
const (
	FormatTerminal = "terminal"
	FormatJSON     = "json"
	FormatPDF      = "pdf"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	cleanStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	alertStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// Renderer writes a ScanReport in the configured format.
type Renderer struct {
	writer io.Writer
	format string
}

// NewRenderer creates a Renderer. An empty format defaults to terminal.
func NewRenderer(w io.Writer, format string) *Renderer {
	if format == "" {
		format = FormatTerminal
	}
	return &Renderer{writer: w, format: format}
}

// Render outputs the report.
func (r *Renderer) Render(rep *ScanReport) error {
	switch r.format {
	case FormatJSON:
		enc := json.NewEncoder(r.writer)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	case FormatPDF:
		return r.renderPDF(rep)
	default:
		return r.renderTerminal(rep)
	}
}

func (r *Renderer) renderTerminal(rep *ScanReport) error {
	w := r.writer

	fmt.Fprintln(w, headerStyle.Render("Shai-Hulud Scan Results"))
	fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("Directory: %s", rep.ScannedDir)))
	fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("Dependencies scanned: %d", rep.TotalScanned)))
	fmt.Fprintln(w)

	if len(rep.BadDeps) > 0 {
		fmt.Fprintln(w, alertStyle.Render(fmt.Sprintf("Compromised dependencies (%d):", len(rep.BadDeps))))
		for _, dep := range rep.BadDeps {
			fmt.Fprintf(w, "  %s@%s\n", dep.Name, dep.Version)
		}
		fmt.Fprintln(w)
	}

	if len(rep.SuspiciousFiles) > 0 {
		fmt.Fprintln(w, alertStyle.Render(fmt.Sprintf("Suspicious files (%d):", len(rep.SuspiciousFiles))))
		for _, f := range rep.SuspiciousFiles {
			detail := f.Detail
			if f.PackageName != "" {
				detail = fmt.Sprintf("%s (package: %s)", detail, f.PackageName)
			}
			fmt.Fprintf(w, "  [%s] %s\n", f.Kind, f.Path)
			if detail != "" {
				fmt.Fprintln(w, dimStyle.Render("      "+detail))
			}
		}
		fmt.Fprintln(w)
	}

	if len(rep.SuspiciousScripts) > 0 {
		fmt.Fprintln(w, alertStyle.Render(fmt.Sprintf("Suspicious postinstall scripts (%d):", len(rep.SuspiciousScripts))))
		for _, s := range rep.SuspiciousScripts {
			fmt.Fprintf(w, "  %s\n", s.Path)
			fmt.Fprintln(w, dimStyle.Render("      "+s.Script))
		}
		fmt.Fprintln(w)
	}

	if len(rep.GitIssues) > 0 {
		fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("Git repository issues (%d):", len(rep.GitIssues))))
		for _, issue := range rep.GitIssues {
			fmt.Fprintf(w, "  [%s] %s\n", issue.Kind, issue.Reason)
			for _, item := range issue.Items {
				fmt.Fprintln(w, dimStyle.Render("      "+item))
			}
		}
		fmt.Fprintln(w)
	}

	if len(rep.GithubIssues) > 0 {
		fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("GitHub organization issues (%d):", len(rep.GithubIssues))))
		for _, issue := range rep.GithubIssues {
			fmt.Fprintf(w, "  [%s] %s\n", issue.Kind, issue.Name)
		}
		fmt.Fprintln(w)
	}

	if rep.GitError != "" {
		fmt.Fprintln(w, warnStyle.Render("Git scan degraded: "+rep.GitError))
	}
	if rep.GithubError != "" {
		fmt.Fprintln(w, warnStyle.Render("GitHub scan degraded: "+rep.GithubError))
	}

	fmt.Fprintln(w, strings.Repeat("─", 60))
	if rep.TotalIssues == 0 {
		fmt.Fprintln(w, cleanStyle.Render("No indicators of compromise found."))
	} else {
		fmt.Fprintln(w, alertStyle.Render(fmt.Sprintf("%d issue(s) found.", rep.TotalIssues)))
	}
	fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("Scan completed in %.1fms", rep.DurationMS)))
	return nil
}

func (r *Renderer) renderPDF(rep *ScanReport) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 10, "Shai-Hulud Scan Report")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, "Directory: "+rep.ScannedDir)
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Dependencies scanned: %d", rep.TotalScanned))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Total issues: %d", rep.TotalIssues))
	pdf.Ln(10)

	section := func(title string) {
		pdf.SetFont("Arial", "B", 12)
		pdf.Cell(0, 8, title)
		pdf.Ln(8)
		pdf.SetFont("Arial", "", 9)
	}

	if len(rep.BadDeps) > 0 {
		section("Compromised dependencies")
		for _, dep := range rep.BadDeps {
			pdf.Cell(0, 5, fmt.Sprintf("%s@%s", dep.Name, dep.Version))
			pdf.Ln(5)
		}
		pdf.Ln(4)
	}

	if len(rep.SuspiciousFiles) > 0 {
		section("Suspicious files")
		for _, f := range rep.SuspiciousFiles {
			pdf.MultiCell(0, 5, fmt.Sprintf("[%s] %s: %s", f.Kind, f.Path, f.Detail), "", "L", false)
		}
		pdf.Ln(4)
	}

	if len(rep.SuspiciousScripts) > 0 {
		section("Suspicious postinstall scripts")
		for _, s := range rep.SuspiciousScripts {
			pdf.MultiCell(0, 5, fmt.Sprintf("%s: %s", s.Path, s.Script), "", "L", false)
		}
		pdf.Ln(4)
	}

	if len(rep.GitIssues) > 0 {
		section("Git repository issues")
		for _, issue := range rep.GitIssues {
			pdf.MultiCell(0, 5, fmt.Sprintf("[%s] %s", issue.Kind, issue.Reason), "", "L", false)
			for _, item := range issue.Items {
				pdf.MultiCell(0, 5, "    "+item, "", "L", false)
			}
		}
		pdf.Ln(4)
	}

	if len(rep.GithubIssues) > 0 {
		section("GitHub organization issues")
		for _, issue := range rep.GithubIssues {
			pdf.MultiCell(0, 5, fmt.Sprintf("[%s] %s", issue.Kind, issue.Name), "", "L", false)
		}
	}

	pdf.SetY(-15)
	pdf.SetFont("Arial", "I", 8)
	pdf.SetTextColor(128, 128, 128)
	pdf.CellFormat(0, 10, "Generated "+rep.Timestamp, "", 0, "C", false, 0, "")

	return pdf.Output(r.writer)
}
