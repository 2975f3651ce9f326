// Package tui is an interactive browser over a completed scan report.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kluth/shai-hulud-scanner/internal/report"
)

// item is one finding in the browser list.
type item struct {
	kind   string
	title  string
	detail string
}

func (i item) Title() string       { return fmt.Sprintf("[%s] %s", i.kind, i.title) }
func (i item) Description() string { return firstLine(i.detail) }
func (i item) FilterValue() string { return i.title }

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}

// Model is the Bubble Tea model for browsing findings.
type Model struct {
	rep      *report.ScanReport
	findings list.Model
	selected *item
	width    int
	height   int
	quitting bool
}

// NewModel builds the browser for a finished report.
func NewModel(rep *report.ScanReport) Model {
	items := flatten(rep)
	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = fmt.Sprintf("Scan results: %d issue(s)", rep.TotalIssues)
	l.SetShowStatusBar(false)
	return Model{rep: rep, findings: l}
}

func flatten(rep *report.ScanReport) []list.Item {
	var items []list.Item
	for _, dep := range rep.BadDeps {
		items = append(items, item{
			kind:   "bad-dep",
			title:  dep.Name + "@" + dep.Version,
			detail: "Known-compromised version listed in the affected-packages badlist.\nRemove it and reinstall from a clean version.",
		})
	}
	for _, f := range rep.SuspiciousFiles {
		detail := f.Detail
		if f.PackageName != "" {
			detail += "\nPackage: " + f.PackageName
		}
		items = append(items, item{kind: string(f.Kind), title: f.Path, detail: detail})
	}
	for _, s := range rep.SuspiciousScripts {
		items = append(items, item{kind: "postinstall", title: s.Path, detail: "Script: " + s.Script})
	}
	for _, g := range rep.GitIssues {
		items = append(items, item{
			kind:   string(g.Kind),
			title:  g.Reason,
			detail: strings.Join(g.Items, "\n"),
		})
	}
	for _, g := range rep.GithubIssues {
		items = append(items, item{kind: g.Kind, title: g.Name, detail: ""})
	}
	return items
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.findings.SetSize(msg.Width-2, msg.Height-4)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "esc":
			if m.selected != nil {
				m.selected = nil
				return m, nil
			}
			m.quitting = true
			return m, tea.Quit
		case "enter":
			if m.selected == nil {
				if it, ok := m.findings.SelectedItem().(item); ok {
					m.selected = &it
				}
				return m, nil
			}
		}
	}

	var cmd tea.Cmd
	m.findings, cmd = m.findings.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	if m.rep.TotalIssues == 0 {
		return titleStyle.Render("Shai-Hulud Scanner") + "\n" +
			successStyle.Render("No indicators of compromise found.") + "\n" +
			statusStyle.Render("press q to quit") + "\n"
	}

	if m.selected != nil {
		body := detailBoxStyle.Render(
			dangerStyle.Render(m.selected.Title()) + "\n\n" + m.selected.detail)
		return titleStyle.Render("Finding detail") + "\n" + body + "\n" +
			statusStyle.Render("esc back · q quit") + "\n"
	}

	return m.findings.View() + "\n" + statusStyle.Render("enter details · q quit") + "\n"
}
