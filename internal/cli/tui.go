package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/stacklicense/pkg/pkglist"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// BrowseModel - Interactive package list
// =============================================================================

// BrowseModel is the bubbletea model of the browse command. It shows the
// package table; enter opens the selected package's license text.
type BrowseModel struct {
	Packages pkglist.PackageList
	Cursor   int
	Offset   int
	Height   int

	// Viewing is true while license text is shown.
	Viewing    bool
	TextOffset int
}

// NewBrowseModel creates a browser over list.
func NewBrowseModel(list pkglist.PackageList) BrowseModel {
	return BrowseModel{Packages: list, Height: 15}
}

func (m BrowseModel) Init() tea.Cmd {
	return nil
}

func (m BrowseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.Viewing {
			return m.updateText(msg)
		}
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Packages)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter":
			if len(m.Packages) > 0 {
				m.Viewing = true
				m.TextOffset = 0
			}
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-8, 5)
	}
	return m, nil
}

func (m BrowseModel) updateText(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "q", "esc", "backspace":
		m.Viewing = false
	case "up", "k":
		if m.TextOffset > 0 {
			m.TextOffset--
		}
	case "down", "j":
		if m.TextOffset < len(m.textLines())-1 {
			m.TextOffset++
		}
	case "pgdown", " ":
		m.TextOffset = min(m.TextOffset+m.Height, max(len(m.textLines())-1, 0))
	case "pgup":
		m.TextOffset = max(m.TextOffset-m.Height, 0)
	}
	return m, nil
}

// textLines returns the license text of the selected package.
func (m BrowseModel) textLines() []string {
	if len(m.Packages) == 0 {
		return nil
	}
	p := m.Packages[m.Cursor]
	if p.LicenseText == nil {
		return []string{"(no license text)"}
	}
	return strings.Split(*p.LicenseText, "\n")
}

func (m BrowseModel) View() string {
	if m.Viewing {
		return m.textView()
	}

	var b strings.Builder

	b.WriteString(StyleTitle.Render("Third-party licenses"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ view license  q quit"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.Packages))

	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		p := m.Packages[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		id := p.License()
		if id == "" {
			id = "—"
		}
		source := "registry"
		switch {
		case p.IsRootPkg:
			source = "root"
		case !p.HasLicenseText():
			source = "missing"
		case p.RestoredFromCache:
			source = iconCached
		}
		rows = append(rows, []string{cursor, p.Name, p.Version, id, source})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Crate", "Version", "License", "Text").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			idx := m.Offset + row
			if idx >= len(m.Packages) {
				return lipgloss.NewStyle()
			}
			p := m.Packages[idx]
			base := lipgloss.NewStyle()
			if col == 2 || col == 4 {
				base = base.Foreground(colorGray)
			}
			if !p.HasLicenseText() {
				base = base.Foreground(colorYellow)
			}
			if idx == m.Cursor {
				return base.Bold(true)
			}
			return base
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Packages))))

	return b.String()
}

func (m BrowseModel) textView() string {
	p := m.Packages[m.Cursor]
	lines := m.textLines()

	var b strings.Builder
	b.WriteString(listSelectedStyle.Render(p.Name + " " + p.Version))
	if id := p.License(); id != "" {
		b.WriteString("  " + StyleLicense.Render(id))
	}
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ scroll  space page  esc back"))
	b.WriteString("\n\n")

	end := min(m.TextOffset+m.Height, len(lines))
	for _, line := range lines[m.TextOffset:end] {
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  lines %d-%d of %d", m.TextOffset+1, end, len(lines))))
	return b.String()
}
