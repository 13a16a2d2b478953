package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"postcreator/internal/present"
)

var (
	accentColor  = lipgloss.Color("33")
	grayColor    = lipgloss.Color("245")
	warningColor = lipgloss.Color("208")
	successColor = lipgloss.Color("34")
	errorColor   = lipgloss.Color("160")

	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	subtitleStyle = lipgloss.NewStyle().Foreground(grayColor)
	labelStyle    = lipgloss.NewStyle().Foreground(grayColor)
	focusedStyle  = lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	buttonStyle   = lipgloss.NewStyle().Padding(0, 2).Border(lipgloss.RoundedBorder())
	disabledStyle = buttonStyle.Foreground(grayColor).BorderForeground(grayColor)
	errorStyle    = lipgloss.NewStyle().Foreground(errorColor).Bold(true)
	spinnerStyle  = lipgloss.NewStyle().Foreground(accentColor)
	postStyle     = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(grayColor).Padding(0, 1)
	chipStyle     = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("255"))
	outlineStyle  = lipgloss.NewStyle().Padding(0, 1).Foreground(grayColor)
	helpStyle     = lipgloss.NewStyle().Foreground(grayColor).Italic(true)
)

func (m Model) View() string {
	st := m.form.State()
	var b strings.Builder

	b.WriteString(titleStyle.Render("LinkedIn Post Creator"))
	b.WriteString("\n")
	b.WriteString(subtitleStyle.Render("AI-powered LinkedIn content generation"))
	b.WriteString("\n\n")

	b.WriteString(m.label(fieldTopic, "Topic"))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	b.WriteString(m.selector(fieldIndustry, "Industry", st.Industry, false))
	b.WriteString(m.selector(fieldTone, "Tone", st.Tone, true))
	b.WriteString(m.selector(fieldAudience, "Target Audience", st.Audience, true))
	b.WriteString("\n")

	b.WriteString(m.button())
	b.WriteString("\n")

	if st.Loading {
		b.WriteString("\n")
		b.WriteString(m.spinner.View() + " " + st.Progress)
		b.WriteString("\n")
	}
	if st.Error != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(st.Error))
		b.WriteString("\n")
	}
	if st.Result != nil {
		b.WriteString("\n")
		b.WriteString(titleStyle.Render("Generated LinkedIn Post"))
		b.WriteString("\n")
		post := postStyle
		if m.width > 4 {
			post = post.Width(m.width - 4)
		}
		b.WriteString(post.Render(st.Result.Post))
		b.WriteString("\n")
		b.WriteString(renderChips(present.Chips(st.Result)))
		b.WriteString("\n")
	}
	if m.notice != "" {
		b.WriteString(subtitleStyle.Render(m.notice))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	help := "tab: next field • ←/→: change option • enter: generate • esc: quit"
	if st.Result != nil {
		help += " • c: copy post"
	}
	b.WriteString(helpStyle.Render(help))
	return b.String()
}

func (m Model) label(f field, text string) string {
	if m.focus == f {
		return focusedStyle.Render("> " + text)
	}
	return labelStyle.Render("  " + text)
}

func (m Model) selector(f field, text, value string, titled bool) string {
	if titled {
		value = present.OptionLabel(value)
	}
	line := m.label(f, text) + "  "
	if m.focus == f {
		line += focusedStyle.Render("‹ " + value + " ›")
	} else {
		line += value
	}
	return line + "\n"
}

func (m Model) button() string {
	if m.form.State().Loading {
		return disabledStyle.Render("Generating...")
	}
	style := buttonStyle
	if m.focus == fieldSubmit {
		style = style.BorderForeground(accentColor).Foreground(accentColor).Bold(true)
	}
	if !m.form.CanSubmit() {
		style = disabledStyle
	}
	return style.Render("Generate LinkedIn Post")
}

func renderChips(chips []present.Chip) string {
	parts := make([]string, 0, len(chips))
	for _, chip := range chips {
		switch {
		case chip.Outline:
			parts = append(parts, outlineStyle.Render(chip.Label))
		case chip.Warning:
			parts = append(parts, chipStyle.Background(warningColor).Render(chip.Label))
		default:
			parts = append(parts, chipStyle.Background(successColor).Render(chip.Label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}
