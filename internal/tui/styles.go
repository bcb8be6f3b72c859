package tui

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title    lipgloss.Style
	subtle   lipgloss.Style
	prompt   lipgloss.Style
	mark     lipgloss.Style
	active   lipgloss.Style
	item     lipgloss.Style
	errorMsg lipgloss.Style
	header   lipgloss.Style
	current  lipgloss.Style
	expired  lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		title:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")),
		subtle:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		prompt:   lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Bold(true),
		mark:     lipgloss.NewStyle().Bold(true).Underline(true).Foreground(lipgloss.Color("214")),
		active:   lipgloss.NewStyle().Reverse(true),
		item:     lipgloss.NewStyle().PaddingLeft(2),
		errorMsg: lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		header:   lipgloss.NewStyle().Bold(true).Underline(true),
		current:  lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		expired:  lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	}
}
