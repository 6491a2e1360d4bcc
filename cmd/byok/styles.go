package main

import "github.com/charmbracelet/lipgloss"

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7FFF00"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF1493"))
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	loadedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#00CED1"))
	faintStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("254")).Faint(true)
	pickerTitle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB6C1")).Bold(true)
)

func loadedStateLabel(loaded bool) string {
	if loaded {
		return loadedStyle.Render("loaded")
	}
	return faintStyle.Render("not loaded")
}
