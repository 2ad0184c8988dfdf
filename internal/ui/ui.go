// Package ui holds the lipgloss styles shared by CLI output.
package ui

import "github.com/charmbracelet/lipgloss"

var (
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	passStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// RenderAccent renders emphasized text (headings, progress markers).
func RenderAccent(s string) string { return accentStyle.Render(s) }

// RenderPass renders healthy/synced state.
func RenderPass(s string) string { return passStyle.Render(s) }

// RenderWarn renders drift and other needs-a-look states.
func RenderWarn(s string) string { return warnStyle.Render(s) }

// RenderFail renders error states.
func RenderFail(s string) string { return failStyle.Render(s) }

// RenderDim renders secondary detail.
func RenderDim(s string) string { return dimStyle.Render(s) }
