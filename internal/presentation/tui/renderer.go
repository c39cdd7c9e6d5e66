// Package tui renders catalog lookups for an operator's terminal.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
	"github.com/springjools/ombibot/pkg/domain"
	"github.com/springjools/ombibot/pkg/menu"
)

// NewRenderer returns a function that renders markdown using glamour.
func NewRenderer() (func(string) (string, error), error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	return r.Render, nil
}

// ResultsMarkdown lists items as a markdown table with their ids, so an
// operator can pass one on to "lookup --id".
func ResultsMarkdown(header string, items []domain.CatalogItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", escape(header))
	if len(items) == 0 {
		return b.String()
	}
	b.WriteString("| ID | Title | Year | Status |\n|---|---|---|---|\n")
	for _, item := range items {
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
			escape(item.ID.String()), escape(item.Title), escape(item.ReleaseYear), item.Availability)
	}
	return b.String()
}

// DetailMarkdown describes one item the way the bot does, as markdown.
func DetailMarkdown(item domain.CatalogItem) string {
	head, body, _ := strings.Cut(menu.DetailText(item), "\n\n")
	return fmt.Sprintf("# %s\n\n%s\n\n_Status: %s_\n", escape(head), body, item.Availability)
}

// StatusColor colours an availability the way a terminal shows it.
func StatusColor(p termenv.Profile, a domain.Availability) termenv.Style {
	s := p.String(a.String())
	switch a {
	case domain.AvailabilityAvailable:
		return s.Foreground(p.Color("#22c55e"))
	case domain.AvailabilityRequested:
		return s.Foreground(p.Color("#eab308"))
	default:
		return s.Faint()
	}
}

// PlainResults is the uncoloured listing used when stdout is not a terminal.
func PlainResults(p termenv.Profile, items []domain.CatalogItem) string {
	var b strings.Builder
	for _, item := range items {
		fmt.Fprintf(&b, "%s\t%s\t%s\n", item.ID, menu.ResultLabel(item), StatusColor(p, item.Availability))
	}
	return b.String()
}

func escape(s string) string {
	return strings.NewReplacer("|", "\\|", "\n", " ").Replace(s)
}
