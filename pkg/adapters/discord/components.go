package discord

import (
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"github.com/springjools/ombibot/pkg/codec"
	"github.com/springjools/ombibot/pkg/domain"
)

// Discord component limits.
const (
	MaxButtonsPerRow  = 5
	MaxRowsPerMessage = 5
	MaxLabelLength    = 80
	MaxContentLength  = 2000
)

// Page is one outbound Discord message: the first page carries the text,
// follow-up pages carry the rows that did not fit.
type Page struct {
	Content    string
	Components []discordgo.MessageComponent
}

// Paginate maps a screen onto as many messages as the component limits need.
// Rows wider than MaxButtonsPerRow are wrapped; order is preserved.
func Paginate(cd codec.Codec, text string, m *domain.Menu) []Page {
	var rows []discordgo.MessageComponent
	var menuRows []domain.Row
	if m != nil {
		menuRows = m.Rows
	}
	// Discord rejects a message whose custom ids repeat.
	seen := make(map[string]struct{})
	for _, row := range menuRows {
		row = uniqueButtons(row, seen)
		for start := 0; start < len(row); start += MaxButtonsPerRow {
			end := min(start+MaxButtonsPerRow, len(row))
			rows = append(rows, actionsRow(cd, row[start:end]))
		}
	}

	pages := []Page{{Content: clip(text, MaxContentLength)}}
	for i := 0; i < len(rows); i += MaxRowsPerMessage {
		end := min(i+MaxRowsPerMessage, len(rows))
		if i > 0 {
			pages = append(pages, Page{})
		}
		pages[len(pages)-1].Components = rows[i:end]
	}
	return pages
}

func actionsRow(cd codec.Codec, buttons domain.Row) discordgo.ActionsRow {
	components := make([]discordgo.MessageComponent, 0, len(buttons))
	for _, b := range buttons {
		style := discordgo.PrimaryButton
		if cd.Decode(b.Token).Kind == codec.KindBack {
			style = discordgo.SecondaryButton
		}
		components = append(components, discordgo.Button{
			Label:    clip(b.Label, MaxLabelLength),
			Style:    style,
			CustomID: b.Token,
		})
	}
	return discordgo.ActionsRow{Components: components}
}

func uniqueButtons(row domain.Row, seen map[string]struct{}) domain.Row {
	out := make(domain.Row, 0, len(row))
	for _, b := range row {
		if _, dup := seen[b.Token]; dup {
			continue
		}
		seen[b.Token] = struct{}{}
		out = append(out, b)
	}
	return out
}

// clip shortens s to at most n runes, marking the cut with an ellipsis.
func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-1]) + "…"
}
