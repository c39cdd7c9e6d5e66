// Package menu renders conversation screens: the text and button rows shown to a
// user for each state. Everything here is pure; nothing calls the catalog.
package menu

import (
	"fmt"
	"math"
	"strings"

	"github.com/springjools/ombibot/pkg/codec"
	"github.com/springjools/ombibot/pkg/domain"
)

// Glyphs appended to result labels.
const (
	GlyphAvailable = "✅" // check mark: already on the server
	GlyphRequested = "➡" // arrow: already requested
)

// Button labels.
const (
	LabelMovie          = "Movie"
	LabelSeries         = "Series"
	LabelBack           = "Back"
	LabelByActor        = "By actor"
	LabelByTitle        = "By title"
	LabelRequest        = "Request this one"
	LabelSimilar        = "Find similar"
	LabelRequestAnother = "Request another"
	LabelEnd            = "End"
)

// Fixed texts.
const (
	TextEntry             = "What are you looking for?"
	TextTitlePrompt       = "Enter movie title (or go back):"
	TextContributorPrompt = "Enter actor name (or go back):"
	TextSeriesNotice      = "Series search has not yet been implemented"
	TextChoose            = "Choose one title (or go back):"
	TextFarewell          = "See you next time!\n\n(Type /start to begin another request)"
	TextUseButtons        = "Please use the buttons below, or type /start to begin a new search."
	TextHelp              = "Type /start to search the catalog and request a movie.\n" +
		"Pick Movie, type a title (or switch to searching by actor), choose a result and press \"" + LabelRequest + "\".\n" +
		"Type /end to finish."
)

// Renderer builds screens, encoding button tokens with its codec.
type Renderer struct {
	codec codec.Codec
}

// New returns a renderer that encodes tokens with c.
func New(c codec.Codec) Renderer {
	return Renderer{codec: c}
}

func (r Renderer) button(label string, tok codec.Token) domain.Button {
	return domain.Button{Label: label, Token: r.codec.Encode(tok)}
}

func (r Renderer) back() domain.Button {
	return r.button(LabelBack, codec.Back())
}

// EntryMenu is the two-category root menu.
func (r Renderer) EntryMenu() *domain.Menu {
	return &domain.Menu{Rows: []domain.Row{{
		r.button(LabelMovie, codec.Category(codec.SelectorMovie)),
		r.button(LabelSeries, codec.Category(codec.SelectorSeries)),
	}}}
}

// Entry is the root screen.
func (r Renderer) Entry() *domain.Screen {
	return &domain.Screen{Text: TextEntry, Menu: r.EntryMenu()}
}

// TitlePrompt asks for a title and offers switching to an actor search.
func (r Renderer) TitlePrompt() *domain.Screen {
	return &domain.Screen{
		Text: TextTitlePrompt,
		Menu: &domain.Menu{Rows: []domain.Row{{
			r.back(),
			r.button(LabelByActor, codec.Category(codec.SelectorContributor)),
		}}},
	}
}

// ContributorPrompt asks for an actor name and offers switching to a title search.
func (r Renderer) ContributorPrompt() *domain.Screen {
	return &domain.Screen{
		Text: TextContributorPrompt,
		Menu: &domain.Menu{Rows: []domain.Row{{
			r.back(),
			r.button(LabelByTitle, codec.Category(codec.SelectorTitle)),
		}}},
	}
}

// SeriesNotice explains that series search is unsupported.
func (r Renderer) SeriesNotice() *domain.Screen {
	return &domain.Screen{
		Text: TextSeriesNotice,
		Menu: &domain.Menu{Rows: []domain.Row{{r.back()}}},
	}
}

// ResultLabel is "<title> (<year>)" followed by the availability glyph, if any.
func ResultLabel(item domain.CatalogItem) string {
	year := item.ReleaseYear
	if year == "" {
		year = domain.NotAvailable
	}
	label := fmt.Sprintf("%s (%s)", item.Title, year)
	switch item.Availability {
	case domain.AvailabilityAvailable:
		label += GlyphAvailable
	case domain.AvailabilityRequested:
		label += GlyphRequested
	}
	return label
}

// Unique drops items whose id was already listed, keeping catalog order.
// Actor credits list the same film once per role.
func Unique(items []domain.CatalogItem) []domain.CatalogItem {
	seen := make(map[domain.ItemID]struct{}, len(items))
	out := make([]domain.CatalogItem, 0, len(items))
	for _, item := range items {
		if _, dup := seen[item.ID]; dup {
			continue
		}
		seen[item.ID] = struct{}{}
		out = append(out, item)
	}
	return out
}

// ResultsMenu lists items in the order given, under a control row that fits
// mode. Each item appears once.
func (r Renderer) ResultsMenu(items []domain.CatalogItem, mode domain.Search) *domain.Menu {
	items = Unique(items)
	control := domain.Row{r.back()}
	switch mode.Mode {
	case domain.SearchTitle:
		control = append(control, r.button(LabelByActor, codec.Category(codec.SelectorContributor)))
	case domain.SearchContributor:
		control = append(control, r.button(LabelByTitle, codec.Category(codec.SelectorTitle)))
	}

	rows := make([]domain.Row, 0, len(items)+1)
	rows = append(rows, control)
	for _, item := range items {
		rows = append(rows, domain.Row{r.button(ResultLabel(item), codec.Item(item.ID))})
	}
	return &domain.Menu{Rows: rows}
}

// Results is the results screen for mode.
func (r Renderer) Results(items []domain.CatalogItem, mode domain.Search) *domain.Screen {
	text := TextChoose
	if mode.Mode == domain.SearchSimilar {
		text = SimilarHeader(len(Unique(items)))
	}
	return &domain.Screen{Text: text, Menu: r.ResultsMenu(items, mode)}
}

// ResultsHeader announces the size of a title or contributor search.
func ResultsHeader(n int, query string) string {
	return fmt.Sprintf("Found %d results for %s", n, query)
}

// SimilarHeader announces the size of a similar-items list.
func SimilarHeader(n int) string {
	return fmt.Sprintf("Found %d similar movies. Choose one (or go back):", n)
}

// DetailMenu offers requesting the item, finding similar items, and going back.
func (r Renderer) DetailMenu(item domain.CatalogItem) *domain.Menu {
	return &domain.Menu{Rows: []domain.Row{{
		r.button(LabelRequest, codec.Item(item.ID)),
		r.button(LabelSimilar, codec.Related(codec.RelationSimilar, item.ID)),
		r.back(),
	}}}
}

// DetailText describes an item: title, rating, release date and overview.
func DetailText(item domain.CatalogItem) string {
	detail := item.Detail
	if detail == nil {
		detail = &domain.ItemDetail{}
	}

	var b strings.Builder
	b.WriteString(item.Title)
	fmt.Fprintf(&b, "  %.1f (%d votes)", math.Round(detail.VoteAverage*10)/10, detail.VoteCount)
	b.WriteString("\n\nReleased: ")
	b.WriteString(domain.ReleaseDateOf(detail.ReleaseDate))
	b.WriteString("\n\n")
	if overview := strings.TrimSpace(detail.Overview); overview != "" {
		b.WriteString(overview)
	} else {
		b.WriteString("No overview available.")
	}
	return b.String()
}

// Detail is the detail screen of item.
func (r Renderer) Detail(item domain.CatalogItem) *domain.Screen {
	return &domain.Screen{Text: DetailText(item), Menu: r.DetailMenu(item)}
}

// RequestOutcome shows the catalog's answer to a request with follow-up actions.
func (r Renderer) RequestOutcome(outcome string) *domain.Screen {
	return &domain.Screen{
		Text: "Result: " + outcome,
		Menu: &domain.Menu{Rows: []domain.Row{{
			r.back(),
			r.button(LabelRequestAnother, codec.Category(codec.SelectorMovie)),
			r.button(LabelEnd, codec.Category(codec.SelectorEnd)),
		}}},
	}
}

// Failure explains a recoverable error, keeping the menu of the current screen.
func Failure(reason string, current *domain.Screen) *domain.Screen {
	s := &domain.Screen{Text: fmt.Sprintf("Sorry, I could not complete that: %s. Please try again.", reason)}
	if current != nil {
		s.Menu = current.Menu.Clone()
	}
	return s
}

// Farewell ends a conversation.
func Farewell() *domain.Screen {
	return &domain.Screen{Text: TextFarewell}
}

// Help describes how to use the bot.
func Help() *domain.Screen {
	return &domain.Screen{Text: TextHelp}
}
