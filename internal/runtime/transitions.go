package runtime

import (
	"context"
	"strings"

	"github.com/springjools/ombibot/pkg/codec"
	"github.com/springjools/ombibot/pkg/domain"
	"github.com/springjools/ombibot/pkg/menu"
)

// Commands understood in every state.
const (
	CommandStart = "/start"
	CommandEnd   = "/end"
	CommandHelp  = "/help"
)

// Triggers reported in TransitionEvent.Trigger besides token actions.
const (
	TriggerText      = "text"
	TriggerMalformed = "malformed"
	TriggerIgnored   = "ignored"
)

type handler func(ctx context.Context, t *turn)

// transitionTable maps a state to its legal actions. Actions are token
// variants ("movie", "back", "item", ...) plus TriggerText for free text.
type transitionTable map[domain.State]map[string]handler

func (e *Engine) buildTable() transitionTable {
	movie := codec.SelectorMovie.String()
	series := codec.SelectorSeries.String()
	end := codec.SelectorEnd.String()
	contributor := codec.SelectorContributor.String()
	title := codec.SelectorTitle.String()

	return transitionTable{
		domain.StateEntry: {
			movie:       e.promptTitle,
			series:      e.seriesNotice,
			actionBack:  e.toEntry,
			TriggerText: e.useButtons,
		},
		domain.StateAwaitingTitleText: {
			contributor: e.promptContributor,
			actionBack:  e.toEntry,
			TriggerText: e.searchTitle,
		},
		domain.StateAwaitingContributorText: {
			title:       e.promptTitle,
			actionBack:  e.toEntry,
			TriggerText: e.searchContributor,
		},
		domain.StateResultsShown: {
			actionItem:  e.showDetail,
			actionBack:  e.toEntry,
			contributor: e.promptContributor,
			title:       e.promptTitle,
			TriggerText: e.searchAgain,
		},
		domain.StateDetailShown: {
			actionRelated: e.showSimilar,
			actionItem:    e.submitRequest,
			actionBack:    e.back,
			TriggerText:   e.useButtons,
		},
		domain.StateRequestCompleted: {
			movie:       e.requestAnother,
			end:         e.end,
			actionBack:  e.back,
			TriggerText: e.useButtons,
		},
	}
}

const (
	actionBack    = "back"
	actionItem    = "item"
	actionRelated = "related"
)

// actionOf names a decoded token for table lookup.
func actionOf(tok codec.Token) string {
	switch tok.Kind {
	case codec.KindCategory:
		return tok.Selector.String()
	case codec.KindBack:
		return actionBack
	case codec.KindItem:
		return actionItem
	case codec.KindRelated:
		return actionRelated
	default:
		return TriggerMalformed
	}
}

// dispatch routes the event and returns the trigger name.
func (e *Engine) dispatch(ctx context.Context, t *turn) string {
	switch t.ev.Kind {
	case domain.EventText:
		if cmd, ok := parseCommand(t.ev.Text); ok {
			switch cmd {
			case CommandStart:
				e.start(ctx, t)
				return cmd
			case CommandEnd:
				e.end(ctx, t)
				return cmd
			case CommandHelp:
				t.emit(menu.Help(), false)
				return cmd
			}
		}
		e.lookup(t.sess.State, TriggerText)(ctx, t)
		return TriggerText

	case domain.EventCallback:
		t.tok = e.codec.Decode(t.ev.Token)
		action := actionOf(t.tok)
		if t.tok.Kind == codec.KindMalformed {
			t.logger.Debug("Malformed action token", "token", t.ev.Token, "state", t.sess.State)
			t.reprompt()
			return action
		}
		e.lookup(t.sess.State, action)(ctx, t)
		return action
	}

	t.logger.Warn("Unknown event kind", "kind", t.ev.Kind)
	return TriggerIgnored
}

// lookup returns the handler for action in state. Actions that are not legal
// in state re-render the current prompt.
func (e *Engine) lookup(state domain.State, action string) handler {
	if h, ok := e.table[state][action]; ok {
		return h
	}
	return func(ctx context.Context, t *turn) {
		t.logger.Debug("Action not legal in state", "action", action, "state", state)
		t.reprompt()
	}
}

// parseCommand recognizes "/cmd" and "/cmd@botname" at the start of text.
func parseCommand(text string) (string, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", false
	}
	cmd, _, _ := strings.Cut(fields[0], "@")
	cmd = strings.ToLower(cmd)
	switch cmd {
	case CommandStart, CommandEnd, CommandHelp:
		return cmd, true
	}
	return "", false
}

func (e *Engine) start(ctx context.Context, t *turn) {
	t.sess.Reset()
	t.show(e.renderer.Entry(), false)
}

func (e *Engine) end(ctx context.Context, t *turn) {
	t.sess.Reset()
	t.emit(menu.Farewell(), false)
}

func (e *Engine) toEntry(ctx context.Context, t *turn) {
	t.sess.Reset()
	t.show(e.renderer.Entry(), true)
}

func (e *Engine) requestAnother(ctx context.Context, t *turn) {
	t.sess.Reset()
	t.show(e.renderer.Entry(), false)
}

func (e *Engine) seriesNotice(ctx context.Context, t *turn) {
	t.sess.State = domain.StateEntry
	t.show(e.renderer.SeriesNotice(), true)
}

func (e *Engine) promptTitle(ctx context.Context, t *turn) {
	t.sess.State = domain.StateAwaitingTitleText
	t.show(e.renderer.TitlePrompt(), true)
}

func (e *Engine) promptContributor(ctx context.Context, t *turn) {
	t.sess.State = domain.StateAwaitingContributorText
	t.show(e.renderer.ContributorPrompt(), true)
}

// useButtons answers free text where only buttons make sense.
func (e *Engine) useButtons(ctx context.Context, t *turn) {
	current := t.current()
	t.emit(&domain.Screen{
		Text: menu.TextUseButtons + "\n\n" + current.Text,
		Menu: current.Menu,
	}, false)
}

func (e *Engine) searchTitle(ctx context.Context, t *turn) {
	e.searchText(ctx, t, domain.SearchTitle)
}

func (e *Engine) searchContributor(ctx context.Context, t *turn) {
	e.searchText(ctx, t, domain.SearchContributor)
}

// searchAgain runs free text typed over a results list as a new search in the
// mode that produced the list.
func (e *Engine) searchAgain(ctx context.Context, t *turn) {
	mode := domain.SearchTitle
	if t.sess.LastSearch != nil && t.sess.LastSearch.Mode == domain.SearchContributor {
		mode = domain.SearchContributor
	}
	e.searchText(ctx, t, mode)
}

func (e *Engine) searchText(ctx context.Context, t *turn, mode domain.SearchMode) {
	query := strings.TrimSpace(t.ev.Text)
	if query == "" {
		t.reprompt()
		return
	}

	search := domain.Search{Mode: mode, Query: query}
	items, err := e.search(ctx, search)
	if err != nil {
		t.fail(err, false)
		return
	}

	t.logger.Info("Search completed", "mode", mode, "query", query, "results", len(items))
	t.say(menu.ResultsHeader(len(items), query))
	e.showResults(t, items, search, false)
}

// showResults renders a results list and makes it the list "Back" returns to.
func (e *Engine) showResults(t *turn, items []domain.CatalogItem, search domain.Search, edit bool) {
	screen := e.renderer.Results(items, search)
	t.sess.State = domain.StateResultsShown
	t.sess.LastMenu = screen.Clone()
	t.sess.LastSearch = &search
	t.sess.CurrentItem = ""
	t.show(screen, edit)
}

func (e *Engine) showDetail(ctx context.Context, t *turn) {
	item, err := callCatalog(ctx, e, opFetchDetail, func(ctx context.Context) (domain.CatalogItem, error) {
		return e.catalog.FetchDetail(ctx, t.tok.Item)
	})
	if err != nil {
		t.fail(err, true)
		return
	}
	if item.ID == "" {
		item.ID = t.tok.Item
	}

	t.sess.State = domain.StateDetailShown
	t.sess.CurrentItem = item.ID
	t.show(e.renderer.Detail(item), true)
}

func (e *Engine) showSimilar(ctx context.Context, t *turn) {
	if t.tok.Relation != codec.RelationSimilar {
		t.reprompt()
		return
	}

	search := domain.Search{Mode: domain.SearchSimilar, ItemID: t.tok.Item}
	items, err := e.search(ctx, search)
	if err != nil {
		t.fail(err, true)
		return
	}
	e.showResults(t, items, search, true)
}

// submitRequest files the item on display. Item buttons from an older results
// message (still clickable on paginated channels) open that item instead.
func (e *Engine) submitRequest(ctx context.Context, t *turn) {
	if t.tok.Item != t.sess.CurrentItem {
		t.logger.Debug("Item is not the one on display, showing it", "item", t.tok.Item, "current", t.sess.CurrentItem)
		e.showDetail(ctx, t)
		return
	}

	account := t.sess.AccountName
	if account == "" {
		account = domain.GuestAccount
	}

	outcome, err := callCatalog(ctx, e, opSubmitRequest, func(ctx context.Context) (string, error) {
		return e.catalog.SubmitRequest(ctx, t.tok.Item, account)
	})
	if err != nil {
		t.logger.Warn("Request failed", "item", t.tok.Item, "account", account, "err", err)
		outcome = "Sorry, the request could not be submitted: " + domain.Reason(err) + "."
	} else {
		t.logger.Info("Request submitted", "item", t.tok.Item, "account", account, "outcome", outcome)
	}

	t.sess.State = domain.StateRequestCompleted
	t.show(e.renderer.RequestOutcome(outcome), true)
}
