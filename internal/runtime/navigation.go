package runtime

import (
	"context"

	"github.com/springjools/ombibot/pkg/domain"
)

// back returns to the most recent results list: the snapshot if one is kept,
// otherwise the list recomputed from the last search, otherwise the entry menu.
func (e *Engine) back(ctx context.Context, t *turn) {
	if t.sess.LastMenu != nil {
		t.sess.State = domain.StateResultsShown
		t.sess.CurrentItem = ""
		t.show(t.sess.LastMenu, true)
		return
	}

	if t.sess.LastSearch != nil {
		search := *t.sess.LastSearch
		items, err := e.search(ctx, search)
		if err != nil {
			t.fail(err, true)
			return
		}
		e.showResults(t, items, search, true)
		return
	}

	e.toEntry(ctx, t)
}
