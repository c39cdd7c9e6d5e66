package ports

import (
	"context"
	"testing"
	"time"

	"github.com/springjools/ombibot/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSessionStoreContract runs a suite of tests to verify that a SessionStore
// implementation adheres to the interface contract.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	userID := "contract-user-" + time.Now().Format("20060102150405")
	now := time.Now().UTC().Truncate(time.Second)

	t.Run("Save and Load", func(t *testing.T) {
		sess := domain.NewSession(userID, now)
		sess.ChatID = "chat-1"
		sess.AccountName = "alice"
		sess.State = domain.StateResultsShown
		sess.LastSearch = &domain.Search{Mode: domain.SearchTitle, Query: "Inception"}
		sess.LastMenu = &domain.Screen{
			Text: "Choose one title (or go back):",
			Menu: &domain.Menu{Rows: []domain.Row{{{Label: "Inception (2010)", Token: "27205"}}}},
		}

		require.NoError(t, store.Save(ctx, sess), "Save should not return error")

		loaded, err := store.Load(ctx, userID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, sess.State, loaded.State)
		assert.Equal(t, "alice", loaded.AccountName)
		assert.Equal(t, "chat-1", loaded.ChatID)
		require.NotNil(t, loaded.LastMenu)
		assert.Equal(t, sess.LastMenu.Menu.Rows, loaded.LastMenu.Menu.Rows)
		require.NotNil(t, loaded.LastSearch)
		assert.Equal(t, "Inception", loaded.LastSearch.Query)
	})

	t.Run("Loaded Copy Is Isolated", func(t *testing.T) {
		loaded, err := store.Load(ctx, userID)
		require.NoError(t, err)
		loaded.State = domain.StateDetailShown
		if loaded.LastMenu != nil {
			loaded.LastMenu.Menu.Rows[0][0].Label = "mutated"
		}

		again, err := store.Load(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, domain.StateResultsShown, again.State)
		if again.LastMenu != nil {
			assert.Equal(t, "Inception (2010)", again.LastMenu.Menu.Rows[0][0].Label)
		}
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+userID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, domain.NewSession(userID, now)))

		require.NoError(t, store.Delete(ctx, userID), "Delete should not return error")

		_, err := store.Load(ctx, userID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := userID + "-1"
		id2 := userID + "-2"
		_ = store.Save(ctx, domain.NewSession(id1, now))
		_ = store.Save(ctx, domain.NewSession(id2, now))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})
}
