package domain_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/springjools/ombibot/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAvailabilityOf(t *testing.T) {
	assert.Equal(t, domain.AvailabilityAvailable, domain.AvailabilityOf(true, true), "available wins over requested")
	assert.Equal(t, domain.AvailabilityAvailable, domain.AvailabilityOf(true, false))
	assert.Equal(t, domain.AvailabilityRequested, domain.AvailabilityOf(false, true))
	assert.Equal(t, domain.AvailabilityNeither, domain.AvailabilityOf(false, false))
}

func TestReleaseDates(t *testing.T) {
	tests := []struct {
		in, year, date string
	}{
		{"2010-07-16T00:00:00", "2010", "2010-07-16"},
		{"2010-07-16", "2010", "2010-07-16"},
		{"", domain.NotAvailable, domain.NotAvailable},
		{"  ", domain.NotAvailable, domain.NotAvailable},
		{"-07-16", domain.NotAvailable, "-07-16"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.year, domain.ReleaseYearOf(tt.in), "year of %q", tt.in)
		assert.Equal(t, tt.date, domain.ReleaseDateOf(tt.in), "date of %q", tt.in)
	}
}

func TestCatalogError(t *testing.T) {
	cause := errors.New("connection refused")
	transport := fmt.Errorf("search: %w", domain.NewTransportError("search_title", cause))
	protocol := domain.NewProtocolError("fetch_detail", 502, errors.New("bad gateway"))

	assert.ErrorIs(t, transport, domain.ErrTransport)
	assert.NotErrorIs(t, transport, domain.ErrProtocol)
	assert.ErrorIs(t, transport, cause)
	assert.ErrorIs(t, protocol, domain.ErrProtocol)

	var ce *domain.CatalogError
	require.ErrorAs(t, protocol, &ce)
	assert.Equal(t, 502, ce.Status)
	assert.Equal(t, "catalog fetch_detail failed (protocol) status 502: bad gateway", protocol.Error())

	assert.Equal(t, "the catalog server could not be reached", domain.Reason(transport))
	assert.Equal(t, "the catalog server returned an unexpected answer", domain.Reason(protocol))
	assert.Equal(t, "something went wrong", domain.Reason(errors.New("other")))
}

func TestSession(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := domain.NewSession("u1", now)
	assert.Equal(t, domain.StateEntry, s.State)
	assert.Equal(t, domain.GuestAccount, s.AccountName)

	s.State = domain.StateDetailShown
	s.AccountName, s.AccountResolved = "ann", true
	s.LastMenu = &domain.Screen{Text: "Choose", Menu: &domain.Menu{Rows: []domain.Row{{{Label: "A", Token: "1"}}}}}
	s.LastSearch = &domain.Search{Mode: domain.SearchTitle, Query: "alien"}
	s.CurrentItem = "603"

	c := s.Clone()
	c.LastMenu.Menu.Rows[0][0].Label = "changed"
	c.LastSearch.Query = "changed"
	assert.Equal(t, "A", s.LastMenu.Menu.Rows[0][0].Label, "clone must not share menus")
	assert.Equal(t, "alien", s.LastSearch.Query)

	s.Reset()
	assert.Equal(t, domain.StateEntry, s.State)
	assert.Nil(t, s.LastMenu)
	assert.Nil(t, s.LastSearch)
	assert.Empty(t, s.CurrentItem)
	assert.Equal(t, "ann", s.AccountName, "reset keeps the account")

	assert.False(t, s.Expired(now.Add(time.Hour), 2*time.Hour))
	assert.True(t, s.Expired(now.Add(3*time.Hour), 2*time.Hour))
	assert.False(t, s.Expired(now.Add(1000*time.Hour), 0))
	s.Touch(now.Add(3 * time.Hour))
	assert.False(t, s.Expired(now.Add(4*time.Hour), 2*time.Hour))
}

func TestStateValid(t *testing.T) {
	assert.True(t, domain.StateResultsShown.Valid())
	assert.False(t, domain.State("bogus").Valid())
}

func TestMenuButtons(t *testing.T) {
	m := &domain.Menu{Rows: []domain.Row{{{Label: "a"}, {Label: "b"}}, {{Label: "c"}}}}
	var labels []string
	for _, b := range m.Buttons() {
		labels = append(labels, b.Label)
	}
	assert.Equal(t, []string{"a", "b", "c"}, labels)

	var nilMenu *domain.Menu
	assert.Nil(t, nilMenu.Buttons())
	assert.Nil(t, nilMenu.Clone())
}
