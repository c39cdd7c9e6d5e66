package domain

import "strings"

// ItemID is the catalog-assigned identifier of an item.
// It is opaque: engine code only round-trips it.
type ItemID string

func (id ItemID) String() string {
	return string(id)
}

// Availability is the derived status of a catalog item.
type Availability int

const (
	AvailabilityNeither Availability = iota
	AvailabilityRequested
	AvailabilityAvailable
)

func (a Availability) String() string {
	switch a {
	case AvailabilityAvailable:
		return "available"
	case AvailabilityRequested:
		return "requested"
	default:
		return "neither"
	}
}

// AvailabilityOf derives Availability from the upstream flags.
// "Already on the server" wins over "already asked for".
func AvailabilityOf(available, requested bool) Availability {
	switch {
	case available:
		return AvailabilityAvailable
	case requested:
		return AvailabilityRequested
	default:
		return AvailabilityNeither
	}
}

// NotAvailable is rendered when a date or year is missing upstream.
const NotAvailable = "N/A"

// ReleaseYearOf returns the leading component of an ISO date ("2010-07-16" -> "2010").
func ReleaseYearOf(date string) string {
	date = strings.TrimSpace(date)
	if date == "" {
		return NotAvailable
	}
	year, _, _ := strings.Cut(date, "-")
	if year == "" {
		return NotAvailable
	}
	return year
}

// ReleaseDateOf strips the time part of an ISO date-time ("2010-07-16T00:00:00" -> "2010-07-16").
func ReleaseDateOf(date string) string {
	date = strings.TrimSpace(date)
	if date == "" {
		return NotAvailable
	}
	day, _, _ := strings.Cut(date, "T")
	return day
}

// ItemDetail holds the fields only the detail lookup populates.
type ItemDetail struct {
	VoteAverage float64 `json:"vote_average"`
	VoteCount   int     `json:"vote_count"`
	Overview    string  `json:"overview"`
	ReleaseDate string  `json:"release_date"`
}

// CatalogItem is a normalized catalog record.
type CatalogItem struct {
	ID           ItemID       `json:"id"`
	Title        string       `json:"title"`
	ReleaseYear  string       `json:"release_year"`
	Availability Availability `json:"availability"`
	Detail       *ItemDetail  `json:"detail,omitempty"`
}
