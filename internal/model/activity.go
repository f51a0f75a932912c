package model

import (
	"database/sql"
	"time"
)

// Activity is the aggregate count of one category of parliamentary action
// by one deputy within one legislature. Re-imports overwrite the total and
// the details sample, they never accumulate. Legislature is the empty
// string when the feed does not name one, so the uniqueness key still
// matches on re-import.
type Activity struct {
	ID          int
	DeputyID    int
	Kind        string
	Legislature string
	Total       int
	LastDate    sql.NullTime
	Details     sql.NullString
}

// ActivityRow is an Activity joined with its deputy for listing.
type ActivityRow struct {
	DeputyID    int
	Deputy      string
	Party       string
	Kind        string
	Legislature string
	Total       int
	LastDate    sql.NullTime
	Details     string
}

// AgendaItem is an externally identified parliamentary calendar event.
// Unique per external identifier; re-imports update every field in place.
type AgendaItem struct {
	ID              int
	ExternalID      int64
	Title           string
	Theme           sql.NullString
	Section         sql.NullString
	Organizer       sql.NullString
	Venue           sql.NullString
	Legislature     sql.NullString
	ParliamentGroup sql.NullString
	Link            sql.NullString
	StartsAt        sql.NullTime
	EndsAt          sql.NullTime
	Body            sql.NullString
}

// AgendaFilter narrows the agenda listing.
type AgendaFilter struct {
	Legislature string
	Section     string
	Theme       string
	From        time.Time
	To          time.Time
}
