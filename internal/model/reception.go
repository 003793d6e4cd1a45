package model

import "time"

// Post is a reception-desk opening scoped to one actor and one calendar
// day. At most one post exists per (actor, day).
type Post struct {
	Date      time.Time
	CreatedAt time.Time
	Actor     string
	ID        int64
}

// Ticket is one drop-off visit recorded under a post. Reference is the
// human-visible receipt identifier printed on paper tickets.
type Ticket struct {
	CreatedAt time.Time
	Reference string
	Notes     string
	ID        int64
	PostID    int64
}

// Line is one weighed, categorized item recorded under a ticket.
type Line struct {
	CreatedAt   time.Time
	Destination string
	Notes       string
	ID          int64
	TicketID    int64
	CategoryID  int
	WeightKg    float64
}
