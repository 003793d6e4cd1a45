package model

import "time"

// Category represents a canonical shop category.
// Categories are managed by the rest of the back office; the import
// pipeline only reads them and never creates or deactivates one.
type Category struct {
	CreatedAt time.Time
	Name      string
	ID        int
	IsActive  bool
}
