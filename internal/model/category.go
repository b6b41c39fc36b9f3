package model

import "time"

// Category groups entries for budgeting. Imported rows may reference one.
type Category struct {
	CreatedAt time.Time
	Name      string
	ID        int64
}
