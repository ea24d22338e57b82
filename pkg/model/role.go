package model

import "time"

// Role is a model of the persistency layer
type Role struct {
	ID   string
	Name string

	CreatedAt time.Time
	UpdatedAt time.Time
}
