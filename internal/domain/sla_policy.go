package domain

import "time"

// SLAPolicy sets response and resolution targets for one ticket priority.
// Times are in minutes.
type SLAPolicy struct {
	ID             string
	Name           string
	Priority       Priority
	ResponseTime   int
	ResolutionTime int
	Enabled        bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
