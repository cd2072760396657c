package domain

import "time"

type ResourceStatus string

const (
	ResourceStatusAvailable   ResourceStatus = "available"
	ResourceStatusUnavailable ResourceStatus = "unavailable"
	ResourceStatusRetired     ResourceStatus = "retired"
)

// Resource is a named continuous unit (a vehicle, a wash bay). ID is the
// stable key used for conflict enforcement; Name is display-only and may
// change without invalidating existing claims.
type Resource struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Status ResourceStatus `json:"status"`

	// Optional manual block. Both bounds inclusive, day granularity.
	// When Status is unavailable and no bounds are set, every day is blocked.
	UnavailableFrom  *time.Time `json:"unavailableFrom,omitempty"`
	UnavailableUntil *time.Time `json:"unavailableUntil,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}
