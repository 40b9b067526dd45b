package orderstatus

import (
	"strings"
)

type Status struct {
	Name string
}

type Enum struct {
	Pending   Status
	Confirmed Status
	Completed Status
	Cancelled Status
}

var Statuses = Enum{
	Pending:   Status{Name: "pending"},
	Confirmed: Status{Name: "confirmed"},
	Completed: Status{Name: "completed"},
	Cancelled: Status{Name: "cancelled"},
}

var All = []Status{
	Statuses.Pending,
	Statuses.Confirmed,
	Statuses.Completed,
	Statuses.Cancelled,
}

// ByName returns the status for a given name, or nil if not found
func ByName(name string) *Status {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, s := range All {
		if s.Name == name {
			return &s
		}
	}
	return nil
}

// IsCompleted reports whether name is the completed status.
func IsCompleted(name string) bool {
	s := ByName(name)
	return s != nil && *s == Statuses.Completed
}
