package types

import "fmt"

// SortDirection is the order of a sort key
type SortDirection string

const (
	SortAscending  SortDirection = "ASC"
	SortDescending SortDirection = "DESC"
)

// IsValid checks if the sort direction is valid
func (d SortDirection) IsValid() bool {
	return d == SortAscending || d == SortDescending
}

// Normalize returns the direction, treating empty as SortAscending.
func (d SortDirection) Normalize() SortDirection {
	if d == "" {
		return SortAscending
	}
	return d
}

// String returns the string representation of the sort direction
func (d SortDirection) String() string {
	return string(d)
}

// ParseSortDirection parses a string into a SortDirection. Empty means ascending.
func ParseSortDirection(s string) (SortDirection, error) {
	d := SortDirection(s).Normalize()
	if !d.IsValid() {
		return "", fmt.Errorf("invalid sort direction: %s", s)
	}
	return d, nil
}
