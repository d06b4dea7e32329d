package types

import "fmt"

// Permission is a right an access id can hold on a workbasket
type Permission string

const (
	PermissionRead       Permission = "READ"
	PermissionOpen       Permission = "OPEN"
	PermissionAppend     Permission = "APPEND"
	PermissionTransfer   Permission = "TRANSFER"
	PermissionDistribute Permission = "DISTRIBUTE"
	PermissionReadTasks  Permission = "READTASKS"
	PermissionEditTasks  Permission = "EDITTASKS"
	PermissionCustom1    Permission = "CUSTOM_1"
	PermissionCustom2    Permission = "CUSTOM_2"
	PermissionCustom3    Permission = "CUSTOM_3"
	PermissionCustom4    Permission = "CUSTOM_4"
	PermissionCustom5    Permission = "CUSTOM_5"
	PermissionCustom6    Permission = "CUSTOM_6"
	PermissionCustom7    Permission = "CUSTOM_7"
	PermissionCustom8    Permission = "CUSTOM_8"
	PermissionCustom9    Permission = "CUSTOM_9"
	PermissionCustom10   Permission = "CUSTOM_10"
	PermissionCustom11   Permission = "CUSTOM_11"
	PermissionCustom12   Permission = "CUSTOM_12"
)

// AllPermissions returns all valid permissions
func AllPermissions() []Permission {
	return []Permission{
		PermissionRead,
		PermissionOpen,
		PermissionAppend,
		PermissionTransfer,
		PermissionDistribute,
		PermissionReadTasks,
		PermissionEditTasks,
		PermissionCustom1,
		PermissionCustom2,
		PermissionCustom3,
		PermissionCustom4,
		PermissionCustom5,
		PermissionCustom6,
		PermissionCustom7,
		PermissionCustom8,
		PermissionCustom9,
		PermissionCustom10,
		PermissionCustom11,
		PermissionCustom12,
	}
}

// IsValid checks if the permission is valid
func (p Permission) IsValid() bool {
	for _, v := range AllPermissions() {
		if p == v {
			return true
		}
	}
	return false
}

// String returns the string representation of the permission
func (p Permission) String() string {
	return string(p)
}

// ParsePermission parses a string into a Permission
func ParsePermission(s string) (Permission, error) {
	p := Permission(s)
	if !p.IsValid() {
		return "", fmt.Errorf("invalid permission: %s", s)
	}
	return p, nil
}

// PermissionSet is an unordered set of permissions
type PermissionSet map[Permission]struct{}

// NewPermissionSet builds a set from the given permissions
func NewPermissionSet(perms ...Permission) PermissionSet {
	s := make(PermissionSet, len(perms))
	for _, p := range perms {
		s[p] = struct{}{}
	}
	return s
}

// Has reports whether p is in the set
func (s PermissionSet) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

// HasAll reports whether every one of perms is in the set
func (s PermissionSet) HasAll(perms ...Permission) bool {
	for _, p := range perms {
		if !s.Has(p) {
			return false
		}
	}
	return true
}

// Slice returns the permissions in AllPermissions order
func (s PermissionSet) Slice() []Permission {
	out := make([]Permission, 0, len(s))
	for _, p := range AllPermissions() {
		if s.Has(p) {
			out = append(out, p)
		}
	}
	return out
}
