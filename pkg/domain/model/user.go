package model

// User is an entry of the user directory
type User struct {
	ID        string
	FirstName string
	LastName  string
	LongName  string
}

// DisplayName returns LongName, falling back to "LastName, FirstName"
func (u *User) DisplayName() string {
	if u.LongName != "" {
		return u.LongName
	}
	switch {
	case u.LastName != "" && u.FirstName != "":
		return u.LastName + ", " + u.FirstName
	case u.LastName != "":
		return u.LastName
	default:
		return u.FirstName
	}
}
