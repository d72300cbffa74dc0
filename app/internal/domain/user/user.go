package user

import (
	"regexp"
	"strings"
)

type User struct {
	ID                 string
	UserName           string
	NormalizedUserName string
	Email              string
	NormalizedEmail    string
	PasswordHash       string
	SecurityStamp      string
}

type ListUsersFilter struct {
	// RoleID restricts the result to members of the role.
	RoleID *string
}

var userNameRegexp = regexp.MustCompile(`^[A-Za-z0-9\-._@+]+$`)

// Normalize returns the lookup key used for user names, emails and role names.
func Normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func ValidUserName(name string) bool {
	return userNameRegexp.MatchString(name)
}
