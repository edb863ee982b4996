package user

import (
	"strings"
	"time"
)

// Authority strings attached to accounts. Services authenticate against the
// user store like any other principal, with ROLE_SERVICE instead of
// ROLE_USER.
const (
	RoleUser    = "ROLE_USER"
	RoleAdmin   = "ROLE_ADMIN"
	RoleService = "ROLE_SERVICE"
)

// User is the registration record owned by the user service. Immutable after
// creation; the authority tag is assigned at creation time.
type User struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	Contact         string    `json:"contact"`
	Password        string    `json:"-"`
	Address         string    `json:"address,omitempty"`
	DOB             string    `json:"dob,omitempty"`
	IdentifierType  string    `json:"identifierType"`
	IdentifierValue string    `json:"identifierValue"`
	Authorities     string    `json:"authorities"`
	CreatedAt       time.Time `json:"createdAt"`
}

// AuthorityList splits the stored comma-separated authorities.
func (u *User) AuthorityList() []string {
	if u.Authorities == "" {
		return nil
	}
	parts := strings.Split(u.Authorities, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// HasAnyAuthority reports whether the user holds at least one of the given
// authorities.
func (u *User) HasAnyAuthority(required ...string) bool {
	for _, have := range u.AuthorityList() {
		for _, want := range required {
			if have == want {
				return true
			}
		}
	}
	return false
}
