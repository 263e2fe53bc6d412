package models

import "strings"

// User is the authenticated blog user. Roles is owned by the user; Role
// rows themselves are a shared lookup table.
type User struct {
	ID    string
	Name  string
	Slug  string
	Email string

	ProfileImage *string
	Bio          *string

	Roles []Role
}

// Role is a permission group assigned to users.
type Role struct {
	ID          int
	UUID        string
	Name        string
	Description string
}

// RestrictedEditing reports whether the user may only see and edit their
// own posts. Authors and contributors can only touch their own content;
// every other role can touch everybody's. A user is restricted only when
// ALL of their roles are author or contributor (case-insensitive).
//
// A user with zero roles reports true: the check holds vacuously, which is
// the safer default until the server assigns roles.
func (u *User) RestrictedEditing() bool {
	restricted := true
	for _, role := range u.Roles {
		name := strings.ToLower(role.Name)
		if name != "author" && name != "contributor" {
			restricted = false
		}
	}
	return restricted
}
