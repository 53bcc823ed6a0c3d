package models

import "encoding/json"

const (
	// RoleAdmin is the backend role allowed to manage every user.
	RoleAdmin = "admin"
	// RoleUser is the default role.
	RoleUser = "user"
)

// User models a ReviewVerso profile as returned by the backend.
type User struct {
	ID        int64  `json:"idUser"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	Bio       string `json:"bio,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// IsAdmin reports whether the user carries the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// HasAvatar returns true if the user uploaded a profile image.
func (u User) HasAvatar() bool {
	return u.AvatarURL != ""
}

// MarshalJSON implements custom JSON marshaling to include the computed hasAvatar field.
func (u User) MarshalJSON() ([]byte, error) {
	type UserAlias User // prevent recursion
	return json.Marshal(&struct {
		UserAlias
		HasAvatar bool `json:"hasAvatar"`
	}{
		UserAlias: UserAlias(u),
		HasAvatar: u.HasAvatar(),
	})
}

// UserUpdate carries the editable profile fields. Nil pointers are left unchanged.
type UserUpdate struct {
	Username *string `json:"username,omitempty"`
	Email    *string `json:"email,omitempty"`
	Password *string `json:"password,omitempty"`
	Bio      *string `json:"bio,omitempty"`
	Role     *string `json:"role,omitempty"`
}

// Registration is the sign-up payload. The avatar is optional.
type Registration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Bio      string `json:"bio,omitempty"`
}
