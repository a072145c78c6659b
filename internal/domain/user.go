package domain

import (
	"fmt"
	"strings"
)

type User struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Role      Role     `json:"role"`
	Email     string   `json:"email"`
	Height    *float64 `json:"height,omitempty"`
	Birthdate *string  `json:"birthdate,omitempty"`
	Goal      *string  `json:"goal,omitempty"`
	UpdatedAt string   `json:"updated_at"`
}

func (u *User) EntityID() string { return u.ID }
func (u *User) EntityTable() Table { return TableUsers }
func (u *User) Stamp() string { return u.UpdatedAt }
func (u *User) Touch(ts string) { u.UpdatedAt = ts }
func (u *User) EntityRole() Role { return u.Role }
func (u *User) IsTrainer() bool { return u.Role == RoleTrainer }

// Normalize trims the name and lowercases the email.
func (u *User) Normalize() {
	u.Name = strings.TrimSpace(u.Name)
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
}

// Validate checks the fields required before a user can be stored.
func (u *User) Validate() error {
	if u.Name == "" {
		return fmt.Errorf("user name is required")
	}
	if u.Email == "" || !strings.Contains(u.Email, "@") {
		return fmt.Errorf("user email %q is invalid", u.Email)
	}
	if !ValidRoles[u.Role] {
		return fmt.Errorf("user role %q is invalid", u.Role)
	}
	return nil
}
