// Package domain
package domain

import (
	"context"
	"errors"
	"time"
)

var ErrUserNotFound = errors.New("user not found")

type User struct {
	ID          int64        `json:"id" yaml:"id"`
	Name        string       `json:"name" yaml:"name"`
	Email       string       `json:"email" yaml:"email"`
	Password    string       `json:"-" yaml:"-"`
	RoleID      int64        `json:"role_id" yaml:"role_id"`
	Role        *Role        `json:"role" yaml:"role,omitempty"`
	Permissions []Permission `json:"permissions" yaml:"permissions,omitempty"`
	CreatedAt   time.Time    `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at" yaml:"updated_at"`
}

type Role struct {
	ID   int64  `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

type Permission struct {
	ID   int64  `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// DisplayName falls back to the email for accounts without a name.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
}
