package repository

import (
	"context"
	"time"
)

// User es el usuario local ("shadow user" para identidades federadas).
type User struct {
	ID            string
	Username      string
	Email         string // único; para federación es el email desambiguado
	Name          string
	FirstName     string
	LastName      string
	IsActive      bool
	IsSysAdmin    bool
	OAuthProvider string
	ConfirmCode   *string
	LastLoginDate *time.Time
	CreatedAt     time.Time
}

// UserRepository gestiona usuarios locales.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)

	// Create inserta el usuario y completa ID/CreatedAt.
	// Retorna ErrConflict si el email ya existe.
	Create(ctx context.Context, u *User) error

	// RecordLogin setea last_login_date y limpia confirm_code.
	RecordLogin(ctx context.Context, userID string, at time.Time) error

	Delete(ctx context.Context, id string) error
}
