package repository

import "context"

// HerokuUserRepository mapea usuarios de Heroku (heroku_user_id) a usuarios locales.
type HerokuUserRepository interface {
	// GetOrCreateUser busca el mapeo por herokuUserID. Si no existe crea, en una
	// sola transacción, un usuario sys-admin activo con name=email y su mapeo.
	GetOrCreateUser(ctx context.Context, herokuUserID, email string) (u *User, created bool, err error)
}
