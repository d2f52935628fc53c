package repository

import (
	"context"
	"time"
)

// TokenMap es el último token obtenido para un par (servicio, usuario).
// Hay a lo sumo un registro por par.
type TokenMap struct {
	ID        string
	ServiceID string
	UserID    string
	Token     string
	Response  map[string]any // respuesta cruda del token endpoint, puede ser nil
	UpdatedAt time.Time
}

// TokenMapRepository persiste el token map.
type TokenMapRepository interface {
	// Get retorna el registro del par o ErrNotFound.
	Get(ctx context.Context, serviceID, userID string) (*TokenMap, error)

	// Upsert crea el registro o sobrescribe token/response del existente.
	Upsert(ctx context.Context, t *TokenMap) error

	Delete(ctx context.Context, serviceID, userID string) error

	// CountForPair se usa en verificaciones de unicidad.
	CountForPair(ctx context.Context, serviceID, userID string) (int, error)
}
