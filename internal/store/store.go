// Package store abre el backend de persistencia de la federación (postgres o memory)
// y expone sus repositorios como un agregado.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/federation/internal/domain/repository"
	"github.com/dropDatabas3/federation/internal/security/secretbox"
	"github.com/dropDatabas3/federation/internal/store/memory"
	"github.com/dropDatabas3/federation/internal/store/pg"
	migrations "github.com/dropDatabas3/federation/migrations/postgres"
)

// Backend es lo que cada driver debe implementar.
type Backend interface {
	Services() repository.ServiceRepository
	Users() repository.UserRepository
	Roles() repository.RoleRepository
	Tokens() repository.TokenMapRepository
	Heroku() repository.HerokuUserRepository
	Ping(ctx context.Context) error
	Close() error
}

// Config de persistencia.
type Config struct {
	Driver   string // postgres | memory
	DSN      string
	MaxConns int
	MinConns int
}

// Store agrega los repositorios del backend activo.
type Store struct {
	Backend
	driver string
	pg     *pg.Conn
}

// Driver retorna el driver activo.
func (s *Store) Driver() string { return s.driver }

// Open conecta al backend configurado. box solo se usa con postgres.
func Open(ctx context.Context, cfg Config, box *secretbox.Box) (*Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "", "memory":
		return &Store{Backend: memory.New(), driver: "memory"}, nil
	case "postgres", "postgresql", "pg":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("store: %w: dsn vacío", repository.ErrNoDatabase)
		}
		conn, err := pg.Connect(ctx, pg.Config{DSN: cfg.DSN, MaxConns: cfg.MaxConns, MinConns: cfg.MinConns}, box)
		if err != nil {
			return nil, err
		}
		return &Store{Backend: conn, driver: "postgres", pg: conn}, nil
	default:
		return nil, fmt.Errorf("store: driver desconocido %q", cfg.Driver)
	}
}

// NewMemory envuelve un store en memoria (tests).
func NewMemory() *Store {
	return &Store{Backend: memory.New(), driver: "memory"}
}

// Migrate aplica las migraciones embebidas. En memory es no-op.
func (s *Store) Migrate(ctx context.Context) (*MigrationResult, error) {
	if s.pg == nil {
		return &MigrationResult{}, nil
	}
	return NewMigrator(migrations.PostgresFS, ".").Run(ctx, s.pg.MigrationExecutor())
}

// PoolStat devuelve estadísticas del pool postgres, nil en memory.
func (s *Store) PoolStat() *pgxpool.Stat {
	if s.pg == nil {
		return nil
	}
	return s.pg.Stat()
}
