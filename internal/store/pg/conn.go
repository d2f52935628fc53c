// Package pg implementa los repositorios de federación sobre PostgreSQL.
// Usa pgxpool directamente.
package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/federation/internal/domain/repository"
	"github.com/dropDatabas3/federation/internal/security/secretbox"
)

// Config del pool.
type Config struct {
	DSN      string
	MaxConns int
	MinConns int
}

// Conn es una conexión activa a PostgreSQL.
type Conn struct {
	pool *pgxpool.Pool
	box  *secretbox.Box
}

// Connect abre el pool y verifica conectividad.
// box cifra client_secret en reposo; es obligatorio.
func Connect(ctx context.Context, cfg Config, box *secretbox.Box) (*Conn, error) {
	if box == nil {
		return nil, fmt.Errorf("pg: %w", secretbox.ErrNoKey)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pg: parse DSN: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	} else {
		poolCfg.MaxConns = 10
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = int32(cfg.MinConns)
	} else {
		poolCfg.MinConns = 2
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("pg: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping failed: %w", err)
	}
	return &Conn{pool: pool, box: box}, nil
}

func (c *Conn) Ping(ctx context.Context) error { return c.pool.Ping(ctx) }

func (c *Conn) Close() error {
	c.pool.Close()
	return nil
}

// ─── Repositorios ───

func (c *Conn) Services() repository.ServiceRepository  { return &serviceRepo{pool: c.pool, box: c.box} }
func (c *Conn) Users() repository.UserRepository        { return &userRepo{pool: c.pool} }
func (c *Conn) Roles() repository.RoleRepository        { return &roleRepo{pool: c.pool} }
func (c *Conn) Tokens() repository.TokenMapRepository   { return &tokenRepo{pool: c.pool} }
func (c *Conn) Heroku() repository.HerokuUserRepository { return &herokuRepo{pool: c.pool} }

// MigrationExecutor adapta el pool al Executor del migrator.
func (c *Conn) MigrationExecutor() *PoolExecutor { return &PoolExecutor{pool: c.pool} }

// PoolExecutor adapta pgxpool.Pool a store.Executor.
type PoolExecutor struct {
	pool *pgxpool.Pool
}

func (w *PoolExecutor) Exec(ctx context.Context, sql string, args ...any) (interface{ RowsAffected() int64 }, error) {
	return w.pool.Exec(ctx, sql, args...)
}

func (w *PoolExecutor) QueryRow(ctx context.Context, sql string, args ...any) interface{ Scan(dest ...any) error } {
	return w.pool.QueryRow(ctx, sql, args...)
}

// mapErr traduce errores de pgx a errores de dominio.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", repository.ErrConflict, pgErr.ConstraintName)
	}
	return err
}

// nullIfEmpty para columnas opcionales.
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefStr(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// Stat expone estadísticas del pool (métricas).
func (c *Conn) Stat() *pgxpool.Stat { return c.pool.Stat() }
