// Package migrations embebe las migraciones SQL del store PostgreSQL.
package migrations

import "embed"

// PostgresFS contiene las migraciones, formato {version}_{name}.sql.
//
//go:embed *.sql
var PostgresFS embed.FS
