// Package repository define las interfaces de repositorio de dominio de la federación.
//
// Las implementaciones concretas viven en internal/store/pg (PostgreSQL vía pgx)
// e internal/store/memory (tests y desarrollo).
//
// Convenciones:
//   - Context siempre es el primer parámetro
//   - Lookups sin resultado retornan ErrNotFound
//   - Violaciones de unicidad retornan ErrConflict
package repository
