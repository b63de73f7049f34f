package mdm

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// rowQuerier is the subset of *pgxpool.Pool used by PostgresRegistry.
type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresTable names the table and columns holding content records.
type PostgresTable struct {
	Name       string
	IDColumn   string
	KindColumn string
}

// DefaultPostgresTable mirrors the host's posts table.
func DefaultPostgresTable() PostgresTable {
	return PostgresTable{Name: "wp_posts", IDColumn: "id", KindColumn: "post_type"}
}

// PostgresRegistry resolves records from a PostgreSQL table.
type PostgresRegistry struct {
	db    rowQuerier
	query string
}

// NewPostgresRegistry creates a registry reading from table through db
// (typically a *pgxpool.Pool).
func NewPostgresRegistry(db rowQuerier, table PostgresTable) *PostgresRegistry {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1",
		pgx.Identifier{table.KindColumn}.Sanitize(),
		pgx.Identifier{table.Name}.Sanitize(),
		pgx.Identifier{table.IDColumn}.Sanitize(),
	)
	return &PostgresRegistry{db: db, query: query}
}

// Lookup implements Registry.
func (r *PostgresRegistry) Lookup(ctx context.Context, id int64) (Entry, error) {
	var kind string
	if err := r.db.QueryRow(ctx, r.query, id).Scan(&kind); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, fmt.Errorf("lookup media %d: %w", id, err)
	}
	return Entry{ID: id, Kind: kind}, nil
}
