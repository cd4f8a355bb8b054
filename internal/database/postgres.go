package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE EXTENSION IF NOT EXISTS postgis;

CREATE TABLE IF NOT EXISTS releve (
    id         BIGSERIAL PRIMARY KEY,
    id_dataset BIGINT NOT NULL DEFAULT 0,
    cd_nom     BIGINT NOT NULL,
    nom_cite   TEXT   NOT NULL DEFAULT '',
    date_min   DATE   NOT NULL,
    date_max   DATE   NOT NULL,
    observers  TEXT[] NOT NULL DEFAULT '{}',
    comment    TEXT   NOT NULL DEFAULT '',
    geom       geometry(Geometry, 4326) NOT NULL
);

CREATE INDEX IF NOT EXISTS releve_geom_idx ON releve USING gist (geom);
CREATE INDEX IF NOT EXISTS releve_date_min_idx ON releve (date_min DESC);
`

// Connect opens a pgx pool and verifies the connection.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

// RunMigrations applies the schema. Idempotent.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
