package reference

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pokebim/pricewatch/models"
	"github.com/rotisserie/eris"
)

const schema = `CREATE TABLE IF NOT EXISTS reference_prices (
	name       TEXT PRIMARY KEY,
	price      DOUBLE PRECISION NOT NULL CHECK (price > 0),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const upsertSQL = `INSERT INTO reference_prices (name, price, updated_at)
VALUES ($1, $2, $3)
ON CONFLICT (name) DO UPDATE SET price = EXCLUDED.price, updated_at = EXCLUDED.updated_at`

// PostgresStore keeps the table in PostgreSQL so it survives restarts and
// is shared by every instance.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to databaseURL and creates the table if needed.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "failed to parse database url")
	}
	poolConfig.MaxConns = 4
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, eris.Wrap(err, "failed to create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "failed to ping database")
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "failed to create reference_prices table")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, name string, price float64, at time.Time) error {
	if err := validEntry(name, price); err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, upsertSQL, name, price, at); err != nil {
		return eris.Wrapf(err, "failed to upsert reference price %q", name)
	}
	return nil
}

func (s *PostgresStore) Replace(ctx context.Context, prices map[string]float64, at time.Time) error {
	for name, price := range prices {
		if err := validEntry(name, price); err != nil {
			return err
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM reference_prices`); err != nil {
		return eris.Wrap(err, "failed to clear reference prices")
	}

	batch := &pgx.Batch{}
	for name, price := range prices {
		batch.Queue(upsertSQL, name, price, at)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return eris.Wrap(err, "failed to insert reference prices")
	}
	if err := tx.Commit(ctx); err != nil {
		return eris.Wrap(err, "failed to commit reference prices")
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, name string) (*models.ReferencePrice, error) {
	var e models.ReferencePrice
	err := s.pool.QueryRow(ctx,
		`SELECT name, price, updated_at FROM reference_prices WHERE name = $1`, name,
	).Scan(&e.Name, &e.Price, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound(name)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "failed to read reference price %q", name)
	}
	return &e, nil
}

func (s *PostgresStore) List(ctx context.Context) (Table, error) {
	rows, err := s.pool.Query(ctx, `SELECT name, price, updated_at FROM reference_prices ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "failed to list reference prices")
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.ReferencePrice, error) {
		var e models.ReferencePrice
		err := row.Scan(&e.Name, &e.Price, &e.UpdatedAt)
		return e, err
	})
	if err != nil {
		return nil, eris.Wrap(err, "failed to scan reference prices")
	}
	return Table(out), nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
