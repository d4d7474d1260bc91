package provider

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/rankpay/pkg/pg"
)

// DB is the subset of *pgxpool.Pool used by the repository.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores providers in the providers table.
type PostgresRepository struct {
	db DB
}

func NewPostgresRepository(db DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const getProviderQuery = `
SELECT id, name, email, validated, manual_score, auto_score
FROM providers
WHERE id = $1`

func (r *PostgresRepository) Get(ctx context.Context, id uuid.UUID) (*Provider, error) {
	var p Provider
	err := r.db.QueryRow(ctx, getProviderQuery, id).Scan(
		&p.ID, &p.Name, &p.Email, &p.Validated, &p.ManualScore, &p.AutoScore,
	)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, errors.Join(ErrPersistence, err)
	}
	return &p, nil
}

func (r *PostgresRepository) MarkValidated(ctx context.Context, id uuid.UUID) error {
	return r.exec(ctx, `UPDATE providers SET validated = TRUE, updated_at = now() WHERE id = $1`, id)
}

func (r *PostgresRepository) SetAutoScore(ctx context.Context, id uuid.UUID, score int64) error {
	return r.exec(ctx, `UPDATE providers SET auto_score = $2, updated_at = now() WHERE id = $1`, id, score)
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) error {
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return errors.Join(ErrPersistence, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
