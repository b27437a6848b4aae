package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/servicedesk/internal/domain"
)

// SLAPolicyRepository persists SLA policies.
type SLAPolicyRepository interface {
	Create(ctx context.Context, policy *domain.SLAPolicy) error
	Update(ctx context.Context, policy *domain.SLAPolicy) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.SLAPolicy, error)
	// List returns policies oldest first so the first match per priority is stable.
	List(ctx context.Context) ([]domain.SLAPolicy, error)
}

type slaPolicyRepository struct {
	pool *pgxpool.Pool
}

// NewSLAPolicyRepository builds repository.
func NewSLAPolicyRepository(pool *pgxpool.Pool) SLAPolicyRepository {
	return &slaPolicyRepository{pool: pool}
}

const slaPolicyColumns = `id, name, priority, response_time, resolution_time, enabled, created_at, updated_at`

func (r *slaPolicyRepository) Create(ctx context.Context, policy *domain.SLAPolicy) error {
	const query = `
        INSERT INTO sla_policies (name, priority, response_time, resolution_time, enabled)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		policy.Name,
		policy.Priority,
		policy.ResponseTime,
		policy.ResolutionTime,
		policy.Enabled,
	).Scan(&policy.ID, &policy.CreatedAt, &policy.UpdatedAt)
}

func (r *slaPolicyRepository) Update(ctx context.Context, policy *domain.SLAPolicy) error {
	const query = `
        UPDATE sla_policies SET name=$1, priority=$2, response_time=$3, resolution_time=$4, enabled=$5, updated_at=NOW()
        WHERE id=$6
        RETURNING updated_at`
	return r.pool.QueryRow(ctx, query,
		policy.Name,
		policy.Priority,
		policy.ResponseTime,
		policy.ResolutionTime,
		policy.Enabled,
		policy.ID,
	).Scan(&policy.UpdatedAt)
}

func (r *slaPolicyRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM sla_policies WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *slaPolicyRepository) GetByID(ctx context.Context, id string) (*domain.SLAPolicy, error) {
	var policy domain.SLAPolicy
	row := r.pool.QueryRow(ctx, `SELECT `+slaPolicyColumns+` FROM sla_policies WHERE id=$1`, id)
	if err := scanSLAPolicy(row, &policy); err != nil {
		return nil, err
	}
	return &policy, nil
}

func (r *slaPolicyRepository) List(ctx context.Context) ([]domain.SLAPolicy, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+slaPolicyColumns+` FROM sla_policies ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.SLAPolicy
	for rows.Next() {
		var policy domain.SLAPolicy
		if err := scanSLAPolicy(rows, &policy); err != nil {
			return nil, err
		}
		result = append(result, policy)
	}
	return result, rows.Err()
}

func scanSLAPolicy(row pgx.Row, policy *domain.SLAPolicy) error {
	return row.Scan(
		&policy.ID,
		&policy.Name,
		&policy.Priority,
		&policy.ResponseTime,
		&policy.ResolutionTime,
		&policy.Enabled,
		&policy.CreatedAt,
		&policy.UpdatedAt,
	)
}
