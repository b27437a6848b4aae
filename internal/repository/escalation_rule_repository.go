package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/servicedesk/internal/domain"
)

// EscalationRuleRepository persists escalation rules.
type EscalationRuleRepository interface {
	Create(ctx context.Context, rule *domain.EscalationRule) error
	Update(ctx context.Context, rule *domain.EscalationRule) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.EscalationRule, error)
	List(ctx context.Context) ([]domain.EscalationRule, error)
}

type escalationRuleRepository struct {
	pool *pgxpool.Pool
}

// NewEscalationRuleRepository builds repository.
func NewEscalationRuleRepository(pool *pgxpool.Pool) EscalationRuleRepository {
	return &escalationRuleRepository{pool: pool}
}

const escalationRuleColumns = `id, name, description, is_active, priority, conditions, actions, created_at, updated_at`

func (r *escalationRuleRepository) Create(ctx context.Context, rule *domain.EscalationRule) error {
	const query = `
        INSERT INTO escalation_rules (name, description, is_active, priority, conditions, actions)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		rule.Name,
		rule.Description,
		rule.IsActive,
		rule.Priority,
		rule.Conditions,
		rule.Actions,
	).Scan(&rule.ID, &rule.CreatedAt, &rule.UpdatedAt)
}

func (r *escalationRuleRepository) Update(ctx context.Context, rule *domain.EscalationRule) error {
	const query = `
        UPDATE escalation_rules SET name=$1, description=$2, is_active=$3, priority=$4,
            conditions=$5, actions=$6, updated_at=NOW()
        WHERE id=$7
        RETURNING updated_at`
	return r.pool.QueryRow(ctx, query,
		rule.Name,
		rule.Description,
		rule.IsActive,
		rule.Priority,
		rule.Conditions,
		rule.Actions,
		rule.ID,
	).Scan(&rule.UpdatedAt)
}

func (r *escalationRuleRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM escalation_rules WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *escalationRuleRepository) GetByID(ctx context.Context, id string) (*domain.EscalationRule, error) {
	var rule domain.EscalationRule
	row := r.pool.QueryRow(ctx, `SELECT `+escalationRuleColumns+` FROM escalation_rules WHERE id=$1`, id)
	if err := scanEscalationRule(row, &rule); err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *escalationRuleRepository) List(ctx context.Context) ([]domain.EscalationRule, error) {
	query := `SELECT ` + escalationRuleColumns + ` FROM escalation_rules ORDER BY priority ASC, created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.EscalationRule
	for rows.Next() {
		var rule domain.EscalationRule
		if err := scanEscalationRule(rows, &rule); err != nil {
			return nil, err
		}
		result = append(result, rule)
	}
	return result, rows.Err()
}

func scanEscalationRule(row pgx.Row, rule *domain.EscalationRule) error {
	return row.Scan(
		&rule.ID,
		&rule.Name,
		&rule.Description,
		&rule.IsActive,
		&rule.Priority,
		&rule.Conditions,
		&rule.Actions,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)
}
