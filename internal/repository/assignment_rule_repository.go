package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/servicedesk/internal/domain"
)

// AssignmentRuleRepository persists auto-assignment rules. Conditions and
// targets are stored as jsonb.
type AssignmentRuleRepository interface {
	Create(ctx context.Context, rule *domain.AssignmentRule) error
	Update(ctx context.Context, rule *domain.AssignmentRule) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.AssignmentRule, error)
	List(ctx context.Context) ([]domain.AssignmentRule, error)
}

type assignmentRuleRepository struct {
	pool *pgxpool.Pool
}

// NewAssignmentRuleRepository builds repository.
func NewAssignmentRuleRepository(pool *pgxpool.Pool) AssignmentRuleRepository {
	return &assignmentRuleRepository{pool: pool}
}

const assignmentRuleColumns = `id, name, description, is_active, priority, conditions, assign_to, created_at, updated_at`

func (r *assignmentRuleRepository) Create(ctx context.Context, rule *domain.AssignmentRule) error {
	const query = `
        INSERT INTO assignment_rules (name, description, is_active, priority, conditions, assign_to)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		rule.Name,
		rule.Description,
		rule.IsActive,
		rule.Priority,
		rule.Conditions,
		rule.AssignTo,
	).Scan(&rule.ID, &rule.CreatedAt, &rule.UpdatedAt)
}

func (r *assignmentRuleRepository) Update(ctx context.Context, rule *domain.AssignmentRule) error {
	const query = `
        UPDATE assignment_rules SET name=$1, description=$2, is_active=$3, priority=$4,
            conditions=$5, assign_to=$6, updated_at=NOW()
        WHERE id=$7
        RETURNING updated_at`
	return r.pool.QueryRow(ctx, query,
		rule.Name,
		rule.Description,
		rule.IsActive,
		rule.Priority,
		rule.Conditions,
		rule.AssignTo,
		rule.ID,
	).Scan(&rule.UpdatedAt)
}

func (r *assignmentRuleRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM assignment_rules WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *assignmentRuleRepository) GetByID(ctx context.Context, id string) (*domain.AssignmentRule, error) {
	var rule domain.AssignmentRule
	row := r.pool.QueryRow(ctx, `SELECT `+assignmentRuleColumns+` FROM assignment_rules WHERE id=$1`, id)
	if err := scanAssignmentRule(row, &rule); err != nil {
		return nil, err
	}
	return &rule, nil
}

// List returns all rules, active or not, in evaluation order.
func (r *assignmentRuleRepository) List(ctx context.Context) ([]domain.AssignmentRule, error) {
	query := `SELECT ` + assignmentRuleColumns + ` FROM assignment_rules ORDER BY priority ASC, created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AssignmentRule
	for rows.Next() {
		var rule domain.AssignmentRule
		if err := scanAssignmentRule(rows, &rule); err != nil {
			return nil, err
		}
		result = append(result, rule)
	}
	return result, rows.Err()
}

func scanAssignmentRule(row pgx.Row, rule *domain.AssignmentRule) error {
	return row.Scan(
		&rule.ID,
		&rule.Name,
		&rule.Description,
		&rule.IsActive,
		&rule.Priority,
		&rule.Conditions,
		&rule.AssignTo,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)
}
