package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EscalationLogRepository remembers which (ticket, rule) pairs already fired.
type EscalationLogRepository interface {
	// Record marks the pair as applied. Recording twice is a no-op.
	Record(ctx context.Context, ticketID, ruleID string) error
	// Applied returns the rule IDs already applied to each ticket.
	Applied(ctx context.Context, ticketIDs []string) (map[string]map[string]bool, error)
}

type escalationLogRepository struct {
	pool *pgxpool.Pool
}

// NewEscalationLogRepository builds repository.
func NewEscalationLogRepository(pool *pgxpool.Pool) EscalationLogRepository {
	return &escalationLogRepository{pool: pool}
}

func (r *escalationLogRepository) Record(ctx context.Context, ticketID, ruleID string) error {
	const query = `
        INSERT INTO escalation_log (ticket_id, rule_id)
        VALUES ($1,$2)
        ON CONFLICT (ticket_id, rule_id) DO NOTHING`
	_, err := r.pool.Exec(ctx, query, ticketID, ruleID)
	return err
}

func (r *escalationLogRepository) Applied(ctx context.Context, ticketIDs []string) (map[string]map[string]bool, error) {
	result := make(map[string]map[string]bool)
	if len(ticketIDs) == 0 {
		return result, nil
	}

	args := []any{}
	query := `SELECT ticket_id, rule_id FROM escalation_log WHERE ticket_id IN (` + placeholders(&args, ticketIDs) + `)`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var ticketID, ruleID string
		if err := rows.Scan(&ticketID, &ruleID); err != nil {
			return nil, err
		}
		if result[ticketID] == nil {
			result[ticketID] = make(map[string]bool)
		}
		result[ticketID][ruleID] = true
	}
	return result, rows.Err()
}
