package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/servicedesk/internal/domain"
)

// TicketFilter captures ticket search parameters.
type TicketFilter struct {
	CreatedBy   *string
	AssignedTo  *string
	Category    *string
	Types       []domain.TicketType
	Statuses    []domain.TicketStatus
	Priorities  []domain.Priority
	SearchTerm  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	ListOpen(ctx context.Context) ([]domain.Ticket, error)
	CountOpenByAssignee(ctx context.Context, userIDs []string) (map[string]int, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, key, title, description, type, status, priority, urgency, category,
               created_by, assigned_to, sla_deadline, resolved_at, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (key, title, description, type, status, priority, urgency, category, created_by, assigned_to, sla_deadline, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,COALESCE($12, NOW()),COALESCE($12, NOW()))
        RETURNING id, created_at, updated_at`
	var createdAt *time.Time
	if !ticket.CreatedAt.IsZero() {
		createdAt = &ticket.CreatedAt
	}
	return r.pool.QueryRow(ctx, query,
		ticket.Key,
		ticket.Title,
		ticket.Description,
		ticket.Type,
		ticket.Status,
		ticket.Priority,
		ticket.Urgency,
		ticket.Category,
		ticket.CreatedBy,
		ticket.AssignedTo,
		ticket.SLADeadline,
		createdAt,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET title=$1, description=$2, type=$3, status=$4, priority=$5, urgency=$6,
            category=$7, assigned_to=$8, sla_deadline=$9, resolved_at=$10, updated_at=NOW()
        WHERE id=$11
        RETURNING updated_at`
	err := r.pool.QueryRow(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Type,
		ticket.Status,
		ticket.Priority,
		ticket.Urgency,
		ticket.Category,
		ticket.AssignedTo,
		ticket.SLADeadline,
		ticket.ResolvedAt,
		ticket.ID,
	).Scan(&ticket.UpdatedAt)
	return err
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	var ticket domain.Ticket
	if err := scanTicket(r.pool.QueryRow(ctx, query, id), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CreatedBy != nil {
		args = append(args, *filter.CreatedBy)
		clauses = append(clauses, fmt.Sprintf("created_by=$%d", len(args)))
	}
	if filter.AssignedTo != nil {
		args = append(args, *filter.AssignedTo)
		clauses = append(clauses, fmt.Sprintf("assigned_to=$%d", len(args)))
	}
	if filter.Category != nil {
		args = append(args, *filter.Category)
		clauses = append(clauses, fmt.Sprintf("category=$%d", len(args)))
	}
	if len(filter.Types) > 0 {
		clauses = append(clauses, "type IN ("+placeholders(&args, filter.Types)+")")
	}
	if len(filter.Statuses) > 0 {
		clauses = append(clauses, "status IN ("+placeholders(&args, filter.Statuses)+")")
	}
	if len(filter.Priorities) > 0 {
		clauses = append(clauses, "priority IN ("+placeholders(&args, filter.Priorities)+")")
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(title) LIKE %s OR LOWER(description) LIKE %s)", placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		ticketColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

// ListOpen returns every ticket not in a terminal status, oldest first.
func (r *ticketRepository) ListOpen(ctx context.Context) ([]domain.Ticket, error) {
	args := []any{}
	in := placeholders(&args, []domain.TicketStatus{
		domain.TicketStatusResolved,
		domain.TicketStatusClosed,
		domain.TicketStatusRejected,
	})
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE status NOT IN (` + in + `) ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

// CountOpenByAssignee counts load-bearing tickets per user. Users with no
// such tickets are absent from the result.
func (r *ticketRepository) CountOpenByAssignee(ctx context.Context, userIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(userIDs))
	if len(userIDs) == 0 {
		return counts, nil
	}

	args := []any{}
	users := placeholders(&args, userIDs)
	statuses := placeholders(&args, domain.LoadBearingStatuses)
	query := fmt.Sprintf(`
        SELECT assigned_to, COUNT(*) FROM tickets
        WHERE assigned_to IN (%s) AND status IN (%s)
        GROUP BY assigned_to`, users, statuses)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var userID string
		var count int
		if err := rows.Scan(&userID, &count); err != nil {
			return nil, err
		}
		counts[userID] = count
	}
	return counts, rows.Err()
}

// placeholders appends values to args and returns their "$n,$m" list.
func placeholders[T any](args *[]any, values []T) string {
	out := make([]string, len(values))
	for i, v := range values {
		*args = append(*args, v)
		out[i] = fmt.Sprintf("$%d", len(*args))
	}
	return strings.Join(out, ",")
}

func scanTicket(row pgx.Row, ticket *domain.Ticket) error {
	return row.Scan(
		&ticket.ID,
		&ticket.Key,
		&ticket.Title,
		&ticket.Description,
		&ticket.Type,
		&ticket.Status,
		&ticket.Priority,
		&ticket.Urgency,
		&ticket.Category,
		&ticket.CreatedBy,
		&ticket.AssignedTo,
		&ticket.SLADeadline,
		&ticket.ResolvedAt,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	)
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
