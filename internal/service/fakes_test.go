package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/repository"
)

type memTickets struct {
	mu    sync.Mutex
	items map[string]domain.Ticket
	order []string
}

func newMemTickets() *memTickets {
	return &memTickets{items: map[string]domain.Ticket{}}
}

func (m *memTickets) Create(_ context.Context, t *domain.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = uuid.NewString()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	t.UpdatedAt = t.CreatedAt
	m.items[t.ID] = *t
	m.order = append(m.order, t.ID)
	return nil
}

func (m *memTickets) put(t domain.Ticket) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[t.ID]; !ok {
		m.order = append(m.order, t.ID)
	}
	m.items[t.ID] = t
}

func (m *memTickets) Update(_ context.Context, t *domain.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[t.ID]; !ok {
		return pgx.ErrNoRows
	}
	t.UpdatedAt = time.Now()
	m.items[t.ID] = *t
	return nil
}

func (m *memTickets) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &t, nil
}

func (m *memTickets) ListWithFilter(_ context.Context, f repository.TicketFilter) ([]domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Ticket
	for _, id := range m.order {
		t := m.items[id]
		if f.CreatedBy != nil && t.CreatedBy != *f.CreatedBy {
			continue
		}
		if f.AssignedTo != nil && (t.AssignedTo == nil || *t.AssignedTo != *f.AssignedTo) {
			continue
		}
		if len(f.Statuses) > 0 && !containsStatus(f.Statuses, t.Status) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (m *memTickets) ListOpen(_ context.Context) ([]domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Ticket
	for _, id := range m.order {
		if t := m.items[id]; !t.Status.IsTerminal() {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memTickets) CountOpenByAssignee(_ context.Context, userIDs []string) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[string]int{}
	for _, t := range m.items {
		if t.AssignedTo == nil || !t.Status.IsLoadBearing() {
			continue
		}
		for _, id := range userIDs {
			if id == *t.AssignedTo {
				counts[id]++
			}
		}
	}
	return counts, nil
}

func containsStatus(list []domain.TicketStatus, s domain.TicketStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

type memUsers struct {
	mu    sync.Mutex
	items map[string]domain.User
}

func newMemUsers(users ...domain.User) *memUsers {
	m := &memUsers{items: map[string]domain.User{}}
	for _, u := range users {
		m.items[u.ID] = u
	}
	return m
}

func (m *memUsers) Create(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.ID = uuid.NewString()
	u.CreatedAt = time.Now()
	m.items[u.ID] = *u
	return nil
}

func (m *memUsers) Update(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[u.ID]; !ok {
		return pgx.ErrNoRows
	}
	m.items[u.ID] = *u
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &u, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.items {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memUsers) List(_ context.Context) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.User, 0, len(m.items))
	for _, u := range m.items {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memTeams struct {
	mu      sync.Mutex
	teams   map[string]domain.Team
	members []domain.TeamMember
}

func newMemTeams() *memTeams {
	return &memTeams{teams: map[string]domain.Team{}}
}

func (m *memTeams) Create(_ context.Context, t *domain.Team) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	m.teams[t.ID] = *t
	return nil
}

func (m *memTeams) Update(_ context.Context, t *domain.Team) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.teams[t.ID]; !ok {
		return pgx.ErrNoRows
	}
	m.teams[t.ID] = *t
	return nil
}

func (m *memTeams) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.teams[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(m.teams, id)
	kept := m.members[:0]
	for _, mem := range m.members {
		if mem.TeamID != id {
			kept = append(kept, mem)
		}
	}
	m.members = kept
	return nil
}

func (m *memTeams) GetByID(_ context.Context, id string) (*domain.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.teams[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &t, nil
}

func (m *memTeams) List(_ context.Context) ([]domain.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Team, 0, len(m.teams))
	for _, t := range m.teams {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memTeams) AddMember(_ context.Context, member *domain.TeamMember) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	member.JoinedAt = time.Now()
	m.members = append(m.members, *member)
	return nil
}

func (m *memTeams) RemoveMember(_ context.Context, teamID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, mem := range m.members {
		if mem.TeamID == teamID && mem.UserID == userID {
			m.members = append(m.members[:i], m.members[i+1:]...)
			return nil
		}
	}
	return pgx.ErrNoRows
}

// ListMembers keeps insertion order, which is join order.
func (m *memTeams) ListMembers(_ context.Context, teamID string) ([]domain.TeamMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.TeamMember
	for _, mem := range m.members {
		if teamID == "" || mem.TeamID == teamID {
			out = append(out, mem)
		}
	}
	return out, nil
}

type memAssignmentRules struct {
	mu    sync.Mutex
	items []domain.AssignmentRule
}

func (m *memAssignmentRules) Create(_ context.Context, r *domain.AssignmentRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.CreatedAt = time.Now()
	m.items = append(m.items, *r)
	return nil
}

func (m *memAssignmentRules) Update(_ context.Context, r *domain.AssignmentRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == r.ID {
			m.items[i] = *r
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (m *memAssignmentRules) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == id {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (m *memAssignmentRules) GetByID(_ context.Context, id string) (*domain.AssignmentRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.items {
		if r.ID == id {
			r := r
			return &r, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memAssignmentRules) List(_ context.Context) ([]domain.AssignmentRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.AssignmentRule(nil), m.items...), nil
}

type memEscalationRules struct {
	mu    sync.Mutex
	items []domain.EscalationRule
}

func (m *memEscalationRules) Create(_ context.Context, r *domain.EscalationRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.CreatedAt = time.Now()
	m.items = append(m.items, *r)
	return nil
}

func (m *memEscalationRules) Update(_ context.Context, r *domain.EscalationRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == r.ID {
			m.items[i] = *r
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (m *memEscalationRules) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == id {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (m *memEscalationRules) GetByID(_ context.Context, id string) (*domain.EscalationRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.items {
		if r.ID == id {
			r := r
			return &r, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memEscalationRules) List(_ context.Context) ([]domain.EscalationRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.EscalationRule(nil), m.items...), nil
}

type memPolicies struct {
	mu    sync.Mutex
	items []domain.SLAPolicy
}

func (m *memPolicies) Create(_ context.Context, p *domain.SLAPolicy) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	m.items = append(m.items, *p)
	return nil
}

func (m *memPolicies) Update(_ context.Context, p *domain.SLAPolicy) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == p.ID {
			m.items[i] = *p
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (m *memPolicies) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == id {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (m *memPolicies) GetByID(_ context.Context, id string) (*domain.SLAPolicy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.items {
		if p.ID == id {
			p := p
			return &p, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memPolicies) List(_ context.Context) ([]domain.SLAPolicy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.SLAPolicy(nil), m.items...), nil
}

type memEscalationLog struct {
	mu      sync.Mutex
	applied map[string]map[string]bool
}

func newMemEscalationLog() *memEscalationLog {
	return &memEscalationLog{applied: map[string]map[string]bool{}}
}

func (m *memEscalationLog) Record(_ context.Context, ticketID, ruleID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.applied[ticketID] == nil {
		m.applied[ticketID] = map[string]bool{}
	}
	m.applied[ticketID][ruleID] = true
	return nil
}

func (m *memEscalationLog) Applied(_ context.Context, ticketIDs []string) (map[string]map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]map[string]bool{}
	for _, id := range ticketIDs {
		if rules, ok := m.applied[id]; ok {
			out[id] = map[string]bool{}
			for r := range rules {
				out[id][r] = true
			}
		}
	}
	return out, nil
}

type memComments struct {
	mu    sync.Mutex
	items []domain.TicketComment
}

func (m *memComments) Create(_ context.Context, c *domain.TicketComment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = uuid.NewString()
	c.CreatedAt = time.Now()
	m.items = append(m.items, *c)
	return nil
}

func (m *memComments) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketComment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.TicketComment
	for _, c := range m.items {
		if c.TicketID == ticketID {
			out = append(out, c)
		}
	}
	return out, nil
}

type memHistory struct {
	mu    sync.Mutex
	items []domain.TicketHistory
}

func (m *memHistory) Create(_ context.Context, h *domain.TicketHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h.ID = uuid.NewString()
	h.CreatedAt = time.Now()
	m.items = append(m.items, *h)
	return nil
}

func (m *memHistory) CreateBatch(ctx context.Context, entries []*domain.TicketHistory) error {
	for _, e := range entries {
		if err := m.Create(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (m *memHistory) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.TicketHistory
	for _, h := range m.items {
		if h.TicketID == ticketID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (m *memHistory) changeTypes(ticketID string) []domain.TicketChangeType {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.TicketChangeType
	for _, h := range m.items {
		if h.TicketID == ticketID {
			out = append(out, h.ChangeType)
		}
	}
	return out
}

type memNotifications struct {
	mu    sync.Mutex
	items []domain.Notification
}

func (m *memNotifications) Create(_ context.Context, n *domain.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n.ID = uuid.NewString()
	n.CreatedAt = time.Now()
	m.items = append(m.items, *n)
	return nil
}

func (m *memNotifications) ListByUser(_ context.Context, userID string, unreadOnly bool, _ int) ([]domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Notification
	for _, n := range m.items {
		if n.UserID == userID && (!unreadOnly || !n.Read) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *memNotifications) MarkRead(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == id && m.items[i].UserID == userID {
			m.items[i].Read = true
			return nil
		}
	}
	return pgx.ErrNoRows
}

type recordingLocker struct {
	mu     sync.Mutex
	locked []string
	err    error
}

func (l *recordingLocker) Lock(_ context.Context, teamID string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	l.locked = append(l.locked, teamID)
	return func() {}, nil
}
