package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/repository"
	apperrors "github.com/spec-kit/servicedesk/pkg/util/errorutil"
)

// RuleService administers assignment rules, escalation rules, SLA policies
// and teams. Every operation requires an admin session.
type RuleService struct {
	assignmentRules repository.AssignmentRuleRepository
	escalationRules repository.EscalationRuleRepository
	policies        repository.SLAPolicyRepository
	teams           repository.TeamRepository
	users           repository.UserRepository
	logger          *zap.Logger
}

// RuleDependencies bundles repositories for the rule service.
type RuleDependencies struct {
	AssignmentRuleRepo repository.AssignmentRuleRepository
	EscalationRuleRepo repository.EscalationRuleRepository
	SLAPolicyRepo      repository.SLAPolicyRepository
	TeamRepo           repository.TeamRepository
	UserRepo           repository.UserRepository
	Logger             *zap.Logger
}

// AssignmentRuleInput describes an assignment rule write.
type AssignmentRuleInput struct {
	Name        string `validate:"required,max=200"`
	Description string `validate:"max=2000"`
	IsActive    *bool
	Priority    int `validate:"gte=0"`
	Conditions  domain.AssignmentConditions
	AssignTo    domain.AssignTarget
}

// EscalationRuleInput describes an escalation rule write.
type EscalationRuleInput struct {
	Name        string `validate:"required,max=200"`
	Description string `validate:"max=2000"`
	IsActive    *bool
	Priority    int `validate:"gte=0"`
	Conditions  domain.EscalationConditions
	Actions     domain.EscalationActions
}

// SLAPolicyInput describes an SLA policy write. Times are minutes.
type SLAPolicyInput struct {
	Name           string          `validate:"required,max=200"`
	Priority       domain.Priority `validate:"required,oneof=low medium high critical"`
	ResponseTime   int             `validate:"gte=0"`
	ResolutionTime int             `validate:"gte=0"`
	Enabled        *bool
}

// TeamInput describes a team write.
type TeamInput struct {
	Name        string `validate:"required,max=200"`
	Description string `validate:"max=2000"`
	LeaderID    *string
}

// NewRuleService constructs the service.
func NewRuleService(deps RuleDependencies) *RuleService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RuleService{
		assignmentRules: deps.AssignmentRuleRepo,
		escalationRules: deps.EscalationRuleRepo,
		policies:        deps.SLAPolicyRepo,
		teams:           deps.TeamRepo,
		users:           deps.UserRepo,
		logger:          logger,
	}
}

// CreateAssignmentRule stores a new rule. Rules are active unless stated.
func (s *RuleService) CreateAssignmentRule(ctx context.Context, session domain.SessionContext, input AssignmentRuleInput) (*domain.AssignmentRule, error) {
	if err := requireAdmin(session); err != nil {
		return nil, err
	}
	rule := &domain.AssignmentRule{IsActive: true}
	if err := s.applyAssignmentInput(ctx, rule, input); err != nil {
		return nil, err
	}
	if err := s.assignmentRules.Create(ctx, rule); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("assignment rule created", zap.String("rule_id", rule.ID), zap.String("actor_id", session.UserID))
	return rule, nil
}

// UpdateAssignmentRule replaces a rule's definition.
func (s *RuleService) UpdateAssignmentRule(ctx context.Context, session domain.SessionContext, id string, input AssignmentRuleInput) (*domain.AssignmentRule, error) {
	if err := requireAdmin(session); err != nil {
		return nil, err
	}
	rule, err := s.assignmentRules.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "assignment rule", id)
	}
	if err := s.applyAssignmentInput(ctx, rule, input); err != nil {
		return nil, err
	}
	if err := s.assignmentRules.Update(ctx, rule); err != nil {
		return nil, notFoundOr(err, "assignment rule", id)
	}
	return rule, nil
}

// GetAssignmentRule loads one rule.
func (s *RuleService) GetAssignmentRule(ctx context.Context, session domain.SessionContext, id string) (*domain.AssignmentRule, error) {
	if err := requireAdmin(session); err != nil {
		return nil, err
	}
	rule, err := s.assignmentRules.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "assignment rule", id)
	}
	return rule, nil
}

// ListAssignmentRules returns every rule in evaluation order.
func (s *RuleService) ListAssignmentRules(ctx context.Context, session domain.SessionContext) ([]domain.AssignmentRule, error) {
	if err := requireAdmin(session); err != nil {
		return nil, err
	}
	list, err := s.assignmentRules.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if list == nil {
		list = []domain.AssignmentRule{}
	}
	return list, nil
}

// ToggleAssignmentRule flips a rule's active flag.
func (s *RuleService) ToggleAssignmentRule(ctx context.Context, session domain.SessionContext, id string) (*domain.AssignmentRule, error) {
	if err := requireAdmin(session); err != nil {
		return nil, err
	}
	rule, err := s.assignmentRules.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "assignment rule", id)
	}
	rule.IsActive = !rule.IsActive
	if err := s.assignmentRules.Update(ctx, rule); err != nil {
		return nil, notFoundOr(err, "assignment rule", id)
	}
	return rule, nil
}

// DeleteAssignmentRule removes a rule.
func (s *RuleService) DeleteAssignmentRule(ctx context.Context, session domain.SessionContext, id string) error {
	if err := requireAdmin(session); err != nil {
		return err
	}
	if err := s.assignmentRules.Delete(ctx, id); err != nil {
		return notFoundOr(err, "assignment rule", id)
	}
	return nil
}

func (s *RuleService) applyAssignmentInput(ctx context.Context, rule *domain.AssignmentRule, input AssignmentRuleInput) error {
	input.Name = strings.TrimSpace(input.Name)
	if err := validateInput(input); err != nil {
		return err
	}
	details := map[string]any{}
	validateAssignmentConditions(input.Conditions, details)
	if err := s.validateTarget(ctx, "assign_to", input.AssignTo, details); err != nil {
		return err
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid assignment rule", details)
	}

	rule.Name = input.Name
	rule.Description = strings.TrimSpace(input.Description)
	rule.Priority = input.Priority
	rule.Conditions = input.Conditions
	rule.AssignTo = input.AssignTo
	if input.IsActive != nil {
		rule.IsActive = *input.IsActive
	}
	return nil
}

func validateAssignmentConditions(cond domain.AssignmentConditions, details map[string]any) {
	for _, p := range cond.Priorities {
		if !p.Valid() {
			details["conditions.priorities"] = "unknown priority " + string(p)
		}
	}
	for _, t := range cond.Types {
		if !t.Valid() {
			details["conditions.types"] = "unknown type " + string(t)
		}
	}
}

// validateTarget checks the target shape and that referenced users and teams
// exist at write time. Later deletions are tolerated by the resolver.
func (s *RuleService) validateTarget(ctx context.Context, field string, target domain.AssignTarget, details map[string]any) error {
	switch target.Type {
	case domain.TargetAgent:
		if target.AgentID == "" {
			details[field+".agent_id"] = "required"
			return nil
		}
		user, err := s.users.GetByID(ctx, target.AgentID)
		if err != nil {
			if apperrors.IsNotFound(err) {
				details[field+".agent_id"] = "unknown user"
				return nil
			}
			return apperrors.MapError(err)
		}
		if user.Role == domain.RoleUser {
			details[field+".agent_id"] = "must be an agent or admin"
		}
	case domain.TargetTeam, domain.TargetRoundRobin:
		if target.TeamID == "" {
			details[field+".team_id"] = "required"
			return nil
		}
		if _, err := s.teams.GetByID(ctx, target.TeamID); err != nil {
			if apperrors.IsNotFound(err) {
				details[field+".team_id"] = "unknown team"
				return nil
			}
			return apperrors.MapError(err)
		}
	default:
		details[field+".type"] = "oneof agent team round_robin"
	}
	return nil
}

// CreateEscalationRule stores a new escalation rule.
func (s *RuleService) CreateEscalationRule(ctx context.Context, session domain.SessionContext, input EscalationRuleInput) (*domain.EscalationRule, error) {
	if err := requireAdmin(session); err != nil {
		return nil, err
	}
	rule := &domain.EscalationRule{IsActive: true}
	if err := s.applyEscalationInput(ctx, rule, input); err != nil {
		return nil, err
	}
	if err := s.escalationRules.Create(ctx, rule); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("escalation rule created", zap.String("rule_id", rule.ID), zap.String("actor_id", session.UserID))
	return rule, nil
}

// UpdateEscalationRule replaces an escalation rule's definition.
func (s *RuleService) UpdateEscalationRule(ctx context.Context, session domain.SessionContext, id string, input EscalationRuleInput) (*domain.EscalationRule, error) {
	if err := requireAdmin(session); err != nil {
		return nil, err
	}
	rule, err := s.escalationRules.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "escalation rule", id)
	}
	if err := s.applyEscalationInput(ctx, rule, input); err != nil {
		return nil, err
	}
	if err := s.escalationRules.Update(ctx, rule); err != nil {
		return nil, notFoundOr(err, "escalation rule", id)
	}
	return rule, nil
}

// GetEscalationRule loads one escalation rule.
func (s *RuleService) GetEscalationRule(ctx context.Context, session domain.SessionContext, id string) (*domain.EscalationRule, error) {
	if err := requireAdmin(session); err != nil {
		return nil, err
	}
	rule, err := s.escalationRules.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "escalation rule", id)
	}
	return rule, nil
}

// ListEscalationRules returns every escalation rule in evaluation order.
func (s *RuleService) ListEscalationRules(ctx context.Context, session domain.SessionContext) ([]domain.EscalationRule, error) {
	if err := requireAdmin(session); err != nil {
		return nil, err
	}
	list, err := s.escalationRules.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if list == nil {
		list = []domain.EscalationRule{}
	}
	return list, nil
}

// ToggleEscalationRule flips an escalation rule's active flag.
func (s *RuleService) ToggleEscalationRule(ctx context.Context, session domain.SessionContext, id string) (*domain.EscalationRule, error) {
	if err := requireAdmin(session); err != nil {
		return nil, err
	}
	rule, err := s.escalationRules.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "escalation rule", id)
	}
	rule.IsActive = !rule.IsActive
	if err := s.escalationRules.Update(ctx, rule); err != nil {
		return nil, notFoundOr(err, "escalation rule", id)
	}
	return rule, nil
}

// DeleteEscalationRule removes an escalation rule.
func (s *RuleService) DeleteEscalationRule(ctx context.Context, session domain.SessionContext, id string) error {
	if err := requireAdmin(session); err != nil {
		return err
	}
	if err := s.escalationRules.Delete(ctx, id); err != nil {
		return notFoundOr(err, "escalation rule", id)
	}
	return nil
}

func (s *RuleService) applyEscalationInput(ctx context.Context, rule *domain.EscalationRule, input EscalationRuleInput) error {
	input.Name = strings.TrimSpace(input.Name)
	if err := validateInput(input); err != nil {
		return err
	}
	details := map[string]any{}
	for _, p := range input.Conditions.Priorities {
		if !p.Valid() {
			details["conditions.priorities"] = "unknown priority " + string(p)
		}
	}
	for _, st := range input.Conditions.Statuses {
		if !st.Valid() {
			details["conditions.statuses"] = "unknown status " + string(st)
		}
	}
	if input.Conditions.OverdueBy != nil && *input.Conditions.OverdueBy < 0 {
		details["conditions.overdue_by"] = "gte 0"
	}

	actions := input.Actions
	actions.AddComment = strings.TrimSpace(actions.AddComment)
	if actions.ChangePriority != nil && !actions.ChangePriority.Valid() {
		details["actions.change_priority"] = "oneof low medium high critical"
	}
	if actions.ReassignTo != nil {
		if err := s.validateTarget(ctx, "actions.reassign_to", *actions.ReassignTo, details); err != nil {
			return err
		}
	}
	if actions.ReassignTo == nil && actions.ChangePriority == nil && actions.AddComment == "" &&
		len(actions.NotifyUsers) == 0 && len(actions.NotifyTeams) == 0 {
		details["actions"] = "at least one action is required"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid escalation rule", details)
	}

	rule.Name = input.Name
	rule.Description = strings.TrimSpace(input.Description)
	rule.Priority = input.Priority
	rule.Conditions = input.Conditions
	rule.Actions = actions
	if input.IsActive != nil {
		rule.IsActive = *input.IsActive
	}
	return nil
}

// CreateSLAPolicy stores a policy. Only one enabled policy per priority is
// accepted.
func (s *RuleService) CreateSLAPolicy(ctx context.Context, session domain.SessionContext, input SLAPolicyInput) (*domain.SLAPolicy, error) {
	if err := requireAdmin(session); err != nil {
		return nil, err
	}
	policy := &domain.SLAPolicy{Enabled: true}
	if err := s.applyPolicyInput(ctx, policy, input); err != nil {
		return nil, err
	}
	if err := s.policies.Create(ctx, policy); err != nil {
		return nil, apperrors.MapError(err)
	}
	return policy, nil
}

// UpdateSLAPolicy replaces a policy. Changes do not touch deadlines already
// stamped on tickets.
func (s *RuleService) UpdateSLAPolicy(ctx context.Context, session domain.SessionContext, id string, input SLAPolicyInput) (*domain.SLAPolicy, error) {
	if err := requireAdmin(session); err != nil {
		return nil, err
	}
	policy, err := s.policies.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "sla policy", id)
	}
	if err := s.applyPolicyInput(ctx, policy, input); err != nil {
		return nil, err
	}
	if err := s.policies.Update(ctx, policy); err != nil {
		return nil, notFoundOr(err, "sla policy", id)
	}
	return policy, nil
}

// ListSLAPolicies returns policies oldest first.
func (s *RuleService) ListSLAPolicies(ctx context.Context, session domain.SessionContext) ([]domain.SLAPolicy, error) {
	if err := requireAdmin(session); err != nil {
		return nil, err
	}
	list, err := s.policies.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if list == nil {
		list = []domain.SLAPolicy{}
	}
	return list, nil
}

// DeleteSLAPolicy removes a policy.
func (s *RuleService) DeleteSLAPolicy(ctx context.Context, session domain.SessionContext, id string) error {
	if err := requireAdmin(session); err != nil {
		return err
	}
	if err := s.policies.Delete(ctx, id); err != nil {
		return notFoundOr(err, "sla policy", id)
	}
	return nil
}

func (s *RuleService) applyPolicyInput(ctx context.Context, policy *domain.SLAPolicy, input SLAPolicyInput) error {
	input.Name = strings.TrimSpace(input.Name)
	if err := validateInput(input); err != nil {
		return err
	}
	enabled := policy.Enabled
	if input.Enabled != nil {
		enabled = *input.Enabled
	}
	if enabled {
		existing, err := s.policies.List(ctx)
		if err != nil {
			return apperrors.MapError(err)
		}
		for _, other := range existing {
			if other.ID != policy.ID && other.Enabled && other.Priority == input.Priority {
				return apperrors.NewConflict("an enabled policy already exists for this priority", map[string]any{
					"priority":  input.Priority,
					"policy_id": other.ID,
				})
			}
		}
	}

	policy.Name = input.Name
	policy.Priority = input.Priority
	policy.ResponseTime = input.ResponseTime
	policy.ResolutionTime = input.ResolutionTime
	policy.Enabled = enabled
	return nil
}

// CreateTeam stores a team.
func (s *RuleService) CreateTeam(ctx context.Context, session domain.SessionContext, input TeamInput) (*domain.Team, error) {
	if err := requireAdmin(session); err != nil {
		return nil, err
	}
	team := &domain.Team{}
	if err := s.applyTeamInput(ctx, team, input); err != nil {
		return nil, err
	}
	if err := s.teams.Create(ctx, team); err != nil {
		return nil, apperrors.MapError(err)
	}
	return team, nil
}

// UpdateTeam replaces a team's attributes.
func (s *RuleService) UpdateTeam(ctx context.Context, session domain.SessionContext, id string, input TeamInput) (*domain.Team, error) {
	if err := requireAdmin(session); err != nil {
		return nil, err
	}
	team, err := s.teams.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "team", id)
	}
	if err := s.applyTeamInput(ctx, team, input); err != nil {
		return nil, err
	}
	if err := s.teams.Update(ctx, team); err != nil {
		return nil, notFoundOr(err, "team", id)
	}
	return team, nil
}

// DeleteTeam removes a team. Rules still pointing at it resolve to nobody.
func (s *RuleService) DeleteTeam(ctx context.Context, session domain.SessionContext, id string) error {
	if err := requireAdmin(session); err != nil {
		return err
	}
	if err := s.teams.Delete(ctx, id); err != nil {
		return notFoundOr(err, "team", id)
	}
	s.logger.Info("team deleted", zap.String("team_id", id), zap.String("actor_id", session.UserID))
	return nil
}

// TeamWithMembers pairs a team with its members in join order.
type TeamWithMembers struct {
	Team    domain.Team
	Members []domain.TeamMember
}

// ListTeams returns teams with their members.
func (s *RuleService) ListTeams(ctx context.Context, session domain.SessionContext) ([]TeamWithMembers, error) {
	if err := requireAdmin(session); err != nil {
		return nil, err
	}
	teams, err := s.teams.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	members, err := s.teams.ListMembers(ctx, "")
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	byTeam := make(map[string][]domain.TeamMember, len(teams))
	for _, m := range members {
		byTeam[m.TeamID] = append(byTeam[m.TeamID], m)
	}
	result := make([]TeamWithMembers, 0, len(teams))
	for _, team := range teams {
		list := byTeam[team.ID]
		if list == nil {
			list = []domain.TeamMember{}
		}
		result = append(result, TeamWithMembers{Team: team, Members: list})
	}
	return result, nil
}

// AddTeamMember adds an agent or admin to a team. Adding a leader also sets
// the team's leader.
func (s *RuleService) AddTeamMember(ctx context.Context, session domain.SessionContext, teamID, userID string, role domain.TeamRole) (*domain.TeamMember, error) {
	if err := requireAdmin(session); err != nil {
		return nil, err
	}
	if role == "" {
		role = domain.TeamRoleMember
	}
	if role != domain.TeamRoleMember && role != domain.TeamRoleLeader {
		return nil, apperrors.NewValidationError("invalid team role", map[string]any{"role": "oneof member leader"})
	}
	team, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		return nil, notFoundOr(err, "team", teamID)
	}
	if err := s.requireStaffUser(ctx, userID); err != nil {
		return nil, err
	}

	member := &domain.TeamMember{TeamID: teamID, UserID: userID, Role: role}
	if err := s.teams.AddMember(ctx, member); err != nil {
		return nil, apperrors.MapError(err)
	}
	if role == domain.TeamRoleLeader {
		team.LeaderID = strPtr(userID)
		if err := s.teams.Update(ctx, team); err != nil {
			return nil, apperrors.MapError(err)
		}
	}
	return member, nil
}

// RemoveTeamMember removes a membership. Removing the leader clears the
// team's leader.
func (s *RuleService) RemoveTeamMember(ctx context.Context, session domain.SessionContext, teamID, userID string) error {
	if err := requireAdmin(session); err != nil {
		return err
	}
	team, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		return notFoundOr(err, "team", teamID)
	}
	if err := s.teams.RemoveMember(ctx, teamID, userID); err != nil {
		return notFoundOr(err, "team member", userID)
	}
	if team.LeaderID != nil && *team.LeaderID == userID {
		team.LeaderID = nil
		if err := s.teams.Update(ctx, team); err != nil {
			return apperrors.MapError(err)
		}
	}
	return nil
}

func (s *RuleService) applyTeamInput(ctx context.Context, team *domain.Team, input TeamInput) error {
	input.Name = strings.TrimSpace(input.Name)
	if err := validateInput(input); err != nil {
		return err
	}
	if input.LeaderID != nil && *input.LeaderID != "" {
		if err := s.requireStaffUser(ctx, *input.LeaderID); err != nil {
			return err
		}
		team.LeaderID = input.LeaderID
	} else {
		team.LeaderID = nil
	}
	team.Name = input.Name
	team.Description = strings.TrimSpace(input.Description)
	return nil
}

func (s *RuleService) requireStaffUser(ctx context.Context, userID string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return notFoundOr(err, "user", userID)
	}
	if user.Role == domain.RoleUser {
		return apperrors.NewValidationError("team members must be agents or admins", map[string]any{"user_id": userID})
	}
	return nil
}
