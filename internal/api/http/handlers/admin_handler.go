package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/servicedesk/internal/api/dto"
	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/service"
	apperrors "github.com/spec-kit/servicedesk/pkg/util/errorutil"
)

// AdminHandler exposes user, rule, policy, team and escalation administration.
type AdminHandler struct {
	auth       *service.AuthService
	rules      *service.RuleService
	escalation *service.EscalationService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(authService *service.AuthService, ruleService *service.RuleService, escalationService *service.EscalationService) *AdminHandler {
	return &AdminHandler{auth: authService, rules: ruleService, escalation: escalationService}
}

// CreateUser POST /api/admin/users.
func (h *AdminHandler) CreateUser(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	var req dto.RegisterUserRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	user, err := h.auth.Register(c.UserContext(), session, service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// ListUsers GET /api/admin/users.
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	users, err := h.auth.ListUsers(c.UserContext(), session)
	if err != nil {
		return err
	}
	items := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		items = append(items, dto.NewUserResponse(&users[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// SetUserActive PATCH /api/admin/users/:id/active.
func (h *AdminHandler) SetUserActive(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	var req dto.SetActiveRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	user, err := h.auth.SetActive(c.UserContext(), session, c.Params("id"), req.Active)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// CreateAssignmentRule POST /api/admin/assignment-rules.
func (h *AdminHandler) CreateAssignmentRule(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	input, err := parseAssignmentRule(c)
	if err != nil {
		return err
	}
	rule, err := h.rules.CreateAssignmentRule(c.UserContext(), session, input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewAssignmentRuleResponse(rule)})
}

// ListAssignmentRules GET /api/admin/assignment-rules.
func (h *AdminHandler) ListAssignmentRules(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	list, err := h.rules.ListAssignmentRules(c.UserContext(), session)
	if err != nil {
		return err
	}
	items := make([]dto.AssignmentRuleResponse, 0, len(list))
	for i := range list {
		items = append(items, dto.NewAssignmentRuleResponse(&list[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetAssignmentRule GET /api/admin/assignment-rules/:id.
func (h *AdminHandler) GetAssignmentRule(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	rule, err := h.rules.GetAssignmentRule(c.UserContext(), session, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAssignmentRuleResponse(rule)})
}

// UpdateAssignmentRule PUT /api/admin/assignment-rules/:id.
func (h *AdminHandler) UpdateAssignmentRule(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	input, err := parseAssignmentRule(c)
	if err != nil {
		return err
	}
	rule, err := h.rules.UpdateAssignmentRule(c.UserContext(), session, c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAssignmentRuleResponse(rule)})
}

// ToggleAssignmentRule PATCH /api/admin/assignment-rules/:id/toggle.
func (h *AdminHandler) ToggleAssignmentRule(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	rule, err := h.rules.ToggleAssignmentRule(c.UserContext(), session, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAssignmentRuleResponse(rule)})
}

// DeleteAssignmentRule DELETE /api/admin/assignment-rules/:id.
func (h *AdminHandler) DeleteAssignmentRule(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	if err := h.rules.DeleteAssignmentRule(c.UserContext(), session, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// CreateEscalationRule POST /api/admin/escalation-rules.
func (h *AdminHandler) CreateEscalationRule(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	input, err := parseEscalationRule(c)
	if err != nil {
		return err
	}
	rule, err := h.rules.CreateEscalationRule(c.UserContext(), session, input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewEscalationRuleResponse(rule)})
}

// ListEscalationRules GET /api/admin/escalation-rules.
func (h *AdminHandler) ListEscalationRules(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	list, err := h.rules.ListEscalationRules(c.UserContext(), session)
	if err != nil {
		return err
	}
	items := make([]dto.EscalationRuleResponse, 0, len(list))
	for i := range list {
		items = append(items, dto.NewEscalationRuleResponse(&list[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetEscalationRule GET /api/admin/escalation-rules/:id.
func (h *AdminHandler) GetEscalationRule(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	rule, err := h.rules.GetEscalationRule(c.UserContext(), session, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewEscalationRuleResponse(rule)})
}

// UpdateEscalationRule PUT /api/admin/escalation-rules/:id.
func (h *AdminHandler) UpdateEscalationRule(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	input, err := parseEscalationRule(c)
	if err != nil {
		return err
	}
	rule, err := h.rules.UpdateEscalationRule(c.UserContext(), session, c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewEscalationRuleResponse(rule)})
}

// ToggleEscalationRule PATCH /api/admin/escalation-rules/:id/toggle.
func (h *AdminHandler) ToggleEscalationRule(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	rule, err := h.rules.ToggleEscalationRule(c.UserContext(), session, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewEscalationRuleResponse(rule)})
}

// DeleteEscalationRule DELETE /api/admin/escalation-rules/:id.
func (h *AdminHandler) DeleteEscalationRule(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	if err := h.rules.DeleteEscalationRule(c.UserContext(), session, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// CreateSLAPolicy POST /api/admin/sla-policies.
func (h *AdminHandler) CreateSLAPolicy(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	input, err := parseSLAPolicy(c)
	if err != nil {
		return err
	}
	policy, err := h.rules.CreateSLAPolicy(c.UserContext(), session, input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewSLAPolicyResponse(policy)})
}

// ListSLAPolicies GET /api/admin/sla-policies.
func (h *AdminHandler) ListSLAPolicies(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	list, err := h.rules.ListSLAPolicies(c.UserContext(), session)
	if err != nil {
		return err
	}
	items := make([]dto.SLAPolicyResponse, 0, len(list))
	for i := range list {
		items = append(items, dto.NewSLAPolicyResponse(&list[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// UpdateSLAPolicy PUT /api/admin/sla-policies/:id.
func (h *AdminHandler) UpdateSLAPolicy(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	input, err := parseSLAPolicy(c)
	if err != nil {
		return err
	}
	policy, err := h.rules.UpdateSLAPolicy(c.UserContext(), session, c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSLAPolicyResponse(policy)})
}

// DeleteSLAPolicy DELETE /api/admin/sla-policies/:id.
func (h *AdminHandler) DeleteSLAPolicy(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	if err := h.rules.DeleteSLAPolicy(c.UserContext(), session, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// CreateTeam POST /api/admin/teams.
func (h *AdminHandler) CreateTeam(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	var req dto.TeamRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	team, err := h.rules.CreateTeam(c.UserContext(), session, service.TeamInput{
		Name:        req.Name,
		Description: req.Description,
		LeaderID:    req.LeaderID,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTeamResponse(team, nil)})
}

// ListTeams GET /api/admin/teams.
func (h *AdminHandler) ListTeams(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	teams, err := h.rules.ListTeams(c.UserContext(), session)
	if err != nil {
		return err
	}
	items := make([]dto.TeamResponse, 0, len(teams))
	for i := range teams {
		items = append(items, dto.NewTeamResponse(&teams[i].Team, teams[i].Members))
	}
	return c.JSON(fiber.Map{"data": items})
}

// UpdateTeam PUT /api/admin/teams/:id.
func (h *AdminHandler) UpdateTeam(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	var req dto.TeamRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	team, err := h.rules.UpdateTeam(c.UserContext(), session, c.Params("id"), service.TeamInput{
		Name:        req.Name,
		Description: req.Description,
		LeaderID:    req.LeaderID,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTeamResponse(team, nil)})
}

// DeleteTeam DELETE /api/admin/teams/:id.
func (h *AdminHandler) DeleteTeam(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	if err := h.rules.DeleteTeam(c.UserContext(), session, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// AddTeamMember POST /api/admin/teams/:id/members.
func (h *AdminHandler) AddTeamMember(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	var req dto.TeamMemberRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.UserID == "" {
		return apperrors.NewValidationError("user_id required", nil)
	}
	member, err := h.rules.AddTeamMember(c.UserContext(), session, c.Params("id"), req.UserID, req.Role)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.TeamMemberResponse{
		UserID:   member.UserID,
		Role:     member.Role,
		JoinedAt: member.JoinedAt,
	}})
}

// RemoveTeamMember DELETE /api/admin/teams/:id/members/:userId.
func (h *AdminHandler) RemoveTeamMember(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	if err := h.rules.RemoveTeamMember(c.UserContext(), session, c.Params("id"), c.Params("userId")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// RunEscalations POST /api/admin/escalations/run.
func (h *AdminHandler) RunEscalations(c *fiber.Ctx) error {
	session, err := currentSession(c)
	if err != nil {
		return err
	}
	applied, err := h.escalation.Trigger(c.UserContext(), session, time.Now().UTC())
	if err != nil {
		return err
	}
	if applied == nil {
		applied = []domain.EscalationAction{}
	}
	return c.JSON(fiber.Map{"data": applied})
}

func parseAssignmentRule(c *fiber.Ctx) (service.AssignmentRuleInput, error) {
	var req dto.AssignmentRuleRequest
	if err := c.BodyParser(&req); err != nil {
		return service.AssignmentRuleInput{}, apperrors.NewValidationError("invalid payload", nil)
	}
	return service.AssignmentRuleInput{
		Name:        req.Name,
		Description: req.Description,
		IsActive:    req.IsActive,
		Priority:    req.Priority,
		Conditions:  req.Conditions,
		AssignTo:    req.AssignTo,
	}, nil
}

func parseEscalationRule(c *fiber.Ctx) (service.EscalationRuleInput, error) {
	var req dto.EscalationRuleRequest
	if err := c.BodyParser(&req); err != nil {
		return service.EscalationRuleInput{}, apperrors.NewValidationError("invalid payload", nil)
	}
	return service.EscalationRuleInput{
		Name:        req.Name,
		Description: req.Description,
		IsActive:    req.IsActive,
		Priority:    req.Priority,
		Conditions:  req.Conditions,
		Actions:     req.Actions,
	}, nil
}

func parseSLAPolicy(c *fiber.Ctx) (service.SLAPolicyInput, error) {
	var req dto.SLAPolicyRequest
	if err := c.BodyParser(&req); err != nil {
		return service.SLAPolicyInput{}, apperrors.NewValidationError("invalid payload", nil)
	}
	return service.SLAPolicyInput{
		Name:           req.Name,
		Priority:       req.Priority,
		ResponseTime:   req.ResponseTime,
		ResolutionTime: req.ResolutionTime,
		Enabled:        req.Enabled,
	}, nil
}
