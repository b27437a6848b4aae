package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/servicedesk/internal/domain"
)

func TestRegisterAndLogin(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.authSvc.Register(ctx, agentSession, RegisterInput{Name: "Dan", Email: "dan@example.com", Password: "password1", Role: domain.RoleAgent})
	assert.Equal(t, "FORBIDDEN", errorCode(err))

	user, err := h.authSvc.Register(ctx, adminSession, RegisterInput{Name: "Dan", Email: " Dan@Example.com ", Password: "password1", Role: domain.RoleAgent})
	require.NoError(t, err)
	assert.Equal(t, "dan@example.com", user.Email)
	assert.NotEqual(t, "password1", user.PasswordHash)

	_, err = h.authSvc.Register(ctx, adminSession, RegisterInput{Name: "Dan", Email: "dan@example.com", Password: "password1", Role: domain.RoleAgent})
	assert.Equal(t, "CONFLICT", errorCode(err))

	_, err = h.authSvc.Register(ctx, adminSession, RegisterInput{Name: "Eve", Email: "eve@example.com", Password: "short", Role: "root"})
	assert.Equal(t, "VALIDATION_FAILED", errorCode(err))

	result, err := h.authSvc.Login(ctx, "DAN@example.com", "password1")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)

	claims, err := h.authSvc.TokenManager().ParseToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.Subject)
	assert.Equal(t, domain.RoleAgent, claims.Role)

	_, err = h.authSvc.Login(ctx, "dan@example.com", "wrong-password")
	assert.Equal(t, "UNAUTHORIZED", errorCode(err))
	_, err = h.authSvc.Login(ctx, "nobody@example.com", "password1")
	assert.Equal(t, "UNAUTHORIZED", errorCode(err))

	_, err = h.authSvc.SetActive(ctx, adminSession, user.ID, false)
	require.NoError(t, err)
	_, err = h.authSvc.Login(ctx, "dan@example.com", "password1")
	assert.Equal(t, "UNAUTHORIZED", errorCode(err))
}

func TestSetActiveRefusesSelfDeactivation(t *testing.T) {
	h := newHarness(t)
	_, err := h.authSvc.SetActive(context.Background(), adminSession, "admin", false)
	assert.Equal(t, "CONFLICT", errorCode(err))
}

func TestEnsureBootstrapAdminIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.authSvc.EnsureBootstrapAdmin(ctx, "root@example.com", "bootstrap-pass"))
	require.NoError(t, h.authSvc.EnsureBootstrapAdmin(ctx, "root@example.com", "bootstrap-pass"))

	users, err := h.authSvc.ListUsers(ctx, adminSession)
	require.NoError(t, err)
	count := 0
	for _, u := range users {
		if u.Email == "root@example.com" {
			count++
			assert.Equal(t, domain.RoleAdmin, u.Role)
		}
	}
	assert.Equal(t, 1, count)

	require.NoError(t, h.authSvc.EnsureBootstrapAdmin(ctx, "", ""))
}

func TestNotificationsMarkRead(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.ticketSvc.Create(ctx, requesterSession, TicketCreateInput{Title: "x"})
	require.NoError(t, err)
	ticket, err := h.ticketSvc.List(ctx, agentSession, TicketListFilter{})
	require.NoError(t, err)
	require.Len(t, ticket, 1)
	_, err = h.assignSvc.Assign(ctx, agentSession, ticket[0].ID, "bob")
	require.NoError(t, err)

	bob := domain.SessionContext{UserID: "bob", Role: domain.RoleAgent}
	unread, err := h.notifySvc.ListForUser(ctx, bob, true, 10)
	require.NoError(t, err)
	require.Len(t, unread, 1)

	require.NoError(t, h.notifySvc.MarkRead(ctx, bob, unread[0].ID))
	unread, err = h.notifySvc.ListForUser(ctx, bob, true, 10)
	require.NoError(t, err)
	assert.Empty(t, unread)

	err = h.notifySvc.MarkRead(ctx, agentSession, "missing")
	assert.Equal(t, "NOT_FOUND", errorCode(err))
}

func TestLoginRehashesWeakerPasswordHash(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	weak, err := bcrypt.GenerateFromPassword([]byte("password1"), bcrypt.MinCost+1)
	require.NoError(t, err)
	user := &domain.User{Name: "Old", Email: "old@example.com", PasswordHash: string(weak), Role: domain.RoleAgent, Active: true}
	require.NoError(t, h.users.Create(ctx, user))

	_, err = h.authSvc.Login(ctx, "old@example.com", "password1")
	require.NoError(t, err)

	stored, err := h.users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.NotEqual(t, string(weak), stored.PasswordHash)
	cost, err := bcrypt.Cost([]byte(stored.PasswordHash))
	require.NoError(t, err)
	assert.Equal(t, 4, cost)
}
