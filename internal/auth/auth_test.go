package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/servicedesk/internal/domain"
	apperrors "github.com/spec-kit/servicedesk/pkg/util/errorutil"
)

type stubUsers map[string]*domain.User

func (s stubUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	if u, ok := s[id]; ok {
		return u, nil
	}
	return nil, pgx.ErrNoRows
}

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 30*time.Minute)
	token, expiresAt, err := tm.GenerateToken("u1", domain.RoleAgent)
	require.NoError(t, err)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	session := claims.Session()
	assert.Equal(t, "u1", session.UserID)
	assert.Equal(t, domain.RoleAgent, session.Role)
	assert.WithinDuration(t, expiresAt, session.ExpiresAt, time.Second)
}

func TestParseTokenRejectsExpiredAndForeignTokens(t *testing.T) {
	tm := NewTokenManager("secret", time.Minute)
	token, _, err := tm.GenerateToken("u1", domain.RoleUser)
	require.NoError(t, err)

	tm.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = tm.ParseToken(token)
	assert.Error(t, err)

	other := NewTokenManager("other", time.Minute)
	_, err = other.ParseToken(token)
	assert.Error(t, err)
}

func newTestApp(tm *TokenManager, users UserLookup, guards ...fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.SendStatus(apperrors.ToDomainError(err).HTTPStatus)
		},
	})
	handlers := append([]fiber.Handler{NewAuthMiddleware(tm, users).Handle}, guards...)
	handlers = append(handlers, func(c *fiber.Ctx) error {
		session, _ := SessionFromContext(c)
		return c.SendString(string(session.Role))
	})
	app.Get("/", handlers...)
	return app
}

func TestMiddlewareAndRoles(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour)
	users := stubUsers{
		"admin": {ID: "admin", Role: domain.RoleAdmin, Active: true},
		"agent": {ID: "agent", Role: domain.RoleAgent, Active: true},
		"gone":  {ID: "gone", Role: domain.RoleAgent, Active: false},
	}
	bearer := func(id string, role domain.Role) string {
		token, _, err := tm.GenerateToken(id, role)
		require.NoError(t, err)
		return "Bearer " + token
	}

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"malformed header", "Token abc", http.StatusUnauthorized},
		{"unknown user", bearer("nobody", domain.RoleAdmin), http.StatusUnauthorized},
		{"inactive user", bearer("gone", domain.RoleAgent), http.StatusUnauthorized},
		{"agent blocked by admin guard", bearer("agent", domain.RoleAgent), http.StatusForbidden},
		{"admin allowed", bearer("admin", domain.RoleAdmin), http.StatusOK},
	}

	app := newTestApp(tm, users, RequireAdmin())
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.want, resp.StatusCode)
		})
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse", 4)
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hash, "correct horse"))
	assert.Error(t, ComparePassword(hash, "wrong"))
}

func TestNeedsRehash(t *testing.T) {
	hash, err := HashPassword("correct horse", 4)
	require.NoError(t, err)

	assert.False(t, NeedsRehash(hash, 4))
	assert.True(t, NeedsRehash(hash, 5))
	assert.False(t, NeedsRehash(hash, 1), "cost below the minimum clamps to 4")
	assert.True(t, NeedsRehash("not-a-hash", 4))
}
