package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-sync/internal/domain"
	apperrors "github.com/spec-kit/support-sync/pkg/util"
)

func newAuthTestApp(tm *TokenManager, extra ...fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var domainErr *apperrors.DomainError
			if errors.As(err, &domainErr) {
				return c.Status(domainErr.HTTPStatus).JSON(fiber.Map{"code": domainErr.Code})
			}
			return c.SendStatus(http.StatusInternalServerError)
		},
	})
	middleware := NewAuthMiddleware(tm)
	handlers := append([]fiber.Handler{middleware.Handle}, extra...)
	handlers = append(handlers, func(c *fiber.Ctx) error {
		principal, _ := PrincipalFromContext(c)
		return c.JSON(fiber.Map{"id": principal.ID, "email": principal.Email})
	})
	app.Get("/protected", handlers...)
	return app
}

func doRequest(t *testing.T, app *fiber.App, authHeader string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestAuthMiddlewareAcceptsValidToken(t *testing.T) {
	tm := NewTokenManager("test-secret")
	token, _, err := tm.GenerateToken("u1", domain.SubjectTypeUser, "Pat", "pat@example.com", time.Hour)
	require.NoError(t, err)

	resp := doRequest(t, newAuthTestApp(tm), "Bearer "+token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthMiddlewareRejectsMissingAndMalformedHeaders(t *testing.T) {
	app := newAuthTestApp(NewTokenManager("test-secret"))

	assert.Equal(t, http.StatusUnauthorized, doRequest(t, app, "").StatusCode)
	assert.Equal(t, http.StatusUnauthorized, doRequest(t, app, "Basic abc").StatusCode)
	assert.Equal(t, http.StatusUnauthorized, doRequest(t, app, "Bearer not-a-jwt").StatusCode)
}

func TestAuthMiddlewareRejectsForeignSignature(t *testing.T) {
	token, _, err := NewTokenManager("other-secret").GenerateToken("u1", domain.SubjectTypeUser, "", "", time.Hour)
	require.NoError(t, err)

	resp := doRequest(t, newAuthTestApp(NewTokenManager("test-secret")), "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRoleGuards(t *testing.T) {
	tm := NewTokenManager("test-secret")
	userToken, _, err := tm.GenerateToken("u1", domain.SubjectTypeUser, "", "", time.Hour)
	require.NoError(t, err)
	adminToken, _, err := tm.GenerateToken("a1", domain.SubjectTypeAdmin, "", "", time.Hour)
	require.NoError(t, err)

	adminOnly := newAuthTestApp(tm, RequireAdmin())
	assert.Equal(t, http.StatusForbidden, doRequest(t, adminOnly, "Bearer "+userToken).StatusCode)
	assert.Equal(t, http.StatusOK, doRequest(t, adminOnly, "Bearer "+adminToken).StatusCode)

	userOnly := newAuthTestApp(tm, RequireUser())
	assert.Equal(t, http.StatusOK, doRequest(t, userOnly, "Bearer "+userToken).StatusCode)
	assert.Equal(t, http.StatusForbidden, doRequest(t, userOnly, "Bearer "+adminToken).StatusCode)
}
