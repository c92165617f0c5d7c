package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/okhomin/contacts-service/internal/models"
	"github.com/okhomin/contacts-service/internal/repository"
	"github.com/okhomin/contacts-service/internal/token"
)

type authEnv struct {
	e     *echo.Echo
	codec *token.Codec
	users *repository.UserRepo
	auth  *Auth
}

func newAuthEnv(t *testing.T) *authEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}))

	codec := token.NewCodec([]byte("test-secret"), 15*time.Minute, 24*time.Hour, 0)
	users := repository.NewUserRepo(db)

	return &authEnv{
		e:     echo.New(),
		codec: codec,
		users: users,
		auth:  NewAuth(codec, users),
	}
}

func (env *authEnv) createUser(t *testing.T, email, role string) *models.User {
	t.Helper()

	user := &models.User{Email: email, PasswordHash: "x", Role: role}
	require.NoError(t, env.users.Create(context.Background(), user))
	return user
}

func (env *authEnv) doRequest(authHeader string, mw ...echo.MiddlewareFunc) (*httptest.ResponseRecorder, error) {
	handler := func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}
	for i := len(mw) - 1; i >= 0; i-- {
		handler = mw[i](handler)
	}

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set(echo.HeaderAuthorization, authHeader)
	}
	rec := httptest.NewRecorder()
	c := env.e.NewContext(req, rec)
	return rec, handler(c)
}

func TestRequireAuth_ValidAccessToken(t *testing.T) {
	t.Parallel()

	env := newAuthEnv(t)
	env.createUser(t, "a@x.com", models.RoleUser)

	access, err := env.codec.Encode("a@x.com", token.ScopeAccess)
	require.NoError(t, err)

	rec, err := env.doRequest("Bearer "+access, env.auth.RequireAuth)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAuth_Failures(t *testing.T) {
	t.Parallel()

	env := newAuthEnv(t)
	env.createUser(t, "a@x.com", models.RoleUser)

	refresh, err := env.codec.Encode("a@x.com", token.ScopeRefresh)
	require.NoError(t, err)

	expiredCodec := token.NewCodec([]byte("test-secret"), -time.Minute, -time.Minute, 0)
	expired, err := expiredCodec.Encode("a@x.com", token.ScopeAccess)
	require.NoError(t, err)

	ghost, err := env.codec.Encode("ghost@x.com", token.ScopeAccess)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "not bearer", header: "Basic abc"},
		{name: "garbage token", header: "Bearer not-a-jwt"},
		{name: "refresh scope rejected", header: "Bearer " + refresh},
		{name: "expired", header: "Bearer " + expired},
		{name: "unknown subject", header: "Bearer " + ghost},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := env.doRequest(tt.header, env.auth.RequireAuth)
			require.Error(t, err)
			he, ok := err.(*echo.HTTPError)
			require.True(t, ok, "expected HTTPError")
			assert.Equal(t, http.StatusUnauthorized, he.Code)
		})
	}
}

func TestRequireRole_AdminOnly(t *testing.T) {
	t.Parallel()

	env := newAuthEnv(t)
	env.createUser(t, "admin@x.com", models.RoleAdmin)
	env.createUser(t, "user@x.com", models.RoleUser)

	adminToken, err := env.codec.Encode("admin@x.com", token.ScopeAccess)
	require.NoError(t, err)
	userToken, err := env.codec.Encode("user@x.com", token.ScopeAccess)
	require.NoError(t, err)

	rec, err := env.doRequest("Bearer "+adminToken, env.auth.RequireAuth, RequireRole(models.RoleAdmin))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	_, err = env.doRequest("Bearer "+userToken, env.auth.RequireAuth, RequireRole(models.RoleAdmin))
	require.Error(t, err)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	assert.Equal(t, http.StatusForbidden, he.Code)
}

func TestRequireRole_WithoutResolvedUser(t *testing.T) {
	t.Parallel()

	env := newAuthEnv(t)

	_, err := env.doRequest("", RequireRole(models.RoleAdmin))
	require.Error(t, err)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	assert.Equal(t, http.StatusUnauthorized, he.Code)
}
