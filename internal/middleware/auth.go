package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/okhomin/contacts-service/internal/models"
	"github.com/okhomin/contacts-service/internal/repository"
	"github.com/okhomin/contacts-service/internal/token"
)

const userContextKey = "current_user"

// Auth resolves the bearer access token on protected routes.
type Auth struct {
	Codec *token.Codec
	Users *repository.UserRepo
}

func NewAuth(codec *token.Codec, users *repository.UserRepo) *Auth {
	return &Auth{Codec: codec, Users: users}
}

// RequireAuth decodes the bearer token, requires scope=access and loads the
// subject's user record into the request context. Pure read, no side effects.
func (m *Auth) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw, ok := BearerToken(c)
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
		}

		claims, err := m.Codec.Decode(raw)
		if err != nil || claims.Scope != token.ScopeAccess {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
		}

		user, err := m.Users.GetByEmail(c.Request().Context(), claims.Subject)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
		}

		SetCurrentUser(c, user)
		return next(c)
	}
}

// SetCurrentUser stashes the resolved user in the echo context.
func SetCurrentUser(c echo.Context, user *models.User) {
	c.Set(userContextKey, user)
}

// RequireRole gates a route on an exact role match. It assumes RequireAuth
// ran earlier in the chain.
func RequireRole(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := CurrentUser(c)
			if user == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}
			if user.Role != role {
				return echo.NewHTTPError(http.StatusForbidden, "forbidden")
			}
			return next(c)
		}
	}
}

// CurrentUser returns the user stored by RequireAuth, or nil.
func CurrentUser(c echo.Context) *models.User {
	if u, ok := c.Get(userContextKey).(*models.User); ok {
		return u
	}
	return nil
}

// BearerToken extracts the raw token from the Authorization header.
func BearerToken(c echo.Context) (string, bool) {
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", false
	}
	raw := strings.TrimPrefix(auth, "Bearer ")
	return raw, raw != ""
}
