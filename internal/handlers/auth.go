package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/okhomin/contacts-service/internal/logging"
	"github.com/okhomin/contacts-service/internal/middleware"
	"github.com/okhomin/contacts-service/internal/models"
	"github.com/okhomin/contacts-service/internal/mykafka"
	"github.com/okhomin/contacts-service/internal/service"
	"github.com/okhomin/contacts-service/internal/token"
)

type AuthHandler struct {
	Svc      *service.AuthService
	Producer *mykafka.Producer
}

type signupRequest struct {
	Username *string `json:"username"`
	Email    string  `json:"email"`
	Password string  `json:"password"`
}

func (r *signupRequest) validate() error {
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return errors.New("invalid email")
	}
	if len(r.Password) < 6 || len(r.Password) > 64 {
		return errors.New("password must be 6-64 characters")
	}
	if r.Username != nil && (len(*r.Username) < 2 || len(*r.Username) > 32) {
		return errors.New("username must be 2-32 characters")
	}
	return nil
}

func (h *AuthHandler) Signup(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_signup")

	var req signupRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("signup_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := req.validate(); err != nil {
		l.Warn("signup_error", "status", 422, "error", err)
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	user, err := h.Svc.Signup(ctx, req.Email, req.Password, req.Username)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			return echo.NewHTTPError(http.StatusConflict, "Account already exists")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "signup failed")
	}

	h.publishUserEvent(c, "user_registered", user)

	return c.JSON(http.StatusCreated, echo.Map{
		"user":   user,
		"detail": "User successfully created",
	})
}

func (h *AuthHandler) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	// OAuth2 password form: username carries the email.
	email := c.FormValue("username")
	password := c.FormValue("password")
	if email == "" || password == "" {
		l.Warn("login_error", "status", 401, "reason", "missing form fields")
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid email or password")
	}

	pair, err := h.Svc.Login(ctx, email, password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid email or password")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "login failed")
	}

	if user, uerr := h.Svc.Users.GetByEmail(ctx, email); uerr == nil {
		h.publishUserEvent(c, "user_logged_in", user)
	}

	return c.JSON(http.StatusOK, tokenResponse(pair))
}

func (h *AuthHandler) RefreshToken(c echo.Context) error {
	ctx := c.Request().Context()

	raw, ok := middleware.BearerToken(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
	}

	pair, err := h.Svc.Refresh(ctx, raw)
	if err != nil {
		switch {
		case errors.Is(err, token.ErrInvalidToken), errors.Is(err, service.ErrSessionInvalidated):
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid refresh token")
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, "refresh failed")
		}
	}

	return c.JSON(http.StatusOK, tokenResponse(pair))
}

func tokenResponse(pair *service.TokenPair) echo.Map {
	return echo.Map{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"token_type":    "bearer",
	}
}

// publishUserEvent is best-effort: a broker outage must not fail auth.
func (h *AuthHandler) publishUserEvent(c echo.Context, eventType string, user *models.User) {
	event := map[string]interface{}{
		"type":    eventType,
		"user_id": user.ID,
		"email":   user.Email,
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Producer.PublishEvent(ctx, mykafka.TopicUserEvents, fmt.Sprint(user.ID), event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka_publish_failed", "error", err)
	}
}
