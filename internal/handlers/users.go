package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/okhomin/contacts-service/internal/logging"
	"github.com/okhomin/contacts-service/internal/models"
	"github.com/okhomin/contacts-service/internal/mykafka"
	"github.com/okhomin/contacts-service/internal/repository"
)

// UserHandler serves the admin-only users surface.
type UserHandler struct {
	Users    *repository.UserRepo
	Producer *mykafka.Producer
}

func (h *UserHandler) List(c echo.Context) error {
	ctx := c.Request().Context()

	users, err := h.Users.List(ctx)
	if err != nil {
		logging.FromContext(ctx).Error("user_list_failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list users")
	}
	return c.JSON(http.StatusOK, users)
}

func (h *UserHandler) SetRole(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "user_set_role")

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "invalid user id")
	}
	role := c.Param("role")
	if !models.ValidRole(role) {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "invalid role")
	}

	user, err := h.Users.SetRole(ctx, uint(id), role)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "User not found")
		}
		l.Error("set_role_failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot update role")
	}

	event := map[string]interface{}{
		"type":    "user_role_changed",
		"user_id": user.ID,
		"role":    role,
	}
	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(pubCtx, mykafka.TopicUserEvents, fmt.Sprint(user.ID), event); err != nil {
		l.Error("kafka_publish_failed", "error", err)
	}

	return c.JSON(http.StatusOK, user)
}
