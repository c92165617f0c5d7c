package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

type HealthHandler struct {
	DB *gorm.DB
}

func (h *HealthHandler) Health(c echo.Context) error {
	sqlDB, err := h.DB.DB()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "database unavailable")
	}
	if err := sqlDB.PingContext(c.Request().Context()); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "database unavailable")
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
