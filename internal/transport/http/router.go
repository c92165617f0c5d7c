package httpserver

import (
	"github.com/labstack/echo/v4"

	"github.com/okhomin/contacts-service/internal/handlers"
	"github.com/okhomin/contacts-service/internal/middleware"
	"github.com/okhomin/contacts-service/internal/models"
)

type Deps struct {
	Auth     *middleware.Auth
	AuthH    *handlers.AuthHandler
	UserH    *handlers.UserHandler
	ContactH *handlers.ContactHandler
	HealthH  *handlers.HealthHandler
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/system/health", d.HealthH.Health)

	api := e.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/signup", d.AuthH.Signup)
	auth.POST("/login", d.AuthH.Login)
	auth.GET("/refresh_token", d.AuthH.RefreshToken)

	users := api.Group("/users", d.Auth.RequireAuth, middleware.RequireRole(models.RoleAdmin))
	users.GET("", d.UserH.List)
	users.PUT("/:id/role/:role", d.UserH.SetRole)

	contacts := api.Group("/contacts", d.Auth.RequireAuth)
	contacts.POST("", d.ContactH.Create)
	contacts.GET("", d.ContactH.List)
	contacts.GET("/birthdays", d.ContactH.Birthdays)
	contacts.GET("/:id", d.ContactH.Get)
	contacts.PUT("/:id", d.ContactH.Update)
	contacts.DELETE("/:id", d.ContactH.Delete)
}
