package middleware

import (
	"net/http"
	"slices"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/efresco/internal/user"
	"github.com/sudo-init-do/efresco/internal/utils"
)

// Context keys set by JWT
const (
	UserIDKey = "user_id"
	RolesKey  = "roles"
)

// JWT rejects requests without a valid bearer token and stores the caller's
// id and roles in the context.
func JWT(tokens *utils.Tokens) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, err := utils.BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
			}
			claims, err := tokens.Parse(raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
			}
			c.Set(UserIDKey, claims.UserID)
			c.Set(RolesKey, claims.Roles)
			return next(c)
		}
	}
}

// UserID is the authenticated caller, zero when JWT did not run.
func UserID(c echo.Context) int64 {
	id, _ := c.Get(UserIDKey).(int64)
	return id
}

func Roles(c echo.Context) []string {
	roles, _ := c.Get(RolesKey).([]string)
	return roles
}

// RequireRoles lets the request through when the caller holds any of roles.
// Usage: route(..., RequireRoles("productor"))
func RequireRoles(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			held := Roles(c)
			if len(held) == 0 {
				return c.JSON(http.StatusForbidden, echo.Map{"success": false, "error": "role missing"})
			}
			for _, r := range roles {
				if slices.Contains(held, r) {
					return next(c)
				}
			}
			return c.JSON(http.StatusForbidden, echo.Map{"success": false, "error": "access denied"})
		}
	}
}

// AdminGuard ensures only administrators reach admin routes
func AdminGuard(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !slices.Contains(Roles(c), user.RoleAdmin) {
			return c.JSON(http.StatusForbidden, echo.Map{
				"error": "admin access only",
			})
		}
		return next(c)
	}
}
