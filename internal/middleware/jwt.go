package middleware // middleware contains reusable echo middleware for the backing store API

import (
    "net/http"
    "strconv"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/cinema-pos/internal/utils"
)

// Context keys set by JWTAuth.
const (
    CtxOperatorID = "user_id"
    CtxRole       = "role"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token and
// stores the operator id (uint64) and role in the request context.
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": "missing bearer token"})
            }
            claims, err := utils.ParseAccessToken(secret, strings.TrimPrefix(auth, "Bearer "))
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": "invalid token"})
            }
            c.Set(CtxOperatorID, claims.OperatorID)
            c.Set(CtxRole, claims.Role)
            return next(c)
        }
    }
}

// OperatorID returns the authenticated operator, or 0 when the request
// did not pass JWTAuth.
func OperatorID(c echo.Context) uint64 {
    id, _ := c.Get(CtxOperatorID).(uint64)
    return id
}

// operatorKey is the log identity of a request.
func operatorKey(c echo.Context) string {
    if id := OperatorID(c); id != 0 {
        return strconv.FormatUint(id, 10)
    }
    return "anon"
}
