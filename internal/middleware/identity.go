package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// HeaderUserID carries the caller's id when an upstream gateway has
// already authenticated the request.
const HeaderUserID = "X-User-Id"

const userIDKey = "user_id"

// HeaderIdentity trusts the X-User-Id header set by the gateway. Requests
// without a positive numeric id are rejected with 401.
func HeaderIdentity() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			uid, ok := parseUserID(c.Request().Header.Get(HeaderUserID))
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing or invalid " + HeaderUserID + " header", "kind": "UNAUTHORIZED"})
			}
			c.Set(userIDKey, uid)
			return next(c)
		}
	}
}

// Identity picks the identity middleware for the auth mode: "header" uses
// HeaderIdentity, anything else JWTAuth.
func Identity(mode, jwtSecret string) echo.MiddlewareFunc {
	if mode == "header" {
		return HeaderIdentity()
	}
	return JWTAuth(jwtSecret)
}

// UserID returns the authenticated caller stored by the identity
// middleware.
func UserID(c echo.Context) (int64, bool) {
	uid, ok := c.Get(userIDKey).(int64)
	return uid, ok && uid > 0
}

// parseUserID accepts the forms a subject arrives in: a JSON number from
// MapClaims or a decimal string from a claim or header.
func parseUserID(v any) (int64, bool) {
	var id int64
	switch t := v.(type) {
	case float64:
		if t != float64(int64(t)) {
			return 0, false
		}
		id = int64(t)
	case int64:
		id = t
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return 0, false
		}
		id = n
	default:
		return 0, false
	}
	return id, id > 0
}
