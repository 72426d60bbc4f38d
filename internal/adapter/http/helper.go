package http

import (
	"kyc-backend/internal/adapter/middleware"
	userDomain "kyc-backend/internal/domain/user"

	"github.com/labstack/echo/v4"
)

// actor returns the authenticated caller; routes are always behind JWTAuth.
func actor(c echo.Context) userDomain.Actor {
	a, _ := middleware.ActorFrom(c)
	return a
}

// bind decodes and validates req, writing the 400/422 itself. ok is false when
// a response was written.
func bind(c echo.Context, req any) (ok bool, err error) {
	if err := c.Bind(req); err != nil {
		return false, invalidBody(c)
	}
	if err := c.Validate(req); err != nil {
		return false, validationFailed(c, err)
	}
	return true, nil
}
