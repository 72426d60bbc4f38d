package http

import (
	"errors"
	"log/slog"
	"net/http"

	appDomain "kyc-backend/internal/domain/application"
	userDomain "kyc-backend/internal/domain/user"

	"github.com/labstack/echo/v4"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, appDomain.ErrNotFound), errors.Is(err, userDomain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, appDomain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, appDomain.ErrDuplicateActiveApplication),
		errors.Is(err, appDomain.ErrInvalidTransition),
		errors.Is(err, appDomain.ErrInvalidStateForMutation),
		errors.Is(err, appDomain.ErrSlotEmpty):
		return http.StatusConflict
	case errors.Is(err, appDomain.ErrIncompleteDocuments),
		errors.Is(err, appDomain.ErrMissingRejectionReason),
		errors.Is(err, appDomain.ErrInvalidSlot),
		errors.Is(err, appDomain.ErrInvalidDecision),
		errors.Is(err, appDomain.ErrInvalidFilter):
		return http.StatusUnprocessableEntity
	case errors.Is(err, appDomain.ErrUpstream):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// writeError maps a use-case error onto the wire.
func writeError(c echo.Context, err error) error {
	code := statusFor(err)
	body := ErrorResponse{Error: err.Error()}
	if st, ok := appDomain.CurrentStatus(err); ok {
		body.Status = string(st)
	}
	var md *appDomain.MissingDocumentsError
	if errors.As(err, &md) {
		for _, s := range md.Missing {
			body.MissingDocuments = append(body.MissingDocuments, string(s))
		}
	}
	switch code {
	case http.StatusInternalServerError:
		slog.ErrorContext(c.Request().Context(), "request failed", "path", c.Path(), "error", err)
		body.Error = "internal error"
	case http.StatusBadGateway:
		slog.WarnContext(c.Request().Context(), "collaborator failed", "path", c.Path(), "error", err)
	}
	return c.JSON(code, body)
}

func invalidBody(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
}

func validationFailed(c echo.Context, err error) error {
	return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
		Error:   "validation failed",
		Details: ToFieldErrors(err),
	})
}
