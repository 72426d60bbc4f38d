package http

import (
	"context"
	"net/http"

	userDomain "kyc-backend/internal/domain/user"
	appUsecase "kyc-backend/internal/usecase/application"
	"kyc-backend/internal/usecase/review"

	"github.com/labstack/echo/v4"
)

// MirrorResyncer recomputes an owner's kyc_status from the application.
type MirrorResyncer interface {
	ResyncApplication(ctx context.Context, applicationID string) (userDomain.KYCStatus, error)
}

type AdminHandler struct {
	apps    *appUsecase.Usecase
	reviews *review.Usecase
	mirror  MirrorResyncer
}

func NewAdminHandler(apps *appUsecase.Usecase, reviews *review.Usecase, mirror MirrorResyncer) *AdminHandler {
	return &AdminHandler{apps: apps, reviews: reviews, mirror: mirror}
}

func (h *AdminHandler) List(c echo.Context) error {
	var in appUsecase.ListInput
	if ok, err := bind(c, &in); !ok {
		return err
	}
	dto, err := h.apps.List(c.Request().Context(), actor(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *AdminHandler) Get(c echo.Context) error {
	dto, err := h.apps.Get(c.Request().Context(), actor(c), c.Param("application_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *AdminHandler) Stats(c echo.Context) error {
	dto, err := h.apps.Stats(c.Request().Context(), actor(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *AdminHandler) Dashboard(c echo.Context) error {
	dto, err := h.apps.Dashboard(c.Request().Context(), actor(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *AdminHandler) Export(c echo.Context) error {
	var in appUsecase.ExportInput
	if ok, err := bind(c, &in); !ok {
		return err
	}
	dto, err := h.apps.Export(c.Request().Context(), actor(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *AdminHandler) BeginReview(c echo.Context) error {
	dto, err := h.reviews.BeginReview(c.Request().Context(), actor(c), c.Param("application_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *AdminHandler) Review(c echo.Context) error {
	var req review.ReviewInput
	if ok, err := bind(c, &req); !ok {
		return err
	}
	dto, err := h.reviews.Review(c.Request().Context(), actor(c), c.Param("application_id"), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *AdminHandler) VerifyDocument(c echo.Context) error {
	var req review.VerifyInput
	if ok, err := bind(c, &req); !ok {
		return err
	}
	dto, err := h.reviews.VerifyDocument(c.Request().Context(), actor(c), c.Param("application_id"), c.Param("slot"), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

type resyncResp struct {
	ApplicationID string `json:"application_id"`
	KYCStatus     string `json:"kyc_status"`
}

func (h *AdminHandler) ResyncMirror(c echo.Context) error {
	id := c.Param("application_id")
	st, err := h.mirror.ResyncApplication(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, resyncResp{ApplicationID: id, KYCStatus: string(st)})
}
