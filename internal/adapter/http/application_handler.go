package http

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	appDomain "kyc-backend/internal/domain/application"
	appUsecase "kyc-backend/internal/usecase/application"

	"github.com/labstack/echo/v4"
)

const uploadField = "document"

var allowedUploadTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"application/pdf": true,
}

type ApplicationHandler struct {
	uc        *appUsecase.Usecase
	maxUpload int64
}

func NewApplicationHandler(uc *appUsecase.Usecase, maxUpload int64) *ApplicationHandler {
	return &ApplicationHandler{uc: uc, maxUpload: maxUpload}
}

func (h *ApplicationHandler) Create(c echo.Context) error {
	var req appUsecase.FieldsInput
	if ok, err := bind(c, &req); !ok {
		return err
	}
	dto, err := h.uc.Create(c.Request().Context(), actor(c), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

func (h *ApplicationHandler) GetMine(c echo.Context) error {
	dto, err := h.uc.GetMine(c.Request().Context(), actor(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *ApplicationHandler) GetStatus(c echo.Context) error {
	dto, err := h.uc.GetStatus(c.Request().Context(), actor(c), c.Param("application_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *ApplicationHandler) Update(c echo.Context) error {
	var req appUsecase.FieldsInput
	if ok, err := bind(c, &req); !ok {
		return err
	}
	dto, err := h.uc.UpdateFields(c.Request().Context(), actor(c), c.Param("application_id"), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *ApplicationHandler) Submit(c echo.Context) error {
	dto, err := h.uc.Submit(c.Request().Context(), actor(c), c.Param("application_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *ApplicationHandler) Cancel(c echo.Context) error {
	dto, err := h.uc.Cancel(c.Request().Context(), actor(c), c.Param("application_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

// UploadDocument stores the multipart "document" file and attaches it to the slot.
// The type is sniffed from the content, never taken from the client.
func (h *ApplicationHandler) UploadDocument(c echo.Context) error {
	slot, err := appDomain.ParseSlot(c.Param("slot"))
	if err != nil {
		return writeError(c, err)
	}
	fh, err := c.FormFile(uploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || errors.Is(err, echo.ErrStatusRequestEntityTooLarge) {
			return c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: "file too large"})
		}
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "multipart field \"" + uploadField + "\" is required"})
	}
	if fh.Size > h.maxUpload {
		return c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: "file too large"})
	}
	f, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unreadable upload"})
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unreadable upload"})
	}
	head = head[:n]
	ct := http.DetectContentType(head)
	if !allowedUploadTypes[ct] {
		return c.JSON(http.StatusUnsupportedMediaType, ErrorResponse{Error: "only JPEG, PNG and PDF files are allowed"})
	}
	if slot == appDomain.SlotProfileImage && !strings.HasPrefix(ct, "image/") {
		return c.JSON(http.StatusUnsupportedMediaType, ErrorResponse{Error: "profile image must be an image"})
	}

	meta := appUsecase.DocumentInput{
		OriginalName: filepath.Base(fh.Filename),
		ContentType:  ct,
		Size:         fh.Size,
	}
	body := io.MultiReader(bytes.NewReader(head), f)
	dto, err := h.uc.AttachDocument(c.Request().Context(), actor(c), c.Param("application_id"), string(slot), meta, body)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *ApplicationHandler) DeleteDocument(c echo.Context) error {
	dto, err := h.uc.DeleteDocument(c.Request().Context(), actor(c), c.Param("application_id"), c.Param("slot"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

// Track is the public lookup by application number.
func (h *ApplicationHandler) Track(c echo.Context) error {
	dto, err := h.uc.TrackByApplicationNumber(c.Request().Context(), c.Param("application_number"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}
