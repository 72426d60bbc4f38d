package http

import (
	"net/http"
	"strconv"
	"time"

	"kyc-backend/internal/adapter/middleware"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

type Handler struct{}

func NewHandler() *Handler { return &Handler{} }

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339Nano),
	})
}

type Routes struct {
	Health       *Handler
	Applications *ApplicationHandler
	Admin        *AdminHandler
	// Metrics is served at /metrics when set.
	Metrics   http.Handler
	JWTSecret []byte
	// Idempotency guards mutating routes when set; mounted after auth.
	Idempotency echo.MiddlewareFunc
	// MaxBody caps request bodies, in bytes.
	MaxBody int64
}

// Register mounts every route on e.
func Register(e *echo.Echo, r Routes) {
	e.GET("/health", r.Health.Health)
	if r.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(r.Metrics))
	}

	api := e.Group("/api")
	if r.MaxBody > 0 {
		api.Use(echomw.BodyLimit(strconv.FormatInt(r.MaxBody, 10) + "B"))
	}
	api.GET("/kyc/track/:application_number", r.Applications.Track)

	mw := []echo.MiddlewareFunc{middleware.JWTAuth(r.JWTSecret)}
	if r.Idempotency != nil {
		mw = append(mw, r.Idempotency)
	}

	kyc := api.Group("/kyc/applications", mw...)
	kyc.POST("", r.Applications.Create)
	kyc.GET("/me", r.Applications.GetMine)
	kyc.GET("/:application_id/status", r.Applications.GetStatus)
	kyc.PATCH("/:application_id", r.Applications.Update)
	kyc.POST("/:application_id/submit", r.Applications.Submit)
	kyc.DELETE("/:application_id", r.Applications.Cancel)
	kyc.POST("/:application_id/documents/:slot", r.Applications.UploadDocument)
	kyc.DELETE("/:application_id/documents/:slot", r.Applications.DeleteDocument)

	admin := api.Group("/admin", append(mw, middleware.RequireReviewer)...)
	admin.GET("/applications", r.Admin.List)
	admin.GET("/applications/:application_id", r.Admin.Get)
	admin.GET("/stats", r.Admin.Stats)
	admin.GET("/dashboard", r.Admin.Dashboard)
	admin.GET("/export", r.Admin.Export)
	admin.POST("/applications/:application_id/begin-review", r.Admin.BeginReview)
	admin.PUT("/applications/:application_id/review", r.Admin.Review)
	admin.PUT("/applications/:application_id/documents/:slot/verify", r.Admin.VerifyDocument)
	admin.POST("/applications/:application_id/resync-mirror", r.Admin.ResyncMirror)
}
