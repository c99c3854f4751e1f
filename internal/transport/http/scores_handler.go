package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "scorecli/internal/errors"
	"scorecli/internal/middleware"
	"scorecli/internal/services"
	"scorecli/pkg/contracts/domain"
)

// SheetParams are the path and query parameters of a sheet request
type SheetParams struct {
	Category string `json:"category" validate:"required,max=64"`
	Sheet    string `json:"sheet" validate:"sheetname"`
	From     string `query:"from" validate:"omitempty,datekey"`
	To       string `query:"to" validate:"omitempty,datekey"`
}

// EntityParams are the path parameters of an entity request
type EntityParams struct {
	Category string `json:"category" validate:"required,max=64"`
	Sheet    string `json:"sheet" validate:"sheetname"`
	Code     string `json:"code" validate:"required,max=32"`
}

// ScoresHandler serves persisted score sheets with RFC 7807 errors
type ScoresHandler struct {
	service      ScoreServiceInterface
	validator    *middleware.Validator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewScoresHandler creates a new scores handler
func NewScoresHandler(service ScoreServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ScoresHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScoresHandler{
		service:      service,
		validator:    middleware.NewValidator(),
		logger:       logger.With(slog.String("component", "scores_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the score routes
func (h *ScoresHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/", h.ListFiles)
	r.Route("/{category}/sheets/{sheet}", func(r chi.Router) {
		r.Get("/", h.GetSheet)
		r.Get("/entities/{code}", h.GetEntity)
	})
	return r
}

// ListFiles handles GET /api/files
func (h *ScoresHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := h.service.ListFiles(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"files": files,
		"count": len(files),
	})
}

// GetSheet handles GET /api/files/{category}/sheets/{sheet}?from=&to=
func (h *ScoresHandler) GetSheet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := SheetParams{
		Category: chi.URLParam(r, "category"),
		Sheet:    chi.URLParam(r, "sheet"),
		From:     q.Get("from"),
		To:       q.Get("to"),
	}
	if err := h.validator.ValidateStruct(params); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	from, to := parseOptionalDate(params.From), parseOptionalDate(params.To)
	if from != 0 && to != 0 && from > to {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("from", "from must not be after to"))
		return
	}

	view, err := h.service.GetSheet(r.Context(), params.Category, params.Sheet, from, to)
	if err != nil {
		h.errorHandler.HandleError(w, r, h.transformError(err))
		return
	}
	render.JSON(w, r, view)
}

// GetEntity handles GET /api/files/{category}/sheets/{sheet}/entities/{code}
func (h *ScoresHandler) GetEntity(w http.ResponseWriter, r *http.Request) {
	params := EntityParams{
		Category: chi.URLParam(r, "category"),
		Sheet:    chi.URLParam(r, "sheet"),
		Code:     chi.URLParam(r, "code"),
	}
	if err := h.validator.ValidateStruct(params); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	view, err := h.service.GetEntity(r.Context(), params.Category, params.Sheet, params.Code)
	if err != nil {
		h.errorHandler.HandleError(w, r, h.transformError(err))
		return
	}
	render.JSON(w, r, view)
}

// transformError maps service errors the shared handler does not know about
func (h *ScoresHandler) transformError(err error) error {
	switch {
	case errors.Is(err, services.ErrEntityNotFound):
		return apierrors.NotFoundError("entity")
	case errors.Is(err, services.ErrInvalidRange):
		return apierrors.ErrValidation("from", fmt.Sprintf("invalid range: %v", err))
	default:
		return err
	}
}

// parseOptionalDate returns 0 for an empty value. Callers validate first.
func parseOptionalDate(s string) domain.DateKey {
	if s == "" {
		return 0
	}
	d, _ := domain.ParseDateKey(s)
	return d
}
