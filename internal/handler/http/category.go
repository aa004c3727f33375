package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/domain"
	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/service"
	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/pkg/httputil"
)

// CategoryHandler handles HTTP requests for category endpoints.
type CategoryHandler struct {
	service *service.CategoryService
	logger  *slog.Logger
}

// NewCategoryHandler creates a new category HTTP handler.
func NewCategoryHandler(svc *service.CategoryService, logger *slog.Logger) *CategoryHandler {
	return &CategoryHandler{
		service: svc,
		logger:  logger,
	}
}

// ListCategories handles GET /api/v1/categories
// Query parameters: tree=true nests children under parents, parent=<slug>
// restricts to direct children, has_products=true|false, include_inactive
// (administrators only).
func (h *CategoryHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter domain.CategoryFilter

	if v := q.Get("parent"); v != "" {
		filter.ParentSlug = &v
	}
	if v := q.Get("has_products"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeInvalidParameter(w, "has_products must be true or false")
			return
		}
		filter.HasProducts = &b
	}
	if v := q.Get("include_inactive"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeInvalidParameter(w, "include_inactive must be true or false")
			return
		}
		filter.IncludeInactive = b
	}

	actor := actorFromRequest(r)

	if q.Get("tree") == "true" {
		tree, err := h.service.CategoryTree(r.Context(), actor, filter)
		if err != nil {
			httputil.WriteError(w, r, err, h.logger)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: tree})
		return
	}

	categories, err := h.service.ListCategories(r.Context(), actor, filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if categories == nil {
		categories = []domain.Category{}
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: categories})
}

// GetCategory handles GET /api/v1/categories/{slug}
func (h *CategoryHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	category, err := h.service.GetCategory(r.Context(), actorFromRequest(r), chi.URLParam(r, "slug"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: category})
}

// CreateCategory handles POST /api/v1/categories
func (h *CategoryHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateCategoryInput
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	category, err := h.service.CreateCategory(r.Context(), actorFromRequest(r), &req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: category})
}

// UpdateCategory handles PUT and PATCH /api/v1/categories/{slug}
func (h *CategoryHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateCategoryInput
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	category, err := h.service.UpdateCategory(r.Context(), actorFromRequest(r), chi.URLParam(r, "slug"), &req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: category})
}

// DeleteCategory handles DELETE /api/v1/categories/{slug}
// Descendant categories are deleted too; their products lose the category.
func (h *CategoryHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if err := h.service.DeleteCategory(r.Context(), actorFromRequest(r), slug); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeInvalidParameter(w http.ResponseWriter, msg string) {
	httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
		Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: msg},
	})
}
