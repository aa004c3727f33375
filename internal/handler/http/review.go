package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/domain"
	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/service"
	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/pkg/httputil"
	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/pkg/pagination"
)

// ReviewHandler handles HTTP requests for review endpoints.
type ReviewHandler struct {
	service *service.ReviewService
	logger  *slog.Logger
}

// NewReviewHandler creates a new review HTTP handler.
func NewReviewHandler(svc *service.ReviewService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{
		service: svc,
		logger:  logger,
	}
}

// ReviewListResponse is a page of approved reviews with the product's
// rating aggregate.
type ReviewListResponse struct {
	RatingSummaryResponse
	pagination.Result[domain.Review]
}

// ListReviews handles GET /api/v1/products/{slug}/reviews
func (h *ReviewHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r)
	page, err := h.service.ListReviews(r.Context(), actorFromRequest(r), chi.URLParam(r, "slug"), params)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, ReviewListResponse{
		RatingSummaryResponse: newRatingSummaryResponse(page.Summary),
		Result:                pagination.NewResult(page.Reviews, page.Total, params),
	})
}

// CreateReview handles POST /api/v1/products/{slug}/reviews
// One review per user and product; a second one is answered with 409.
func (h *ReviewHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateReviewInput
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	review, err := h.service.CreateReview(r.Context(), actorFromRequest(r), chi.URLParam(r, "slug"), &req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: review})
}

// UpdateReview handles PUT and PATCH /api/v1/products/{slug}/reviews/{id}
func (h *ReviewHandler) UpdateReview(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req domain.UpdateReviewInput
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	review, err := h.service.UpdateReview(r.Context(), actorFromRequest(r), chi.URLParam(r, "slug"), id.String(), &req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: review})
}

// ApproveReview handles POST /api/v1/products/{slug}/reviews/{id}/approve
func (h *ReviewHandler) ApproveReview(w http.ResponseWriter, r *http.Request) {
	h.setApproval(w, r, true)
}

// UnapproveReview handles POST /api/v1/products/{slug}/reviews/{id}/unapprove
func (h *ReviewHandler) UnapproveReview(w http.ResponseWriter, r *http.Request) {
	h.setApproval(w, r, false)
}

func (h *ReviewHandler) setApproval(w http.ResponseWriter, r *http.Request, approved bool) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	review, err := h.service.SetApproval(r.Context(), actorFromRequest(r), chi.URLParam(r, "slug"), id.String(), approved)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: review})
}

// DeleteReview handles DELETE /api/v1/products/{slug}/reviews/{id}
func (h *ReviewHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.DeleteReview(r.Context(), actorFromRequest(r), chi.URLParam(r, "slug"), id.String()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
