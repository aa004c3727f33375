package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/domain"
	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/internal/service"
	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/pkg/httputil"
	"github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/pkg/pagination"
)

// ProductHandler handles HTTP requests for product endpoints.
type ProductHandler struct {
	service *service.ProductService
	logger  *slog.Logger
}

// NewProductHandler creates a new product HTTP handler.
func NewProductHandler(svc *service.ProductService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		service: svc,
		logger:  logger,
	}
}

// ListProducts handles GET /api/v1/products
// Query parameters: category (slug), featured, status (administrators only),
// min_price, max_price, search, in_stock, ordering, page, per_page.
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := pagination.FromRequest(r)
	filter := domain.ProductFilter{
		Limit:  params.PerPage,
		Offset: params.Offset(),
	}

	if v := q.Get("category"); v != "" {
		filter.CategorySlug = &v
	}
	if v := q.Get("search"); v != "" {
		filter.Search = &v
	}
	if v := q.Get("status"); v != "" {
		if !domain.IsValidStatus(v) {
			writeInvalidParameter(w, "status must be one of: draft, published, archived")
			return
		}
		filter.Status = &v
	}
	if v := q.Get("ordering"); v != "" {
		if !domain.IsValidOrdering(v) {
			writeInvalidParameter(w, "ordering must be one of: price, -price, created_at, -created_at, name, -name, average_rating, -average_rating")
			return
		}
		filter.Ordering = v
	}

	var ok bool
	if filter.Featured, ok = boolParam(w, q.Get("featured"), "featured"); !ok {
		return
	}
	if filter.InStock, ok = boolParam(w, q.Get("in_stock"), "in_stock"); !ok {
		return
	}
	if filter.MinPrice, ok = decimalParam(w, q.Get("min_price"), "min_price"); !ok {
		return
	}
	if filter.MaxPrice, ok = decimalParam(w, q.Get("max_price"), "max_price"); !ok {
		return
	}

	actor := actorFromRequest(r)
	products, total, err := h.service.ListProducts(r.Context(), actor, filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, pagination.NewResult(newProductResponses(products, actor.IsAdmin), total, params))
}

// FeaturedProducts handles GET /api/v1/products/featured
func (h *ProductHandler) FeaturedProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.FeaturedProducts(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: newProductResponses(products, actorFromRequest(r).IsAdmin)})
}

// OnSaleProducts handles GET /api/v1/products/on-sale
func (h *ProductHandler) OnSaleProducts(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r)
	products, total, err := h.service.OnSaleProducts(r.Context(), params)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, pagination.NewResult(newProductResponses(products, actorFromRequest(r).IsAdmin), total, params))
}

// GetProduct handles GET /api/v1/products/{slug}
// Returns the product with its category, images (default first) and latest
// approved reviews.
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	actor := actorFromRequest(r)
	detail, err := h.service.GetProductDetail(r.Context(), actor, chi.URLParam(r, "slug"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: newProductDetailResponse(detail, actor.IsAdmin)})
}

// CreateProduct handles POST /api/v1/products
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateProductInput
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	product, err := h.service.CreateProduct(r.Context(), actorFromRequest(r), &req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: newProductResponse(product, true)})
}

// UpdateProduct handles PUT and PATCH /api/v1/products/{slug}
// All fields are optional. The slug is kept unless one is supplied.
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateProductInput
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	product, err := h.service.UpdateProduct(r.Context(), actorFromRequest(r), chi.URLParam(r, "slug"), &req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: newProductResponse(product, true)})
}

// DeleteProduct handles DELETE /api/v1/products/{slug}
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteProduct(r.Context(), actorFromRequest(r), chi.URLParam(r, "slug")); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddImage handles POST /api/v1/products/{slug}/images
func (h *ProductHandler) AddImage(w http.ResponseWriter, r *http.Request) {
	var req domain.AddImageInput
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	image, err := h.service.AddImage(r.Context(), actorFromRequest(r), chi.URLParam(r, "slug"), &req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: image})
}

// DeleteImage handles DELETE /api/v1/products/{slug}/images/{imageID}
func (h *ProductHandler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "imageID"))
	if !ok {
		return
	}
	if err := h.service.DeleteImage(r.Context(), actorFromRequest(r), chi.URLParam(r, "slug"), id.String()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func boolParam(w http.ResponseWriter, v, name string) (*bool, bool) {
	if v == "" {
		return nil, true
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		writeInvalidParameter(w, name+" must be true or false")
		return nil, false
	}
	return &b, true
}

func decimalParam(w http.ResponseWriter, v, name string) (*decimal.Decimal, bool) {
	if v == "" {
		return nil, true
	}
	d, err := decimal.NewFromString(v)
	if err != nil || d.IsNegative() {
		writeInvalidParameter(w, name+" must be a non-negative number")
		return nil, false
	}
	return &d, true
}
