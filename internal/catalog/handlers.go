package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/backend-pedidos/internal/common"
	"github.com/noah-isme/backend-pedidos/internal/events"
	"github.com/noah-isme/backend-pedidos/internal/pricing"
)

// Reloader triggers a catalog re-ingest. Implemented by Ingestor.
type Reloader interface {
	Run(ctx context.Context) error
}

// Handler exposes catalog endpoints.
type Handler struct {
	service  *Service
	reloader Reloader
	events   *events.Bus
	validate *validator.Validate
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Service  *Service
	Reloader Reloader
	Events   *events.Bus
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{
		service:  cfg.Service,
		reloader: cfg.Reloader,
		events:   cfg.Events,
		validate: validator.New(),
	}
}

// TierPayload carries one tier of a product write request.
type TierPayload struct {
	MinQuantity int           `json:"minQuantity" validate:"gte=0"`
	UnitPrice   pricing.Money `json:"unitPrice" validate:"gt=0"`
}

// ProductPayload carries a product create/update request.
type ProductPayload struct {
	Ref        string        `json:"ref" validate:"required"`
	Name       string        `json:"name" validate:"required"`
	Category   string        `json:"category"`
	ClientKey  string        `json:"clientKey"`
	ClientName string        `json:"clientName"`
	Tiers      []TierPayload `json:"tiers" validate:"required,min=1,dive"`
}

// ProductDetail is the single-product response shape.
type ProductDetail struct {
	Product
	Tiers []pricing.Tier `json:"tiers"`
}

// Clients handles GET /api/v1/clients.
func (h *Handler) Clients(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	clients, err := h.service.Clients(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": clients})
}

// Products handles GET /api/v1/products with client scoping, search, and pagination.
func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	q := r.URL.Query()
	matches, err := h.service.Search(r.Context(), q.Get("client"), q.Get("code"), q.Get("name"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	page, perPage := common.ParsePagination(r, 50)
	total := len(matches)
	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       matches[start:end],
		"pagination": common.Pagination{Page: page, PerPage: perPage, TotalItems: total},
	})
}

// ProductDetail handles GET /api/v1/products/{ref}.
func (h *Handler) ProductDetail(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ref")
	product, ok := h.service.Store().Product(ref)
	if !ok {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "product not found", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": ProductDetail{
		Product: product,
		Tiers:   h.service.Store().TiersFor(ref),
	}})
}

// Price handles GET /api/v1/products/{ref}/price?qty=N.
func (h *Handler) Price(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ref")
	qty := common.AtoiDefault(r.URL.Query().Get("qty"), 0)
	if qty <= 0 {
		common.JSONError(w, http.StatusBadRequest, "INVALID_QUANTITY", "qty must be a positive integer", nil)
		return
	}
	price := h.service.ResolvePrice(ref, qty)
	if price == 0 {
		common.JSONError(w, http.StatusUnprocessableEntity, "NO_PRICE", "no price for this quantity", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"ref":       ref,
		"quantity":  qty,
		"unitPrice": price,
	}})
}

// Create handles POST /api/v1/admin/products.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	payload, ok := h.decodeProduct(w, r)
	if !ok {
		return
	}
	product, tiers := payload.toDomain()
	if err := h.service.Store().Add(product, tiers); err != nil {
		h.writeError(w, err)
		return
	}
	h.service.Invalidate(r.Context())
	common.JSON(w, http.StatusCreated, map[string]any{"data": ProductDetail{
		Product: product,
		Tiers:   h.service.Store().TiersFor(product.Ref),
	}})
}

// Update handles PUT /api/v1/admin/products/{ref}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ref")
	payload, ok := h.decodeProduct(w, r)
	if !ok {
		return
	}
	product, tiers := payload.toDomain()
	if err := h.service.Store().Update(ref, product, tiers); err != nil {
		h.writeError(w, err)
		return
	}
	h.service.Invalidate(r.Context())
	updated, _ := h.service.Store().Product(ref)
	common.JSON(w, http.StatusOK, map[string]any{"data": ProductDetail{
		Product: updated,
		Tiers:   h.service.Store().TiersFor(ref),
	}})
}

// Delete handles DELETE /api/v1/admin/products/{ref}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ref")
	if err := h.service.Store().Remove(ref); err != nil {
		h.writeError(w, err)
		return
	}
	h.service.Invalidate(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// Reload handles POST /api/v1/admin/catalog/reload. A reload while another is
// in flight is rejected without queueing.
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	if h.reloader == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog reloader not configured", nil)
		return
	}
	if err := h.reloader.Run(r.Context()); err != nil {
		if errors.Is(err, ErrReloadInProgress) {
			common.JSONError(w, http.StatusConflict, "RELOAD_IN_PROGRESS", "catalog reload already running", nil)
			return
		}
		h.writeError(w, err)
		return
	}
	h.service.Invalidate(r.Context())
	if h.events != nil {
		_, _ = h.events.Emit(r.Context(), events.TopicCatalogReloaded, map[string]int{
			"products": len(h.service.Store().Products()),
		})
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]string{"status": "reloaded"}})
}

func (p ProductPayload) toDomain() (Product, []pricing.Tier) {
	tiers := make([]pricing.Tier, 0, len(p.Tiers))
	for _, t := range p.Tiers {
		tiers = append(tiers, pricing.Tier{MinQuantity: t.MinQuantity, UnitPrice: t.UnitPrice})
	}
	return Product{
		Ref:        p.Ref,
		Name:       p.Name,
		Category:   p.Category,
		ClientKey:  p.ClientKey,
		ClientName: p.ClientName,
	}, tiers
}

func (h *Handler) decodeProduct(w http.ResponseWriter, r *http.Request) (ProductPayload, bool) {
	var payload ProductPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON payload", nil)
		return payload, false
	}
	if err := h.validate.Struct(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid product payload", err.Error())
		return payload, false
	}
	return payload, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrDuplicateRef):
		common.JSONError(w, http.StatusConflict, "DUPLICATE_REF", "product reference already exists", nil)
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "product not found", nil)
	case errors.Is(err, ErrInvalidTier), errors.Is(err, ErrInvalidProduct):
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
	default:
		var appErr *common.AppError
		if errors.As(err, &appErr) {
			status := appErr.HTTPStatus
			if status == 0 {
				status = http.StatusInternalServerError
			}
			common.JSONError(w, status, appErr.Code, appErr.Message, appErr.Details)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unexpected error", nil)
	}
}
