package order

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/noah-isme/backend-pedidos/internal/common"
	"github.com/noah-isme/backend-pedidos/internal/events"
)

// Handler exposes the order-entry session endpoints.
type Handler struct {
	Manager  *Manager
	Svc      *Service
	Events   *events.Bus
	validate *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(manager *Manager, svc *Service, bus *events.Bus) *Handler {
	return &Handler{Manager: manager, Svc: svc, Events: bus, validate: validator.New()}
}

type clientPayload struct {
	ClientKey string `json:"clientKey" validate:"required"`
}

type linePayload struct {
	Ref      string `json:"ref" validate:"required"`
	Quantity int    `json:"quantity" validate:"required"`
}

type quantityPayload struct {
	Quantity int `json:"quantity" validate:"required"`
}

type submitPayload struct {
	DeliveryDate string `json:"deliveryDate"`
	Notes        string `json:"notes"`
}

// Create handles POST /api/v1/sessions.
func (h *Handler) Create(w http.ResponseWriter, _ *http.Request) {
	sess := h.Manager.Create()
	common.JSON(w, http.StatusCreated, map[string]any{"data": sess.Snapshot()})
}

// Get handles GET /api/v1/sessions/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": sess.Snapshot()})
}

// Delete handles DELETE /api/v1/sessions/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	h.Manager.Remove(sess.ID)
	w.WriteHeader(http.StatusNoContent)
}

// SelectClient handles PUT /api/v1/sessions/{id}/client.
func (h *Handler) SelectClient(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var payload clientPayload
	if !h.decode(w, r, &payload) {
		return
	}
	if err := h.Svc.SelectClient(sess, payload.ClientKey); err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": sess.Snapshot()})
}

// AddLine handles POST /api/v1/sessions/{id}/lines.
func (h *Handler) AddLine(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var payload linePayload
	if !h.decode(w, r, &payload) {
		return
	}
	line, err := h.Svc.AddLine(sess, payload.Ref, payload.Quantity)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"line":    line,
		"session": sess.Snapshot(),
	}})
}

// UpdateLine handles PATCH /api/v1/sessions/{id}/lines/{index}.
func (h *Handler) UpdateLine(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	index := common.AtoiDefault(chi.URLParam(r, "index"), -1)
	var payload quantityPayload
	if !h.decode(w, r, &payload) {
		return
	}
	line, err := h.Svc.UpdateQuantity(sess, index, payload.Quantity)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"line":    line,
		"session": sess.Snapshot(),
	}})
}

// RemoveLine handles DELETE /api/v1/sessions/{id}/lines/{index}.
func (h *Handler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	index := common.AtoiDefault(chi.URLParam(r, "index"), -1)
	if err := h.Svc.RemoveLine(sess, index); err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": sess.Snapshot()})
}

// Reset handles POST /api/v1/sessions/{id}/reset.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	h.Svc.Reset(sess)
	common.JSON(w, http.StatusOK, map[string]any{"data": sess.Snapshot()})
}

// Submit handles POST /api/v1/sessions/{id}/submit.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var payload submitPayload
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON payload", nil)
			return
		}
	}
	var deliveryDate time.Time
	if payload.DeliveryDate != "" {
		parsed, err := time.Parse("2006-01-02", payload.DeliveryDate)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "deliveryDate must be YYYY-MM-DD", nil)
			return
		}
		deliveryDate = parsed
	}
	doc, fileName, err := h.Svc.Submit(sess, deliveryDate, payload.Notes)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if h.Events != nil {
		// Notifier failures never fail the submission.
		_, _ = h.Events.Emit(r.Context(), events.TopicOrderSubmitted, map[string]any{
			"orderNumber": doc.OrderNumber,
			"clientKey":   doc.Buyer.ClientKey,
			"totalValue":  doc.BaseValue,
		})
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"document": doc,
		"fileName": fileName,
	}})
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusNotFound, "SESSION_NOT_FOUND", "session not found", nil)
		return nil, false
	}
	sess, ok := h.Manager.Get(id)
	if !ok {
		common.JSONError(w, http.StatusNotFound, "SESSION_NOT_FOUND", "session not found", nil)
		return nil, false
	}
	return sess, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON payload", nil)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid payload", err.Error())
		return false
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUnknownClient):
		common.JSONError(w, http.StatusNotFound, "UNKNOWN_CLIENT", "client key matches no catalog entry", nil)
	case errors.Is(err, ErrUnknownProduct):
		common.JSONError(w, http.StatusNotFound, "UNKNOWN_PRODUCT", "product not in client catalog", nil)
	case errors.Is(err, ErrNoClient):
		common.JSONError(w, http.StatusConflict, "NO_CLIENT", "select a client first", nil)
	case errors.Is(err, ErrNoPrice):
		common.JSONError(w, http.StatusUnprocessableEntity, "NO_PRICE", "no price for this quantity", nil)
	case errors.Is(err, ErrInvalidQuantity):
		common.JSONError(w, http.StatusBadRequest, "INVALID_QUANTITY", "quantity must be positive", nil)
	case errors.Is(err, ErrLineNotFound):
		common.JSONError(w, http.StatusNotFound, "LINE_NOT_FOUND", "line item not found", nil)
	case errors.Is(err, ErrEmptyOrder):
		common.JSONError(w, http.StatusConflict, "EMPTY_ORDER", "order has no line items", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unexpected error", nil)
	}
}
