package order_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pedidos/internal/catalog"
	"github.com/noah-isme/backend-pedidos/internal/events"
	"github.com/noah-isme/backend-pedidos/internal/order"
	"github.com/noah-isme/backend-pedidos/internal/pricing"
)

type sessionResponse struct {
	Data order.Snapshot `json:"data"`
}

type lineResponse struct {
	Data struct {
		Line    order.LineItem `json:"line"`
		Session order.Snapshot `json:"session"`
	} `json:"data"`
}

type submitResponse struct {
	Data struct {
		Document order.Document `json:"document"`
		FileName string         `json:"fileName"`
	} `json:"data"`
}

type errorResponse struct {
	Error struct {
		Code string `json:"code"`
	} `json:"error"`
}

func newHandlerFixture(t *testing.T) (*order.Handler, order.Snapshot) {
	t.Helper()
	store := catalog.NewStore()
	store.Replace([]catalog.Product{
		{Ref: "REF001", Name: "Producto Uno", Category: "General", ClientKey: "900123456-7", ClientName: "Empresa Demo SAS"},
	}, map[string][]pricing.Tier{
		"REF001": {
			{MinQuantity: 1, UnitPrice: 25000},
			{MinQuantity: 10, UnitPrice: 22000},
		},
	})

	svc := &order.Service{Catalog: store, Now: func() time.Time {
		return time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	}}
	bus := &events.Bus{Notifiers: []events.Notifier{events.LogNotifier{Logger: zerolog.Nop()}}}
	handler := order.NewHandler(order.NewManager(), svc, bus)

	rec := httptest.NewRecorder()
	handler.Create(rec, httptest.NewRequest(http.MethodPost, "/api/v1/sessions", nil))
	require.Equal(t, http.StatusCreated, rec.Code)
	var created sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Equal(t, order.StateNoClient, created.Data.State)
	return handler, created.Data
}

func withParams(req *http.Request, pairs ...string) *http.Request {
	routeCtx := chi.NewRouteContext()
	for i := 0; i < len(pairs); i += 2 {
		routeCtx.URLParams.Add(pairs[i], pairs[i+1])
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	handler, created := newHandlerFixture(t)
	id := created.ID.String()

	req := withParams(httptest.NewRequest(http.MethodPut, "/api/v1/sessions/"+id+"/client",
		strings.NewReader(`{"clientKey":"900123456-7"}`)), "id", id)
	rec := httptest.NewRecorder()
	handler.SelectClient(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var selected sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &selected))
	require.Equal(t, order.StateClientSelected, selected.Data.State)
	require.Equal(t, "Empresa Demo SAS", selected.Data.Client.Name)

	req = withParams(httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+id+"/lines",
		strings.NewReader(`{"ref":"REF001","quantity":10}`)), "id", id)
	rec = httptest.NewRecorder()
	handler.AddLine(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var added lineResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &added))
	require.Equal(t, pricing.Money(22000), added.Data.Line.UnitPrice)
	require.Equal(t, pricing.Money(220000), added.Data.Session.Total)

	req = withParams(httptest.NewRequest(http.MethodPatch, "/api/v1/sessions/"+id+"/lines/0",
		strings.NewReader(`{"quantity":5}`)), "id", id, "index", "0")
	rec = httptest.NewRecorder()
	handler.UpdateLine(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var updated lineResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	require.Equal(t, pricing.Money(25000), updated.Data.Line.UnitPrice)

	req = withParams(httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+id+"/submit",
		strings.NewReader(`{"deliveryDate":"2024-03-20","notes":"urgente"}`)), "id", id)
	rec = httptest.NewRecorder()
	handler.Submit(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var submitted submitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &submitted))
	require.Equal(t, "20/03/2024", submitted.Data.Document.DeliveryDate)
	require.Equal(t, "urgente", submitted.Data.Document.Notes)
	require.NotEmpty(t, submitted.Data.FileName)

	req = withParams(httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+id, nil), "id", id)
	rec = httptest.NewRecorder()
	handler.Get(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var after sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &after))
	require.Equal(t, order.StateNoClient, after.Data.State)
	require.Empty(t, after.Data.Lines)
}

func TestHandlerErrorCodes(t *testing.T) {
	handler, created := newHandlerFixture(t)
	id := created.ID.String()

	cases := []struct {
		name   string
		invoke func() *httptest.ResponseRecorder
		status int
		code   string
	}{
		{
			name: "unknown session",
			invoke: func() *httptest.ResponseRecorder {
				req := withParams(httptest.NewRequest(http.MethodGet, "/api/v1/sessions/x", nil), "id", "not-a-uuid")
				rec := httptest.NewRecorder()
				handler.Get(rec, req)
				return rec
			},
			status: http.StatusNotFound,
			code:   "SESSION_NOT_FOUND",
		},
		{
			name: "line before client",
			invoke: func() *httptest.ResponseRecorder {
				req := withParams(httptest.NewRequest(http.MethodPost, "/lines",
					strings.NewReader(`{"ref":"REF001","quantity":1}`)), "id", id)
				rec := httptest.NewRecorder()
				handler.AddLine(rec, req)
				return rec
			},
			status: http.StatusConflict,
			code:   "NO_CLIENT",
		},
		{
			name: "unknown client key",
			invoke: func() *httptest.ResponseRecorder {
				req := withParams(httptest.NewRequest(http.MethodPut, "/client",
					strings.NewReader(`{"clientKey":"nope"}`)), "id", id)
				rec := httptest.NewRecorder()
				handler.SelectClient(rec, req)
				return rec
			},
			status: http.StatusNotFound,
			code:   "UNKNOWN_CLIENT",
		},
		{
			name: "submit empty order",
			invoke: func() *httptest.ResponseRecorder {
				req := withParams(httptest.NewRequest(http.MethodPost, "/submit", nil), "id", id)
				rec := httptest.NewRecorder()
				handler.Submit(rec, req)
				return rec
			},
			status: http.StatusConflict,
			code:   "EMPTY_ORDER",
		},
		{
			name: "malformed body",
			invoke: func() *httptest.ResponseRecorder {
				req := withParams(httptest.NewRequest(http.MethodPut, "/client",
					strings.NewReader(`{`)), "id", id)
				rec := httptest.NewRecorder()
				handler.SelectClient(rec, req)
				return rec
			},
			status: http.StatusBadRequest,
			code:   "BAD_REQUEST",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := tc.invoke()
			require.Equal(t, tc.status, rec.Code, rec.Body.String())
			var body errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			require.Equal(t, tc.code, body.Error.Code)
		})
	}
}

func TestUnknownProductAndLineErrors(t *testing.T) {
	handler, created := newHandlerFixture(t)
	id := created.ID.String()

	req := withParams(httptest.NewRequest(http.MethodPut, "/client",
		strings.NewReader(`{"clientKey":"900123456-7"}`)), "id", id)
	rec := httptest.NewRecorder()
	handler.SelectClient(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = withParams(httptest.NewRequest(http.MethodPost, "/lines",
		strings.NewReader(`{"ref":"MISSING","quantity":1}`)), "id", id)
	rec = httptest.NewRecorder()
	handler.AddLine(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "UNKNOWN_PRODUCT", body.Error.Code)

	req = withParams(httptest.NewRequest(http.MethodDelete, "/lines/7", nil), "id", id, "index", "7")
	rec = httptest.NewRecorder()
	handler.RemoveLine(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "LINE_NOT_FOUND", body.Error.Code)
}

func TestDeleteSession(t *testing.T) {
	handler, created := newHandlerFixture(t)
	id := created.ID.String()

	req := withParams(httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/v1/sessions/%s", id), nil), "id", id)
	rec := httptest.NewRecorder()
	handler.Delete(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	req = withParams(httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+id, nil), "id", id)
	rec = httptest.NewRecorder()
	handler.Get(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
