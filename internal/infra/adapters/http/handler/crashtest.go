// Package httphandler implements the REST endpoints by translating HTTP
// requests to application service calls and mapping domain errors back to
// HTTP responses.
package httphandler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	crashtestApp "github.com/crashlab/crashlab/internal/application/crashtest"
	"github.com/crashlab/crashlab/internal/domain/crashtest"
	"github.com/crashlab/crashlab/pkg/common/paging"
)

// TestHandler serves the test entity endpoints.
type TestHandler struct{ service *crashtestApp.Service }

// NewTestHandler creates a test handler over the provided service.
func NewTestHandler(service *crashtestApp.Service) *TestHandler {
	return &TestHandler{service: service}
}

type testPayload struct {
	ID           uuid.UUID `json:"id,omitempty"`
	TenantID     uuid.UUID `json:"tenantId"`
	Name         string    `json:"name"`
	Road         string    `json:"road,omitempty"`
	AccidentType string    `json:"accidentType,omitempty"`
	NrOfVehicles int       `json:"nrOfVehicles,omitempty"`
	Description  string    `json:"description,omitempty"`
	CreatedAt    time.Time `json:"createdAt,omitempty"`
}

type pagePayload struct {
	Data          []testPayload `json:"data"`
	TotalPages    int           `json:"totalPages"`
	TotalElements int64         `json:"totalElements"`
	HasNext       bool          `json:"hasNext"`
}

type errorPayload struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// GetTest handles GET /api/v1/tenants/{tenantID}/tests/{testID}.
func (h *TestHandler) GetTest(w http.ResponseWriter, r *http.Request) {
	tenantID, testID, ok := pathIDs(w, r)
	if !ok {
		return
	}

	t, err := h.service.FindTestByID(r.Context(), tenantID, testID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPayload(*t))
}

// GetTestInfo handles GET /api/v1/tenants/{tenantID}/tests/{testID}/info.
func (h *TestHandler) GetTestInfo(w http.ResponseWriter, r *http.Request) {
	tenantID, testID, ok := pathIDs(w, r)
	if !ok {
		return
	}

	info, err := h.service.FindTestInfoByID(r.Context(), tenantID, testID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, infoToPayload(*info))
}

// SaveTest handles POST /api/v1/tenants/{tenantID}/tests.
func (h *TestHandler) SaveTest(w http.ResponseWriter, r *http.Request) {
	tenantID, err := uuid.Parse(r.PathValue("tenantID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload{
			Error:   "invalid_tenant_id",
			Message: "tenant id must be a valid uuid",
		})
		return
	}

	var payload testPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload{
			Error:   "invalid_request",
			Message: "request body is not valid JSON",
		})
		return
	}

	t := &crashtest.Test{
		ID:           payload.ID,
		TenantID:     tenantID,
		Name:         payload.Name,
		Road:         payload.Road,
		AccidentType: payload.AccidentType,
		NrOfVehicles: payload.NrOfVehicles,
		Description:  payload.Description,
	}

	saved, err := h.service.SaveTest(r.Context(), t)
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusCreated
	if payload.ID != uuid.Nil {
		status = http.StatusOK
	}
	writeJSON(w, status, toPayload(*saved))
}

// DeleteTest handles DELETE /api/v1/tenants/{tenantID}/tests/{testID}.
func (h *TestHandler) DeleteTest(w http.ResponseWriter, r *http.Request) {
	tenantID, testID, ok := pathIDs(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteTest(r.Context(), tenantID, testID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListTests handles GET /api/v1/tenants/{tenantID}/tests.
func (h *TestHandler) ListTests(w http.ResponseWriter, r *http.Request) {
	tenantID, err := uuid.Parse(r.PathValue("tenantID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload{
			Error:   "invalid_tenant_id",
			Message: "tenant id must be a valid uuid",
		})
		return
	}

	link := paging.NewPageLink(0, paging.DefaultPageSize)
	if v := r.URL.Query().Get("page"); v != "" {
		link.Page, _ = strconv.Atoi(v)
	}
	if v := r.URL.Query().Get("pageSize"); v != "" {
		link.PageSize, _ = strconv.Atoi(v)
	}
	link.TextSearch = r.URL.Query().Get("textSearch")
	if r.URL.Query().Get("sortOrder") == paging.SortDesc {
		link.SortOrder = paging.SortDesc
	}

	page, err := h.service.FindTestsByTenantID(r.Context(), tenantID, link)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := pagePayload{
		Data:          make([]testPayload, 0, len(page.Data)),
		TotalPages:    page.TotalPages,
		TotalElements: page.TotalElements,
		HasNext:       page.HasNext,
	}
	for _, info := range page.Data {
		resp.Data = append(resp.Data, infoToPayload(info))
	}
	writeJSON(w, http.StatusOK, resp)
}

// DeleteTenantTests handles DELETE /api/v1/tenants/{tenantID}/tests.
func (h *TestHandler) DeleteTenantTests(w http.ResponseWriter, r *http.Request) {
	tenantID, err := uuid.Parse(r.PathValue("tenantID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload{
			Error:   "invalid_tenant_id",
			Message: "tenant id must be a valid uuid",
		})
		return
	}

	if err := h.service.DeleteTestsByTenantID(r.Context(), tenantID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func pathIDs(w http.ResponseWriter, r *http.Request) (tenantID, testID uuid.UUID, ok bool) {
	tenantID, err := uuid.Parse(r.PathValue("tenantID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload{
			Error:   "invalid_tenant_id",
			Message: "tenant id must be a valid uuid",
		})
		return uuid.Nil, uuid.Nil, false
	}
	testID, err = uuid.Parse(r.PathValue("testID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorPayload{
			Error:   "invalid_test_id",
			Message: "test id must be a valid uuid",
		})
		return uuid.Nil, uuid.Nil, false
	}
	return tenantID, testID, true
}

// writeError maps domain errors onto HTTP responses.
func writeError(w http.ResponseWriter, err error) {
	var validationErr *crashtest.ValidationError

	switch {
	case errors.Is(err, crashtest.ErrTestNotFound):
		writeJSON(w, http.StatusNotFound, errorPayload{
			Error:   "test_not_found",
			Message: "The specified test does not exist",
		})
	case errors.Is(err, crashtest.ErrQuotaExceeded):
		writeJSON(w, http.StatusConflict, errorPayload{
			Error:   "quota_exceeded",
			Message: err.Error(),
		})
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, errorPayload{
			Error:   "validation_failed",
			Message: validationErr.Reason,
		})
	case errors.Is(err, crashtest.ErrInvalidTestID),
		errors.Is(err, crashtest.ErrInvalidTenantID),
		errors.Is(err, crashtest.ErrInvalidPageLink):
		writeJSON(w, http.StatusBadRequest, errorPayload{
			Error:   "invalid_argument",
			Message: err.Error(),
		})
	default:
		writeJSON(w, http.StatusInternalServerError, errorPayload{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func toPayload(t crashtest.Test) testPayload {
	return testPayload{
		ID:           t.ID,
		TenantID:     t.TenantID,
		Name:         t.Name,
		Road:         t.Road,
		AccidentType: t.AccidentType,
		NrOfVehicles: t.NrOfVehicles,
		Description:  t.Description,
		CreatedAt:    t.CreatedAt,
	}
}

func infoToPayload(i crashtest.TestInfo) testPayload {
	return testPayload{
		ID:           i.ID,
		TenantID:     i.TenantID,
		Name:         i.Name,
		Road:         i.Road,
		AccidentType: i.AccidentType,
		NrOfVehicles: i.NrOfVehicles,
		Description:  i.Description,
		CreatedAt:    i.CreatedAt,
	}
}
