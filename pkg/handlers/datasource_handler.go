package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/lkn2993/geode/pkg/models"
	"github.com/lkn2993/geode/pkg/services"
)

// CreateDataSourceRequest is the payload for registering a data source.
type CreateDataSourceRequest struct {
	Name   string         `json:"name"`
	Type   string         `json:"type"`
	Config map[string]any `json:"config"`
}

// DataSourceHandler handles data source endpoints.
type DataSourceHandler struct {
	service services.DataSourceService
	logger  *zap.Logger
}

// NewDataSourceHandler creates a new DataSourceHandler.
func NewDataSourceHandler(service services.DataSourceService, logger *zap.Logger) *DataSourceHandler {
	return &DataSourceHandler{service: service, logger: logger}
}

// RegisterRoutes registers the data source handler's routes on the given mux.
func (h *DataSourceHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/datasources", h.List)
	mux.HandleFunc("POST /api/datasources", h.Create)
	mux.HandleFunc("POST /api/datasources/test", h.TestConnection)
	mux.HandleFunc("GET /api/datasources/types", h.Types)
	mux.HandleFunc("GET /api/datasources/{name}", h.Get)
	mux.HandleFunc("DELETE /api/datasources/{name}", h.Delete)
}

// Create handles POST /api/datasources.
func (h *DataSourceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateDataSourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	ds, err := h.service.Create(r.Context(), req.Name, req.Type, req.Config)
	if err != nil {
		h.logger.Warn("failed to create data source",
			zap.String("name", req.Name),
			zap.Error(err),
		)
		_ = WriteError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusCreated, ds)
}

// TestConnection handles POST /api/datasources/test: dial a config
// without saving it.
func (h *DataSourceHandler) TestConnection(w http.ResponseWriter, r *http.Request) {
	var req CreateDataSourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if err := h.service.TestConnection(r.Context(), req.Type, req.Config); err != nil {
		_ = WriteError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Types handles GET /api/datasources/types.
func (h *DataSourceHandler) Types(w http.ResponseWriter, r *http.Request) {
	_ = WriteJSON(w, http.StatusOK, h.service.AdapterTypes())
}

// Get handles GET /api/datasources/{name}.
func (h *DataSourceHandler) Get(w http.ResponseWriter, r *http.Request) {
	ds, err := h.service.Get(r.Context(), r.PathValue("name"))
	if err != nil {
		_ = WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, ds)
}

// List handles GET /api/datasources.
func (h *DataSourceHandler) List(w http.ResponseWriter, r *http.Request) {
	sources, err := h.service.List(r.Context())
	if err != nil {
		_ = WriteError(w, err)
		return
	}
	if sources == nil {
		sources = []*models.DataSource{}
	}
	_ = WriteJSON(w, http.StatusOK, sources)
}

// Delete handles DELETE /api/datasources/{name}.
func (h *DataSourceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), r.PathValue("name")); err != nil {
		_ = WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
