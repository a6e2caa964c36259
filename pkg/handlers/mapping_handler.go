package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/lkn2993/geode/pkg/models"
	"github.com/lkn2993/geode/pkg/services"
)

// CreateMappingRequest is the payload for creating or dry-running a
// region mapping.
type CreateMappingRequest struct {
	RegionName     string `json:"region_name"`
	DataSourceName string `json:"datasource_name"`
	TableName      string `json:"table_name,omitempty"`
	PdxName        string `json:"pdx_name,omitempty"`
	IDs            string `json:"ids,omitempty"`
}

func (r *CreateMappingRequest) toModel() *models.RegionMapping {
	return &models.RegionMapping{
		RegionName:     r.RegionName,
		DataSourceName: r.DataSourceName,
		TableName:      r.TableName,
		PdxName:        r.PdxName,
		IDs:            r.IDs,
	}
}

// MappingHandler handles region mapping endpoints.
type MappingHandler struct {
	service services.MappingService
	logger  *zap.Logger
}

// NewMappingHandler creates a new MappingHandler.
func NewMappingHandler(service services.MappingService, logger *zap.Logger) *MappingHandler {
	return &MappingHandler{service: service, logger: logger}
}

// RegisterRoutes registers the mapping handler's routes on the given mux.
func (h *MappingHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/mappings", h.List)
	mux.HandleFunc("POST /api/mappings", h.Create)
	mux.HandleFunc("POST /api/mappings/check", h.Check)
	mux.HandleFunc("GET /api/mappings/{region}", h.Get)
	mux.HandleFunc("DELETE /api/mappings/{region}", h.Delete)
}

// Check handles POST /api/mappings/check: the dry-run an operator reviews
// before creating a mapping.
func (h *MappingHandler) Check(w http.ResponseWriter, r *http.Request) {
	var req CreateMappingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	result, err := h.service.PreconditionCheck(r.Context(), req.toModel())
	if err != nil {
		h.logger.Warn("precondition check failed",
			zap.String("region", req.RegionName),
			zap.Error(err),
		)
		_ = WriteError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, result)
}

// Create handles POST /api/mappings.
func (h *MappingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateMappingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	mapping, err := h.service.Create(r.Context(), req.toModel())
	if err != nil {
		h.logger.Warn("failed to create mapping",
			zap.String("region", req.RegionName),
			zap.Error(err),
		)
		_ = WriteError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusCreated, mapping)
}

// Get handles GET /api/mappings/{region}.
func (h *MappingHandler) Get(w http.ResponseWriter, r *http.Request) {
	mapping, err := h.service.Get(r.Context(), r.PathValue("region"))
	if err != nil {
		_ = WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, mapping)
}

// List handles GET /api/mappings.
func (h *MappingHandler) List(w http.ResponseWriter, r *http.Request) {
	mappings, err := h.service.List(r.Context())
	if err != nil {
		_ = WriteError(w, err)
		return
	}
	if mappings == nil {
		mappings = []*models.RegionMapping{}
	}
	_ = WriteJSON(w, http.StatusOK, mappings)
}

// Delete handles DELETE /api/mappings/{region}.
func (h *MappingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	region := r.PathValue("region")
	if err := h.service.Delete(r.Context(), region); err != nil {
		_ = WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
