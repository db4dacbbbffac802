package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/username/taxinator/src/config"
	"github.com/username/taxinator/src/logger"
	"github.com/username/taxinator/src/models"
	"github.com/username/taxinator/src/processors"
	"github.com/username/taxinator/src/services"
	"github.com/username/taxinator/src/utils"
)

type JobHandler struct {
	jobService services.JobService
}

func NewJobHandler(service services.JobService) *JobHandler {
	return &JobHandler{jobService: service}
}

// decodeJSON reads a bounded JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	limit := int64(10 * 1024 * 1024)
	if config.Cfg != nil && config.Cfg.MaxRequestBytes > 0 {
		limit = config.Cfg.MaxRequestBytes
	}
	body := http.MaxBytesReader(w, r.Body, limit)
	decoder := json.NewDecoder(body)
	decoder.UseNumber()
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			utils.SendJSONError(w, "Request body is required", http.StatusBadRequest)
		} else {
			utils.SendJSONError(w, fmt.Sprintf("Malformed request body: %v", err), http.StatusBadRequest)
		}
		return false
	}
	return true
}

// sendServiceError maps orchestrator errors onto HTTP statuses: input errors
// are 400/404, unmet transition guards and vendor-shape failures are 409, AI
// degradation is 503.
func sendServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrJobNotFound):
		utils.SendJSONError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, services.ErrInvalidRequest),
		errors.Is(err, services.ErrUnknownVendor),
		errors.Is(err, services.ErrUnknownProducer):
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, services.ErrNoTransactions),
		errors.Is(err, services.ErrNoIdentityRecords),
		errors.Is(err, services.ErrBlockingIssues),
		errors.Is(err, services.ErrNoTransformedPayload),
		errors.Is(err, services.ErrNotReconciled),
		errors.Is(err, services.ErrExportBlocked):
		utils.SendJSONError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, processors.ErrTemplateField):
		// Vendor-shape failure: the message names the unmet target field.
		utils.SendJSONError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, processors.ErrAIUnavailable):
		utils.SendJSONError(w, err.Error(), http.StatusServiceUnavailable)
	default:
		logger.L.Error("Internal error in job pipeline", "error", err)
		utils.SendJSONError(w, "An internal error occurred. Please try again later.", http.StatusInternalServerError)
	}
}

func (h *JobHandler) HandleStartJob(w http.ResponseWriter, r *http.Request) {
	var req models.StartJobRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.StartedBy == "" {
		if role, ok := RoleFromContext(r.Context()); ok {
			req.StartedBy = string(role)
		}
	}
	resp, err := h.jobService.StartJob(req)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	utils.SendJSON(w, resp, http.StatusOK)
}

func (h *JobHandler) HandleIngestCostBasis(w http.ResponseWriter, r *http.Request) {
	var req models.CostBasisIngestRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := h.jobService.IngestCostBasis(req)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	utils.SendJSON(w, resp, http.StatusOK)
}

func (h *JobHandler) HandleIngestIdentity(w http.ResponseWriter, r *http.Request) {
	var req models.IdentityIngestRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := h.jobService.IngestIdentity(req)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	utils.SendJSON(w, resp, http.StatusOK)
}

func (h *JobHandler) HandleTransform(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	var req models.TransformRequest
	if r.ContentLength != 0 {
		if !decodeJSON(w, r, &req) {
			return
		}
	}
	resp, err := h.jobService.Transform(r.Context(), jobID, req)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	utils.SendJSON(w, resp, http.StatusOK)
}

func (h *JobHandler) HandleReconcile(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	var req models.ReconcileRequest
	if r.ContentLength != 0 {
		if !decodeJSON(w, r, &req) {
			return
		}
	}
	resp, err := h.jobService.Reconcile(jobID, req)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	utils.SendJSON(w, resp, http.StatusOK)
}

func (h *JobHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	resp, err := h.jobService.Export(jobID)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	utils.SendJSON(w, resp, http.StatusOK)
}

func (h *JobHandler) HandleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.jobService.GetJob(r.PathValue("id"))
	if err != nil {
		sendServiceError(w, err)
		return
	}
	utils.SendJSON(w, job, http.StatusOK)
}

func (h *JobHandler) HandleListJobs(w http.ResponseWriter, r *http.Request) {
	utils.SendJSON(w, h.jobService.ListJobs(), http.StatusOK)
}

// HandleGetOutput serves the exported payload for the job's current vendor
// target once an export has produced a locator for it.
func (h *JobHandler) HandleGetOutput(w http.ResponseWriter, r *http.Request) {
	job, err := h.jobService.GetJob(r.PathValue("id"))
	if err != nil {
		sendServiceError(w, err)
		return
	}
	if job.Export == nil {
		utils.SendJSONError(w, "No exported payload available", http.StatusConflict)
		return
	}
	payload, ok := job.Translations[job.Export.VendorKey]
	if !ok {
		utils.SendJSONError(w, "No exported payload available", http.StatusConflict)
		return
	}
	utils.SendJSON(w, payload, http.StatusOK)
}

func (h *JobHandler) HandleLegacyIngestion(w http.ResponseWriter, r *http.Request) {
	var req models.LegacyIngestionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := h.jobService.IngestLegacy(req)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	utils.SendJSON(w, resp, http.StatusOK)
}

func (h *JobHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	if err := h.jobService.Reset(); err != nil {
		sendServiceError(w, err)
		return
	}
	utils.SendJSON(w, map[string]string{"status": "reset"}, http.StatusOK)
}
