package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opencotacao/award-engine/internal/models"
	"github.com/opencotacao/award-engine/internal/reports"
	"github.com/opencotacao/award-engine/internal/services"
	"github.com/opencotacao/award-engine/internal/utils"
)

// SelectionHandler handles HTTP requests for auction sessions and awards.
type SelectionHandler struct {
	Service *services.SelectionService
	Writer  *reports.AwardWriter
	Logger  *logrus.Logger
	Timeout time.Duration
}

// NewSelectionHandler creates a new SelectionHandler.
func NewSelectionHandler(service *services.SelectionService, writer *reports.AwardWriter, logger *logrus.Logger, timeout time.Duration) *SelectionHandler {
	return &SelectionHandler{
		Service: service,
		Writer:  writer,
		Logger:  logger,
		Timeout: timeout,
	}
}

func (h *SelectionHandler) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), h.Timeout)
}

// CreateSelection handles requests to open an auction session.
func (h *SelectionHandler) CreateSelection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.SendError(w, http.StatusBadRequest, models.KindValidation, "invalid method, only POST is allowed")
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	var req models.SelectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendError(w, http.StatusBadRequest, models.KindValidation, "invalid request body")
		return
	}

	selection, err := h.Service.OpenSession(ctx, req)
	if err != nil {
		writeError(w, h.Logger, err, "failed to open selection")
		return
	}
	writeJSON(w, h.Logger, http.StatusOK, selection)
}

// GetSelection handles requests to fetch one selection.
func (h *SelectionHandler) GetSelection(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	selection, err := h.Service.GetSelection(ctx, r.PathValue("selectionId"))
	if err != nil {
		writeError(w, h.Logger, err, "failed to retrieve selection")
		return
	}
	writeJSON(w, h.Logger, http.StatusOK, selection)
}

// UpdateSelectionStatus handles the planned → disputing staff transition.
func (h *SelectionHandler) UpdateSelectionStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	status := r.URL.Query().Get("status")
	if status == "" {
		utils.SendError(w, http.StatusBadRequest, models.KindValidation, "missing required query parameter: status")
		return
	}

	selection, err := h.Service.UpdateSelectionStatus(ctx, r.PathValue("selectionId"), models.SelectionStatus(status))
	if err != nil {
		writeError(w, h.Logger, err, "failed to update selection status")
		return
	}
	writeJSON(w, h.Logger, http.StatusOK, selection)
}

// CancelSelection handles requests to cancel a session.
func (h *SelectionHandler) CancelSelection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.SendError(w, http.StatusBadRequest, models.KindValidation, "invalid method, only POST is allowed")
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	var req struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendError(w, http.StatusBadRequest, models.KindValidation, "invalid request body")
		return
	}

	selection, err := h.Service.Cancel(ctx, r.PathValue("selectionId"), req.Reason)
	if err != nil {
		writeError(w, h.Logger, err, "failed to cancel selection")
		return
	}
	writeJSON(w, h.Logger, http.StatusOK, selection)
}

// CloseSelection handles requests to close a session; the award decision is
// resolved and returned.
func (h *SelectionHandler) CloseSelection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.SendError(w, http.StatusBadRequest, models.KindValidation, "invalid method, only POST is allowed")
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	decision, err := h.Service.Close(ctx, r.PathValue("selectionId"))
	if err != nil {
		writeError(w, h.Logger, err, "failed to close selection")
		return
	}
	writeJSON(w, h.Logger, http.StatusOK, decision)
}

// GetAward handles requests to read the stored award decision.
func (h *SelectionHandler) GetAward(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.SendError(w, http.StatusBadRequest, models.KindValidation, "invalid method, only GET is allowed")
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	decision, err := h.Service.GetAward(ctx, r.PathValue("selectionId"))
	if err != nil {
		writeError(w, h.Logger, err, "failed to retrieve award decision")
		return
	}
	writeJSON(w, h.Logger, http.StatusOK, decision)
}

// GetAwardReport handles requests to download the award decision as a
// spreadsheet. The report is formatted here at the edge; the resolver only
// ever emits the decision object.
func (h *SelectionHandler) GetAwardReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.SendError(w, http.StatusBadRequest, models.KindValidation, "invalid method, only GET is allowed")
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	selectionID := r.PathValue("selectionId")
	decision, err := h.Service.GetAward(ctx, selectionID)
	if err != nil {
		writeError(w, h.Logger, err, "failed to retrieve award decision")
		return
	}
	selection, err := h.Service.GetSelection(ctx, selectionID)
	if err != nil {
		writeError(w, h.Logger, err, "failed to retrieve selection")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=award-%s.xlsx", selectionID))
	if err := h.Writer.WriteAward(w, selection, decision); err != nil {
		h.Logger.Errorln(err)
	}
}
