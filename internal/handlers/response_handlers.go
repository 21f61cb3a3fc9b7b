package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opencotacao/award-engine/internal/models"
	"github.com/opencotacao/award-engine/internal/services"
	"github.com/opencotacao/award-engine/internal/utils"
)

// ResponseHandler handles HTTP requests for supplier responses.
type ResponseHandler struct {
	Service *services.ResponseService
	Logger  *logrus.Logger
	Timeout time.Duration
}

// NewResponseHandler creates a new ResponseHandler.
func NewResponseHandler(service *services.ResponseService, logger *logrus.Logger, timeout time.Duration) *ResponseHandler {
	return &ResponseHandler{
		Service: service,
		Logger:  logger,
		Timeout: timeout,
	}
}

func (h *ResponseHandler) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), h.Timeout)
}

// SubmitResponse handles requests to submit a priced response.
func (h *ResponseHandler) SubmitResponse(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.SendError(w, http.StatusBadRequest, models.KindValidation, "invalid method, only POST is allowed")
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	var req models.ResponseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendError(w, http.StatusBadRequest, models.KindValidation, "invalid request body")
		return
	}

	response, err := h.Service.SubmitResponse(ctx, r.PathValue("quotationId"), req)
	if err != nil {
		writeError(w, h.Logger, err, "failed to submit response")
		return
	}
	writeJSON(w, h.Logger, http.StatusOK, response)
}

// GetResponses handles requests to list a quotation's responses.
func (h *ResponseHandler) GetResponses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.SendError(w, http.StatusBadRequest, models.KindValidation, "invalid method, only GET is allowed")
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	responses, err := h.Service.GetResponses(ctx, r.PathValue("quotationId"))
	if err != nil {
		writeError(w, h.Logger, err, "failed to retrieve responses")
		return
	}
	if len(responses) == 0 {
		utils.SendError(w, http.StatusNotFound, models.KindNotFound, "no responses found for this quotation")
		return
	}
	writeJSON(w, h.Logger, http.StatusOK, responses)
}

// RejectResponse handles requests to exclude a response from evaluation.
func (h *ResponseHandler) RejectResponse(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		utils.SendError(w, http.StatusBadRequest, models.KindValidation, "invalid method, only PUT is allowed")
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	response, err := h.Service.RejectResponse(ctx, r.PathValue("responseId"))
	if err != nil {
		writeError(w, h.Logger, err, "failed to reject response")
		return
	}
	writeJSON(w, h.Logger, http.StatusOK, response)
}
