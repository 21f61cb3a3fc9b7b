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

// BidHandler handles HTTP requests for the bid ledger.
type BidHandler struct {
	Service *services.BidService
	Logger  *logrus.Logger
	Timeout time.Duration
}

// NewBidHandler creates a new BidHandler.
func NewBidHandler(service *services.BidService, logger *logrus.Logger, timeout time.Duration) *BidHandler {
	return &BidHandler{
		Service: service,
		Logger:  logger,
		Timeout: timeout,
	}
}

func (h *BidHandler) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), h.Timeout)
}

// CreateBid handles requests to place a bid. A concurrency rejection is a
// normal outcome: the response carries the fresh lowest so the supplier can
// immediately bid again.
func (h *BidHandler) CreateBid(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.SendError(w, http.StatusBadRequest, models.KindValidation, "invalid method, only POST is allowed")
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	var req models.BidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendError(w, http.StatusBadRequest, models.KindValidation, "invalid request body")
		return
	}

	result, err := h.Service.SubmitBid(ctx, r.PathValue("selectionId"), req)
	if err != nil {
		writeError(w, h.Logger, err, "failed to submit bid")
		return
	}
	writeJSON(w, h.Logger, http.StatusOK, result)
}

// GetSelectionBids handles requests to list a selection's ledger.
func (h *BidHandler) GetSelectionBids(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.SendError(w, http.StatusBadRequest, models.KindValidation, "invalid method, only GET is allowed")
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	bids, err := h.Service.GetBids(ctx, r.PathValue("selectionId"), r.URL.Query().Get("limit"), r.URL.Query().Get("offset"))
	if err != nil {
		writeError(w, h.Logger, err, "failed to retrieve bids")
		return
	}
	if len(bids) == 0 {
		utils.SendError(w, http.StatusNotFound, models.KindNotFound, "no bids found for this selection")
		return
	}
	writeJSON(w, h.Logger, http.StatusOK, bids)
}

// GetCurrentLowest handles requests for the value a new bid must beat.
func (h *BidHandler) GetCurrentLowest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.SendError(w, http.StatusBadRequest, models.KindValidation, "invalid method, only GET is allowed")
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	lowest, err := h.Service.CurrentLowest(ctx, r.PathValue("selectionId"))
	if err != nil {
		writeError(w, h.Logger, err, "failed to retrieve current lowest")
		return
	}
	writeJSON(w, h.Logger, http.StatusOK, map[string]any{"currentLowest": lowest})
}
