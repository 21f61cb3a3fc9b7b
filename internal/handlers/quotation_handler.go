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

// QuotationHandler handles HTTP requests for quotations, items, lots and the
// supplier roster.
type QuotationHandler struct {
	Service *services.QuotationService
	Logger  *logrus.Logger
	Timeout time.Duration
}

// NewQuotationHandler creates a new QuotationHandler.
func NewQuotationHandler(service *services.QuotationService, logger *logrus.Logger, timeout time.Duration) *QuotationHandler {
	return &QuotationHandler{
		Service: service,
		Logger:  logger,
		Timeout: timeout,
	}
}

func (h *QuotationHandler) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), h.Timeout)
}

// CreateQuotation handles requests to create a quotation.
func (h *QuotationHandler) CreateQuotation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.SendError(w, http.StatusBadRequest, models.KindValidation, "invalid method, only POST is allowed")
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	var req models.QuotationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendError(w, http.StatusBadRequest, models.KindValidation, "invalid request body")
		return
	}

	quotation, err := h.Service.CreateQuotation(ctx, req)
	if err != nil {
		writeError(w, h.Logger, err, "failed to create quotation")
		return
	}
	writeJSON(w, h.Logger, http.StatusOK, quotation)
}

// GetQuotations handles requests to list quotations.
func (h *QuotationHandler) GetQuotations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.SendError(w, http.StatusBadRequest, models.KindValidation, "invalid method, only GET is allowed")
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	quotations, err := h.Service.GetQuotations(ctx, r.URL.Query().Get("limit"), r.URL.Query().Get("offset"))
	if err != nil {
		writeError(w, h.Logger, err, "failed to retrieve quotations")
		return
	}
	if len(quotations) == 0 {
		utils.SendError(w, http.StatusNotFound, models.KindNotFound, "no quotations found")
		return
	}
	writeJSON(w, h.Logger, http.StatusOK, quotations)
}

// GetQuotation handles requests to fetch one quotation.
func (h *QuotationHandler) GetQuotation(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	quotation, err := h.Service.GetQuotation(ctx, r.PathValue("quotationId"))
	if err != nil {
		writeError(w, h.Logger, err, "failed to retrieve quotation")
		return
	}
	writeJSON(w, h.Logger, http.StatusOK, quotation)
}

// UpdateQuotationStatus handles requests to move a quotation through its
// lifecycle.
func (h *QuotationHandler) UpdateQuotationStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	status := r.URL.Query().Get("status")
	if status == "" {
		utils.SendError(w, http.StatusBadRequest, models.KindValidation, "missing required query parameter: status")
		return
	}

	quotation, err := h.Service.UpdateQuotationStatus(ctx, r.PathValue("quotationId"), models.QuotationStatus(status))
	if err != nil {
		writeError(w, h.Logger, err, "failed to update quotation status")
		return
	}
	writeJSON(w, h.Logger, http.StatusOK, quotation)
}

// UpdateQuotationCriterion handles requests to change the award criterion.
func (h *QuotationHandler) UpdateQuotationCriterion(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	criterion := r.URL.Query().Get("criterion")
	if criterion == "" {
		utils.SendError(w, http.StatusBadRequest, models.KindValidation, "missing required query parameter: criterion")
		return
	}

	quotation, err := h.Service.UpdateQuotationCriterion(ctx, r.PathValue("quotationId"), models.AwardCriterion(criterion))
	if err != nil {
		writeError(w, h.Logger, err, "failed to update quotation criterion")
		return
	}
	writeJSON(w, h.Logger, http.StatusOK, quotation)
}

// AddItem handles requests to add an item to a quotation.
func (h *QuotationHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.SendError(w, http.StatusBadRequest, models.KindValidation, "invalid method, only POST is allowed")
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	var req models.ItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendError(w, http.StatusBadRequest, models.KindValidation, "invalid request body")
		return
	}

	item, err := h.Service.AddItem(ctx, r.PathValue("quotationId"), req)
	if err != nil {
		writeError(w, h.Logger, err, "failed to add item")
		return
	}
	writeJSON(w, h.Logger, http.StatusOK, item)
}

// GetItems handles requests to list a quotation's items.
func (h *QuotationHandler) GetItems(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	items, err := h.Service.GetItems(ctx, r.PathValue("quotationId"))
	if err != nil {
		writeError(w, h.Logger, err, "failed to retrieve items")
		return
	}
	writeJSON(w, h.Logger, http.StatusOK, items)
}

// DeleteItem handles requests to delete an item; the renumbered remainder is
// returned.
func (h *QuotationHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		utils.SendError(w, http.StatusBadRequest, models.KindValidation, "invalid method, only DELETE is allowed")
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	items, err := h.Service.DeleteItem(ctx, r.PathValue("quotationId"), r.PathValue("itemId"))
	if err != nil {
		writeError(w, h.Logger, err, "failed to delete item")
		return
	}
	writeJSON(w, h.Logger, http.StatusOK, items)
}

// AddLot handles requests to add a lot to a quotation.
func (h *QuotationHandler) AddLot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.SendError(w, http.StatusBadRequest, models.KindValidation, "invalid method, only POST is allowed")
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	var req models.LotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendError(w, http.StatusBadRequest, models.KindValidation, "invalid request body")
		return
	}

	lot, err := h.Service.AddLot(ctx, r.PathValue("quotationId"), req)
	if err != nil {
		writeError(w, h.Logger, err, "failed to add lot")
		return
	}
	writeJSON(w, h.Logger, http.StatusOK, lot)
}

// InviteSupplier handles requests to invite a supplier to a quotation.
func (h *QuotationHandler) InviteSupplier(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.SendError(w, http.StatusBadRequest, models.KindValidation, "invalid method, only POST is allowed")
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	var req struct {
		SupplierID string `json:"supplierId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendError(w, http.StatusBadRequest, models.KindValidation, "invalid request body")
		return
	}

	if err := h.Service.InviteSupplier(ctx, r.PathValue("quotationId"), req.SupplierID); err != nil {
		writeError(w, h.Logger, err, "failed to invite supplier")
		return
	}
	writeJSON(w, h.Logger, http.StatusOK, map[string]string{"status": "invited"})
}

// ExcludeSupplier handles requests to exclude an invited supplier.
func (h *QuotationHandler) ExcludeSupplier(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	if err := h.Service.ExcludeSupplier(ctx, r.PathValue("quotationId"), r.PathValue("supplierId")); err != nil {
		writeError(w, h.Logger, err, "failed to exclude supplier")
		return
	}
	writeJSON(w, h.Logger, http.StatusOK, map[string]string{"status": "excluded"})
}

// GetEvaluation handles requests for the current evaluation of a quotation's
// responses: the consolidated baseline and winner attributions.
func (h *QuotationHandler) GetEvaluation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.SendError(w, http.StatusBadRequest, models.KindValidation, "invalid method, only GET is allowed")
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	result, err := h.Service.Evaluate(ctx, r.PathValue("quotationId"))
	if err != nil {
		writeError(w, h.Logger, err, "failed to evaluate quotation")
		return
	}
	writeJSON(w, h.Logger, http.StatusOK, result)
}
