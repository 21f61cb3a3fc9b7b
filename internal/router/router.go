package router

import (
	"net/http"

	"github.com/opencotacao/award-engine/internal/handlers"
)

func InitRoutes(
	quotationHandler *handlers.QuotationHandler,
	responseHandler *handlers.ResponseHandler,
	selectionHandler *handlers.SelectionHandler,
	bidHandler *handlers.BidHandler,
) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/ping", handlers.PingHandler)

	mux.HandleFunc("/api/quotations/new", quotationHandler.CreateQuotation)
	mux.HandleFunc("GET /api/quotations", quotationHandler.GetQuotations)
	mux.HandleFunc("GET /api/quotations/{quotationId}", quotationHandler.GetQuotation)
	mux.HandleFunc("PUT /api/quotations/{quotationId}/status", quotationHandler.UpdateQuotationStatus)
	mux.HandleFunc("PUT /api/quotations/{quotationId}/criterion", quotationHandler.UpdateQuotationCriterion)
	mux.HandleFunc("POST /api/quotations/{quotationId}/items", quotationHandler.AddItem)
	mux.HandleFunc("GET /api/quotations/{quotationId}/items", quotationHandler.GetItems)
	mux.HandleFunc("DELETE /api/quotations/{quotationId}/items/{itemId}", quotationHandler.DeleteItem)
	mux.HandleFunc("POST /api/quotations/{quotationId}/lots", quotationHandler.AddLot)
	mux.HandleFunc("POST /api/quotations/{quotationId}/suppliers", quotationHandler.InviteSupplier)
	mux.HandleFunc("PUT /api/quotations/{quotationId}/suppliers/{supplierId}/exclude", quotationHandler.ExcludeSupplier)
	mux.HandleFunc("GET /api/quotations/{quotationId}/evaluation", quotationHandler.GetEvaluation)

	mux.HandleFunc("POST /api/quotations/{quotationId}/responses", responseHandler.SubmitResponse)
	mux.HandleFunc("GET /api/quotations/{quotationId}/responses", responseHandler.GetResponses)
	mux.HandleFunc("PUT /api/responses/{responseId}/reject", responseHandler.RejectResponse)

	mux.HandleFunc("/api/selections/new", selectionHandler.CreateSelection)
	mux.HandleFunc("GET /api/selections/{selectionId}", selectionHandler.GetSelection)
	mux.HandleFunc("PUT /api/selections/{selectionId}/status", selectionHandler.UpdateSelectionStatus)
	mux.HandleFunc("POST /api/selections/{selectionId}/cancel", selectionHandler.CancelSelection)
	mux.HandleFunc("POST /api/selections/{selectionId}/close", selectionHandler.CloseSelection)
	mux.HandleFunc("GET /api/selections/{selectionId}/award", selectionHandler.GetAward)
	mux.HandleFunc("GET /api/selections/{selectionId}/award/report", selectionHandler.GetAwardReport)

	mux.HandleFunc("POST /api/selections/{selectionId}/bids", bidHandler.CreateBid)
	mux.HandleFunc("GET /api/selections/{selectionId}/bids", bidHandler.GetSelectionBids)
	mux.HandleFunc("GET /api/selections/{selectionId}/lowest", bidHandler.GetCurrentLowest)

	return mux
}
