package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/opencotacao/award-engine/internal/models"
	"github.com/opencotacao/award-engine/internal/utils"
)

// writeJSON encodes a successful response body.
func writeJSON(w http.ResponseWriter, logger *logrus.Logger, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Errorln(err)
	}
}

// writeError maps a service error onto the response: typed errors keep their
// status and kind, anything else becomes a 500 with the fallback message.
func writeError(w http.ResponseWriter, logger *logrus.Logger, err error, fallback string) {
	if errorResponse, ok := err.(*models.ErrorResponse); ok {
		logger.Warnln(err)
		utils.SendErrorResponse(w, errorResponse)
		return
	}
	logger.Errorln(err)
	utils.SendError(w, http.StatusInternalServerError, models.KindInternal, fallback)
}
