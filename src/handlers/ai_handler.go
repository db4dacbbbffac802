package handlers

import (
	"net/http"

	"github.com/username/taxinator/src/models"
	"github.com/username/taxinator/src/processors"
	"github.com/username/taxinator/src/utils"
)

// AIHandler exposes the best-effort free-text translation surface. A missing
// API key degrades to an "unavailable" response rather than an error.
type AIHandler struct {
	translator *processors.AITranslator
}

func NewAIHandler(translator *processors.AITranslator) *AIHandler {
	return &AIHandler{translator: translator}
}

func (h *AIHandler) HandleTranslate(w http.ResponseWriter, r *http.Request) {
	var req models.AITranslateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.InputText == "" {
		utils.SendJSONError(w, "input_text is required", http.StatusBadRequest)
		return
	}
	resp := h.translator.Translate(r.Context(), req)
	utils.SendJSON(w, resp, http.StatusOK)
}
