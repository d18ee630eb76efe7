package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/smart-trolley/internal/domain/identity"
)

func (h *Handler) analyticsSummary(w http.ResponseWriter, r *http.Request, _ identity.User) {
	sum, err := h.reports.Summary(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	var e jx.Encoder
	encodeSummary(&e, sum)
	writeJSON(w, http.StatusOK, e.Bytes())
}
