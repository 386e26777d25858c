package httpapi

import "net/http"

func (h *Handler) GetRefreshState(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetRefreshState")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, refreshStateToDTO(h.batchService.State()))
}

func (h *Handler) RunRefresh(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunRefresh")
	defer span.End()

	state, err := h.batchService.Refresh(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "manual refresh failed", "error", err)
		writeErrorMessage(ctx, w, err, state.Message)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, refreshStateToDTO(state))
}
