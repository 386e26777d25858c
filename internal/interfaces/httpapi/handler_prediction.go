package httpapi

import (
	"net/http"

	"github.com/riskibarqy/player-valuation/internal/domain/valuation"
)

func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Predict")
	defer span.End()

	var req predictionRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	prediction, err := h.predictionService.Predict(ctx, req.toFeatures())
	if err != nil {
		h.logger.WarnContext(ctx, "predict salary failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, predictionDTO{
		PredictedSalary: prediction.PredictedSalary,
		Cached:          prediction.Cached,
	})
}

func (h *Handler) PredictBatch(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.PredictBatch")
	defer span.End()

	var req batchPredictionRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	features := make([]valuation.Features, 0, len(req.Items))
	for _, item := range req.Items {
		features = append(features, item.toFeatures())
	}

	items, err := h.predictionService.PredictBatch(ctx, features)
	if err != nil {
		h.logger.WarnContext(ctx, "batch predict salary failed", "items", len(features), "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, batchPredictionToDTO(items))
}
