package handlers

import (
	"net/http"

	"media-converter/internal/apperror"
	"media-converter/internal/database"
)

const recentConversions = 20

// StatsResponse summarises past work and the current storage footprint.
type StatsResponse struct {
	Conversions *database.ConversionStats `json:"conversions,omitempty"`
	Recent      []database.Conversion     `json:"recent,omitempty"`
	Mappings    int                       `json:"mappings"`
	Storage     map[string]int64          `json:"storage"`
}

// GetStats handles GET /api/stats.
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	mappings, err := h.registry.Count(ctx)
	if err != nil {
		writeError(w, r, apperror.Wrap(apperror.Internal, err, "Failed to count output mappings"))
		return
	}

	resp := StatsResponse{
		Mappings: mappings,
		Storage:  h.storage.Usage(),
	}

	if h.db != nil {
		stats, err := h.db.ConversionStats(ctx)
		if err != nil {
			writeError(w, r, apperror.Wrap(apperror.Internal, err, "Failed to load conversion stats"))
			return
		}
		resp.Conversions = &stats

		recent, err := h.db.RecentConversions(ctx, recentConversions)
		if err != nil {
			writeError(w, r, apperror.Wrap(apperror.Internal, err, "Failed to load recent conversions"))
			return
		}
		resp.Recent = recent
	}

	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, resp)
}
