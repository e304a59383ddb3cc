package handlers

import (
	"mime"
	"net/http"

	"github.com/gorilla/mux"

	"media-converter/internal/apperror"
	"media-converter/internal/logging"
	"media-converter/internal/mediatypes"
	"media-converter/internal/metrics"
)

// statusRecorder remembers the status http.ServeContent chose.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Download handles GET /download/{id}. The file is sent as an attachment
// named after the original upload with the output extension.
func (h *Handlers) Download(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	d, err := h.converter.Open(r.Context(), h.scope(w, r), id)
	if err != nil {
		if apperror.Is(err, apperror.NotFound) {
			metrics.DownloadsTotal.WithLabelValues("not_found").Inc()
		} else {
			metrics.DownloadsTotal.WithLabelValues("error").Inc()
		}
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", mediatypes.GetMimeType(mediatypes.Ext(d.Name)))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": d.Name}))
	w.Header().Set("Cache-Control", "no-store")

	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	http.ServeContent(rec, r, d.Name, d.Info.ModTime(), d.File)
	d.File.Close()

	switch rec.status {
	case http.StatusOK, http.StatusPartialContent, http.StatusNotModified:
		metrics.DownloadsTotal.WithLabelValues("success").Inc()
	default:
		metrics.DownloadsTotal.WithLabelValues("error").Inc()
		return
	}

	// Only a complete transfer counts as delivered.
	if h.opts.DeleteAfterDownload && rec.status == http.StatusOK && r.Method == http.MethodGet {
		if err := h.converter.Delivered(d); err != nil {
			logging.Warn("Failed to remove delivered output %s: %v", d.OutputID, err)
		}
	}
}
