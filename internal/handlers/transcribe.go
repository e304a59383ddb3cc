package handlers

import (
	"bytes"
	"mime"
	"net/http"
	"strconv"

	"media-converter/internal/apperror"
	"media-converter/internal/export"
	"media-converter/internal/mediatypes"
)

// maxJSONBody bounds the JSON bodies of the text endpoints.
const maxJSONBody = 10 << 20

// TranscribeAudio handles POST /transcribe/transcribe_audio.
func (h *Handlers) TranscribeAudio(w http.ResponseWriter, r *http.Request) {
	h.transcribe(w, r, mediatypes.KindAudio)
}

// TranscribeVideo handles POST /transcribe/transcribe_video.
func (h *Handlers) TranscribeVideo(w http.ResponseWriter, r *http.Request) {
	h.transcribe(w, r, mediatypes.KindVideo)
}

func (h *Handlers) transcribe(w http.ResponseWriter, r *http.Request, kind mediatypes.Kind) {
	u, err := h.readUpload(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer u.Close()

	result, err := h.transcription.Transcribe(r.Context(), kind, u.input, u.file, h.scope(w, r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusOK, result)
}

type saveTranscriptionRequest struct {
	Text   *string `json:"text"`
	Format string  `json:"format"`
}

// SaveTranscription handles POST /transcribe/save_transcription. The
// document is rendered in memory and returned as an attachment; nothing is
// written to the storage area.
func (h *Handlers) SaveTranscription(w http.ResponseWriter, r *http.Request) {
	var req saveTranscriptionRequest
	if err := decodeJSON(w, r, &req, maxJSONBody); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Text == nil || req.Format == "" {
		writeError(w, r, apperror.New(apperror.InvalidRequest, "Missing required fields (text, format)"))
		return
	}

	format, err := export.ParseFormat("format", req.Format)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var doc bytes.Buffer
	if err := export.Render(&doc, format, *req.Text); err != nil {
		writeError(w, r, apperror.Wrap(apperror.Internal, err, "Failed to generate transcription"))
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": format.Filename()}))
	w.Header().Set("Content-Length", strconv.Itoa(doc.Len()))
	w.WriteHeader(http.StatusOK)
	doc.WriteTo(w)
}

type translateTextRequest struct {
	Text     string `json:"text"`
	FromCode string `json:"from_code"`
	ToCode   string `json:"to_code"`
}

// TranslateText handles POST /transcribe/translate_text.
func (h *Handlers) TranslateText(w http.ResponseWriter, r *http.Request) {
	var req translateTextRequest
	if err := decodeJSON(w, r, &req, maxJSONBody); err != nil {
		writeError(w, r, err)
		return
	}

	translated, err := h.transcription.TranslateText(r.Context(), req.Text, req.FromCode, req.ToCode)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusOK, map[string]string{"translated_text": translated})
}
