package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"

	"media-converter/internal/apperror"
	"media-converter/internal/mediatypes"
	"media-converter/internal/params"
)

// multipartMemory is how much of a multipart body is held in memory before
// net/http spills it to a temporary file.
const multipartMemory = 32 << 20

// upload is a parsed multipart request carrying one "file" part.
type upload struct {
	input params.Input
	file  multipart.File
	form  *multipart.Form
}

func (u *upload) Close() {
	if u.file != nil {
		u.file.Close()
	}
	if u.form != nil {
		u.form.RemoveAll()
	}
}

// readUpload parses the multipart body of r. The caller must Close the
// result, which also removes net/http's temporary spill files.
func (h *Handlers) readUpload(w http.ResponseWriter, r *http.Request) (*upload, error) {
	if r.ContentLength > h.opts.MaxUploadSize {
		return nil, apperror.New(apperror.InvalidRequest, "Upload exceeds the maximum size of %d bytes", h.opts.MaxUploadSize)
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxUploadSize)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, apperror.New(apperror.InvalidRequest, "Upload exceeds the maximum size of %d bytes", maxErr.Limit)
		}
		return nil, apperror.New(apperror.MissingFile, "No file part in the request")
	}

	u := &upload{form: r.MultipartForm}
	u.input.Values = r.MultipartForm.Value

	file, header, err := r.FormFile("file")
	if err != nil {
		u.Close()
		return nil, apperror.New(apperror.MissingFile, "No file part in the request")
	}
	u.file = file
	u.input.HasFile = header.Filename != ""
	u.input.Filename = header.Filename
	return u, nil
}

// ConvertAudio handles POST /audio/convert_audio.
func (h *Handlers) ConvertAudio(w http.ResponseWriter, r *http.Request) {
	h.convert(w, r, mediatypes.KindAudio)
}

// ConvertImage handles POST /image/convert_image.
func (h *Handlers) ConvertImage(w http.ResponseWriter, r *http.Request) {
	h.convert(w, r, mediatypes.KindImage)
}

func (h *Handlers) convert(w http.ResponseWriter, r *http.Request, kind mediatypes.Kind) {
	u, err := h.readUpload(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer u.Close()

	scope := h.scope(w, r)
	result, err := h.converter.Convert(r.Context(), kind, u.input, u.file, scope)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusOK, result)
}
