package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"media-converter/internal/apperror"
	"media-converter/internal/metrics"
)

// Format is a transcript document format.
type Format string

const (
	TXT  Format = "txt"
	JSON Format = "json"
	DOCX Format = "docx"
	PDF  Format = "pdf"
)

// Formats lists the supported formats in the order they are advertised.
var Formats = []Format{TXT, DOCX, JSON, PDF}

// ParseFormat normalises raw. field names the request field in the error.
func ParseFormat(field, raw string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", apperror.Field(field, "Invalid format. Valid options are txt, docx, json, pdf.")
}

// ContentType is the MIME type served for f.
func (f Format) ContentType() string {
	switch f {
	case TXT:
		return "text/plain; charset=utf-8"
	case JSON:
		return "application/json"
	case DOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case PDF:
		return "application/pdf"
	}
	return "application/octet-stream"
}

// Filename is the attachment name used when a document is returned inline.
func (f Format) Filename() string {
	return "transcription." + string(f)
}

// Render writes text to w as a document in format f.
func Render(w io.Writer, f Format, text string) error {
	var err error
	switch f {
	case TXT:
		_, err = io.WriteString(w, text)
	case JSON:
		err = json.NewEncoder(w).Encode(struct {
			TranscribedText string `json:"transcribed_text"`
		}{text})
	case DOCX:
		err = writeDOCX(w, text)
	case PDF:
		err = writePDF(w, text)
	default:
		return fmt.Errorf("unsupported export format %q", f)
	}
	if err != nil {
		return fmt.Errorf("failed to render %s: %w", f, err)
	}
	metrics.ExportsTotal.WithLabelValues(string(f)).Inc()
	return nil
}
