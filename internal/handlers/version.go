package handlers

import (
	"net/http"
	"sort"

	"media-converter/internal/mediatypes"
	"media-converter/internal/startup"
)

// VersionResponse is the build information plus what this build accepts,
// so clients can populate pickers without hard-coding format lists.
type VersionResponse struct {
	startup.BuildInfo
	InputFormats map[mediatypes.Kind][]string `json:"inputFormats"`
	Languages    []string                     `json:"languages,omitempty"`
}

// GetVersion returns the application version and build information
func (h *Handlers) GetVersion(w http.ResponseWriter, _ *http.Request) {
	resp := VersionResponse{
		BuildInfo:    startup.GetBuildInfo(),
		InputFormats: make(map[mediatypes.Kind][]string),
	}
	for _, kind := range []mediatypes.Kind{mediatypes.KindAudio, mediatypes.KindImage, mediatypes.KindVideo} {
		resp.InputFormats[kind] = sortedKeys(mediatypes.Extensions(kind))
	}
	if h.transcription != nil {
		resp.Languages = h.transcription.Languages().Codes()
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, resp)
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
