package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"media-converter/internal/mapping"
)

// SessionCookie carries the client session used for session-scoped
// output mappings.
const SessionCookie = "mc_session"

const sessionMaxAge = 24 * 60 * 60

// scope returns the mapping scope for r. In session mode a client without
// a valid session cookie is issued one, so its outputs are private to it.
func (h *Handlers) scope(w http.ResponseWriter, r *http.Request) mapping.Scope {
	if !h.opts.SessionScope {
		return mapping.ProcessScope
	}

	if c, err := r.Cookie(SessionCookie); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return mapping.SessionScope(id.String())
		}
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	return mapping.SessionScope(id)
}
