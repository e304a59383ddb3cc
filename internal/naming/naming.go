package naming

import (
	"strings"

	"github.com/google/uuid"

	"media-converter/internal/mediatypes"
)

// Namer hands out unique artifact names.
type Namer struct {
	token func() string
}

// New returns a Namer backed by crypto-random UUIDs.
func New() *Namer {
	return &Namer{token: randomToken}
}

func randomToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Token returns a fresh identifier without extension.
func (n *Namer) Token() string {
	return n.token()
}

// Next returns a unique name carrying the extension of originalFilename.
func (n *Namer) Next(originalFilename string) string {
	return n.WithExt(mediatypes.Ext(originalFilename))
}

// WithExt returns a unique name with the given extension. An empty
// extension yields a bare token.
func (n *Namer) WithExt(ext string) string {
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	if ext == "" {
		return n.token()
	}
	return n.token() + "." + ext
}

// IsGenerated reports whether name has the shape of an identifier produced
// by a Namer: 32 lowercase hex characters plus an optional bare extension.
func IsGenerated(name string) bool {
	token, ext, hasExt := strings.Cut(name, ".")
	if len(token) != 32 {
		return false
	}
	for _, r := range token {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'f') {
			return false
		}
	}
	return !hasExt || mediatypes.IsBareExt(ext)
}
