package transcription

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"

	"media-converter/internal/apperror"
)

// DefaultLanguages is the allow-list used when none is configured.
const DefaultLanguages = "en,es,fr,de,it,pt,nl,ru,zh,ja,ko,ar,hi,pl,tr,uk"

// Languages is an allow-list of base language codes.
type Languages struct {
	allowed map[string]bool
	codes   []string
}

// ParseLanguages builds an allow-list from a comma separated list of BCP 47
// tags. Entries that do not parse are skipped.
func ParseLanguages(list string) Languages {
	l := Languages{allowed: make(map[string]bool)}
	for _, raw := range strings.Split(list, ",") {
		code, ok := baseCode(raw)
		if !ok || l.allowed[code] {
			continue
		}
		l.allowed[code] = true
		l.codes = append(l.codes, code)
	}
	return l
}

// Codes returns the allowed codes in configuration order.
func (l Languages) Codes() []string {
	return append([]string(nil), l.codes...)
}

// Normalize canonicalises code to its base language ("pt-BR" -> "pt") and
// checks it against the allow-list. With allowAuto, "" and "auto" mean
// "detect" and normalise to "".
func (l Languages) Normalize(field, code string, allowAuto bool) (string, error) {
	trimmed := strings.TrimSpace(code)
	if allowAuto && (trimmed == "" || strings.EqualFold(trimmed, "auto")) {
		return "", nil
	}

	base, ok := baseCode(trimmed)
	if !ok || !l.allowed[base] {
		return "", &apperror.Error{
			Reason:  apperror.UnsupportedLanguage,
			Field:   field,
			Message: fmt.Sprintf("Unsupported language %q. Supported languages: %s", trimmed, strings.Join(l.codes, ", ")),
		}
	}
	return base, nil
}

func baseCode(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	tag, err := language.Parse(raw)
	if err != nil {
		return "", false
	}
	base, confidence := tag.Base()
	if confidence == language.No {
		return "", false
	}
	return base.String(), true
}
