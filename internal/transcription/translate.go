package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"media-converter/internal/apperror"
	"media-converter/internal/logging"
	"media-converter/internal/metrics"
)

// maxTranslateResponse bounds how much of a translation response is read.
const maxTranslateResponse = 4 << 20

// Translator translates text between two base language codes.
type Translator interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
}

// HTTPTranslator talks to a LibreTranslate-compatible API and caches
// results in memory.
type HTTPTranslator struct {
	endpoint string
	client   *http.Client
	cache    *lru.Cache[string, string]
}

type translateRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
}

type translateResponse struct {
	TranslatedText string `json:"translatedText"`
	Error          string `json:"error"`
}

// NewHTTPTranslator creates a translator for the API at baseURL. A
// cacheSize of zero disables caching.
func NewHTTPTranslator(baseURL string, timeout time.Duration, cacheSize int) (*HTTPTranslator, error) {
	t := &HTTPTranslator{
		endpoint: strings.TrimRight(baseURL, "/") + "/translate",
		client:   &http.Client{Timeout: timeout},
	}
	if cacheSize > 0 {
		cache, err := lru.New[string, string](cacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create translation cache: %w", err)
		}
		t.cache = cache
	}
	return t, nil
}

func cacheKey(text, source, target string) string {
	return source + "\x00" + target + "\x00" + text
}

// Translate implements Translator.
func (t *HTTPTranslator) Translate(ctx context.Context, text, source, target string) (string, error) {
	if source == target || strings.TrimSpace(text) == "" {
		return text, nil
	}

	key := cacheKey(text, source, target)
	if t.cache != nil {
		if cached, ok := t.cache.Get(key); ok {
			metrics.TranslationCacheHits.Inc()
			return cached, nil
		}
		metrics.TranslationCacheMisses.Inc()
	}

	translated, err := t.post(ctx, translateRequest{Q: text, Source: source, Target: target, Format: "text"})
	if err != nil {
		metrics.TranslationsTotal.WithLabelValues("error").Inc()
		return "", err
	}
	metrics.TranslationsTotal.WithLabelValues("success").Inc()

	if t.cache != nil {
		t.cache.Add(key, translated)
	}
	return translated, nil
}

func (t *HTTPTranslator) post(ctx context.Context, body translateRequest) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", apperror.Wrap(apperror.Internal, err, "failed to encode translation request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", apperror.Wrap(apperror.Internal, err, "failed to build translation request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		logging.Warn("Translation request to %s failed: %v", t.endpoint, err)
		return "", apperror.Wrap(apperror.ToolExecutionFailure, err, "Failed to translate text: translation service unavailable")
	}
	defer resp.Body.Close()

	var out translateResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxTranslateResponse)).Decode(&out); err != nil {
		return "", apperror.Wrap(apperror.ToolExecutionFailure, err,
			"Failed to translate text: unreadable response (status %d)", resp.StatusCode)
	}

	if resp.StatusCode != http.StatusOK {
		detail := out.Error
		if detail == "" {
			detail = resp.Status
		}
		return "", apperror.New(apperror.ToolExecutionFailure, "Failed to translate text: %s", detail)
	}
	return out.TranslatedText, nil
}
