package transcription

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"media-converter/internal/apperror"
)

func newTranslateServer(t *testing.T, calls *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		if r.URL.Path != "/translate" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		var req translateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if req.Target == "xx" {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "xx is not supported"})
			return
		}
		json.NewEncoder(w).Encode(map[string]string{
			"translatedText": "[" + req.Source + "->" + req.Target + "] " + req.Q,
		})
	}))
}

func TestHTTPTranslatorTranslate(t *testing.T) {
	var calls int32
	srv := newTranslateServer(t, &calls)
	defer srv.Close()

	tr, err := NewHTTPTranslator(srv.URL+"/", time.Second, 8)
	if err != nil {
		t.Fatal(err)
	}

	got, err := tr.Translate(context.Background(), "hola", "es", "en")
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if got != "[es->en] hola" {
		t.Errorf("Translate() = %q", got)
	}

	if _, err := tr.Translate(context.Background(), "hola", "es", "en"); err != nil {
		t.Fatal(err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("server called %d times, want 1 (second call cached)", n)
	}
}

func TestHTTPTranslatorSameLanguage(t *testing.T) {
	var calls int32
	srv := newTranslateServer(t, &calls)
	defer srv.Close()

	tr, _ := NewHTTPTranslator(srv.URL, time.Second, 0)
	got, err := tr.Translate(context.Background(), "hello", "en", "en")
	if err != nil || got != "hello" {
		t.Errorf("Translate() = %q, %v", got, err)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Error("same-language translation reached the server")
	}
}

func TestHTTPTranslatorErrors(t *testing.T) {
	var calls int32
	srv := newTranslateServer(t, &calls)

	tr, _ := NewHTTPTranslator(srv.URL, time.Second, 0)
	_, err := tr.Translate(context.Background(), "hello", "en", "xx")
	if !apperror.Is(err, apperror.ToolExecutionFailure) {
		t.Errorf("expected ToolExecutionFailure, got %v", err)
	}
	if appErr, _ := apperror.As(err); appErr == nil || appErr.Message != "Failed to translate text: xx is not supported" {
		t.Errorf("message = %v", err)
	}

	srv.Close()
	if _, err := tr.Translate(context.Background(), "hello", "en", "es"); !apperror.Is(err, apperror.ToolExecutionFailure) {
		t.Errorf("unreachable service: expected ToolExecutionFailure, got %v", err)
	}
}
