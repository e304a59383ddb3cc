package transcription

import (
	"bytes"
	"context"
	"io"
	"strconv"
	"time"

	"media-converter/internal/apperror"
	"media-converter/internal/artifacts"
	"media-converter/internal/export"
	"media-converter/internal/logging"
	"media-converter/internal/mapping"
	"media-converter/internal/mediatypes"
	"media-converter/internal/metrics"
	"media-converter/internal/params"
	"media-converter/internal/pipeline"
	"media-converter/internal/workers"
)

// Request fields read by ParseOptions.
const (
	FieldInputLanguage  = "input_language"
	FieldOutputLanguage = "output_language"
	FieldSaveFile       = "save_file"
	FieldSaveFormat     = "save_format"
)

// DefaultOutputLanguage is used when output_language is absent.
const DefaultOutputLanguage = "en"

// Executor runs the audio extraction pipeline.
type Executor interface {
	Run(ctx context.Context, p pipeline.Pipeline) error
}

// Options are the validated transcription parameters.
type Options struct {
	InputLanguage  string // "" means detect
	OutputLanguage string
	SaveFile       bool
	SaveFormat     export.Format
}

// Result is returned for a successful transcription.
type Result struct {
	TranscribedText string `json:"transcribed_text"`
	InputLanguage   string `json:"input_language,omitempty"`
	OutputLanguage  string `json:"output_language"`
	Translated      bool   `json:"translated"`
	OutputFile      string `json:"output_file,omitempty"`
	OutputName      string `json:"output_name,omitempty"`
}

// Service extracts audio from an upload, transcribes it and optionally
// translates the text and stores it as a downloadable document.
type Service struct {
	storage     *artifacts.Storage
	builder     pipeline.Builder
	executor    Executor
	transcriber Transcriber
	translator  Translator
	languages   Languages
	registry    *mapping.Registry
	jobs        *workers.Limiter
}

// NewService creates a transcription Service.
func NewService(storage *artifacts.Storage, builder pipeline.Builder, executor Executor,
	transcriber Transcriber, translator Translator, languages Languages, registry *mapping.Registry) *Service {
	return &Service{
		storage:     storage,
		builder:     builder,
		executor:    executor,
		transcriber: transcriber,
		translator:  translator,
		languages:   languages,
		registry:    registry,
	}
}

// LimitJobs makes Transcribe wait for a slot of jobs once the request has
// been validated. Nil removes the limit.
func (s *Service) LimitJobs(jobs *workers.Limiter) {
	s.jobs = jobs
}

// Languages returns the allow-list the service validates against.
func (s *Service) Languages() Languages {
	return s.languages
}

// ParseOptions validates the transcription fields of in.
func (s *Service) ParseOptions(in params.Input) (Options, error) {
	var opts Options
	var err error

	if opts.InputLanguage, err = s.languages.Normalize(FieldInputLanguage, in.Get(FieldInputLanguage), true); err != nil {
		return opts, err
	}

	output := in.Get(FieldOutputLanguage)
	if output == "" {
		output = DefaultOutputLanguage
	}
	if opts.OutputLanguage, err = s.languages.Normalize(FieldOutputLanguage, output, false); err != nil {
		return opts, err
	}

	if raw := in.Get(FieldSaveFile); raw != "" {
		save, err := strconv.ParseBool(raw)
		if err != nil {
			return opts, apperror.Field(FieldSaveFile, "save_file must be true or false.")
		}
		opts.SaveFile = save
	}

	if opts.SaveFile {
		raw := in.Get(FieldSaveFormat)
		if raw == "" {
			raw = string(export.TXT)
		}
		if opts.SaveFormat, err = export.ParseFormat(FieldSaveFormat, raw); err != nil {
			return opts, err
		}
	}
	return opts, nil
}

// Transcribe handles one audio or video upload. Uploads, the extracted WAV
// and the recognizer's transcript are removed before it returns; a saved
// document is kept and recorded in scope.
func (s *Service) Transcribe(ctx context.Context, kind mediatypes.Kind, in params.Input, file io.Reader, scope mapping.Scope) (result *Result, err error) {
	start := time.Now()
	defer func() {
		status := "success"
		if err != nil || result == nil {
			status = "error"
		}
		metrics.TranscriptionsTotal.WithLabelValues(string(kind), status).Inc()
		metrics.TranscriptionDuration.Observe(time.Since(start).Seconds())
	}()

	filename := params.SanitizeFilename(in.Filename)
	if !in.HasFile || filename == "" {
		return nil, apperror.New(apperror.MissingFile, "No file selected for upload")
	}
	if file == nil {
		return nil, apperror.New(apperror.MissingFile, "No file part in the request")
	}
	if !mediatypes.IsAllowed(kind, filename) {
		return nil, apperror.New(apperror.UnsupportedInputFormat, "Unsupported input file format")
	}
	opts, err := s.ParseOptions(in)
	if err != nil {
		return nil, err
	}

	release, err := s.jobs.Admit(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	set := s.storage.NewSet()
	committed := false
	defer func() {
		if releaseErr := set.Release(committed); releaseErr != nil {
			logging.Warn("Cleanup after %s transcription left files behind: %v", kind, releaseErr)
		}
	}()

	uploadPath, size, err := set.SaveUpload(file, mediatypes.Ext(filename))
	if err != nil {
		return nil, apperror.Wrap(apperror.Internal, err, "failed to store upload")
	}
	metrics.UploadBytes.WithLabelValues(string(kind)).Observe(float64(size))

	wavPath := set.Intermediate("wav")
	if err = s.executor.Run(ctx, s.builder.ExtractAudio(uploadPath, wavPath)); err != nil {
		return nil, err
	}

	text, err := s.transcriber.Transcribe(ctx, wavPath, set.Transcript("txt"), opts.InputLanguage)
	if err != nil {
		return nil, err
	}

	result = &Result{
		TranscribedText: text,
		InputLanguage:   opts.InputLanguage,
		OutputLanguage:  opts.OutputLanguage,
	}

	// Without a known source language there is nothing to translate from.
	if opts.InputLanguage != "" && opts.InputLanguage != opts.OutputLanguage {
		translated, err := s.translator.Translate(ctx, text, opts.InputLanguage, opts.OutputLanguage)
		if err != nil {
			return nil, err
		}
		result.TranscribedText = translated
		result.Translated = true
	}

	if opts.SaveFile {
		var doc bytes.Buffer
		if err = export.Render(&doc, opts.SaveFormat, result.TranscribedText); err != nil {
			return nil, apperror.Wrap(apperror.Internal, err, "Failed to generate transcription")
		}
		path, id, _, saveErr := set.SaveOutput(&doc, string(opts.SaveFormat))
		if saveErr != nil {
			return nil, apperror.Wrap(apperror.Internal, saveErr, "Failed to generate transcription")
		}

		name := params.ReplaceExt(filename, string(opts.SaveFormat))
		if err = s.registry.Record(ctx, scope, mapping.Entry{
			OutputID:     id,
			OriginalName: name,
			Path:         path,
			Kind:         string(kind),
		}); err != nil {
			return nil, err
		}
		committed = true
		result.OutputFile = id
		result.OutputName = name
	}

	logging.Info("Transcribed %q (%s, %d chars, translated=%t) in %s", filename, kind,
		len(result.TranscribedText), result.Translated, time.Since(start).Round(time.Millisecond))
	return result, nil
}

// TranslateText validates both language codes and translates text.
func (s *Service) TranslateText(ctx context.Context, text, from, to string) (string, error) {
	if text == "" || from == "" || to == "" {
		return "", apperror.New(apperror.InvalidRequest, "Missing required fields (text, from_code, to_code)")
	}
	source, err := s.languages.Normalize("from_code", from, false)
	if err != nil {
		return "", err
	}
	target, err := s.languages.Normalize("to_code", to, false)
	if err != nil {
		return "", err
	}
	return s.translator.Translate(ctx, text, source, target)
}
