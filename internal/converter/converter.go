package converter

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"media-converter/internal/apperror"
	"media-converter/internal/artifacts"
	"media-converter/internal/database"
	"media-converter/internal/logging"
	"media-converter/internal/mapping"
	"media-converter/internal/media"
	"media-converter/internal/mediatypes"
	"media-converter/internal/metrics"
	"media-converter/internal/params"
	"media-converter/internal/pipeline"
	"media-converter/internal/workers"
)

// Executor runs a built pipeline.
type Executor interface {
	Run(ctx context.Context, p pipeline.Pipeline) error
}

// History receives one row per finished conversion. It may be nil.
type History interface {
	RecordConversion(ctx context.Context, c database.Conversion) error
}

// Result is returned for a successful conversion.
type Result struct {
	Message    string           `json:"message"`
	OutputFile string           `json:"output_file"`
	OutputName string           `json:"output_name"`
	Stages     int              `json:"stages"`
	Image      *media.ImageInfo `json:"image,omitempty"`
}

// Service converts uploads into downloadable outputs.
type Service struct {
	storage  *artifacts.Storage
	builder  pipeline.Builder
	executor Executor
	registry *mapping.Registry
	history  History
	jobs     *workers.Limiter
}

// New creates a conversion Service.
func New(storage *artifacts.Storage, builder pipeline.Builder, executor Executor, registry *mapping.Registry, history History) *Service {
	return &Service{
		storage:  storage,
		builder:  builder,
		executor: executor,
		registry: registry,
		history:  history,
	}
}

// LimitJobs makes Convert wait for a slot of jobs once the request has
// been validated. Nil removes the limit.
func (s *Service) LimitJobs(jobs *workers.Limiter) {
	s.jobs = jobs
}

// Convert validates in, stores the upload read from file, runs the
// pipeline and records the output in scope. Every artifact except the
// recorded output is removed before Convert returns, on every path.
func (s *Service) Convert(ctx context.Context, kind mediatypes.Kind, in params.Input, file io.Reader, scope mapping.Scope) (result *Result, err error) {
	start := time.Now()
	metrics.ConversionsInProgress.Inc()

	row := database.Conversion{Kind: string(kind), InputName: params.SanitizeFilename(in.Filename)}
	defer func() {
		metrics.ConversionsInProgress.Dec()
		status := "success"
		switch {
		case err != nil:
			status = string(apperror.ReasonOf(err))
		case result == nil:
			// unwinding from a panic
			status = string(apperror.Internal)
		}
		metrics.ConversionsTotal.WithLabelValues(string(kind), status).Inc()
		metrics.ConversionDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())

		row.Status = status
		row.DurationMS = time.Since(start).Milliseconds()
		s.recordHistory(row)
	}()

	req, err := params.Validate(kind, in)
	if err != nil {
		logging.Debug("Rejected %s conversion of %q: %v", kind, in.Filename, err)
		return nil, err
	}
	if file == nil {
		return nil, apperror.New(apperror.MissingFile, "No file part in the request")
	}
	row.OutputFormat = req.OutputFormat

	release, err := s.jobs.Admit(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	set := s.storage.NewSet()
	committed := false
	defer func() {
		if releaseErr := set.Release(committed); releaseErr != nil {
			logging.Warn("Cleanup after %s conversion left files behind: %v", kind, releaseErr)
		}
	}()

	uploadPath, size, err := set.SaveUpload(file, req.InputExt)
	if err != nil {
		return nil, apperror.Wrap(apperror.Internal, err, "failed to store upload")
	}
	metrics.UploadBytes.WithLabelValues(string(kind)).Observe(float64(size))

	outputPath, outputID := set.Output(req.OutputFormat)
	paths := pipeline.Paths{Input: uploadPath, Output: outputPath}
	if req.Kind == mediatypes.KindImage && req.Image.NeedsStaging() {
		paths.Intermediate = set.Intermediate(req.OutputFormat)
	}

	p, err := s.builder.Build(req, paths)
	if err != nil {
		return nil, apperror.Wrap(apperror.Internal, err, "failed to build conversion pipeline")
	}
	row.Stages = p.Len()
	metrics.ConversionStages.WithLabelValues(string(kind), strconv.Itoa(p.Len())).Inc()

	if err = s.executor.Run(ctx, p); err != nil {
		logging.Warn("%s conversion of %q failed after %s: %v", kind, req.Filename, time.Since(start).Round(time.Millisecond), err)
		return nil, err
	}

	outputName := req.OutputName()
	if err = s.registry.Record(ctx, scope, mapping.Entry{
		OutputID:     outputID,
		OriginalName: outputName,
		Path:         outputPath,
		Kind:         string(kind),
	}); err != nil {
		return nil, err
	}
	committed = true
	row.OutputID = outputID

	result = &Result{
		Message:    fmt.Sprintf("File converted to %s successfully", req.OutputFormat),
		OutputFile: outputID,
		OutputName: outputName,
		Stages:     p.Len(),
	}

	if info, statErr := s.storage.Stat(outputPath); statErr == nil {
		metrics.ConversionOutputBytes.WithLabelValues(string(kind)).Observe(float64(info.Size()))
	}
	if kind == mediatypes.KindImage && media.CanInspect(outputPath) {
		if info, inspectErr := media.InspectImage(outputPath); inspectErr == nil {
			result.Image = info
		} else {
			logging.Debug("Could not inspect %s: %v", outputPath, inspectErr)
		}
	}

	logging.Info("Converted %q to %s (%s, %d stage(s), %s)", req.Filename, outputName, outputID, p.Len(),
		time.Since(start).Round(time.Millisecond))
	return result, nil
}

func (s *Service) recordHistory(row database.Conversion) {
	if s.history == nil {
		return
	}
	// The request context may already be cancelled; history is best effort.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.history.RecordConversion(ctx, row); err != nil {
		logging.Warn("failed to record conversion history: %v", err)
	}
}
