package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/maauso/audiograb/internal/audio"
	"github.com/maauso/audiograb/internal/media"
	"github.com/maauso/audiograb/internal/segment"
	"github.com/maauso/audiograb/internal/storage"
)

// Defaults for the size-based routing decision.
const (
	DefaultSizeThreshold int64   = 20 * 1024 * 1024
	DefaultWindowSeconds float64 = 60
)

// Request is one inbound extraction request.
type Request struct {
	// Target is where the result and status messages go.
	Target string
	// FileRef identifies the source video for the Gateway.
	FileRef string
	// FileName is the original file name, used to name the output.
	FileName string
	// DeclaredSize is the size announced by the sender, 0 if unknown.
	DeclaredSize int64
}

// Option configures an ExtractAudioService.
type Option func(*ExtractAudioService)

// WithSizeThreshold sets the largest source size processed in a single pass.
func WithSizeThreshold(n int64) Option {
	return func(s *ExtractAudioService) {
		if n > 0 {
			s.sizeThreshold = n
		}
	}
}

// WithWindow sets the segment length in seconds for large sources.
func WithWindow(seconds float64) Option {
	return func(s *ExtractAudioService) {
		if seconds > 0 {
			s.window = seconds
		}
	}
}

// WithFormat sets the audio output format.
func WithFormat(f audio.Format) Option {
	return func(s *ExtractAudioService) {
		s.format = f
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *ExtractAudioService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// ExtractAudioService runs one request through download, extraction and
// delivery. Each call to Process is independent and sequential; concurrent
// calls are isolated by their storage namespaces.
type ExtractAudioService struct {
	workspace    *storage.Workspace
	prober       media.Prober
	segmenter    *segment.Segmenter
	extractor    *audio.Extractor
	concatenator *audio.Concatenator
	gateway      Gateway
	notifier     Notifier
	repo         Repository
	logger       *slog.Logger

	sizeThreshold int64
	window        float64
	format        audio.Format
}

// NewExtractAudioService creates an ExtractAudioService. A nil notifier
// discards status messages.
func NewExtractAudioService(
	workspace *storage.Workspace,
	prober media.Prober,
	transcoder media.Transcoder,
	gateway Gateway,
	notifier Notifier,
	repo Repository,
	opts ...Option,
) *ExtractAudioService {
	s := &ExtractAudioService{
		workspace:     workspace,
		prober:        prober,
		gateway:       gateway,
		notifier:      notifier,
		repo:          repo,
		logger:        slog.Default(),
		sizeThreshold: DefaultSizeThreshold,
		window:        DefaultWindowSeconds,
		format:        audio.DefaultFormat(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.notifier == nil {
		s.notifier = NopNotifier{}
	}

	s.segmenter = segment.NewSegmenter(prober, transcoder)
	s.extractor = audio.NewExtractor(prober, transcoder, s.format)
	s.format = s.extractor.Format()
	s.concatenator = audio.NewConcatenator(transcoder)
	return s
}

// GetJob retrieves a job by ID.
func (s *ExtractAudioService) GetJob(ctx context.Context, id string) (*Job, error) {
	return s.repo.FindByID(ctx, id)
}

// ListJobs returns the recent jobs, newest first.
func (s *ExtractAudioService) ListJobs(ctx context.Context) ([]*Job, error) {
	return s.repo.List(ctx)
}

// Process runs the whole pipeline for req and returns the final job record.
// Whatever the outcome, every artifact of the request is removed before
// Process returns. On failure the requester gets exactly one failure message
// and the returned error carries the internal cause.
func (s *ExtractAudioService) Process(ctx context.Context, req Request) (*Job, error) {
	if req.FileRef == "" || req.Target == "" {
		return nil, fmt.Errorf("%w: file reference and target are required", ErrInvalidRequest)
	}

	job := New(req.Target, req.FileRef)
	job.FileName = req.FileName
	job.DeclaredBytes = req.DeclaredSize
	job.OutputName = outputName(req.FileName, job.ID, s.format.Ext)

	logger := s.logger.With(slog.String("job_id", job.ID), slog.String("target", req.Target))
	logger.Info("request received",
		slog.String("file_name", req.FileName),
		slog.Int64("declared_bytes", req.DeclaredSize),
	)
	s.save(ctx, job, logger)

	ns, err := s.workspace.Open(job.ID)
	if err != nil {
		return s.fail(ctx, job, nil, err, logger)
	}

	if err := s.run(ctx, job, ns, logger); err != nil {
		return s.fail(ctx, job, ns, err, logger)
	}

	if err := s.transition(ctx, job, StatusCleaningUp, logger); err != nil {
		return s.fail(ctx, job, ns, err, logger)
	}
	s.cleanup(ns, logger)
	if err := s.transition(ctx, job, StatusDone, logger); err != nil {
		return job.Clone(), err
	}

	s.notify(ctx, req.Target, MsgSuccess, logger)
	logger.Info("request completed",
		slog.String("mode", string(job.Mode)),
		slog.Int64("source_bytes", job.SourceBytes),
	)
	return job.Clone(), nil
}

func (s *ExtractAudioService) run(ctx context.Context, job *Job, ns *storage.Namespace, logger *slog.Logger) error {
	if err := s.transition(ctx, job, StatusDownloading, logger); err != nil {
		return err
	}
	s.notify(ctx, job.Target, MsgDownloading, logger)

	src, size, err := s.download(ctx, job, ns)
	if err != nil {
		return err
	}
	logger.Info("source downloaded", slog.Int64("bytes", size))

	outPath := ns.AudioPath("final_audio." + s.format.Ext)

	if size <= s.sizeThreshold {
		job.SetSource(size, ModeSinglePass)
		if err := s.transition(ctx, job, StatusExtracting, logger); err != nil {
			return err
		}
		s.notify(ctx, job.Target, MsgExtracting, logger)

		if _, err := s.extractor.ExtractAudio(ctx, src, outPath, 0); err != nil {
			return err
		}
		s.release(ns, logger, src)
	} else {
		job.SetSource(size, ModeSegmented)
		if err := s.transition(ctx, job, StatusSegmenting, logger); err != nil {
			return err
		}
		s.notify(ctx, job.Target, fmt.Sprintf(MsgSplitting, formatSize(s.sizeThreshold)), logger)

		if err := s.runSegmented(ctx, job, ns, src, outPath, logger); err != nil {
			return err
		}
	}

	if err := s.transition(ctx, job, StatusDelivering, logger); err != nil {
		return err
	}
	return s.deliver(ctx, job, ns, outPath)
}

// runSegmented encodes, extracts and deletes one segment at a time, so at
// most one segment file exists on disk alongside the audio chunks.
func (s *ExtractAudioService) runSegmented(
	ctx context.Context,
	job *Job,
	ns *storage.Namespace,
	src, outPath string,
	logger *slog.Logger,
) error {
	info, err := s.prober.Probe(ctx, src)
	if err != nil {
		return fmt.Errorf("probe source: %w", err)
	}

	windows, err := segment.Plan(info.Duration, s.window)
	if err != nil {
		return err
	}
	job.SetPlan(info.Duration, windows)
	logger.Info("segments planned",
		slog.Float64("duration", info.Duration),
		slog.Float64("window", s.window),
		slog.Int("segments", len(windows)),
	)

	if err := s.transition(ctx, job, StatusPerSegmentExtracting, logger); err != nil {
		return err
	}
	s.notify(ctx, job.Target, MsgExtracting, logger)

	chunks := make([]audio.Chunk, 0, len(windows))
	for seg, err := range s.segmenter.Segments(ctx, src, ns.VideoDir(), info.Duration, s.window) {
		if err != nil {
			job.UpdateSegment(seg.Index, SegmentFailed)
			s.save(ctx, job, logger)
			return err
		}

		job.UpdateSegment(seg.Index, SegmentExtracting)
		chunk, err := s.extractor.ExtractAudio(ctx, seg.Path, ns.AudioPath(s.format.ChunkName(seg.Index)), seg.Index)
		s.release(ns, logger, seg.Path)
		if err != nil {
			job.UpdateSegment(seg.Index, SegmentFailed)
			s.save(ctx, job, logger)
			return err
		}

		chunks = append(chunks, chunk)
		job.UpdateSegment(seg.Index, SegmentDone)
		s.save(ctx, job, logger)
		logger.Debug("segment extracted",
			slog.Int("index", seg.Index),
			slog.Float64("start", seg.Start),
			slog.Float64("end", seg.End),
		)
	}
	s.release(ns, logger, src)

	if err := s.transition(ctx, job, StatusConcatenating, logger); err != nil {
		return err
	}

	merged, err := s.concatenator.Concatenate(ctx, chunks, outPath)
	if err != nil {
		return err
	}
	logger.Info("audio merged", slog.Int("chunks", len(merged.Indices)))

	paths := make([]string, len(chunks))
	for i, ch := range chunks {
		paths[i] = ch.Path
	}
	s.release(ns, logger, paths...)
	return nil
}

func (s *ExtractAudioService) download(ctx context.Context, job *Job, ns *storage.Namespace) (string, int64, error) {
	rc, err := s.gateway.Download(ctx, job.FileRef)
	if err != nil {
		return "", 0, fmt.Errorf("%w: download: %w", ErrTransfer, err)
	}
	defer func() { _ = rc.Close() }()

	path, size, err := ns.SaveVideo(ctx, sourceName(job.FileName), rc)
	if err != nil {
		return "", 0, fmt.Errorf("%w: save source: %w", ErrTransfer, err)
	}
	return path, size, nil
}

func (s *ExtractAudioService) deliver(ctx context.Context, job *Job, ns *storage.Namespace, outPath string) error {
	rc, err := ns.Load(ctx, outPath)
	if err != nil {
		return fmt.Errorf("open result: %w", err)
	}
	defer func() { _ = rc.Close() }()

	if err := s.gateway.Upload(ctx, job.Target, job.OutputName, rc); err != nil {
		return fmt.Errorf("%w: upload: %w", ErrTransfer, err)
	}
	return nil
}

// fail cleans up, marks the job FAILED and sends the single failure message.
func (s *ExtractAudioService) fail(ctx context.Context, job *Job, ns *storage.Namespace, cause error, logger *slog.Logger) (*Job, error) {
	status := job.GetStatus()
	attrs := []any{
		slog.String("stage", string(status)),
		slog.String("error", cause.Error()),
	}
	var encErr *media.EncodeError
	if errors.As(cause, &encErr) {
		attrs = append(attrs, slog.String("encode_stage", encErr.Stage), slog.Int("index", encErr.Index))
	}
	logger.Error("request failed", attrs...)

	if ns != nil {
		s.cleanup(ns, logger)
	}

	if err := job.Fail(cause.Error()); err != nil {
		logger.Warn("job already terminal", slog.String("status", string(status)))
	}
	s.save(ctx, job, logger)
	s.notify(ctx, job.Target, UserMessage(cause), logger)

	return job.Clone(), fmt.Errorf("job %s: %w", job.ID, cause)
}

func (s *ExtractAudioService) transition(ctx context.Context, job *Job, status Status, logger *slog.Logger) error {
	if err := job.TransitionTo(status); err != nil {
		return fmt.Errorf("%w: %s -> %s", err, job.GetStatus(), status)
	}
	logger.Debug("job transitioned", slog.String("status", string(status)))
	s.save(ctx, job, logger)
	return nil
}

func (s *ExtractAudioService) save(ctx context.Context, job *Job, logger *slog.Logger) {
	if err := s.repo.Save(ctx, job); err != nil {
		logger.Warn("failed to save job", slog.String("error", err.Error()))
	}
}

func (s *ExtractAudioService) notify(ctx context.Context, target, text string, logger *slog.Logger) {
	if err := s.notifier.Notify(ctx, target, text); err != nil {
		logger.Warn("failed to notify requester", slog.String("error", err.Error()))
	}
}

func (s *ExtractAudioService) release(ns *storage.Namespace, logger *slog.Logger, paths ...string) {
	if err := ns.Release(paths...); err != nil {
		logCleanupWarnings(logger, err)
	}
}

func (s *ExtractAudioService) cleanup(ns *storage.Namespace, logger *slog.Logger) {
	if err := ns.Cleanup(); err != nil {
		logCleanupWarnings(logger, err)
	}
}

func logCleanupWarnings(logger *slog.Logger, err error) {
	var joined interface{ Unwrap() []error }
	errs := []error{err}
	if errors.As(err, &joined) {
		errs = joined.Unwrap()
	}
	for _, e := range errs {
		var warn *storage.CleanupWarning
		if errors.As(e, &warn) {
			logger.Warn("cleanup warning", slog.String("path", warn.Path), slog.String("error", warn.Err.Error()))
			continue
		}
		logger.Warn("cleanup warning", slog.String("error", e.Error()))
	}
}

// sourceName keeps the extension of the original name so ffmpeg can detect
// the container.
func sourceName(fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	if ext == "" || len(ext) > 6 {
		ext = ".mp4"
	}
	return "source" + ext
}

func formatSize(n int64) string {
	switch {
	case n >= 1<<20 && n%(1<<20) == 0:
		return fmt.Sprintf("%d MB", n>>20)
	case n >= 1<<10 && n%(1<<10) == 0:
		return fmt.Sprintf("%d KB", n>>10)
	default:
		return fmt.Sprintf("%d bytes", n)
	}
}

// outputName derives the delivered file name from the source name.
func outputName(fileName, jobID, ext string) string {
	base := strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = jobID
	}
	return base + "." + ext
}
