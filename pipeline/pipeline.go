package pipeline

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/nijaru/vid-text/errors"
	"github.com/nijaru/vid-text/media"
	"github.com/nijaru/vid-text/transcription"
	"github.com/nijaru/vid-text/upload"
	"github.com/sirupsen/logrus"
)

type Extractor interface {
	Extract(ctx context.Context, src, dst string) error
}

// Archiver receives successful transcripts. Failures are logged only.
type Archiver interface {
	Archive(ctx context.Context, id, text string) error
}

type Result struct {
	UploadID   string
	Text       string
	Engine     transcription.EngineChoice
	EngineName string
}

// TransitionFunc observes every state change of a run.
type TransitionFunc func(uploadID string, from, to State)

type Option func(*Coordinator)

func WithArchiver(a Archiver) Option {
	return func(c *Coordinator) { c.archiver = a }
}

func WithLogger(l *logrus.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

func WithTransitionHook(fn TransitionFunc) Option {
	return func(c *Coordinator) { c.onTransition = fn }
}

// Coordinator runs one upload through extraction and transcription and
// removes every file it touched before returning.
type Coordinator struct {
	extractor    Extractor
	transcriber  transcription.Transcriber
	archiver     Archiver
	onTransition TransitionFunc
	logger       *logrus.Logger
}

func NewCoordinator(extractor Extractor, transcriber transcription.Transcriber, opts ...Option) *Coordinator {
	c := &Coordinator{
		extractor:   extractor,
		transcriber: transcriber,
		logger:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AudioPath is where the extracted audio for a stored video is written.
func AudioPath(videoPath string) string {
	return videoPath + ".wav"
}

// Process transcribes video. The caller's cancellation is ignored; only the
// stage timeouts bound a run.
func (c *Coordinator) Process(ctx context.Context, video *upload.Video) (*Result, error) {
	const op = "Coordinator.Process"

	ctx = context.WithoutCancel(ctx)

	var uploadID string
	if video != nil {
		uploadID = video.ID
	}
	run := &tracker{
		id:     uploadID,
		state:  StateReceived,
		start:  time.Now(),
		hook:   c.onTransition,
		logger: c.logger.WithField("upload_id", uploadID),
	}
	run.logger.Debug("Upload received")

	if video == nil || video.Path == "" {
		return nil, run.fail(errors.Validation(op, nil, "No video file provided"))
	}

	audioPath := AudioPath(video.Path)
	defer c.cleanup(run.logger, video.Path, audioPath)

	if err := run.advance(StateExtracting); err != nil {
		return nil, run.fail(errors.Internal(op, err, ""))
	}
	if err := c.extractor.Extract(ctx, video.Path, audioPath); err != nil {
		return nil, run.fail(classify(op, err))
	}

	if err := run.advance(StateTranscribing); err != nil {
		return nil, run.fail(errors.Internal(op, err, ""))
	}
	tr, err := c.transcriber.Transcribe(ctx, audioPath)
	if err != nil {
		return nil, run.fail(classify(op, err))
	}

	if err := run.advance(StateSucceeded); err != nil {
		return nil, run.fail(errors.Internal(op, err, ""))
	}

	if c.archiver != nil {
		if err := c.archiver.Archive(ctx, uploadID, tr.Text); err != nil {
			run.logger.WithError(err).Warn("Failed to archive transcript")
		}
	}

	fields := logrus.Fields{
		"engine":    tr.Name,
		"cache_hit": tr.Cached,
		"chars":     len(tr.Text),
		"duration":  time.Since(run.start),
	}
	if !tr.Cached {
		fields["choice"] = tr.Engine
	}
	run.logger.WithFields(fields).Info("Transcription request completed")

	return &Result{
		UploadID:   uploadID,
		Text:       tr.Text,
		Engine:     tr.Engine,
		EngineName: tr.Name,
	}, nil
}

func (c *Coordinator) cleanup(logger *logrus.Entry, paths ...string) {
	for _, path := range paths {
		removed, err := upload.Remove(path)
		if err != nil {
			logger.WithError(err).WithField("path", path).Error("Failed to remove temporary file")
			continue
		}
		if removed {
			logger.WithField("path", path).Debug("Removed temporary file")
		}
	}
}

func classify(op string, err error) *errors.AppError {
	var extractErr *media.ExtractionError
	var transcribeErr *transcription.TranscriptionError

	switch {
	case stderrors.As(err, &extractErr):
		return errors.Extraction(op, err)
	case stderrors.As(err, &transcribeErr):
		return errors.Transcription(op, err)
	}
	if appErr, ok := errors.AsAppError(err); ok {
		return appErr
	}
	return errors.Internal(op, err, "")
}

type tracker struct {
	id     string
	state  State
	start  time.Time
	hook   TransitionFunc
	logger *logrus.Entry
}

func (t *tracker) advance(to State) error {
	from := t.state
	if !from.CanTransition(to) {
		return &TransitionError{From: from, To: to}
	}
	t.state = to
	t.logger.WithFields(logrus.Fields{
		"from": from,
		"to":   to,
	}).Debug("State transition")
	if t.hook != nil {
		t.hook(t.id, from, to)
	}
	return nil
}

func (t *tracker) fail(appErr *errors.AppError) *errors.AppError {
	if !t.state.Terminal() {
		t.advance(StateFailed)
	}
	t.logger.WithFields(logrus.Fields{
		"op":       appErr.Op,
		"kind":     appErr.Kind,
		"duration": time.Since(t.start),
	}).WithError(appErr.Err).Error(appErr.Message)
	return appErr
}
