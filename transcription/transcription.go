package transcription

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// EngineChoice tags which engine produced a transcript. Diagnostics only.
type EngineChoice string

const (
	ChoicePrimary  EngineChoice = "primary"
	ChoiceFallback EngineChoice = "fallback"
)

// Engine turns a prepared 16 kHz mono PCM WAV into text.
type Engine interface {
	Name() string
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

type Result struct {
	Text   string
	Engine EngineChoice
	Name   string

	// Cached is set when Text came from the transcript cache and no engine ran.
	Cached bool
}

type EngineFailure struct {
	Engine string
	Err    error
}

// TranscriptionError is returned when every engine failed.
type TranscriptionError struct {
	Failures []EngineFailure
}

func (e *TranscriptionError) Error() string {
	if len(e.Failures) == 0 {
		return "transcription failed: no engines configured"
	}
	msgs := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		msgs = append(msgs, fmt.Sprintf("%s: %v", f.Engine, f.Err))
	}
	return "transcription failed: " + strings.Join(msgs, "; ")
}

func (e *TranscriptionError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}

// Runner tries its engines in order and returns the first success.
type Runner struct {
	engines []Engine
	timeout time.Duration
	logger  *logrus.Logger
}

// NewRunner builds a Runner. The first engine is the primary, the rest are
// fallbacks. A positive timeout bounds each engine attempt separately.
func NewRunner(timeout time.Duration, engines ...Engine) *Runner {
	return &Runner{
		engines: engines,
		timeout: timeout,
		logger:  logrus.StandardLogger(),
	}
}

func (r *Runner) Transcribe(ctx context.Context, audioPath string) (*Result, error) {
	terr := &TranscriptionError{}

	for i, engine := range r.engines {
		choice := ChoicePrimary
		if i > 0 {
			choice = ChoiceFallback
		}
		logger := r.logger.WithFields(logrus.Fields{
			"engine": engine.Name(),
			"choice": choice,
			"audio":  audioPath,
		})

		start := time.Now()
		text, err := r.attempt(ctx, engine, audioPath)
		if err == nil {
			logger.WithField("duration", time.Since(start)).Info("Transcription completed")
			return &Result{Text: text, Engine: choice, Name: engine.Name()}, nil
		}

		logger.WithError(err).Warn("Transcription engine failed")
		terr.Failures = append(terr.Failures, EngineFailure{Engine: engine.Name(), Err: err})
	}

	return nil, terr
}

func (r *Runner) attempt(ctx context.Context, engine Engine, audioPath string) (string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	return engine.Transcribe(ctx, audioPath)
}

// Close releases engine resources for engines that hold any.
func (r *Runner) Close() error {
	var firstErr error
	for _, engine := range r.engines {
		if c, ok := engine.(interface{ Close() error }); ok {
			if err := c.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
