package media

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/nijaru/vid-text/process"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	SampleRate = 16000
	Channels   = 1
	BitDepth   = 16

	wavFormatPCM = 1
)

// ExtractionError carries the decoder's diagnostic output unparsed.
type ExtractionError struct {
	Source string
	Output string
	Err    error

	// NotInstalled is set when the decoder binary could not be found.
	NotInstalled bool
}

func (e *ExtractionError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("extract audio from %s: %v (output: %s)", e.Source, e.Err, e.Output)
	}
	return fmt.Sprintf("extract audio from %s: %v", e.Source, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

type Extractor struct {
	invoker    process.Invoker
	ffmpegPath string
	timeout    time.Duration
	logger     *logrus.Logger
}

func NewExtractor(invoker process.Invoker, ffmpegPath string, timeout time.Duration) *Extractor {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &Extractor{
		invoker:    invoker,
		ffmpegPath: ffmpegPath,
		timeout:    timeout,
		logger:     logrus.StandardLogger(),
	}
}

// Extract writes mono 16 kHz 16-bit PCM WAV from src to dst, replacing dst.
func (e *Extractor) Extract(ctx context.Context, src, dst string) error {
	logger := e.logger.WithFields(logrus.Fields{
		"source":      src,
		"destination": dst,
	})

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := e.invoker.Run(ctx, e.ffmpegPath, ffmpegArgs(src, dst)...)
	if err != nil {
		var output string
		if res != nil {
			output = strings.TrimSpace(string(res.Stderr))
		}
		if process.IsNotFound(err) {
			logger.WithError(err).WithField("ffmpeg_path", e.ffmpegPath).Error("ffmpeg is not installed")
			return &ExtractionError{Source: src, NotInstalled: true, Err: err}
		}
		logger.WithError(err).Error("ffmpeg failed")
		return &ExtractionError{Source: src, Output: output, Err: err}
	}

	if err := VerifyWAV(dst); err != nil {
		logger.WithError(err).Error("Extracted audio has unexpected format")
		return &ExtractionError{Source: src, Err: err}
	}

	logger.WithField("duration", time.Since(start)).Info("Audio extracted")
	return nil
}

func ffmpegArgs(src, dst string) []string {
	return []string{
		"-y",
		"-i", src,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", fmt.Sprint(SampleRate),
		"-ac", fmt.Sprint(Channels),
		"-f", "wav",
		dst,
	}
}

// VerifyWAV checks that path is a non-empty mono 16 kHz 16-bit PCM WAV.
func VerifyWAV(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open extracted audio")
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		if d.Err() != nil {
			return errors.Wrap(d.Err(), "invalid wav file")
		}
		return errors.New("invalid wav file")
	}

	return checkFormat(d.Format(), int(d.BitDepth), int(d.WavAudioFormat))
}

func checkFormat(format *audio.Format, bitDepth, audioFormat int) error {
	if format == nil {
		return errors.New("missing wav format")
	}
	if audioFormat != wavFormatPCM {
		return errors.Errorf("expected PCM audio, got format %d", audioFormat)
	}
	if format.NumChannels != Channels {
		return errors.Errorf("expected %d channel, got %d", Channels, format.NumChannels)
	}
	if format.SampleRate != SampleRate {
		return errors.Errorf("expected %d Hz, got %d Hz", SampleRate, format.SampleRate)
	}
	if bitDepth != BitDepth {
		return errors.Errorf("expected %d-bit samples, got %d-bit", BitDepth, bitDepth)
	}
	return nil
}
