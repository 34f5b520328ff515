package transcription

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/nijaru/vid-text/process"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// WhisperCLI runs the reference openai-whisper command line tool, which
// writes <audio name>.txt into outputDir.
type WhisperCLI struct {
	invoker     process.Invoker
	whisperPath string
	outputDir   string
	opts        Options
	logger      *logrus.Logger
}

func NewWhisperCLI(invoker process.Invoker, whisperPath, outputDir string, opts Options) *WhisperCLI {
	if whisperPath == "" {
		whisperPath = "whisper"
	}
	if outputDir == "" {
		outputDir = os.TempDir()
	}
	return &WhisperCLI{
		invoker:     invoker,
		whisperPath: whisperPath,
		outputDir:   outputDir,
		opts:        opts.withDefaults(),
		logger:      logrus.StandardLogger(),
	}
}

func (w *WhisperCLI) Name() string { return "whisper" }

func (w *WhisperCLI) Transcribe(ctx context.Context, audioPath string) (string, error) {
	res, err := w.invoker.Run(ctx, w.whisperPath,
		audioPath,
		"--model", w.opts.Model,
		"--language", w.opts.Language,
		"--output_format", "txt",
		"--output_dir", w.outputDir,
		"--verbose", "False",
	)
	if err != nil {
		if res != nil && len(res.Stderr) > 0 {
			return "", errors.Wrapf(err, "whisper: %s", lastLine(res.Stderr))
		}
		return "", errors.Wrap(err, "whisper")
	}

	transcriptPath := w.TranscriptPath(audioPath)
	defer func() {
		if err := os.Remove(transcriptPath); err != nil && !os.IsNotExist(err) {
			w.logger.WithError(err).WithField("filename", transcriptPath).Error("Failed to remove file")
		}
	}()

	content, err := os.ReadFile(transcriptPath)
	if err != nil {
		return "", errors.Wrap(err, "read whisper transcript")
	}

	return strings.Join(strings.Fields(string(content)), " "), nil
}

// TranscriptPath is where the CLI writes the transcript for audioPath.
func (w *WhisperCLI) TranscriptPath(audioPath string) string {
	base := filepath.Base(audioPath)
	return filepath.Join(w.outputDir, strings.TrimSuffix(base, filepath.Ext(base))+".txt")
}
