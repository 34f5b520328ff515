package transcription

import (
	"context"
	_ "embed"
	"encoding/json"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/nijaru/vid-text/process"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

//go:embed assets/faster_whisper.py
var fasterWhisperScript []byte

// Options are the fixed decoding parameters shared by both engines.
type Options struct {
	Model    string
	Language string
	BeamSize int
}

func (o Options) withDefaults() Options {
	if o.Model == "" {
		o.Model = "base"
	}
	if o.Language == "" {
		o.Language = "en"
	}
	if o.BeamSize <= 0 {
		o.BeamSize = 5
	}
	return o
}

type segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type fasterWhisperOutput struct {
	Language string    `json:"language"`
	Duration float64   `json:"duration"`
	Segments []segment `json:"segments"`
}

// FasterWhisper runs a one-shot faster-whisper script through Python.
type FasterWhisper struct {
	invoker    process.Invoker
	pythonPath string
	opts       Options
	script     *Lazy[string]
	logger     *logrus.Logger
}

func NewFasterWhisper(invoker process.Invoker, pythonPath, scriptDir string, opts Options) *FasterWhisper {
	if pythonPath == "" {
		pythonPath = "python3"
	}
	return &FasterWhisper{
		invoker:    invoker,
		pythonPath: pythonPath,
		opts:       opts.withDefaults(),
		script:     NewLazy(writeScript(scriptDir)),
		logger:     logrus.StandardLogger(),
	}
}

func (f *FasterWhisper) Name() string { return "faster-whisper" }

func (f *FasterWhisper) Transcribe(ctx context.Context, audioPath string) (string, error) {
	scriptPath, err := f.script.Acquire(ctx)
	if err != nil {
		return "", errors.Wrap(err, "prepare faster-whisper script")
	}

	res, err := f.invoker.Run(ctx, f.pythonPath,
		scriptPath,
		"--audio", audioPath,
		"--model", f.opts.Model,
		"--language", f.opts.Language,
		"--beam-size", strconv.Itoa(f.opts.BeamSize),
	)
	if err != nil {
		if res != nil && len(res.Stderr) > 0 {
			return "", errors.Wrapf(err, "faster-whisper: %s", lastLine(res.Stderr))
		}
		return "", errors.Wrap(err, "faster-whisper")
	}

	var out fasterWhisperOutput
	if err := json.Unmarshal(res.Stdout, &out); err != nil {
		f.logger.WithField("output", string(res.Stdout)).Debug("Unparsable faster-whisper output")
		return "", errors.Wrap(err, "parse faster-whisper output")
	}

	f.logger.WithFields(logrus.Fields{
		"language": out.Language,
		"segments": len(out.Segments),
	}).Debug("faster-whisper finished")

	return joinSegments(out.Segments), nil
}

// Close removes the materialised script, if any.
func (f *FasterWhisper) Close() error {
	path, ok := f.script.Peek()
	if !ok {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "remove faster-whisper script")
	}
	return nil
}

// joinSegments orders segments by start time and joins their trimmed text
// with single spaces.
func joinSegments(segments []segment) string {
	sorted := append([]segment(nil), segments...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})

	parts := make([]string, 0, len(sorted))
	for _, s := range sorted {
		if text := strings.TrimSpace(s.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

func writeScript(dir string) func(ctx context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		f, err := os.CreateTemp(dir, "faster-whisper-*.py")
		if err != nil {
			return "", errors.Wrap(err, "create script file")
		}
		if _, err := f.Write(fasterWhisperScript); err != nil {
			f.Close()
			os.Remove(f.Name())
			return "", errors.Wrap(err, "write script file")
		}
		if err := f.Close(); err != nil {
			os.Remove(f.Name())
			return "", errors.Wrap(err, "close script file")
		}
		return f.Name(), nil
	}
}

func lastLine(b []byte) string {
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	return lines[len(lines)-1]
}
