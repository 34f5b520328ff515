package transcription

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type stubEngine struct {
	name  string
	text  string
	err   error
	calls int
	seen  []string
}

func (s *stubEngine) Name() string { return s.name }

func (s *stubEngine) Transcribe(ctx context.Context, audioPath string) (string, error) {
	s.calls++
	s.seen = append(s.seen, audioPath)
	return s.text, s.err
}

func TestRunnerPrimarySucceeds(t *testing.T) {
	primary := &stubEngine{name: "primary", text: "hello world"}
	fallback := &stubEngine{name: "fallback", text: "unused"}

	res, err := NewRunner(0, primary, fallback).Transcribe(context.Background(), "/tmp/a.wav")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.Text != "hello world" {
		t.Errorf("expected 'hello world', got %q", res.Text)
	}
	if res.Engine != ChoicePrimary {
		t.Errorf("expected primary, got %s", res.Engine)
	}
	if fallback.calls != 0 {
		t.Errorf("fallback must not run when primary succeeds, ran %d times", fallback.calls)
	}
}

func TestRunnerFallsBackExactlyOnce(t *testing.T) {
	primary := &stubEngine{name: "primary", err: errors.New("No module named 'faster_whisper'")}
	fallback := &stubEngine{name: "fallback", text: "fallback text"}

	res, err := NewRunner(0, primary, fallback).Transcribe(context.Background(), "/tmp/clip.mov.wav")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.Text != "fallback text" {
		t.Errorf("expected 'fallback text', got %q", res.Text)
	}
	if res.Engine != ChoiceFallback {
		t.Errorf("expected fallback, got %s", res.Engine)
	}
	if primary.calls != 1 || fallback.calls != 1 {
		t.Errorf("expected one call each, got primary=%d fallback=%d", primary.calls, fallback.calls)
	}
	if fallback.seen[0] != "/tmp/clip.mov.wav" {
		t.Errorf("fallback must receive the same audio, got %s", fallback.seen[0])
	}
}

func TestRunnerAllFail(t *testing.T) {
	primary := &stubEngine{name: "primary", err: errors.New("primary broke")}
	fallback := &stubEngine{name: "fallback", err: errors.New("fallback broke")}

	res, err := NewRunner(0, primary, fallback).Transcribe(context.Background(), "/tmp/a.wav")
	if res != nil {
		t.Errorf("expected nil result, got %+v", res)
	}

	var terr *TranscriptionError
	if !errors.As(err, &terr) {
		t.Fatalf("expected *TranscriptionError, got %T", err)
	}
	if len(terr.Failures) != 2 {
		t.Fatalf("expected 2 failures, got %d", len(terr.Failures))
	}
	msg := err.Error()
	if !strings.Contains(msg, "primary broke") || !strings.Contains(msg, "fallback broke") {
		t.Errorf("expected both messages, got %q", msg)
	}
	if fallback.calls != 1 {
		t.Errorf("expected fallback to run exactly once, ran %d times", fallback.calls)
	}
}

func TestRunnerNoEngines(t *testing.T) {
	_, err := NewRunner(0).Transcribe(context.Background(), "/tmp/a.wav")
	var terr *TranscriptionError
	if !errors.As(err, &terr) {
		t.Fatalf("expected *TranscriptionError, got %v", err)
	}
}

type deadlineEngine struct {
	deadline time.Time
	ok       bool
}

func (d *deadlineEngine) Name() string { return "deadline" }

func (d *deadlineEngine) Transcribe(ctx context.Context, audioPath string) (string, error) {
	d.deadline, d.ok = ctx.Deadline()
	return "text", nil
}

func TestRunnerAppliesTimeoutPerAttempt(t *testing.T) {
	engine := &deadlineEngine{}
	if _, err := NewRunner(time.Minute, engine).Transcribe(context.Background(), "/tmp/a.wav"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !engine.ok {
		t.Fatal("expected a deadline on the engine context")
	}
	if time.Until(engine.deadline) > time.Minute {
		t.Errorf("deadline too far in the future: %s", engine.deadline)
	}
}
