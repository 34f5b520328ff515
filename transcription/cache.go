package transcription

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Transcriber is what the pipeline needs from a Runner.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (*Result, error)
}

// Cache stores transcripts by key.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, text, model string) error
}

// CachedTranscriber consults a cache keyed by the audio's SHA-256 and the
// decoding options before delegating. Cache failures are logged only.
type CachedTranscriber struct {
	next   Transcriber
	cache  Cache
	opts   Options
	logger *logrus.Logger
}

func NewCachedTranscriber(next Transcriber, cache Cache, opts Options) *CachedTranscriber {
	return &CachedTranscriber{
		next:   next,
		cache:  cache,
		opts:   opts.withDefaults(),
		logger: logrus.StandardLogger(),
	}
}

func (c *CachedTranscriber) Transcribe(ctx context.Context, audioPath string) (*Result, error) {
	key, err := c.key(audioPath)
	if err != nil {
		c.logger.WithError(err).Warn("Failed to hash audio, skipping cache")
		return c.next.Transcribe(ctx, audioPath)
	}

	logger := c.logger.WithField("cache_key", key)

	text, ok, err := c.cache.Get(ctx, key)
	switch {
	case err != nil:
		logger.WithError(err).Warn("Transcript cache lookup failed")
	case ok:
		logger.Info("Transcript cache hit")
		return &Result{Text: text, Name: "cache", Cached: true}, nil
	}

	res, err := c.next.Transcribe(ctx, audioPath)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Put(ctx, key, res.Text, c.opts.Model); err != nil {
		logger.WithError(err).Warn("Failed to store transcript in cache")
	}
	return res, nil
}

func (c *CachedTranscriber) key(audioPath string) (string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return "", errors.Wrap(err, "open audio")
	}
	defer f.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, f); err != nil {
		return "", errors.Wrap(err, "hash audio")
	}
	io.WriteString(hash, "|"+c.opts.Model+"|"+c.opts.Language)
	return hex.EncodeToString(hash.Sum(nil)), nil
}
