package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/nijaru/vid-text/config"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const keyPrefix = "transcripts/"

// objectAPI is the subset of *s3.Client used here.
type objectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type Transcript struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	ModelName string    `json:"model_name"`
	Timestamp time.Time `json:"timestamp"`
}

// SpacesClient archives transcripts to an S3-compatible bucket.
type SpacesClient struct {
	client    objectAPI
	bucket    string
	modelName string
	logger    *logrus.Logger
}

func NewSpacesClient(ctx context.Context, cfg config.SpacesConfig, modelName string) (*SpacesClient, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "unable to load SDK config")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return newSpacesClient(client, cfg.Bucket, modelName), nil
}

func newSpacesClient(client objectAPI, bucket, modelName string) *SpacesClient {
	return &SpacesClient{
		client:    client,
		bucket:    bucket,
		modelName: modelName,
		logger:    logrus.StandardLogger(),
	}
}

func objectKey(id string) string {
	return fmt.Sprintf("%s%s.json", keyPrefix, id)
}

// Archive stores text under transcripts/<id>.json.
func (s *SpacesClient) Archive(ctx context.Context, id, text string) error {
	if id == "" {
		return errors.New("missing transcript id")
	}

	data, err := json.Marshal(Transcript{
		ID:        id,
		Text:      text,
		ModelName: s.modelName,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return errors.Wrap(err, "failed to marshal transcript")
	}

	key := objectKey(id)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return errors.Wrap(err, "failed to save to Spaces")
	}

	s.logger.WithFields(logrus.Fields{
		"bucket": s.bucket,
		"key":    key,
	}).Debug("Transcript archived")
	return nil
}
