package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sony/gobreaker/v2"
	"github.com/vedran77/agora/internal/config"
	"github.com/vedran77/agora/internal/domain"
	"github.com/vedran77/agora/internal/logging"
	"github.com/vedran77/agora/internal/metrics"
)

// S3Store is an ObjectStore backed by an S3 bucket. Every call goes through
// a circuit breaker so an unavailable bucket fails fast.
type S3Store struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
	cb      *gobreaker.CircuitBreaker[any]
}

func NewS3Store(ctx context.Context, cfg config.StorageConfig) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  cfg.Bucket,
		cb:      newBreaker("s3"),
	}, nil
}

func newBreaker(name string) *gobreaker.CircuitBreaker[any] {
	metrics.StorageBreakerState.Set(0)

	return gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("storage circuit breaker state change")
			metrics.StorageBreakerState.Set(float64(to))
		},
	})
}

func (s *S3Store) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	_, err := s.cb.Execute(func() (any, error) {
		return s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:        aws.String(s.bucket),
			Key:           aws.String(key),
			Body:          body,
			ContentLength: aws.Int64(size),
			ContentType:   aws.String(contentType),
		})
	})
	metrics.RecordStorageOperation("put", err)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("key", key).Msg("object upload failed")
		return errors.Join(domain.ErrUploadFailed, err)
	}
	return nil
}

func (s *S3Store) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	var url string
	_, err := s.cb.Execute(func() (any, error) {
		req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		}, s3.WithPresignExpires(ttl))
		if err != nil {
			return nil, err
		}
		url = req.URL
		return nil, nil
	})
	metrics.RecordStorageOperation("presign", err)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("key", key).Msg("presign failed")
		return "", errors.Join(domain.ErrPresignFailed, err)
	}
	return url, nil
}
