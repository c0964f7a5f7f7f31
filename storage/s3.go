package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gabriel-vasile/mimetype"
	awsapi "github.com/gurre/s3demo/aws"
	"github.com/gurre/s3demo/metrics"
	log "github.com/sirupsen/logrus"
)

// DefaultWaitTimeout bounds WaitUntilExists when no timeout is configured.
const DefaultWaitTimeout = 2 * time.Minute

// sniffLen is how much of an upload is read to detect its content type.
const sniffLen = 512

// S3Service implements Service on Amazon S3.
type S3Service struct {
	client      awsapi.S3Client
	uploader    *manager.Uploader
	region      string
	waitTimeout time.Duration
	metrics     *metrics.Metrics
}

// Option configures an S3Service.
type Option func(*S3Service)

// WithWaitTimeout bounds WaitUntilExists.
func WithWaitTimeout(d time.Duration) Option {
	return func(s *S3Service) {
		if d > 0 {
			s.waitTimeout = d
		}
	}
}

// WithMetrics records every remote call in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *S3Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// NewS3Service creates an S3Service. region is used as the location
// constraint for new buckets.
func NewS3Service(client awsapi.S3Client, region string, opts ...Option) *S3Service {
	s := &S3Service{
		client:      client,
		uploader:    manager.NewUploader(client),
		region:      region,
		waitTimeout: DefaultWaitTimeout,
		metrics:     metrics.NewMetrics(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Metrics returns the call counters of this service.
func (s *S3Service) Metrics() *metrics.Metrics {
	return s.metrics
}

func (s *S3Service) record(op, bucket, key string, err error) {
	s.metrics.RecordCall(op, err)
	entry := log.WithFields(log.Fields{"op": op, "bucket": bucket})
	if key != "" {
		entry = entry.WithField("key", key)
	}
	if err != nil {
		entry.WithError(err).Debug("S3 call failed")
		return
	}
	entry.Debug("S3 call succeeded")
}

// HeadBucket probes the bucket and classifies the response by HTTP status.
func (s *S3Service) HeadBucket(ctx context.Context, bucket string) Probe {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(bucket),
	})
	s.record("HeadBucket", bucket, "", err)
	return Probe{Status: ClassifyProbe(err), Err: err}
}

// ClassifyProbe maps a HeadBucket error to a ProbeStatus.
func ClassifyProbe(err error) ProbeStatus {
	if err == nil {
		return ProbeOK
	}

	switch StatusCode(err) {
	case http.StatusNotFound:
		return ProbeNotFound
	case http.StatusBadRequest, http.StatusMovedPermanently:
		return ProbeBadRequest
	case http.StatusForbidden:
		return ProbeForbidden
	}

	// Modeled error without a response attached
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return ProbeNotFound
	}
	return ProbeError
}

// CreateBucket creates bucket in the service's region.
func (s *S3Service) CreateBucket(ctx context.Context, bucket string) error {
	input := &s3.CreateBucketInput{
		Bucket: aws.String(bucket),
	}
	// us-east-1 rejects an explicit location constraint
	if s.region != "" && s.region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(s.region),
		}
	}

	_, err := s.client.CreateBucket(ctx, input)
	s.record("CreateBucket", bucket, "", err)
	if err != nil {
		return remoteError("CreateBucket", bucket, "", err)
	}
	return nil
}

// WaitUntilExists polls HeadBucket with the SDK waiter's default delays.
func (s *S3Service) WaitUntilExists(ctx context.Context, bucket string) error {
	waiter := s3.NewBucketExistsWaiter(s.client)
	err := waiter.Wait(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(bucket),
	}, s.waitTimeout)
	s.record("WaitUntilExists", bucket, "", err)
	if err != nil {
		if ctx.Err() == nil && StatusCode(err) == 0 {
			return &Error{Op: "WaitUntilExists", Bucket: bucket, Kind: ErrWaitTimeout, Err: err}
		}
		return remoteError("WaitUntilExists", bucket, "", err)
	}
	return nil
}

// PutObject uploads body under key with a sniffed content type.
func (s *S3Service) PutObject(ctx context.Context, bucket, key string, body io.Reader) error {
	contentType, body, err := detectContentType(body)
	if err != nil {
		return localError("PutObject", bucket, key, err)
	}

	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	s.record("PutObject", bucket, key, err)
	if err != nil {
		var pathErr *os.PathError
		if errors.As(err, &pathErr) {
			return localError("PutObject", bucket, key, err)
		}
		return remoteError("PutObject", bucket, key, err)
	}
	return nil
}

// detectContentType sniffs the head of body and returns a reader that still
// yields the complete content.
func detectContentType(body io.Reader) (string, io.Reader, error) {
	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(body, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", nil, fmt.Errorf("failed to read upload body: %w", err)
	}
	contentType := mimetype.Detect(buf[:n]).String()

	// Rewind seekable bodies so the uploader can size them
	if seeker, ok := body.(io.Seeker); ok {
		if _, err := seeker.Seek(0, io.SeekStart); err != nil {
			return "", nil, fmt.Errorf("failed to rewind upload body: %w", err)
		}
		return contentType, body, nil
	}
	return contentType, io.MultiReader(bytes.NewReader(buf[:n]), body), nil
}

// GetObjectToFile downloads key and replaces dest with its content. The
// local file is only touched once the service has answered successfully.
func (s *S3Service) GetObjectToFile(ctx context.Context, bucket, key, dest string) (int64, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	s.record("GetObject", bucket, key, err)
	if err != nil {
		return 0, remoteError("GetObject", bucket, key, err)
	}
	defer func() { _ = out.Body.Close() }()

	if dir := filepath.Dir(dest); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return 0, localError("GetObject", bucket, key, err)
		}
	}

	// os.Create truncates an existing file
	f, err := os.Create(dest)
	if err != nil {
		return 0, localError("GetObject", bucket, key, err)
	}
	written, err := io.Copy(f, out.Body)
	if err != nil {
		_ = f.Close()
		return 0, localError("GetObject", bucket, key, err)
	}
	if err := f.Close(); err != nil {
		return 0, localError("GetObject", bucket, key, err)
	}

	if out.ContentLength != nil {
		return *out.ContentLength, nil
	}
	return written, nil
}

// DeleteBucket deletes an empty bucket. The service rejects non-empty ones.
func (s *S3Service) DeleteBucket(ctx context.Context, bucket string) error {
	_, err := s.client.DeleteBucket(ctx, &s3.DeleteBucketInput{
		Bucket: aws.String(bucket),
	})
	s.record("DeleteBucket", bucket, "", err)
	if err != nil {
		return remoteError("DeleteBucket", bucket, "", err)
	}
	return nil
}

// SetPublicAccessBlock replaces the bucket's block-public-access flags.
func (s *S3Service) SetPublicAccessBlock(ctx context.Context, bucket string, block PublicAccessBlock) error {
	_, err := s.client.PutPublicAccessBlock(ctx, &s3.PutPublicAccessBlockInput{
		Bucket: aws.String(bucket),
		PublicAccessBlockConfiguration: &types.PublicAccessBlockConfiguration{
			BlockPublicAcls:       aws.Bool(block.BlockPublicAcls),
			IgnorePublicAcls:      aws.Bool(block.IgnorePublicAcls),
			BlockPublicPolicy:     aws.Bool(block.BlockPublicPolicy),
			RestrictPublicBuckets: aws.Bool(block.RestrictPublicBuckets),
		},
	})
	s.record("PutPublicAccessBlock", bucket, "", err)
	if err != nil {
		return remoteError("PutPublicAccessBlock", bucket, "", err)
	}
	return nil
}

// SetBucketPolicy attaches a JSON policy document to the bucket.
func (s *S3Service) SetBucketPolicy(ctx context.Context, bucket, document string) error {
	_, err := s.client.PutBucketPolicy(ctx, &s3.PutBucketPolicyInput{
		Bucket: aws.String(bucket),
		Policy: aws.String(document),
	})
	s.record("PutBucketPolicy", bucket, "", err)
	if err != nil {
		return remoteError("PutBucketPolicy", bucket, "", err)
	}
	return nil
}

// SetWebsiteConfig enables static website hosting.
func (s *S3Service) SetWebsiteConfig(ctx context.Context, bucket, indexDocument, errorDocument string) error {
	_, err := s.client.PutBucketWebsite(ctx, &s3.PutBucketWebsiteInput{
		Bucket: aws.String(bucket),
		WebsiteConfiguration: &types.WebsiteConfiguration{
			IndexDocument: &types.IndexDocument{Suffix: aws.String(indexDocument)},
			ErrorDocument: &types.ErrorDocument{Key: aws.String(errorDocument)},
		},
	})
	s.record("PutBucketWebsite", bucket, "", err)
	if err != nil {
		return remoteError("PutBucketWebsite", bucket, "", err)
	}
	return nil
}

// SetNotificationConfig replaces the bucket's notification configuration
// with a single topic configuration.
func (s *S3Service) SetNotificationConfig(ctx context.Context, bucket string, notification TopicNotification) error {
	events := make([]types.Event, 0, len(notification.Events))
	for _, e := range notification.Events {
		events = append(events, types.Event(e))
	}

	_, err := s.client.PutBucketNotificationConfiguration(ctx, &s3.PutBucketNotificationConfigurationInput{
		Bucket: aws.String(bucket),
		NotificationConfiguration: &types.NotificationConfiguration{
			TopicConfigurations: []types.TopicConfiguration{{
				Id:       aws.String(notification.ID),
				TopicArn: aws.String(notification.TopicARN),
				Events:   events,
			}},
		},
	})
	s.record("PutBucketNotificationConfiguration", bucket, "", err)
	if err != nil {
		return remoteError("PutBucketNotificationConfiguration", bucket, "", err)
	}
	return nil
}

var _ Service = (*S3Service)(nil)
