// Package storage is the object storage collaborator used by the demo
// commands. Service lists the remote operations; S3Service implements them
// on Amazon S3.
package storage

import (
	"context"
	"io"
)

// ProbeStatus is the outcome of a bucket existence probe.
type ProbeStatus int

const (
	ProbeOK         ProbeStatus = iota // Bucket exists and is accessible
	ProbeNotFound                      // 404
	ProbeBadRequest                    // 400, or a 301 redirect to another region
	ProbeForbidden                     // 403
	ProbeError                         // Anything else, including transport failures
)

func (s ProbeStatus) String() string {
	switch s {
	case ProbeOK:
		return "ok"
	case ProbeNotFound:
		return "not_found"
	case ProbeBadRequest:
		return "bad_request"
	case ProbeForbidden:
		return "forbidden"
	default:
		return "other_error"
	}
}

// Probe is the result of HeadBucket. Err is nil only when Status is ProbeOK.
type Probe struct {
	Status ProbeStatus
	Err    error
}

// PublicAccessBlock mirrors the four S3 block-public-access flags.
type PublicAccessBlock struct {
	BlockPublicAcls       bool
	IgnorePublicAcls      bool
	BlockPublicPolicy     bool
	RestrictPublicBuckets bool
}

// TopicNotification publishes bucket events to an SNS topic.
type TopicNotification struct {
	ID       string
	TopicARN string
	Events   []string // S3 event names, e.g. "s3:ObjectCreated:*"
}

// Service is the object storage capability consumed by the commands.
type Service interface {
	// HeadBucket probes bucket existence without transferring data.
	HeadBucket(ctx context.Context, bucket string) Probe
	CreateBucket(ctx context.Context, bucket string) error
	// WaitUntilExists blocks until the bucket is visible or the wait times out.
	WaitUntilExists(ctx context.Context, bucket string) error
	PutObject(ctx context.Context, bucket, key string, body io.Reader) error
	// GetObjectToFile downloads an object, replacing any file at dest, and
	// returns the object's content length.
	GetObjectToFile(ctx context.Context, bucket, key, dest string) (int64, error)
	// DeleteBucket removes an empty bucket.
	DeleteBucket(ctx context.Context, bucket string) error
	SetPublicAccessBlock(ctx context.Context, bucket string, block PublicAccessBlock) error
	SetBucketPolicy(ctx context.Context, bucket, document string) error
	SetWebsiteConfig(ctx context.Context, bucket, indexDocument, errorDocument string) error
	SetNotificationConfig(ctx context.Context, bucket string, notification TopicNotification) error
}
