package mock

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// Call records one request received by a mock client.
type Call struct {
	Op     string
	Bucket string
	Key    string
}

// Object is a stored object.
type Object struct {
	Body        []byte
	ContentType string
}

// Bucket is the mock state of one bucket.
type Bucket struct {
	Region            string
	Objects           map[string]Object
	Policy            string
	PublicAccessBlock *types.PublicAccessBlockConfiguration
	Website           *types.WebsiteConfiguration
	Notification      *types.NotificationConfiguration
}

// S3Client is an in-memory implementation of aws.S3Client for testing
type S3Client struct {
	mu sync.Mutex

	// Buckets by name
	Buckets map[string]*Bucket
	// ProbeErrors makes HeadBucket fail for the given bucket
	ProbeErrors map[string]error
	// Failures makes the named operation fail for every bucket
	Failures map[string]error

	calls []Call
}

// NewS3Client creates a new mock S3 client with no buckets
func NewS3Client() *S3Client {
	return &S3Client{
		Buckets:     make(map[string]*Bucket),
		ProbeErrors: make(map[string]error),
		Failures:    make(map[string]error),
	}
}

// AddBucket creates an empty bucket.
func (m *S3Client) AddBucket(name string) *Bucket {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := &Bucket{Objects: make(map[string]Object)}
	m.Buckets[name] = b
	return b
}

// AddObject stores an object, creating the bucket when needed.
func (m *S3Client) AddObject(bucket, key string, body []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.Buckets[bucket]
	if !ok {
		b = &Bucket{Objects: make(map[string]Object)}
		m.Buckets[bucket] = b
	}
	b.Objects[key] = Object{Body: body}
}

// Bucket returns the named bucket, or nil.
func (m *S3Client) Bucket(name string) *Bucket {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Buckets[name]
}

// Calls returns every recorded call in order.
func (m *S3Client) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// Count returns how many times op was called.
func (m *S3Client) Count(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// begin records a call and returns the injected failure for op, if any.
// The caller must hold m.mu.
func (m *S3Client) begin(op string, bucket, key *string) error {
	m.calls = append(m.calls, Call{Op: op, Bucket: aws.ToString(bucket), Key: aws.ToString(key)})
	return m.Failures[op]
}

// HeadBucket implements the aws.S3Client interface for probing buckets
func (m *S3Client) HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("HeadBucket", params.Bucket, nil); err != nil {
		return nil, err
	}
	if err, ok := m.ProbeErrors[*params.Bucket]; ok {
		return nil, err
	}
	b, ok := m.Buckets[*params.Bucket]
	if !ok {
		return nil, NotFound("HeadBucket")
	}
	return &s3.HeadBucketOutput{BucketRegion: aws.String(b.Region)}, nil
}

// CreateBucket implements the aws.S3Client interface for creating buckets
func (m *S3Client) CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("CreateBucket", params.Bucket, nil); err != nil {
		return nil, err
	}
	if _, ok := m.Buckets[*params.Bucket]; ok {
		return nil, S3Error("CreateBucket", http.StatusConflict, "BucketAlreadyOwnedByYou",
			"Your previous request to create the named bucket succeeded and you already own it.")
	}
	region := "us-east-1"
	if params.CreateBucketConfiguration != nil && params.CreateBucketConfiguration.LocationConstraint != "" {
		region = string(params.CreateBucketConfiguration.LocationConstraint)
	}
	m.Buckets[*params.Bucket] = &Bucket{Region: region, Objects: make(map[string]Object)}
	return &s3.CreateBucketOutput{Location: aws.String("/" + *params.Bucket)}, nil
}

// DeleteBucket implements the aws.S3Client interface for deleting buckets
func (m *S3Client) DeleteBucket(ctx context.Context, params *s3.DeleteBucketInput, optFns ...func(*s3.Options)) (*s3.DeleteBucketOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("DeleteBucket", params.Bucket, nil); err != nil {
		return nil, err
	}
	b, ok := m.Buckets[*params.Bucket]
	if !ok {
		return nil, NoSuchBucket("DeleteBucket")
	}
	if len(b.Objects) > 0 {
		return nil, S3Error("DeleteBucket", http.StatusConflict, "BucketNotEmpty",
			"The bucket you tried to delete is not empty")
	}
	delete(m.Buckets, *params.Bucket)
	return &s3.DeleteBucketOutput{}, nil
}

// GetObject implements the aws.S3Client interface for reading objects
func (m *S3Client) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("GetObject", params.Bucket, params.Key); err != nil {
		return nil, err
	}
	b, ok := m.Buckets[*params.Bucket]
	if !ok {
		return nil, NoSuchBucket("GetObject")
	}
	obj, ok := b.Objects[*params.Key]
	if !ok {
		return nil, NoSuchKey("GetObject")
	}

	contentLength := int64(len(obj.Body))
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(obj.Body)),
		ContentLength: &contentLength,
		ContentType:   aws.String(obj.ContentType),
	}, nil
}

// PutObject implements the aws.S3Client interface for writing objects
func (m *S3Client) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	// Read the entire body before taking the lock
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("PutObject", params.Bucket, params.Key); err != nil {
		return nil, err
	}
	b, ok := m.Buckets[*params.Bucket]
	if !ok {
		return nil, NoSuchBucket("PutObject")
	}
	b.Objects[*params.Key] = Object{Body: data, ContentType: aws.ToString(params.ContentType)}

	etag := fmt.Sprintf("\"%x\"", len(data))
	return &s3.PutObjectOutput{ETag: aws.String(etag)}, nil
}

// PutPublicAccessBlock implements the aws.S3Client interface
func (m *S3Client) PutPublicAccessBlock(ctx context.Context, params *s3.PutPublicAccessBlockInput, optFns ...func(*s3.Options)) (*s3.PutPublicAccessBlockOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("PutPublicAccessBlock", params.Bucket, nil); err != nil {
		return nil, err
	}
	b, ok := m.Buckets[*params.Bucket]
	if !ok {
		return nil, NoSuchBucket("PutPublicAccessBlock")
	}
	b.PublicAccessBlock = params.PublicAccessBlockConfiguration
	return &s3.PutPublicAccessBlockOutput{}, nil
}

// PutBucketPolicy implements the aws.S3Client interface
func (m *S3Client) PutBucketPolicy(ctx context.Context, params *s3.PutBucketPolicyInput, optFns ...func(*s3.Options)) (*s3.PutBucketPolicyOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("PutBucketPolicy", params.Bucket, nil); err != nil {
		return nil, err
	}
	b, ok := m.Buckets[*params.Bucket]
	if !ok {
		return nil, NoSuchBucket("PutBucketPolicy")
	}
	// Mirror the service: a public policy is refused while BlockPublicPolicy is on
	if b.PublicAccessBlock == nil || aws.ToBool(b.PublicAccessBlock.BlockPublicPolicy) {
		return nil, S3Error("PutBucketPolicy", http.StatusForbidden, "AccessDenied",
			"User is not authorized to perform: s3:PutBucketPolicy because public policies are blocked by the BlockPublicPolicy block public access setting.")
	}
	b.Policy = aws.ToString(params.Policy)
	return &s3.PutBucketPolicyOutput{}, nil
}

// PutBucketWebsite implements the aws.S3Client interface
func (m *S3Client) PutBucketWebsite(ctx context.Context, params *s3.PutBucketWebsiteInput, optFns ...func(*s3.Options)) (*s3.PutBucketWebsiteOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("PutBucketWebsite", params.Bucket, nil); err != nil {
		return nil, err
	}
	b, ok := m.Buckets[*params.Bucket]
	if !ok {
		return nil, NoSuchBucket("PutBucketWebsite")
	}
	b.Website = params.WebsiteConfiguration
	return &s3.PutBucketWebsiteOutput{}, nil
}

// PutBucketNotificationConfiguration implements the aws.S3Client interface
func (m *S3Client) PutBucketNotificationConfiguration(ctx context.Context, params *s3.PutBucketNotificationConfigurationInput, optFns ...func(*s3.Options)) (*s3.PutBucketNotificationConfigurationOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin("PutBucketNotificationConfiguration", params.Bucket, nil); err != nil {
		return nil, err
	}
	b, ok := m.Buckets[*params.Bucket]
	if !ok {
		return nil, NoSuchBucket("PutBucketNotificationConfiguration")
	}
	b.Notification = params.NotificationConfiguration
	return &s3.PutBucketNotificationConfigurationOutput{}, nil
}

// CreateMultipartUpload is a stub; uploads in tests fit in a single part
func (m *S3Client) CreateMultipartUpload(ctx context.Context, params *s3.CreateMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	return nil, fmt.Errorf("CreateMultipartUpload not implemented in mock")
}

// UploadPart is a stub; uploads in tests fit in a single part
func (m *S3Client) UploadPart(ctx context.Context, params *s3.UploadPartInput, optFns ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	return nil, fmt.Errorf("UploadPart not implemented in mock")
}

// CompleteMultipartUpload is a stub; uploads in tests fit in a single part
func (m *S3Client) CompleteMultipartUpload(ctx context.Context, params *s3.CompleteMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	return nil, fmt.Errorf("CompleteMultipartUpload not implemented in mock")
}

// AbortMultipartUpload is a stub; uploads in tests fit in a single part
func (m *S3Client) AbortMultipartUpload(ctx context.Context, params *s3.AbortMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	return nil, fmt.Errorf("AbortMultipartUpload not implemented in mock")
}
