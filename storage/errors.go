package storage

import (
	"errors"
	"fmt"
	"net/http"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// Sentinel error kinds. Every *Error carries exactly one of them, so callers
// can test with errors.Is.
var (
	// ErrNotFound indicates that the bucket or object does not exist
	ErrNotFound = errors.New("storage: not found")

	// ErrAccessDenied indicates that the caller lacks permission
	ErrAccessDenied = errors.New("storage: access denied")

	// ErrRegionMismatch indicates that the bucket lives in another region
	ErrRegionMismatch = errors.New("storage: region mismatch")

	// ErrBucketNotEmpty indicates that a bucket still holds objects
	ErrBucketNotEmpty = errors.New("storage: bucket not empty")

	// ErrWaitTimeout indicates that a waiter gave up before its condition held
	ErrWaitTimeout = errors.New("storage: wait timeout")

	// ErrLocalIO indicates a failure reading or writing a local file
	ErrLocalIO = errors.New("storage: local I/O error")

	// ErrRemote is any other failure reported by the storage service
	ErrRemote = errors.New("storage: remote service error")
)

// Error describes a failed storage operation.
type Error struct {
	Op     string // Operation that failed, e.g. "CreateBucket"
	Bucket string
	Key    string
	Kind   error // One of the sentinel kinds above
	Err    error // Underlying SDK or filesystem error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Bucket != "" && e.Key != "" {
		return fmt.Sprintf("s3.%s %s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
	}
	if e.Bucket != "" {
		return fmt.Sprintf("s3.%s bucket %s: %v", e.Op, e.Bucket, e.Err)
	}
	return fmt.Sprintf("s3.%s: %v", e.Op, e.Err)
}

// Unwrap exposes both the kind and the underlying error to errors.Is/As.
func (e *Error) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// remoteError wraps an SDK error with operation context and a kind derived
// from the response.
func remoteError(op, bucket, key string, err error) error {
	return &Error{Op: op, Bucket: bucket, Key: key, Kind: kindOf(err), Err: err}
}

// localError wraps a filesystem error.
func localError(op, bucket, key string, err error) error {
	return &Error{Op: op, Bucket: bucket, Key: key, Kind: ErrLocalIO, Err: err}
}

// StatusCode returns the HTTP status of the response behind err, or 0 when
// err did not come from an HTTP response.
func StatusCode(err error) int {
	var re *awshttp.ResponseError
	if errors.As(err, &re) {
		return re.HTTPStatusCode()
	}
	return 0
}

func kindOf(err error) error {
	var noSuchBucket *types.NoSuchBucket
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noSuchBucket) || errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
		return ErrNotFound
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "BucketNotEmpty":
			return ErrBucketNotEmpty
		case "AccessDenied":
			return ErrAccessDenied
		case "PermanentRedirect", "AuthorizationHeaderMalformed", "IllegalLocationConstraintException":
			return ErrRegionMismatch
		}
	}

	switch StatusCode(err) {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusForbidden:
		return ErrAccessDenied
	case http.StatusMovedPermanently:
		return ErrRegionMismatch
	}
	return ErrRemote
}

// Message returns the text shown to the user for err: the service's own
// error message when there is one, otherwise the error string.
func Message(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if msg := apiErr.ErrorMessage(); msg != "" {
			return msg
		}
		return apiErr.ErrorCode()
	}
	var se *Error
	if errors.As(err, &se) && se.Err != nil {
		return se.Err.Error()
	}
	return err.Error()
}
