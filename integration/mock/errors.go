package mock

import (
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

// ResponseError builds an error shaped like the ones the SDK returns: an
// operation error wrapping an HTTP response error wrapping err.
func ResponseError(service, op string, status int, err error) error {
	return &smithy.OperationError{
		ServiceID:     service,
		OperationName: op,
		Err: &awshttp.ResponseError{
			ResponseError: &smithyhttp.ResponseError{
				Response: &smithyhttp.Response{Response: &http.Response{
					StatusCode: status,
					Header:     http.Header{},
				}},
				Err: err,
			},
			RequestID: "mock-request-id",
		},
	}
}

// S3Error builds an S3 operation error with a generic API error body.
func S3Error(op string, status int, code, message string) error {
	return ResponseError("S3", op, status, &smithy.GenericAPIError{Code: code, Message: message})
}

// NoSuchBucket builds the 404 returned for a missing bucket.
func NoSuchBucket(op string) error {
	return ResponseError("S3", op, http.StatusNotFound, &types.NoSuchBucket{
		Message: aws.String("The specified bucket does not exist"),
	})
}

// NoSuchKey builds the 404 returned for a missing object.
func NoSuchKey(op string) error {
	return ResponseError("S3", op, http.StatusNotFound, &types.NoSuchKey{
		Message: aws.String("The specified key does not exist."),
	})
}

// NotFound builds the 404 HeadBucket returns for a missing bucket.
func NotFound(op string) error {
	return ResponseError("S3", op, http.StatusNotFound, &types.NotFound{
		Message: aws.String("Not Found"),
	})
}
