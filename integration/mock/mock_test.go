package mock

import (
	awsapi "github.com/gurre/s3demo/aws"
)

var (
	_ awsapi.S3Client  = (*S3Client)(nil)
	_ awsapi.SNSClient = (*SNSClient)(nil)
	_ awsapi.SQSClient = (*SQSClient)(nil)
)
