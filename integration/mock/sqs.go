package mock

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// Queue is the mock state of one SQS queue.
type Queue struct {
	URL        string
	ARN        string
	Attributes map[string]string
}

// SQSClient is an in-memory implementation of aws.SQSClient for testing
type SQSClient struct {
	mu     sync.Mutex
	Region string
	Queues map[string]*Queue // by name
	calls  []Call
}

// NewSQSClient creates a new mock SQS client
func NewSQSClient(region string) *SQSClient {
	return &SQSClient{Region: region, Queues: make(map[string]*Queue)}
}

// Count returns how many times op was called.
func (m *SQSClient) Count(op string) int {
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

// Queue returns the named queue, or nil.
func (m *SQSClient) Queue(name string) *Queue {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Queues[name]
}

func (m *SQSClient) byURL(url string) (string, *Queue) {
	for name, q := range m.Queues {
		if q.URL == url {
			return name, q
		}
	}
	return "", nil
}

func queueNotFound(op string) error {
	return ResponseError("SQS", op, http.StatusBadRequest, &sqstypes.QueueDoesNotExist{
		Message: aws.String("The specified queue does not exist."),
	})
}

// CreateQueue returns the existing queue when the name is already taken
func (m *SQSClient) CreateQueue(ctx context.Context, params *sqs.CreateQueueInput, optFns ...func(*sqs.Options)) (*sqs.CreateQueueOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name := aws.ToString(params.QueueName)
	m.calls = append(m.calls, Call{Op: "CreateQueue", Key: name})

	q, ok := m.Queues[name]
	if !ok {
		q = &Queue{
			URL:        fmt.Sprintf("https://sqs.%s.amazonaws.com/%s/%s", m.Region, AccountID, name),
			ARN:        fmt.Sprintf("arn:aws:sqs:%s:%s:%s", m.Region, AccountID, name),
			Attributes: make(map[string]string),
		}
		m.Queues[name] = q
	}
	for k, v := range params.Attributes {
		q.Attributes[k] = v
	}
	return &sqs.CreateQueueOutput{QueueUrl: aws.String(q.URL)}, nil
}

// GetQueueUrl implements the aws.SQSClient interface
func (m *SQSClient) GetQueueUrl(ctx context.Context, params *sqs.GetQueueUrlInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueUrlOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Op: "GetQueueUrl", Key: aws.ToString(params.QueueName)})

	q, ok := m.Queues[aws.ToString(params.QueueName)]
	if !ok {
		return nil, queueNotFound("GetQueueUrl")
	}
	return &sqs.GetQueueUrlOutput{QueueUrl: aws.String(q.URL)}, nil
}

// GetQueueAttributes returns the stored attributes plus QueueArn
func (m *SQSClient) GetQueueAttributes(ctx context.Context, params *sqs.GetQueueAttributesInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueAttributesOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Op: "GetQueueAttributes", Key: aws.ToString(params.QueueUrl)})

	_, q := m.byURL(aws.ToString(params.QueueUrl))
	if q == nil {
		return nil, queueNotFound("GetQueueAttributes")
	}
	attrs := map[string]string{string(sqstypes.QueueAttributeNameQueueArn): q.ARN}
	for k, v := range q.Attributes {
		attrs[k] = v
	}
	return &sqs.GetQueueAttributesOutput{Attributes: attrs}, nil
}

// SetQueueAttributes implements the aws.SQSClient interface
func (m *SQSClient) SetQueueAttributes(ctx context.Context, params *sqs.SetQueueAttributesInput, optFns ...func(*sqs.Options)) (*sqs.SetQueueAttributesOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Op: "SetQueueAttributes", Key: aws.ToString(params.QueueUrl)})

	_, q := m.byURL(aws.ToString(params.QueueUrl))
	if q == nil {
		return nil, queueNotFound("SetQueueAttributes")
	}
	for k, v := range params.Attributes {
		q.Attributes[k] = v
	}
	return &sqs.SetQueueAttributesOutput{}, nil
}

// DeleteQueue implements the aws.SQSClient interface
func (m *SQSClient) DeleteQueue(ctx context.Context, params *sqs.DeleteQueueInput, optFns ...func(*sqs.Options)) (*sqs.DeleteQueueOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Op: "DeleteQueue", Key: aws.ToString(params.QueueUrl)})

	name, q := m.byURL(aws.ToString(params.QueueUrl))
	if q == nil {
		return nil, queueNotFound("DeleteQueue")
	}
	delete(m.Queues, name)
	return &sqs.DeleteQueueOutput{}, nil
}
