package mock

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// AccountID is the account used in every ARN the mocks mint.
const AccountID = "123456789012"

// Topic is the mock state of one SNS topic.
type Topic struct {
	ARN           string
	Attributes    map[string]string
	Subscriptions map[string]string // subscription ARN -> "protocol:endpoint"
}

// SNSClient is an in-memory implementation of aws.SNSClient for testing
type SNSClient struct {
	mu     sync.Mutex
	Region string
	Topics map[string]*Topic // by name
	calls  []Call
}

// NewSNSClient creates a new mock SNS client
func NewSNSClient(region string) *SNSClient {
	return &SNSClient{Region: region, Topics: make(map[string]*Topic)}
}

// Count returns how many times op was called.
func (m *SNSClient) Count(op string) int {
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

// Topic returns the named topic, or nil.
func (m *SNSClient) Topic(name string) *Topic {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Topics[name]
}

func (m *SNSClient) byARN(arn string) (string, *Topic) {
	for name, t := range m.Topics {
		if t.ARN == arn {
			return name, t
		}
	}
	return "", nil
}

func topicNotFound(op string) error {
	return ResponseError("SNS", op, http.StatusNotFound, &snstypes.NotFoundException{
		Message: aws.String("Topic does not exist"),
	})
}

// CreateTopic returns the existing topic when the name is already taken, as SNS does
func (m *SNSClient) CreateTopic(ctx context.Context, params *sns.CreateTopicInput, optFns ...func(*sns.Options)) (*sns.CreateTopicOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name := aws.ToString(params.Name)
	m.calls = append(m.calls, Call{Op: "CreateTopic", Key: name})

	t, ok := m.Topics[name]
	if !ok {
		t = &Topic{
			ARN:           fmt.Sprintf("arn:aws:sns:%s:%s:%s", m.Region, AccountID, name),
			Attributes:    make(map[string]string),
			Subscriptions: make(map[string]string),
		}
		m.Topics[name] = t
	}
	for k, v := range params.Attributes {
		t.Attributes[k] = v
	}
	return &sns.CreateTopicOutput{TopicArn: aws.String(t.ARN)}, nil
}

// SetTopicAttributes implements the aws.SNSClient interface
func (m *SNSClient) SetTopicAttributes(ctx context.Context, params *sns.SetTopicAttributesInput, optFns ...func(*sns.Options)) (*sns.SetTopicAttributesOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Op: "SetTopicAttributes", Key: aws.ToString(params.TopicArn)})

	_, t := m.byARN(aws.ToString(params.TopicArn))
	if t == nil {
		return nil, topicNotFound("SetTopicAttributes")
	}
	t.Attributes[aws.ToString(params.AttributeName)] = aws.ToString(params.AttributeValue)
	return &sns.SetTopicAttributesOutput{}, nil
}

// Subscribe returns the existing subscription for a repeated protocol and endpoint
func (m *SNSClient) Subscribe(ctx context.Context, params *sns.SubscribeInput, optFns ...func(*sns.Options)) (*sns.SubscribeOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Op: "Subscribe", Key: aws.ToString(params.TopicArn)})

	_, t := m.byARN(aws.ToString(params.TopicArn))
	if t == nil {
		return nil, topicNotFound("Subscribe")
	}
	target := aws.ToString(params.Protocol) + ":" + aws.ToString(params.Endpoint)
	for arn, existing := range t.Subscriptions {
		if existing == target {
			return &sns.SubscribeOutput{SubscriptionArn: aws.String(arn)}, nil
		}
	}
	arn := fmt.Sprintf("%s:sub-%d", t.ARN, len(t.Subscriptions)+1)
	t.Subscriptions[arn] = target
	return &sns.SubscribeOutput{SubscriptionArn: aws.String(arn)}, nil
}

// ListTopics returns every topic in a single page, sorted by ARN
func (m *SNSClient) ListTopics(ctx context.Context, params *sns.ListTopicsInput, optFns ...func(*sns.Options)) (*sns.ListTopicsOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Op: "ListTopics"})

	arns := make([]string, 0, len(m.Topics))
	for _, t := range m.Topics {
		arns = append(arns, t.ARN)
	}
	sort.Strings(arns)

	topics := make([]snstypes.Topic, 0, len(arns))
	for _, arn := range arns {
		topics = append(topics, snstypes.Topic{TopicArn: aws.String(arn)})
	}
	return &sns.ListTopicsOutput{Topics: topics}, nil
}

// DeleteTopic removes the topic and its subscriptions
func (m *SNSClient) DeleteTopic(ctx context.Context, params *sns.DeleteTopicInput, optFns ...func(*sns.Options)) (*sns.DeleteTopicOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Op: "DeleteTopic", Key: aws.ToString(params.TopicArn)})

	name, t := m.byARN(aws.ToString(params.TopicArn))
	if t == nil {
		return nil, topicNotFound("DeleteTopic")
	}
	delete(m.Topics, name)
	return &sns.DeleteTopicOutput{}, nil
}
