// Package infra provisions the notification stack used together with the
// demo: an SQS queue subscribed to an SNS topic that S3 may publish to.
package infra

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	awsapi "github.com/gurre/s3demo/aws"
	"github.com/gurre/s3demo/config"
	"github.com/gurre/s3demo/metrics"
	"github.com/gurre/s3demo/policy"
	log "github.com/sirupsen/logrus"
)

// Defaults match the names used when the stack was first declared.
const (
	DefaultQueueName         = "CdkQueue"
	DefaultTopicName         = "CdkTopic"
	DefaultDisplayName       = "My First Topic Yeah"
	DefaultVisibilityTimeout = 300 // seconds
)

// Outputs are the identifiers of a deployed stack.
type Outputs struct {
	TopicARN        string
	QueueURL        string
	QueueARN        string
	SubscriptionARN string
}

// Stack declares the queue, topic, subscription and resource policies.
type Stack struct {
	sns     awsapi.SNSClient
	sqs     awsapi.SQSClient
	cfg     config.StackConfig
	metrics *metrics.Metrics
}

// NewStack creates a Stack. cfg must already be validated.
func NewStack(snsClient awsapi.SNSClient, sqsClient awsapi.SQSClient, cfg config.StackConfig) *Stack {
	return &Stack{
		sns:     snsClient,
		sqs:     sqsClient,
		cfg:     cfg,
		metrics: metrics.NewMetrics(),
	}
}

// Metrics returns the call counters of this stack.
func (s *Stack) Metrics() *metrics.Metrics {
	return s.metrics
}

func (s *Stack) record(op string, err error) {
	s.metrics.RecordCall(op, err)
	if err != nil {
		log.WithField("op", op).WithError(err).Debug("Stack call failed")
	}
}

// Deploy creates or updates every resource of the stack. Each step is
// idempotent, so deploying twice converges on the same resources.
func (s *Stack) Deploy(ctx context.Context) (*Outputs, error) {
	out := &Outputs{}

	queueURL, queueARN, err := s.ensureQueue(ctx)
	if err != nil {
		return nil, err
	}
	out.QueueURL, out.QueueARN = queueURL, queueARN

	topicARN, err := s.ensureTopic(ctx)
	if err != nil {
		return nil, err
	}
	out.TopicARN = topicARN

	// The queue must accept messages from the topic before the subscription delivers any
	queuePolicy, err := policy.QueueSend(queueARN, topicARN).String()
	if err != nil {
		return nil, err
	}
	_, err = s.sqs.SetQueueAttributes(ctx, &sqs.SetQueueAttributesInput{
		QueueUrl: aws.String(queueURL),
		Attributes: map[string]string{
			string(sqstypes.QueueAttributeNamePolicy): queuePolicy,
		},
	})
	s.record("SetQueueAttributes", err)
	if err != nil {
		return nil, fmt.Errorf("failed to set queue policy: %w", err)
	}

	sub, err := s.sns.Subscribe(ctx, &sns.SubscribeInput{
		TopicArn:              aws.String(topicARN),
		Protocol:              aws.String("sqs"),
		Endpoint:              aws.String(queueARN),
		ReturnSubscriptionArn: true,
	})
	s.record("Subscribe", err)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe queue to topic: %w", err)
	}
	out.SubscriptionARN = aws.ToString(sub.SubscriptionArn)

	topicPolicy, err := policy.TopicPublish(topicARN).String()
	if err != nil {
		return nil, err
	}
	_, err = s.sns.SetTopicAttributes(ctx, &sns.SetTopicAttributesInput{
		TopicArn:       aws.String(topicARN),
		AttributeName:  aws.String("Policy"),
		AttributeValue: aws.String(topicPolicy),
	})
	s.record("SetTopicAttributes", err)
	if err != nil {
		return nil, fmt.Errorf("failed to set topic policy: %w", err)
	}

	log.WithFields(log.Fields{
		"topic": out.TopicARN,
		"queue": out.QueueURL,
	}).Info("Stack deployed")
	return out, nil
}

func (s *Stack) ensureQueue(ctx context.Context) (string, string, error) {
	visibility := strconv.Itoa(int(s.cfg.VisibilityTimeout.Seconds()))
	created, err := s.sqs.CreateQueue(ctx, &sqs.CreateQueueInput{
		QueueName: aws.String(s.cfg.QueueName),
		Attributes: map[string]string{
			string(sqstypes.QueueAttributeNameVisibilityTimeout): visibility,
		},
	})
	s.record("CreateQueue", err)
	if err != nil {
		return "", "", fmt.Errorf("failed to create queue %s: %w", s.cfg.QueueName, err)
	}
	queueURL := aws.ToString(created.QueueUrl)

	attrs, err := s.sqs.GetQueueAttributes(ctx, &sqs.GetQueueAttributesInput{
		QueueUrl:       aws.String(queueURL),
		AttributeNames: []sqstypes.QueueAttributeName{sqstypes.QueueAttributeNameQueueArn},
	})
	s.record("GetQueueAttributes", err)
	if err != nil {
		return "", "", fmt.Errorf("failed to read queue ARN: %w", err)
	}
	queueARN := attrs.Attributes[string(sqstypes.QueueAttributeNameQueueArn)]
	if queueARN == "" {
		return "", "", fmt.Errorf("queue %s has no ARN", queueURL)
	}
	return queueURL, queueARN, nil
}

func (s *Stack) ensureTopic(ctx context.Context) (string, error) {
	attrs := map[string]string{}
	if s.cfg.DisplayName != "" {
		attrs["DisplayName"] = s.cfg.DisplayName
	}
	created, err := s.sns.CreateTopic(ctx, &sns.CreateTopicInput{
		Name:       aws.String(s.cfg.TopicName),
		Attributes: attrs,
	})
	s.record("CreateTopic", err)
	if err != nil {
		return "", fmt.Errorf("failed to create topic %s: %w", s.cfg.TopicName, err)
	}
	return aws.ToString(created.TopicArn), nil
}

// Destroy deletes the topic and the queue. Resources that are already gone
// are skipped.
func (s *Stack) Destroy(ctx context.Context) error {
	topicARN, err := s.findTopic(ctx)
	if err != nil {
		return err
	}
	if topicARN != "" {
		_, err := s.sns.DeleteTopic(ctx, &sns.DeleteTopicInput{TopicArn: aws.String(topicARN)})
		s.record("DeleteTopic", err)
		if err != nil {
			return fmt.Errorf("failed to delete topic %s: %w", topicARN, err)
		}
		log.WithField("topic", topicARN).Info("Topic deleted")
	} else {
		log.WithField("topic", s.cfg.TopicName).Info("Topic not found, skipping")
	}

	urlOut, err := s.sqs.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{QueueName: aws.String(s.cfg.QueueName)})
	s.record("GetQueueUrl", err)
	if err != nil {
		var missing *sqstypes.QueueDoesNotExist
		if errors.As(err, &missing) {
			log.WithField("queue", s.cfg.QueueName).Info("Queue not found, skipping")
			return nil
		}
		return fmt.Errorf("failed to look up queue %s: %w", s.cfg.QueueName, err)
	}

	_, err = s.sqs.DeleteQueue(ctx, &sqs.DeleteQueueInput{QueueUrl: urlOut.QueueUrl})
	s.record("DeleteQueue", err)
	if err != nil {
		return fmt.Errorf("failed to delete queue %s: %w", s.cfg.QueueName, err)
	}
	log.WithField("queue", aws.ToString(urlOut.QueueUrl)).Info("Queue deleted")
	return nil
}

// findTopic returns the ARN of the configured topic, or "" if it does not exist.
func (s *Stack) findTopic(ctx context.Context) (string, error) {
	suffix := ":" + s.cfg.TopicName
	paginator := sns.NewListTopicsPaginator(s.sns, &sns.ListTopicsInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		s.record("ListTopics", err)
		if err != nil {
			return "", fmt.Errorf("failed to list topics: %w", err)
		}
		for _, t := range page.Topics {
			if arn := aws.ToString(t.TopicArn); strings.HasSuffix(arn, suffix) {
				return arn, nil
			}
		}
	}
	return "", nil
}
