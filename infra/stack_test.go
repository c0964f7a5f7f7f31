package infra

import (
	"context"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gurre/s3demo/config"
	"github.com/gurre/s3demo/integration/mock"
	"github.com/gurre/s3demo/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() config.StackConfig {
	return config.StackConfig{
		QueueName:         DefaultQueueName,
		TopicName:         DefaultTopicName,
		DisplayName:       DefaultDisplayName,
		VisibilityTimeout: DefaultVisibilityTimeout * time.Second,
	}
}

func newStack(t *testing.T) (*Stack, *mock.SNSClient, *mock.SQSClient) {
	t.Helper()
	snsClient := mock.NewSNSClient("us-east-1")
	sqsClient := mock.NewSQSClient("us-east-1")
	return NewStack(snsClient, sqsClient, testConfig()), snsClient, sqsClient
}

func TestDeploy(t *testing.T) {
	stack, snsClient, sqsClient := newStack(t)

	out, err := stack.Deploy(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "arn:aws:sns:us-east-1:123456789012:CdkTopic", out.TopicARN)
	assert.Equal(t, "https://sqs.us-east-1.amazonaws.com/123456789012/CdkQueue", out.QueueURL)
	assert.Equal(t, "arn:aws:sqs:us-east-1:123456789012:CdkQueue", out.QueueARN)
	assert.NotEmpty(t, out.SubscriptionARN)

	queue := sqsClient.Queue("CdkQueue")
	require.NotNil(t, queue)
	assert.Equal(t, "300", queue.Attributes["VisibilityTimeout"])

	var queuePolicy policy.Document
	require.NoError(t, json.Unmarshal([]byte(queue.Attributes["Policy"]), &queuePolicy))
	require.Len(t, queuePolicy.Statement, 1)
	assert.Equal(t, "sqs:SendMessage", queuePolicy.Statement[0].Action)
	assert.Equal(t, out.QueueARN, queuePolicy.Statement[0].Resource)

	topic := snsClient.Topic("CdkTopic")
	require.NotNil(t, topic)
	assert.Equal(t, "My First Topic Yeah", topic.Attributes["DisplayName"])
	assert.Contains(t, topic.Attributes["Policy"], `"s3.amazonaws.com"`)
	assert.Contains(t, topic.Attributes["Policy"], `"SNS:Publish"`)
	assert.Equal(t, "sqs:"+out.QueueARN, topic.Subscriptions[out.SubscriptionARN])
}

func TestDeployIsIdempotent(t *testing.T) {
	stack, snsClient, sqsClient := newStack(t)

	first, err := stack.Deploy(context.Background())
	require.NoError(t, err)
	second, err := stack.Deploy(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, snsClient.Topics, 1)
	assert.Len(t, sqsClient.Queues, 1)
	assert.Len(t, snsClient.Topic("CdkTopic").Subscriptions, 1)
	assert.EqualValues(t, 2, stack.Metrics().Calls("CreateTopic"))
}

func TestDestroy(t *testing.T) {
	stack, snsClient, sqsClient := newStack(t)

	_, err := stack.Deploy(context.Background())
	require.NoError(t, err)

	require.NoError(t, stack.Destroy(context.Background()))
	assert.Nil(t, snsClient.Topic("CdkTopic"))
	assert.Nil(t, sqsClient.Queue("CdkQueue"))
	assert.Equal(t, 1, snsClient.Count("DeleteTopic"))
	assert.Equal(t, 1, sqsClient.Count("DeleteQueue"))
}

func TestDestroyMissingResources(t *testing.T) {
	stack, snsClient, sqsClient := newStack(t)

	// A topic whose name only ends like ours must survive
	snsClient.Topics["OtherCdkTopicX"] = &mock.Topic{ARN: "arn:aws:sns:us-east-1:123456789012:OtherCdkTopicX"}

	require.NoError(t, stack.Destroy(context.Background()))
	assert.Zero(t, snsClient.Count("DeleteTopic"))
	assert.Zero(t, sqsClient.Count("DeleteQueue"))
	assert.NotNil(t, snsClient.Topic("OtherCdkTopicX"))
}

func TestDestroyTwice(t *testing.T) {
	stack, _, _ := newStack(t)

	_, err := stack.Deploy(context.Background())
	require.NoError(t, err)
	require.NoError(t, stack.Destroy(context.Background()))
	require.NoError(t, stack.Destroy(context.Background()))
}
