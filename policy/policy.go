// Package policy builds the JSON resource policies attached to buckets,
// topics and queues.
package policy

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// Version is the IAM policy language version used by every document.
const Version = "2012-10-17"

// Document is an IAM resource policy.
type Document struct {
	Version   string      `json:"Version"`
	Statement []Statement `json:"Statement"`
}

// Statement is one entry of a Document. Principal is either "*" or a
// Principal value.
type Statement struct {
	Sid       string                       `json:"Sid,omitempty"`
	Effect    string                       `json:"Effect"`
	Principal any                          `json:"Principal"`
	Action    string                       `json:"Action"`
	Resource  string                       `json:"Resource"`
	Condition map[string]map[string]string `json:"Condition,omitempty"`
}

// Principal names a service principal.
type Principal struct {
	Service string `json:"Service"`
}

// String renders the document as JSON.
func (d Document) String() (string, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("failed to encode policy: %w", err)
	}
	return string(b), nil
}

// ObjectsARN returns the ARN matching every object in bucket.
func ObjectsARN(bucket string) string {
	return fmt.Sprintf("arn:aws:s3:::%s/*", bucket)
}

// PublicRead allows anonymous s3:GetObject on every object in bucket.
func PublicRead(bucket string) Document {
	return Document{
		Version: Version,
		Statement: []Statement{{
			Sid:       "PublicReadGetObject",
			Effect:    "Allow",
			Principal: "*",
			Action:    "s3:GetObject",
			Resource:  ObjectsARN(bucket),
		}},
	}
}

// TopicPublish allows the S3 service to publish event notifications to topicARN.
func TopicPublish(topicARN string) Document {
	return Document{
		Version: Version,
		Statement: []Statement{{
			Sid:       "AllowS3Publish",
			Effect:    "Allow",
			Principal: Principal{Service: "s3.amazonaws.com"},
			Action:    "SNS:Publish",
			Resource:  topicARN,
		}},
	}
}

// QueueSend allows topicARN, and only that topic, to deliver messages to queueARN.
func QueueSend(queueARN, topicARN string) Document {
	return Document{
		Version: Version,
		Statement: []Statement{{
			Sid:       "AllowTopicSendMessage",
			Effect:    "Allow",
			Principal: Principal{Service: "sns.amazonaws.com"},
			Action:    "sqs:SendMessage",
			Resource:  queueARN,
			Condition: map[string]map[string]string{
				"ArnEquals": {"aws:SourceArn": topicARN},
			},
		}},
	}
}
