package aws

import (
	"context"
	"fmt"
	"sync"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/gurre/s3demo/config"
	log "github.com/sirupsen/logrus"
)

// Clients is the single service handle opened once per process.
// It owns the HTTP client shared by every SDK client so that Close
// releases pooled connections regardless of how the command ended.
type Clients struct {
	S3     *s3.Client
	SNS    *sns.Client
	SQS    *sqs.Client
	Region string

	httpClient idleCloser
	closeOnce  sync.Once
}

type idleCloser interface {
	CloseIdleConnections()
}

// Open loads the shared AWS configuration and builds the service clients.
// The caller must Close the returned handle.
func Open(ctx context.Context, cfg *config.Config) (*Clients, error) {
	// The config loader customises a buildable client, e.g. with a CA bundle
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithHTTPClient(awshttp.NewBuildableClient()),
	}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, awsconfig.WithBaseEndpoint(cfg.Endpoint))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	if awsCfg.Region == "" {
		return nil, fmt.Errorf("region is required: set -region, AWS_REGION or a profile region")
	}

	// Freeze so every client shares one *http.Client we can release on Close
	if b, ok := awsCfg.HTTPClient.(*awshttp.BuildableClient); ok {
		awsCfg.HTTPClient = b.Freeze()
	}
	closer, _ := awsCfg.HTTPClient.(idleCloser)

	log.WithFields(log.Fields{
		"region":   awsCfg.Region,
		"endpoint": cfg.Endpoint,
		"profile":  cfg.Profile,
	}).Debug("opened AWS clients")

	return &Clients{
		S3: s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.UsePathStyle = cfg.UsePathStyle
		}),
		SNS:        sns.NewFromConfig(awsCfg),
		SQS:        sqs.NewFromConfig(awsCfg),
		Region:     awsCfg.Region,
		httpClient: closer,
	}, nil
}

// Close releases the pooled connections. It is safe to call more than once.
func (c *Clients) Close() error {
	c.closeOnce.Do(func() {
		if c.httpClient != nil {
			c.httpClient.CloseIdleConnections()
		}
		log.Debug("closed AWS clients")
	})
	return nil
}
