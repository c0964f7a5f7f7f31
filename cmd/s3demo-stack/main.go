// Package main implements s3demo-stack, which deploys or destroys the SNS
// topic and SQS queue that receive the demo bucket's notifications.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gurre/s3demo/aws"
	"github.com/gurre/s3demo/config"
	"github.com/gurre/s3demo/infra"
	log "github.com/sirupsen/logrus"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("s3demo-stack", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: s3demo-stack [flags] deploy|destroy")
		fmt.Fprintln(os.Stderr, "\nFlags:")
		fs.PrintDefaults()
	}

	region := fs.String("region", "", "AWS region (defaults to AWS_REGION or the profile's region)")
	profile := fs.String("profile", "", "Shared config profile")
	endpoint := fs.String("endpoint", "", "Override the service endpoint, e.g. http://localhost:4566")
	queueName := fs.String("queue", infra.DefaultQueueName, "SQS queue name")
	topicName := fs.String("topic", infra.DefaultTopicName, "SNS topic name")
	displayName := fs.String("display-name", infra.DefaultDisplayName, "SNS topic display name")
	visibility := fs.Duration("visibility-timeout", infra.DefaultVisibilityTimeout*time.Second, "Queue visibility timeout")
	logLevel := fs.String("log-level", "info", "Log level (debug|info|warn|error)")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("failed to parse flags: %w", err)
	}
	if fs.NArg() != 1 || (fs.Arg(0) != "deploy" && fs.Arg(0) != "destroy") {
		fs.Usage()
		return fmt.Errorf("expected exactly one action: deploy or destroy")
	}

	cfg := &config.Config{
		Region:      *region,
		Profile:     *profile,
		Endpoint:    *endpoint,
		WaitTimeout: time.Second,
		LogLevel:    *logLevel,
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	stackCfg := config.StackConfig{
		QueueName:         *queueName,
		TopicName:         *topicName,
		DisplayName:       *displayName,
		VisibilityTimeout: *visibility,
	}
	if err := stackCfg.Validate(); err != nil {
		return fmt.Errorf("invalid stack configuration: %w", err)
	}

	log.SetOutput(os.Stderr)
	log.SetLevel(cfg.Level())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clients, err := aws.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer clients.Close()

	stack := infra.NewStack(clients.SNS, clients.SQS, stackCfg)
	defer func() {
		stack.Metrics().LogReport(log.StandardLogger())
	}()

	switch fs.Arg(0) {
	case "deploy":
		out, err := stack.Deploy(ctx)
		if err != nil {
			return fmt.Errorf("deploy failed: %w", err)
		}
		fmt.Printf("TopicArn: %s\n", out.TopicARN)
		fmt.Printf("QueueUrl: %s\n", out.QueueURL)
	case "destroy":
		if err := stack.Destroy(ctx); err != nil {
			return fmt.Errorf("destroy failed: %w", err)
		}
		fmt.Println("Stack destroyed")
	}
	return nil
}
