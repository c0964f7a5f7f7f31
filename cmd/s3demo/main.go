// Package main implements the s3demo command-line interface. Flags configure
// the AWS client; the first positional argument selects the command.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/gurre/s3demo/aws"
	"github.com/gurre/s3demo/command"
	"github.com/gurre/s3demo/config"
	"github.com/gurre/s3demo/metrics"
	"github.com/gurre/s3demo/storage"
	log "github.com/sirupsen/logrus"
)

const program = "s3demo"

func main() {
	os.Exit(run(os.Args[1:]))
}

// run parses flags, then hands the remaining arguments to the dispatcher.
// It returns the process exit status so deferred cleanup always runs.
func run(args []string) int {
	fs := flag.NewFlagSet(program, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, command.Usage(program))
		fmt.Fprintln(os.Stderr, "\nFlags:")
		fs.PrintDefaults()
	}

	region := fs.String("region", "", "AWS region (defaults to AWS_REGION or the profile's region)")
	profile := fs.String("profile", "", "Shared config profile")
	endpoint := fs.String("endpoint", "", "Override the S3 endpoint, e.g. http://localhost:9000")
	pathStyle := fs.Bool("path-style", false, "Use path-style bucket addressing")
	waitTimeout := fs.Duration("wait-timeout", storage.DefaultWaitTimeout, "Maximum time to wait for a new bucket")
	logLevel := fs.String("log-level", "warn", "Log level (debug|info|warn|error)")

	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg := &config.Config{
		Region:       *region,
		Profile:      *profile,
		Endpoint:     *endpoint,
		UsePathStyle: *pathStyle,
		WaitTimeout:  *waitTimeout,
		LogLevel:     *logLevel,
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid configuration: %v\n", err)
		return 1
	}

	log.SetOutput(os.Stderr)
	log.SetLevel(cfg.Level())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	calls := metrics.NewMetrics()
	code := command.Run(ctx, fs.Args(), command.Env{
		Program: program,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Connect: func(ctx context.Context) (storage.Service, io.Closer, error) {
			clients, err := aws.Open(ctx, cfg)
			if err != nil {
				return nil, nil, err
			}
			svc := storage.NewS3Service(clients.S3, clients.Region,
				storage.WithWaitTimeout(cfg.WaitTimeout),
				storage.WithMetrics(calls),
			)
			return svc, clients, nil
		},
	})

	calls.LogReport(log.StandardLogger())
	return code
}
