package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gurre/s3demo/guard"
	"github.com/gurre/s3demo/policy"
	"github.com/gurre/s3demo/storage"
)

const (
	// NotificationID identifies the topic configuration added by add-notification
	NotificationID = "NewObjectCreationNotification"
	// ObjectCreatedEvent matches every object creation
	ObjectCreatedEvent = "s3:ObjectCreated:*"

	IndexDocument = "index.html"
	ErrorDocument = "error.html"
)

// Failure is a command error carrying the message printed on stderr.
type Failure struct {
	Message string
	Err     error
}

func (f *Failure) Error() string { return f.Message }

func (f *Failure) Unwrap() error { return f.Err }

func fail(format string, err error) error {
	return &Failure{Message: fmt.Sprintf(format, storage.Message(err)), Err: err}
}

// Dispatcher executes parsed invocations against a storage service.
type Dispatcher struct {
	svc   storage.Service
	guard *guard.Guard
	out   io.Writer
}

// NewDispatcher creates a Dispatcher that prints progress to out.
func NewDispatcher(svc storage.Service, out io.Writer) *Dispatcher {
	return &Dispatcher{
		svc:   svc,
		guard: guard.New(svc, out),
		out:   out,
	}
}

// Execute runs inv. A non-nil error means the command failed and the process
// should exit with status 1.
func (d *Dispatcher) Execute(ctx context.Context, inv Invocation) error {
	if inv.Command == nil || inv.Command.run == nil {
		return ErrInvalidCommand
	}
	return inv.Command.run(d, ctx, inv.Args)
}

func (d *Dispatcher) createBucket(ctx context.Context, args []string) error {
	bucket := args[0]
	if d.guard.BucketExists(ctx, bucket) {
		fmt.Fprintf(d.out, "Bucket already exists: %s\n", bucket)
		return nil
	}

	if err := d.svc.CreateBucket(ctx, bucket); err != nil {
		return fail("%s", err)
	}
	fmt.Fprintf(d.out, "Creating bucket: %s\n", bucket)

	if err := d.svc.WaitUntilExists(ctx, bucket); err != nil {
		return fail("%s", err)
	}
	fmt.Fprintf(d.out, "%s is ready.\n\n", bucket)
	return nil
}

func (d *Dispatcher) uploadObject(ctx context.Context, args []string) error {
	bucket, path := args[0], args[1]
	if !d.guard.BucketExists(ctx, bucket) {
		return &Failure{Message: "Bucket does not exist: " + bucket}
	}

	key := filepath.Base(path)
	f, err := os.Open(path)
	if err != nil {
		return fail("Error uploading object: %s", err)
	}
	defer f.Close()

	if err := d.svc.PutObject(ctx, bucket, key, f); err != nil {
		return fail("Error uploading object: %s", err)
	}
	fmt.Fprintf(d.out, "Object uploaded: %s to %s\n", key, bucket)
	return nil
}

func (d *Dispatcher) downloadObject(ctx context.Context, args []string) error {
	bucket, key := args[0], args[1]
	if !d.guard.BucketExists(ctx, bucket) {
		return &Failure{Message: "Bucket does not exist: " + bucket}
	}

	// Downloads stay inside the working directory
	dest := filepath.FromSlash(key)
	if !filepath.IsLocal(dest) {
		return &Failure{
			Message: "Error during file operation: object key is not a local path: " + key,
			Err:     storage.ErrLocalIO,
		}
	}

	n, err := d.svc.GetObjectToFile(ctx, bucket, key, dest)
	if err != nil {
		if errors.Is(err, storage.ErrLocalIO) {
			return fail("Error during file operation: %s", err)
		}
		return fail("Error downloading object: %s", err)
	}
	fmt.Fprintf(d.out, "Object downloaded: %s, Content Length: %d\n", key, n)
	return nil
}

func (d *Dispatcher) deleteBucket(ctx context.Context, args []string) error {
	bucket := args[0]
	if err := d.svc.DeleteBucket(ctx, bucket); err != nil {
		return fail("Error deleting bucket: %s", err)
	}
	fmt.Fprintf(d.out, "Bucket deleted: %s\n", bucket)
	return nil
}

func (d *Dispatcher) createWebsite(ctx context.Context, args []string) error {
	bucket := args[0]

	if err := d.svc.SetPublicAccessBlock(ctx, bucket, storage.PublicAccessBlock{}); err != nil {
		return fail("Error occurred: %s", err)
	}
	fmt.Fprintln(d.out, "Public access block settings are turned off for the bucket.")

	doc, err := policy.PublicRead(bucket).String()
	if err != nil {
		return fail("Error occurred: %s", err)
	}
	if err := d.svc.SetBucketPolicy(ctx, bucket, doc); err != nil {
		return fail("Error occurred: %s", err)
	}
	fmt.Fprintln(d.out, "Bucket policy set to public.")

	if err := d.svc.SetWebsiteConfig(ctx, bucket, IndexDocument, ErrorDocument); err != nil {
		return fail("Error occurred: %s", err)
	}
	fmt.Fprintln(d.out, "Static website hosting is enabled for the bucket.")
	return nil
}

func (d *Dispatcher) addNotification(ctx context.Context, args []string) error {
	bucket, topicARN := args[0], args[1]
	err := d.svc.SetNotificationConfig(ctx, bucket, storage.TopicNotification{
		ID:       NotificationID,
		TopicARN: topicARN,
		Events:   []string{ObjectCreatedEvent},
	})
	if err != nil {
		return fail("Failed to add notification configuration: %s", err)
	}
	fmt.Fprintf(d.out, "Notification configuration added successfully for bucket: %s\n", bucket)
	return nil
}
