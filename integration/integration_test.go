package integration

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gurre/s3demo/command"
	"github.com/gurre/s3demo/config"
	"github.com/gurre/s3demo/infra"
	"github.com/gurre/s3demo/integration/mock"
	"github.com/gurre/s3demo/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopCloser struct{ closed int }

func (c *nopCloser) Close() error {
	c.closed++
	return nil
}

// demo runs s3demo commands against a real S3Service backed by the mock client.
type demo struct {
	t      *testing.T
	client *mock.S3Client
	region string
	closer *nopCloser
}

func newDemo(t *testing.T, region string) *demo {
	return &demo{t: t, client: mock.NewS3Client(), region: region, closer: &nopCloser{}}
}

func (d *demo) run(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := command.Run(context.Background(), args, command.Env{
		Program: "s3demo",
		Stdout:  &stdout,
		Stderr:  &stderr,
		Connect: func(ctx context.Context) (storage.Service, io.Closer, error) {
			svc := storage.NewS3Service(d.client, d.region, storage.WithWaitTimeout(time.Second))
			return svc, d.closer, nil
		},
	})
	return code, stdout.String(), stderr.String()
}

func TestCreateBucketScenario(t *testing.T) {
	d := newDemo(t, "us-east-1")

	code, stdout, _ := d.run("create-bucket", "demo-1")
	require.Equal(t, 0, code)
	assert.Equal(t, "No such bucket exists.\nCreating bucket: demo-1\ndemo-1 is ready.\n\n", stdout)

	code, stdout, _ = d.run("create-bucket", "demo-1")
	require.Equal(t, 0, code)
	assert.Equal(t,
		"Bucket 'demo-1' exists and you have permission to access it.\nBucket already exists: demo-1\n",
		stdout)

	assert.Equal(t, 1, d.client.Count("CreateBucket"))
	assert.Equal(t, 2, d.closer.closed)
}

func TestCreateBucketInRegion(t *testing.T) {
	d := newDemo(t, "eu-north-1")

	code, _, _ := d.run("create-bucket", "demo-eu")
	require.Equal(t, 0, code)
	assert.Equal(t, "eu-north-1", d.client.Bucket("demo-eu").Region)
}

func TestUploadDownloadScenario(t *testing.T) {
	d := newDemo(t, "us-east-1")
	d.client.AddBucket("demo-1")

	src := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(src, []byte("remember the milk\n"), 0644))

	code, stdout, _ := d.run("upload-object", "demo-1", src)
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "Object uploaded: notes.txt to demo-1\n")
	assert.Equal(t, []byte("remember the milk\n"), d.client.Bucket("demo-1").Objects["notes.txt"].Body)

	// Downloads land in the working directory under the object key
	work := t.TempDir()
	chdir(t, work)
	require.NoError(t, os.WriteFile("notes.txt", []byte("an older and longer local copy\n"), 0644))

	code, stdout, _ = d.run("download-object", "demo-1", "notes.txt")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "Object downloaded: notes.txt, Content Length: 18\n")

	got, err := os.ReadFile(filepath.Join(work, "notes.txt"))
	require.NoError(t, err)
	assert.Equal(t, "remember the milk\n", string(got))
}

func TestDownloadMissingBucketScenario(t *testing.T) {
	d := newDemo(t, "us-east-1")
	chdir(t, t.TempDir())

	code, stdout, stderr := d.run("download-object", "missing-bucket", "key.txt")
	assert.Equal(t, 1, code)
	assert.Equal(t, "No such bucket exists.\n", stdout)
	assert.Equal(t, "Bucket does not exist: missing-bucket\n", stderr)
	assert.Zero(t, d.client.Count("GetObject"))

	_, err := os.Stat("key.txt")
	assert.True(t, os.IsNotExist(err))
}

func TestDownloadMissingKey(t *testing.T) {
	d := newDemo(t, "us-east-1")
	d.client.AddBucket("demo-1")
	chdir(t, t.TempDir())

	code, _, stderr := d.run("download-object", "demo-1", "absent.txt")
	assert.Equal(t, 1, code)
	assert.Equal(t, "Error downloading object: The specified key does not exist.\n", stderr)
}

func TestDeleteBucketScenario(t *testing.T) {
	d := newDemo(t, "us-east-1")
	d.client.AddObject("full", "k", []byte("v"))
	d.client.AddBucket("empty")

	code, _, stderr := d.run("delete-bucket", "full")
	assert.Equal(t, 1, code)
	assert.Equal(t, "Error deleting bucket: The bucket you tried to delete is not empty\n", stderr)

	code, stdout, _ := d.run("delete-bucket", "empty")
	assert.Equal(t, 0, code)
	assert.Equal(t, "Bucket deleted: empty\n", stdout)
	assert.Nil(t, d.client.Bucket("empty"))
}

func TestCreateWebsiteScenario(t *testing.T) {
	d := newDemo(t, "us-east-1")
	d.client.AddBucket("site")

	code, stdout, _ := d.run("create-website", "site")
	require.Equal(t, 0, code)
	assert.Equal(t,
		"Public access block settings are turned off for the bucket.\n"+
			"Bucket policy set to public.\n"+
			"Static website hosting is enabled for the bucket.\n",
		stdout)

	b := d.client.Bucket("site")
	assert.JSONEq(t,
		`{"Version":"2012-10-17","Statement":[{"Sid":"PublicReadGetObject","Effect":"Allow","Principal":"*","Action":"s3:GetObject","Resource":"arn:aws:s3:::site/*"}]}`,
		b.Policy)
	assert.Equal(t, "index.html", aws.ToString(b.Website.IndexDocument.Suffix))
	assert.Equal(t, "error.html", aws.ToString(b.Website.ErrorDocument.Key))
}

func TestNotificationScenario(t *testing.T) {
	stackCfg := config.StackConfig{
		QueueName:         infra.DefaultQueueName,
		TopicName:         infra.DefaultTopicName,
		DisplayName:       infra.DefaultDisplayName,
		VisibilityTimeout: infra.DefaultVisibilityTimeout * time.Second,
	}
	require.NoError(t, stackCfg.Validate())

	stack := infra.NewStack(mock.NewSNSClient("us-east-1"), mock.NewSQSClient("us-east-1"), stackCfg)
	out, err := stack.Deploy(context.Background())
	require.NoError(t, err)

	d := newDemo(t, "us-east-1")
	d.client.AddBucket("demo-1")

	code, stdout, _ := d.run("add-notification", "demo-1", out.TopicARN)
	require.Equal(t, 0, code)
	assert.Equal(t, "Notification configuration added successfully for bucket: demo-1\n", stdout)

	cfg := d.client.Bucket("demo-1").Notification
	require.Len(t, cfg.TopicConfigurations, 1)
	assert.Equal(t, "NewObjectCreationNotification", aws.ToString(cfg.TopicConfigurations[0].Id))
	assert.Equal(t, out.TopicARN, aws.ToString(cfg.TopicConfigurations[0].TopicArn))
	assert.Equal(t, []types.Event{types.EventS3ObjectCreated}, cfg.TopicConfigurations[0].Events)
}

func TestArityFailureMakesNoRemoteCall(t *testing.T) {
	d := newDemo(t, "us-east-1")

	code, stdout, _ := d.run("upload-object", "demo-1")
	assert.Equal(t, 1, code)
	assert.Equal(t, "Bucket name and file path required\n", stdout)
	assert.Empty(t, d.client.Calls())
	assert.Zero(t, d.closer.closed)
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
