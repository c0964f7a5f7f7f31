// Package guard decides whether a bucket exists before a command acts on it.
// It probes the bucket once, classifies the answer into a closed set of
// results and reports the classification on the console.
package guard

import (
	"context"
	"fmt"
	"io"

	"github.com/gurre/s3demo/storage"
	log "github.com/sirupsen/logrus"
)

// Result is the classified outcome of an existence probe.
type Result int

const (
	NotFound          Result = iota // The bucket does not exist
	ExistsAccessible                // The bucket exists and the caller may use it
	ExistsWrongRegion               // The bucket exists in another region
	ExistsForbidden                 // The bucket exists but access is denied
	ExistsUnverified                // The probe failed for another reason
)

func (r Result) String() string {
	switch r {
	case NotFound:
		return "NotFound"
	case ExistsAccessible:
		return "ExistsAccessible"
	case ExistsWrongRegion:
		return "ExistsWrongRegion"
	case ExistsForbidden:
		return "ExistsForbidden"
	case ExistsUnverified:
		return "ExistsUnverified"
	default:
		return fmt.Sprintf("Result(%d)", int(r))
	}
}

// Exists reports whether commands should treat the bucket as present.
// Only NotFound is absence.
func (r Result) Exists() bool {
	return r != NotFound
}

// Classify maps a probe status to a Result. It is total: every status,
// including unknown values, yields exactly one Result.
func Classify(status storage.ProbeStatus) Result {
	switch status {
	case storage.ProbeOK:
		return ExistsAccessible
	case storage.ProbeNotFound:
		return NotFound
	case storage.ProbeBadRequest:
		return ExistsWrongRegion
	case storage.ProbeForbidden:
		return ExistsForbidden
	default:
		return ExistsUnverified
	}
}

// Prober probes a bucket without transferring data.
type Prober interface {
	HeadBucket(ctx context.Context, bucket string) storage.Probe
}

// Guard checks bucket existence and prints what it found.
type Guard struct {
	prober Prober
	out    io.Writer
}

// New creates a Guard that probes with p and prints to out.
func New(p Prober, out io.Writer) *Guard {
	return &Guard{prober: p, out: out}
}

// Check probes bucket exactly once and returns the classification.
func (g *Guard) Check(ctx context.Context, bucket string) Result {
	probe := g.prober.HeadBucket(ctx, bucket)
	result := Classify(probe.Status)

	switch result {
	case ExistsAccessible:
		fmt.Fprintf(g.out, "Bucket '%s' exists and you have permission to access it.\n", bucket)
	case NotFound:
		fmt.Fprintln(g.out, "No such bucket exists.")
	case ExistsWrongRegion:
		fmt.Fprintln(g.out, "Attempted to access a bucket from a Region other than where it exists.")
	case ExistsForbidden:
		fmt.Fprintln(g.out, "Permission errors in accessing bucket...")
	case ExistsUnverified:
		log.WithFields(log.Fields{
			"bucket": bucket,
			"status": probe.Status.String(),
		}).WithError(probe.Err).Warn("Could not verify bucket, assuming it exists")
	}
	return result
}

// BucketExists reports whether bucket should be treated as existing.
func (g *Guard) BucketExists(ctx context.Context, bucket string) bool {
	return g.Check(ctx, bucket).Exists()
}
