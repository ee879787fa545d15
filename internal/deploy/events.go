package deploy

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	digest "github.com/opencontainers/go-digest"
)

// Failure is the first resource that failed during a stack operation.
type Failure struct {
	LogicalID    string
	ResourceType string
	Status       string
	Reason       string
}

func (f Failure) String() string {
	return fmt.Sprintf("%s (%s) %s: %s", f.LogicalID, f.ResourceType, f.Status, f.Reason)
}

// failure builds the error for a stack that ended in status, naming the first
// resource that failed after since.
func (e *Engine) failure(ctx context.Context, name string, status types.StackStatus, since time.Time) error {
	first, err := e.FirstFailure(ctx, name, since)
	if err != nil {
		e.log.V(1).Info("could not read stack events", "stack", name, "error", err.Error())
	}
	if first == nil {
		return fmt.Errorf("%w: %s ended in %s", ErrStackFailed, name, status)
	}
	e.log.Error(ErrStackFailed, "resource failed", "stack", name, "resource", first.LogicalID, "reason", first.Reason)
	return fmt.Errorf("%w: %s ended in %s: %s", ErrStackFailed, name, status, first)
}

// FirstFailure returns the earliest failed resource event of the named stack
// newer than since, or nil when there is none.
func (e *Engine) FirstFailure(ctx context.Context, name string, since time.Time) (*Failure, error) {
	var first *Failure
	input := &cloudformation.DescribeStackEventsInput{StackName: aws.String(name)}
	for {
		out, err := e.cfn.DescribeStackEvents(ctx, input)
		if err != nil {
			return first, fmt.Errorf("describing stack events: %w", describeAPIError(err))
		}
		// Events are returned newest first.
		for _, ev := range out.StackEvents {
			if ev.Timestamp != nil && ev.Timestamp.Before(since) {
				return first, nil
			}
			status := string(ev.ResourceStatus)
			reason := aws.ToString(ev.ResourceStatusReason)
			if !strings.HasSuffix(status, "_FAILED") || strings.Contains(reason, "Resource creation cancelled") {
				continue
			}
			first = &Failure{
				LogicalID:    aws.ToString(ev.LogicalResourceId),
				ResourceType: aws.ToString(ev.ResourceType),
				Status:       status,
				Reason:       reason,
			}
		}
		if out.NextToken == nil {
			return first, nil
		}
		input.NextToken = out.NextToken
	}
}

// upload stores body in the asset bucket under a content-addressed key and
// returns its URL.
func (e *Engine) upload(ctx context.Context, name string, body []byte) (string, error) {
	if e.s3 == nil || e.bucket == "" {
		return "", fmt.Errorf("%w: %d bytes exceeds %d; configure an asset bucket", ErrTemplateTooLarge, len(body), e.inlineLimit)
	}
	key := fmt.Sprintf("%s/%s.json", name, digest.FromBytes(body).Encoded())
	if _, err := e.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	}); err != nil {
		return "", fmt.Errorf("uploading template to s3://%s/%s: %w", e.bucket, key, describeAPIError(err))
	}
	e.log.V(1).Info("staged template", "bucket", e.bucket, "key", key, "bytes", len(body))
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", e.bucket, key), nil
}
