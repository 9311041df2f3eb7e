// Package storage wraps the S3 operations the object-store provisioner
// and status checker need. Adapted from the teacher's download-centric
// client: this module never downloads a transfer's payload (that is
// the remote peer's job, outside the scheduler's scope per spec §1) —
// it only stands up and tears down the destination marker object the
// provisioner and checker poll against.
package storage

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	xerrors "github.com/connectorhq/transferproc/pkg/errors"
)

// Client provides the S3 operations the provisioner and status checker
// need against a single bucket.
type Client struct {
	s3Client *s3.Client
	bucket   string
}

// NewClient creates a new S3 client for the given bucket/region, using
// the default credential chain (no credential provider is implemented
// by this module, per spec §1's non-goals).
func NewClient(ctx context.Context, bucket, region string) (*Client, error) {
	slog.Info("s3_client_init", "bucket", bucket, "region", region)

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		slog.Error("aws_config_load_failed", "error", err)
		return nil, xerrors.Wrap(err, "failed to load AWS config")
	}

	slog.Info("s3_client_created", "bucket", bucket)
	return &Client{s3Client: s3.NewFromConfig(cfg), bucket: bucket}, nil
}

// HeadBucket confirms the destination bucket is reachable. A failure
// here is logged but not fatal to provisioning: anonymous or
// minimally-privileged credentials may lack s3:HeadBucket.
func (c *Client) HeadBucket(ctx context.Context) error {
	_, err := c.s3Client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.bucket)})
	return err
}

// PutMarker writes a zero-byte marker object at key, signaling that the
// destination is ready to receive (or has received) the transfer.
func (c *Client) PutMarker(ctx context.Context, key string) error {
	slog.Info("s3_put_marker", "bucket", c.bucket, "key", key)
	_, err := c.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		slog.Error("s3_put_marker_failed", "bucket", c.bucket, "key", key, "error", err)
		return xerrors.Wrap(err, "failed to put destination marker")
	}
	return nil
}

// DeleteObject removes the object at key, used on deprovision.
func (c *Client) DeleteObject(ctx context.Context, key string) error {
	slog.Info("s3_delete_object", "bucket", c.bucket, "key", key)
	_, err := c.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		slog.Error("s3_delete_object_failed", "bucket", c.bucket, "key", key, "error", err)
		return xerrors.Wrap(err, "failed to delete destination object")
	}
	return nil
}

// Exists reports whether an object is present at key, used by the
// status checker to decide whether the destination side is done.
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	_, err := c.s3Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && (apiErr.ErrorCode() == "NotFound" || apiErr.ErrorCode() == "NoSuchKey") {
		return false, nil
	}

	slog.Error("s3_head_object_failed", "bucket", c.bucket, "key", key, "error", err)
	return false, xerrors.Wrap(err, "failed to check object existence")
}

func (c *Client) Bucket() string { return c.bucket }
