package s3fsm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/connectorhq/transferproc/pkg/errors"
	"github.com/google/uuid"
	"github.com/superfly/fsm"
)

// handleValidateDestination rejects malformed or adversarial
// destination keys before anything is allocated on the remote side.
func (m *Machine) handleValidateDestination(ctx context.Context, req *fsm.Request[Request, Response]) (*fsm.Response[Response], error) {
	slog.Info("provision_state_validate_destination", "destination_key", req.Msg.DestinationKey)

	if retryCount := fsm.RetryFromContext(ctx); retryCount >= uint64(m.maxRetries) {
		slog.Error("provision_max_retries_exceeded", "destination_key", req.Msg.DestinationKey, "max_retries", m.maxRetries)
		return nil, fsm.Abort(fmt.Errorf("max retries (%d) exceeded", m.maxRetries))
	}

	if err := m.validator.ValidateDestinationKey(req.Msg.DestinationKey); err != nil {
		slog.Error("provision_destination_validation_failed", "destination_key", req.Msg.DestinationKey, "error", err)
		return nil, fsm.Abort(errors.Wrap(err, "destination key validation failed"))
	}

	resp := req.W.Msg
	if resp == nil {
		resp = &Response{}
	}
	return fsm.NewResponse(resp), nil
}

// handleEnsureBucket confirms the bucket is reachable, best-effort.
func (m *Machine) handleEnsureBucket(ctx context.Context, req *fsm.Request[Request, Response]) (*fsm.Response[Response], error) {
	slog.Info("provision_state_ensure_bucket", "bucket", m.client.Bucket())

	resp := req.W.Msg
	if resp == nil {
		return nil, fsm.Abort(fmt.Errorf("response not initialized"))
	}

	if err := m.validator.ValidateBucketName(m.client.Bucket()); err != nil {
		slog.Error("provision_bucket_validation_failed", "bucket", m.client.Bucket(), "error", err)
		return nil, fsm.Abort(errors.Wrap(err, "bucket name validation failed"))
	}

	if err := m.client.HeadBucket(ctx); err != nil {
		slog.Warn("provision_bucket_unconfirmed", "bucket", m.client.Bucket(), "error", err)
		resp.BucketOK = false
	} else {
		resp.BucketOK = true
	}

	return fsm.NewResponse(resp), nil
}

// handlePutMarker writes the destination marker object.
func (m *Machine) handlePutMarker(ctx context.Context, req *fsm.Request[Request, Response]) (*fsm.Response[Response], error) {
	slog.Info("provision_state_put_marker", "destination_key", req.Msg.DestinationKey)

	resp := req.W.Msg
	if resp == nil {
		return nil, fsm.Abort(fmt.Errorf("response not initialized"))
	}

	if err := m.client.PutMarker(ctx, req.Msg.DestinationKey); err != nil {
		slog.Error("provision_put_marker_failed", "destination_key", req.Msg.DestinationKey, "error", err)
		return nil, fsm.Abort(errors.Wrap(err, "failed to put destination marker"))
	}

	resp.MarkerPut = true
	return fsm.NewResponse(resp), nil
}

// handleComplete assigns the provisioned resource id and finishes.
func (m *Machine) handleComplete(ctx context.Context, req *fsm.Request[Request, Response]) (*fsm.Response[Response], error) {
	slog.Info("provision_state_complete", "destination_key", req.Msg.DestinationKey)

	resp := req.W.Msg
	if resp == nil {
		resp = &Response{}
	}

	resp.ResourceId = uuid.NewString()

	slog.Info("provision_complete", "destination_key", req.Msg.DestinationKey, "resource_id", resp.ResourceId)
	return fsm.NewResponse(resp), nil
}
