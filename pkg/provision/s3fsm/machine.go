package s3fsm

import (
	"context"

	"github.com/connectorhq/transferproc/pkg/errors"
	"github.com/connectorhq/transferproc/pkg/security"
	"github.com/connectorhq/transferproc/pkg/storage"
	"github.com/superfly/fsm"
)

// Machine holds dependencies for the provisioning workflow transitions.
type Machine struct {
	client     *storage.Client
	validator  *security.Validator
	maxRetries int
}

// NewMachine creates a new provisioning FSM machine with dependencies.
func NewMachine(client *storage.Client, validator *security.Validator, maxRetries int) *Machine {
	return &Machine{client: client, validator: validator, maxRetries: maxRetries}
}

// Register registers the S3 provisioning FSM.
func (m *Machine) Register(ctx context.Context, manager *fsm.Manager) (fsm.Start[Request, Response], fsm.Resume, error) {
	start, resume, err := fsm.Register[Request, Response](manager, "s3-resource-provision").
		Start(StateValidateDestination, m.handleValidateDestination).
		To(StateEnsureBucket, m.handleEnsureBucket).
		To(StatePutMarker, m.handlePutMarker).
		To(StateComplete, m.handleComplete).
		End(StateFailed).
		Build(ctx)

	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to register S3 provisioning FSM")
	}

	return start, resume, nil
}
