package provision

import (
	"context"
	"time"

	"github.com/connectorhq/transferproc/pkg/errors"
	"github.com/connectorhq/transferproc/pkg/provision/s3fsm"
	"github.com/connectorhq/transferproc/pkg/security"
	"github.com/connectorhq/transferproc/pkg/storage"
	"github.com/connectorhq/transferproc/pkg/transfer"
	"github.com/superfly/fsm"
)

// S3Provisioner provisions object-store destination resources. Its
// Provision method does not talk to S3 directly; it drives the
// internal s3fsm workflow (validate → ensure bucket → put marker →
// complete), mirroring how the teacher's fetch command drove its own
// image-processing workflow through superfly/fsm.
type S3Provisioner struct {
	destinationType string
	client          *storage.Client
	fsmManager      *fsm.Manager
	start           fsm.Start[s3fsm.Request, s3fsm.Response]
	waitTimeout     time.Duration
}

// NewS3Provisioner builds an S3Provisioner and registers its internal
// provisioning workflow against a dedicated BoltDB-backed fsm.Manager
// at fsmDBPath (the same layout the teacher uses for its own FSM
// state, just scoped to this provisioner instead of the whole app).
func NewS3Provisioner(ctx context.Context, client *storage.Client, validator *security.Validator, destinationType, fsmDBPath string, maxRetries int) (*S3Provisioner, error) {
	fsmManager, err := fsm.New(fsm.Config{DBPath: fsmDBPath})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create provisioning FSM manager")
	}

	machine := s3fsm.NewMachine(client, validator, maxRetries)
	start, _, err := machine.Register(ctx, fsmManager)
	if err != nil {
		return nil, errors.Wrap(err, "failed to register provisioning FSM")
	}

	return &S3Provisioner{
		destinationType: destinationType,
		client:          client,
		fsmManager:      fsmManager,
		start:           start,
		waitTimeout:     30 * time.Second,
	}, nil
}

func (p *S3Provisioner) Close() error {
	p.fsmManager.Shutdown(p.waitTimeout)
	return nil
}

// Provision runs the internal workflow to completion and translates
// its result into a ProvisionResponse the scheduler-facing Manager can
// attach to the process's ProvisionedResourceSet.
func (p *S3Provisioner) Provision(ctx context.Context, proc *transfer.TransferProcess, def transfer.ResourceDefinition) (ProvisionResponse, error) {
	key := destinationKey(proc, def)

	req := &s3fsm.Request{
		ResourceDefinitionId: def.Id,
		TransferId:           def.TransferId,
		DestinationKey:       key,
	}
	resp := &s3fsm.Response{}

	version, err := p.start(ctx, def.Id, fsm.NewRequest(req, resp))
	if err != nil {
		return ProvisionResponse{}, errors.Wrap(err, "failed to start provisioning workflow")
	}

	if err := p.fsmManager.Wait(ctx, version); err != nil {
		return ProvisionResponse{}, errors.Wrap(err, "provisioning workflow failed")
	}

	return ProvisionResponse{
		Resource: transfer.ProvisionedResource{
			Id:                   resp.ResourceId,
			ResourceDefinitionId: def.Id,
			ResourceType:         p.destinationType,
			IsDestination:        true,
		},
	}, nil
}

// Deprovision is a direct S3 delete: tearing down a marker object
// needs no multi-step workflow.
func (p *S3Provisioner) Deprovision(ctx context.Context, proc *transfer.TransferProcess, res transfer.ProvisionedResource) (DeprovisionResponse, error) {
	key := destinationKeyForResource(proc, res)

	if err := p.client.DeleteObject(ctx, key); err != nil {
		return DeprovisionResponse{}, err
	}

	return DeprovisionResponse{Resource: res}, nil
}

func destinationKey(proc *transfer.TransferProcess, def transfer.ResourceDefinition) string {
	if proc.DataRequest.DestinationKey != "" {
		return proc.DataRequest.DestinationKey
	}
	return proc.DataRequest.Id + "/" + def.Id
}

func destinationKeyForResource(proc *transfer.TransferProcess, res transfer.ProvisionedResource) string {
	if proc.DataRequest.DestinationKey != "" {
		return proc.DataRequest.DestinationKey
	}
	return proc.DataRequest.Id + "/" + res.ResourceDefinitionId
}
