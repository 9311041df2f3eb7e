// Package provision implements the ProvisionManager the scheduler
// consumes from the PROVISIONING and DEPROVISIONING handlers (spec
// §4.1, §6): a resource-kind keyed dispatch table over Provisioner
// implementations, exactly the "registries as lookup tables" shape
// spec §9 calls for.
package provision

import (
	"context"
	"fmt"

	"github.com/connectorhq/transferproc/pkg/transfer"
)

// SecretToken carries whatever short-lived credential a provisioned
// resource needs, opaque to the scheduler.
type SecretToken struct {
	Token string
}

// ProvisionResponse is one resource's provisioning outcome.
type ProvisionResponse struct {
	Resource    transfer.ProvisionedResource
	SecretToken *SecretToken
}

// DeprovisionResponse is one resource's deprovisioning outcome.
type DeprovisionResponse struct {
	Resource transfer.ProvisionedResource
}

// ProvisionOutcome is the value delivered on a Provision future.
type ProvisionOutcome struct {
	Responses []ProvisionResponse
	Err       error
}

// DeprovisionOutcome is the value delivered on a Deprovision future.
type DeprovisionOutcome struct {
	Responses []DeprovisionResponse
	Err       error
}

// Provisioner provisions and deprovisions a single ResourceDefinition
// belonging to the kind it is registered for.
type Provisioner interface {
	Provision(ctx context.Context, p *transfer.TransferProcess, def transfer.ResourceDefinition) (ProvisionResponse, error)
	Deprovision(ctx context.Context, p *transfer.TransferProcess, res transfer.ProvisionedResource) (DeprovisionResponse, error)
}

// Manager is the ProvisionManager: it fans a process's resource
// manifest out across the registered provisioners and joins the
// results into a single future, matching the Java
// `provision(process) -> future<list<ProvisionResponse>>` contract.
type Manager struct {
	provisioners map[string]Provisioner
}

func NewManager() *Manager {
	return &Manager{provisioners: make(map[string]Provisioner)}
}

// Register associates destinationType with a Provisioner.
func (m *Manager) Register(destinationType string, p Provisioner) {
	m.provisioners[destinationType] = p
}

// Provision asynchronously provisions every resource in the process's
// manifest. The scheduler never blocks on the returned channel; it
// starts the work and returns, completing the transition from the
// channel's eventual value (spec §4.2 concurrency contract).
func (m *Manager) Provision(ctx context.Context, p *transfer.TransferProcess) <-chan ProvisionOutcome {
	out := make(chan ProvisionOutcome, 1)
	manifest := p.ResourceManifest.Definitions

	go func() {
		responses := make([]ProvisionResponse, 0, len(manifest))
		for _, def := range manifest {
			provisioner, ok := m.provisioners[def.DestinationType]
			if !ok {
				out <- ProvisionOutcome{Err: fmt.Errorf("no provisioner registered for destination type %q", def.DestinationType)}
				return
			}
			resp, err := provisioner.Provision(ctx, p, def)
			if err != nil {
				out <- ProvisionOutcome{Err: fmt.Errorf("provisioning resource %q: %w", def.Id, err)}
				return
			}
			responses = append(responses, resp)
		}
		out <- ProvisionOutcome{Responses: responses}
	}()

	return out
}

// Deprovision asynchronously deprovisions every resource currently
// attached to the process.
func (m *Manager) Deprovision(ctx context.Context, p *transfer.TransferProcess) <-chan DeprovisionOutcome {
	out := make(chan DeprovisionOutcome, 1)
	resources := p.ProvisionedResourceSet.Resources

	go func() {
		responses := make([]DeprovisionResponse, 0, len(resources))
		for _, res := range resources {
			provisioner, ok := m.provisioners[res.ResourceType]
			if !ok {
				out <- DeprovisionOutcome{Err: fmt.Errorf("no provisioner registered for resource type %q", res.ResourceType)}
				return
			}
			resp, err := provisioner.Deprovision(ctx, p, res)
			if err != nil {
				out <- DeprovisionOutcome{Err: fmt.Errorf("deprovisioning resource %q: %w", res.Id, err)}
				return
			}
			responses = append(responses, resp)
		}
		out <- DeprovisionOutcome{Responses: responses}
	}()

	return out
}
