// Package transfer holds the data model shared by the scheduler and its
// collaborators: the transfer process record, the request that spawned
// it, and the resource bookkeeping the provisioning handlers attach to
// it as the process advances.
package transfer

import (
	"github.com/google/uuid"
)

// Type distinguishes which side of a transfer a process represents.
type Type string

const (
	Consumer Type = "CONSUMER"
	Provider Type = "PROVIDER"
)

// TransferType describes the shape of the data movement the consumer
// asked for.
type TransferType struct {
	DestinationType string
	IsFinite        bool
}

// DataRequest is the immutable request that spawned a process. Its Id
// is the transfer id used for idempotent initiation (§4.4): at most one
// process may ever back a given transfer id.
type DataRequest struct {
	Id               string
	DestinationType  string
	TransferType     TransferType
	ManagedResources bool
	ConnectorId      string
	Protocol         string
	DestinationKey   string
}

// ResourceDefinition is one entry of a ResourceManifest: a declared,
// not-yet-provisioned resource the provisioner must turn into a
// ProvisionedResource.
type ResourceDefinition struct {
	Id              string
	TransferId      string
	DestinationType string
}

// ResourceManifest is the ordered set of resources a transfer needs
// provisioned. Once assigned to a process it is fixed.
type ResourceManifest struct {
	Definitions []ResourceDefinition
}

func (m ResourceManifest) Empty() bool {
	return len(m.Definitions) == 0
}

// ProvisionedResource is a concrete, externally-allocated endpoint
// attached to a process. IsDestination distinguishes the destination
// variant (ProvisionedDataDestinationResource in spec terms) without
// needing a separate Go type: the scheduler's only two capabilities
// over a resource are "what kind is it" and "is it a destination".
type ProvisionedResource struct {
	Id                   string
	ResourceDefinitionId string
	ResourceType         string
	IsDestination        bool
	ErrorMessage         string
}

// ProvisionedResourceSet is the ordered list of resources a process has
// had provisioned so far; each entry carries its own resource id. Add
// appends without checking for an entry with the same id.
type ProvisionedResourceSet struct {
	Resources []ProvisionedResource
}

func (s *ProvisionedResourceSet) Add(r ProvisionedResource) {
	s.Resources = append(s.Resources, r)
}

func (s ProvisionedResourceSet) Empty() bool {
	return len(s.Resources) == 0
}

// DestinationResources returns every resource flagged as a data
// destination resource.
func (s ProvisionedResourceSet) DestinationResources() []ProvisionedResource {
	var out []ProvisionedResource
	for _, r := range s.Resources {
		if r.IsDestination {
			out = append(out, r)
		}
	}
	return out
}

func (s ProvisionedResourceSet) HasDestinationResource() bool {
	for _, r := range s.Resources {
		if r.IsDestination {
			return true
		}
	}
	return false
}

// TransferProcess is the unit of work the scheduler advances.
type TransferProcess struct {
	Id                     string
	Type                   Type
	State                  State
	StateCount             int
	DataRequest            DataRequest
	ResourceManifest       ResourceManifest
	ProvisionedResourceSet ProvisionedResourceSet
	ErrorDetail            string
}

// New constructs a process in its initial state for the given request
// and side. Callers should prefer Store.Create via the idempotent
// initiation path (pkg/transfermanager) over calling New directly,
// except in tests.
func New(t Type, req DataRequest) *TransferProcess {
	return &TransferProcess{
		Id:          uuid.NewString(),
		Type:        t,
		State:       Initial,
		DataRequest: req,
	}
}

// TransitionTo moves the process to the given state. It does not
// validate the edge against the graph in spec §4.1 — handlers are
// trusted to only request legal transitions; the store is the
// single source of truth for what actually got persisted.
func (p *TransferProcess) TransitionTo(s State) {
	p.State = s
	p.StateCount++
}
