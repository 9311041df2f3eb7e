// Package dataflow implements the DataFlowManager the provider-side
// PROVISIONED handler consumes to start serving data (spec §4.1): a
// destination-type keyed dispatch table over flow initiators.
package dataflow

import (
	"fmt"

	"github.com/connectorhq/transferproc/pkg/transfer"
)

// Result is the outcome of DataFlowManager.Initiate, mirroring the
// Java DataFlowInitiateResult's success(endpointRef)/failure(detail)
// shape without needing a sealed class hierarchy.
type Result struct {
	Succeeded bool
	EndpointRef string
	ErrorDetail string
}

func Success(endpointRef string) Result {
	return Result{Succeeded: true, EndpointRef: endpointRef}
}

func Failure(detail string) Result {
	return Result{Succeeded: false, ErrorDetail: detail}
}

// Initiator starts serving data for a provider-side process.
type Initiator func(p *transfer.TransferProcess) Result

// Manager is the DataFlowManager registry.
type Manager struct {
	initiators map[string]Initiator
}

func NewManager() *Manager {
	return &Manager{initiators: make(map[string]Initiator)}
}

func (m *Manager) Register(destinationType string, i Initiator) {
	m.initiators[destinationType] = i
}

// Initiate resolves the initiator for the process's destination type
// and runs it. A process whose destination type has no registered
// initiator fails fast rather than silently succeeding: unlike an
// empty manifest (a legitimate no-op), an unrecognized destination
// type is a configuration error the operator must fix.
func (m *Manager) Initiate(p *transfer.TransferProcess) Result {
	initiator, ok := m.initiators[p.DataRequest.DestinationType]
	if !ok {
		return Failure(fmt.Sprintf("no data flow initiator registered for destination type %q", p.DataRequest.DestinationType))
	}
	return initiator(p)
}
