package transfermanager

import (
	"context"

	"github.com/connectorhq/transferproc/pkg/transfer"
)

// InitiateConsumerRequest starts (or resumes) a consumer-side transfer
// for req. It is safe to call more than once for the same
// req.Id: at most one process is ever created per transfer id (spec
// §4.4), and the id of that process is returned every time.
func (m *Manager) InitiateConsumerRequest(ctx context.Context, req transfer.DataRequest) (string, error) {
	return m.initiate(ctx, transfer.Consumer, req)
}

// InitiateProviderRequest is InitiateConsumerRequest's provider-side
// counterpart.
func (m *Manager) InitiateProviderRequest(ctx context.Context, req transfer.DataRequest) (string, error) {
	return m.initiate(ctx, transfer.Provider, req)
}

func (m *Manager) initiate(ctx context.Context, t transfer.Type, req transfer.DataRequest) (string, error) {
	existing, err := m.store.ProcessIdForTransferId(ctx, req.Id)
	if err != nil {
		return "", err
	}
	if existing != "" {
		m.monitor.Info("initiate_idempotent_hit", "transfer_id", req.Id, "process_id", existing)
		return existing, nil
	}

	p := transfer.New(t, req)
	if err := m.store.Create(ctx, p); err != nil {
		return "", err
	}

	m.monitor.Info("initiate_created", "transfer_id", req.Id, "process_id", p.Id, "type", string(t))
	return p.Id, nil
}
