package store

// schema defines the SQLite layout for persisted transfer processes.
// The DataRequest, ResourceManifest, and ProvisionedResourceSet
// aggregates are stored as JSON blobs: the core only requires that
// reads and writes round-trip faithfully (spec §6), not any particular
// column-per-field layout.
const schema = `
CREATE TABLE IF NOT EXISTS transfer_processes (
    id TEXT PRIMARY KEY,
    type TEXT NOT NULL CHECK(type IN ('CONSUMER', 'PROVIDER')),
    state INTEGER NOT NULL,
    state_count INTEGER NOT NULL DEFAULT 0,
    transfer_id TEXT NOT NULL UNIQUE,
    data_request TEXT NOT NULL,
    resource_manifest TEXT NOT NULL,
    provisioned_resource_set TEXT NOT NULL,
    error_detail TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_transfer_processes_state ON transfer_processes(state);
CREATE INDEX IF NOT EXISTS idx_transfer_processes_transfer_id ON transfer_processes(transfer_id);
`
