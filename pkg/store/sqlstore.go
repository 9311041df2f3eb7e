package store

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"log/slog"

	"github.com/connectorhq/transferproc/pkg/errors"
	"github.com/connectorhq/transferproc/pkg/transfer"
	sqlite "modernc.org/sqlite"
)

// sqliteConstraintPrimaryKey is SQLite's extended result code for a
// PRIMARY KEY constraint violation; modernc.org/sqlite surfaces it
// unchanged on *sqlite.Error.Code().
const sqliteConstraintPrimaryKey = 1555

// isDuplicateIdError reports whether err is the driver's primary-key
// violation raised by inserting a process id that already exists.
func isDuplicateIdError(err error) bool {
	var sqliteErr *sqlite.Error
	return stderrors.As(err, &sqliteErr) && sqliteErr.Code() == sqliteConstraintPrimaryKey
}

// SQLStore is a SQLite-backed Store, modeled on the teacher's
// Repository: a thin wrapper around *sql.DB with one method per
// operation and slog at every boundary.
type SQLStore struct {
	db *sql.DB
}

// Open opens (and, if necessary, creates) the SQLite database at path.
func Open(dbPath string) (*SQLStore, error) {
	slog.Info("store_init", "db_path", dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		slog.Error("store_open_failed", "db_path", dbPath, "error", err)
		return nil, errors.Wrap(err, "failed to open transfer process store")
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		slog.Error("store_schema_failed", "db_path", dbPath, "error", err)
		return nil, errors.Wrap(err, "failed to create transfer process schema")
	}

	slog.Info("store_ready", "db_path", dbPath)
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func marshalProcess(p *transfer.TransferProcess) (dataRequest, manifest, resourceSet string, err error) {
	dr, err := json.Marshal(p.DataRequest)
	if err != nil {
		return "", "", "", errors.Wrap(err, "failed to marshal data request")
	}
	rm, err := json.Marshal(p.ResourceManifest)
	if err != nil {
		return "", "", "", errors.Wrap(err, "failed to marshal resource manifest")
	}
	prs, err := json.Marshal(p.ProvisionedResourceSet)
	if err != nil {
		return "", "", "", errors.Wrap(err, "failed to marshal provisioned resource set")
	}
	return string(dr), string(rm), string(prs), nil
}

func scanProcess(scan func(dest ...any) error) (*transfer.TransferProcess, error) {
	var p transfer.TransferProcess
	var state int
	var dataRequest, manifest, resourceSet string
	var errorDetail sql.NullString

	if err := scan(&p.Id, &p.Type, &state, &p.StateCount, &dataRequest, &manifest, &resourceSet, &errorDetail); err != nil {
		return nil, err
	}

	p.State = transfer.State(state)
	p.ErrorDetail = errorDetail.String

	if err := json.Unmarshal([]byte(dataRequest), &p.DataRequest); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal data request")
	}
	if err := json.Unmarshal([]byte(manifest), &p.ResourceManifest); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal resource manifest")
	}
	if err := json.Unmarshal([]byte(resourceSet), &p.ProvisionedResourceSet); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal provisioned resource set")
	}
	return &p, nil
}

const selectColumns = `id, type, state, state_count, data_request, resource_manifest, provisioned_resource_set, error_detail`

func (s *SQLStore) NextForState(ctx context.Context, state transfer.State, batchSize int) ([]*transfer.TransferProcess, error) {
	query := `SELECT ` + selectColumns + ` FROM transfer_processes WHERE state = ? ORDER BY updated_at ASC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, state.Code(), batchSize)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query transfer processes by state")
	}
	defer rows.Close()

	var out []*transfer.TransferProcess
	for rows.Next() {
		p, err := scanProcess(rows.Scan)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan transfer process")
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLStore) Find(ctx context.Context, id string) (*transfer.TransferProcess, error) {
	query := `SELECT ` + selectColumns + ` FROM transfer_processes WHERE id = ?`
	p, err := scanProcess(s.db.QueryRowContext(ctx, query, id).Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find transfer process")
	}
	return p, nil
}

func (s *SQLStore) Create(ctx context.Context, p *transfer.TransferProcess) error {
	dataRequest, manifest, resourceSet, err := marshalProcess(p)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO transfer_processes
			(id, type, state, state_count, transfer_id, data_request, resource_manifest, provisioned_resource_set, error_detail)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		p.Id, p.Type, p.State.Code(), p.StateCount, p.DataRequest.Id,
		dataRequest, manifest, resourceSet, p.ErrorDetail)
	if err != nil {
		if isDuplicateIdError(err) {
			slog.Warn("store_create_duplicate", "process_id", p.Id)
			return &ErrDuplicateProcess{Id: p.Id}
		}
		return errors.Wrap(err, "failed to create transfer process")
	}
	return nil
}

func (s *SQLStore) Update(ctx context.Context, p *transfer.TransferProcess) error {
	dataRequest, manifest, resourceSet, err := marshalProcess(p)
	if err != nil {
		return err
	}

	query := `
		UPDATE transfer_processes
		SET state = ?, state_count = ?, data_request = ?, resource_manifest = ?,
		    provisioned_resource_set = ?, error_detail = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	result, err := s.db.ExecContext(ctx, query,
		p.State.Code(), p.StateCount, dataRequest, manifest, resourceSet, p.ErrorDetail, p.Id)
	if err != nil {
		return errors.Wrap(err, "failed to update transfer process")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return errors.Wrap(sql.ErrNoRows, "transfer process not found: "+p.Id)
	}
	return nil
}

func (s *SQLStore) ProcessIdForTransferId(ctx context.Context, transferId string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM transfer_processes WHERE transfer_id = ?`, transferId).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrap(err, "failed to look up process id for transfer id")
	}
	return id, nil
}

// sqlTx implements TransactionContext over a *sql.Tx.
type sqlTx struct {
	tx *sql.Tx
}

func (t *sqlTx) Find(id string) (*transfer.TransferProcess, error) {
	query := `SELECT ` + selectColumns + ` FROM transfer_processes WHERE id = ?`
	p, err := scanProcess(t.tx.QueryRow(query, id).Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find transfer process in transaction")
	}
	return p, nil
}

func (t *sqlTx) Update(p *transfer.TransferProcess) error {
	dataRequest, manifest, resourceSet, err := marshalProcess(p)
	if err != nil {
		return err
	}
	query := `
		UPDATE transfer_processes
		SET state = ?, state_count = ?, data_request = ?, resource_manifest = ?,
		    provisioned_resource_set = ?, error_detail = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	_, err = t.tx.Exec(query, p.State.Code(), p.StateCount, dataRequest, manifest, resourceSet, p.ErrorDetail, p.Id)
	if err != nil {
		return errors.Wrap(err, "failed to update transfer process in transaction")
	}
	return nil
}

func (s *SQLStore) WithTransaction(ctx context.Context, fn func(tx TransactionContext) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}

	if err := fn(&sqlTx{tx: tx}); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}
