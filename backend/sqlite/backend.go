package sqlite

import (
	"context"
	"database/sql"

	"github.com/mwantia/usal"
	"github.com/mwantia/usal/data"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (CGO_ENABLED=0 compatible)
)

// SQLiteBackend stores entities as blobs in a single SQLite database,
// either on disk or in memory (":memory:"). Suited for embedded and
// single-node setups that want persistence without an external service.
type SQLiteBackend struct {
	db *sql.DB
}

func NewSQLiteBackend(dbPath string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	return &SQLiteBackend{db: db}, nil
}

// Name returns the identifier name defined for this backend.
func (*SQLiteBackend) Name() string {
	return "sqlite"
}

// Open is part of the lifecycle behaviour and gets called when opening this backend.
func (sb *SQLiteBackend) Open(ctx context.Context) error {
	_, err := sb.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS usal_objects (
			key TEXT PRIMARY KEY,
			content BLOB NOT NULL,
			size INTEGER NOT NULL DEFAULT 0,
			modify_time INTEGER NOT NULL,
			content_type TEXT,
			etag TEXT
		)
	`)
	if err != nil {
		return classify(data.OperationStat, "/", err)
	}

	return nil
}

// Close is part of the lifecycle behaviour and gets called when closing this backend.
func (sb *SQLiteBackend) Close(ctx context.Context) error {
	return sb.db.Close()
}

// GetCapabilities returns the descriptor of supported operations.
func (sb *SQLiteBackend) GetCapabilities() *usal.Capabilities {
	return &usal.Capabilities{
		Operations: []data.Operation{
			data.OperationRead,
			data.OperationWrite,
			data.OperationStat,
			data.OperationDelete,
			data.OperationList,
			data.OperationScan,
			data.OperationCopy,
			data.OperationRename,
			data.OperationBatch,
		},
		Variants: []usal.Variant{
			usal.VariantReadRange,
			usal.VariantReadMetadataOnly,
			usal.VariantWriteIfNotExists,
			usal.VariantListCursor,
			usal.VariantCopyServerSide,
		},
		MaxBatchSize: 500,
	}
}

// Batch executes sub-operations through this backend's own typed methods.
func (sb *SQLiteBackend) Batch(ctx context.Context, args data.OpBatch) (*data.BatchReply, error) {
	return usal.ExecuteBatch(ctx, sb, args)
}

// Presign is not available for an embedded database.
func (sb *SQLiteBackend) Presign(ctx context.Context, path string, args data.OpPresign) (*data.PresignReply, error) {
	return nil, data.NewUnsupported(data.OperationPresign, path, nil)
}

// classify maps database failures onto the closed error kind set.
func classify(op data.Operation, path string, err error) *data.Error {
	if err == sql.ErrNoRows {
		return data.NewNotFound(op, path, err)
	}
	if ce := data.ClassifyContext(op, path, err); ce != nil {
		return ce
	}

	return data.NewBackendUnavailable(op, path, err)
}
