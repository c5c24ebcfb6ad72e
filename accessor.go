package usal

import (
	"context"

	"github.com/mwantia/usal/data"
)

// Accessor is the uniform storage operation interface implemented by every
// backend and every layer-produced wrapper. Paths are expected in the
// normalized form described by the data package; callers normalize once at
// the boundary.
//
// Operation methods may be invoked concurrently. Implementations guard
// their own private mutable state; the contract itself serializes nothing.
type Accessor interface {
	// Name returns the identifier name defined for this accessor.
	Name() string

	// Open is part of the lifecycle behaviour and gets called once when
	// the composed chain is brought up. Failures here are fatal to
	// composition.
	Open(ctx context.Context) error

	// Close is part of the lifecycle behaviour and gets called when
	// tearing the chain down.
	Close(ctx context.Context) error

	// GetCapabilities returns the descriptor of supported operations and
	// variants. It is computed at construction time and read-only after.
	GetCapabilities() *Capabilities

	// Read returns the entity's metadata and a body stream. The stream
	// must be closed by the caller.
	Read(ctx context.Context, path string, args data.OpRead) (*data.ReadReply, error)

	// Write stores the body under path. A cancelled write never leaves a
	// partially written entity visible.
	Write(ctx context.Context, path string, args data.OpWrite) (*data.WriteReply, error)

	// Stat returns the entity's metadata.
	Stat(ctx context.Context, path string, args data.OpStat) (*data.StatReply, error)

	// Delete removes the entity at path.
	Delete(ctx context.Context, path string, args data.OpDelete) (*data.DeleteReply, error)

	// List returns the direct children of a directory path.
	List(ctx context.Context, path string, args data.OpList) (*data.ListReply, error)

	// Scan returns all entries below a directory path recursively.
	Scan(ctx context.Context, path string, args data.OpScan) (*data.ScanReply, error)

	// Copy duplicates the entity at path to args.To.
	Copy(ctx context.Context, path string, args data.OpCopy) (*data.CopyReply, error)

	// Rename moves the entity at path to args.To.
	Rename(ctx context.Context, path string, args data.OpRename) (*data.RenameReply, error)

	// Presign constructs a pre-authorized request descriptor without
	// touching backend state.
	Presign(ctx context.Context, path string, args data.OpPresign) (*data.PresignReply, error)

	// Batch executes an ordered sequence of sub-operations, recording
	// per-position outcomes. An individual failure never aborts the
	// remaining positions.
	Batch(ctx context.Context, args data.OpBatch) (*data.BatchReply, error)
}
