package local

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/mwantia/usal"
	"github.com/mwantia/usal/data"
)

// LocalBackend serves entities from a directory on the local filesystem.
// Writes go to a temporary file first and are renamed into place, so a
// cancelled or failed write never leaves a partial entity visible.
type LocalBackend struct {
	root string
}

func NewLocalBackend(root string) *LocalBackend {
	return &LocalBackend{
		root: filepath.Clean(root),
	}
}

// Name returns the identifier name defined for this backend.
func (*LocalBackend) Name() string {
	return "local"
}

// Open is part of the lifecycle behaviour and gets called when opening this backend.
func (lb *LocalBackend) Open(ctx context.Context) error {
	info, err := os.Stat(lb.root)
	if err != nil {
		return classify(data.OperationStat, "/", err)
	}
	if !info.IsDir() {
		return data.NewInvalidArgument(data.OperationStat, "/", errors.New("backend root is not a directory"))
	}

	return nil
}

// Close is part of the lifecycle behaviour and gets called when closing this backend.
func (lb *LocalBackend) Close(ctx context.Context) error {
	// The underlying filesystem persists independently
	return nil
}

// GetCapabilities returns the descriptor of supported operations.
func (lb *LocalBackend) GetCapabilities() *usal.Capabilities {
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
		},
		MaxBatchSize: 1000,
	}
}

// Batch executes sub-operations through this backend's own typed methods.
func (lb *LocalBackend) Batch(ctx context.Context, args data.OpBatch) (*data.BatchReply, error) {
	return usal.ExecuteBatch(ctx, lb, args)
}

// Presign is not available for a local filesystem.
func (lb *LocalBackend) Presign(ctx context.Context, path string, args data.OpPresign) (*data.PresignReply, error) {
	return nil, data.NewUnsupported(data.OperationPresign, path, nil)
}

// resolve joins the backend root with a normalized path. The path is
// cleaned against a rooted prefix first, so even a raw path carrying
// parent segments cannot climb above the backend root.
func (lb *LocalBackend) resolve(path string) string {
	if path == "/" {
		return lb.root
	}
	return filepath.Join(lb.root, filepath.Clean("/"+filepath.FromSlash(path)))
}

// classify maps filesystem failures onto the closed error kind set.
func classify(op data.Operation, path string, err error) *data.Error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return data.NewNotFound(op, path, err)
	case errors.Is(err, fs.ErrExist):
		return data.NewAlreadyExists(op, path, err)
	case errors.Is(err, fs.ErrPermission):
		return data.NewPermissionDenied(op, path, err)
	case errors.Is(err, fs.ErrInvalid):
		return data.NewInvalidArgument(op, path, err)
	}
	if ce := data.ClassifyContext(op, path, err); ce != nil {
		return ce
	}

	return data.NewBackendUnavailable(op, path, err)
}
