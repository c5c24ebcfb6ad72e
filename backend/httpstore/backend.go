package httpstore

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/mwantia/usal"
	"github.com/mwantia/usal/data"
)

// HTTPBackend serves read-only entities from a plain HTTP endpoint, such
// as a static file server or a public bucket website. Writes, deletes and
// listings are not expressible over plain HTTP and fail as unsupported;
// presigning degenerates to the entity's URL.
type HTTPBackend struct {
	client   *http.Client
	endpoint string
	root     string
}

// HTTPBackendConfig contains configuration options for the HTTP backend.
type HTTPBackendConfig struct {
	// Endpoint is the base URL, scheme included ("https://files.example.com")
	Endpoint string

	// Root prefixes every path below the endpoint (default: "/")
	Root string

	// Client overrides the HTTP client (default: http.DefaultClient)
	Client *http.Client
}

func NewHTTPBackend(config *HTTPBackendConfig) (*HTTPBackend, error) {
	if config == nil {
		config = &HTTPBackendConfig{}
	}

	endpoint := strings.TrimSuffix(config.Endpoint, "/")
	if _, err := url.Parse(endpoint); err != nil {
		return nil, err
	}

	client := config.Client
	if client == nil {
		client = http.DefaultClient
	}

	return &HTTPBackend{
		client:   client,
		endpoint: endpoint,
		root:     data.NormalizeRoot(config.Root),
	}, nil
}

// Name returns the identifier name defined for this backend.
func (*HTTPBackend) Name() string {
	return "httpstore"
}

// Open is part of the lifecycle behaviour and gets called when opening this backend.
func (hb *HTTPBackend) Open(ctx context.Context) error {
	// Reachability is probed per call - static servers commonly reject
	// requests against the bare endpoint
	return nil
}

// Close is part of the lifecycle behaviour and gets called when closing this backend.
func (hb *HTTPBackend) Close(ctx context.Context) error {
	return nil
}

// GetCapabilities returns the descriptor of supported operations. This is
// the deliberately narrow end of the capability spectrum: no writes and no
// listing at all.
func (hb *HTTPBackend) GetCapabilities() *usal.Capabilities {
	return &usal.Capabilities{
		Operations: []data.Operation{
			data.OperationRead,
			data.OperationStat,
			data.OperationPresign,
			data.OperationBatch,
		},
		Variants: []usal.Variant{
			usal.VariantReadRange,
			usal.VariantReadMetadataOnly,
			usal.VariantPresignRead,
		},
		MaxBatchSize: 64,
	}
}

// Batch executes sub-operations through this backend's own typed methods.
func (hb *HTTPBackend) Batch(ctx context.Context, args data.OpBatch) (*data.BatchReply, error) {
	return usal.ExecuteBatch(ctx, hb, args)
}

func (hb *HTTPBackend) Write(ctx context.Context, path string, args data.OpWrite) (*data.WriteReply, error) {
	return nil, data.NewUnsupported(data.OperationWrite, path, nil)
}

func (hb *HTTPBackend) Delete(ctx context.Context, path string, args data.OpDelete) (*data.DeleteReply, error) {
	return nil, data.NewUnsupported(data.OperationDelete, path, nil)
}

func (hb *HTTPBackend) List(ctx context.Context, path string, args data.OpList) (*data.ListReply, error) {
	return nil, data.NewUnsupported(data.OperationList, path, nil)
}

func (hb *HTTPBackend) Scan(ctx context.Context, path string, args data.OpScan) (*data.ScanReply, error) {
	return nil, data.NewUnsupported(data.OperationScan, path, nil)
}

func (hb *HTTPBackend) Copy(ctx context.Context, path string, args data.OpCopy) (*data.CopyReply, error) {
	return nil, data.NewUnsupported(data.OperationCopy, path, nil)
}

func (hb *HTTPBackend) Rename(ctx context.Context, path string, args data.OpRename) (*data.RenameReply, error) {
	return nil, data.NewUnsupported(data.OperationRename, path, nil)
}

// entityURL builds the percent-encoded URL of a normalized path.
func (hb *HTTPBackend) entityURL(path string) string {
	key := data.BuildAbsPath(hb.root, path)

	segments := strings.Split(key, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}

	return hb.endpoint + "/" + strings.Join(segments, "/")
}

// classifyStatus maps HTTP response codes onto the closed error kind set.
func classifyStatus(op data.Operation, path string, status int) *data.Error {
	switch status {
	case http.StatusNotFound:
		return data.NewNotFound(op, path, nil)
	case http.StatusForbidden, http.StatusUnauthorized:
		return data.NewPermissionDenied(op, path, nil)
	case http.StatusRequestedRangeNotSatisfiable:
		return data.NewInvalidArgument(op, path, nil)
	}

	return data.NewBackendUnavailable(op, path, nil)
}

// classify maps transport failures onto the closed error kind set.
func classify(op data.Operation, path string, err error) *data.Error {
	if ce := data.ClassifyContext(op, path, err); ce != nil {
		return ce
	}

	return data.NewBackendUnavailable(op, path, err)
}
