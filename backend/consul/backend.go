package consul

import (
	"context"

	"github.com/hashicorp/consul/api"
	"github.com/mwantia/usal"
	"github.com/mwantia/usal/data"
)

// ConsulBackend stores entities directly in HashiCorp Consul KV.
//
// Architecture:
// - Each entity is one KV entry with its normalized path as the key
// - Directories are virtual and exist only as key prefixes
// - Prefix is configurable (default: "/")
//
// Limitations:
// - Consul KV has a 512KB limit per value
// - Best suited for configuration files, small assets, and metadata storage
type ConsulBackend struct {
	client *api.Client
	kv     *api.KV

	config *ConsulBackendConfig
}

// ConsulBackendConfig contains configuration options for the Consul backend.
type ConsulBackendConfig struct {
	// Address of the Consul server (default: "127.0.0.1:8500")
	Address string

	// Token for Consul ACL authentication (optional)
	Token string

	// Datacenter to use (optional)
	Datacenter string

	// Prefix for all keys in Consul KV (default: "/")
	Prefix string
}

// maxValueSize stays below Consul's 512KB KV cap.
const maxValueSize = 500 * 1024

func NewConsulBackend(config *ConsulBackendConfig) (*ConsulBackend, error) {
	if config == nil {
		config = &ConsulBackendConfig{}
	}

	if config.Address == "" {
		config.Address = "127.0.0.1:8500"
	}
	if config.Prefix == "" {
		config.Prefix = "/"
	}

	clientConfig := api.DefaultConfig()
	clientConfig.Address = config.Address
	if config.Token != "" {
		clientConfig.Token = config.Token
	}
	if config.Datacenter != "" {
		clientConfig.Datacenter = config.Datacenter
	}

	client, err := api.NewClient(clientConfig)
	if err != nil {
		return nil, err
	}

	return &ConsulBackend{
		client: client,
		kv:     client.KV(),
		config: config,
	}, nil
}

// Name returns the identifier name defined for this backend.
func (*ConsulBackend) Name() string {
	return "consul"
}

// Open is part of the lifecycle behaviour and gets called when opening this backend.
func (cb *ConsulBackend) Open(ctx context.Context) error {
	// Nothing to initialize - Consul handles connections
	return nil
}

// Close is part of the lifecycle behaviour and gets called when closing this backend.
func (cb *ConsulBackend) Close(ctx context.Context) error {
	// Nothing to clean up - Consul client is stateless
	return nil
}

// GetCapabilities returns the descriptor of supported operations.
// Copy and rename are deliberately absent; callers route them through a
// layer or another backend.
func (cb *ConsulBackend) GetCapabilities() *usal.Capabilities {
	return &usal.Capabilities{
		Operations: []data.Operation{
			data.OperationRead,
			data.OperationWrite,
			data.OperationStat,
			data.OperationDelete,
			data.OperationList,
			data.OperationScan,
			data.OperationBatch,
		},
		Variants: []usal.Variant{
			usal.VariantReadMetadataOnly,
			usal.VariantWriteIfNotExists,
			usal.VariantListCursor,
		},
		MaxBatchSize: 64,
	}
}

// Batch executes sub-operations through this backend's own typed methods.
func (cb *ConsulBackend) Batch(ctx context.Context, args data.OpBatch) (*data.BatchReply, error) {
	return usal.ExecuteBatch(ctx, cb, args)
}

func (cb *ConsulBackend) Copy(ctx context.Context, path string, args data.OpCopy) (*data.CopyReply, error) {
	return nil, data.NewUnsupported(data.OperationCopy, path, nil)
}

func (cb *ConsulBackend) Rename(ctx context.Context, path string, args data.OpRename) (*data.RenameReply, error) {
	return nil, data.NewUnsupported(data.OperationRename, path, nil)
}

func (cb *ConsulBackend) Presign(ctx context.Context, path string, args data.OpPresign) (*data.PresignReply, error) {
	return nil, data.NewUnsupported(data.OperationPresign, path, nil)
}

// classify maps Consul client failures onto the closed error kind set.
func classify(op data.Operation, path string, err error) *data.Error {
	if ce := data.ClassifyContext(op, path, err); ce != nil {
		return ce
	}

	return data.NewBackendUnavailable(op, path, err)
}
