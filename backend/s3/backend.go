package s3

import (
	"context"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/mwantia/usal"
	"github.com/mwantia/usal/data"
)

// S3Backend serves entities from an S3-compatible bucket through the MinIO
// client. Range reads, server-side copy, paginated listing and presigned
// URLs map onto their native S3 counterparts.
type S3Backend struct {
	client *minio.Client
	bucket string
	root   string
}

// S3BackendConfig contains configuration options for the S3 backend.
type S3BackendConfig struct {
	// Endpoint of the S3-compatible service (host[:port], no scheme)
	Endpoint string

	Bucket string

	AccessKey string
	SecretKey string

	UseSSL bool

	// Root prefixes every key inside the bucket (default: "/")
	Root string
}

func NewS3Backend(config *S3BackendConfig) (*S3Backend, error) {
	if config == nil {
		config = &S3BackendConfig{}
	}

	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKey, config.SecretKey, ""),
		Secure: config.UseSSL,
	})
	if err != nil {
		return nil, err
	}

	return &S3Backend{
		client: client,
		bucket: config.Bucket,
		root:   data.NormalizeRoot(config.Root),
	}, nil
}

// Name returns the identifier name defined for this backend.
func (*S3Backend) Name() string {
	return "s3"
}

// Open is part of the lifecycle behaviour and gets called when opening this backend.
func (sb *S3Backend) Open(ctx context.Context) error {
	exists, err := sb.client.BucketExists(ctx, sb.bucket)
	if err != nil {
		return classify(data.OperationStat, "/", err)
	}
	if !exists {
		return data.NewNotFound(data.OperationStat, "/", nil)
	}

	return nil
}

// Close is part of the lifecycle behaviour and gets called when closing this backend.
func (sb *S3Backend) Close(ctx context.Context) error {
	// Nothing to clean up - the client is stateless
	return nil
}

// GetCapabilities returns the descriptor of supported operations.
func (sb *S3Backend) GetCapabilities() *usal.Capabilities {
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
			data.OperationPresign,
			data.OperationBatch,
		},
		Variants: []usal.Variant{
			usal.VariantReadRange,
			usal.VariantReadMetadataOnly,
			usal.VariantWriteSizeHint,
			usal.VariantWriteIfNotExists,
			usal.VariantListCursor,
			usal.VariantCopyServerSide,
			usal.VariantPresignRead,
			usal.VariantPresignWrite,
		},
		MaxBatchSize: 1000,
	}
}

// Batch executes sub-operations through this backend's own typed methods.
func (sb *S3Backend) Batch(ctx context.Context, args data.OpBatch) (*data.BatchReply, error) {
	return usal.ExecuteBatch(ctx, sb, args)
}

// key maps a normalized path onto the bucket-native object key.
func (sb *S3Backend) key(path string) string {
	return data.BuildAbsPath(sb.root, path)
}

// classify maps MinIO failures onto the closed error kind set.
func classify(op data.Operation, path string, err error) *data.Error {
	if ce := data.ClassifyContext(op, path, err); ce != nil {
		return ce
	}

	response := minio.ToErrorResponse(err)
	switch response.Code {
	case "NoSuchKey", "NoSuchBucket":
		return data.NewNotFound(op, path, err)
	case "AccessDenied":
		return data.NewPermissionDenied(op, path, err)
	case "PreconditionFailed":
		return data.NewAlreadyExists(op, path, err)
	case "InvalidArgument", "InvalidRange":
		return data.NewInvalidArgument(op, path, err)
	}

	switch response.StatusCode {
	case http.StatusNotFound:
		return data.NewNotFound(op, path, err)
	case http.StatusForbidden:
		return data.NewPermissionDenied(op, path, err)
	}

	return data.NewBackendUnavailable(op, path, err)
}
