package s3

import (
	"context"
	"errors"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/mwantia/usal/data"
)

func (sb *S3Backend) Read(ctx context.Context, path string, args data.OpRead) (*data.ReadReply, error) {
	if err := args.Validate(); err != nil {
		return nil, err
	}
	if data.IsDirPath(path) {
		return nil, data.NewInvalidArgument(data.OperationRead, path, errors.New("cannot read a directory"))
	}

	key := sb.key(path)

	if args.MetadataOnly {
		info, err := sb.client.StatObject(ctx, sb.bucket, key, minio.StatObjectOptions{})
		if err != nil {
			return nil, classify(data.OperationRead, path, err)
		}
		return &data.ReadReply{
			Metadata: objectMetadata(info),
			Body:     io.NopCloser(strings.NewReader("")),
		}, nil
	}

	opts := minio.GetObjectOptions{}
	if r, ok := args.Range(); ok {
		end := int64(0)
		if r.Size > 0 {
			end = r.Offset + r.Size - 1
		}
		if err := opts.SetRange(r.Offset, end); err != nil {
			return nil, data.NewInvalidArgument(data.OperationRead, path, err)
		}
	}

	obj, err := sb.client.GetObject(ctx, sb.bucket, key, opts)
	if err != nil {
		return nil, classify(data.OperationRead, path, err)
	}

	// GetObject is lazy; Stat forces the request so missing keys surface
	// here instead of on the first stream read.
	info, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, classify(data.OperationRead, path, err)
	}

	return &data.ReadReply{
		Metadata: objectMetadata(info),
		Body:     obj,
	}, nil
}

func (sb *S3Backend) Write(ctx context.Context, path string, args data.OpWrite) (*data.WriteReply, error) {
	if err := args.Validate(); err != nil {
		return nil, err
	}
	if data.IsDirPath(path) {
		return nil, data.NewInvalidArgument(data.OperationWrite, path, errors.New("cannot write a directory"))
	}

	key := sb.key(path)

	if args.IfNotExists {
		if _, err := sb.client.StatObject(ctx, sb.bucket, key, minio.StatObjectOptions{}); err == nil {
			return nil, data.NewAlreadyExists(data.OperationWrite, path, nil)
		}
	}

	size := args.SizeHint
	if size == 0 {
		// Unknown size switches the client into multipart streaming.
		size = -1
	}

	info, err := sb.client.PutObject(ctx, sb.bucket, key, args.Body, size, minio.PutObjectOptions{
		ContentType: args.ContentType,
	})
	if err != nil {
		return nil, classify(data.OperationWrite, path, err)
	}

	return &data.WriteReply{
		Written: info.Size,
		ETag:    info.ETag,
	}, nil
}

func (sb *S3Backend) Stat(ctx context.Context, path string, args data.OpStat) (*data.StatReply, error) {
	// Root always reports a directory.
	if path == "/" {
		return &data.StatReply{Metadata: data.Metadata{Mode: data.EntryModeDir}}, nil
	}

	if data.IsDirPath(path) {
		// Directories are virtual prefixes; one child proves existence.
		for obj := range sb.client.ListObjects(ctx, sb.bucket, minio.ListObjectsOptions{
			Prefix:  sb.key(path),
			MaxKeys: 1,
		}) {
			if obj.Err != nil {
				return nil, classify(data.OperationStat, path, obj.Err)
			}
			return &data.StatReply{Metadata: data.Metadata{Mode: data.EntryModeDir}}, nil
		}
		return nil, data.NewNotFound(data.OperationStat, path, nil)
	}

	info, err := sb.client.StatObject(ctx, sb.bucket, sb.key(path), minio.StatObjectOptions{})
	if err != nil {
		return nil, classify(data.OperationStat, path, err)
	}

	return &data.StatReply{Metadata: objectMetadata(info)}, nil
}

func (sb *S3Backend) Delete(ctx context.Context, path string, args data.OpDelete) (*data.DeleteReply, error) {
	key := sb.key(path)

	// S3 deletes are idempotent; stat first so a missing entity surfaces
	// as NotFound like every other backend.
	if _, err := sb.client.StatObject(ctx, sb.bucket, key, minio.StatObjectOptions{}); err != nil {
		return nil, classify(data.OperationDelete, path, err)
	}

	if err := sb.client.RemoveObject(ctx, sb.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return nil, classify(data.OperationDelete, path, err)
	}

	return &data.DeleteReply{}, nil
}

func (sb *S3Backend) List(ctx context.Context, path string, args data.OpList) (*data.ListReply, error) {
	if err := args.Validate(); err != nil {
		return nil, err
	}

	lister := sb.newLister(ctx, path, args.Cursor, args.Limit, false)
	return &data.ListReply{Entries: lister}, nil
}

func (sb *S3Backend) Scan(ctx context.Context, path string, args data.OpScan) (*data.ScanReply, error) {
	if err := args.Validate(); err != nil {
		return nil, err
	}
	if args.Depth > 0 {
		return nil, data.NewUnsupported(data.OperationScan, path, errors.New("depth-bounded scan not available"))
	}

	lister := sb.newLister(ctx, path, args.Cursor, args.Limit, true)
	return &data.ScanReply{Entries: lister}, nil
}

func (sb *S3Backend) Copy(ctx context.Context, path string, args data.OpCopy) (*data.CopyReply, error) {
	if err := args.Validate(); err != nil {
		return nil, err
	}

	info, err := sb.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: sb.bucket, Object: sb.key(args.To)},
		minio.CopySrcOptions{Bucket: sb.bucket, Object: sb.key(path)},
	)
	if err != nil {
		return nil, classify(data.OperationCopy, path, err)
	}

	return &data.CopyReply{ETag: info.ETag}, nil
}

func (sb *S3Backend) Rename(ctx context.Context, path string, args data.OpRename) (*data.RenameReply, error) {
	if err := args.Validate(); err != nil {
		return nil, err
	}

	if _, err := sb.Copy(ctx, path, data.OpCopy{To: args.To}); err != nil {
		if ce, ok := data.Classified(err); ok {
			return nil, data.NewError(ce.Kind, data.OperationRename, path, ce.Cause)
		}
		return nil, err
	}

	if err := sb.client.RemoveObject(ctx, sb.bucket, sb.key(path), minio.RemoveObjectOptions{}); err != nil {
		return nil, classify(data.OperationRename, path, err)
	}

	return &data.RenameReply{}, nil
}

func (sb *S3Backend) Presign(ctx context.Context, path string, args data.OpPresign) (*data.PresignReply, error) {
	if err := args.Validate(); err != nil {
		return nil, err
	}

	key := sb.key(path)

	var signed *url.URL
	var method string
	var err error
	switch args.Operation {
	case data.OperationRead:
		method = "GET"
		signed, err = sb.client.PresignedGetObject(ctx, sb.bucket, key, args.Expire, url.Values{})
	case data.OperationWrite:
		method = "PUT"
		signed, err = sb.client.PresignedPutObject(ctx, sb.bucket, key, args.Expire)
	}
	if err != nil {
		return nil, classify(data.OperationPresign, path, err)
	}

	return &data.PresignReply{
		Method: method,
		URL:    signed.String(),
		Expire: timeNow().Add(args.Expire),
	}, nil
}

func objectMetadata(info minio.ObjectInfo) data.Metadata {
	return data.Metadata{
		Mode:        data.EntryModeFile,
		Size:        info.Size,
		ModifyTime:  info.LastModified,
		ContentType: info.ContentType,
		ETag:        info.ETag,
	}
}
