package s3

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/mwantia/usal/data"
)

// timeNow is swapped in tests.
var timeNow = time.Now

// objectLister adapts the client's streaming listing onto the lazy Lister
// contract. The underlying channel paginates server-side; entries are
// consumed on demand.
type objectLister struct {
	cancel  context.CancelFunc
	objects <-chan minio.ObjectInfo

	root    string
	dirPath string
	last    string
	done    bool
}

func (sb *S3Backend) newLister(ctx context.Context, path string, cursor string, limit int, recursive bool) data.Lister {
	listCtx, cancel := context.WithCancel(ctx)

	prefix := ""
	if path != "/" {
		prefix = sb.key(path)
	} else {
		prefix = strings.TrimPrefix(sb.root, "/")
	}

	startAfter := ""
	if cursor != "" {
		startAfter = data.BuildAbsPath(sb.root, cursor)
	}

	objects := sb.client.ListObjects(listCtx, sb.bucket, minio.ListObjectsOptions{
		Prefix:     prefix,
		Recursive:  recursive,
		StartAfter: startAfter,
		MaxKeys:    limit,
	})

	return &objectLister{
		cancel:  cancel,
		objects: objects,
		root:    sb.root,
		dirPath: path,
	}
}

func (ol *objectLister) Next(ctx context.Context) (*data.Entry, error) {
	if ol.done {
		return nil, io.EOF
	}

	select {
	case <-ctx.Done():
		return nil, data.ClassifyContext(data.OperationList, ol.dirPath, ctx.Err())
	case obj, ok := <-ol.objects:
		if !ok {
			ol.done = true
			return nil, io.EOF
		}
		if obj.Err != nil {
			ol.done = true
			return nil, classify(data.OperationList, ol.dirPath, obj.Err)
		}

		// Strip the backend root so entries come back in path form.
		entryPath := strings.TrimPrefix("/"+obj.Key, ol.root)
		ol.last = entryPath

		meta := data.Metadata{
			Mode:        data.EntryModeFile,
			Size:        obj.Size,
			ModifyTime:  obj.LastModified,
			ContentType: obj.ContentType,
			ETag:        obj.ETag,
		}
		if strings.HasSuffix(obj.Key, "/") {
			meta = data.Metadata{Mode: data.EntryModeDir}
		}

		return &data.Entry{Path: entryPath, Metadata: meta}, nil
	}
}

func (ol *objectLister) Cursor() string {
	if ol.done {
		return ""
	}
	return ol.last
}

func (ol *objectLister) Close() error {
	ol.cancel()
	ol.done = true
	return nil
}
