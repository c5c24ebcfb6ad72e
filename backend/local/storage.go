package local

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/mwantia/usal/data"
)

// rangeReader limits an open file to the requested byte range while still
// releasing the file on Close.
type rangeReader struct {
	io.Reader
	file *os.File
}

func (rr *rangeReader) Close() error {
	return rr.file.Close()
}

func (lb *LocalBackend) Read(ctx context.Context, path string, args data.OpRead) (*data.ReadReply, error) {
	if err := args.Validate(); err != nil {
		return nil, err
	}
	if data.IsDirPath(path) {
		return nil, data.NewInvalidArgument(data.OperationRead, path, errors.New("cannot read a directory"))
	}

	target := lb.resolve(path)
	info, err := os.Stat(target)
	if err != nil {
		return nil, classify(data.OperationRead, path, err)
	}
	if info.IsDir() {
		return nil, data.NewInvalidArgument(data.OperationRead, path, errors.New("cannot read a directory"))
	}

	meta := fileMetadata(path, info)
	if args.MetadataOnly {
		return &data.ReadReply{
			Metadata: meta,
			Body:     io.NopCloser(strings.NewReader("")),
		}, nil
	}

	file, err := os.Open(target)
	if err != nil {
		return nil, classify(data.OperationRead, path, err)
	}

	var body io.ReadCloser = file
	if r, ok := args.Range(); ok {
		if r.Offset > info.Size() {
			file.Close()
			return nil, data.NewInvalidArgument(data.OperationRead, path, errors.New("range offset beyond entity size"))
		}
		if _, err := file.Seek(r.Offset, io.SeekStart); err != nil {
			file.Close()
			return nil, classify(data.OperationRead, path, err)
		}
		if r.Size > 0 {
			body = &rangeReader{Reader: io.LimitReader(file, r.Size), file: file}
		}
	}

	return &data.ReadReply{Metadata: meta, Body: body}, nil
}

func (lb *LocalBackend) Write(ctx context.Context, path string, args data.OpWrite) (*data.WriteReply, error) {
	if err := args.Validate(); err != nil {
		return nil, err
	}
	if data.IsDirPath(path) {
		return nil, data.NewInvalidArgument(data.OperationWrite, path, errors.New("cannot write a directory"))
	}

	target := lb.resolve(path)
	if args.IfNotExists {
		if _, err := os.Stat(target); err == nil {
			return nil, data.NewAlreadyExists(data.OperationWrite, path, nil)
		}
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return nil, classify(data.OperationWrite, path, err)
	}

	// Stage into a temp file in the target directory so the final rename
	// stays on one filesystem and is atomic.
	tmp, err := os.CreateTemp(filepath.Dir(target), ".usal-write-*")
	if err != nil {
		return nil, classify(data.OperationWrite, path, err)
	}
	defer os.Remove(tmp.Name())

	written, err := copyWithContext(ctx, tmp, args.Body)
	if err != nil {
		tmp.Close()
		if ce := data.ClassifyContext(data.OperationWrite, path, err); ce != nil {
			return nil, ce
		}
		return nil, classify(data.OperationWrite, path, err)
	}
	if err := tmp.Close(); err != nil {
		return nil, classify(data.OperationWrite, path, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, data.ClassifyContext(data.OperationWrite, path, err)
	}

	if err := os.Rename(tmp.Name(), target); err != nil {
		return nil, classify(data.OperationWrite, path, err)
	}

	return &data.WriteReply{Written: written}, nil
}

func (lb *LocalBackend) Stat(ctx context.Context, path string, args data.OpStat) (*data.StatReply, error) {
	if path == "/" {
		return &data.StatReply{Metadata: data.Metadata{Mode: data.EntryModeDir}}, nil
	}

	info, err := os.Stat(lb.resolve(path))
	if err != nil {
		return nil, classify(data.OperationStat, path, err)
	}

	return &data.StatReply{Metadata: fileMetadata(path, info)}, nil
}

func (lb *LocalBackend) Delete(ctx context.Context, path string, args data.OpDelete) (*data.DeleteReply, error) {
	if err := os.Remove(lb.resolve(path)); err != nil {
		return nil, classify(data.OperationDelete, path, err)
	}

	return &data.DeleteReply{}, nil
}

func (lb *LocalBackend) List(ctx context.Context, path string, args data.OpList) (*data.ListReply, error) {
	if err := args.Validate(); err != nil {
		return nil, err
	}

	dirEntries, err := os.ReadDir(lb.resolve(path))
	if err != nil {
		return nil, classify(data.OperationList, path, err)
	}

	prefix := ""
	if path != "/" {
		prefix = path
	}

	entries := make([]*data.Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		entryPath := prefix + de.Name()
		meta := data.Metadata{Mode: data.EntryModeDir}
		if de.IsDir() {
			entryPath += "/"
		} else if info, err := de.Info(); err == nil {
			meta = fileMetadata(entryPath, info)
		} else {
			meta = data.Metadata{Mode: data.EntryModeUnknown}
		}
		entries = append(entries, &data.Entry{Path: entryPath, Metadata: meta})
	}

	return &data.ListReply{Entries: data.NewSliceListerPage(entries, args.Cursor, args.Limit)}, nil
}

func (lb *LocalBackend) Scan(ctx context.Context, path string, args data.OpScan) (*data.ScanReply, error) {
	if err := args.Validate(); err != nil {
		return nil, err
	}

	root := lb.resolve(path)
	prefix := ""
	if path != "/" {
		prefix = path
	}

	var entries []*data.Entry
	err := filepath.WalkDir(root, func(target string, de fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if target == root {
			return nil
		}

		relative := filepath.ToSlash(strings.TrimPrefix(strings.TrimPrefix(target, root), string(filepath.Separator)))
		depth := strings.Count(relative, "/") + 1
		if args.Depth > 0 && depth > args.Depth {
			if de.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		entryPath := prefix + relative
		meta := data.Metadata{Mode: data.EntryModeDir}
		if de.IsDir() {
			entryPath += "/"
		} else if info, err := de.Info(); err == nil {
			meta = fileMetadata(entryPath, info)
		} else {
			meta = data.Metadata{Mode: data.EntryModeUnknown}
		}

		entries = append(entries, &data.Entry{Path: entryPath, Metadata: meta})
		return nil
	})
	if err != nil {
		return nil, classify(data.OperationScan, path, err)
	}

	return &data.ScanReply{Entries: data.NewSliceListerPage(entries, args.Cursor, args.Limit)}, nil
}

func (lb *LocalBackend) Copy(ctx context.Context, path string, args data.OpCopy) (*data.CopyReply, error) {
	if err := args.Validate(); err != nil {
		return nil, err
	}

	source, err := os.Open(lb.resolve(path))
	if err != nil {
		return nil, classify(data.OperationCopy, path, err)
	}
	defer source.Close()

	if _, err := lb.Write(ctx, args.To, data.OpWrite{Body: source}); err != nil {
		if ce, ok := data.Classified(err); ok {
			return nil, data.NewError(ce.Kind, data.OperationCopy, path, ce.Cause)
		}
		return nil, err
	}

	return &data.CopyReply{}, nil
}

func (lb *LocalBackend) Rename(ctx context.Context, path string, args data.OpRename) (*data.RenameReply, error) {
	if err := args.Validate(); err != nil {
		return nil, err
	}

	target := lb.resolve(args.To)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return nil, classify(data.OperationRename, path, err)
	}
	if err := os.Rename(lb.resolve(path), target); err != nil {
		return nil, classify(data.OperationRename, path, err)
	}

	return &data.RenameReply{}, nil
}

// copyWithContext copies in chunks and aborts between chunks once the
// context is done.
func copyWithContext(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	buffer := make([]byte, 32*1024)

	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		n, err := src.Read(buffer)
		if n > 0 {
			wn, werr := dst.Write(buffer[:n])
			written += int64(wn)
			if werr != nil {
				return written, werr
			}
		}
		if err == io.EOF {
			return written, nil
		}
		if err != nil {
			return written, err
		}
	}
}

func fileMetadata(path string, info fs.FileInfo) data.Metadata {
	if info.IsDir() {
		return data.Metadata{Mode: data.EntryModeDir, ModifyTime: info.ModTime()}
	}

	return data.Metadata{
		Mode:        data.EntryModeFile,
		Size:        info.Size(),
		ModifyTime:  info.ModTime(),
		ContentType: mime.TypeByExtension(filepath.Ext(path)),
	}
}
