package postgres

import (
	"bytes"
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/mwantia/usal/data"
)

func (pb *PostgresBackend) Read(ctx context.Context, path string, args data.OpRead) (*data.ReadReply, error) {
	if err := args.Validate(); err != nil {
		return nil, err
	}
	if data.IsDirPath(path) {
		return nil, data.NewInvalidArgument(data.OperationRead, path, errors.New("cannot read a directory"))
	}

	var content []byte
	var size, modifyTime int64
	var contentType, etag *string
	err := pb.pool.QueryRow(ctx, `
		SELECT content, size, modify_time, content_type, etag FROM usal_objects WHERE key = $1
	`, path).Scan(&content, &size, &modifyTime, &contentType, &etag)
	if err != nil {
		return nil, classify(data.OperationRead, path, err)
	}

	meta := rowMetadata(size, modifyTime, contentType, etag)

	if args.MetadataOnly {
		content = nil
	} else if r, ok := args.Range(); ok {
		if r.Offset > int64(len(content)) {
			return nil, data.NewInvalidArgument(data.OperationRead, path, errors.New("range offset beyond entity size"))
		}
		content = content[r.Offset:]
		if r.Size > 0 && r.Size < int64(len(content)) {
			content = content[:r.Size]
		}
	}

	return &data.ReadReply{
		Metadata: meta,
		Body:     io.NopCloser(bytes.NewReader(content)),
	}, nil
}

func (pb *PostgresBackend) Write(ctx context.Context, path string, args data.OpWrite) (*data.WriteReply, error) {
	if err := args.Validate(); err != nil {
		return nil, err
	}
	if data.IsDirPath(path) {
		return nil, data.NewInvalidArgument(data.OperationWrite, path, errors.New("cannot write a directory"))
	}

	content, err := io.ReadAll(args.Body)
	if err != nil {
		if ce := data.ClassifyContext(data.OperationWrite, path, err); ce != nil {
			return nil, ce
		}
		return nil, data.NewBackendUnavailable(data.OperationWrite, path, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, data.ClassifyContext(data.OperationWrite, path, err)
	}

	etag := uuid.NewString()

	query := `
		INSERT INTO usal_objects (key, content, size, modify_time, content_type, etag)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (key) DO UPDATE SET
			content = EXCLUDED.content,
			size = EXCLUDED.size,
			modify_time = EXCLUDED.modify_time,
			content_type = EXCLUDED.content_type,
			etag = EXCLUDED.etag
	`
	if args.IfNotExists {
		query = `
			INSERT INTO usal_objects (key, content, size, modify_time, content_type, etag)
			VALUES ($1, $2, $3, $4, $5, $6)
		`
	}

	if _, err := pb.pool.Exec(ctx, query, path, content, len(content), time.Now().Unix(), nullable(args.ContentType), etag); err != nil {
		return nil, classify(data.OperationWrite, path, err)
	}

	return &data.WriteReply{
		Written: int64(len(content)),
		ETag:    etag,
	}, nil
}

func (pb *PostgresBackend) Stat(ctx context.Context, path string, args data.OpStat) (*data.StatReply, error) {
	if path == "/" {
		return &data.StatReply{Metadata: data.Metadata{Mode: data.EntryModeDir}}, nil
	}

	if data.IsDirPath(path) {
		var count int
		err := pb.pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM usal_objects WHERE key LIKE $1 || '%'`, path).Scan(&count)
		if err != nil {
			return nil, classify(data.OperationStat, path, err)
		}
		if count == 0 {
			return nil, data.NewNotFound(data.OperationStat, path, nil)
		}
		return &data.StatReply{Metadata: data.Metadata{Mode: data.EntryModeDir}}, nil
	}

	var size, modifyTime int64
	var contentType, etag *string
	err := pb.pool.QueryRow(ctx, `
		SELECT size, modify_time, content_type, etag FROM usal_objects WHERE key = $1
	`, path).Scan(&size, &modifyTime, &contentType, &etag)
	if err != nil {
		return nil, classify(data.OperationStat, path, err)
	}

	return &data.StatReply{Metadata: rowMetadata(size, modifyTime, contentType, etag)}, nil
}

func (pb *PostgresBackend) Delete(ctx context.Context, path string, args data.OpDelete) (*data.DeleteReply, error) {
	tag, err := pb.pool.Exec(ctx, `DELETE FROM usal_objects WHERE key = $1`, path)
	if err != nil {
		return nil, classify(data.OperationDelete, path, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, data.NewNotFound(data.OperationDelete, path, nil)
	}

	return &data.DeleteReply{}, nil
}

func (pb *PostgresBackend) List(ctx context.Context, path string, args data.OpList) (*data.ListReply, error) {
	if err := args.Validate(); err != nil {
		return nil, err
	}

	flat, err := pb.queryPrefix(ctx, data.OperationList, path)
	if err != nil {
		return nil, err
	}

	entries := data.CollapseEntries(flat, path, 1)
	return &data.ListReply{Entries: data.NewSliceListerPage(entries, args.Cursor, args.Limit)}, nil
}

func (pb *PostgresBackend) Scan(ctx context.Context, path string, args data.OpScan) (*data.ScanReply, error) {
	if err := args.Validate(); err != nil {
		return nil, err
	}

	flat, err := pb.queryPrefix(ctx, data.OperationScan, path)
	if err != nil {
		return nil, err
	}

	entries := data.CollapseEntries(flat, path, args.Depth)
	return &data.ScanReply{Entries: data.NewSliceListerPage(entries, args.Cursor, args.Limit)}, nil
}

func (pb *PostgresBackend) Copy(ctx context.Context, path string, args data.OpCopy) (*data.CopyReply, error) {
	if err := args.Validate(); err != nil {
		return nil, err
	}

	etag := uuid.NewString()
	tag, err := pb.pool.Exec(ctx, `
		INSERT INTO usal_objects (key, content, size, modify_time, content_type, etag)
		SELECT $1, content, size, $2, content_type, $3 FROM usal_objects WHERE key = $4
		ON CONFLICT (key) DO UPDATE SET
			content = EXCLUDED.content,
			size = EXCLUDED.size,
			modify_time = EXCLUDED.modify_time,
			content_type = EXCLUDED.content_type,
			etag = EXCLUDED.etag
	`, args.To, time.Now().Unix(), etag, path)
	if err != nil {
		return nil, classify(data.OperationCopy, path, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, data.NewNotFound(data.OperationCopy, path, nil)
	}

	return &data.CopyReply{ETag: etag}, nil
}

func (pb *PostgresBackend) Rename(ctx context.Context, path string, args data.OpRename) (*data.RenameReply, error) {
	if err := args.Validate(); err != nil {
		return nil, err
	}

	tx, err := pb.pool.Begin(ctx)
	if err != nil {
		return nil, classify(data.OperationRename, path, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM usal_objects WHERE key = $1`, args.To); err != nil {
		return nil, classify(data.OperationRename, path, err)
	}

	tag, err := tx.Exec(ctx, `UPDATE usal_objects SET key = $1 WHERE key = $2`, args.To, path)
	if err != nil {
		return nil, classify(data.OperationRename, path, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, data.NewNotFound(data.OperationRename, path, nil)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, classify(data.OperationRename, path, err)
	}

	return &data.RenameReply{}, nil
}

func (pb *PostgresBackend) queryPrefix(ctx context.Context, op data.Operation, path string) ([]*data.Entry, error) {
	prefix := ""
	if path != "/" {
		prefix = path
	}

	rows, err := pb.pool.Query(ctx, `
		SELECT key, size, modify_time, content_type, etag FROM usal_objects
		WHERE key LIKE $1 || '%' ORDER BY key
	`, prefix)
	if err != nil {
		return nil, classify(op, path, err)
	}
	defer rows.Close()

	var entries []*data.Entry
	for rows.Next() {
		var key string
		var size, modifyTime int64
		var contentType, etag *string
		if err := rows.Scan(&key, &size, &modifyTime, &contentType, &etag); err != nil {
			return nil, classify(op, path, err)
		}

		entries = append(entries, &data.Entry{
			Path:     key,
			Metadata: rowMetadata(size, modifyTime, contentType, etag),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, classify(op, path, err)
	}

	return entries, nil
}

func rowMetadata(size, modifyTime int64, contentType, etag *string) data.Metadata {
	meta := data.Metadata{
		Mode:       data.EntryModeFile,
		Size:       size,
		ModifyTime: time.Unix(modifyTime, 0),
	}
	if contentType != nil {
		meta.ContentType = *contentType
	}
	if etag != nil {
		meta.ETag = *etag
	}

	return meta
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
