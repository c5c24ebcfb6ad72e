package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/mwantia/usal/data"
)

func (sb *SQLiteBackend) Read(ctx context.Context, path string, args data.OpRead) (*data.ReadReply, error) {
	if err := args.Validate(); err != nil {
		return nil, err
	}
	if data.IsDirPath(path) {
		return nil, data.NewInvalidArgument(data.OperationRead, path, errors.New("cannot read a directory"))
	}

	var content []byte
	meta, err := sb.queryMeta(ctx, data.OperationRead, path, &content)
	if err != nil {
		return nil, err
	}

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

func (sb *SQLiteBackend) Write(ctx context.Context, path string, args data.OpWrite) (*data.WriteReply, error) {
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

	if args.IfNotExists {
		_, err = sb.db.ExecContext(ctx, `
			INSERT INTO usal_objects (key, content, size, modify_time, content_type, etag)
			VALUES (?, ?, ?, ?, ?, ?)
		`, path, content, len(content), time.Now().Unix(), nullString(args.ContentType), etag)
		if err != nil {
			// Unique constraint on key means the entity already exists.
			var exists int
			if scanErr := sb.db.QueryRowContext(ctx,
				`SELECT COUNT(*) FROM usal_objects WHERE key = ?`, path).Scan(&exists); scanErr == nil && exists > 0 {
				return nil, data.NewAlreadyExists(data.OperationWrite, path, err)
			}
			return nil, classify(data.OperationWrite, path, err)
		}
	} else {
		_, err = sb.db.ExecContext(ctx, `
			INSERT INTO usal_objects (key, content, size, modify_time, content_type, etag)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET
				content = excluded.content,
				size = excluded.size,
				modify_time = excluded.modify_time,
				content_type = excluded.content_type,
				etag = excluded.etag
		`, path, content, len(content), time.Now().Unix(), nullString(args.ContentType), etag)
		if err != nil {
			return nil, classify(data.OperationWrite, path, err)
		}
	}

	return &data.WriteReply{
		Written: int64(len(content)),
		ETag:    etag,
	}, nil
}

func (sb *SQLiteBackend) Stat(ctx context.Context, path string, args data.OpStat) (*data.StatReply, error) {
	if path == "/" {
		return &data.StatReply{Metadata: data.Metadata{Mode: data.EntryModeDir}}, nil
	}

	if data.IsDirPath(path) {
		var count int
		err := sb.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM usal_objects WHERE key LIKE ? || '%'`, path).Scan(&count)
		if err != nil {
			return nil, classify(data.OperationStat, path, err)
		}
		if count == 0 {
			return nil, data.NewNotFound(data.OperationStat, path, nil)
		}
		return &data.StatReply{Metadata: data.Metadata{Mode: data.EntryModeDir}}, nil
	}

	meta, err := sb.queryMeta(ctx, data.OperationStat, path, nil)
	if err != nil {
		return nil, err
	}

	return &data.StatReply{Metadata: meta}, nil
}

func (sb *SQLiteBackend) Delete(ctx context.Context, path string, args data.OpDelete) (*data.DeleteReply, error) {
	result, err := sb.db.ExecContext(ctx, `DELETE FROM usal_objects WHERE key = ?`, path)
	if err != nil {
		return nil, classify(data.OperationDelete, path, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, classify(data.OperationDelete, path, err)
	}
	if affected == 0 {
		return nil, data.NewNotFound(data.OperationDelete, path, nil)
	}

	return &data.DeleteReply{}, nil
}

func (sb *SQLiteBackend) List(ctx context.Context, path string, args data.OpList) (*data.ListReply, error) {
	if err := args.Validate(); err != nil {
		return nil, err
	}

	flat, err := sb.queryPrefix(ctx, data.OperationList, path)
	if err != nil {
		return nil, err
	}

	entries := data.CollapseEntries(flat, path, 1)
	return &data.ListReply{Entries: data.NewSliceListerPage(entries, args.Cursor, args.Limit)}, nil
}

func (sb *SQLiteBackend) Scan(ctx context.Context, path string, args data.OpScan) (*data.ScanReply, error) {
	if err := args.Validate(); err != nil {
		return nil, err
	}

	flat, err := sb.queryPrefix(ctx, data.OperationScan, path)
	if err != nil {
		return nil, err
	}

	entries := data.CollapseEntries(flat, path, args.Depth)
	return &data.ScanReply{Entries: data.NewSliceListerPage(entries, args.Cursor, args.Limit)}, nil
}

func (sb *SQLiteBackend) Copy(ctx context.Context, path string, args data.OpCopy) (*data.CopyReply, error) {
	if err := args.Validate(); err != nil {
		return nil, err
	}

	etag := uuid.NewString()
	result, err := sb.db.ExecContext(ctx, `
		INSERT INTO usal_objects (key, content, size, modify_time, content_type, etag)
		SELECT ?, content, size, ?, content_type, ? FROM usal_objects WHERE key = ?
		ON CONFLICT(key) DO UPDATE SET
			content = excluded.content,
			size = excluded.size,
			modify_time = excluded.modify_time,
			content_type = excluded.content_type,
			etag = excluded.etag
	`, args.To, time.Now().Unix(), etag, path)
	if err != nil {
		return nil, classify(data.OperationCopy, path, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, classify(data.OperationCopy, path, err)
	}
	if affected == 0 {
		return nil, data.NewNotFound(data.OperationCopy, path, nil)
	}

	return &data.CopyReply{ETag: etag}, nil
}

func (sb *SQLiteBackend) Rename(ctx context.Context, path string, args data.OpRename) (*data.RenameReply, error) {
	if err := args.Validate(); err != nil {
		return nil, err
	}

	tx, err := sb.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, classify(data.OperationRename, path, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM usal_objects WHERE key = ?`, args.To); err != nil {
		return nil, classify(data.OperationRename, path, err)
	}

	result, err := tx.ExecContext(ctx, `UPDATE usal_objects SET key = ? WHERE key = ?`, args.To, path)
	if err != nil {
		return nil, classify(data.OperationRename, path, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, classify(data.OperationRename, path, err)
	}
	if affected == 0 {
		return nil, data.NewNotFound(data.OperationRename, path, nil)
	}

	if err := tx.Commit(); err != nil {
		return nil, classify(data.OperationRename, path, err)
	}

	return &data.RenameReply{}, nil
}

// queryMeta loads a single row's metadata, and its content when a target
// buffer is provided.
func (sb *SQLiteBackend) queryMeta(ctx context.Context, op data.Operation, path string, content *[]byte) (data.Metadata, error) {
	var size, modifyTime int64
	var contentType, etag sql.NullString

	var err error
	if content != nil {
		err = sb.db.QueryRowContext(ctx, `
			SELECT content, size, modify_time, content_type, etag FROM usal_objects WHERE key = ?
		`, path).Scan(content, &size, &modifyTime, &contentType, &etag)
	} else {
		err = sb.db.QueryRowContext(ctx, `
			SELECT size, modify_time, content_type, etag FROM usal_objects WHERE key = ?
		`, path).Scan(&size, &modifyTime, &contentType, &etag)
	}
	if err != nil {
		return data.Metadata{}, classify(op, path, err)
	}

	return data.Metadata{
		Mode:        data.EntryModeFile,
		Size:        size,
		ModifyTime:  time.Unix(modifyTime, 0),
		ContentType: contentType.String,
		ETag:        etag.String,
	}, nil
}

// queryPrefix loads metadata for every key below a directory path, ordered
// by key.
func (sb *SQLiteBackend) queryPrefix(ctx context.Context, op data.Operation, path string) ([]*data.Entry, error) {
	prefix := ""
	if path != "/" {
		prefix = path
	}

	rows, err := sb.db.QueryContext(ctx, `
		SELECT key, size, modify_time, content_type, etag FROM usal_objects
		WHERE key LIKE ? || '%' ORDER BY key
	`, prefix)
	if err != nil {
		return nil, classify(op, path, err)
	}
	defer rows.Close()

	var entries []*data.Entry
	for rows.Next() {
		var key string
		var size, modifyTime int64
		var contentType, etag sql.NullString
		if err := rows.Scan(&key, &size, &modifyTime, &contentType, &etag); err != nil {
			return nil, classify(op, path, err)
		}

		entries = append(entries, &data.Entry{
			Path: key,
			Metadata: data.Metadata{
				Mode:        data.EntryModeFile,
				Size:        size,
				ModifyTime:  time.Unix(modifyTime, 0),
				ContentType: contentType.String,
				ETag:        etag.String,
			},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, classify(op, path, err)
	}

	return entries, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
