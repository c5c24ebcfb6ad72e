package httpstore

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mwantia/usal/data"
)

func (hb *HTTPBackend) Read(ctx context.Context, path string, args data.OpRead) (*data.ReadReply, error) {
	if err := args.Validate(); err != nil {
		return nil, err
	}

	if args.MetadataOnly {
		stat, err := hb.Stat(ctx, path, data.OpStat{})
		if err != nil {
			if ce, ok := data.Classified(err); ok {
				return nil, data.NewError(ce.Kind, data.OperationRead, path, ce.Cause)
			}
			return nil, err
		}
		return &data.ReadReply{
			Metadata: stat.Metadata,
			Body:     io.NopCloser(strings.NewReader("")),
		}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, hb.entityURL(path), nil)
	if err != nil {
		return nil, data.NewInvalidArgument(data.OperationRead, path, err)
	}
	if r, ok := args.Range(); ok {
		req.Header.Set("Range", r.Header())
	}

	resp, err := hb.client.Do(req)
	if err != nil {
		return nil, classify(data.OperationRead, path, err)
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusPartialContent:
		return &data.ReadReply{
			Metadata: parseMetadata(path, resp.Header),
			Body:     resp.Body,
		}, nil
	default:
		resp.Body.Close()
		return nil, classifyStatus(data.OperationRead, path, resp.StatusCode)
	}
}

func (hb *HTTPBackend) Stat(ctx context.Context, path string, args data.OpStat) (*data.StatReply, error) {
	// Root always reports a directory.
	if path == "/" {
		return &data.StatReply{Metadata: data.Metadata{Mode: data.EntryModeDir}}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, hb.entityURL(path), nil)
	if err != nil {
		return nil, data.NewInvalidArgument(data.OperationStat, path, err)
	}

	resp, err := hb.client.Do(req)
	if err != nil {
		return nil, classify(data.OperationStat, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return &data.StatReply{Metadata: parseMetadata(path, resp.Header)}, nil
	case resp.StatusCode == http.StatusNotFound && data.IsDirPath(path):
		// Servers rarely answer HEAD for a bare prefix; treat directory
		// markers as existing the way object stores do.
		return &data.StatReply{Metadata: data.Metadata{Mode: data.EntryModeDir}}, nil
	default:
		return nil, classifyStatus(data.OperationStat, path, resp.StatusCode)
	}
}

// Presign constructs the entity's plain URL; there is no signature scheme
// to apply on an open HTTP endpoint.
func (hb *HTTPBackend) Presign(ctx context.Context, path string, args data.OpPresign) (*data.PresignReply, error) {
	if err := args.Validate(); err != nil {
		return nil, err
	}
	if args.Operation != data.OperationRead {
		return nil, data.NewUnsupported(data.OperationPresign, path, nil)
	}

	return &data.PresignReply{
		Method: http.MethodGet,
		URL:    hb.entityURL(path),
		Expire: time.Now().Add(args.Expire),
	}, nil
}
