package httpstore

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mwantia/usal/data"
)

// parseMetadata assembles entity metadata from standard response headers.
// Absent or unparsable headers leave their field at the zero value.
func parseMetadata(path string, header http.Header) data.Metadata {
	meta := data.Metadata{
		Mode:               data.EntryModeFile,
		ContentType:        parseContentType(header),
		ContentDisposition: header.Get("Content-Disposition"),
		ETag:               header.Get("ETag"),
	}
	if data.IsDirPath(path) {
		meta.Mode = data.EntryModeDir
	}

	if size, ok := parseContentLength(header); ok {
		meta.Size = size
	}
	if modified, ok := parseLastModified(header); ok {
		meta.ModifyTime = modified
	}

	return meta
}

func parseContentLength(header http.Header) (int64, bool) {
	value := header.Get("Content-Length")
	if value == "" {
		return 0, false
	}

	size, err := strconv.ParseInt(value, 10, 64)
	if err != nil || size < 0 {
		return 0, false
	}

	return size, true
}

func parseLastModified(header http.Header) (time.Time, bool) {
	value := header.Get("Last-Modified")
	if value == "" {
		return time.Time{}, false
	}

	modified, err := http.ParseTime(value)
	if err != nil {
		return time.Time{}, false
	}

	return modified, true
}

// parseContentType strips media type parameters such as charset.
func parseContentType(header http.Header) string {
	value := header.Get("Content-Type")
	if idx := strings.IndexByte(value, ';'); idx >= 0 {
		value = value[:idx]
	}

	return strings.TrimSpace(value)
}
