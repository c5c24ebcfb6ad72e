package data

import "time"

// EntryMode describes what kind of entity a path points at.
type EntryMode string

const (
	EntryModeFile    EntryMode = "file"
	EntryModeDir     EntryMode = "dir"
	EntryModeUnknown EntryMode = "unknown"
)

func (m EntryMode) IsFile() bool {
	return m == EntryModeFile
}

func (m EntryMode) IsDir() bool {
	return m == EntryModeDir
}

// Metadata carries the entity attributes every backend can report.
// Fields a backend cannot produce stay at their zero value.
type Metadata struct {
	Mode EntryMode `json:"mode"`

	// Size in bytes (0 for directories)
	Size int64 `json:"size"`

	ModifyTime time.Time `json:"modify_time,omitzero"`

	// Content MIME type
	ContentType string `json:"content_type,omitempty"`

	ContentDisposition string `json:"content_disposition,omitempty"`

	ETag string `json:"etag,omitempty"`
}

// Entry pairs a normalized path with its metadata inside list and scan
// results.
type Entry struct {
	Path     string   `json:"path"`
	Metadata Metadata `json:"metadata"`
}
