// Package models defines the transport types shared by storage, the index
// and the front ends.
package models

import "time"

// ReportMeta describes a stored report file.
type ReportMeta struct {
	Name         string    `json:"name"`
	Category     string    `json:"category"`
	Path         string    `json:"path"` // slash-separated, relative to the managed root
	LastModified time.Time `json:"last_modified"`
	Checksum     string    `json:"checksum"`
	Size         int64     `json:"size"`
}

// WriteRequest asks storage to persist one report file.
type WriteRequest struct {
	Category string
	FileName string
	Content  []byte
	// CurrentPath is the file the report was loaded from, if any. It is
	// overwritten in place when it lives in Category.
	CurrentPath string
}
