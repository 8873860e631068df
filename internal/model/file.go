package model

import "time"

// File represents a stored media file record.
type File struct {
	ID       int64     `json:"id"`
	File     string    `json:"file"` // Path relative to the media root
	FileType string    `json:"file_type"`
	Size     string    `json:"size"`
	Created  time.Time `json:"created"`
	Updated  time.Time `json:"updated"`
}
