package dto

import "time"

// FileInfo is the API representation of a stored file; File holds the public media URL.
type FileInfo struct {
	ID       int64     `json:"id"`
	File     string    `json:"file"`
	FileType string    `json:"file_type"`
	Size     string    `json:"size"`
	Created  time.Time `json:"created"`
	Updated  time.Time `json:"updated"`
}
