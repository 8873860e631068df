package dto

// FileUpload carries an incoming file before it is stored. FileType and Size
// are optional; the files service derives them when they are empty.
type FileUpload struct {
	Name     string
	Data     []byte
	FileType string
	Size     string
}

// CreateFileRequest is the JSON body accepted by POST /api/files/.
type CreateFileRequest struct {
	File     string `json:"file"`
	FileType string `json:"file_type,omitempty"`
	Size     string `json:"size,omitempty"`
}
