package repository

import (
	"mediaserver/internal/dto"
	"mediaserver/internal/model"
)

// FileRepository defines the interface for file record operations.
type FileRepository interface {
	// Create operations
	Insert(f *model.File) (int64, error)

	// Read operations
	GetByID(id int64) (*model.File, error)
	GetByPath(path string) (*model.File, error)
	GetAll(filter *dto.FileFilters) ([]model.File, error)
	GetTotalCount(filter *dto.FileFilters) (int, error)

	// Delete operations
	Delete(id int64) error
}

// CaptureRepository defines the interface for capture run records.
type CaptureRepository interface {
	Insert(c *model.Capture) (int64, error)
	GetRecent(limit int) ([]model.Capture, error)
}
