package files

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"path"
	"strings"
	"time"

	"mediaserver/internal/dto"
	"mediaserver/internal/logger"
	"mediaserver/internal/model"
	"mediaserver/internal/repository"
	"mediaserver/internal/service/storage"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no file has the requested ID.
	ErrNotFound = errors.New("file not found")
	// ErrInvalidFile is returned for uploads that cannot be decoded or typed.
	ErrInvalidFile = errors.New("invalid file")
)

// Event types emitted through the Notifier.
const (
	EventFileCreated = "file.created"
	EventFileDeleted = "file.deleted"
)

const megabyte = 1_000_000

// allowedTypes are the accepted top-level MIME categories.
var allowedTypes = map[string]bool{"image": true, "video": true}

// videoTypes covers extensions missing from the builtin MIME table on hosts
// without /etc/mime.types.
var videoTypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/x-m4v",
	".mov":  "video/quicktime",
	".avi":  "video/x-msvideo",
	".mkv":  "video/x-matroska",
	".webm": "video/webm",
	".mpeg": "video/mpeg",
	".mpg":  "video/mpeg",
	".ts":   "video/mp2t",
}

// Notifier receives file lifecycle events.
type Notifier interface {
	Notify(eventType string, payload interface{})
}

// Service implements the file CRUD use cases on top of a repository and a blob store.
type Service struct {
	repo     repository.FileRepository
	store    storage.Store
	notifier Notifier
	logger   *logger.Logger
	now      func() time.Time
}

// NewService creates a files service. notifier may be nil.
func NewService(repo repository.FileRepository, store storage.Store, notifier Notifier, logger *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		store:    store,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// DecodeDataURI turns "data:<mime>;base64,<payload>" into an upload named after
// the current time, e.g. "15_06_2025__14_30_00.jpeg".
func DecodeDataURI(dataURI string, now time.Time) (dto.FileUpload, error) {
	if !strings.HasPrefix(dataURI, "data:") {
		return dto.FileUpload{}, fmt.Errorf("%w: not a data URI", ErrInvalidFile)
	}

	header, payload, found := strings.Cut(dataURI, ";base64,")
	if !found {
		return dto.FileUpload{}, fmt.Errorf("%w: data URI is not base64 encoded", ErrInvalidFile)
	}

	ext := header[strings.LastIndex(header, "/")+1:]
	if ext == "" || strings.HasPrefix(ext, "data:") {
		return dto.FileUpload{}, fmt.Errorf("%w: data URI has no media type", ErrInvalidFile)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return dto.FileUpload{}, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}
	if len(data) == 0 {
		return dto.FileUpload{}, fmt.Errorf("%w: empty file", ErrInvalidFile)
	}

	return dto.FileUpload{
		Name: now.Format("02_01_2006__15_04_05.") + ext,
		Data: data,
	}, nil
}

// FileType returns the top-level MIME category ("image" or "video") guessed
// from the file name.
func FileType(name string) (string, error) {
	ext := strings.ToLower(path.Ext(name))

	mimeType := mime.TypeByExtension(ext)
	if mimeType == "" {
		mimeType = videoTypes[ext]
	}
	if mimeType == "" {
		return "", fmt.Errorf("%w: unknown file type %q", ErrInvalidFile, ext)
	}

	category, _, _ := strings.Cut(mimeType, "/")
	if !allowedTypes[category] {
		return "", fmt.Errorf("%w: file type %q is not allowed", ErrInvalidFile, category)
	}
	return category, nil
}

// HumanSize formats a byte count as megabytes with two decimals.
func HumanSize(n int64) string {
	return fmt.Sprintf("%.2f MB", float64(n)/megabyte)
}

// uploadPath builds a unique media path for name below files/<date>/.
func uploadPath(name string, now time.Time) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	ext := path.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if stem == "" || stem == "." || stem == "/" {
		stem = "file"
	}

	return fmt.Sprintf("files/%s/%s_%s%s", now.Format("2006/01/02"), stem, uuid.New().String()[:8], strings.ToLower(ext))
}

// Create stores the upload and its record. Missing type and size are derived
// from the name and the payload.
func (s *Service) Create(ctx context.Context, upload dto.FileUpload) (*model.File, error) {
	if len(upload.Data) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrInvalidFile)
	}

	fileType := upload.FileType
	if fileType == "" {
		var err error
		if fileType, err = FileType(upload.Name); err != nil {
			return nil, err
		}
	}

	size := upload.Size
	if size == "" {
		size = HumanSize(int64(len(upload.Data)))
	}

	now := s.now()
	rel := uploadPath(upload.Name, now)

	if err := s.store.Save(ctx, rel, upload.Data); err != nil {
		return nil, fmt.Errorf("failed to store file: %w", err)
	}

	f := &model.File{
		File:     rel,
		FileType: fileType,
		Size:     size,
		Created:  now,
		Updated:  now,
	}

	id, err := s.repo.Insert(f)
	if err != nil {
		if rmErr := s.store.Remove(ctx, rel); rmErr != nil {
			s.logger.Error("Failed to remove orphaned media %s: %v", rel, rmErr)
		}
		return nil, err
	}
	f.ID = id

	s.logger.Info("Created file %d (%s, %s, %s)", f.ID, f.File, f.FileType, f.Size)
	s.notify(EventFileCreated, f)
	return f, nil
}

// CreateFromDataURI decodes a data URI and stores it.
func (s *Service) CreateFromDataURI(ctx context.Context, req dto.CreateFileRequest) (*model.File, error) {
	upload, err := DecodeDataURI(req.File, s.now())
	if err != nil {
		return nil, err
	}
	upload.FileType = req.FileType
	upload.Size = req.Size

	return s.Create(ctx, upload)
}

// Register records a file that already exists in the store, for imports.
func (s *Service) Register(rel string, size int64, modified time.Time) (*model.File, error) {
	existing, err := s.repo.GetByPath(rel)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	fileType, err := FileType(rel)
	if err != nil {
		return nil, err
	}

	f := &model.File{
		File:     rel,
		FileType: fileType,
		Size:     HumanSize(size),
		Created:  modified,
		Updated:  modified,
	}

	if f.ID, err = s.repo.Insert(f); err != nil {
		return nil, err
	}
	return f, nil
}

// List returns the files matching filter and the total count ignoring pagination.
func (s *Service) List(filter *dto.FileFilters) ([]model.File, int, error) {
	files, err := s.repo.GetAll(filter)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.repo.GetTotalCount(filter)
	if err != nil {
		return nil, 0, err
	}

	return files, total, nil
}

// Get returns the file with the given ID or ErrNotFound.
func (s *Service) Get(id int64) (*model.File, error) {
	f, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, ErrNotFound
	}
	return f, nil
}

// Delete removes the record and then its media blob.
func (s *Service) Delete(ctx context.Context, id int64) error {
	f, err := s.Get(id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(id); err != nil {
		return err
	}

	if err := s.store.Remove(ctx, f.File); err != nil {
		s.logger.Error("Failed to delete media %s: %v", f.File, err)
	}

	s.logger.Info("Deleted file %d (%s)", f.ID, f.File)
	s.notify(EventFileDeleted, f)
	return nil
}

// Info converts a record to its API representation with a public URL.
func (s *Service) Info(f *model.File) dto.FileInfo {
	fileURL, err := s.store.URL(f.File)
	if err != nil {
		s.logger.Warning("Failed to build URL for %s: %v", f.File, err)
		fileURL = f.File
	}

	return dto.FileInfo{
		ID:       f.ID,
		File:     fileURL,
		FileType: f.FileType,
		Size:     f.Size,
		Created:  f.Created,
		Updated:  f.Updated,
	}
}

func (s *Service) notify(eventType string, f *model.File) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(eventType, s.Info(f))
}
