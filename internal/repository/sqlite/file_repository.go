package sqlite

import (
	"database/sql"
	"fmt"

	"mediaserver/internal/dto"
	"mediaserver/internal/model"
)

// FileRepository implements repository.FileRepository for SQLite.
type FileRepository struct {
	db *DB
}

// NewFileRepository creates a new SQLite file repository.
func NewFileRepository(db *DB) *FileRepository {
	return &FileRepository{db: db}
}

// Insert adds a new file record. Created and Updated are stored in UTC.
func (r *FileRepository) Insert(f *model.File) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		INSERT INTO files (file, file_type, size, created, updated)
		VALUES (?, ?, ?, ?, ?)
	`, f.File, f.FileType, f.Size, f.Created.UTC(), f.Updated.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to insert file: %w", err)
	}

	return result.LastInsertId()
}

// GetByID retrieves a file by its ID. It returns nil, nil when no row matches.
func (r *FileRepository) GetByID(id int64) (*model.File, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	return r.scanOne(`
		SELECT id, file, file_type, size, created, updated
		FROM files WHERE id = ?
	`, id)
}

// GetByPath retrieves a file by its stored path.
func (r *FileRepository) GetByPath(path string) (*model.File, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	return r.scanOne(`
		SELECT id, file, file_type, size, created, updated
		FROM files WHERE file = ?
	`, path)
}

func (r *FileRepository) scanOne(query string, args ...interface{}) (*model.File, error) {
	var f model.File
	err := r.db.Conn().QueryRow(query, args...).
		Scan(&f.ID, &f.File, &f.FileType, &f.Size, &f.Created, &f.Updated)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	return &f, nil
}

// whereClause builds the shared filter for GetAll and GetTotalCount.
func whereClause(filter *dto.FileFilters) (string, []interface{}) {
	query := " WHERE 1=1"
	args := []interface{}{}

	if filter == nil {
		return query, args
	}

	if !filter.CreatedAfter.IsZero() {
		query += " AND created >= ?"
		args = append(args, filter.CreatedAfter.UTC())
	}

	if !filter.CreatedBefore.IsZero() {
		query += " AND created <= ?"
		args = append(args, filter.CreatedBefore.UTC())
	}

	return query, args
}

// GetAll retrieves files matching the filter, newest first.
func (r *FileRepository) GetAll(filter *dto.FileFilters) ([]model.File, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := whereClause(filter)
	query := `SELECT id, file, file_type, size, created, updated FROM files` + where +
		" ORDER BY created DESC, id DESC"

	if filter != nil && filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)

		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query files: %w", err)
	}
	defer rows.Close()

	var files []model.File
	for rows.Next() {
		var f model.File
		if err := rows.Scan(&f.ID, &f.File, &f.FileType, &f.Size, &f.Created, &f.Updated); err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		files = append(files, f)
	}

	return files, rows.Err()
}

// GetTotalCount returns the number of files matching the filter, ignoring pagination.
func (r *FileRepository) GetTotalCount(filter *dto.FileFilters) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := whereClause(filter)

	var count int
	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM files`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count files: %w", err)
	}

	return count, nil
}

// Delete removes a file record by its ID.
func (r *FileRepository) Delete(id int64) error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM files WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
