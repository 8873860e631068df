package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"mediaserver/internal/config"
	"mediaserver/internal/dto"
	"mediaserver/internal/logger"
	"mediaserver/internal/model"
	"mediaserver/internal/service/files"
)

const (
	// FilesPrefix is the collection path of the file API.
	FilesPrefix = "/api/files/"
	// MaxUploadSize caps request bodies of uploads.
	MaxUploadSize = 100 << 20
	// MaxPageSize caps the page_size query parameter.
	MaxPageSize = 100
)

// FilesHandler serves the file collection and single files:
//
//	GET    /api/files/       paginated list
//	POST   /api/files/       create from a data URI or a multipart upload
//	GET    /api/files/{id}/  one file
//	DELETE /api/files/{id}/  delete record and media
func FilesHandler(svc *files.Service, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rest := strings.Trim(strings.TrimPrefix(r.URL.Path, FilesPrefix), "/")

		if rest == "" {
			switch r.Method {
			case http.MethodGet, http.MethodHead:
				listFiles(w, r, svc, cfg, logger)
			case http.MethodPost:
				createFile(w, r, svc, logger)
			default:
				methodNotAllowed(w, logger, r, "GET, POST")
			}
			return
		}

		id, err := strconv.ParseInt(rest, 10, 64)
		if err != nil || id <= 0 {
			writeDetail(w, logger, http.StatusNotFound, "Not found.")
			return
		}

		switch r.Method {
		case http.MethodGet, http.MethodHead:
			getFile(w, r, svc, id, logger)
		case http.MethodDelete:
			deleteFile(w, r, svc, id, logger)
		default:
			methodNotAllowed(w, logger, r, "GET, DELETE")
		}
	}
}

func listFiles(w http.ResponseWriter, r *http.Request, svc *files.Service, cfg *config.Config, logger *logger.Logger) {
	q := r.URL.Query()
	page := atoiDefault(q.Get("page"), 1)
	pageSize := atoiDefault(q.Get("page_size"), cfg.PageSize)
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	createdAfter, err := parseDate(q.Get("created_after"))
	if err != nil {
		writeJSON(w, logger, http.StatusBadRequest, map[string][]string{"created_after": {"Enter a valid date/time."}})
		return
	}
	createdBefore, err := parseDate(q.Get("created_before"))
	if err != nil {
		writeJSON(w, logger, http.StatusBadRequest, map[string][]string{"created_before": {"Enter a valid date/time."}})
		return
	}

	filter := &dto.FileFilters{
		CreatedAfter:  createdAfter,
		CreatedBefore: createdBefore,
		Limit:         pageSize,
		Offset:        (page - 1) * pageSize,
	}

	records, total, err := svc.List(filter)
	if err != nil {
		logger.Error("Error querying files from database: %v", err)
		writeDetail(w, logger, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	if page > 1 && filter.Offset >= total {
		writeDetail(w, logger, http.StatusNotFound, "Invalid page.")
		return
	}

	results := make([]dto.FileInfo, 0, len(records))
	for i := range records {
		results = append(results, svc.Info(&records[i]))
	}

	data := dto.FilePage{
		Count:   total,
		Results: results,
	}
	if page*pageSize < total {
		next := pageURL(r, page+1)
		data.Next = &next
	}
	if page > 1 {
		previous := pageURL(r, page-1)
		data.Previous = &previous
	}

	writeJSON(w, logger, http.StatusOK, data)
}

func createFile(w http.ResponseWriter, r *http.Request, svc *files.Service, logger *logger.Logger) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	var (
		f   *model.File
		err error
	)

	if mediaType == "multipart/form-data" {
		upload, parseErr := readMultipartUpload(r)
		if parseErr != nil {
			writeJSON(w, logger, http.StatusBadRequest, map[string][]string{"file": {parseErr.Error()}})
			return
		}
		f, err = svc.Create(r.Context(), upload)
	} else {
		var req dto.CreateFileRequest
		if decodeErr := json.NewDecoder(r.Body).Decode(&req); decodeErr != nil {
			writeDetail(w, logger, http.StatusBadRequest, fmt.Sprintf("JSON parse error - %v", decodeErr))
			return
		}
		if strings.TrimSpace(req.File) == "" {
			writeJSON(w, logger, http.StatusBadRequest, map[string][]string{"file": {"This field is required."}})
			return
		}
		f, err = svc.CreateFromDataURI(r.Context(), req)
	}

	if err != nil {
		if errors.Is(err, files.ErrInvalidFile) {
			writeJSON(w, logger, http.StatusBadRequest, map[string][]string{"file": {err.Error()}})
			return
		}
		logger.Error("Error creating file: %v", err)
		writeDetail(w, logger, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	writeJSON(w, logger, http.StatusCreated, svc.Info(f))
}

// readMultipartUpload reads the "file" part plus optional file_type and size fields.
func readMultipartUpload(r *http.Request) (dto.FileUpload, error) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return dto.FileUpload{}, fmt.Errorf("invalid multipart body: %v", err)
	}

	part, header, err := r.FormFile("file")
	if err != nil {
		return dto.FileUpload{}, errors.New("No file was submitted.")
	}
	defer part.Close()

	data, err := io.ReadAll(part)
	if err != nil {
		return dto.FileUpload{}, fmt.Errorf("failed to read upload: %v", err)
	}
	if len(data) == 0 {
		return dto.FileUpload{}, errors.New("The submitted file is empty.")
	}

	return dto.FileUpload{
		Name:     header.Filename,
		Data:     data,
		FileType: r.FormValue("file_type"),
		Size:     r.FormValue("size"),
	}, nil
}

func getFile(w http.ResponseWriter, r *http.Request, svc *files.Service, id int64, logger *logger.Logger) {
	f, err := svc.Get(id)
	if err != nil {
		if errors.Is(err, files.ErrNotFound) {
			writeDetail(w, logger, http.StatusNotFound, "Not found.")
			return
		}
		logger.Error("Error getting file %d: %v", id, err)
		writeDetail(w, logger, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	writeJSON(w, logger, http.StatusOK, svc.Info(f))
}

// deleteFile answers 204; net/http drops bodies on 204 so the confirmation
// message is only logged.
func deleteFile(w http.ResponseWriter, r *http.Request, svc *files.Service, id int64, logger *logger.Logger) {
	if err := svc.Delete(r.Context(), id); err != nil {
		if errors.Is(err, files.ErrNotFound) {
			writeDetail(w, logger, http.StatusNotFound, "Not found.")
			return
		}
		logger.Error("Error deleting file %d: %v", id, err)
		writeDetail(w, logger, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// pageURL rebuilds the request URL with another page number. Page 1 drops
// the parameter.
func pageURL(r *http.Request, page int) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	q := r.URL.Query()
	if page <= 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(page))
	}

	u := url.URL{
		Scheme:   scheme,
		Host:     r.Host,
		Path:     r.URL.Path,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// parseDate accepts RFC3339 timestamps and "2006-01-02" dates (midnight UTC).
func parseDate(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", v)
}
