package handler

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"mediaserver/internal/logger"
	"mediaserver/internal/service/storage"
)

// MediaPrefix is where stored files are served from.
const MediaPrefix = "/media/"

// MediaHandler streams stored media from the configured store.
func MediaHandler(store storage.Store, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			methodNotAllowed(w, logger, r, "GET, HEAD")
			return
		}

		rel := strings.TrimPrefix(r.URL.Path, MediaPrefix)
		if rel == "" || strings.HasSuffix(rel, "/") {
			http.NotFound(w, r)
			return
		}

		blob, err := store.Open(r.Context(), rel)
		if err != nil {
			if errors.Is(err, storage.ErrNotExist) {
				http.NotFound(w, r)
				return
			}
			logger.Error("Failed to open media %s: %v", rel, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		defer blob.Close()

		if contentType := mime.TypeByExtension(path.Ext(rel)); contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}

		if seeker, ok := blob.(io.ReadSeeker); ok {
			http.ServeContent(w, r, path.Base(rel), time.Time{}, seeker)
			return
		}

		if _, err := io.Copy(w, blob); err != nil {
			logger.Warning("Error streaming media %s: %v", rel, err)
		}
	}
}
