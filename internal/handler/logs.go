package handler

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"mediaserver/internal/logger"
)

var logFiles = map[string]string{
	"info":    logger.InfoFile,
	"warning": logger.WarningFile,
	"error":   logger.ErrorFile,
}

// LogsHandler serves /logs/{level} as text/plain and truncates the file on
// POST /logs/{level}/clear.
func LogsHandler(log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/logs/"), "/"), "/")

		filename, ok := logFiles[parts[0]]
		if !ok || len(parts) > 2 || (len(parts) == 2 && parts[1] != "clear") {
			http.NotFound(w, r)
			return
		}

		if len(parts) == 2 {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, log, r, "POST")
				return
			}
			if err := log.CleanLogs(filename); err != nil {
				writeDetail(w, log, http.StatusInternalServerError, "Failed to clear log.")
				return
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}

		serveLogFile(w, r, log.Dir(), filename)
	}
}

// serveLogFile is a helper that sets headers and serves a log file if it exists.
func serveLogFile(w http.ResponseWriter, r *http.Request, logDir, filename string) {
	filePath := filepath.Join(logDir, filename)

	if _, err := os.Stat(filePath); logDir == "" || os.IsNotExist(err) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("Log file not found: " + filename))
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")

	http.ServeFile(w, r, filePath)
}
