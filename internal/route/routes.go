package route

import (
	"net/http"
	"os"
	"path/filepath"

	"mediaserver/internal/config"
	"mediaserver/internal/handler"
	"mediaserver/internal/logger"
	"mediaserver/internal/middleware"
	"mediaserver/internal/service/capture"
	"mediaserver/internal/service/files"
	"mediaserver/internal/service/storage"
	"mediaserver/internal/service/websocket"
)

// Services bundles what the routes dispatch to.
type Services struct {
	Files   *files.Service
	Capture *capture.Service
	Store   storage.Store
	Hub     *websocket.HubService
}

// dynamicHTMLHandler serves /path as <static>/path.html if the file exists; otherwise 404.
func dynamicHTMLHandler(staticDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		if path == "/" {
			path = "/index"
		}

		filePath := filepath.Join(staticDir, filepath.Clean("/"+path)+".html")

		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			http.NotFound(w, r)
			return
		}

		http.ServeFile(w, r, filePath)
	}
}

// SetupRoutes registers the API, media, log and page routes and wraps the mux
// with CORS and request logging.
func SetupRoutes(cfg *config.Config, logger *logger.Logger, svc Services) http.Handler {
	mux := http.NewServeMux()

	// Static files
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticDir))))
	mux.HandleFunc(handler.MediaPrefix, handler.MediaHandler(svc.Store, logger))

	// API endpoints
	mux.HandleFunc(handler.FilesPrefix, handler.FilesHandler(svc.Files, cfg, logger))
	mux.HandleFunc("/api/capture", handler.CaptureHandler(svc.Capture, logger))
	mux.HandleFunc("/api/captures", handler.CapturesHandler(svc.Capture, logger))
	mux.HandleFunc("/api/events", handler.EventsWebsocketHandler(svc.Hub, logger))

	// Log endpoints
	mux.HandleFunc("/logs/", handler.LogsHandler(logger))

	mux.HandleFunc("/", dynamicHTMLHandler(cfg.StaticDir))

	return middleware.LoggingMiddleware(logger)(middleware.CORSMiddleware(mux))
}
