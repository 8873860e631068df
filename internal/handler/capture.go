package handler

import (
	"errors"
	"net/http"

	"mediaserver/internal/logger"
	"mediaserver/internal/service/capture"
	"mediaserver/internal/vision"
)

// failureDetails are the messages returned for unsuccessful capture states.
var failureDetails = map[string]string{
	string(vision.StateTimedOut):        "No objects detected before the timeout.",
	string(vision.StateSourceExhausted): "The stream ended without detections.",
	string(vision.StateFailed):          "Capture failed.",
}

// CaptureHandler runs one capture for the form field camera_url and answers
// with the stored image URL.
func CaptureHandler(svc *capture.Service, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w, logger, r, "POST")
			return
		}

		if err := r.ParseMultipartForm(1 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			writeDetail(w, logger, http.StatusBadRequest, "Invalid form data.")
			return
		}

		cameraURL := r.FormValue("camera_url")
		logger.Info("Capture requested for %s", cameraURL)

		record, err := svc.Run(r.Context(), cameraURL)
		switch {
		case errors.Is(err, capture.ErrInvalidURL):
			writeJSON(w, logger, http.StatusBadRequest, map[string][]string{"camera_url": {"Enter a valid URL."}})
			return
		case errors.Is(err, capture.ErrBusy):
			writeDetail(w, logger, http.StatusConflict, "Another capture is running. Try again later.")
			return
		case err != nil:
			logger.Error("Capture for %s failed: %v", cameraURL, err)
			writeDetail(w, logger, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		if record.State == string(vision.StatePublished) {
			writeJSON(w, logger, http.StatusOK, map[string]string{
				"file_url": record.FileURL,
				"state":    record.State,
			})
			return
		}

		detail, ok := failureDetails[record.State]
		if !ok {
			detail = "Capture failed."
		}
		writeJSON(w, logger, http.StatusInternalServerError, map[string]string{
			"detail": detail,
			"state":  record.State,
		})
	}
}

// CapturesHandler lists recent capture runs; ?limit= bounds the result.
func CapturesHandler(svc *capture.Service, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, logger, r, "GET")
			return
		}

		records, err := svc.Recent(atoiDefault(r.URL.Query().Get("limit"), 50))
		if err != nil {
			logger.Error("Error querying captures: %v", err)
			writeDetail(w, logger, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		writeJSON(w, logger, http.StatusOK, records)
	}
}
