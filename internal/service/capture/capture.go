package capture

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"mediaserver/internal/config"
	"mediaserver/internal/logger"
	"mediaserver/internal/model"
	"mediaserver/internal/repository"
	"mediaserver/internal/vision"
)

// EventCaptureFinished is broadcast after every run.
const EventCaptureFinished = "capture.finished"

// DefaultCategory is what form-triggered captures look for.
const DefaultCategory = "cars"

// ErrInvalidURL is returned for camera URLs that are not absolute stream URLs.
var ErrInvalidURL = errors.New("invalid camera url")

// ErrBusy is returned while another capture is running.
var ErrBusy = errors.New("a capture is already running")

var allowedSchemes = map[string]bool{"http": true, "https": true, "rtsp": true, "rtmp": true}

// ComponentsFactory builds the loop capabilities for a detection config. The
// cleanup function may be nil.
type ComponentsFactory func(detection vision.DetectionConfig) (vision.Components, func(), error)

// Notifier receives capture events.
type Notifier interface {
	Notify(eventType string, payload interface{})
}

// Service runs capture loops on demand and records the outcome. Runs are
// serialized; the server drives one camera at a time.
type Service struct {
	config     *config.Config
	repo       repository.CaptureRepository
	components ComponentsFactory
	notifier   Notifier
	logger     *logger.Logger
	running    sync.Mutex
}

// NewService creates a capture service. notifier may be nil.
func NewService(config *config.Config, repo repository.CaptureRepository, components ComponentsFactory, notifier Notifier, logger *logger.Logger) *Service {
	return &Service{
		config:     config,
		repo:       repo,
		components: components,
		notifier:   notifier,
		logger:     logger,
	}
}

// ValidateURL accepts absolute http(s), rtsp and rtmp URLs.
func ValidateURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidURL)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if !allowedSchemes[strings.ToLower(u.Scheme)] || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	return raw, nil
}

// Run captures from cameraURL until a car is published or the run ends
// otherwise. The returned record is stored even for unsuccessful runs.
func (s *Service) Run(ctx context.Context, cameraURL string) (*model.Capture, error) {
	cameraURL, err := ValidateURL(cameraURL)
	if err != nil {
		return nil, err
	}

	if !s.running.TryLock() {
		return nil, ErrBusy
	}
	defer s.running.Unlock()

	camera, err := vision.NewCameraConfig(cameraURL, int(vision.DefaultDetectionInterval/time.Second))
	if err != nil {
		return nil, err
	}
	detection, err := vision.NewDetectionConfig(DefaultCategory)
	if err != nil {
		return nil, err
	}

	record := &model.Capture{
		CameraURL: camera.StreamURL(),
		Category:  string(detection.Category()),
		StartedAt: time.Now(),
	}

	components, cleanup, err := s.components(detection)
	if err != nil {
		s.logger.Error("Failed to prepare capture for %s: %v", cameraURL, err)
		record.State = string(vision.StateFailed)
		record.Error = err.Error()
		record.FinishedAt = time.Now()
		s.save(record)
		return record, nil
	}
	if cleanup != nil {
		defer cleanup()
	}
	if components.Events == nil {
		components.Events = s.logger
	}

	timeout := time.Duration(s.config.AllowedTimeout) * time.Second
	s.logger.Debug("Starting capture of %s (category %s, interval %v, timeout %v)",
		camera.StreamURL(), detection.Category(), camera.Interval(), timeout)
	result := vision.NewCaptureLoop(camera, timeout, components).Run(ctx)

	record.State = string(result.State)
	record.FileURL = result.Reference
	record.Frames = result.Frames
	record.Attempts = result.Attempts
	record.FinishedAt = record.StartedAt.Add(result.Elapsed)
	if result.Err != nil {
		record.Error = result.Err.Error()
	}

	s.save(record)
	return record, nil
}

// Recent returns the latest capture records.
func (s *Service) Recent(limit int) ([]model.Capture, error) {
	return s.repo.GetRecent(limit)
}

func (s *Service) save(record *model.Capture) {
	id, err := s.repo.Insert(record)
	if err != nil {
		s.logger.Error("Failed to save capture record: %v", err)
	} else {
		record.ID = id
	}

	if s.notifier != nil {
		s.notifier.Notify(EventCaptureFinished, record)
	}
}
