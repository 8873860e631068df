package vision

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// DefaultStreamURL is the camera used when none is configured: a public
// crossroad camera.
const DefaultStreamURL = "https://streams.cam72.su/1500-1032/tracks-v1/mono.m3u8"

// DefaultDetectionInterval is the minimum gap between two detection attempts.
const DefaultDetectionInterval = 1 * time.Second

// DefaultTimeout bounds a capture run when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// CameraConfig identifies the stream to read and how often to run detection.
// The zero value is not valid; use NewCameraConfig.
type CameraConfig struct {
	streamURL string
	interval  time.Duration
}

// NewCameraConfig applies defaults for an empty URL and a zero interval.
func NewCameraConfig(streamURL string, intervalSeconds int) (CameraConfig, error) {
	if intervalSeconds < 0 {
		return CameraConfig{}, fmt.Errorf("%w: %d", ErrInvalidInterval, intervalSeconds)
	}

	cfg := CameraConfig{
		streamURL: strings.TrimSpace(streamURL),
		interval:  time.Duration(intervalSeconds) * time.Second,
	}
	if cfg.streamURL == "" {
		cfg.streamURL = DefaultStreamURL
	}
	if cfg.interval == 0 {
		cfg.interval = DefaultDetectionInterval
	}
	return cfg, nil
}

// StreamURL returns the video stream address.
func (c CameraConfig) StreamURL() string { return c.streamURL }

// Interval returns the minimum time between detection attempts.
func (c CameraConfig) Interval() time.Duration { return c.interval }

// Category is an object class the detector can look for.
type Category string

const (
	CategoryCars   Category = "cars"
	CategoryPeople Category = "people"
)

// cascadeFiles maps each category to its pretrained cascade file.
var cascadeFiles = map[Category]string{
	CategoryCars:   "cars.xml",
	CategoryPeople: "people.xml",
}

// AllowedCategories lists the valid object categories, sorted.
func AllowedCategories() []string {
	names := make([]string, 0, len(cascadeFiles))
	for c := range cascadeFiles {
		names = append(names, string(c))
	}
	sort.Strings(names)
	return names
}

// DetectionConfig selects what the detector looks for.
type DetectionConfig struct {
	category Category
}

// NewDetectionConfig validates category case-insensitively.
func NewDetectionConfig(category string) (DetectionConfig, error) {
	c := Category(strings.ToLower(strings.TrimSpace(category)))
	if _, ok := cascadeFiles[c]; !ok {
		return DetectionConfig{}, fmt.Errorf("%w: %q (allowed: %s)",
			ErrInvalidCategory, category, strings.Join(AllowedCategories(), ", "))
	}
	return DetectionConfig{category: c}, nil
}

// Category returns the configured object category.
func (d DetectionConfig) Category() Category { return d.category }

// CascadeFile returns the file name of the classifier for the category.
func (d DetectionConfig) CascadeFile() string { return cascadeFiles[d.category] }

// DetectionParams tune the cascade classifier.
type DetectionParams struct {
	ScaleFactor  float64
	MinNeighbors int
	MinSize      int // Minimum object width and height in pixels
}

// DefaultDetectionParams returns scale factor 1.1, 3 neighbors and a 30x30 minimum.
func DefaultDetectionParams() DetectionParams {
	return DetectionParams{
		ScaleFactor:  1.1,
		MinNeighbors: 3,
		MinSize:      30,
	}
}
