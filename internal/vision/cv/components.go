package cv

import (
	"mediaserver/internal/vision"
)

// Components builds the OpenCV-backed capabilities for one capture run. The
// returned cleanup frees the classifier.
func Components(cascadeDir string, detection vision.DetectionConfig, publisher vision.Publisher) (vision.Components, func(), error) {
	detector, err := NewCascadeDetector(cascadeDir, detection, vision.DefaultDetectionParams())
	if err != nil {
		return vision.Components{}, nil, err
	}

	return vision.Components{
		Open:      Open,
		Detector:  detector,
		Annotator: Annotator{},
		Encoder:   JPEGEncoder{},
		Publisher: publisher,
	}, func() { detector.Close() }, nil
}
