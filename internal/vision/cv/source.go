// Package cv implements the vision capabilities on OpenCV through gocv.
package cv

import (
	"fmt"

	"mediaserver/internal/vision"

	"gocv.io/x/gocv"
)

// Frame wraps a decoded gocv matrix.
type Frame struct {
	mat gocv.Mat
}

// Close releases the matrix memory.
func (f *Frame) Close() error {
	return f.mat.Close()
}

// StreamSource reads frames from a VideoCapture.
type StreamSource struct {
	capture *gocv.VideoCapture
	closed  bool
}

// Open connects to a stream URL or file path. It satisfies vision.SourceOpener.
func Open(streamURL string) (vision.FrameSource, error) {
	capture, err := gocv.OpenVideoCapture(streamURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", vision.ErrConnection, streamURL, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("%w: %s", vision.ErrConnection, streamURL)
	}

	// Keep latency low on live streams.
	capture.Set(gocv.VideoCaptureBufferSize, 1)

	return &StreamSource{capture: capture}, nil
}

// Next reads one frame. A failed read or an empty matrix ends the stream.
func (s *StreamSource) Next() (vision.Frame, bool) {
	if s.closed || s.capture == nil {
		return nil, false
	}

	mat := gocv.NewMat()
	if ok := s.capture.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		return nil, false
	}

	return &Frame{mat: mat}, true
}

// Close releases the capture. Calling it again is a no-op.
func (s *StreamSource) Close() error {
	if s.closed || s.capture == nil {
		s.closed = true
		return nil
	}
	s.closed = true
	return s.capture.Close()
}

func asFrame(frame vision.Frame) (*Frame, error) {
	f, ok := frame.(*Frame)
	if !ok {
		return nil, fmt.Errorf("unsupported frame type %T", frame)
	}
	if f.mat.Empty() {
		return nil, fmt.Errorf("frame is empty")
	}
	return f, nil
}
