// Package vision implements the camera capture loop: read frames, detect
// objects, annotate the first hit and publish it to the file API.
//
// The video decoder and the classifier are capabilities behind interfaces;
// package cv provides the OpenCV implementations.
package vision

import (
	"context"
	"encoding/base64"
	"time"
)

// BoundingBox is a detected region in frame pixel coordinates.
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Frame is one decoded image, owned by the loop for a single iteration.
type Frame interface {
	Close() error
}

// FrameSource yields frames from an opened stream. Next returns false at the
// end of the stream or on a read failure. Close must be idempotent.
type FrameSource interface {
	Next() (Frame, bool)
	Close() error
}

// SourceOpener opens a stream; failures should wrap ErrConnection.
type SourceOpener func(streamURL string) (FrameSource, error)

// Detector finds objects of its configured category in a frame. An empty
// result is a normal outcome.
type Detector interface {
	AllowedCategories() []string
	Detect(frame Frame) ([]BoundingBox, error)
}

// Annotator draws boxes onto a frame in place.
type Annotator interface {
	Annotate(frame Frame, boxes []BoundingBox) error
}

// Encoder compresses a frame to JPEG.
type Encoder interface {
	Encode(frame Frame) ([]byte, error)
}

// PublishResult is the storage service's reference to the uploaded image.
type PublishResult struct {
	Reference string
}

// Publisher uploads an encoded image. One call, no retries.
type Publisher interface {
	Publish(ctx context.Context, dataURI string) (PublishResult, error)
}

// Clock is the loop's time source.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock; time.Time carries a monotonic reading so
// durations are unaffected by clock changes.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// EventSink receives structured loop events.
type EventSink interface {
	Event(name string, fields map[string]interface{})
}

type nopSink struct{}

func (nopSink) Event(string, map[string]interface{}) {}

// DataURIPrefix precedes the base64 JPEG payload.
const DataURIPrefix = "data:image/jpeg;base64,"

// DataURI encodes a JPEG buffer as a data URI.
func DataURI(jpeg []byte) string {
	return DataURIPrefix + base64.StdEncoding.EncodeToString(jpeg)
}
