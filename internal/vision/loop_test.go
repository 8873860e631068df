package vision

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type harness struct {
	clock     *fakeClock
	source    *fakeSource
	detector  *fakeDetector
	annotator *fakeAnnotator
	encoder   *fakeEncoder
	publisher *fakePublisher
	sink      *recordingSink
}

func newHarness(frames int, step time.Duration) *harness {
	clock := newFakeClock()
	return &harness{
		clock:     clock,
		source:    &fakeSource{clock: clock, step: step, count: frames},
		detector:  &fakeDetector{clock: clock, hits: map[int][]BoundingBox{}},
		annotator: &fakeAnnotator{},
		encoder:   &fakeEncoder{},
		publisher: &fakePublisher{reference: "files/42"},
		sink:      &recordingSink{},
	}
}

func (h *harness) loop(t *testing.T, intervalSeconds int, timeout time.Duration) *CaptureLoop {
	t.Helper()

	camera, err := NewCameraConfig("http://camera.local/stream.m3u8", intervalSeconds)
	if err != nil {
		t.Fatalf("NewCameraConfig failed: %v", err)
	}

	return NewCaptureLoop(camera, timeout, Components{
		Open:      h.source.opener(),
		Detector:  h.detector,
		Annotator: h.annotator,
		Encoder:   h.encoder,
		Publisher: h.publisher,
		Clock:     h.clock,
		Events:    h.sink,
	})
}

func (h *harness) assertFramesReleased(t *testing.T) {
	t.Helper()

	for _, f := range h.source.frames {
		if f.closed != 1 {
			t.Errorf("Frame %d closed %d times, expected 1", f.id, f.closed)
		}
	}
	if h.source.closed != 1 {
		t.Errorf("Source closed %d times, expected 1", h.source.closed)
	}
}

func TestCaptureLoop_SourceExhaustedWithoutDetections(t *testing.T) {
	h := newHarness(3, time.Second)
	loop := h.loop(t, 1, 30*time.Second)

	result := loop.Run(context.Background())

	if result.State != StateSourceExhausted {
		t.Fatalf("Expected source_exhausted, got %s (%v)", result.State, result.Err)
	}
	if result.Published() || result.Reference != "" {
		t.Error("Exhausted run must not carry a reference")
	}
	if result.Frames != 3 || result.Attempts != 3 {
		t.Errorf("Expected 3 frames and 3 attempts, got %d and %d", result.Frames, result.Attempts)
	}
	if len(h.publisher.calls) != 0 {
		t.Errorf("Publish should never be called, got %d calls", len(h.publisher.calls))
	}
	if loop.State() != StateSourceExhausted {
		t.Errorf("Loop state should be terminal, got %s", loop.State())
	}
	h.assertFramesReleased(t)
}

func TestCaptureLoop_PublishesFirstDetection(t *testing.T) {
	h := newHarness(5, time.Second)
	h.detector.hits[2] = []BoundingBox{{X: 10, Y: 20, Width: 40, Height: 30}}
	h.detector.hits[3] = []BoundingBox{{X: 1, Y: 1, Width: 40, Height: 40}}

	result := h.loop(t, 1, 30*time.Second).Run(context.Background())

	if result.State != StatePublished {
		t.Fatalf("Expected published, got %s (%v)", result.State, result.Err)
	}
	if result.Reference != "files/42" {
		t.Errorf("Expected reference files/42, got %s", result.Reference)
	}
	if len(h.publisher.calls) != 1 {
		t.Fatalf("Expected exactly one publish, got %d", len(h.publisher.calls))
	}
	if h.publisher.calls[0] != DataURIPrefix+"/9j/2Q==" {
		t.Errorf("Unexpected data URI %s", h.publisher.calls[0])
	}
	if len(h.source.frames) != 2 {
		t.Errorf("No frames should be read after the first hit, read %d", len(h.source.frames))
	}
	if len(h.annotator.annotated) != 1 || h.annotator.annotated[0] != 2 {
		t.Errorf("Expected frame 2 annotated, got %v", h.annotator.annotated)
	}
	h.assertFramesReleased(t)
}

func TestCaptureLoop_PublishRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "storage unavailable", http.StatusInternalServerError)
	}))
	defer server.Close()

	h := newHarness(5, time.Second)
	h.detector.hits[2] = []BoundingBox{{X: 10, Y: 20, Width: 40, Height: 30}}

	camera, _ := NewCameraConfig("http://camera.local/stream.m3u8", 1)
	loop := NewCaptureLoop(camera, 30*time.Second, Components{
		Open:      h.source.opener(),
		Detector:  h.detector,
		Annotator: h.annotator,
		Encoder:   h.encoder,
		Publisher: NewHTTPPublisher(server.URL, 5*time.Second),
		Clock:     h.clock,
	})

	result := loop.Run(context.Background())

	if result.State != StateFailed {
		t.Fatalf("Expected failed, got %s", result.State)
	}
	var publishErr *PublishError
	if !errors.As(result.Err, &publishErr) {
		t.Fatalf("Expected *PublishError, got %T: %v", result.Err, result.Err)
	}
	if publishErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", publishErr.StatusCode)
	}
	if result.Reference != "" {
		t.Error("Failed run must not carry a reference")
	}
	if len(h.source.frames) != 2 {
		t.Errorf("Loop should stop at the failed publish, read %d frames", len(h.source.frames))
	}
	h.assertFramesReleased(t)
}

func TestCaptureLoop_TimesOutBeforeDetection(t *testing.T) {
	h := newHarness(100, time.Second)
	h.detector.hits[5] = []BoundingBox{{X: 1, Y: 1, Width: 30, Height: 30}}

	result := h.loop(t, 10, 2*time.Second).Run(context.Background())

	if result.State != StateTimedOut {
		t.Fatalf("Expected timed_out, got %s", result.State)
	}
	if result.Attempts != 0 {
		t.Errorf("No detection should fire before the timeout, got %d attempts", result.Attempts)
	}
	if result.Frames != 3 {
		t.Errorf("Expected the third frame to trip the timeout, got %d frames", result.Frames)
	}
	if len(h.publisher.calls) != 0 {
		t.Error("Publish should never be called")
	}
	h.assertFramesReleased(t)
}

func TestCaptureLoop_TimeoutIsHardBound(t *testing.T) {
	h := newHarness(1000, 500*time.Millisecond)

	result := h.loop(t, 1, 5*time.Second).Run(context.Background())

	if result.State != StateTimedOut {
		t.Fatalf("Expected timed_out, got %s", result.State)
	}
	if result.Elapsed > 6*time.Second {
		t.Errorf("Run exceeded the timeout: %v", result.Elapsed)
	}
}

func TestCaptureLoop_DetectionInterval(t *testing.T) {
	tests := []struct {
		name     string
		interval int
		step     time.Duration
	}{
		{"fast stream", 1, 300 * time.Millisecond},
		{"slow interval", 3, 700 * time.Millisecond},
		{"step equals interval", 2, 2 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(40, tt.step)
			h.loop(t, tt.interval, time.Hour).Run(context.Background())

			if len(h.detector.attempts) < 2 {
				t.Fatalf("Expected several attempts, got %d", len(h.detector.attempts))
			}

			k := time.Duration(tt.interval) * time.Second
			for i := 1; i < len(h.detector.attempts); i++ {
				if gap := h.detector.attempts[i].Sub(h.detector.attempts[i-1]); gap < k {
					t.Errorf("Attempts %d and %d only %v apart, expected at least %v", i-1, i, gap, k)
				}
			}
		})
	}
}

func TestCaptureLoop_NoDetectionsNeverPublishes(t *testing.T) {
	for _, frames := range []int{0, 1, 7, 50} {
		h := newHarness(frames, 400*time.Millisecond)
		result := h.loop(t, 1, 10*time.Second).Run(context.Background())

		if result.State != StateSourceExhausted && result.State != StateTimedOut {
			t.Errorf("%d frames: expected source_exhausted or timed_out, got %s", frames, result.State)
		}
		if len(h.publisher.calls) != 0 {
			t.Errorf("%d frames: publish called without detections", frames)
		}
	}
}

func TestCaptureLoop_ConnectionError(t *testing.T) {
	h := newHarness(0, time.Second)
	camera, _ := NewCameraConfig("rtsp://unreachable", 1)

	loop := NewCaptureLoop(camera, time.Minute, Components{
		Open: func(string) (FrameSource, error) {
			return nil, errors.New("dial tcp: connection refused")
		},
		Detector:  h.detector,
		Annotator: h.annotator,
		Encoder:   h.encoder,
		Publisher: h.publisher,
		Clock:     h.clock,
	})

	result := loop.Run(context.Background())

	if result.State != StateFailed {
		t.Fatalf("Expected failed, got %s", result.State)
	}
	if !errors.Is(result.Err, ErrConnection) {
		t.Errorf("Expected ErrConnection, got %v", result.Err)
	}
	if len(h.detector.attempts) != 0 {
		t.Error("Detection must not run when the stream cannot be opened")
	}
}

func TestCaptureLoop_EncodingErrorAbortsRun(t *testing.T) {
	h := newHarness(5, time.Second)
	h.detector.hits[1] = []BoundingBox{{X: 0, Y: 0, Width: 30, Height: 30}}
	h.encoder.err = errors.New("empty matrix")

	result := h.loop(t, 1, time.Minute).Run(context.Background())

	var encErr *EncodingError
	if result.State != StateFailed || !errors.As(result.Err, &encErr) {
		t.Fatalf("Expected failed with *EncodingError, got %s: %v", result.State, result.Err)
	}
	if len(h.publisher.calls) != 0 {
		t.Error("Nothing should be published after an encoding failure")
	}
	if len(h.source.frames) != 1 {
		t.Errorf("Run should abort on the failing frame, read %d", len(h.source.frames))
	}
	h.assertFramesReleased(t)
}

func TestCaptureLoop_DetectorError(t *testing.T) {
	h := newHarness(5, time.Second)
	h.detector.err = errDetector

	result := h.loop(t, 1, time.Minute).Run(context.Background())

	if result.State != StateFailed || !errors.Is(result.Err, errDetector) {
		t.Fatalf("Expected failed wrapping the detector error, got %s: %v", result.State, result.Err)
	}
	h.assertFramesReleased(t)
}

func TestCaptureLoop_RunsOnce(t *testing.T) {
	h := newHarness(1, time.Second)
	loop := h.loop(t, 1, time.Minute)

	loop.Run(context.Background())
	second := loop.Run(context.Background())

	if second.State != StateFailed || second.Err == nil {
		t.Errorf("Second run should fail, got %s", second.State)
	}
	if h.source.closed != 1 {
		t.Errorf("Source should be opened and closed once, closed %d", h.source.closed)
	}
}

func TestCaptureLoop_Events(t *testing.T) {
	h := newHarness(3, time.Second)
	h.detector.hits[1] = []BoundingBox{{X: 0, Y: 0, Width: 30, Height: 30}}

	h.loop(t, 1, time.Minute).Run(context.Background())

	last := len(h.sink.events) - 1
	if last < 0 || h.sink.events[last] != "capture.finished" {
		t.Fatalf("Expected capture.finished as last event, got %v", h.sink.events)
	}
	if h.sink.fields[last]["state"] != "published" || h.sink.fields[last]["reference"] != "files/42" {
		t.Errorf("Unexpected finish fields %v", h.sink.fields[last])
	}
}

func TestState_Terminal(t *testing.T) {
	terminal := map[State]bool{
		StateIdle:            false,
		StateRunning:         false,
		StatePublished:       true,
		StateTimedOut:        true,
		StateSourceExhausted: true,
		StateFailed:          true,
	}

	for state, expected := range terminal {
		if state.Terminal() != expected {
			t.Errorf("%s.Terminal() = %v, expected %v", state, state.Terminal(), expected)
		}
	}
}
