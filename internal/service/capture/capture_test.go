package capture

import (
	"context"
	"errors"
	"testing"
	"time"

	"mediaserver/internal/config"
	"mediaserver/internal/logger"
	"mediaserver/internal/model"
	"mediaserver/internal/vision"
)

type memoryRepo struct {
	captures []model.Capture
}

func (r *memoryRepo) Insert(c *model.Capture) (int64, error) {
	r.captures = append(r.captures, *c)
	return int64(len(r.captures)), nil
}

func (r *memoryRepo) GetRecent(limit int) ([]model.Capture, error) {
	return r.captures, nil
}

type recordingNotifier struct {
	events []string
}

func (n *recordingNotifier) Notify(eventType string, payload interface{}) {
	n.events = append(n.events, eventType)
}

type stubFrame struct{}

func (stubFrame) Close() error { return nil }

type stubSource struct {
	left int
}

func (s *stubSource) Next() (vision.Frame, bool) {
	if s.left == 0 {
		return nil, false
	}
	s.left--
	return stubFrame{}, true
}

func (s *stubSource) Close() error { return nil }

type stubDetector struct {
	hit bool
}

func (d stubDetector) AllowedCategories() []string { return vision.AllowedCategories() }

func (d stubDetector) Detect(vision.Frame) ([]vision.BoundingBox, error) {
	if d.hit {
		return []vision.BoundingBox{{X: 1, Y: 1, Width: 30, Height: 30}}, nil
	}
	return nil, nil
}

type stubCodec struct{}

func (stubCodec) Annotate(vision.Frame, []vision.BoundingBox) error { return nil }

func (stubCodec) Encode(vision.Frame) ([]byte, error) { return []byte("jpeg"), nil }

type stubPublisher struct{}

func (stubPublisher) Publish(context.Context, string) (vision.PublishResult, error) {
	return vision.PublishResult{Reference: "http://localhost:8080/media/files/car.jpeg"}, nil
}

type stepClock struct {
	ticks int64
}

func (c *stepClock) Now() time.Time {
	c.ticks++
	return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(c.ticks) * time.Second)
}

func newService(hit bool, factoryErr error) (*Service, *memoryRepo, *recordingNotifier) {
	repo := &memoryRepo{}
	notifier := &recordingNotifier{}
	factory := func(vision.DetectionConfig) (vision.Components, func(), error) {
		if factoryErr != nil {
			return vision.Components{}, nil, factoryErr
		}
		return vision.Components{
			Open: func(string) (vision.FrameSource, error) {
				return &stubSource{left: 5}, nil
			},
			Detector:  stubDetector{hit: hit},
			Annotator: stubCodec{},
			Encoder:   stubCodec{},
			Publisher: stubPublisher{},
			Clock:     &stepClock{},
		}, nil, nil
	}

	cfg := &config.Config{AllowedTimeout: 30}
	return NewService(cfg, repo, factory, notifier, logger.NewNop()), repo, notifier
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		raw   string
		valid bool
	}{
		{"https://streams.example.com/cam/mono.m3u8", true},
		{"rtsp://10.0.0.5:554/stream1", true},
		{"  http://cam.local/feed ", true},
		{"", false},
		{"not a url", false},
		{"ftp://cam.local/feed", false},
		{"/relative/path", false},
		{"http://", false},
	}

	for _, tt := range tests {
		_, err := ValidateURL(tt.raw)
		if tt.valid && err != nil {
			t.Errorf("ValidateURL(%q) unexpected error: %v", tt.raw, err)
		}
		if !tt.valid && !errors.Is(err, ErrInvalidURL) {
			t.Errorf("ValidateURL(%q) expected ErrInvalidURL, got %v", tt.raw, err)
		}
	}
}

func TestRun_Published(t *testing.T) {
	svc, repo, notifier := newService(true, nil)

	record, err := svc.Run(context.Background(), "http://cam.local/stream.m3u8")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if record.State != string(vision.StatePublished) {
		t.Errorf("Expected published, got %s (%s)", record.State, record.Error)
	}
	if record.FileURL == "" {
		t.Error("Expected file URL")
	}
	if record.Category != DefaultCategory {
		t.Errorf("Expected category %s, got %s", DefaultCategory, record.Category)
	}
	if len(repo.captures) != 1 || record.ID != 1 {
		t.Errorf("Expected the run to be recorded, got %d records", len(repo.captures))
	}
	if len(notifier.events) != 1 || notifier.events[0] != EventCaptureFinished {
		t.Errorf("Expected capture.finished event, got %v", notifier.events)
	}
}

func TestRun_NothingDetected(t *testing.T) {
	svc, repo, _ := newService(false, nil)

	record, err := svc.Run(context.Background(), "http://cam.local/stream.m3u8")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if record.State != string(vision.StateSourceExhausted) {
		t.Errorf("Expected source_exhausted, got %s", record.State)
	}
	if record.FileURL != "" {
		t.Error("No file URL expected")
	}
	if repo.captures[0].Frames != 5 {
		t.Errorf("Expected 5 frames recorded, got %d", repo.captures[0].Frames)
	}
}

func TestRun_ComponentsUnavailable(t *testing.T) {
	svc, repo, _ := newService(false, errors.New("cascade file not found"))

	record, err := svc.Run(context.Background(), "http://cam.local/stream.m3u8")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if record.State != string(vision.StateFailed) || record.Error == "" {
		t.Errorf("Expected failed with error, got %s %q", record.State, record.Error)
	}
	if len(repo.captures) != 1 {
		t.Error("Failed runs must be recorded too")
	}
}

func TestRun_InvalidURL(t *testing.T) {
	svc, repo, _ := newService(true, nil)

	if _, err := svc.Run(context.Background(), "camera"); !errors.Is(err, ErrInvalidURL) {
		t.Errorf("Expected ErrInvalidURL, got %v", err)
	}
	if len(repo.captures) != 0 {
		t.Error("Invalid requests must not be recorded")
	}
}

func TestRun_BusyWhileRunning(t *testing.T) {
	repo := &memoryRepo{}
	entered := make(chan struct{})
	release := make(chan struct{})
	blocking := true

	factory := func(vision.DetectionConfig) (vision.Components, func(), error) {
		if blocking {
			close(entered)
			<-release
		}
		return vision.Components{
			Open: func(string) (vision.FrameSource, error) {
				return &stubSource{left: 2}, nil
			},
			Detector:  stubDetector{hit: true},
			Annotator: stubCodec{},
			Encoder:   stubCodec{},
			Publisher: stubPublisher{},
			Clock:     &stepClock{},
		}, nil, nil
	}
	svc := NewService(&config.Config{AllowedTimeout: 30}, repo, factory, nil, logger.NewNop())

	type outcome struct {
		record *model.Capture
		err    error
	}
	first := make(chan outcome, 1)
	go func() {
		record, err := svc.Run(context.Background(), "http://cam.local/one")
		first <- outcome{record, err}
	}()

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("First run never started")
	}

	if _, err := svc.Run(context.Background(), "http://cam.local/two"); !errors.Is(err, ErrBusy) {
		t.Errorf("Expected ErrBusy while a run is in progress, got %v", err)
	}

	close(release)
	res := <-first
	if res.err != nil || res.record.State != string(vision.StatePublished) {
		t.Fatalf("First run should publish, got %v %+v", res.err, res.record)
	}

	blocking = false
	record, err := svc.Run(context.Background(), "http://cam.local/three")
	if err != nil {
		t.Fatalf("Run after release failed: %v", err)
	}
	if record.State != string(vision.StatePublished) {
		t.Errorf("Expected published, got %s", record.State)
	}
	if len(repo.captures) != 2 {
		t.Errorf("Expected 2 recorded runs, got %d", len(repo.captures))
	}
}
