package vision

import (
	"context"
	"errors"
	"sync"
	"time"
)

type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type fakeFrame struct {
	id     int
	closed int
}

func (f *fakeFrame) Close() error {
	f.closed++
	return nil
}

// fakeSource yields count frames, advancing the clock by step before each one.
type fakeSource struct {
	clock  *fakeClock
	step   time.Duration
	count  int
	frames []*fakeFrame
	closed int
}

func (s *fakeSource) Next() (Frame, bool) {
	if len(s.frames) >= s.count {
		return nil, false
	}
	s.clock.Advance(s.step)
	f := &fakeFrame{id: len(s.frames) + 1}
	s.frames = append(s.frames, f)
	return f, true
}

func (s *fakeSource) Close() error {
	s.closed++
	return nil
}

func (s *fakeSource) opener() SourceOpener {
	return func(string) (FrameSource, error) { return s, nil }
}

// fakeDetector returns hits for the given frame IDs and records attempt times.
type fakeDetector struct {
	clock    *fakeClock
	hits     map[int][]BoundingBox
	err      error
	attempts []time.Time
}

func (d *fakeDetector) AllowedCategories() []string { return AllowedCategories() }

func (d *fakeDetector) Detect(frame Frame) ([]BoundingBox, error) {
	d.attempts = append(d.attempts, d.clock.Now())
	if d.err != nil {
		return nil, d.err
	}
	return d.hits[frame.(*fakeFrame).id], nil
}

type fakeAnnotator struct {
	annotated []int
	err       error
}

func (a *fakeAnnotator) Annotate(frame Frame, boxes []BoundingBox) error {
	a.annotated = append(a.annotated, frame.(*fakeFrame).id)
	return a.err
}

type fakeEncoder struct {
	err error
}

func (e *fakeEncoder) Encode(Frame) ([]byte, error) {
	if e.err != nil {
		return nil, e.err
	}
	return []byte{0xFF, 0xD8, 0xFF, 0xD9}, nil
}

type fakePublisher struct {
	reference string
	err       error
	calls     []string
}

func (p *fakePublisher) Publish(_ context.Context, dataURI string) (PublishResult, error) {
	p.calls = append(p.calls, dataURI)
	if p.err != nil {
		return PublishResult{}, p.err
	}
	return PublishResult{Reference: p.reference}, nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []string
	fields []map[string]interface{}
}

func (s *recordingSink) Event(name string, fields map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, name)
	s.fields = append(s.fields, fields)
}

var errDetector = errors.New("classifier failure")
