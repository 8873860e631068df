package vision

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// State is a capture loop state. Published, TimedOut, SourceExhausted and
// Failed are terminal.
type State string

const (
	StateIdle            State = "idle"
	StateRunning         State = "running"
	StatePublished       State = "published"
	StateTimedOut        State = "timed_out"
	StateSourceExhausted State = "source_exhausted"
	StateFailed          State = "failed"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	switch s {
	case StatePublished, StateTimedOut, StateSourceExhausted, StateFailed:
		return true
	}
	return false
}

// Result describes how a capture run ended.
type Result struct {
	State     State
	Reference string // Set only for StatePublished
	Err       error  // Set only for StateFailed
	Frames    int    // Frames read from the source
	Attempts  int    // Detection attempts
	Elapsed   time.Duration
}

// Published reports whether the run produced a stored image.
func (r Result) Published() bool {
	return r.State == StatePublished
}

// Components are the collaborators of a CaptureLoop. Clock and Events are
// optional.
type Components struct {
	Open      SourceOpener
	Detector  Detector
	Annotator Annotator
	Encoder   Encoder
	Publisher Publisher
	Clock     Clock
	Events    EventSink
}

// CaptureLoop reads frames until the first positive detection is published,
// the source ends, the timeout passes or a step fails.
type CaptureLoop struct {
	camera    CameraConfig
	timeout   time.Duration
	open      SourceOpener
	detector  Detector
	annotator Annotator
	encoder   Encoder
	publisher Publisher
	clock     Clock
	events    EventSink
	state     State
}

// NewCaptureLoop builds a loop for one run. A non-positive timeout falls back
// to DefaultTimeout.
func NewCaptureLoop(camera CameraConfig, timeout time.Duration, c Components) *CaptureLoop {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if camera.interval <= 0 {
		camera.interval = DefaultDetectionInterval
	}
	if camera.streamURL == "" {
		camera.streamURL = DefaultStreamURL
	}

	loop := &CaptureLoop{
		camera:    camera,
		timeout:   timeout,
		open:      c.Open,
		detector:  c.Detector,
		annotator: c.Annotator,
		encoder:   c.Encoder,
		publisher: c.Publisher,
		clock:     c.Clock,
		events:    c.Events,
		state:     StateIdle,
	}
	if loop.clock == nil {
		loop.clock = SystemClock{}
	}
	if loop.events == nil {
		loop.events = nopSink{}
	}
	return loop
}

// State returns the current loop state.
func (l *CaptureLoop) State() State {
	return l.state
}

// Run executes the loop once. It blocks until a terminal state is reached;
// ctx only bounds the publish request. The source is closed on every path.
// A stream that cannot be opened yields StateFailed with an error wrapping
// ErrConnection.
func (l *CaptureLoop) Run(ctx context.Context) Result {
	if l.state != StateIdle {
		return Result{State: StateFailed, Err: errors.New("capture loop already ran")}
	}

	start := l.clock.Now()
	l.events.Event("capture.connecting", map[string]interface{}{"url": l.camera.streamURL})

	source, err := l.open(l.camera.streamURL)
	if err != nil {
		if !errors.Is(err, ErrConnection) {
			err = fmt.Errorf("%w: %v", ErrConnection, err)
		}
		return l.finish(Result{State: StateFailed, Err: err}, start)
	}
	defer source.Close()

	l.state = StateRunning
	result := Result{State: StateRunning}
	lastAttempt := start

	for {
		frame, ok := source.Next()
		if !ok {
			result.State = StateSourceExhausted
			return l.finish(result, start)
		}
		result.Frames++

		now := l.clock.Now()
		if now.Sub(start) > l.timeout {
			frame.Close()
			result.State = StateTimedOut
			return l.finish(result, start)
		}

		if now.Sub(lastAttempt) < l.camera.interval {
			frame.Close()
			continue
		}

		lastAttempt = now
		result.Attempts++

		done := l.process(ctx, frame, &result)
		if done {
			return l.finish(result, start)
		}
	}
}

// process runs detection on one frame and, on a hit, annotates, encodes and
// publishes it. It reports whether the loop reached a terminal state.
func (l *CaptureLoop) process(ctx context.Context, frame Frame, result *Result) bool {
	defer frame.Close()

	boxes, err := l.detector.Detect(frame)
	if err != nil {
		result.State = StateFailed
		result.Err = fmt.Errorf("detect: %w", err)
		return true
	}
	if len(boxes) == 0 {
		return false
	}

	l.events.Event("capture.detected", map[string]interface{}{
		"objects": len(boxes),
		"frame":   result.Frames,
	})

	if err := l.annotator.Annotate(frame, boxes); err != nil {
		result.State = StateFailed
		result.Err = &EncodingError{Err: err}
		return true
	}

	buf, err := l.encoder.Encode(frame)
	if err != nil {
		result.State = StateFailed
		result.Err = &EncodingError{Err: err}
		return true
	}

	published, err := l.publisher.Publish(ctx, DataURI(buf))
	if err != nil {
		result.State = StateFailed
		result.Err = err
		return true
	}

	result.State = StatePublished
	result.Reference = published.Reference
	return true
}

func (l *CaptureLoop) finish(result Result, start time.Time) Result {
	result.Elapsed = l.clock.Now().Sub(start)
	l.state = result.State

	fields := map[string]interface{}{
		"url":      l.camera.streamURL,
		"state":    string(result.State),
		"frames":   result.Frames,
		"attempts": result.Attempts,
		"elapsed":  result.Elapsed.String(),
	}
	if result.Reference != "" {
		fields["reference"] = result.Reference
	}
	if result.Err != nil {
		fields["error"] = result.Err.Error()
	}
	l.events.Event("capture.finished", fields)

	return result
}
