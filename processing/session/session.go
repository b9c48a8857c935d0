package session

import (
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"objectcam/internal/models"
)

// Frame is one annotated camera image ready for display.
type Frame struct {
	Image      image.Image
	Detections []models.Detection
	// Captured is when the camera read started; latency is measured from it.
	Captured time.Time
}

// Stream produces annotated frames from an open camera.
type Stream interface {
	Next() (Frame, error)
	Close() error
}

// Opener acquires the camera and everything needed to annotate its frames.
type Opener func() (Stream, error)

// Display receives frames from the loop goroutine. Implementations must be
// safe to call off the UI thread. Stopped may arrive after a new camera was
// opened; check Running before acting on it.
type Display interface {
	Show(Frame)
	Clear()
	Stopped(err error)
}

type Stats struct {
	FPS        uint
	Latency    time.Duration
	Detections int
}

// Session owns the camera handle and the timer-driven frame loop.
type Session struct {
	open     Opener
	display  Display
	interval func() time.Duration
	log      *slog.Logger

	mu  sync.Mutex
	cur *loop

	statsMu    sync.RWMutex
	stats      Stats
	frameCount uint
	lastFPS    time.Time
}

// loop is one open camera and the goroutine reading it.
type loop struct {
	stream Stream
	stop   chan struct{}
	done   chan struct{}

	releaseOnce sync.Once
	releaseErr  error
}

func (l *loop) release() error {
	l.releaseOnce.Do(func() {
		l.releaseErr = l.stream.Close()
	})
	return l.releaseErr
}

func New(open Opener, display Display, interval func() time.Duration, log *slog.Logger) *Session {
	if log == nil {
		log = slog.Default()
	}
	return &Session{
		open:     open,
		display:  display,
		interval: interval,
		log:      log,
	}
}

// Running reports whether a camera is held. It stays true until a failed
// loop has released its camera.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur != nil
}

// Open acquires the camera and starts the frame loop. Calling Open on a
// running session does nothing.
func (s *Session) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cur != nil {
		return nil
	}

	stream, err := s.open()
	if err != nil {
		return fmt.Errorf("open camera: %w", err)
	}

	l := &loop{
		stream: stream,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	s.cur = l

	s.resetStats()
	s.log.Info("camera opened")

	go s.run(l)

	return nil
}

// Close stops the loop, waits for an in-flight frame step, releases the
// camera and clears the display.
func (s *Session) Close() error {
	s.mu.Lock()
	l := s.cur
	s.cur = nil
	s.mu.Unlock()

	if l == nil {
		return nil
	}

	close(l.stop)
	<-l.done

	err := l.release()
	s.display.Clear()
	s.log.Info("camera released")

	if err != nil {
		return fmt.Errorf("release camera: %w", err)
	}
	return nil
}

func (s *Session) run(l *loop) {
	defer close(l.done)

	interval := s.interval()
	if interval <= 0 {
		interval = time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return

		case <-ticker.C:
			start := time.Now()

			frame, err := l.stream.Next()
			if err != nil {
				s.fail(l, err)
				return
			}

			select {
			case <-l.stop:
				return
			default:
			}

			if frame.Captured.IsZero() {
				frame.Captured = start
			}
			s.record(time.Since(frame.Captured), len(frame.Detections))
			s.display.Show(frame)
		}
	}
}

// fail releases the camera after a frame error. The session keeps reporting
// Running until the camera is released; Stopped is only sent when Close did
// not take the loop over in the meantime.
func (s *Session) fail(l *loop, cause error) {
	s.log.Error("frame loop stopped", "err", cause)

	if err := l.release(); err != nil {
		s.log.Warn("release camera", "err", err)
	}

	s.mu.Lock()
	owned := s.cur == l
	if owned {
		s.cur = nil
	}
	s.mu.Unlock()

	if !owned {
		return
	}

	s.display.Clear()
	s.display.Stopped(cause)
}

func (s *Session) Stats() Stats {
	s.statsMu.RLock()
	defer s.statsMu.RUnlock()
	return s.stats
}

func (s *Session) resetStats() {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	s.stats = Stats{}
	s.frameCount = 0
	s.lastFPS = time.Now()
}

func (s *Session) record(latency time.Duration, detections int) {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()

	s.stats.Latency = latency
	s.stats.Detections = detections

	s.frameCount++
	if time.Since(s.lastFPS) >= time.Second {
		s.stats.FPS = s.frameCount
		s.frameCount = 0
		s.lastFPS = time.Now()
	}
}
