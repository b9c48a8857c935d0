package processing

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"gocv.io/x/gocv"

	"objectcam/internal/models"
)

const defaultRetryDelay = 5 * time.Second

// RemoteDetector streams JPEG frames to a detection server over a websocket
// and keeps the most recent result set it answered with. Detect never waits
// for the server, so boxes trail the frame they are drawn on.
type RemoteDetector struct {
	serverURL  string
	retryDelay time.Duration
	log        *slog.Logger

	frames chan []byte

	mu     sync.RWMutex
	latest []models.DetectionResult

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewRemoteDetector(host string, log *slog.Logger) *RemoteDetector {
	u := url.URL{Scheme: "ws", Host: host, Path: "/ws"}

	if log == nil {
		log = slog.Default()
	}

	return &RemoteDetector{
		serverURL:  u.String(),
		retryDelay: defaultRetryDelay,
		log:        log.With("detector", "remote"),
		frames:     make(chan []byte, 5),
	}
}

func (d *RemoteDetector) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel

	d.wg.Add(1)
	go d.runLoop(ctx)
}

func (d *RemoteDetector) Close() error {
	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()
	return nil
}

// Submit queues an encoded frame, dropping it when the sender is behind.
func (d *RemoteDetector) Submit(jpeg []byte) {
	select {
	case d.frames <- jpeg:
	default:
	}
}

func (d *RemoteDetector) Latest() []models.DetectionResult {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.latest
}

func (d *RemoteDetector) Detect(frame gocv.Mat) ([]models.Detection, error) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, frame)
	if err != nil {
		return nil, fmt.Errorf("jpeg encode: %w", err)
	}
	jpeg := make([]byte, buf.Len())
	copy(jpeg, buf.GetBytes())
	buf.Close()

	d.Submit(jpeg)

	results := d.Latest()
	detections := make([]models.Detection, 0, len(results))
	for _, r := range results {
		if det, ok := r.Scale(frame.Cols(), frame.Rows()); ok {
			detections = append(detections, det)
		}
	}

	return detections, nil
}

func (d *RemoteDetector) runLoop(ctx context.Context) {
	defer d.wg.Done()

	for {
		if ctx.Err() != nil {
			return
		}

		d.log.Info("connecting to detector server", "url", d.serverURL)
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, d.serverURL, nil)
		if err != nil {
			d.log.Warn("connection failed", "err", err, "retry_in", d.retryDelay)
			select {
			case <-ctx.Done():
				return
			case <-time.After(d.retryDelay):
			}
			continue
		}

		d.log.Info("connected to detection server")

		err = d.serve(ctx, conn)

		if ctx.Err() != nil {
			return
		}
		d.log.Warn("connection lost", "err", err)
	}
}

// serve pumps frames and results over conn until either side fails. It closes
// conn and forgets the last results before returning.
func (d *RemoteDetector) serve(ctx context.Context, conn *websocket.Conn) error {
	errChan := make(chan error, 2)
	done := make(chan struct{})
	defer close(done)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case frame := <-d.frames:
				if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
					errChan <- err
					return
				}
			}
		}
	}()

	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				errChan <- err
				return
			}

			var results []models.DetectionResult
			if err := json.Unmarshal(message, &results); err != nil {
				d.log.Warn("json decode error", "err", err)
				continue
			}

			d.setLatest(results)
		}
	}()

	var err error
	select {
	case err = <-errChan:
	case <-ctx.Done():
		err = ctx.Err()
	}

	conn.Close()
	<-readerDone

	// results are only valid while connected
	d.setLatest(nil)

	return err
}

func (d *RemoteDetector) setLatest(results []models.DetectionResult) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.latest = results
}
