// Package watcher auto-detects fresh screenshots on the desktop and feeds
// them into the processing pipeline.
package watcher

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/example/screenshotai/internal/imaging"
	"github.com/example/screenshotai/internal/models"
)

// settleDelay gives the OS time to finish writing and renaming a screenshot
// before it is read.
const settleDelay = 1000 * time.Millisecond

// queueSize bounds the pending-path queue. The event callback drops paths
// when the queue is full rather than blocking event delivery.
const queueSize = 256

var screenshotPatterns = []string{"screenshot", "screen shot", "capture", "cleanshot"}

// Submitter runs one submission through the pipeline.
type Submitter interface {
	Process(ctx context.Context, imageBase64 string, meta models.ScreenshotMetadata) *models.ProcessingResult
}

// EventSink receives UI events for auto-detected screenshots.
type EventSink interface {
	Notify(eventType string, payload any)
}

// Watcher observes one directory non-recursively and pushes qualifying files
// through the pipeline from a single background worker.
type Watcher struct {
	dir      string
	pipeline Submitter
	sink     EventSink
	settle   time.Duration
	log      *zap.Logger

	fw    *fsnotify.Watcher
	queue chan string
	done  chan struct{}
	wg    sync.WaitGroup
	once  sync.Once

	// pending coalesces the create/write event bursts a single screenshot
	// produces; a path is queued at most once until its settle delay elapses.
	pendingMu sync.Mutex
	pending   map[string]struct{}
}

// New creates a Watcher for dir. An empty dir resolves to the user's Desktop
// directory, falling back to the working directory.
func New(dir string, pipeline Submitter, sink EventSink, log *zap.Logger) (*Watcher, error) {
	if dir == "" {
		dir = defaultWatchDir()
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("watch directory %q is not usable: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch path %q is not a directory", dir)
	}

	return &Watcher{
		dir:      dir,
		pipeline: pipeline,
		sink:     sink,
		settle:   settleDelay,
		log:      log,
		queue:    make(chan string, queueSize),
		pending:  make(map[string]struct{}),
		done:     make(chan struct{}),
	}, nil
}

func defaultWatchDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, "Desktop")
}

// Start begins watching. The fsnotify callback loop only filters and
// enqueues; all file reading and network work happens on the drain worker.
func (w *Watcher) Start() error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	if err := fw.Add(w.dir); err != nil {
		fw.Close()
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}
	w.fw = fw

	w.wg.Add(2)
	go w.eventLoop()
	go w.drainLoop()

	w.log.Info("desktop screenshot auto-detection started", zap.String("dir", w.dir))
	return nil
}

// Stop shuts the watcher down and waits for the worker to finish its current
// item.
func (w *Watcher) Stop() {
	w.once.Do(func() {
		if w.fw != nil {
			w.fw.Close()
		}
		close(w.done)
		w.wg.Wait()
	})
}

func (w *Watcher) eventLoop() {
	defer w.wg.Done()
	for {
		select {
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !IsScreenshotFile(event.Name) {
				continue
			}
			if !w.markPending(event.Name) {
				continue
			}
			select {
			case w.queue <- event.Name:
			default:
				w.clearPending(event.Name)
				w.log.Warn("screenshot queue full, dropping event", zap.String("path", event.Name))
			}

		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.log.Warn("watcher error", zap.Error(err))

		case <-w.done:
			return
		}
	}
}

func (w *Watcher) drainLoop() {
	defer w.wg.Done()
	for {
		select {
		case path := <-w.queue:
			if err := w.processFile(path); err != nil {
				w.log.Warn("failed to process desktop screenshot",
					zap.String("path", path), zap.Error(err))
			}
		case <-w.done:
			return
		}
	}
}

// IsScreenshotFile reports whether a path looks like a screenshot worth
// processing: visible, a PNG/JPEG, and named like a capture.
func IsScreenshotFile(path string) bool {
	name := filepath.Base(path)
	if name == "" || name == "." || strings.HasPrefix(name, ".") {
		return false
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg":
	default:
		return false
	}

	lower := strings.ToLower(name)
	for _, pattern := range screenshotPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

func (w *Watcher) markPending(path string) bool {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	if _, dup := w.pending[path]; dup {
		return false
	}
	w.pending[path] = struct{}{}
	return true
}

func (w *Watcher) clearPending(path string) {
	w.pendingMu.Lock()
	delete(w.pending, path)
	w.pendingMu.Unlock()
}

func (w *Watcher) processFile(path string) error {
	// Settle delay: let the OS finish writing/renaming before reading.
	select {
	case <-time.After(w.settle):
	case <-w.done:
		return nil
	}
	// Later events for this path start a fresh cycle from here on.
	w.clearPending(path)

	info, err := os.Stat(path)
	if err != nil {
		// Transient temp artifacts vanish during the settle delay; skip, do
		// not retry.
		return fmt.Errorf("file not found: %w", err)
	}

	if info.Size() > imaging.MaxImageBytes {
		w.log.Warn("screenshot too large, skipping",
			zap.String("path", path),
			zap.Float64("size_mb", float64(info.Size())/1024/1024))
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	meta := models.ScreenshotMetadata{
		Source:       "desktop_auto",
		App:          "macOS Screenshot",
		Filename:     filepath.Base(path),
		AutoDetected: true,
	}

	result := w.pipeline.Process(context.Background(), base64.StdEncoding.EncodeToString(data), meta)
	if !result.Success {
		return fmt.Errorf("pipeline rejected %s: %s", path, result.Error)
	}

	if w.sink != nil {
		w.sink.Notify("screenshot-processed", models.ScreenshotSummary{
			ID:        result.AnalysisID,
			Name:      filepath.Base(path),
			Size:      len(data),
			Type:      "image/png",
			Timestamp: result.Timestamp,
			Status:    "completed",
			Analysis:  result.Summary,
			Source:    result.Source,
		})
	}

	w.log.Info("desktop screenshot processed", zap.String("analysis_id", result.AnalysisID))
	return nil
}
