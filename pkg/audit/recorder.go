package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RecorderConfig configures the audit recorder.
type RecorderConfig struct {
	// Enabled enables recording; a disabled recorder accepts and drops
	// events.
	Enabled bool

	// AsyncBuffer is the size of the async write channel. Default: 1000.
	AsyncBuffer int

	// WriteTimeout bounds how long Record waits for buffer space before
	// dropping an event. Default: 5 seconds.
	WriteTimeout time.Duration
}

// DefaultRecorderConfig returns the default recorder configuration.
func DefaultRecorderConfig() *RecorderConfig {
	return &RecorderConfig{
		Enabled:      true,
		AsyncBuffer:  1000,
		WriteTimeout: 5 * time.Second,
	}
}

// Recorder writes compliance-trail events to a storage backend
// asynchronously so compiles never block on the trail.
type Recorder struct {
	storage Storage
	config  *RecorderConfig
	events  chan *Event
	wg      sync.WaitGroup
	done    chan struct{}
	logger  *slog.Logger
}

// NewRecorder creates a recorder over a storage backend and starts its
// background writer.
func NewRecorder(storage Storage, config *RecorderConfig, logger *slog.Logger) *Recorder {
	if config == nil {
		config = DefaultRecorderConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := &Recorder{
		storage: storage,
		config:  config,
		events:  make(chan *Event, config.AsyncBuffer),
		done:    make(chan struct{}),
		logger:  logger.With("component", "audit.recorder"),
	}

	r.wg.Add(1)
	go r.worker()

	return r
}

// Record stamps an event with an id, timestamp, and payload hash, then
// enqueues it for async writing. The event value is copied; the caller's
// copy is not retained.
func (r *Recorder) Record(ctx context.Context, event Event) error {
	if !r.config.Enabled {
		return nil
	}

	event.ID = uuid.NewString()
	event.Time = time.Now().UTC()
	hash, err := hashEvent(&event)
	if err != nil {
		return fmt.Errorf("failed to hash audit event: %w", err)
	}
	event.PayloadHash = hash

	select {
	case r.events <- &event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(r.config.WriteTimeout):
		r.logger.Error("audit buffer full, dropping event",
			"event_id", event.ID,
			"api14", event.API14,
		)
		return fmt.Errorf("audit buffer full")
	}
}

// worker drains the event channel into storage.
func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case event := <-r.events:
			r.write(event)
		case <-r.done:
			// Drain remaining events before exiting.
			for {
				select {
				case event := <-r.events:
					r.write(event)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) write(event *Event) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	if err := r.storage.Store(ctx, event); err != nil {
		r.logger.Error("failed to store audit event",
			"event_id", event.ID,
			"error", err,
		)
		return
	}
	r.logger.Debug("audit event stored", "event_id", event.ID)
}

// Close stops the recorder, flushing pending events.
func (r *Recorder) Close() error {
	close(r.done)
	r.wg.Wait()
	return nil
}

// hashEvent computes the SHA-256 of the event's canonical JSON payload,
// excluding the hash field itself.
func hashEvent(event *Event) (string, error) {
	clone := *event
	clone.PayloadHash = ""

	data, err := json.Marshal(&clone)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
