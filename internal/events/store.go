package events

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
)

const (
	// Write queue configuration
	writeQueueSize     = 1000 // Buffer size for async writes
	writeFlushInterval = 5 * time.Second
	writeTimeout       = 10 * time.Second

	filePermissions = 0o600
	dirPermissions  = 0o700
)

// writeOp represents a pending append operation.
type writeOp struct {
	event   *Event
	errChan chan error
}

// Store manages persistent storage of behavioral events in JSONL format.
// It uses an async write queue with buffered channels so event ingestion
// never blocks on disk I/O.
type Store struct {
	filePath   string
	writeQueue chan *writeOp
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	mu         sync.RWMutex
	file       *os.File
}

// NewStore creates a new event store rooted at baseDir.
// It initializes the async write queue and starts the background writer.
func NewStore(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, dirPermissions); err != nil {
		return nil, fmt.Errorf("failed to create event store directory: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	store := &Store{
		filePath:   filepath.Join(baseDir, "events.jsonl"),
		writeQueue: make(chan *writeOp, writeQueueSize),
		ctx:        ctx,
		cancel:     cancel,
	}

	file, err := os.OpenFile(store.filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, filePermissions)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open event log: %w", err)
	}
	store.file = file

	store.wg.Add(1)
	go store.writeWorker()

	return store, nil
}

// Append records a behavioral event. An empty ID is filled with a fresh
// UUID. The call is validated, queued, and waits for the background writer
// to confirm the append; if the queue is full it fails fast rather than
// blocking the caller.
func (s *Store) Append(e *Event) error {
	if e != nil && e.ID == "" {
		e.ID = uuid.NewString()
	}
	if err := ValidateEvent(e); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	op := &writeOp{
		event:   e,
		errChan: make(chan error, 1),
	}

	select {
	case s.writeQueue <- op:
		select {
		case err := <-op.errChan:
			return err
		case <-time.After(writeTimeout):
			return fmt.Errorf("write operation timed out")
		case <-s.ctx.Done():
			return fmt.Errorf("store is shutting down")
		}
	default:
		return fmt.Errorf("write queue is full, dropping write (queue size: %d)", writeQueueSize)
	}
}

// GetEvents retrieves events for a user recorded at or after since,
// scanning rotated segments before the active log so results come back
// oldest first. A zero since returns everything retained on disk.
func (s *Store) GetEvents(userID string, since time.Time) ([]*Event, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id cannot be empty")
	}

	// Only lock to snapshot the path; long reads must not block writes.
	s.mu.RLock()
	filePath := s.filePath
	s.mu.RUnlock()

	paths, err := s.segmentPaths()
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to list event segments: %w", err)
	}
	paths = append(paths, filePath)

	var out []*Event
	for _, path := range paths {
		matched, err := scanSegment(path, userID, since)
		if err != nil {
			return nil, err
		}
		out = append(out, matched...)
	}
	if out == nil {
		out = []*Event{}
	}
	return out, nil
}

// scanSegment reads one JSONL segment and returns the user's events in it.
func scanSegment(path, userID string, since time.Time) ([]*Event, error) {
	reader, err := openSegment(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open event log: %w", err)
	}
	defer reader.Close()

	var out []*Event
	scanner := bufio.NewScanner(reader)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var e Event
		if err := json.Unmarshal(line, &e); err != nil {
			// Skip corrupt lines, keep reading (graceful degradation)
			continue
		}
		if e.UserID != userID {
			continue
		}
		if !since.IsZero() && e.Timestamp.Before(since) {
			continue
		}
		out = append(out, &e)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading event log: %w", err)
	}
	return out, nil
}

// writeWorker is the background goroutine that processes append operations.
// It flushes periodically to bound data loss on crash.
func (s *Store) writeWorker() {
	defer s.wg.Done()

	ticker := time.NewTicker(writeFlushInterval)
	defer ticker.Stop()

	for {
		select {
		case op := <-s.writeQueue:
			err := s.writeEvent(op.event)
			select {
			case op.errChan <- err:
			default:
			}

		case <-ticker.C:
			s.mu.Lock()
			if s.file != nil {
				_ = s.file.Sync()
			}
			s.mu.Unlock()

		case <-s.ctx.Done():
			// Drain remaining queued writes before exiting
			for {
				select {
				case op := <-s.writeQueue:
					err := s.writeEvent(op.event)
					select {
					case op.errChan <- err:
					default:
					}
				default:
					s.mu.Lock()
					if s.file != nil {
						_ = s.file.Sync()
					}
					s.mu.Unlock()
					return
				}
			}
		}
	}
}

// writeEvent serializes an event and appends it as one JSONL line.
func (s *Store) writeEvent(e *Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return fmt.Errorf("event log is closed")
	}
	if _, err := s.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	return nil
}

// Close shuts down the background writer and closes the log file.
func (s *Store) Close() error {
	s.cancel()
	s.wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file != nil {
		err := s.file.Close()
		s.file = nil
		return err
	}
	return nil
}
