package events

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	log "github.com/sirupsen/logrus"
)

// Rotate renames the active event log to a timestamped segment and reopens
// a fresh log file. When compress is true the rotated segment is gzipped.
// Rotation is a no-op when the active log is smaller than maxSizeMB.
func (s *Store) Rotate(maxSizeMB int, compress bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return fmt.Errorf("event log is closed")
	}

	info, err := s.file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat event log: %w", err)
	}
	if maxSizeMB > 0 && info.Size() < int64(maxSizeMB)*1024*1024 {
		return nil
	}

	if err := s.file.Close(); err != nil {
		return fmt.Errorf("failed to close event log for rotation: %w", err)
	}

	segment := strings.TrimSuffix(s.filePath, ".jsonl") +
		"-" + time.Now().Format("20060102-150405") + ".jsonl"
	if err := os.Rename(s.filePath, segment); err != nil {
		return fmt.Errorf("failed to rotate event log: %w", err)
	}

	file, err := os.OpenFile(s.filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, filePermissions)
	if err != nil {
		return fmt.Errorf("failed to reopen event log: %w", err)
	}
	s.file = file

	if compress {
		if err := compressSegment(segment); err != nil {
			log.Warnf("Failed to compress rotated event segment: %v", err)
		}
	}
	return nil
}

// CleanupOldSegments deletes rotated segments whose modification time is
// older than retentionDays. The active log is never deleted.
func (s *Store) CleanupOldSegments(retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}

	dir := filepath.Dir(s.filePath)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read event store directory: %w", err)
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Join(dir, name) == s.filePath {
			continue
		}
		if !strings.HasPrefix(name, "events-") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(dir, name)); err != nil {
				log.Warnf("Failed to remove old event segment %s: %v", name, err)
			}
		}
	}
	return nil
}

// segmentPaths returns rotated segment paths oldest first, so callers can
// scan history in chronological order before the active log.
func (s *Store) segmentPaths() ([]string, error) {
	dir := filepath.Dir(s.filePath)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var segments []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "events-") {
			continue
		}
		segments = append(segments, filepath.Join(dir, name))
	}
	sort.Strings(segments)
	return segments, nil
}

// openSegment opens a segment for reading, transparently decompressing
// gzipped segments. The returned closer releases all underlying resources.
func openSegment(path string) (io.ReadCloser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, ".gz") {
		return file, nil
	}

	gz, err := gzip.NewReader(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	return &gzipSegment{gz: gz, file: file}, nil
}

type gzipSegment struct {
	gz   *gzip.Reader
	file *os.File
}

func (g *gzipSegment) Read(p []byte) (int, error) { return g.gz.Read(p) }

func (g *gzipSegment) Close() error {
	gzErr := g.gz.Close()
	fileErr := g.file.Close()
	if gzErr != nil {
		return gzErr
	}
	return fileErr
}

// compressSegment gzips the file at path and removes the original.
func compressSegment(path string) error {
	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open segment: %w", err)
	}
	defer src.Close()

	dst, err := os.OpenFile(path+".gz", os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePermissions)
	if err != nil {
		return fmt.Errorf("failed to create compressed segment: %w", err)
	}
	defer dst.Close()

	gz := gzip.NewWriter(dst)
	if _, err := io.Copy(gz, src); err != nil {
		gz.Close()
		return fmt.Errorf("failed to compress segment: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("failed to flush compressed segment: %w", err)
	}

	src.Close()
	return os.Remove(path)
}
