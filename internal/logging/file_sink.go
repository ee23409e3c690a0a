package logging

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// FileSink implements asynchronous, buffered attempt-record logging with
// rotation and periodic flush. Records land as JSON Lines, one per attempt.
type FileSink struct {
	fileTemplate  string        // template for file names e.g. "/var/log/llm-resilience/attempts-%s.jsonl"
	maxSize       int64         // maximum size in bytes before rotation
	maxFiles      int           // maximum number of rotated files to keep
	flushInterval time.Duration // flush the buffer every flushInterval if not empty

	mu          sync.Mutex
	currentFile string
	file        *os.File
	writer      *bufio.Writer
	currentSize int64

	recCh  chan *Record
	doneCh chan struct{}
	wg     sync.WaitGroup
	closed bool
}

// NewFileSink creates a file-backed record sink. bufferSize determines how
// many records can be queued before new ones are dropped.
func NewFileSink(fileTemplate string, maxSize int64, maxFiles, bufferSize int, flushInterval time.Duration) (*FileSink, error) {
	sink := &FileSink{
		fileTemplate:  fileTemplate,
		maxSize:       maxSize,
		maxFiles:      maxFiles,
		flushInterval: flushInterval,
		recCh:         make(chan *Record, bufferSize),
		doneCh:        make(chan struct{}),
	}

	if err := sink.openFile(); err != nil {
		return nil, err
	}

	sink.wg.Add(1)
	go sink.run()

	return sink, nil
}

// Enqueue queues a record. If the queue is full the record is dropped;
// attempt export is best effort and never blocks the request path.
func (s *FileSink) Enqueue(rec *Record) error {
	select {
	case s.recCh <- rec:
	default:
		// Queue full; dropping record.
	}
	return nil
}

// Shutdown flushes the buffer and closes the file. Call it from the
// application's graceful shutdown handler.
func (s *FileSink) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.doneCh)
	s.wg.Wait()
	return nil
}

// newFileName applies the current timestamp to the file template.
func (s *FileSink) newFileName() string {
	timestamp := time.Now().Format("20060102150405")
	return fmt.Sprintf(s.fileTemplate, timestamp)
}

// openFile opens (or creates) the active file and prepares the buffered
// writer, ensuring the directory exists.
func (s *FileSink) openFile() error {
	s.currentFile = s.newFileName()
	dir := filepath.Dir(s.currentFile)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	file, err := os.OpenFile(s.currentFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	fi, err := file.Stat()
	if err != nil {
		file.Close()
		return err
	}
	s.currentSize = fi.Size()
	s.file = file
	s.writer = bufio.NewWriter(file)
	return nil
}

// rotateIfNeeded rotates the file when adding n bytes would exceed maxSize.
func (s *FileSink) rotateIfNeeded(n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentSize+int64(n) < s.maxSize {
		return nil
	}

	if err := s.writer.Flush(); err != nil {
		return err
	}
	if err := s.file.Close(); err != nil {
		return err
	}

	if err := s.openFile(); err != nil {
		return err
	}
	return s.cleanupOldFiles()
}

// cleanupOldFiles removes the oldest rotated files if more than maxFiles exist.
func (s *FileSink) cleanupOldFiles() error {
	pattern := fmt.Sprintf(s.fileTemplate, "*")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return err
	}

	sort.Slice(matches, func(i, j int) bool {
		fi, err1 := os.Stat(matches[i])
		fj, err2 := os.Stat(matches[j])
		if err1 != nil || err2 != nil {
			return false
		}
		return fi.ModTime().Before(fj.ModTime())
	})

	excess := len(matches) - s.maxFiles
	for i := 0; i < excess; i++ {
		_ = os.Remove(matches[i])
	}
	return nil
}

// run listens for records and writes them, flushing periodically.
func (s *FileSink) run() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case rec := <-s.recCh:
			s.writeRecord(rec)
		case <-ticker.C:
			s.mu.Lock()
			_ = s.writer.Flush()
			s.mu.Unlock()
		case <-s.doneCh:
			// Drain remaining records.
			for {
				select {
				case rec := <-s.recCh:
					s.writeRecord(rec)
				default:
					s.mu.Lock()
					_ = s.writer.Flush()
					_ = s.file.Close()
					s.mu.Unlock()
					return
				}
			}
		}
	}
}

// writeRecord serializes a record to JSON and writes it, rotating if needed.
func (s *FileSink) writeRecord(rec *Record) {
	data, err := json.Marshal(rec)
	if err != nil {
		// If marshaling fails, skip the record.
		return
	}
	line := string(data) + "\n"
	n := len(line)
	_ = s.rotateIfNeeded(n)

	s.mu.Lock()
	_, _ = s.writer.WriteString(line)
	s.currentSize += int64(n)
	s.mu.Unlock()
}
