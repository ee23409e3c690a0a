package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Writer handles writing batches of attempt records to S3
type S3Writer struct {
	client  *s3.Client
	bucket  string
	prefix  string
	podName string
	logger  *Logger
}

// NewS3Writer creates a new S3 writer
func NewS3Writer(ctx context.Context, bucket, region, prefix, podName string) (*S3Writer, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &S3Writer{
		client:  s3.NewFromConfig(cfg),
		bucket:  bucket,
		prefix:  prefix,
		podName: podName,
		logger:  NewLogger("s3-writer"),
	}, nil
}

// WriteBatch writes a batch of attempt records to S3 as a JSON Lines file
// and returns the S3 key where the data was written.
// Key format: attempts/2026/08/30/guard-0-20260830-143022-123456789.jsonl
func (w *S3Writer) WriteBatch(ctx context.Context, records []*Record) (string, error) {
	if len(records) == 0 {
		return "", nil
	}

	now := time.Now()
	key := fmt.Sprintf("%s%04d/%02d/%02d/%s-%s-%d.jsonl",
		w.prefix,
		now.Year(),
		now.Month(),
		now.Day(),
		w.podName,
		now.Format("20060102-150405"),
		now.Nanosecond(),
	)

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	for _, record := range records {
		if err := encoder.Encode(record); err != nil {
			w.logger.Error("failed to encode record", "error", err)
			continue
		}
	}

	_, err := w.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(w.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	w.logger.Info("wrote batch to S3", "key", key, "count", len(records), "bytes", buf.Len())
	return key, nil
}

// batchWriter is the upload side of an S3Sink, separated for tests.
type batchWriter interface {
	WriteBatch(ctx context.Context, records []*Record) (string, error)
}

// S3Sink buffers attempt records in memory and flushes them to S3 in
// batches, by size or by interval.
type S3Sink struct {
	writer        batchWriter
	flushSize     int
	flushInterval time.Duration
	logger        *Logger

	recCh  chan *Record
	doneCh chan struct{}
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewS3Sink creates a buffered S3-backed record sink.
func NewS3Sink(writer batchWriter, bufferSize, flushSize int, flushInterval time.Duration) *S3Sink {
	sink := &S3Sink{
		writer:        writer,
		flushSize:     flushSize,
		flushInterval: flushInterval,
		logger:        NewLogger("s3-sink"),
		recCh:         make(chan *Record, bufferSize),
		doneCh:        make(chan struct{}),
	}

	sink.wg.Add(1)
	go sink.run()

	return sink
}

// Enqueue queues a record for upload. Records are dropped when the buffer is
// full; export is best effort.
func (s *S3Sink) Enqueue(rec *Record) error {
	select {
	case s.recCh <- rec:
	default:
		// Queue full; dropping record.
	}
	return nil
}

// Shutdown flushes pending records and stops the worker.
func (s *S3Sink) Shutdown(ctx context.Context) error {
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

func (s *S3Sink) run() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	batch := make([]*Record, 0, s.flushSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if _, err := s.writer.WriteBatch(ctx, batch); err != nil {
			s.logger.Error("failed to flush batch", "count", len(batch), "error", err)
		}
		cancel()
		batch = batch[:0]
	}

	for {
		select {
		case rec := <-s.recCh:
			batch = append(batch, rec)
			if len(batch) >= s.flushSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-s.doneCh:
			for {
				select {
				case rec := <-s.recCh:
					batch = append(batch, rec)
				default:
					flush()
					return
				}
			}
		}
	}
}
