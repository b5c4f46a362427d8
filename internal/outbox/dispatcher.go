// Package outbox buffers adherence events and delivers them to Kafka.
package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/goshak24/ScolioFrontend-sub001/internal/events"
)

type messageWriter interface {
	WriteMessages(context.Context, string, ...kafka.Message) error
}

const (
	defaultMaxBuffered = 1024
	defaultMaxAttempts = 3
)

// Option configures optional behaviour for the Dispatcher.
type Option func(*Dispatcher)

// WithLogger overrides the dispatcher logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

// WithMaxBuffered bounds the in-memory buffer. The oldest events are dropped on overflow.
func WithMaxBuffered(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.maxBuffered = n
		}
	}
}

// WithMaxAttempts sets how many delivery attempts an event gets before it is dropped.
func WithMaxAttempts(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.maxAttempts = n
		}
	}
}

// Dispatcher buffers events in memory and flushes them to a single topic on a ticker.
// Enqueue never blocks and never fails; delivery problems are logged and counted.
type Dispatcher struct {
	producer     messageWriter
	topic        string
	pollInterval time.Duration
	batchSize    int
	maxBuffered  int
	maxAttempts  int
	logger       logrus.FieldLogger
	clock        func() time.Time

	mu      sync.Mutex
	pending []Message

	shutdownComplete chan struct{}
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(producer messageWriter, topic string, pollInterval time.Duration, batchSize int, opts ...Option) *Dispatcher {
	if batchSize <= 0 {
		batchSize = 100
	}
	d := &Dispatcher{
		producer:         producer,
		topic:            topic,
		pollInterval:     pollInterval,
		batchSize:        batchSize,
		maxBuffered:      defaultMaxBuffered,
		maxAttempts:      defaultMaxAttempts,
		logger:           logrus.StandardLogger(),
		clock:            time.Now,
		shutdownComplete: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Enqueue buffers envelope for delivery.
func (d *Dispatcher) Enqueue(envelope events.Envelope) {
	payload, err := json.Marshal(envelope.Payload)
	if err != nil {
		d.logger.WithError(err).WithField("event_type", envelope.Type).Error("outbox: encode event")
		droppedCounter.WithLabelValues("encode").Inc()
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if overflow := len(d.pending) + 1 - d.maxBuffered; overflow > 0 {
		d.pending = d.pending[overflow:]
		droppedCounter.WithLabelValues("overflow").Add(float64(overflow))
	}
	d.pending = append(d.pending, Message{
		EventType:  envelope.Type,
		PatientID:  envelope.PatientID,
		Payload:    payload,
		EnqueuedAt: d.clock().UTC(),
	})
	bufferedGauge.Set(float64(len(d.pending)))
}

// Pending returns the number of buffered events.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Start launches the flush loop. It should be called in a goroutine. On
// cancellation one last flush is attempted with a short deadline.
func (d *Dispatcher) Start(ctx context.Context) {
	ticker := time.NewTicker(d.pollInterval)
	defer func() {
		ticker.Stop()
		close(d.shutdownComplete)
	}()

	for {
		select {
		case <-ctx.Done():
			drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			d.Flush(drainCtx)
			cancel()
			return
		case <-ticker.C:
		}

		if err := d.processBatch(ctx); err != nil && !errors.Is(err, context.Canceled) {
			d.logger.WithError(err).Warn("outbox dispatcher error")
		}
	}
}

// Wait waits until dispatcher stops.
func (d *Dispatcher) Wait() {
	<-d.shutdownComplete
}

// Flush delivers batches until the buffer is empty or a delivery fails.
func (d *Dispatcher) Flush(ctx context.Context) {
	for d.Pending() > 0 {
		if err := d.processBatch(ctx); err != nil {
			d.logger.WithError(err).Warn("outbox flush stopped")
			return
		}
	}
}

func (d *Dispatcher) processBatch(ctx context.Context) error {
	batch := d.claim()
	if len(batch) == 0 {
		return nil
	}
	start := time.Now()
	defer func() { batchDuration.Observe(time.Since(start).Seconds()) }()

	if err := d.deliver(ctx, batch); err != nil {
		failedCounter.Add(float64(len(batch)))
		d.requeue(batch)
		return err
	}

	deliveredCounter.Add(float64(len(batch)))
	return nil
}

func (d *Dispatcher) claim() []Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := min(len(d.pending), d.batchSize)
	batch := make([]Message, n)
	copy(batch, d.pending[:n])
	d.pending = d.pending[n:]
	bufferedGauge.Set(float64(len(d.pending)))
	return batch
}

// requeue puts a failed batch back at the head, dropping events that used up their attempts.
func (d *Dispatcher) requeue(batch []Message) {
	retry := make([]Message, 0, len(batch))
	for _, msg := range batch {
		msg.Attempts++
		if msg.Attempts >= d.maxAttempts {
			droppedCounter.WithLabelValues("attempts").Inc()
			d.logger.WithFields(logrus.Fields{
				"event_type": msg.EventType,
				"patient_id": msg.PatientID,
				"attempts":   msg.Attempts,
			}).Error("outbox: dropping undeliverable event")
			continue
		}
		retry = append(retry, msg)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = append(retry, d.pending...)
	if overflow := len(d.pending) - d.maxBuffered; overflow > 0 {
		d.pending = d.pending[overflow:]
		droppedCounter.WithLabelValues("overflow").Add(float64(overflow))
	}
	bufferedGauge.Set(float64(len(d.pending)))
}

func (d *Dispatcher) deliver(ctx context.Context, batch []Message) error {
	records := make([]kafka.Message, 0, len(batch))
	for _, msg := range batch {
		records = append(records, kafka.Message{
			Key:   []byte(msg.PatientID),
			Value: msg.Payload,
			Time:  msg.EnqueuedAt,
			Headers: []kafka.Header{
				{Key: events.HeaderEventType, Value: []byte(msg.EventType)},
				{Key: events.HeaderPatientID, Value: []byte(msg.PatientID)},
			},
		})
	}
	return d.producer.WriteMessages(ctx, d.topic, records...)
}

// Message is a buffered event awaiting delivery.
type Message struct {
	EventType  string
	PatientID  string
	Payload    json.RawMessage
	EnqueuedAt time.Time
	Attempts   int
}
