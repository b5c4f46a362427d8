package consumer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/goshak24/ScolioFrontend-sub001/internal/events"
)

func TestProcessorCommitsOnSuccess(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	payload := []byte(`{"patient_id":"patient-1","current_streak_days":5}`)
	msg := kafka.Message{
		Topic:     "adherence.events",
		Partition: 0,
		Offset:    10,
		Time:      time.Now().UTC(),
		Key:       []byte("patient-1"),
		Value:     payload,
		Headers: []kafka.Header{
			{Key: events.HeaderEventType, Value: []byte(events.TypeStreakAdvanced)},
			{Key: events.HeaderPatientID, Value: []byte("patient-1")},
		},
	}

	reader := &stubReader{
		messages: []kafka.Message{msg},
		after:    contextCanceled,
	}
	handler := &stubHandler{}
	logger, _ := test.NewNullLogger()

	processor := NewProcessor(reader, handler, WithLogger(logger))

	err := processor.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	require.Equal(t, 1, handler.calls)
	require.Equal(t, 1, reader.commitCalls)
	require.Equal(t, events.TypeStreakAdvanced, handler.last.EventType)
	require.Equal(t, "patient-1", handler.last.PatientID)
	require.Equal(t, int64(10), handler.last.Offset)
	require.JSONEq(t, string(payload), string(handler.last.Payload))
}

func TestProcessorSkipsCommitOnHandlerError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msg := kafka.Message{
		Topic:  "adherence.events",
		Offset: 20,
		Key:    []byte("patient-2"),
		Value:  []byte(`{"subsystem":"walking"}`),
		Headers: []kafka.Header{
			{Key: events.HeaderEventType, Value: []byte(events.TypeDailyReset)},
		},
	}

	reader := &stubReader{
		messages: []kafka.Message{msg},
		after:    contextCanceled,
	}
	handler := &stubHandler{err: errors.New("boom")}
	logger, hook := test.NewNullLogger()

	processor := NewProcessor(reader, handler, WithLogger(logger))

	err := processor.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	require.Equal(t, 1, handler.calls)
	require.Equal(t, 0, reader.commitCalls)
	require.Equal(t, "patient-2", handler.last.PatientID)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	require.Equal(t, logrus.WarnLevel, entry.Level)
	require.Equal(t, "handler error", entry.Message)
}

func TestProcessorCommitsMalformedMessages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &stubReader{
		messages: []kafka.Message{
			{Topic: "adherence.events", Value: []byte(`{}`)},
			{
				Topic:   "adherence.events",
				Value:   []byte(`not-json`),
				Headers: []kafka.Header{{Key: events.HeaderEventType, Value: []byte(events.TypeBadgeAwarded)}},
			},
		},
		after: contextCanceled,
	}
	handler := &stubHandler{}
	logger, hook := test.NewNullLogger()

	err := NewProcessor(reader, handler, WithLogger(logger)).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	require.Zero(t, handler.calls)
	require.Equal(t, 2, reader.commitCalls)
	require.Len(t, hook.AllEntries(), 2)
}

type stubReader struct {
	messages    []kafka.Message
	index       int
	commitCalls int
	after       func() error
}

func (r *stubReader) FetchMessage(context.Context) (kafka.Message, error) {
	if r.index >= len(r.messages) {
		if r.after != nil {
			return kafka.Message{}, r.after()
		}
		return kafka.Message{}, context.Canceled
	}
	msg := r.messages[r.index]
	r.index++
	return msg, nil
}

func (r *stubReader) CommitMessages(_ context.Context, _ ...kafka.Message) error {
	r.commitCalls++
	return nil
}

func (r *stubReader) Close() error { return nil }

func contextCanceled() error { return context.Canceled }

type stubHandler struct {
	calls int
	err   error
	last  Message
}

func (h *stubHandler) Handle(_ context.Context, msg Message) error {
	h.calls++
	h.last = msg
	return h.err
}
