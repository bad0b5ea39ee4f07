package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/domains/modules/mdreport"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/infra/mq/lmstfy"
	"github.com/shafeeq27edu-ai/LeafSense-AI/internal/app/pkg/errorutil"
)

type fakeSource struct {
	mu    sync.Mutex
	queue []*lmstfy.Message
	acked []string
}

func (s *fakeSource) Consume(ctx context.Context, _ string, timeout, _ time.Duration) (*lmstfy.Message, error) {
	s.mu.Lock()
	if len(s.queue) > 0 {
		msg := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()
		return msg, nil
	}
	s.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(timeout):
		return nil, nil
	}
}

func (s *fakeSource) Ack(_ context.Context, _ string, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.acked = append(s.acked, jobID)
	return nil
}

func (s *fakeSource) Acked() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.acked...)
}

type handlerFunc func(ctx context.Context, job *mdreport.ReportJob) error

func (f handlerFunc) HandleJob(ctx context.Context, job *mdreport.ReportJob) error {
	return f(ctx, job)
}

func message(t *testing.T, jobID, scanID string) *lmstfy.Message {
	t.Helper()
	raw, err := json.Marshal(mdreport.ReportJob{RequestID: "req-" + jobID, ActionType: mdreport.ActionType, ScanID: scanID})
	require.NoError(t, err)
	return &lmstfy.Message{JobID: jobID, Data: raw}
}

func TestConsumerAckSemantics(t *testing.T) {
	source := &fakeSource{queue: []*lmstfy.Message{
		message(t, "ok", "scan_ok"),
		{JobID: "garbage", Data: json.RawMessage(`{"action_type":"other"}`)},
		message(t, "retry", "scan_retry"),
		message(t, "drop", "scan_drop"),
	}}

	var handled sync.Map
	handler := handlerFunc(func(ctx context.Context, job *mdreport.ReportJob) error {
		handled.Store(job.ScanID, true)
		switch job.ScanID {
		case "scan_retry":
			return errorutil.Retriable("disk busy", errors.New("EBUSY"))
		case "scan_drop":
			return errorutil.NonRetriable("scan record not found", nil)
		}
		return nil
	})

	c := NewReportConsumer(source, handler, &Config{
		QueueName: "scan_report",
		Timeout:   10 * time.Millisecond,
		TTR:       time.Second,
		Backoff:   10 * time.Millisecond,
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	require.Eventually(t, func() bool { return len(source.Acked()) == 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	assert.ElementsMatch(t, []string{"ok", "garbage", "drop"}, source.Acked())
	_, retried := handled.Load("scan_retry")
	assert.True(t, retried)

	processed, failed := c.Stats()
	assert.Equal(t, int64(1), processed)
	assert.Equal(t, int64(3), failed)
}
