package worker

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alsalam/hospital-api/internal/model"
	"github.com/alsalam/hospital-api/internal/repository"
	"github.com/alsalam/hospital-api/pkg/logger"
	"github.com/alsalam/hospital-api/pkg/metrics"
)

type fakeOutboxRepo struct {
	repository.OutboxRepository
	events map[uuid.UUID]*model.OutboxEvent
}

func newFakeOutboxRepo() *fakeOutboxRepo {
	return &fakeOutboxRepo{events: map[uuid.UUID]*model.OutboxEvent{}}
}

func (f *fakeOutboxRepo) add(eventType string) *model.OutboxEvent {
	evt := &model.OutboxEvent{
		ID:        uuid.New(),
		EventType: eventType,
		Payload:   []byte(`{}`),
		Status:    model.OutboxStatusPending,
	}
	f.events[evt.ID] = evt
	return evt
}

// ClaimPending mirrors the real claim: returned rows move to processing and
// are not handed out again.
func (f *fakeOutboxRepo) ClaimPending(_ context.Context, limit int) ([]*model.OutboxEvent, error) {
	claimed := []*model.OutboxEvent{}
	for _, evt := range f.events {
		if evt.Status != model.OutboxStatusPending || len(claimed) >= limit {
			continue
		}
		evt.Status = model.OutboxStatusProcessing
		claimed = append(claimed, evt)
	}
	return claimed, nil
}

func (f *fakeOutboxRepo) MarkProcessed(_ context.Context, id uuid.UUID) error {
	f.events[id].Status = model.OutboxStatusProcessed
	return nil
}

func (f *fakeOutboxRepo) MarkFailed(_ context.Context, id uuid.UUID, errorMessage string) error {
	evt := f.events[id]
	evt.Status = model.OutboxStatusFailed
	evt.ErrorMessage = &errorMessage
	return nil
}

type fakeBroker struct {
	published []string
	failOn    string
}

func (f *fakeBroker) Publish(_ context.Context, channel string, _ interface{}) error {
	if channel == f.failOn {
		return fmt.Errorf("broker unavailable")
	}
	f.published = append(f.published, channel)
	return nil
}

func (f *fakeBroker) Subscribe(context.Context, string) (<-chan []byte, error) { return nil, nil }
func (f *fakeBroker) Close() error                                            { return nil }

var (
	testMetrics     *metrics.Metrics
	testMetricsOnce sync.Once
)

func newTestProcessor(t *testing.T, repo *fakeOutboxRepo, broker *fakeBroker) *OutboxProcessor {
	t.Helper()
	testMetricsOnce.Do(func() {
		testMetrics = metrics.NewMetrics("hospital_api_test", "worker")
	})
	p, err := NewOutboxProcessor(repo, broker, OutboxProcessorConfig{
		BatchSize:     10,
		PollInterval:  time.Second,
		RetryAttempts: 1,
		RetryDelay:    time.Millisecond,
	}, logger.NewLogger(nil), testMetrics)
	require.NoError(t, err)
	return p
}

func TestProcessEvents_PublishesEachClaimOnce(t *testing.T) {
	repo := newFakeOutboxRepo()
	broker := &fakeBroker{}
	repo.add(model.EventAppointmentBooked)
	repo.add(model.EventInvoicePaid)

	p := newTestProcessor(t, repo, broker)
	require.NoError(t, p.processEvents(context.Background()))
	assert.Len(t, broker.published, 2)
	for _, evt := range repo.events {
		assert.Equal(t, model.OutboxStatusProcessed, evt.Status)
	}

	// A second poll finds nothing left to claim.
	require.NoError(t, p.processEvents(context.Background()))
	assert.Len(t, broker.published, 2)
}

func TestProcessEvents_FailedPublish(t *testing.T) {
	repo := newFakeOutboxRepo()
	broker := &fakeBroker{failOn: model.EventPatientAdmitted}
	evt := repo.add(model.EventPatientAdmitted)

	p := newTestProcessor(t, repo, broker)
	require.NoError(t, p.processEvents(context.Background()))

	assert.Equal(t, model.OutboxStatusFailed, repo.events[evt.ID].Status)
	require.NotNil(t, repo.events[evt.ID].ErrorMessage)
	assert.Empty(t, broker.published)
}
