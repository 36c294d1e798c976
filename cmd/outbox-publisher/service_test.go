package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/asdwsxzc123/jiale-mrp/pkg/config"
	"github.com/asdwsxzc123/jiale-mrp/pkg/db/models"
	"github.com/asdwsxzc123/jiale-mrp/pkg/enums"
	"github.com/asdwsxzc123/jiale-mrp/pkg/logger"
	"github.com/asdwsxzc123/jiale-mrp/pkg/metrics"
	"github.com/asdwsxzc123/jiale-mrp/pkg/outbox"
	"github.com/asdwsxzc123/jiale-mrp/pkg/outbox/payloads"
	"github.com/asdwsxzc123/jiale-mrp/pkg/outbox/registry"
)

func approvedEvent(t *testing.T, attempts int) models.OutboxEvent {
	t.Helper()
	id := uuid.New()
	return models.OutboxEvent{
		ID:            id,
		EventType:     enums.EventDocumentApproved,
		AggregateType: enums.AggregateCommercialDocument,
		AggregateID:   uuid.New(),
		Payload:       mustEnvelopePayload(t, id.String()),
		AttemptCount:  attempts,
	}
}

func resolvedFor(topic string) *registry.ResolvedEvent {
	return &registry.ResolvedEvent{
		Descriptor: registry.EventDescriptor{
			Topic:         topic,
			AggregateType: enums.AggregateCommercialDocument,
		},
		Envelope: outbox.PayloadEnvelope{
			EventID:    uuid.NewString(),
			OccurredAt: time.Now(),
		},
		Payload: &payloads.DocumentStatusEvent{},
	}
}

func TestProcessBatchContinuesAfterFailure(t *testing.T) {
	repo := &fakeRepo{events: []models.OutboxEvent{approvedEvent(t, 0), approvedEvent(t, 0)}}
	pub := &fakePublisher{
		results: []publishResult{
			fakePublishResult{err: errors.New("transient")},
			fakePublishResult{},
		},
	}
	service := newTestService(t, repo, pub, &fakeRegistry{resolved: resolvedFor("erp-domain-events")}, &fakeDLQRepo{}, nil)

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report processed")
	}
	if len(repo.failed) != 1 || repo.failed[0] != repo.events[0].ID {
		t.Fatalf("unexpected failed rows %v", repo.failed)
	}
	if len(repo.published) != 1 || repo.published[0] != repo.events[1].ID {
		t.Fatalf("unexpected published rows %v", repo.published)
	}
}

func TestPublishSetsEventAttributes(t *testing.T) {
	event := approvedEvent(t, 0)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	pub := &fakePublisher{results: []publishResult{fakePublishResult{}}}
	service := newTestService(t, repo, pub, &fakeRegistry{resolved: resolvedFor("erp-domain-events")}, &fakeDLQRepo{}, nil)

	var topics []string
	service.publisherFactory = func(topic string) publisher {
		topics = append(topics, topic)
		return pub
	}

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if len(topics) != 1 || topics[0] != "erp-domain-events" {
		t.Fatalf("unexpected topics %v", topics)
	}
	if len(pub.sent) != 1 {
		t.Fatalf("expected one message, got %d", len(pub.sent))
	}
	attrs := pub.sent[0].Attributes
	if attrs["event_type"] != string(enums.EventDocumentApproved) {
		t.Fatalf("unexpected event_type %q", attrs["event_type"])
	}
	if attrs["aggregate_id"] != event.AggregateID.String() {
		t.Fatalf("unexpected aggregate_id %q", attrs["aggregate_id"])
	}
	if !bytes.Equal(pub.sent[0].Data, event.Payload) {
		t.Fatalf("message data should be the stored envelope")
	}
}

func TestProcessBatchWritesDLQOnNonRetryable(t *testing.T) {
	event := approvedEvent(t, 0)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	dlqRepo := &fakeDLQRepo{}
	reg := prometheus.NewRegistry()
	service := newTestService(t, repo, &fakePublisher{}, &fakeRegistry{err: registry.NewNonRetryableError(errors.New("invalid payload"))}, dlqRepo, nil)
	service.metrics = metrics.NewRelay(reg)

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report processed")
	}
	if got := len(dlqRepo.entries); got != 1 {
		t.Fatalf("expected dlq entry, got %d", got)
	}
	entry := dlqRepo.entries[0]
	if entry.EventID != event.ID {
		t.Fatalf("dlq event_id mismatch: %s", entry.EventID)
	}
	if !bytes.Equal(entry.Payload, event.Payload) {
		t.Fatalf("dlq payload mismatch")
	}
	if entry.ErrorReason != enums.OutboxDLQReasonNonRetryable {
		t.Fatalf("unexpected error reason: %s", entry.ErrorReason)
	}
	if len(repo.terminal) != 1 {
		t.Fatalf("expected row marked terminal")
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	found := false
	for _, mf := range families {
		if mf.GetName() != "erp_outbox_events_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "outcome" && l.GetValue() == outcomeDeadLettered {
					found = true
				}
			}
		}
	}
	if !found {
		t.Fatalf("expected dead_lettered outcome to be counted")
	}
}

func TestProcessBatchWritesDLQOnMaxAttempts(t *testing.T) {
	event := approvedEvent(t, 1)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	pub := &fakePublisher{results: []publishResult{fakePublishResult{err: errors.New("transient")}}}
	dlqRepo := &fakeDLQRepo{}
	service := newTestService(t, repo, pub, &fakeRegistry{resolved: resolvedFor("erp-domain-events")}, dlqRepo, &config.OutboxConfig{
		BatchSize:      1,
		PollIntervalMS: 100,
		MaxAttempts:    2,
	})

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if got := len(dlqRepo.entries); got != 1 {
		t.Fatalf("expected dlq entry, got %d", got)
	}
	if dlqRepo.entries[0].ErrorReason != enums.OutboxDLQReasonMaxAttempts {
		t.Fatalf("unexpected error reason: %s", dlqRepo.entries[0].ErrorReason)
	}
	if len(repo.failed) != 0 {
		t.Fatalf("terminal rows must not be marked as a plain failure")
	}
}

func TestProcessBatchRollsBackWhenDLQInsertFails(t *testing.T) {
	repo := &fakeRepo{events: []models.OutboxEvent{approvedEvent(t, 0)}}
	dlqRepo := &fakeDLQRepo{err: errors.New("disk full")}
	service := newTestService(t, repo, &fakePublisher{}, &fakeRegistry{err: registry.NewNonRetryableError(errors.New("bad"))}, dlqRepo, nil)

	if _, err := service.processBatch(context.Background()); err == nil {
		t.Fatalf("expected batch error when the dlq insert fails")
	}
	if len(repo.terminal) != 0 {
		t.Fatalf("row must stay pending when the dlq insert fails")
	}
}

func TestRetentionSweeperRunsOncePerInterval(t *testing.T) {
	repo := &fakeRetentionRepo{deleted: 4}
	sweeper, err := NewRetentionSweeper(RetentionParams{
		Logger:   testLogger(),
		DB:       &fakeDB{},
		Repo:     repo,
		Days:     30,
		Interval: time.Hour,
	})
	if err != nil {
		t.Fatalf("new sweeper: %v", err)
	}

	now := time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)
	sweeper.MaybeSweep(context.Background(), now)
	sweeper.MaybeSweep(context.Background(), now.Add(10*time.Minute))
	sweeper.MaybeSweep(context.Background(), now.Add(61*time.Minute))

	if len(repo.cutoffs) != 2 {
		t.Fatalf("expected 2 sweeps, got %d", len(repo.cutoffs))
	}
	want := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if !repo.cutoffs[0].Equal(want) {
		t.Fatalf("unexpected cutoff %s", repo.cutoffs[0])
	}
}

func TestNextBackoffCapsAtMax(t *testing.T) {
	base := 500 * time.Millisecond
	if got := nextBackoff(0, base, maxBackoff); got != time.Second {
		t.Fatalf("expected 1s got %s", got)
	}
	if got := nextBackoff(8*time.Second, base, maxBackoff); got != maxBackoff {
		t.Fatalf("expected cap got %s", got)
	}
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "outbox-publisher-test", Output: io.Discard})
}

func newTestService(t *testing.T, repo outboxRepository, pub publisher, reg registryResolver, dlq dlqRepository, outboxCfgOverride *config.OutboxConfig) *Service {
	t.Helper()
	outboxCfg := config.OutboxConfig{
		BatchSize:      2,
		PollIntervalMS: 100,
		MaxAttempts:    5,
	}
	if outboxCfgOverride != nil {
		outboxCfg = *outboxCfgOverride
	}
	service, err := NewService(ServiceParams{
		Config:           &config.Config{Outbox: outboxCfg},
		Logger:           testLogger(),
		DB:               &fakeDB{},
		PubSub:           &fakePubSubClient{},
		Repository:       repo,
		Registry:         reg,
		PublisherFactory: func(string) publisher { return pub },
		DLQRepository:    dlq,
	})
	if err != nil {
		t.Fatalf("failed to construct service: %v", err)
	}
	return service
}

func mustEnvelopePayload(tb testing.TB, eventID string) json.RawMessage {
	tb.Helper()
	payload, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID,
		OccurredAt: time.Now(),
		Data:       json.RawMessage(`{}`),
	})
	if err != nil {
		tb.Fatalf("marshal envelope: %v", err)
	}
	return payload
}

type fakeRepo struct {
	events    []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID
	terminal  []uuid.UUID
}

func (f *fakeRepo) FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	return f.events, nil
}

func (f *fakeRepo) MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error {
	f.published = append(f.published, id)
	return nil
}

func (f *fakeRepo) MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeRepo) MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error {
	f.terminal = append(f.terminal, id)
	return nil
}

type fakeRetentionRepo struct {
	deleted int64
	cutoffs []time.Time
}

func (f *fakeRetentionRepo) DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	f.cutoffs = append(f.cutoffs, cutoff)
	return f.deleted, nil
}

type fakeDB struct{}

func (f *fakeDB) Ping(context.Context) error {
	return nil
}

func (f *fakeDB) WithTx(_ context.Context, fn func(*gorm.DB) error) error {
	return fn(nil)
}

type fakePubSubClient struct{}

func (f *fakePubSubClient) Ping(context.Context) error {
	return nil
}

func (f *fakePubSubClient) Publisher(name string) *gcppubsub.Publisher {
	return nil
}

type fakePublisher struct {
	results []publishResult
	sent    []*gcppubsub.Message
}

func (f *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	f.sent = append(f.sent, msg)
	if len(f.results) == 0 {
		return nil
	}
	result := f.results[0]
	f.results = f.results[1:]
	return result
}

type fakePublishResult struct {
	err error
}

func (f fakePublishResult) Get(context.Context) (string, error) {
	return "", f.err
}

type fakeRegistry struct {
	resolved *registry.ResolvedEvent
	err      error
}

func (f *fakeRegistry) Resolve(event models.OutboxEvent) (*registry.ResolvedEvent, error) {
	if f.resolved == nil {
		return nil, f.err
	}
	resolved := *f.resolved
	resolved.Envelope.EventID = event.ID.String()
	return &resolved, f.err
}

type fakeDLQRepo struct {
	entries []models.OutboxDLQ
	err     error
}

func (f *fakeDLQRepo) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, entry)
	return nil
}
