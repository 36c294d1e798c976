// Package testsupport wires the shared engine collaborators over a throwaway
// SQLite database for service tests.
package testsupport

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/asdwsxzc123/jiale-mrp/internal/masterdata"
	"github.com/asdwsxzc123/jiale-mrp/internal/sequence"
	"github.com/asdwsxzc123/jiale-mrp/internal/traceability"
	"github.com/asdwsxzc123/jiale-mrp/pkg/db"
	"github.com/asdwsxzc123/jiale-mrp/pkg/db/dbtest"
	"github.com/asdwsxzc123/jiale-mrp/pkg/enums"
	"github.com/asdwsxzc123/jiale-mrp/pkg/logger"
	"github.com/asdwsxzc123/jiale-mrp/pkg/metrics"
	"github.com/asdwsxzc123/jiale-mrp/pkg/outbox"
)

var (
	discardOnce sync.Once
	discard     *logger.Logger
)

// Logger returns a process-wide logger that drops every line.
func Logger() *logger.Logger {
	discardOnce.Do(func() {
		discard = logger.New(logger.Options{
			ServiceName: "test",
			Level:       zerolog.Disabled,
			Output:      io.Discard,
		})
	})
	return discard
}

// Env bundles the collaborators most engine services depend on.
type Env struct {
	DB         *gorm.DB
	Client     *db.Client
	Sequence   sequence.Allocator
	Trace      traceability.Generator
	OutboxRepo *outbox.Repository
	Outbox     *outbox.Service
	MasterData masterdata.Service
	Metrics    *metrics.Engine
	Registry   *prometheus.Registry
	Logger     *logger.Logger
}

// Option customises an Env.
type Option func(*options)

type options struct {
	now        func() time.Time
	concurrent bool
}

// WithClock fixes the traceability generator's notion of now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithConcurrentRetries swaps in a retry policy that absorbs SQLite lock
// contention, for tests that drive one row from many goroutines.
func WithConcurrentRetries() Option {
	return func(o *options) { o.concurrent = true }
}

// NewEnv opens a fresh database and builds the shared collaborators on it.
func NewEnv(t testing.TB, opts ...Option) *Env {
	t.Helper()
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	client, conn := dbtest.Client(t)
	if o.concurrent {
		client, conn = dbtest.ConcurrentClient(t)
	}
	logg := Logger()

	alloc, err := sequence.NewService(sequence.NewRepository(conn), client)
	if err != nil {
		t.Fatalf("sequence service: %v", err)
	}

	var traceOpts []traceability.Option
	if o.now != nil {
		traceOpts = append(traceOpts, traceability.WithClock(o.now))
	}
	gen, err := traceability.NewGenerator(traceability.NewRepository(conn), time.UTC, traceOpts...)
	if err != nil {
		t.Fatalf("traceability generator: %v", err)
	}

	md, err := masterdata.NewService(masterdata.NewRepository(conn))
	if err != nil {
		t.Fatalf("master data service: %v", err)
	}

	outboxRepo := outbox.NewRepository(conn)
	reg := prometheus.NewRegistry()

	return &Env{
		DB:         conn,
		Client:     client,
		Sequence:   alloc,
		Trace:      gen,
		OutboxRepo: outboxRepo,
		Outbox:     outbox.NewService(outboxRepo, logg),
		MasterData: md,
		Metrics:    metrics.NewEngine(reg),
		Registry:   reg,
		Logger:     logg,
	}
}

// Events counts queued outbox rows of the given type.
func (e *Env) Events(t testing.TB, eventType enums.OutboxEventType) int {
	t.Helper()
	var count int64
	if err := e.DB.Table("outbox_events").Where("event_type = ?", eventType).Count(&count).Error; err != nil {
		t.Fatalf("count outbox events: %v", err)
	}
	return int(count)
}
