package inspection

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asdwsxzc123/jiale-mrp/internal/testsupport"
	"github.com/asdwsxzc123/jiale-mrp/pkg/db/dbtest"
	"github.com/asdwsxzc123/jiale-mrp/pkg/db/models"
	"github.com/asdwsxzc123/jiale-mrp/pkg/enums"
	pkgerrors "github.com/asdwsxzc123/jiale-mrp/pkg/errors"
)

type fixture struct {
	env      *testsupport.Env
	svc      Service
	supplier models.Supplier
	item     models.StockItem
	doc      models.CommercialDocument
	clock    *time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	current := time.Date(2026, 1, 5, 9, 30, 0, 0, time.UTC)
	now := func() time.Time { return current }
	env := testsupport.NewEnv(t, testsupport.WithClock(now))
	svc, err := NewService(ServiceParams{
		Repo:       NewRepository(env.DB),
		Tx:         env.Client,
		Codes:      env.Trace,
		Outbox:     env.Outbox,
		MasterData: env.MasterData,
		Metrics:    env.Metrics,
		Logger:     env.Logger,
		Now:        now,
	})
	require.NoError(t, err)

	supplier := dbtest.SeedSupplier(t, env.DB)
	doc := models.CommercialDocument{
		Domain:         enums.DomainPurchase,
		Type:           enums.DocTypeGoodsReceived,
		DocNo:          "GR-" + uuid.NewString()[:8],
		CounterpartyID: supplier.ID,
		Date:           current,
		Currency:       enums.CurrencyMYR,
		ExchangeRate:   decimal.NewFromInt(1),
		Status:         enums.DocumentStatusDraft,
		IsTransferable: true,
		Subtotal:       decimal.Zero,
		TaxAmount:      decimal.Zero,
		Total:          decimal.Zero,
		Outstanding:    decimal.Zero,
	}
	require.NoError(t, env.DB.Create(&doc).Error)

	return &fixture{
		env:      env,
		svc:      svc,
		supplier: supplier,
		item:     dbtest.SeedItem(t, env.DB, "HDPE pellets"),
		doc:      doc,
		clock:    &current,
	}
}

func (f *fixture) create(t *testing.T) *models.IncomingInspection {
	t.Helper()
	row, err := f.svc.Create(context.Background(), CreateInput{
		PurchaseDocID: f.doc.ID,
		ItemID:        f.item.ID,
		SupplierID:    f.supplier.ID,
	})
	require.NoError(t, err)
	return row
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	require.Truef(t, pkgerrors.IsCode(err, code), "want %s got %v", code, err)
}

func TestCreate(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	row := f.create(t)
	assert.Equal(t, enums.InspectionPending, row.Status)
	assert.NotEqual(t, uuid.Nil, row.ID)

	_, err := f.svc.Create(context.Background(), CreateInput{
		PurchaseDocID: uuid.New(),
		ItemID:        f.item.ID,
		SupplierID:    f.supplier.ID,
	})
	requireCode(t, err, pkgerrors.CodeValidation)

	bad := enums.HandlingMethod("BURN")
	_, err = f.svc.Create(context.Background(), CreateInput{HandlingMethod: &bad})
	requireCode(t, err, pkgerrors.CodeValidation)
	details, ok := pkgerrors.As(err).Details().([]string)
	require.True(t, ok)
	assert.Len(t, details, 4)
}

func TestUpdate_OnlyWhilePending(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	row := f.create(t)

	wrong := true
	desc := "blue instead of white"
	updated, err := f.svc.Update(ctx, UpdateInput{ID: row.ID, WrongItem: &wrong, WrongItemDescription: &desc})
	require.NoError(t, err)
	assert.True(t, updated.WrongItem)
	require.NotNil(t, updated.WrongItemDescription)
	assert.Equal(t, desc, *updated.WrongItemDescription)

	_, err = f.svc.Pass(ctx, PassInput{ID: row.ID, Weight: decimal.NewFromInt(10)})
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, UpdateInput{ID: row.ID, WrongItem: &wrong})
	requireCode(t, err, pkgerrors.CodeStateConflict)
}

func TestUpdate_ClearsWeightDifference(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	row := f.create(t)

	short := decimal.NullDecimal{Decimal: decimal.NewFromFloat(-1.5), Valid: true}
	updated, err := f.svc.Update(ctx, UpdateInput{ID: row.ID, WeightDifference: short})
	require.NoError(t, err)
	require.True(t, updated.WeightDifference.Valid)
	assert.True(t, updated.WeightDifference.Decimal.Equal(decimal.NewFromFloat(-1.5)))

	notes := "reweighed"
	updated, err = f.svc.Update(ctx, UpdateInput{ID: row.ID, HandlingNotes: &notes})
	require.NoError(t, err)
	assert.True(t, updated.WeightDifference.Valid, "omitted difference must be kept")

	updated, err = f.svc.Update(ctx, UpdateInput{ID: row.ID, ClearWeightDifference: true})
	require.NoError(t, err)
	assert.False(t, updated.WeightDifference.Valid)

	_, err = f.svc.Update(ctx, UpdateInput{ID: row.ID, WeightDifference: short, ClearWeightDifference: true})
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestPass_MintsOneBatch(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	row := f.create(t)

	result, err := f.svc.Pass(ctx, PassInput{ID: row.ID, Weight: decimal.NewFromInt(100)})
	require.NoError(t, err)
	assert.Equal(t, enums.InspectionPassed, result.Inspection.Status)

	batch := result.Batch
	assert.Equal(t, "RM-20260105-001", batch.TraceabilityCode)
	assert.True(t, batch.Weight.Equal(decimal.NewFromInt(100)))
	assert.True(t, batch.RemainingWeight.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, DefaultWeightUnit, batch.WeightUnit)
	assert.Equal(t, row.ID, batch.InspectionID)
	assert.Equal(t, f.supplier.ID, batch.SupplierID)
	assert.Equal(t, f.doc.ID, batch.PurchaseDocID)

	_, err = f.svc.Pass(ctx, PassInput{ID: row.ID, Weight: decimal.NewFromInt(100)})
	requireCode(t, err, pkgerrors.CodeStateConflict)
	_, err = f.svc.Reject(ctx, RejectInput{ID: row.ID})
	requireCode(t, err, pkgerrors.CodeStateConflict)

	var batches int64
	require.NoError(t, f.env.DB.Model(&models.RawMaterialBatch{}).Where("inspection_id = ?", row.ID).Count(&batches).Error)
	assert.EqualValues(t, 1, batches)
	assert.Equal(t, 1, f.env.Events(t, enums.EventInspectionPassed))

	stored, err := f.svc.Get(ctx, row.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.InspectionPassed, stored.Status)
}

func TestPass_CodesRestartEachDay(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	codes := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		if i == 2 {
			*f.clock = f.clock.Add(24 * time.Hour)
		}
		row := f.create(t)
		result, err := f.svc.Pass(ctx, PassInput{ID: row.ID, Weight: decimal.NewFromInt(5), WeightUnit: "LB"})
		require.NoError(t, err)
		assert.Equal(t, "LB", result.Batch.WeightUnit)
		codes = append(codes, result.Batch.TraceabilityCode)
	}
	assert.Equal(t, []string{"RM-20260105-001", "RM-20260105-002", "RM-20260106-001"}, codes)
}

func TestPass_Validation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	row := f.create(t)

	_, err := f.svc.Pass(ctx, PassInput{ID: row.ID, Weight: decimal.Zero})
	requireCode(t, err, pkgerrors.CodeValidation)

	missing := uuid.New()
	_, err = f.svc.Pass(ctx, PassInput{ID: row.ID, Weight: decimal.NewFromInt(1), WarehouseLocationID: &missing})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = f.svc.Pass(ctx, PassInput{ID: uuid.New(), Weight: decimal.NewFromInt(1)})
	requireCode(t, err, pkgerrors.CodeNotFound)

	stored, err := f.svc.Get(ctx, row.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.InspectionPending, stored.Status)
}

func TestReject(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	row := f.create(t)

	method := enums.HandlingReturn
	rejected, err := f.svc.Reject(ctx, RejectInput{ID: row.ID, HandlingMethod: &method})
	require.NoError(t, err)
	assert.Equal(t, enums.InspectionRejected, rejected.Status)
	require.NotNil(t, rejected.HandlingMethod)
	assert.Equal(t, method, *rejected.HandlingMethod)

	_, err = f.svc.Pass(ctx, PassInput{ID: row.ID, Weight: decimal.NewFromInt(1)})
	requireCode(t, err, pkgerrors.CodeStateConflict)

	var batches int64
	require.NoError(t, f.env.DB.Model(&models.RawMaterialBatch{}).Count(&batches).Error)
	assert.Zero(t, batches)
	assert.Equal(t, 1, f.env.Events(t, enums.EventInspectionRejected))
}

func TestList_FiltersByStatusAndSupplier(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	first := f.create(t)
	f.create(t)
	_, err := f.svc.Reject(ctx, RejectInput{ID: first.ID})
	require.NoError(t, err)

	pending := enums.InspectionPending
	page, err := f.svc.List(ctx, ListParams{Status: &pending})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)

	page, err = f.svc.List(ctx, ListParams{SupplierID: &f.supplier.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Total)

	other := uuid.New()
	page, err = f.svc.List(ctx, ListParams{SupplierID: &other})
	require.NoError(t, err)
	assert.Zero(t, page.Total)
}
