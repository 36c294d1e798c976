package inventory

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asdwsxzc123/jiale-mrp/internal/testsupport"
	"github.com/asdwsxzc123/jiale-mrp/pkg/config"
	"github.com/asdwsxzc123/jiale-mrp/pkg/db/dbtest"
	"github.com/asdwsxzc123/jiale-mrp/pkg/db/models"
	"github.com/asdwsxzc123/jiale-mrp/pkg/enums"
	pkgerrors "github.com/asdwsxzc123/jiale-mrp/pkg/errors"
	"github.com/asdwsxzc123/jiale-mrp/pkg/pagination"
)

type fixture struct {
	env  *testsupport.Env
	svc  Service
	item models.StockItem
	l1   models.StockLocation
	l2   models.StockLocation
}

func newFixture(t *testing.T, policy config.NegativePolicy, opts ...testsupport.Option) *fixture {
	t.Helper()
	env := testsupport.NewEnv(t, opts...)
	svc, err := NewService(ServiceParams{
		Repo:       NewRepository(env.DB),
		Tx:         env.Client,
		Sequence:   env.Sequence,
		Outbox:     env.Outbox,
		MasterData: env.MasterData,
		Policy:     policy,
		Metrics:    env.Metrics,
		Logger:     env.Logger,
	})
	require.NoError(t, err)
	return &fixture{
		env:  env,
		svc:  svc,
		item: dbtest.SeedItem(t, env.DB, "PP resin"),
		l1:   dbtest.SeedLocation(t, env.DB),
		l2:   dbtest.SeedLocation(t, env.DB),
	}
}

func (f *fixture) apply(t *testing.T, txType enums.StockTransactionType, from, to *uuid.UUID, qty int64) (*models.StockTransaction, error) {
	t.Helper()
	return f.svc.ApplyTransaction(context.Background(), ApplyInput{
		Type:           txType,
		LocationFromID: from,
		LocationToID:   to,
		Items:          []LineInput{{ItemID: f.item.ID, Qty: decimal.NewFromInt(qty)}},
	})
}

func (f *fixture) balance(t *testing.T, location uuid.UUID) decimal.Decimal {
	t.Helper()
	var row models.StockBalance
	err := f.env.DB.Where("item_id = ? AND location_id = ?", f.item.ID, location).First(&row).Error
	require.NoError(t, err)
	return row.Quantity
}

func TestApplyTransaction_Conservation(t *testing.T) {
	t.Parallel()
	f := newFixture(t, config.NegativePermissive)

	received, err := f.apply(t, enums.StockReceived, nil, &f.l1.ID, 10)
	require.NoError(t, err)
	_, err = f.apply(t, enums.StockIssue, &f.l1.ID, nil, 3)
	require.NoError(t, err)
	_, err = f.apply(t, enums.StockTransfer, &f.l1.ID, &f.l2.ID, 4)
	require.NoError(t, err)

	assert.True(t, f.balance(t, f.l1.ID).Equal(decimal.NewFromInt(3)))
	assert.True(t, f.balance(t, f.l2.ID).Equal(decimal.NewFromInt(4)))

	assert.Equal(t, "ST-00001", received.DocNo)
	require.Len(t, received.Items, 1)
	assert.Equal(t, 3, f.env.Events(t, enums.EventStockTransactionApplied))

	var balances int64
	require.NoError(t, f.env.DB.Model(&models.StockBalance{}).Count(&balances).Error)
	assert.EqualValues(t, 2, balances, "one row per (item, location)")
}

func TestApplyTransaction_AdjustmentMayBeNegative(t *testing.T) {
	t.Parallel()
	f := newFixture(t, config.NegativePermissive)

	_, err := f.apply(t, enums.StockAdjustment, nil, &f.l1.ID, 5)
	require.NoError(t, err)
	_, err = f.apply(t, enums.StockAdjustment, nil, &f.l1.ID, -2)
	require.NoError(t, err)

	assert.True(t, f.balance(t, f.l1.ID).Equal(decimal.NewFromInt(3)))
}

func TestApplyTransaction_PermissiveAllowsNegativeBalance(t *testing.T) {
	t.Parallel()
	f := newFixture(t, config.NegativePermissive)

	_, err := f.apply(t, enums.StockIssue, &f.l1.ID, nil, 7)
	require.NoError(t, err)
	assert.True(t, f.balance(t, f.l1.ID).Equal(decimal.NewFromInt(-7)))
}

func TestApplyTransaction_StrictRefusesNegativeBalance(t *testing.T) {
	t.Parallel()
	f := newFixture(t, config.NegativeStrict)

	_, err := f.apply(t, enums.StockReceived, nil, &f.l1.ID, 2)
	require.NoError(t, err)

	_, err = f.apply(t, enums.StockTransfer, &f.l1.ID, &f.l2.ID, 5)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	// The whole transfer rolled back, including its header and the sequence number.
	assert.True(t, f.balance(t, f.l1.ID).Equal(decimal.NewFromInt(2)))
	var count int64
	require.NoError(t, f.env.DB.Model(&models.StockTransaction{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	next, err := f.apply(t, enums.StockIssue, &f.l1.ID, nil, 2)
	require.NoError(t, err)
	assert.Equal(t, "ST-00002", next.DocNo)
}

func TestApplyTransaction_LocationRules(t *testing.T) {
	t.Parallel()
	f := newFixture(t, config.NegativePermissive)

	cases := []struct {
		name string
		typ  enums.StockTransactionType
		from *uuid.UUID
		to   *uuid.UUID
	}{
		{"received without target", enums.StockReceived, &f.l1.ID, nil},
		{"issue without source", enums.StockIssue, nil, &f.l1.ID},
		{"transfer without target", enums.StockTransfer, &f.l1.ID, nil},
		{"transfer to same location", enums.StockTransfer, &f.l1.ID, &f.l1.ID},
		{"adjustment without target", enums.StockAdjustment, nil, nil},
	}
	for _, tc := range cases {
		_, err := f.apply(t, tc.typ, tc.from, tc.to, 1)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), tc.name)
	}
}

func TestApplyTransaction_CollectsLineProblems(t *testing.T) {
	t.Parallel()
	f := newFixture(t, config.NegativePermissive)

	_, err := f.svc.ApplyTransaction(context.Background(), ApplyInput{
		Type:         enums.StockReceived,
		LocationToID: &f.l1.ID,
		Items: []LineInput{
			{ItemID: uuid.Nil, Qty: decimal.NewFromInt(1)},
			{ItemID: f.item.ID, Qty: decimal.Zero},
		},
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details, ok := typed.Details().([]string)
	require.True(t, ok)
	assert.Len(t, details, 2)
}

func TestApplyTransaction_UnknownReferences(t *testing.T) {
	t.Parallel()
	f := newFixture(t, config.NegativePermissive)
	missing := uuid.New()

	_, err := f.svc.ApplyTransaction(context.Background(), ApplyInput{
		Type:         enums.StockReceived,
		LocationToID: &missing,
		Items:        []LineInput{{ItemID: uuid.New(), Qty: decimal.NewFromInt(1)}},
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	assert.Len(t, typed.Details(), 2)
}

func TestApplyTransaction_AssemblyIsLedgerOnly(t *testing.T) {
	t.Parallel()
	f := newFixture(t, config.NegativePermissive)

	txn, err := f.apply(t, enums.StockAssembly, nil, &f.l1.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, enums.StockAssembly, txn.Type)

	var balances int64
	require.NoError(t, f.env.DB.Model(&models.StockBalance{}).Count(&balances).Error)
	assert.Zero(t, balances)
}

func TestListAndGet(t *testing.T) {
	t.Parallel()
	f := newFixture(t, config.NegativePermissive)
	ctx := context.Background()

	first, err := f.apply(t, enums.StockReceived, nil, &f.l1.ID, 10)
	require.NoError(t, err)
	_, err = f.apply(t, enums.StockTransfer, &f.l1.ID, &f.l2.ID, 4)
	require.NoError(t, err)

	got, err := f.svc.GetTransaction(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.DocNo, got.DocNo)
	require.Len(t, got.Items, 1)

	_, err = f.svc.GetTransaction(ctx, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	received := enums.StockReceived
	page, err := f.svc.ListTransactions(ctx, ListTransactionsParams{Type: &received})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)
	assert.Equal(t, pagination.DefaultPageSize, page.PageSize)

	balances, err := f.svc.ListBalances(ctx, ListBalancesParams{LocationID: &f.l2.ID})
	require.NoError(t, err)
	require.Len(t, balances.Data, 1)
	assert.True(t, balances.Data[0].Quantity.Equal(decimal.NewFromInt(4)))
}

func TestApplyTransaction_ConcurrentDeltasOnOneBalance(t *testing.T) {
	t.Parallel()
	f := newFixture(t, config.NegativePermissive, testsupport.WithConcurrentRetries())

	const writers = 10
	var wg sync.WaitGroup
	errCh := make(chan error, writers)
	for i := 1; i <= writers; i++ {
		qty := int64(i)
		txType := enums.StockReceived
		from, to := (*uuid.UUID)(nil), &f.l1.ID
		if i%3 == 0 {
			txType = enums.StockIssue
			from, to = &f.l1.ID, nil
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.ApplyTransaction(context.Background(), ApplyInput{
				Type:           txType,
				LocationFromID: from,
				LocationToID:   to,
				Items:          []LineInput{{ItemID: f.item.ID, Qty: decimal.NewFromInt(qty)}},
			})
			if err != nil {
				errCh <- err
			}
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Errorf("concurrent apply failed: %v", err)
	}

	// receipts 1+2+4+5+7+8+10 = 37, issues 3+6+9 = 18
	assert.True(t, decimal.NewFromInt(19).Equal(f.balance(t, f.l1.ID)), "balance %s", f.balance(t, f.l1.ID))
	assert.Equal(t, writers, f.env.Events(t, enums.EventStockTransactionApplied))

	var docNos []string
	require.NoError(t, f.env.DB.Model(&models.StockTransaction{}).Distinct("doc_no").Pluck("doc_no", &docNos).Error)
	assert.Len(t, docNos, writers)
}
