package documents

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/asdwsxzc123/jiale-mrp/internal/testsupport"
	"github.com/asdwsxzc123/jiale-mrp/pkg/db/dbtest"
	"github.com/asdwsxzc123/jiale-mrp/pkg/db/models"
	"github.com/asdwsxzc123/jiale-mrp/pkg/enums"
	pkgerrors "github.com/asdwsxzc123/jiale-mrp/pkg/errors"
	"github.com/asdwsxzc123/jiale-mrp/pkg/pagination"
)

// insertInspection stands in for the inspection workflow.
type insertInspection struct{}

func (insertInspection) OpenPending(ctx context.Context, tx *gorm.DB, inspection *models.IncomingInspection) error {
	return tx.WithContext(ctx).Create(inspection).Error
}

type fixture struct {
	env      *testsupport.Env
	svc      Service
	customer models.Customer
	supplier models.Supplier
	item     models.StockItem
}

func newFixture(t *testing.T, extra ...func(*Effects)) *fixture {
	t.Helper()
	env := testsupport.NewEnv(t)
	effects := DefaultEffects(insertInspection{}, env.MasterData)
	for _, fn := range extra {
		fn(effects)
	}
	svc, err := NewService(ServiceParams{
		Repo:       NewRepository(env.DB),
		Tx:         env.Client,
		Sequence:   env.Sequence,
		Outbox:     env.Outbox,
		MasterData: env.MasterData,
		Effects:    effects,
		Metrics:    env.Metrics,
		Logger:     env.Logger,
	})
	require.NoError(t, err)
	return &fixture{
		env:      env,
		svc:      svc,
		customer: dbtest.SeedCustomer(t, env.DB),
		supplier: dbtest.SeedSupplier(t, env.DB),
		item:     dbtest.SeedItem(t, env.DB, "PP resin"),
	}
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, got.Equal(dec(want)), "want %s got %s", want, got)
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	require.Truef(t, pkgerrors.IsCode(err, code), "want %s got %v", code, err)
}

func (f *fixture) quotation(t *testing.T) *models.CommercialDocument {
	t.Helper()
	doc, err := f.svc.Create(context.Background(), Draft{
		Domain:         enums.DomainSales,
		Type:           enums.DocTypeQuotation,
		CounterpartyID: f.customer.ID,
		Items: []LineInput{{
			ItemID:    &f.item.ID,
			Qty:       dec("10"),
			UnitPrice: dec("5"),
			Discount:  decimal.Zero,
			TaxRate:   dec("6"),
		}},
	})
	require.NoError(t, err)
	return doc
}

func TestCreate_ComputesTotalsAndNumbers(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	doc := f.quotation(t)
	assert.Equal(t, "QT-00001", doc.DocNo)
	assert.Equal(t, enums.DocumentStatusDraft, doc.Status)
	assert.True(t, doc.IsTransferable)
	assert.Equal(t, enums.CurrencyMYR, doc.Currency)
	requireDecimal(t, "1", doc.ExchangeRate)
	requireDecimal(t, "50", doc.Subtotal)
	requireDecimal(t, "3", doc.TaxAmount)
	requireDecimal(t, "53", doc.Total)
	requireDecimal(t, "53", doc.Outstanding)
	require.Len(t, doc.Items, 1)
	require.NotNil(t, doc.Items[0].Description)
	assert.Equal(t, "PP resin", *doc.Items[0].Description)

	second := f.quotation(t)
	assert.Equal(t, "QT-00002", second.DocNo)

	stored, err := f.svc.Get(context.Background(), enums.DomainSales, doc.ID)
	require.NoError(t, err)
	requireDecimal(t, "53", stored.Total)
	require.Len(t, stored.Items, 1)
	assert.Equal(t, 1, stored.Items[0].LineNo)
}

func TestCreate_DomainsNumberIndependently(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	sales, err := f.svc.Create(ctx, Draft{
		Domain: enums.DomainSales, Type: enums.DocTypeInvoice, CounterpartyID: f.customer.ID,
		Items: []LineInput{{Qty: dec("1"), UnitPrice: dec("10")}},
	})
	require.NoError(t, err)
	purchase, err := f.svc.Create(ctx, Draft{
		Domain: enums.DomainPurchase, Type: enums.DocTypeInvoice, CounterpartyID: f.supplier.ID,
		Items: []LineInput{{Qty: dec("1"), UnitPrice: dec("10")}},
	})
	require.NoError(t, err)
	assert.Equal(t, "IV-00001", sales.DocNo)
	assert.Equal(t, "PI-00001", purchase.DocNo)

	_, err = f.svc.Get(ctx, enums.DomainPurchase, sales.ID)
	requireCode(t, err, pkgerrors.CodeNotFound)

	// A directly created invoice does not move the counterparty balance.
	var customer models.Customer
	require.NoError(t, f.env.DB.First(&customer, "id = ?", f.customer.ID).Error)
	requireDecimal(t, "0", customer.OutstandingAmount)
}

func TestCreate_CollectsEveryLineProblem(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), Draft{
		Domain:         enums.DomainSales,
		Type:           enums.DocTypeGoodsReceived,
		CounterpartyID: f.customer.ID,
		Items: []LineInput{
			{Qty: dec("0"), UnitPrice: dec("1")},
			{Qty: dec("1"), UnitPrice: dec("-1"), Discount: dec("-2"), TaxRate: dec("101")},
		},
	})
	requireCode(t, err, pkgerrors.CodeValidation)
	details, ok := pkgerrors.As(err).Details().([]string)
	require.True(t, ok)
	assert.Len(t, details, 5)

	_, err = f.svc.Create(context.Background(), Draft{
		Domain: enums.DomainSales, Type: enums.DocTypeQuotation, CounterpartyID: f.customer.ID,
	})
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestCreate_UnknownReferences(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	missing := uuid.New()

	_, err := f.svc.Create(context.Background(), Draft{
		Domain: enums.DomainSales, Type: enums.DocTypeQuotation, CounterpartyID: f.supplier.ID,
		Items: []LineInput{{Qty: dec("1"), UnitPrice: dec("1")}},
	})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = f.svc.Create(context.Background(), Draft{
		Domain: enums.DomainSales, Type: enums.DocTypeQuotation, CounterpartyID: f.customer.ID,
		Items: []LineInput{{ItemID: &missing, Qty: dec("1"), UnitPrice: dec("1")}},
	})
	requireCode(t, err, pkgerrors.CodeValidation)

	var count int64
	require.NoError(t, f.env.DB.Model(&models.CommercialDocument{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestUpdate_OnlyWhileDraft(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	doc := f.quotation(t)

	terms := "30 days"
	updated, err := f.svc.Update(ctx, UpdateInput{
		Domain:     enums.DomainSales,
		DocumentID: doc.ID,
		Patch: Patch{
			Terms: &terms,
			Items: []LineInput{
				{ItemID: &f.item.ID, Qty: dec("2"), UnitPrice: dec("100"), Discount: dec("20"), TaxRate: dec("10")},
				{Qty: dec("1"), UnitPrice: dec("7.5")},
			},
		},
	})
	require.NoError(t, err)
	require.Len(t, updated.Items, 2)
	requireDecimal(t, "187.5", updated.Subtotal)
	requireDecimal(t, "18", updated.TaxAmount)
	requireDecimal(t, "205.5", updated.Total)
	requireDecimal(t, "205.5", updated.Outstanding)
	require.NotNil(t, updated.Terms)
	assert.Equal(t, terms, *updated.Terms)
	assert.Equal(t, doc.DocNo, updated.DocNo)

	var lines int64
	require.NoError(t, f.env.DB.Model(&models.DocumentLineItem{}).Where("document_id = ?", doc.ID).Count(&lines).Error)
	assert.EqualValues(t, 2, lines)

	agent := "Lim"
	scalarOnly, err := f.svc.Update(ctx, UpdateInput{Domain: enums.DomainSales, DocumentID: doc.ID, Patch: Patch{Agent: &agent}})
	require.NoError(t, err)
	require.Len(t, scalarOnly.Items, 2)
	requireDecimal(t, "205.5", scalarOnly.Total)

	_, err = f.svc.Approve(ctx, TransitionInput{Domain: enums.DomainSales, DocumentID: doc.ID})
	require.NoError(t, err)
	_, err = f.svc.Update(ctx, UpdateInput{Domain: enums.DomainSales, DocumentID: doc.ID, Patch: Patch{Agent: &agent}})
	requireCode(t, err, pkgerrors.CodeStateConflict)
}

func TestApproveAndCancel_AreForwardOnly(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	doc := f.quotation(t)
	ref := TransitionInput{Domain: enums.DomainSales, DocumentID: doc.ID}

	approved, err := f.svc.Approve(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, enums.DocumentStatusApproved, approved.Status)

	_, err = f.svc.Approve(ctx, ref)
	requireCode(t, err, pkgerrors.CodeStateConflict)

	cancelled, err := f.svc.Cancel(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, enums.DocumentStatusCancelled, cancelled.Status)
	assert.False(t, cancelled.IsTransferable)

	_, err = f.svc.Cancel(ctx, ref)
	requireCode(t, err, pkgerrors.CodeStateConflict)

	_, err = f.svc.Transfer(ctx, TransferInput{Domain: enums.DomainSales, DocumentID: doc.ID, TargetType: enums.DocTypeSalesOrder})
	requireCode(t, err, pkgerrors.CodeStateConflict)

	assert.Equal(t, 1, f.env.Events(t, enums.EventDocumentApproved))
	assert.Equal(t, 1, f.env.Events(t, enums.EventDocumentCancelled))
}

func TestTransfer_QuotationToSalesOrder(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	quotation := f.quotation(t)
	requireDecimal(t, "53", quotation.Total)

	_, err := f.svc.Transfer(ctx, TransferInput{Domain: enums.DomainSales, DocumentID: quotation.ID, TargetType: enums.DocTypeSalesOrder})
	requireCode(t, err, pkgerrors.CodeStateConflict)

	_, err = f.svc.Approve(ctx, TransitionInput{Domain: enums.DomainSales, DocumentID: quotation.ID})
	require.NoError(t, err)

	result, err := f.svc.Transfer(ctx, TransferInput{Domain: enums.DomainSales, DocumentID: quotation.ID, TargetType: enums.DocTypeSalesOrder})
	require.NoError(t, err)

	target := result.Target
	assert.Equal(t, "SO-00001", target.DocNo)
	assert.Equal(t, enums.DocTypeSalesOrder, target.Type)
	assert.Equal(t, enums.DocumentStatusDraft, target.Status)
	require.NotNil(t, target.RefDocID)
	assert.Equal(t, quotation.ID, *target.RefDocID)
	assert.Equal(t, quotation.CounterpartyID, target.CounterpartyID)
	requireDecimal(t, "53", target.Total)
	require.Len(t, target.Items, 1)
	requireDecimal(t, "10", target.Items[0].Qty)
	assert.Empty(t, result.InspectionIDs)

	source, err := f.svc.Get(ctx, enums.DomainSales, quotation.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.DocumentStatusTransferred, source.Status)
	assert.False(t, source.IsTransferable)

	_, err = f.svc.Transfer(ctx, TransferInput{Domain: enums.DomainSales, DocumentID: quotation.ID, TargetType: enums.DocTypeSalesOrder})
	requireCode(t, err, pkgerrors.CodeStateConflict)
	assert.Equal(t, 1, f.env.Events(t, enums.EventDocumentTransferred))
}

func TestTransfer_PurchaseOrderToGoodsReceivedOpensInspections(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	kg := "KG"
	order, err := f.svc.Create(ctx, Draft{
		Domain:         enums.DomainPurchase,
		Type:           enums.DocTypeOrder,
		CounterpartyID: f.supplier.ID,
		Items: []LineInput{
			{
				ItemID:        &f.item.ID,
				Qty:           dec("100"),
				UnitPrice:     dec("4.2"),
				PlannedWeight: decimal.NewNullDecimal(dec("100")),
				ActualWeight:  decimal.NewNullDecimal(dec("98.5")),
				WeightUnit:    &kg,
			},
			{Qty: dec("1"), UnitPrice: dec("35")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "PO-00001", order.DocNo)

	_, err = f.svc.Approve(ctx, TransitionInput{Domain: enums.DomainPurchase, DocumentID: order.ID})
	require.NoError(t, err)
	result, err := f.svc.Transfer(ctx, TransferInput{Domain: enums.DomainPurchase, DocumentID: order.ID, TargetType: enums.DocTypeGoodsReceived})
	require.NoError(t, err)
	assert.Equal(t, "GR-00001", result.Target.DocNo)
	require.Len(t, result.InspectionIDs, 1)

	var inspections []models.IncomingInspection
	require.NoError(t, f.env.DB.Where("purchase_doc_id = ?", result.Target.ID).Find(&inspections).Error)
	require.Len(t, inspections, 1)
	got := inspections[0]
	assert.Equal(t, result.InspectionIDs[0], got.ID)
	assert.Equal(t, enums.InspectionPending, got.Status)
	assert.Equal(t, f.item.ID, got.ItemID)
	assert.Equal(t, f.supplier.ID, got.SupplierID)
	require.NotNil(t, got.PurchaseDocItemID)
	assert.Equal(t, result.Target.Items[0].ID, *got.PurchaseDocItemID)
	require.True(t, got.WeightDifference.Valid)
	requireDecimal(t, "-1.5", got.WeightDifference.Decimal)

	require.True(t, result.Target.Items[0].PlannedWeight.Valid)
	requireDecimal(t, "100", result.Target.Items[0].PlannedWeight.Decimal)
}

func TestTransfer_InvoiceRaisesOutstanding(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.svc.Create(ctx, Draft{
		Domain: enums.DomainSales, Type: enums.DocTypeSalesOrder, CounterpartyID: f.customer.ID,
		Items: []LineInput{{ItemID: &f.item.ID, Qty: dec("4"), UnitPrice: dec("25"), TaxRate: dec("6")}},
	})
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, TransitionInput{Domain: enums.DomainSales, DocumentID: order.ID})
	require.NoError(t, err)

	result, err := f.svc.Transfer(ctx, TransferInput{Domain: enums.DomainSales, DocumentID: order.ID, TargetType: enums.DocTypeInvoice})
	require.NoError(t, err)
	requireDecimal(t, "106", result.Target.Total)

	var customer models.Customer
	require.NoError(t, f.env.DB.First(&customer, "id = ?", f.customer.ID).Error)
	requireDecimal(t, "106", customer.OutstandingAmount)
}

func TestTransfer_FailingEffectRollsBackEverything(t *testing.T) {
	t.Parallel()
	boom := errors.New("effect failed")
	f := newFixture(t, func(e *Effects) {
		e.Register(enums.DomainSales, enums.DocTypeDeliveryOrder, TransferEffectFunc(func(context.Context, *Transfer) error {
			return boom
		}))
	})
	ctx := context.Background()

	order, err := f.svc.Create(ctx, Draft{
		Domain: enums.DomainSales, Type: enums.DocTypeSalesOrder, CounterpartyID: f.customer.ID,
		Items: []LineInput{{Qty: dec("1"), UnitPrice: dec("9")}},
	})
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, TransitionInput{Domain: enums.DomainSales, DocumentID: order.ID})
	require.NoError(t, err)

	_, err = f.svc.Transfer(ctx, TransferInput{Domain: enums.DomainSales, DocumentID: order.ID, TargetType: enums.DocTypeDeliveryOrder})
	require.ErrorIs(t, err, boom)

	source, err := f.svc.Get(ctx, enums.DomainSales, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.DocumentStatusApproved, source.Status)
	assert.True(t, source.IsTransferable)

	var deliveries int64
	require.NoError(t, f.env.DB.Model(&models.CommercialDocument{}).Where("type = ?", enums.DocTypeDeliveryOrder).Count(&deliveries).Error)
	assert.Zero(t, deliveries)
	assert.Zero(t, f.env.Events(t, enums.EventDocumentTransferred))
}

func TestTransfer_RejectsTargetOfOtherDomain(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.svc.Transfer(context.Background(), TransferInput{
		Domain: enums.DomainSales, DocumentID: uuid.New(), TargetType: enums.DocTypeGoodsReceived,
	})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = f.svc.Transfer(context.Background(), TransferInput{
		Domain: enums.DomainSales, DocumentID: uuid.New(), TargetType: enums.DocTypeSalesOrder,
	})
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestRemove_DraftOnlyAndNumbersAreNotReused(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	first := f.quotation(t)
	require.NoError(t, f.svc.Remove(ctx, enums.DomainSales, first.ID))
	_, err := f.svc.Get(ctx, enums.DomainSales, first.ID)
	requireCode(t, err, pkgerrors.CodeNotFound)

	var lines int64
	require.NoError(t, f.env.DB.Model(&models.DocumentLineItem{}).Where("document_id = ?", first.ID).Count(&lines).Error)
	assert.Zero(t, lines)

	second := f.quotation(t)
	assert.Equal(t, "QT-00002", second.DocNo)

	_, err = f.svc.Approve(ctx, TransitionInput{Domain: enums.DomainSales, DocumentID: second.ID})
	require.NoError(t, err)
	err = f.svc.Remove(ctx, enums.DomainSales, second.ID)
	requireCode(t, err, pkgerrors.CodeStateConflict)
}

func TestList_FiltersAndPaginates(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		f.quotation(t)
	}
	approved := f.quotation(t)
	_, err := f.svc.Approve(ctx, TransitionInput{Domain: enums.DomainSales, DocumentID: approved.ID})
	require.NoError(t, err)

	page, err := f.svc.List(ctx, ListParams{Domain: enums.DomainSales, Params: pagination.Params{Page: 1, PageSize: 2}})
	require.NoError(t, err)
	assert.EqualValues(t, 4, page.Total)
	assert.Len(t, page.Data, 2)

	status := enums.DocumentStatusApproved
	filtered, err := f.svc.List(ctx, ListParams{Domain: enums.DomainSales, Status: &status})
	require.NoError(t, err)
	require.EqualValues(t, 1, filtered.Total)
	assert.Equal(t, approved.ID, filtered.Data[0].ID)
	assert.Len(t, filtered.Data[0].Items, 1)

	purchase, err := f.svc.List(ctx, ListParams{Domain: enums.DomainPurchase})
	require.NoError(t, err)
	assert.Zero(t, purchase.Total)
	assert.NotNil(t, purchase.Data)

	bad := enums.DocTypeGoodsReceived
	_, err = f.svc.List(ctx, ListParams{Domain: enums.DomainSales, Type: &bad})
	requireCode(t, err, pkgerrors.CodeValidation)
}
