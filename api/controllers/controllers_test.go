package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/asdwsxzc123/jiale-mrp/api/middleware"
	"github.com/asdwsxzc123/jiale-mrp/internal/documents"
	"github.com/asdwsxzc123/jiale-mrp/internal/inventory"
	"github.com/asdwsxzc123/jiale-mrp/internal/payments"
	"github.com/asdwsxzc123/jiale-mrp/internal/production"
	"github.com/asdwsxzc123/jiale-mrp/pkg/db/models"
	"github.com/asdwsxzc123/jiale-mrp/pkg/enums"
	pkgerrors "github.com/asdwsxzc123/jiale-mrp/pkg/errors"
	"github.com/asdwsxzc123/jiale-mrp/pkg/logger"
	"github.com/asdwsxzc123/jiale-mrp/pkg/pagination"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func withRouteParam(req *http.Request, key, value string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func decodeError(t *testing.T, body io.Reader) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(body).Decode(&envelope); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return envelope.Error.Code
}

type stubDocumentsService struct {
	documents.Service
	draft    documents.Draft
	transfer documents.TransferInput
	listed   documents.ListParams
}

func (s *stubDocumentsService) Create(ctx context.Context, draft documents.Draft) (*models.CommercialDocument, error) {
	s.draft = draft
	return &models.CommercialDocument{ID: uuid.New(), Domain: draft.Domain, Type: draft.Type, DocNo: "QT-00001"}, nil
}

func (s *stubDocumentsService) Transfer(ctx context.Context, input documents.TransferInput) (*documents.TransferResult, error) {
	s.transfer = input
	return &documents.TransferResult{}, nil
}

func (s *stubDocumentsService) List(ctx context.Context, params documents.ListParams) (pagination.Page[models.CommercialDocument], error) {
	s.listed = params
	return pagination.NewPage[models.CommercialDocument](nil, 0, params.Params), nil
}

func TestDocumentCreateUsesRouteDomainAndActor(t *testing.T) {
	svc := &stubDocumentsService{}
	userID := uuid.New()
	customerID := uuid.New()
	body := `{"type":"QUOTATION","counterpartyId":"` + customerID.String() + `","items":[{"description":"PP resin","qty":"10","unitPrice":"2.5","taxRate":"6"}]}`

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sales/documents", strings.NewReader(body))
	req = req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
	resp := httptest.NewRecorder()
	DocumentCreate(enums.DomainSales, svc, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.draft.Domain != enums.DomainSales || svc.draft.Type != enums.DocTypeQuotation {
		t.Fatalf("unexpected draft domain/type %s/%s", svc.draft.Domain, svc.draft.Type)
	}
	if svc.draft.CounterpartyID != customerID {
		t.Fatalf("unexpected counterparty %s", svc.draft.CounterpartyID)
	}
	if svc.draft.CreatedBy == nil || *svc.draft.CreatedBy != userID {
		t.Fatalf("expected createdBy %s got %v", userID, svc.draft.CreatedBy)
	}
	if len(svc.draft.Items) != 1 || !svc.draft.Items[0].Qty.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("unexpected lines %+v", svc.draft.Items)
	}
}

func TestDocumentCreateRejectsUnknownFieldsAndMissingItems(t *testing.T) {
	svc := &stubDocumentsService{}
	cases := map[string]string{
		"unknown field": `{"type":"QUOTATION","counterpartyId":"` + uuid.NewString() + `","items":[{"qty":"1"}],"bogus":1}`,
		"no items":      `{"type":"QUOTATION","counterpartyId":"` + uuid.NewString() + `","items":[]}`,
		"no type":       `{"counterpartyId":"` + uuid.NewString() + `","items":[{"qty":"1"}]}`,
	}
	for name, body := range cases {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sales/documents", strings.NewReader(body))
		resp := httptest.NewRecorder()
		DocumentCreate(enums.DomainSales, svc, testLogger())(resp, req)
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400 got %d", name, resp.Code)
		}
		if code := decodeError(t, resp.Body); code != string(pkgerrors.CodeValidation) {
			t.Fatalf("%s: unexpected code %s", name, code)
		}
	}
}

func TestDocumentTransferParsesPathAndTarget(t *testing.T) {
	svc := &stubDocumentsService{}
	docID := uuid.New()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/purchase/documents/"+docID.String()+"/transfer", strings.NewReader(`{"targetType":"GOODS_RECEIVED"}`))
	req = withRouteParam(req, "id", docID.String())
	resp := httptest.NewRecorder()
	DocumentTransfer(enums.DomainPurchase, svc, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}
	if svc.transfer.DocumentID != docID || svc.transfer.TargetType != enums.DocTypeGoodsReceived || svc.transfer.Domain != enums.DomainPurchase {
		t.Fatalf("unexpected transfer input %+v", svc.transfer)
	}

	bad := withRouteParam(httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"targetType":"INVOICE"}`)), "id", "not-a-uuid")
	resp = httptest.NewRecorder()
	DocumentTransfer(enums.DomainPurchase, svc, testLogger())(resp, bad)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid id got %d", resp.Code)
	}
}

func TestDocumentListFilters(t *testing.T) {
	svc := &stubDocumentsService{}
	customerID := uuid.New()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sales/documents?type=INVOICE&status=APPROVED&counterpartyId="+customerID.String()+"&page=2&pageSize=5", nil)
	resp := httptest.NewRecorder()
	DocumentList(enums.DomainSales, svc, testLogger())(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.listed.Type == nil || *svc.listed.Type != enums.DocTypeInvoice {
		t.Fatalf("expected type filter, got %v", svc.listed.Type)
	}
	if svc.listed.Status == nil || *svc.listed.Status != enums.DocumentStatusApproved {
		t.Fatalf("expected status filter, got %v", svc.listed.Status)
	}
	if svc.listed.CounterpartyID == nil || *svc.listed.CounterpartyID != customerID {
		t.Fatalf("expected counterparty filter")
	}
	if svc.listed.Page != 2 || svc.listed.PageSize != 5 {
		t.Fatalf("unexpected paging %+v", svc.listed.Params)
	}

	// A purchase type is not a sales type.
	wrong := httptest.NewRequest(http.MethodGet, "/api/v1/sales/documents?type=GOODS_RECEIVED", nil)
	resp = httptest.NewRecorder()
	DocumentList(enums.DomainSales, svc, testLogger())(resp, wrong)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

type stubInventoryService struct {
	inventory.Service
	balances inventory.ListBalancesParams
}

func (s *stubInventoryService) ListBalances(ctx context.Context, params inventory.ListBalancesParams) (pagination.Page[models.StockBalance], error) {
	s.balances = params
	return pagination.NewPage[models.StockBalance](nil, 0, params.Params), nil
}

func TestStockBalanceListValidatesFilters(t *testing.T) {
	svc := &stubInventoryService{}
	itemID := uuid.New()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stock/balances?itemId="+itemID.String(), nil)
	resp := httptest.NewRecorder()
	StockBalanceList(svc, testLogger())(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.balances.ItemID == nil || *svc.balances.ItemID != itemID || svc.balances.LocationID != nil {
		t.Fatalf("unexpected filters %+v", svc.balances)
	}

	bad := httptest.NewRequest(http.MethodGet, "/api/v1/stock/balances?locationId=nope", nil)
	resp = httptest.NewRecorder()
	StockBalanceList(svc, testLogger())(resp, bad)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

type stubProductionService struct {
	production.Service
	complete production.CompleteInput
}

func (s *stubProductionService) Complete(ctx context.Context, input production.CompleteInput) (*production.CompleteResult, error) {
	s.complete = input
	return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cannot complete job order JO-00001 in status PLANNED")
}

func TestJobOrderCompleteMapsUsedMaterialsAndErrors(t *testing.T) {
	svc := &stubProductionService{}
	orderID := uuid.New()
	batchID := uuid.New()
	body := `{"weight":"550","weightUnit":"KG","usedMaterials":[{"batchId":"` + batchID.String() + `","usedWeight":"40"}]}`

	req := httptest.NewRequest(http.MethodPost, "/api/v1/production/job-orders/"+orderID.String()+"/complete", strings.NewReader(body))
	req = withRouteParam(req, "id", orderID.String())
	resp := httptest.NewRecorder()
	JobOrderComplete(svc, testLogger())(resp, req)

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
	if svc.complete.JobOrderID != orderID || !svc.complete.Weight.Equal(decimal.NewFromInt(550)) {
		t.Fatalf("unexpected input %+v", svc.complete)
	}
	if len(svc.complete.UsedMaterials) != 1 || svc.complete.UsedMaterials[0].BatchID != batchID {
		t.Fatalf("unexpected used materials %+v", svc.complete.UsedMaterials)
	}
}

type stubPaymentsService struct {
	payments.Service
	created payments.CreateInput
	removed uuid.UUID
}

func (s *stubPaymentsService) Create(ctx context.Context, input payments.CreateInput) (*models.Payment, error) {
	s.created = input
	return &models.Payment{ID: uuid.New(), Domain: input.Domain, DocNo: "OR-00001", Amount: input.Amount}, nil
}

func (s *stubPaymentsService) Remove(ctx context.Context, domain enums.DocumentDomain, id uuid.UUID) error {
	s.removed = id
	return nil
}

func TestPaymentCreateAndDelete(t *testing.T) {
	svc := &stubPaymentsService{}
	customerID := uuid.New()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sales/payments", strings.NewReader(`{"counterpartyId":"`+customerID.String()+`","amount":120,"currency":"MYR"}`))
	resp := httptest.NewRecorder()
	PaymentCreate(enums.DomainSales, svc, testLogger())(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.created.Domain != enums.DomainSales || !svc.created.Amount.Equal(decimal.NewFromInt(120)) || svc.created.Currency != enums.CurrencyMYR {
		t.Fatalf("unexpected create input %+v", svc.created)
	}

	paymentID := uuid.New()
	del := withRouteParam(httptest.NewRequest(http.MethodDelete, "/api/v1/sales/payments/"+paymentID.String(), nil), "id", paymentID.String())
	resp = httptest.NewRecorder()
	PaymentDelete(enums.DomainSales, svc, testLogger())(resp, del)
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d", resp.Code)
	}
	if svc.removed != paymentID {
		t.Fatalf("unexpected removed id %s", svc.removed)
	}
}
