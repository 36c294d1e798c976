package trace

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/asdwsxzc123/jiale-mrp/internal/traceability"
	pkgerrors "github.com/asdwsxzc123/jiale-mrp/pkg/errors"
	"github.com/asdwsxzc123/jiale-mrp/pkg/logger"
	"github.com/asdwsxzc123/jiale-mrp/pkg/metrics"
)

// Service reconstructs the supply-to-production chain from a scanned code.
type Service interface {
	Scan(ctx context.Context, code string) (*Result, error)
}

type ServiceParams struct {
	Repo    Repository
	Metrics *metrics.Engine
	Logger  *logger.Logger
}

type service struct {
	repo    Repository
	metrics *metrics.Engine
	logg    *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("trace repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: params.Repo, metrics: params.Metrics, logg: params.Logger}, nil
}

func (s *service) Scan(ctx context.Context, code string) (*Result, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "code is required")
	}
	parsed, ok := traceability.ParseCode(code)
	if !ok {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "malformed traceability code %q", code)
	}

	started := time.Now()
	var (
		result *Result
		err    error
	)
	switch parsed.Prefix {
	case traceability.PrefixRawMaterial:
		result, err = s.rawMaterial(ctx, code)
	case traceability.PrefixFinishedProduct:
		result, err = s.finishedProduct(ctx, code)
	default:
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unsupported traceability prefix %q", parsed.Prefix)
	}
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveDuration("trace_scan", time.Since(started))

	logCtx := s.logg.WithFields(ctx, map[string]any{"traceability_code": code, "kind": result.Kind})
	s.logg.Debug(logCtx, "traceability code scanned")
	return result, nil
}

func (s *service) rawMaterial(ctx context.Context, code string) (*Result, error) {
	batch, err := s.repo.BatchByCode(ctx, code)
	if err != nil {
		return nil, lookupError(err, "raw material batch")
	}
	out := &RawMaterialTrace{Batch: *batch, UsedIn: []ProductUsage{}}

	if out.Item, err = s.repo.Item(ctx, batch.ItemID); err != nil {
		return nil, dependency(err, "stock item")
	}
	if out.Supplier, err = s.repo.Supplier(ctx, batch.SupplierID); err != nil {
		return nil, dependency(err, "supplier")
	}
	if out.PurchaseDocument, err = s.repo.Document(ctx, batch.PurchaseDocID); err != nil {
		return nil, dependency(err, "purchase document")
	}
	if out.Inspection, err = s.repo.Inspection(ctx, batch.InspectionID); err != nil {
		return nil, dependency(err, "inspection")
	}

	usages, err := s.repo.UsagesOfBatch(ctx, batch.ID)
	if err != nil {
		return nil, dependency(err, "batch usages")
	}
	productIDs := make([]uuid.UUID, 0, len(usages))
	for _, u := range usages {
		productIDs = append(productIDs, u.FinishedProductID)
	}
	products, err := s.repo.Products(ctx, productIDs)
	if err != nil {
		return nil, dependency(err, "finished products")
	}
	orderIDs := make([]uuid.UUID, 0, len(products))
	for _, p := range products {
		orderIDs = append(orderIDs, p.JobOrderID)
	}
	docNos, err := s.repo.JobOrderNumbers(ctx, orderIDs)
	if err != nil {
		return nil, dependency(err, "job orders")
	}
	for _, u := range usages {
		product, ok := products[u.FinishedProductID]
		if !ok {
			continue
		}
		out.UsedIn = append(out.UsedIn, ProductUsage{
			FinishedProduct: product,
			JobOrderDocNo:   docNos[product.JobOrderID],
			UsedWeight:      u.UsedWeight,
		})
	}
	return &Result{Kind: KindRawMaterial, RawMaterial: out}, nil
}

func (s *service) finishedProduct(ctx context.Context, code string) (*Result, error) {
	product, err := s.repo.ProductByCode(ctx, code)
	if err != nil {
		return nil, lookupError(err, "finished product")
	}
	out := &FinishedProductTrace{Product: *product, Materials: make([]ConsumedBatch, 0, len(product.Materials))}

	if out.Item, err = s.repo.Item(ctx, product.ItemID); err != nil {
		return nil, dependency(err, "stock item")
	}
	if out.JobOrder, err = s.repo.JobOrder(ctx, product.JobOrderID); err != nil {
		return nil, dependency(err, "job order")
	}

	batchIDs := make([]uuid.UUID, 0, len(product.Materials))
	for _, m := range product.Materials {
		batchIDs = append(batchIDs, m.RawMaterialBatchID)
	}
	batches, err := s.repo.Batches(ctx, batchIDs)
	if err != nil {
		return nil, dependency(err, "raw material batches")
	}
	supplierIDs := make([]uuid.UUID, 0, len(batches))
	for _, b := range batches {
		supplierIDs = append(supplierIDs, b.SupplierID)
	}
	suppliers, err := s.repo.Suppliers(ctx, supplierIDs)
	if err != nil {
		return nil, dependency(err, "suppliers")
	}

	for _, m := range product.Materials {
		consumed := ConsumedBatch{UsedWeight: m.UsedWeight}
		if batch, ok := batches[m.RawMaterialBatchID]; ok {
			consumed.Batch = &batch
			if supplier, ok := suppliers[batch.SupplierID]; ok {
				consumed.Supplier = &supplier
			}
		}
		out.Materials = append(out.Materials, consumed)
	}
	return &Result{Kind: KindFinishedProduct, FinishedProduct: out}, nil
}

func lookupError(err error, entity string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Newf(pkgerrors.CodeNotFound, "%s not found", entity)
	}
	return dependency(err, entity)
}

func dependency(err error, entity string) error {
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load "+entity)
}

