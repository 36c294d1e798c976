package production

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/asdwsxzc123/jiale-mrp/pkg/config"
	"github.com/asdwsxzc123/jiale-mrp/pkg/db/models"
	pkgerrors "github.com/asdwsxzc123/jiale-mrp/pkg/errors"
	"github.com/asdwsxzc123/jiale-mrp/pkg/logger"
	"github.com/asdwsxzc123/jiale-mrp/pkg/metrics"
	"github.com/asdwsxzc123/jiale-mrp/pkg/outbox"
	"github.com/asdwsxzc123/jiale-mrp/pkg/pagination"
)

type txRunner interface {
	WithRetry(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type docNumberer interface {
	Next(ctx context.Context, tx *gorm.DB, typeCode string) (string, error)
}

type codeIssuer interface {
	Issue(ctx context.Context, tx *gorm.DB, prefix string) (string, error)
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type masterData interface {
	Item(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.StockItem, error)
	Location(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.StockLocation, error)
}

// Service owns bills of materials and the job order workflow.
type Service interface {
	CreateBOM(ctx context.Context, input CreateBOMInput) (*models.BOM, error)
	UpdateBOM(ctx context.Context, input UpdateBOMInput) (*models.BOM, error)
	DeactivateBOM(ctx context.Context, id uuid.UUID) (*models.BOM, error)
	GetBOM(ctx context.Context, id uuid.UUID) (*models.BOM, error)
	ListBOMs(ctx context.Context, params ListBOMsParams) (pagination.Page[models.BOM], error)
	ExpandBOM(ctx context.Context, id uuid.UUID) (*ExpandedBOM, error)

	CreateJobOrder(ctx context.Context, input CreateJobOrderInput) (*models.JobOrder, error)
	UpdateJobOrder(ctx context.Context, input UpdateJobOrderInput) (*models.JobOrder, error)
	RemoveJobOrder(ctx context.Context, id uuid.UUID) error
	GetJobOrder(ctx context.Context, id uuid.UUID) (*models.JobOrder, error)
	ListJobOrders(ctx context.Context, params ListJobOrdersParams) (pagination.Page[models.JobOrder], error)
	CancelJobOrder(ctx context.Context, id uuid.UUID) (*models.JobOrder, error)
	IssueMaterial(ctx context.Context, input IssueMaterialInput) (*models.JobOrder, error)
	Output(ctx context.Context, input OutputInput) (*models.JobOrder, error)
	Complete(ctx context.Context, input CompleteInput) (*CompleteResult, error)
}

type ServiceParams struct {
	Repo       Repository
	Tx         txRunner
	Sequence   docNumberer
	Codes      codeIssuer
	Outbox     outboxEmitter
	MasterData masterData
	Policy     config.NegativePolicy
	Metrics    *metrics.Engine
	Logger     *logger.Logger
	Now        func() time.Time
}

type service struct {
	repo       Repository
	tx         txRunner
	sequence   docNumberer
	codes      codeIssuer
	outbox     outboxEmitter
	masterData masterData
	strict     bool
	metrics    *metrics.Engine
	logg       *logger.Logger
	now        func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("production repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Sequence == nil {
		return nil, fmt.Errorf("sequence allocator required")
	}
	if params.Codes == nil {
		return nil, fmt.Errorf("traceability generator required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.MasterData == nil {
		return nil, fmt.Errorf("master data service required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Policy != "" && !params.Policy.IsValid() {
		return nil, fmt.Errorf("invalid negative stock policy %q", params.Policy)
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:       params.Repo,
		tx:         params.Tx,
		sequence:   params.Sequence,
		codes:      params.Codes,
		outbox:     params.Outbox,
		masterData: params.MasterData,
		strict:     params.Policy.Strict(),
		metrics:    params.Metrics,
		logg:       params.Logger,
		now:        now,
	}, nil
}

func notFound(err error, entity string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Newf(pkgerrors.CodeNotFound, "%s not found", entity)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load "+entity)
}

